package Controllers

import (
	"errors"
	"strings"
	"time"

	"ClinOps/Models"
	"ClinOps/middleware"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthController struct {
	DB *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{DB: db}
}

// Login checks the credentials and sets the jwt cookie. The token is also
// returned in the body for clients that send it as a bearer header.
func (c *AuthController) Login(ctx *fiber.Ctx) error {
	var input Models.LoginRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	var user Models.User
	if err := c.DB.Where("email = ?", strings.ToLower(input.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "Incorrect email or password")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(input.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Incorrect email or password")
	}

	now := time.Now()
	token, err := middleware.IssueToken(user.ID, now)
	if err != nil {
		return err
	}

	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  now.Add(middleware.TokenTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return ctx.JSON(fiber.Map{
		"message":    "Logged in",
		"token":      token,
		"name":       user.Name,
		"permission": user.Permission,
	})
}

func (c *AuthController) Logout(ctx *fiber.Ctx) error {
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return ctx.JSON(fiber.Map{"message": "Logged out"})
}

// User returns the logged-in user. Mounted behind Verify.
func (c *AuthController) User(ctx *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not Logged In.")
	}
	return ctx.JSON(user)
}

func (c *AuthController) RegisterUser(ctx *fiber.Ctx) error {
	var input Models.RegisterUserRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := Models.User{
		Name:       input.Name,
		Email:      strings.ToLower(input.Email),
		Password:   hash,
		Permission: input.Permission,
	}
	if err := c.DB.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return fiber.NewError(fiber.StatusConflict, "A user with this email already exists")
		}
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(user)
}
