package Controllers

import (
	"time"

	"ClinOps/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TaskController handles study team tasks
type TaskController struct {
	DB *gorm.DB
}

func NewTaskController(db *gorm.DB) *TaskController {
	return &TaskController{DB: db}
}

// GetTasks lists tasks. Filters: status, priority, assignee, trial_id and
// overdue=true.
func (c *TaskController) GetTasks(ctx *fiber.Ctx) error {
	q := c.DB.Model(&Models.Task{}).Order("due_date IS NULL, due_date, id")
	for _, key := range []string{"status", "priority", "assignee"} {
		if v := ctx.Query(key); v != "" {
			q = q.Where(key+" = ?", v)
		}
	}
	if trialID := queryUint(ctx, "trial_id"); trialID != 0 {
		q = q.Where("trial_id = ?", trialID)
	}
	if ctx.Query("overdue") == "true" {
		q = q.Where("status <> ? AND due_date IS NOT NULL AND due_date < ?", "done", time.Now())
	}

	var tasks []Models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return err
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) GetTask(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "task")
	if err != nil {
		return err
	}
	var task Models.Task
	if err := c.DB.Preload("Comments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at")
	}).First(&task, id).Error; err != nil {
		return notFound("Task")
	}
	return ctx.JSON(task)
}

func applyTask(t *Models.Task, in Models.TaskRequest) error {
	due, err := parseDate(in.DueDate)
	if err != nil {
		return err
	}
	t.Title = in.Title
	t.Description = in.Description
	t.Assignee = in.Assignee
	t.TrialID = in.TrialID
	t.DueDate = due
	if in.Status != "" {
		t.Status = in.Status
	}
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	return nil
}

func (c *TaskController) CreateTask(ctx *fiber.Ctx) error {
	var input Models.TaskRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	task := Models.Task{Status: "todo", Priority: "medium"}
	if err := applyTask(&task, input); err != nil {
		return err
	}
	if err := c.DB.Create(&task).Error; err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(task)
}

func (c *TaskController) UpdateTask(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "task")
	if err != nil {
		return err
	}
	var task Models.Task
	if err := c.DB.First(&task, id).Error; err != nil {
		return notFound("Task")
	}

	var input Models.TaskRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	if err := applyTask(&task, input); err != nil {
		return err
	}
	if err := c.DB.Save(&task).Error; err != nil {
		return err
	}
	return ctx.JSON(task)
}

// UpdateTaskStatus sets the status. Any status may follow any other.
func (c *TaskController) UpdateTaskStatus(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "task")
	if err != nil {
		return err
	}
	var input Models.TaskStatusRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}

	var task Models.Task
	if err := c.DB.First(&task, id).Error; err != nil {
		return notFound("Task")
	}
	if err := c.DB.Model(&task).Update("status", input.Status).Error; err != nil {
		return err
	}
	task.Status = input.Status
	return ctx.JSON(task)
}

func (c *TaskController) AddComment(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "task")
	if err != nil {
		return err
	}
	var input Models.TaskCommentRequest
	if err := bind(ctx, &input); err != nil {
		return err
	}
	if err := c.DB.Select("id").First(&Models.Task{}, id).Error; err != nil {
		return notFound("Task")
	}

	comment := Models.TaskComment{TaskID: id, Author: actor(ctx), Body: input.Body}
	if err := c.DB.Create(&comment).Error; err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteTask soft deletes; the row stays in the table with deleted_at set.
func (c *TaskController) DeleteTask(ctx *fiber.Ctx) error {
	id, err := paramID(ctx, "task")
	if err != nil {
		return err
	}
	res := c.DB.Delete(&Models.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("Task")
	}
	return ctx.JSON(fiber.Map{"message": "Task deleted successfully"})
}
