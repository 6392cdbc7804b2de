package Models

import (
	"fmt"
	"net"

	"ClinOps/Config"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the configured database, migrates the schema and stores the
// handle in DB.
func Connect(cfg Config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}

	DB = connection
	return connection, nil
}

func dialectorFor(cfg Config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return sqlite.Open(cfg.Path), nil
	case "mysql":
		dsn := mysqldriver.NewConfig()
		dsn.User = cfg.User
		dsn.Passwd = cfg.Password
		dsn.Net = "tcp"
		dsn.Addr = net.JoinHostPort(cfg.Host, portOr(cfg.Port, "3306"))
		dsn.DBName = cfg.Name
		dsn.ParseTime = true
		return gormmysql.Open(dsn.FormatDSN()), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			cfg.Host, cfg.User, cfg.Password, cfg.Name, portOr(cfg.Port, "5432"))
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("%w: %s", Config.ErrUnknownDriver, cfg.Driver)
}

func portOr(port, def string) string {
	if port == "" {
		return def
	}
	return port
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	// Tables without foreign keys first.
	if err := db.AutoMigrate(
		&User{},
		&Trial{},
		&DomainRecord{},
		&Notification{},
	); err != nil {
		return fmt.Errorf("migrate base tables: %w", err)
	}

	// Then everything hanging off a trial.
	if err := db.AutoMigrate(
		&Site{},
		&Task{},
		&TaskComment{},
		&SignalDetection{},
		&Document{},
	); err != nil {
		return fmt.Errorf("migrate trial tables: %w", err)
	}
	return nil
}

// OpenInMemory opens a private in-memory SQLite database with the schema
// applied. Used by tests and demos.
func OpenInMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
