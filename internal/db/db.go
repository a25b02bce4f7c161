package db

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Natanaelvich/ai-smart-marketplace/internal/cart"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/catalog"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/chat"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/embedjobs"
	"github.com/Natanaelvich/ai-smart-marketplace/internal/models"
)

// Connect opens the postgres pool and applies the schema.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxIdleTime(30 * time.Second)

	// The embedding column type needs the extension before migration.
	if err := gdb.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Migrate applies the schema for every model. Shared with the sqlite test
// databases.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&catalog.Store{},
		&catalog.Product{},
		&cart.Cart{},
		&cart.Item{},
		&chat.Session{},
		&chat.Message{},
		&chat.MessageAction{},
		&embedjobs.Batch{},
	)
}
