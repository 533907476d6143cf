package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ripplegate/ripplegate/internal/models"
)

// NewTestDB opens a private in-memory database with the schema applied.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.Event{}, &models.Ticket{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func InsertUser(t *testing.T, db *gorm.DB, email, wallet string) models.User {
	t.Helper()
	user := models.User{
		Email:         email,
		WalletAddress: wallet,
		Password:      "$2a$10$placeholderplaceholderplaceholderplaceholderpl",
	}
	if err := db.WithContext(context.Background()).Create(&user).Error; err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return user
}

func InsertEvent(t *testing.T, db *gorm.DB, title string, capacity int, price int64) models.Event {
	t.Helper()
	date := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	event := models.Event{
		Title:       title,
		Location:    title + " Hall",
		Description: "Test event",
		Tickets:     capacity,
		Price:       decimal.NewFromInt(price),
		Date:        date,
		Time:        date.Add(20 * time.Hour),
	}
	if err := db.WithContext(context.Background()).Create(&event).Error; err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return event
}

func CountTickets(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.Ticket{}).Count(&n).Error; err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	return n
}
