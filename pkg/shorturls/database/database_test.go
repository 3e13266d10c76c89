package database

import (
	"context"
	"errors"
	"testing"

	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"gorm.io/gorm"
)

func TestConnectTranslatesDuplicateKeys(t *testing.T) {
	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	first := models.Link{Code: "dup", Destination: "https://example.com", Active: true}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("Failed to create link: %v", err)
	}

	second := models.Link{Code: "dup", Destination: "https://example.org", Active: true}
	err = db.Create(&second).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestConnectPostgresGivesUp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context stops the retry loop before any backoff
	_, err := ConnectPostgres(ctx, "postgres://nobody@127.0.0.1:1/none?sslmode=disable", 3)
	if err == nil {
		t.Error("Expected error connecting to an unreachable database")
	}
}
