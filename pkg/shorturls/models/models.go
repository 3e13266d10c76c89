package models

import "gorm.io/gorm"

// AccountModels returns the models owned by the account database
func AccountModels() []interface{} {
	return []interface{}{
		&User{},
		&APIKey{},
	}
}

// AllModels returns all models for migration, including links for
// deployments that keep links in the same gorm database
func AllModels() []interface{} {
	return append(AccountModels(), &Link{})
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
