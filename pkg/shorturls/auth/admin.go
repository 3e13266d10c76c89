package auth

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/models"
	"gorm.io/gorm"
)

// EnsureAdmin creates an admin account with the given credentials if no
// admin exists yet. It reports whether an account was created.
func EnsureAdmin(db *gorm.DB, email, password string) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, err := CreateAdmin(db, email, "Admin", password); err != nil {
		return false, err
	}

	glog.Infof("Created default admin user: %s", email)
	return true, nil
}

// CreateAdmin creates an admin account, or promotes an existing account
// with the same email.
func CreateAdmin(db *gorm.DB, email, name, password string) (*models.User, error) {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	if err == nil {
		user.SystemRole = models.SystemRoleAdmin
		user.PasswordHash = hashedPassword
		if err := db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return &user, nil
}
