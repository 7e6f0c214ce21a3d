package models

import (
	"strings"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

const defaultAdminPassword = "admin123"

// InitDefaultAdmin 初始化默认管理员账号（已有管理员时跳过）
func InitDefaultAdmin(username, email, password string) error {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", constants.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = "admin"
	}
	email = strings.TrimSpace(email)
	if email == "" {
		email = "admin@smartcargo.local"
	}
	if password == "" {
		password = defaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		Username:       username,
		Email:          email,
		PasswordHash:   string(hash),
		Name:           "Administrator",
		Role:           constants.RoleAdmin,
		Status:         constants.UserStatusActive,
		Preferences:    DefaultPreferences(),
		Certifications: StringArray{},
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if password == defaultAdminPassword {
		logger.Warnw("default_admin_created_with_default_password", "username", username)
		logger.Warnw("default_admin_password_change_required", "username", username)
	} else {
		logger.Warnw("default_admin_created", "username", username, "password_hidden", true)
	}
	return nil
}
