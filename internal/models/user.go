package models

import (
	"time"

	"gorm.io/gorm"
)

// User 平台用户（管理员 / 货主 / 承运商）
type User struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Username       string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	Name           string         `gorm:"type:varchar(120);not null;default:''" json:"name"`
	Role           string         `gorm:"type:varchar(20);index;not null" json:"role"`
	CompanyName    string         `gorm:"type:varchar(255);not null;default:''" json:"company_name"`
	Status         string         `gorm:"type:varchar(32);index;not null" json:"status"`
	Preferences    JSON           `gorm:"type:json" json:"preferences"`
	Certifications StringArray    `gorm:"type:json" json:"certifications"`
	TokenVersion   uint64         `gorm:"not null;default:0" json:"-"` // 递增后旧令牌全部失效
	LastLoginAt    *time.Time     `json:"last_login_at"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// DefaultPreferences 新用户默认偏好
func DefaultPreferences() JSON {
	return JSON{
		"language": "es",
		"notifications": map[string]interface{}{
			"email": true,
			"inApp": true,
			"sms":   false,
		},
		"theme": "dark",
	}
}
