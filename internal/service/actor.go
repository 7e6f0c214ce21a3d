package service

import "github.com/smartcargo-next/internal/constants"

// Actor 发起操作的用户身份，由 HTTP 层从令牌中解析后显式传入
type Actor struct {
	UserID    uint
	Role      string
	RequestID string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool {
	return a.Role == constants.RoleAdmin
}

// IsShipper 是否货主
func (a Actor) IsShipper() bool {
	return a.Role == constants.RoleShipper
}

// IsCarrier 是否承运商
func (a Actor) IsCarrier() bool {
	return a.Role == constants.RoleCarrier
}

// OwnsOrAdmin 资源属主或管理员
func (a Actor) OwnsOrAdmin(ownerID uint) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}

func (a Actor) idPtr() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

func uintPtr(v uint) *uint {
	if v == 0 {
		return nil
	}
	return &v
}
