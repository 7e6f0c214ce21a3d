package service

import (
	"context"

	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"
)

// UserAdminService 用户管理（审核承运商、停用账号）
type UserAdminService struct {
	userRepo repository.UserRepository
	emitter  EventEmitter
}

// NewUserAdminService 创建用户管理服务
func NewUserAdminService(userRepo repository.UserRepository, emitter EventEmitter) *UserAdminService {
	return &UserAdminService{userRepo: userRepo, emitter: emitterOrNoop(emitter)}
}

// List 用户列表
func (s *UserAdminService) List(actor Actor, filter repository.UserListFilter) ([]models.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.userRepo.List(filter)
}

// UpdateStatus 更新账号状态；离开 ACTIVE 时吊销已签发令牌
func (s *UserAdminService) UpdateStatus(ctx context.Context, actor Actor, id uint, status string) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	switch status {
	case constants.UserStatusActive, constants.UserStatusInactive, constants.UserStatusPendingApproval:
	default:
		return nil, ErrInvalidUserStatus
	}
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	previous := user.Status
	if previous == status {
		return user, nil
	}

	revoke := status != constants.UserStatusActive
	if err := s.userRepo.UpdateStatus(id, status, revoke); err != nil {
		return nil, err
	}
	if err := cache.DelUserAuthState(ctx, id); err != nil {
		logger.Warnw("user_auth_state_invalidate_failed", "user_id", id, "error", err)
	}
	user.Status = status
	if revoke {
		user.TokenVersion++
	}

	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventUserUpdated,
		RelatedEntityID: id,
		Actor:           actor,
		Details:         map[string]interface{}{"from": previous, "to": status},
	})
	if previous == constants.UserStatusPendingApproval && status == constants.UserStatusActive {
		s.emitter.EmitAlert(ctx, AlertInput{
			Message:     "Your account has been approved",
			Severity:    constants.AlertSeverityInfo,
			RecipientID: id,
		})
	}
	return user, nil
}

// Delete 删除用户，管理员不能删除自己
func (s *UserAdminService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsAdmin() || actor.UserID == id {
		return ErrForbidden
	}
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.userRepo.Delete(id); err != nil {
		return err
	}
	_ = cache.DelUserAuthState(ctx, id)
	s.emitter.EmitAudit(ctx, AuditInput{
		EventType:       constants.EventUserDeleted,
		RelatedEntityID: id,
		Actor:           actor,
		Details:         map[string]interface{}{"username": user.Username, "role": user.Role},
	})
	return nil
}
