package service

import (
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"
)

// AuditService 审计日志查询
type AuditService struct {
	auditRepo repository.AuditEventRepository
}

// NewAuditService 创建审计查询服务
func NewAuditService(auditRepo repository.AuditEventRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// List 审计事件列表，按时间倒序，仅管理员
func (s *AuditService) List(actor Actor, filter repository.AuditEventListFilter) ([]models.AuditEvent, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, ErrForbidden
	}
	return s.auditRepo.List(filter)
}
