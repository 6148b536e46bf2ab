package service

import (
	"context"
	"sort"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
)

// AuditService 审计日志查询（写入由各工作流在自身事务内完成）
type AuditService struct {
	*base
}

// AuditActionInfo 审计动作字典项
type AuditActionInfo struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	EntityType  string `json:"entity_type"`
	Description string `json:"description"`
}

// List 查询审计日志
func (s *AuditService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AuditLog, int64, error) {
	var items []entity.AuditLog
	var total int64
	err := s.read(ctx, "查询审计日志", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.AuditLog.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// Actions 审计动作字典，按编码排序
func (s *AuditService) Actions() []AuditActionInfo {
	actions := entity.AuditActions()
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	out := make([]AuditActionInfo, 0, len(actions))
	for _, a := range actions {
		out = append(out, AuditActionInfo{
			Code:        a.Code(),
			Name:        a.String(),
			EntityType:  a.EntityType(),
			Description: a.Description(),
		})
	}
	return out
}
