package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReworkService 返工工作流
type ReworkService struct {
	*base
	refs *ReferenceGenerator
}

// ReworkServiceInput 返工服务行
type ReworkServiceInput struct {
	ServiceID string          `json:"service_id"`
	Hours     decimal.Decimal `json:"hours"`
}

// CreateReworkRequest 创建返工单请求
type CreateReworkRequest struct {
	DeliveryID string               `json:"delivery_id" binding:"required"`
	Remarks    string               `json:"remarks"`
	Services   []ReworkServiceInput `json:"services"`
}

// ReworkableService 到货服务行及其返工状态
type ReworkableService struct {
	DeliveryServiceID string          `json:"delivery_service_id"`
	ServiceID         string          `json:"service_id"`
	ServiceName       string          `json:"service_name"`
	Hours             decimal.Decimal `json:"hours"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ReworkStatus      *string         `json:"rework_status"`
	Eligible          bool            `json:"eligible"`
}

// ListReworks 获取返工单列表
func (s *ReworkService) ListReworks(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Rework, int64, error) {
	var items []entity.Rework
	var total int64
	err := s.read(ctx, "查询返工单", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Rework.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetRework 获取返工单详情
func (s *ReworkService) GetRework(ctx context.Context, id string) (*entity.Rework, error) {
	var rw *entity.Rework
	err := s.read(ctx, "查询返工单", func(ctx context.Context) error {
		var err error
		rw, err = s.repos.Rework.FindByID(ctx, id)
		return notFoundOr(err, "返工单", id)
	})
	return rw, err
}

// EligibleServices 到货服务行叠加进行中的返工状态，已在返工中的不可再次发起
func (s *ReworkService) EligibleServices(ctx context.Context, deliveryID string) ([]ReworkableService, error) {
	var out []ReworkableService
	err := s.read(ctx, "查询可返工服务", func(ctx context.Context) error {
		if _, err := s.repos.Delivery.FindByID(ctx, deliveryID); err != nil {
			return notFoundOr(err, "到货记录", deliveryID)
		}
		lines, err := s.repos.Delivery.FindServices(ctx, deliveryID)
		if err != nil {
			return err
		}
		active, err := s.repos.Rework.ActiveServiceStatuses(ctx, deliveryID)
		if err != nil {
			return err
		}
		out = OverlayReworkStatus(lines, active)
		return nil
	})
	return out, err
}

// OverlayReworkStatus 按服务ID把返工状态叠加到到货服务行上
func OverlayReworkStatus(lines []entity.DeliveryService, active []repository.ServiceReworkStatus) []ReworkableService {
	statusByService := make(map[string]string, len(active))
	for _, a := range active {
		// 同一服务有多张返工单时以最新一张为准
		statusByService[a.ServiceID] = a.Status
	}

	out := make([]ReworkableService, 0, len(lines))
	for _, l := range lines {
		rs := ReworkableService{
			DeliveryServiceID: l.ID,
			ServiceID:         l.ServiceID,
			Hours:             l.Hours,
			UnitPrice:         l.UnitPrice,
			Eligible:          true,
		}
		if l.Service != nil {
			rs.ServiceName = l.Service.Name
		}
		if st, ok := statusByService[l.ServiceID]; ok {
			st := st
			rs.ReworkStatus = &st
			rs.Eligible = false
		}
		out = append(out, rs)
	}
	return out
}

// CreateRework 创建返工单。表头、到货关联、返工服务行、审计在同一事务内
func (s *ReworkService) CreateRework(ctx context.Context, userID string, in *CreateReworkRequest) (*entity.Rework, error) {
	if in.DeliveryID == "" {
		return nil, invalid("delivery_id", "不能为空")
	}
	if strings.TrimSpace(in.Remarks) == "" {
		return nil, invalid("remarks", "返工原因不能为空")
	}
	if len(in.Services) == 0 {
		return nil, invalid("services", "至少需要一项返工服务")
	}
	seen := make(map[string]bool, len(in.Services))
	for i, line := range in.Services {
		field := fmt.Sprintf("services[%d]", i)
		if line.ServiceID == "" {
			return nil, invalid(field+".service_id", "不能为空")
		}
		if line.Hours.IsNegative() {
			return nil, invalid(field+".hours", "工时不能为负数")
		}
		if seen[line.ServiceID] {
			return nil, invalid(field+".service_id", "重复的服务: %s", line.ServiceID)
		}
		seen[line.ServiceID] = true
	}

	rw := &entity.Rework{
		ID:        newID(),
		Remarks:   strings.TrimSpace(in.Remarks),
		Status:    entity.ReworkStatusPending,
		CreatedBy: userID,
	}

	err := s.inTx(ctx, "创建返工单", func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := tx.Delivery.FindByID(ctx, in.DeliveryID); err != nil {
			return mustExist(err, "delivery_id", "到货记录", in.DeliveryID)
		}
		lines, err := tx.Delivery.FindServices(ctx, in.DeliveryID)
		if err != nil {
			return err
		}
		active, err := tx.Rework.ActiveServiceStatuses(ctx, in.DeliveryID)
		if err != nil {
			return err
		}
		eligible := make(map[string]bool, len(lines))
		for _, rs := range OverlayReworkStatus(lines, active) {
			eligible[rs.ServiceID] = rs.Eligible
		}
		for i, line := range in.Services {
			free, onDelivery := eligible[line.ServiceID]
			if !onDelivery {
				return invalid(fmt.Sprintf("services[%d].service_id", i), "服务 %s 不在该到货记录上", line.ServiceID)
			}
			if !free {
				return &ConflictError{Message: fmt.Sprintf("服务 %s 已在返工中", line.ServiceID)}
			}
		}

		ref, err := s.refs.Generate(ctx, entity.ReworkReferencePrefix, tx.Rework.ReferenceExists)
		if err != nil {
			return err
		}
		rw.ReferenceNo = ref

		if err := tx.Rework.Create(ctx, rw); err != nil {
			return err
		}
		if err := tx.Rework.CreateDeliveryLink(ctx, &entity.ReworkDelivery{
			ID:            newID(),
			ReworkID:      rw.ID,
			OldDeliveryID: in.DeliveryID,
		}); err != nil {
			return err
		}
		for _, line := range in.Services {
			if err := tx.Rework.CreateService(ctx, &entity.ReworkService{
				ID:        newID(),
				ReworkID:  rw.ID,
				ServiceID: line.ServiceID,
				Hours:     line.Hours,
			}); err != nil {
				return err
			}
		}
		return tx.AuditLog.Record(ctx, entity.AuditReworkCreated, userID, rw.ID,
			fmt.Sprintf("创建返工单 %s", rw.ReferenceNo))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rework created",
		zap.String("rework_id", rw.ID),
		zap.String("reference_no", rw.ReferenceNo),
		zap.String("delivery_id", in.DeliveryID),
	)
	return s.GetRework(ctx, rw.ID)
}

// DestroyRework 物理删除返工单：先删子表（服务行、到货关联）再删表头，同一事务。
// 已取消（软删除）的返工单同样可以删除
func (s *ReworkService) DestroyRework(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, "删除返工单", func(ctx context.Context, tx *repository.Repositories) error {
		rw, err := tx.Rework.FindByIDUnscoped(ctx, id)
		if err != nil {
			return notFoundOr(err, "返工单", id)
		}
		if rw.Status == entity.ReworkStatusDelivered {
			return &ConflictError{Message: "已到货的返工单不能删除"}
		}
		if err := tx.Rework.HardDelete(ctx, rw.ID); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditReworkDeleted, userID, rw.ID,
			fmt.Sprintf("删除返工单 %s", rw.ReferenceNo))
	})
}

// CancelRework 取消返工单（保留记录，软删除）
func (s *ReworkService) CancelRework(ctx context.Context, userID, id string) error {
	return s.inTx(ctx, "取消返工单", func(ctx context.Context, tx *repository.Repositories) error {
		rw, err := tx.Rework.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "返工单", id)
		}
		if !entity.IsOneOf(rw.Status, entity.ReworkStatusPending, entity.ReworkStatusApproved) {
			return &ConflictError{Message: fmt.Sprintf("当前状态 %s 不允许取消", rw.Status)}
		}
		if err := tx.Rework.Cancel(ctx, rw.ID); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditReworkCancelled, userID, rw.ID,
			fmt.Sprintf("取消返工单 %s", rw.ReferenceNo))
	})
}
