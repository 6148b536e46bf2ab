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

// RequisitionService 请购单工作流
type RequisitionService struct {
	*base
}

// RequisitionItemInput 请购物料行
type RequisitionItemInput struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// RequisitionServiceInput 请购服务行
type RequisitionServiceInput struct {
	ServiceID string           `json:"service_id"`
	ItemID    *string          `json:"item_id"`
	Hours     decimal.Decimal  `json:"hours"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// SaveRequisitionRequest 创建/修改请购单请求
type SaveRequisitionRequest struct {
	Requestor string                    `json:"requestor" binding:"required"`
	Priority  string                    `json:"priority"`
	Type      string                    `json:"type" binding:"required"`
	Notes     string                    `json:"notes"`
	TotalCost decimal.Decimal           `json:"total_cost"`
	Items     []RequisitionItemInput    `json:"items"`
	Services  []RequisitionServiceInput `json:"services"`
}

// ListRequisitions 获取请购单列表
func (s *RequisitionService) ListRequisitions(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Requisition, int64, error) {
	var items []entity.Requisition
	var total int64
	err := s.read(ctx, "查询请购单", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Requisition.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetRequisition 获取请购单详情
func (s *RequisitionService) GetRequisition(ctx context.Context, id string) (*entity.Requisition, error) {
	var req *entity.Requisition
	err := s.read(ctx, "查询请购单", func(ctx context.Context) error {
		var err error
		req, err = s.repos.Requisition.FindByID(ctx, id)
		return notFoundOr(err, "请购单", id)
	})
	return req, err
}

// CreateRequisition 创建请购单
func (s *RequisitionService) CreateRequisition(ctx context.Context, userID string, in *SaveRequisitionRequest) (*entity.Requisition, error) {
	reqType, priority, err := validateRequisitionHeader(in)
	if err != nil {
		return nil, err
	}

	req := &entity.Requisition{
		ID:        newID(),
		Requestor: strings.TrimSpace(in.Requestor),
		UserID:    userID,
		Priority:  priority,
		Type:      reqType,
		Notes:     in.Notes,
		Status:    entity.RequisitionStatusPending,
		TotalCost: in.TotalCost,
	}

	err = s.inTx(ctx, "创建请购单", func(ctx context.Context, tx *repository.Repositories) error {
		if err := tx.Requisition.Create(ctx, req); err != nil {
			return err
		}
		lineTotal, err := insertRequisitionLines(ctx, tx, req, in)
		if err != nil {
			return err
		}
		if req.TotalCost.IsZero() && !lineTotal.IsZero() {
			req.TotalCost = lineTotal
			if err := tx.Requisition.UpdateHeader(ctx, req); err != nil {
				return err
			}
		}
		return tx.AuditLog.Record(ctx, entity.AuditRequisitionCreated, userID, req.ID,
			fmt.Sprintf("创建请购单（%s，%s）", req.Requestor, req.Type))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("requisition created",
		zap.String("requisition_id", req.ID),
		zap.String("type", req.Type),
		zap.String("user_id", userID),
	)
	return s.GetRequisition(ctx, req.ID)
}

// UpdateRequisition 修改请购单：整体替换行项，任一行校验失败则整单回滚
func (s *RequisitionService) UpdateRequisition(ctx context.Context, userID, id string, in *SaveRequisitionRequest) (*entity.Requisition, error) {
	reqType, priority, err := validateRequisitionHeader(in)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "修改请购单", func(ctx context.Context, tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "请购单", id)
		}
		if req.Status != entity.RequisitionStatusPending {
			return &ConflictError{Message: fmt.Sprintf("当前状态 %s 不允许修改", req.Status)}
		}

		// 类型切换时两张行表都要清空
		if err := tx.Requisition.DeleteLines(ctx, req.ID); err != nil {
			return err
		}

		req.Requestor = strings.TrimSpace(in.Requestor)
		req.Priority = priority
		req.Type = reqType
		req.Notes = in.Notes
		req.TotalCost = in.TotalCost
		req.Items = nil
		req.Services = nil

		lineTotal, err := insertRequisitionLines(ctx, tx, req, in)
		if err != nil {
			return err
		}
		if req.TotalCost.IsZero() {
			req.TotalCost = lineTotal
		}
		if err := tx.Requisition.UpdateHeader(ctx, req); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditRequisitionUpdated, userID, req.ID, "")
	})
	if err != nil {
		return nil, err
	}
	return s.GetRequisition(ctx, id)
}

// UpdateRequisitionStatusRequest 变更状态请求
type UpdateRequisitionStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// UpdateStatus 变更请购单状态
func (s *RequisitionService) UpdateStatus(ctx context.Context, userID, id string, in *UpdateRequisitionStatusRequest) (*entity.Requisition, error) {
	status, err := s.normalizeStatus(entity.RequisitionStatusTokens, "status", in.Status)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "变更请购单状态", func(ctx context.Context, tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "请购单", id)
		}

		// 自定义状态不在流转表里，只有开启自定义时才放行
		_, known := entity.MatchStatus(entity.RequisitionStatusTokens, status)
		if known && req.Status != status && !entity.CanTransition(entity.ValidRequisitionTransitions, req.Status, status) {
			return &ConflictError{Message: fmt.Sprintf("不允许从 %s 流转到 %s", req.Status, status)}
		}

		req.Status = status
		if status == entity.RequisitionStatusRejected && strings.TrimSpace(in.Reason) != "" {
			req.Remarks = in.Reason
		}
		if err := tx.Requisition.UpdateHeader(ctx, req); err != nil {
			return err
		}

		action := entity.AuditRequisitionStatusChanged
		switch status {
		case entity.RequisitionStatusApproved:
			action = entity.AuditRequisitionApproved
		case entity.RequisitionStatusRejected:
			action = entity.AuditRequisitionDeclined
		}
		return tx.AuditLog.Record(ctx, action, userID, req.ID, fmt.Sprintf("%s → %s", action.Description(), status))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRequisition(ctx, id)
}

// AdjustLine 单行批准数量
type AdjustLine struct {
	LineID           string `json:"line_id"`
	ApprovedQuantity int    `json:"approved_quantity"`
	Version          *int   `json:"version"`
}

// AdjustRequisitionRequest 调整批准数量请求
type AdjustRequisitionRequest struct {
	Lines     []AdjustLine     `json:"lines"`
	Remarks   *string          `json:"remarks"`
	TotalCost *decimal.Decimal `json:"total_cost"`
}

// Adjust 调整批准数量。物料请购按行更新并重新推导状态；服务请购只更新表头备注/总额
func (s *RequisitionService) Adjust(ctx context.Context, userID, id string, in *AdjustRequisitionRequest) (*entity.Requisition, error) {
	seen := make(map[string]bool, len(in.Lines))
	for i, line := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if line.LineID == "" {
			return nil, invalid(field+".line_id", "不能为空")
		}
		if line.ApprovedQuantity < 0 {
			return nil, invalid(field+".approved_quantity", "批准数量不能为负数")
		}
		if seen[line.LineID] {
			return nil, invalid(field+".line_id", "重复的行: %s", line.LineID)
		}
		seen[line.LineID] = true
	}
	if in.TotalCost != nil && in.TotalCost.IsNegative() {
		return nil, invalid("total_cost", "总额不能为负数")
	}

	err := s.inTx(ctx, "调整请购单", func(ctx context.Context, tx *repository.Repositories) error {
		req, err := tx.Requisition.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "请购单", id)
		}
		if !entity.IsOneOf(req.Status, entity.RequisitionStatusPending, entity.RequisitionStatusPartiallyApproved, entity.RequisitionStatusApproved) {
			return &ConflictError{Message: fmt.Sprintf("当前状态 %s 不允许调整", req.Status)}
		}

		if in.Remarks != nil {
			req.Remarks = *in.Remarks
		}
		if in.TotalCost != nil {
			req.TotalCost = *in.TotalCost
		}

		if req.IsItemType() {
			if err := applyAdjustLines(ctx, tx, req, in.Lines); err != nil {
				return err
			}
			lines, err := tx.Requisition.FindItems(ctx, req.ID)
			if err != nil {
				return err
			}
			req.Status = DeriveAdjustedStatus(lines)
		}

		if err := tx.Requisition.UpdateHeader(ctx, req); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditRequisitionAdjusted, userID, req.ID,
			fmt.Sprintf("调整请购批准数量，结果状态 %s", req.Status))
	})
	if err != nil {
		return nil, err
	}
	return s.GetRequisition(ctx, id)
}

func applyAdjustLines(ctx context.Context, tx *repository.Repositories, req *entity.Requisition, lines []AdjustLine) error {
	owned := make(map[string]entity.RequisitionItem, len(req.Items))
	for _, it := range req.Items {
		owned[it.ID] = it
	}

	for i, line := range lines {
		current, ok := owned[line.LineID]
		if !ok {
			return invalid(fmt.Sprintf("lines[%d].line_id", i), "行不属于该请购单: %s", line.LineID)
		}
		if line.ApprovedQuantity > current.Quantity {
			return invalid(fmt.Sprintf("lines[%d].approved_quantity", i), "批准数量不能超过申请数量 %d", current.Quantity)
		}
		linked, err := tx.PO.ItemLinked(ctx, line.LineID)
		if err != nil {
			return err
		}
		if linked {
			return &ConflictError{Message: fmt.Sprintf("请购行 %s 已下单，不能再调整", line.LineID)}
		}
		version := current.Version
		if line.Version != nil {
			version = *line.Version
		}
		updated, err := tx.Requisition.SetApprovedQuantity(ctx, line.LineID, version, line.ApprovedQuantity)
		if err != nil {
			return err
		}
		if !updated {
			return &ConflictError{Message: fmt.Sprintf("请购行 %s 已被他人修改，请刷新后重试", line.LineID)}
		}
	}
	return nil
}

// DeriveAdjustedStatus 全部足额批准 → Approved；全部为0 → Rejected；其余 → Partially Approved
func DeriveAdjustedStatus(lines []entity.RequisitionItem) string {
	if len(lines) == 0 {
		return entity.RequisitionStatusApproved
	}
	full, zero := true, true
	for _, l := range lines {
		if l.ApprovedQuantity < l.Quantity {
			full = false
		}
		if l.ApprovedQuantity > 0 {
			zero = false
		}
	}
	switch {
	case full:
		return entity.RequisitionStatusApproved
	case zero:
		return entity.RequisitionStatusRejected
	default:
		return entity.RequisitionStatusPartiallyApproved
	}
}

func validateRequisitionHeader(in *SaveRequisitionRequest) (reqType, priority string, err error) {
	if strings.TrimSpace(in.Requestor) == "" {
		return "", "", invalid("requestor", "不能为空")
	}

	reqType = strings.ToLower(strings.TrimSpace(in.Type))
	switch reqType {
	case entity.RequisitionTypeItems:
		if len(in.Services) > 0 {
			return "", "", invalid("services", "物料请购不能包含服务行")
		}
		if len(in.Items) == 0 {
			return "", "", invalid("items", "至少需要一行物料")
		}
	case entity.RequisitionTypeServices:
		if len(in.Items) > 0 {
			return "", "", invalid("items", "服务请购不能包含物料行")
		}
		if len(in.Services) == 0 {
			return "", "", invalid("services", "至少需要一行服务")
		}
	default:
		return "", "", invalid("type", "必须是 items 或 services")
	}

	priority = entity.PriorityNormal
	if p := strings.TrimSpace(in.Priority); p != "" {
		priority = TitleStatus(p)
		if !entity.IsOneOf(priority, entity.PriorityLow, entity.PriorityNormal, entity.PriorityHigh, entity.PriorityUrgent) {
			return "", "", invalid("priority", "未知优先级: %s", in.Priority)
		}
	}

	if in.TotalCost.IsNegative() {
		return "", "", invalid("total_cost", "总额不能为负数")
	}
	return reqType, priority, nil
}

// insertRequisitionLines 逐行校验并写入，返回按行计算的总额
func insertRequisitionLines(ctx context.Context, tx *repository.Repositories, req *entity.Requisition, in *SaveRequisitionRequest) (decimal.Decimal, error) {
	total := decimal.Zero

	if req.IsItemType() {
		for i, line := range in.Items {
			field := fmt.Sprintf("items[%d]", i)
			if line.ItemID == "" {
				return total, invalid(field+".item_id", "不能为空")
			}
			if line.Quantity <= 0 {
				return total, invalid(field+".quantity", "数量必须大于0")
			}
			item, err := tx.Catalog.FindActiveItem(ctx, line.ItemID)
			if err != nil {
				return total, mustExist(err, field+".item_id", "物料", line.ItemID)
			}
			row := &entity.RequisitionItem{
				ID:               newID(),
				RequisitionID:    req.ID,
				ItemID:           item.ID,
				Quantity:         line.Quantity,
				ApprovedQuantity: line.Quantity,
				Version:          1,
				SortOrder:        i + 1,
			}
			if err := tx.Requisition.CreateItem(ctx, row); err != nil {
				return total, err
			}
			total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			req.Items = append(req.Items, *row)
		}
		return total, nil
	}

	for i, line := range in.Services {
		field := fmt.Sprintf("services[%d]", i)
		if line.ServiceID == "" {
			return total, invalid(field+".service_id", "不能为空")
		}
		if line.Hours.IsNegative() {
			return total, invalid(field+".hours", "工时不能为负数")
		}
		svc, err := tx.Catalog.FindActiveService(ctx, line.ServiceID)
		if err != nil {
			return total, mustExist(err, field+".service_id", "服务", line.ServiceID)
		}
		if line.ItemID != nil && *line.ItemID != "" {
			if _, err := tx.Catalog.FindItemByID(ctx, *line.ItemID); err != nil {
				return total, mustExist(err, field+".item_id", "物料", *line.ItemID)
			}
		} else {
			line.ItemID = nil
		}

		price := svc.UnitPrice
		if line.UnitPrice != nil {
			if line.UnitPrice.IsNegative() {
				return total, invalid(field+".unit_price", "单价不能为负数")
			}
			price = *line.UnitPrice
		}
		row := &entity.RequisitionService{
			ID:            newID(),
			RequisitionID: req.ID,
			ServiceID:     svc.ID,
			ItemID:        line.ItemID,
			Hours:         line.Hours,
			UnitPrice:     price,
			SortOrder:     i + 1,
		}
		if err := tx.Requisition.CreateService(ctx, row); err != nil {
			return total, err
		}
		total = total.Add(ServiceLineCost(price, line.Hours))
		req.Services = append(req.Services, *row)
	}
	return total, nil
}
