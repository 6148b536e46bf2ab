package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProcurementService 采购订单工作流
type ProcurementService struct {
	*base
}

// POItemInput PO物料行，必须指向一条已批准的请购物料行
type POItemInput struct {
	RequisitionItemID string           `json:"requisition_item_id"`
	Quantity          int              `json:"quantity"`
	UnitPrice         *decimal.Decimal `json:"unit_price"`
}

// POServiceInput PO服务行，必须指向一条请购服务行
type POServiceInput struct {
	RequisitionServiceID string           `json:"requisition_service_id"`
	UnitPrice            *decimal.Decimal `json:"unit_price"`
}

// CreatePORequest 创建采购订单请求
type CreatePORequest struct {
	ReferenceNo    string           `json:"reference_no"`
	RequisitionIDs []string         `json:"requisition_ids"`
	SupplierID     string           `json:"supplier_id" binding:"required"`
	PaymentType    string           `json:"payment_type" binding:"required"`
	OrderType      string           `json:"order_type" binding:"required"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	Remarks        string           `json:"remarks"`
	Items          []POItemInput    `json:"items"`
	Services       []POServiceInput `json:"services"`
}

var paymentTypes = map[string]string{
	"cash":         entity.PaymentTypeCash,
	"disbursement": entity.PaymentTypeDisbursement,
	"store_credit": entity.PaymentTypeStoreCredit,
}

var orderTypes = map[string]string{
	"items":    entity.OrderTypeItems,
	"services": entity.OrderTypeServices,
}

// ListPOs 获取采购订单列表
func (s *ProcurementService) ListPOs(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.PurchaseOrder, int64, error) {
	var items []entity.PurchaseOrder
	var total int64
	err := s.read(ctx, "查询采购订单", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.PO.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetPO 获取采购订单详情
func (s *ProcurementService) GetPO(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var po *entity.PurchaseOrder
	err := s.read(ctx, "查询采购订单", func(ctx context.Context) error {
		var err error
		po, err = s.repos.PO.FindByID(ctx, id)
		return notFoundOr(err, "采购订单", id)
	})
	return po, err
}

// CreatePO 创建采购订单。订单头、行项、请购关联在同一事务内写入，任一失败全部回滚
func (s *ProcurementService) CreatePO(ctx context.Context, userID string, in *CreatePORequest) (*entity.PurchaseOrder, error) {
	orderType, paymentType, err := validatePOHeader(in)
	if err != nil {
		return nil, err
	}

	po := &entity.PurchaseOrder{
		ID:          newID(),
		ReferenceNo: strings.TrimSpace(in.ReferenceNo),
		OrderType:   orderType,
		PaymentType: paymentType,
		TotalCost:   in.TotalCost,
		Remarks:     in.Remarks,
		SupplierID:  in.SupplierID,
		Status:      entity.POStatusPending,
		CreatedBy:   userID,
	}

	err = s.inTx(ctx, "创建采购订单", func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := tx.Supplier.FindByID(ctx, in.SupplierID); err != nil {
			return mustExist(err, "supplier_id", "供应商", in.SupplierID)
		}

		requisitions, err := loadOrderableRequisitions(ctx, tx, in.RequisitionIDs, orderType)
		if err != nil {
			return err
		}

		if po.ReferenceNo == "" {
			if po.ReferenceNo, err = tx.PO.GenerateCode(ctx); err != nil {
				return fmt.Errorf("生成PO编码失败: %w", err)
			}
		} else if taken, err := tx.PO.ReferenceExists(ctx, po.ReferenceNo); err != nil {
			return err
		} else if taken {
			return &ConflictError{Message: "采购订单编号已存在: " + po.ReferenceNo}
		}

		if err := tx.PO.Create(ctx, po); err != nil {
			return err
		}

		var lineTotal decimal.Decimal
		if orderType == entity.OrderTypeItems {
			lineTotal, err = insertOrderItems(ctx, tx, po, requisitions, in.Items)
		} else {
			lineTotal, err = insertOrderServices(ctx, tx, po, requisitions, in.Services)
		}
		if err != nil {
			return err
		}

		if po.TotalCost.IsZero() {
			po.TotalCost = lineTotal
			if err := tx.PO.Update(ctx, po); err != nil {
				return err
			}
		}

		if err := markFullyOrdered(ctx, tx, in.RequisitionIDs); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditPOCreated, userID, po.ID,
			fmt.Sprintf("创建采购订单 %s，金额 %s", po.ReferenceNo, po.TotalCost.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("po_id", po.ID),
		zap.String("reference_no", po.ReferenceNo),
		zap.Int("requisitions", len(in.RequisitionIDs)),
	)
	return s.GetPO(ctx, po.ID)
}

func validatePOHeader(in *CreatePORequest) (orderType, paymentType string, err error) {
	var ok bool
	if orderType, ok = entity.MatchStatus(orderTypes, in.OrderType); !ok {
		return "", "", invalid("order_type", "必须是 Items 或 Services")
	}
	if paymentType, ok = entity.MatchStatus(paymentTypes, in.PaymentType); !ok {
		return "", "", invalid("payment_type", "必须是 Cash、Disbursement 或 Store Credit")
	}
	if len(in.RequisitionIDs) == 0 {
		return "", "", invalid("requisition_ids", "至少关联一张请购单")
	}
	if orderType == entity.OrderTypeItems {
		if len(in.Items) == 0 {
			return "", "", invalid("items", "物料订单至少需要一行")
		}
		if len(in.Services) > 0 {
			return "", "", invalid("services", "物料订单不能包含服务行")
		}
	} else {
		if len(in.Services) == 0 {
			return "", "", invalid("services", "服务订单至少需要一行")
		}
		if len(in.Items) > 0 {
			return "", "", invalid("items", "服务订单不能包含物料行")
		}
	}
	if in.TotalCost.IsNegative() {
		return "", "", invalid("total_cost", "总额不能为负数")
	}
	return orderType, paymentType, nil
}

// markFullyOrdered 请购单所有可下单行都已关联订单行时才置为 Ordered，其余保持原状态等待后续下单
func markFullyOrdered(ctx context.Context, tx *repository.Repositories, ids []string) error {
	for _, id := range ids {
		remaining, err := tx.Requisition.UnorderedLineCount(ctx, id)
		if err != nil {
			return err
		}
		if remaining > 0 {
			continue
		}
		if err := tx.Requisition.UpdateStatus(ctx, id, entity.RequisitionStatusOrdered); err != nil {
			return err
		}
	}
	return nil
}

// loadOrderableRequisitions 校验请购单存在、类型一致且已批准
func loadOrderableRequisitions(ctx context.Context, tx *repository.Repositories, ids []string, orderType string) (map[string]entity.Requisition, error) {
	found, err := tx.Requisition.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]entity.Requisition, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	wantType := entity.RequisitionTypeItems
	if orderType == entity.OrderTypeServices {
		wantType = entity.RequisitionTypeServices
	}
	for i, id := range ids {
		field := fmt.Sprintf("requisition_ids[%d]", i)
		r, ok := byID[id]
		if !ok {
			return nil, invalid(field, "请购单不存在: %s", id)
		}
		if r.Type != wantType {
			return nil, invalid(field, "请购单类型 %s 与订单类型 %s 不一致", r.Type, orderType)
		}
		if !entity.IsOneOf(r.Status, entity.RequisitionStatusApproved, entity.RequisitionStatusPartiallyApproved) {
			return nil, invalid(field, "请购单状态 %s 不能下单", r.Status)
		}
	}
	return byID, nil
}

func insertOrderItems(ctx context.Context, tx *repository.Repositories, po *entity.PurchaseOrder, requisitions map[string]entity.Requisition, lines []POItemInput) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[string]bool, len(lines))

	for i, line := range lines {
		field := fmt.Sprintf("items[%d]", i)
		if line.RequisitionItemID == "" {
			return total, invalid(field+".requisition_item_id", "不能为空")
		}
		if seen[line.RequisitionItemID] {
			return total, invalid(field+".requisition_item_id", "同一请购行不能重复下单")
		}
		seen[line.RequisitionItemID] = true
		if line.Quantity <= 0 {
			return total, invalid(field+".quantity", "数量必须大于0")
		}

		reqItem, err := tx.Requisition.FindItemByID(ctx, line.RequisitionItemID)
		if err != nil {
			return total, mustExist(err, field+".requisition_item_id", "请购物料行", line.RequisitionItemID)
		}
		if _, ok := requisitions[reqItem.RequisitionID]; !ok {
			return total, invalid(field+".requisition_item_id", "请购行不属于所列请购单")
		}
		if line.Quantity > reqItem.ApprovedQuantity {
			return total, invalid(field+".quantity", "下单数量 %d 超过批准数量 %d", line.Quantity, reqItem.ApprovedQuantity)
		}
		linked, err := tx.PO.ItemLinked(ctx, reqItem.ID)
		if err != nil {
			return total, err
		}
		if linked {
			return total, &ConflictError{Message: fmt.Sprintf("请购行 %s 已下过单", reqItem.ID)}
		}

		price := decimal.Zero
		if line.UnitPrice != nil {
			if line.UnitPrice.IsNegative() {
				return total, invalid(field+".unit_price", "单价不能为负数")
			}
			price = *line.UnitPrice
		} else {
			item, err := tx.Catalog.FindItemByID(ctx, reqItem.ItemID)
			if err != nil {
				return total, err
			}
			price = item.UnitPrice
		}

		orderItem := &entity.OrderItem{
			ID:        newID(),
			POID:      po.ID,
			ItemID:    reqItem.ItemID,
			Quantity:  line.Quantity,
			UnitPrice: price,
			Version:   1,
			SortOrder: i + 1,
		}
		if err := tx.PO.CreateItem(ctx, orderItem); err != nil {
			return total, err
		}
		if err := tx.PO.LinkItem(ctx, &entity.RequisitionOrderItem{
			ID:                newID(),
			RequisitionItemID: reqItem.ID,
			OrderItemID:       orderItem.ID,
		}); err != nil {
			return total, err
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total, nil
}

func insertOrderServices(ctx context.Context, tx *repository.Repositories, po *entity.PurchaseOrder, requisitions map[string]entity.Requisition, lines []POServiceInput) (decimal.Decimal, error) {
	total := decimal.Zero
	seen := make(map[string]bool, len(lines))

	for i, line := range lines {
		field := fmt.Sprintf("services[%d]", i)
		if line.RequisitionServiceID == "" {
			return total, invalid(field+".requisition_service_id", "不能为空")
		}
		if seen[line.RequisitionServiceID] {
			return total, invalid(field+".requisition_service_id", "同一请购行不能重复下单")
		}
		seen[line.RequisitionServiceID] = true

		reqSvc, err := tx.Requisition.FindServiceByID(ctx, line.RequisitionServiceID)
		if err != nil {
			return total, mustExist(err, field+".requisition_service_id", "请购服务行", line.RequisitionServiceID)
		}
		if _, ok := requisitions[reqSvc.RequisitionID]; !ok {
			return total, invalid(field+".requisition_service_id", "请购行不属于所列请购单")
		}
		linked, err := tx.PO.ServiceLinked(ctx, reqSvc.ID)
		if err != nil {
			return total, err
		}
		if linked {
			return total, &ConflictError{Message: fmt.Sprintf("请购行 %s 已下过单", reqSvc.ID)}
		}

		price := reqSvc.UnitPrice
		if line.UnitPrice != nil {
			if line.UnitPrice.IsNegative() {
				return total, invalid(field+".unit_price", "单价不能为负数")
			}
			price = *line.UnitPrice
		}

		orderSvc := &entity.OrderService{
			ID:        newID(),
			POID:      po.ID,
			ServiceID: reqSvc.ServiceID,
			UnitPrice: price,
			Version:   1,
			SortOrder: i + 1,
		}
		if err := tx.PO.CreateService(ctx, orderSvc); err != nil {
			return total, err
		}
		if err := tx.PO.LinkService(ctx, &entity.RequisitionOrderService{
			ID:                   newID(),
			RequisitionServiceID: reqSvc.ID,
			OrderServiceID:       orderSvc.ID,
		}); err != nil {
			return total, err
		}
		total = total.Add(ServiceLineCost(price, reqSvc.Hours))
	}
	return total, nil
}

// ReviewPORequest 审批/驳回请求
type ReviewPORequest struct {
	Remarks string `json:"remarks"`
}

// ApprovePO 审批通过
func (s *ProcurementService) ApprovePO(ctx context.Context, userID, id string, in *ReviewPORequest) (*entity.PurchaseOrder, error) {
	return s.review(ctx, userID, id, in, entity.POStatusApproved, entity.AuditPOApproved)
}

// RejectPO 驳回
func (s *ProcurementService) RejectPO(ctx context.Context, userID, id string, in *ReviewPORequest) (*entity.PurchaseOrder, error) {
	return s.review(ctx, userID, id, in, entity.POStatusRejected, entity.AuditPORejected)
}

func (s *ProcurementService) review(ctx context.Context, userID, id string, in *ReviewPORequest, status string, action entity.AuditAction) (*entity.PurchaseOrder, error) {
	err := s.inTx(ctx, action.Description(), func(ctx context.Context, tx *repository.Repositories) error {
		po, err := tx.PO.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "采购订单", id)
		}
		if po.Status != entity.POStatusPending {
			return &ConflictError{Message: fmt.Sprintf("当前状态 %s 不允许审批", po.Status)}
		}

		now := time.Now()
		po.Status = status
		po.ApprovedBy = &userID
		po.ApprovedAt = &now
		if in != nil && in.Remarks != "" {
			po.Remarks = in.Remarks
		}
		if err := tx.PO.Update(ctx, po); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, action, userID, po.ID, fmt.Sprintf("%s %s", action.Description(), po.ReferenceNo))
	})
	if err != nil {
		return nil, err
	}
	return s.GetPO(ctx, id)
}
