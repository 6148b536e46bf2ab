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

// DeliveryService 到货工作流
type DeliveryService struct {
	*base
	photos PhotoStore
}

// DeliveryItemInput 到货物料行
type DeliveryItemInput struct {
	ItemID            string           `json:"item_id"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	OriginalUnitPrice *decimal.Decimal `json:"original_unit_price"`
}

// DeliveryServiceInput 到货服务行
type DeliveryServiceInput struct {
	ServiceID string          `json:"service_id"`
	Hours     decimal.Decimal `json:"hours"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateDeliveryRequest 登记到货请求
type CreateDeliveryRequest struct {
	ReferenceNo  string                 `json:"reference_no"`
	DeliveryType string                 `json:"delivery_type" binding:"required"`
	DeliveryDate *time.Time             `json:"delivery_date"`
	TotalCost    decimal.Decimal        `json:"total_cost"`
	ReceiptNo    string                 `json:"receipt_no"`
	ReceiptPhoto string                 `json:"receipt_photo"`
	Status       string                 `json:"status"`
	Remarks      string                 `json:"remarks"`
	POID         *string                `json:"po_id"`
	ReturnID     *string                `json:"return_id"`
	ReworkID     *string                `json:"rework_id"`
	Items        []DeliveryItemInput    `json:"items"`
	Services     []DeliveryServiceInput `json:"services"`
}

// ListDeliveries 获取到货列表
func (s *DeliveryService) ListDeliveries(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Delivery, int64, error) {
	var items []entity.Delivery
	var total int64
	err := s.read(ctx, "查询到货", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Delivery.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetDelivery 获取到货详情
func (s *DeliveryService) GetDelivery(ctx context.Context, id string) (*entity.Delivery, error) {
	var d *entity.Delivery
	err := s.read(ctx, "查询到货", func(ctx context.Context) error {
		var err error
		d, err = s.repos.Delivery.FindByID(ctx, id)
		return notFoundOr(err, "到货记录", id)
	})
	return d, err
}

// CreateDelivery 登记到货。
// 事务内依次：写到货头 → 写行项并入库 → PO置为已到货 → 退货/返工置为已到货并回填新到货ID → 审计。
// 回执照片事务前解码、提交后保存并回填路径，失败只记日志，路径置空。
func (s *DeliveryService) CreateDelivery(ctx context.Context, userID string, in *CreateDeliveryRequest) (*entity.Delivery, error) {
	deliveryType, status, err := s.validateDelivery(in)
	if err != nil {
		return nil, err
	}

	d := &entity.Delivery{
		ID:           newID(),
		ReferenceNo:  strings.TrimSpace(in.ReferenceNo),
		DeliveryType: deliveryType,
		DeliveryDate: time.Now(),
		ReceiptNo:    in.ReceiptNo,
		Status:       status,
		Remarks:      in.Remarks,
		POID:         nonEmpty(in.POID),
		ReturnID:     nonEmpty(in.ReturnID),
		ReworkID:     nonEmpty(in.ReworkID),
		CreatedBy:    userID,
	}
	if in.DeliveryDate != nil {
		d.DeliveryDate = *in.DeliveryDate
	}
	d.TotalCost = DeliveryTotal(in.Items, in.Services)

	var photo *ReceiptPhoto
	if in.ReceiptPhoto != "" {
		if photo, err = DecodeReceiptPhoto(in.ReceiptPhoto); err != nil {
			s.logger.Warn("receipt photo decode failed, delivery recorded without photo", zap.Error(err))
			photo = nil
		}
	}

	err = s.inTx(ctx, "登记到货", func(ctx context.Context, tx *repository.Repositories) error {
		if err := checkDeliverySource(ctx, tx, d); err != nil {
			return err
		}

		if d.ReferenceNo == "" {
			code, err := tx.Delivery.GenerateCode(ctx)
			if err != nil {
				return fmt.Errorf("生成到货编码失败: %w", err)
			}
			d.ReferenceNo = code
		} else if taken, err := tx.Delivery.ReferenceExists(ctx, d.ReferenceNo); err != nil {
			return err
		} else if taken {
			return &ConflictError{Message: "到货编号已存在: " + d.ReferenceNo}
		}

		// 1. 到货头
		if err := tx.Delivery.Create(ctx, d); err != nil {
			return err
		}

		// 2. 行项，物料同时入库
		if err := insertDeliveryLines(ctx, tx, d, userID, in); err != nil {
			return err
		}

		// 3. PO → Delivered，请购单全部行都已下单且所在PO都已到货时才置为 Delivered
		if d.POID != nil {
			if err := tx.PO.UpdateStatus(ctx, *d.POID, entity.POStatusDelivered); err != nil {
				return err
			}
			if err := markFullyDelivered(ctx, tx, *d.POID); err != nil {
				return err
			}
		}

		// 4. 退货补货
		if d.DeliveryType == entity.DeliveryTypeItemReturn {
			if err := tx.Return.MarkDelivered(ctx, *d.ReturnID, d.ID); err != nil {
				return err
			}
		}

		// 5. 返工到货
		if d.DeliveryType == entity.DeliveryTypeServiceRework {
			if err := tx.Rework.MarkDelivered(ctx, *d.ReworkID, d.ID); err != nil {
				return err
			}
		}

		// 6. 审计
		return tx.AuditLog.Record(ctx, entity.AuditDeliveryRecorded, userID, d.ID,
			fmt.Sprintf("登记到货 %s（%s），金额 %s", d.ReferenceNo, d.DeliveryType, d.TotalCost.StringFixed(2)))
	})
	if err != nil {
		return nil, err
	}

	if photo != nil {
		d.ReceiptPhoto = s.storeReceiptPhoto(ctx, d.ID, photo)
	}

	s.logger.Info("delivery recorded",
		zap.String("delivery_id", d.ID),
		zap.String("delivery_type", d.DeliveryType),
		zap.Bool("has_photo", d.ReceiptPhoto != nil),
	)
	return s.GetDelivery(ctx, d.ID)
}

func (s *DeliveryService) validateDelivery(in *CreateDeliveryRequest) (deliveryType, status string, err error) {
	var ok bool
	if deliveryType, ok = entity.MatchStatus(entity.DeliveryTypeTokens, in.DeliveryType); !ok {
		return "", "", invalid("delivery_type", "未知到货类型: %s", in.DeliveryType)
	}

	status = entity.DeliveryStatusPending
	if strings.TrimSpace(in.Status) != "" {
		if status, err = s.normalizeStatus(entity.DeliveryStatusTokens, "status", in.Status); err != nil {
			return "", "", err
		}
	}

	poID, returnID, reworkID := nonEmpty(in.POID), nonEmpty(in.ReturnID), nonEmpty(in.ReworkID)
	switch deliveryType {
	case entity.DeliveryTypeItemPurchase, entity.DeliveryTypeServicePurchase:
		if poID == nil {
			return "", "", invalid("po_id", "%s 必须指定采购订单", deliveryType)
		}
		if returnID != nil || reworkID != nil {
			return "", "", invalid("po_id", "采购到货不能同时关联退货或返工")
		}
	case entity.DeliveryTypeItemReturn:
		if returnID == nil {
			return "", "", invalid("return_id", "退货补货必须指定退货单")
		}
		if poID != nil || reworkID != nil {
			return "", "", invalid("return_id", "退货补货不能同时关联订单或返工")
		}
	case entity.DeliveryTypeServiceRework:
		if reworkID == nil {
			return "", "", invalid("rework_id", "返工到货必须指定返工单")
		}
		if poID != nil || returnID != nil {
			return "", "", invalid("rework_id", "返工到货不能同时关联订单或退货")
		}
	}

	if len(in.Items) == 0 && len(in.Services) == 0 {
		return "", "", invalid("items", "至少需要一行物料或服务")
	}
	for i, line := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if line.ItemID == "" {
			return "", "", invalid(field+".item_id", "不能为空")
		}
		if line.Quantity <= 0 {
			return "", "", invalid(field+".quantity", "数量必须大于0")
		}
		if line.UnitPrice.IsNegative() {
			return "", "", invalid(field+".unit_price", "单价不能为负数")
		}
	}
	for i, line := range in.Services {
		field := fmt.Sprintf("services[%d]", i)
		if line.ServiceID == "" {
			return "", "", invalid(field+".service_id", "不能为空")
		}
		if line.UnitPrice.IsNegative() {
			return "", "", invalid(field+".unit_price", "单价不能为负数")
		}
		if line.Hours.IsNegative() {
			return "", "", invalid(field+".hours", "工时不能为负数")
		}
	}
	return deliveryType, status, nil
}

// checkDeliverySource 校验来源单据存在且状态允许到货
func checkDeliverySource(ctx context.Context, tx *repository.Repositories, d *entity.Delivery) error {
	switch d.DeliveryType {
	case entity.DeliveryTypeItemPurchase, entity.DeliveryTypeServicePurchase:
		po, err := tx.PO.FindByID(ctx, *d.POID)
		if err != nil {
			return mustExist(err, "po_id", "采购订单", *d.POID)
		}
		if entity.IsOneOf(po.Status, entity.POStatusRejected, entity.POStatusCancelled) {
			return &ConflictError{Message: fmt.Sprintf("采购订单状态 %s 不能登记到货", po.Status)}
		}
		wantOrderType := entity.OrderTypeItems
		if d.DeliveryType == entity.DeliveryTypeServicePurchase {
			wantOrderType = entity.OrderTypeServices
		}
		if po.OrderType != wantOrderType {
			return invalid("delivery_type", "采购订单类型为 %s，与到货类型 %s 不符", po.OrderType, d.DeliveryType)
		}
	case entity.DeliveryTypeItemReturn:
		ret, err := tx.Return.FindByID(ctx, *d.ReturnID)
		if err != nil {
			return mustExist(err, "return_id", "退货单", *d.ReturnID)
		}
		if !entity.IsOneOf(ret.Status, entity.ReturnStatusPending, entity.ReturnStatusApproved) {
			return &ConflictError{Message: fmt.Sprintf("退货单状态 %s 不能登记补货", ret.Status)}
		}
	case entity.DeliveryTypeServiceRework:
		rw, err := tx.Rework.FindByID(ctx, *d.ReworkID)
		if err != nil {
			return mustExist(err, "rework_id", "返工单", *d.ReworkID)
		}
		if !entity.IsOneOf(rw.Status, entity.ReworkStatusPending, entity.ReworkStatusApproved) {
			return &ConflictError{Message: fmt.Sprintf("返工单状态 %s 不能登记到货", rw.Status)}
		}
	}
	return nil
}

func insertDeliveryLines(ctx context.Context, tx *repository.Repositories, d *entity.Delivery, userID string, in *CreateDeliveryRequest) error {
	for i, line := range in.Items {
		item, err := tx.Catalog.FindItemByID(ctx, line.ItemID)
		if err != nil {
			return mustExist(err, fmt.Sprintf("items[%d].item_id", i), "物料", line.ItemID)
		}
		original := item.UnitPrice
		if line.OriginalUnitPrice != nil {
			original = *line.OriginalUnitPrice
		}
		row := &entity.DeliveryItem{
			ID:                newID(),
			DeliveryID:        d.ID,
			ItemID:            item.ID,
			Quantity:          line.Quantity,
			UnitPrice:         line.UnitPrice,
			OriginalUnitPrice: original,
		}
		if err := tx.Delivery.CreateItem(ctx, row); err != nil {
			return err
		}
		if err := tx.Catalog.AdjustStock(ctx, item.ID, line.Quantity); err != nil {
			return err
		}
		if err := tx.Catalog.CreateStockMovement(ctx, &entity.StockMovement{
			ID:         newID(),
			ItemID:     item.ID,
			Quantity:   line.Quantity,
			SourceType: entity.StockSourceDelivery,
			SourceID:   d.ID,
			CreatedBy:  userID,
		}); err != nil {
			return err
		}
	}

	for i, line := range in.Services {
		svc, err := tx.Catalog.FindServiceByID(ctx, line.ServiceID)
		if err != nil {
			return mustExist(err, fmt.Sprintf("services[%d].service_id", i), "服务", line.ServiceID)
		}
		row := &entity.DeliveryService{
			ID:         newID(),
			DeliveryID: d.ID,
			ServiceID:  svc.ID,
			Hours:      line.Hours,
			UnitPrice:  line.UnitPrice,
		}
		if err := tx.Delivery.CreateService(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// DeliveryTotal 到货总额 = Σ物料数量×单价 + Σ服务行金额
func DeliveryTotal(items []DeliveryItemInput, services []DeliveryServiceInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	for _, svc := range services {
		total = total.Add(ServiceLineCost(svc.UnitPrice, svc.Hours))
	}
	return total
}

// ServiceLineCost 服务行金额：有工时按 单价×工时，未填工时按单价计一次。
// 请购、下单、到货三处共用同一口径
func ServiceLineCost(price, hours decimal.Decimal) decimal.Decimal {
	if hours.IsPositive() {
		return price.Mul(hours)
	}
	return price
}

// storeReceiptPhoto 保存已解码的回执照片并回填到货记录；任何失败只记警告并返回nil
func (s *DeliveryService) storeReceiptPhoto(ctx context.Context, deliveryID string, photo *ReceiptPhoto) *string {
	photoCtx, cancel := context.WithTimeout(ctx, s.opts.PhotoTimeout)
	defer cancel()

	p, err := s.photos.Save(photoCtx, photoObjectName(photo.Ext, time.Now()), photo.ContentType, photo.Data)
	if err != nil {
		s.logger.Warn("receipt photo store failed, delivery recorded without photo",
			zap.String("delivery_id", deliveryID), zap.Error(err))
		return nil
	}

	dbCtx, cancelDB := s.withTimeout(ctx)
	defer cancelDB()
	if err := s.repos.Delivery.UpdateReceiptPhoto(dbCtx, deliveryID, p); err != nil {
		s.logger.Warn("receipt photo path not saved",
			zap.String("delivery_id", deliveryID), zap.String("path", p), zap.Error(err))
		return nil
	}
	return &p
}

// markFullyDelivered PO到货后，逐个检查其关联请购单是否已全部下单且全部到货
func markFullyDelivered(ctx context.Context, tx *repository.Repositories, poID string) error {
	reqIDs, err := tx.Requisition.IDsByOrder(ctx, poID)
	if err != nil {
		return err
	}
	for _, id := range reqIDs {
		unordered, err := tx.Requisition.UnorderedLineCount(ctx, id)
		if err != nil {
			return err
		}
		open, err := tx.Requisition.OpenOrderLineCount(ctx, id)
		if err != nil {
			return err
		}
		if unordered > 0 || open > 0 {
			continue
		}
		if err := tx.Requisition.UpdateStatus(ctx, id, entity.RequisitionStatusDelivered); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDeliveryStatusRequest 变更到货状态请求
type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus 变更到货状态
func (s *DeliveryService) UpdateStatus(ctx context.Context, userID, id string, in *UpdateDeliveryStatusRequest) (*entity.Delivery, error) {
	status, err := s.normalizeStatus(entity.DeliveryStatusTokens, "status", in.Status)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "变更到货状态", func(ctx context.Context, tx *repository.Repositories) error {
		d, err := tx.Delivery.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "到货记录", id)
		}
		if d.Status == entity.DeliveryStatusCancelled && status != entity.DeliveryStatusCancelled {
			return &ConflictError{Message: "已取消的到货不能再变更状态"}
		}
		if err := tx.Delivery.UpdateStatus(ctx, d.ID, status); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditDeliveryStatusChanged, userID, d.ID,
			fmt.Sprintf("到货 %s 状态 %s → %s", d.ReferenceNo, d.Status, status))
	})
	if err != nil {
		return nil, err
	}
	return s.GetDelivery(ctx, id)
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
