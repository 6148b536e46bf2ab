package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService 退货工作流
type ReturnService struct {
	*base
	refs *ReferenceGenerator
}

// ReturnItemInput 退货行
type ReturnItemInput struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// CreateReturnRequest 创建退货单请求
type CreateReturnRequest struct {
	DeliveryID string            `json:"delivery_id" binding:"required"`
	Remarks    string            `json:"remarks"`
	Items      []ReturnItemInput `json:"items"`
}

// ReturnableItem 到货上可退的物料行
type ReturnableItem struct {
	DeliveryItemID   string          `json:"delivery_item_id"`
	ItemID           string          `json:"item_id"`
	ItemCode         string          `json:"item_code"`
	ItemName         string          `json:"item_name"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Quantity         int             `json:"quantity"`
	ReturnedQuantity int             `json:"returned_quantity"`
}

// ListReturns 获取退货单列表
func (s *ReturnService) ListReturns(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ReturnRequest, int64, error) {
	var items []entity.ReturnRequest
	var total int64
	err := s.read(ctx, "查询退货单", func(ctx context.Context) error {
		var err error
		items, total, err = s.repos.Return.FindAll(ctx, page, pageSize, filters)
		return err
	})
	return items, total, err
}

// GetReturn 获取退货单详情
func (s *ReturnService) GetReturn(ctx context.Context, id string) (*entity.ReturnRequest, error) {
	var ret *entity.ReturnRequest
	err := s.read(ctx, "查询退货单", func(ctx context.Context) error {
		var err error
		ret, err = s.repos.Return.FindByID(ctx, id)
		return notFoundOr(err, "退货单", id)
	})
	return ret, err
}

// AvailableItems 到货上的物料行（供选择退货数量），只读
func (s *ReturnService) AvailableItems(ctx context.Context, deliveryID string) ([]ReturnableItem, error) {
	var out []ReturnableItem
	err := s.read(ctx, "查询可退物料", func(ctx context.Context) error {
		if _, err := s.repos.Delivery.FindByID(ctx, deliveryID); err != nil {
			return notFoundOr(err, "到货记录", deliveryID)
		}
		lines, err := s.repos.Delivery.FindItems(ctx, deliveryID)
		if err != nil {
			return err
		}
		out = make([]ReturnableItem, 0, len(lines))
		for _, l := range lines {
			returned, err := s.repos.Delivery.ReturnedQuantity(ctx, deliveryID, l.ItemID)
			if err != nil {
				return err
			}
			ri := ReturnableItem{
				DeliveryItemID:   l.ID,
				ItemID:           l.ItemID,
				UnitPrice:        l.UnitPrice,
				Quantity:         l.Quantity,
				ReturnedQuantity: returned,
			}
			if l.Item != nil {
				ri.ItemCode = l.Item.Code
				ri.ItemName = l.Item.Name
			}
			out = append(out, ri)
		}
		return nil
	})
	return out, err
}

// CreateReturn 创建退货单。表头、退货行、到货关联、出库、审计在同一事务内
func (s *ReturnService) CreateReturn(ctx context.Context, userID string, in *CreateReturnRequest) (*entity.ReturnRequest, error) {
	if in.DeliveryID == "" {
		return nil, invalid("delivery_id", "不能为空")
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "至少需要一行退货物料")
	}
	requested := make(map[string]int, len(in.Items))
	for i, line := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if line.ItemID == "" {
			return nil, invalid(field+".item_id", "不能为空")
		}
		if line.Quantity < 1 {
			return nil, invalid(field+".quantity", "数量至少为1")
		}
		requested[line.ItemID] += line.Quantity
	}

	ret := &entity.ReturnRequest{
		ID:        newID(),
		Remarks:   in.Remarks,
		Status:    entity.ReturnStatusPending,
		CreatedBy: userID,
	}

	err := s.inTx(ctx, "创建退货单", func(ctx context.Context, tx *repository.Repositories) error {
		if _, err := tx.Delivery.FindByID(ctx, in.DeliveryID); err != nil {
			return mustExist(err, "delivery_id", "到货记录", in.DeliveryID)
		}
		if err := checkReturnable(ctx, tx, in.DeliveryID, requested); err != nil {
			return err
		}

		ref, err := s.refs.Generate(ctx, entity.ReturnReferencePrefix, tx.Return.ReferenceExists)
		if err != nil {
			return err
		}
		ret.ReferenceNo = ref

		if err := tx.Return.Create(ctx, ret); err != nil {
			return err
		}
		for _, line := range in.Items {
			row := &entity.ReturnItem{
				ID:       newID(),
				ReturnID: ret.ID,
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
			}
			if err := tx.Return.CreateItem(ctx, row); err != nil {
				return err
			}
			if err := tx.Catalog.AdjustStock(ctx, line.ItemID, -line.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &ConflictError{Message: fmt.Sprintf("物料 %s 库存不足，无法退货 %d", line.ItemID, line.Quantity)}
				}
				return err
			}
			if err := tx.Catalog.CreateStockMovement(ctx, &entity.StockMovement{
				ID:         newID(),
				ItemID:     line.ItemID,
				Quantity:   -line.Quantity,
				SourceType: entity.StockSourceReturn,
				SourceID:   ret.ID,
				CreatedBy:  userID,
			}); err != nil {
				return err
			}
		}
		if err := tx.Return.CreateDeliveryLink(ctx, &entity.ReturnDelivery{
			ID:            newID(),
			ReturnID:      ret.ID,
			OldDeliveryID: in.DeliveryID,
		}); err != nil {
			return err
		}
		return tx.AuditLog.Record(ctx, entity.AuditReturnCreated, userID, ret.ID,
			fmt.Sprintf("创建退货单 %s", ret.ReferenceNo))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("return created",
		zap.String("return_id", ret.ID),
		zap.String("reference_no", ret.ReferenceNo),
		zap.String("delivery_id", in.DeliveryID),
	)
	return s.GetReturn(ctx, ret.ID)
}

// checkReturnable 退货物料必须在原到货上，且累计退货数不超过到货数
func checkReturnable(ctx context.Context, tx *repository.Repositories, deliveryID string, requested map[string]int) error {
	lines, err := tx.Delivery.FindItems(ctx, deliveryID)
	if err != nil {
		return err
	}
	delivered := make(map[string]int, len(lines))
	for _, l := range lines {
		delivered[l.ItemID] += l.Quantity
	}

	for itemID, qty := range requested {
		have, ok := delivered[itemID]
		if !ok {
			return invalid("items", "物料 %s 不在该到货记录上", itemID)
		}
		returned, err := tx.Delivery.ReturnedQuantity(ctx, deliveryID, itemID)
		if err != nil {
			return err
		}
		if returned+qty > have {
			return invalid("items", "物料 %s 可退数量 %d，申请 %d", itemID, have-returned, qty)
		}
	}
	return nil
}
