package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTitleStatus(t *testing.T) {
	assert.Equal(t, "Awaiting Pickup", TitleStatus("awaiting_pickup"))
	assert.Equal(t, "On Hold", TitleStatus("ON HOLD"))
	assert.Equal(t, "Pending", TitleStatus(" pending "))
}

func TestNormalizeStatus(t *testing.T) {
	strict := &base{opts: Options{}}
	loose := &base{opts: Options{AllowCustomStatus: true}}

	got, err := strict.normalizeStatus(entity.RequisitionStatusTokens, "status", "partially_approved")
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusPartiallyApproved, got)

	got, err = strict.normalizeStatus(entity.RequisitionStatusTokens, "status", "Awaiting Pickup")
	require.NoError(t, err)
	assert.Equal(t, entity.RequisitionStatusAwaitingPickup, got)

	_, err = strict.normalizeStatus(entity.RequisitionStatusTokens, "status", "on_hold")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)

	got, err = loose.normalizeStatus(entity.RequisitionStatusTokens, "status", "on_hold")
	require.NoError(t, err)
	assert.Equal(t, "On Hold", got)

	_, err = loose.normalizeStatus(entity.RequisitionStatusTokens, "status", "  ")
	assert.ErrorAs(t, err, &ve)
}

func TestRequisitionTransitions(t *testing.T) {
	tbl := entity.ValidRequisitionTransitions
	assert.True(t, entity.CanTransition(tbl, entity.RequisitionStatusPending, entity.RequisitionStatusApproved))
	assert.True(t, entity.CanTransition(tbl, entity.RequisitionStatusOrdered, entity.RequisitionStatusDelivered))
	assert.False(t, entity.CanTransition(tbl, entity.RequisitionStatusDelivered, entity.RequisitionStatusPending))
	assert.False(t, entity.CanTransition(tbl, entity.RequisitionStatusCompleted, entity.RequisitionStatusApproved))
}

func TestDeriveAdjustedStatus(t *testing.T) {
	line := func(qty, approved int) entity.RequisitionItem {
		return entity.RequisitionItem{Quantity: qty, ApprovedQuantity: approved}
	}
	tests := []struct {
		name  string
		lines []entity.RequisitionItem
		want  string
	}{
		{"all full", []entity.RequisitionItem{line(5, 5), line(2, 2)}, entity.RequisitionStatusApproved},
		{"all zero", []entity.RequisitionItem{line(5, 0), line(2, 0)}, entity.RequisitionStatusRejected},
		{"partial", []entity.RequisitionItem{line(5, 3)}, entity.RequisitionStatusPartiallyApproved},
		{"mixed", []entity.RequisitionItem{line(5, 5), line(2, 0)}, entity.RequisitionStatusPartiallyApproved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveAdjustedStatus(tt.lines))
		})
	}
}

func TestDeliveryTotal(t *testing.T) {
	items := []DeliveryItemInput{
		{ItemID: "a", Quantity: 3, UnitPrice: decimal.NewFromInt(10)},
		{ItemID: "b", Quantity: 2, UnitPrice: decimal.RequireFromString("2.5")},
	}
	services := []DeliveryServiceInput{
		{ServiceID: "s", Hours: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(100)},
	}
	// 30 + 5 + 100×4
	assert.True(t, decimal.NewFromInt(435).Equal(DeliveryTotal(items, services)))
	assert.True(t, DeliveryTotal(nil, nil).IsZero())

	noHours := []DeliveryServiceInput{{ServiceID: "s", UnitPrice: decimal.NewFromInt(80)}}
	assert.True(t, decimal.NewFromInt(80).Equal(DeliveryTotal(nil, noHours)))
}

func TestServiceLineCost(t *testing.T) {
	price := decimal.NewFromInt(50)
	assert.True(t, decimal.NewFromInt(100).Equal(ServiceLineCost(price, decimal.NewFromInt(2))))
	assert.True(t, decimal.RequireFromString("75").Equal(ServiceLineCost(price, decimal.RequireFromString("1.5"))))
	assert.True(t, price.Equal(ServiceLineCost(price, decimal.Zero)))
}

func TestOverlayReworkStatus(t *testing.T) {
	lines := []entity.DeliveryService{
		{ID: "ds1", ServiceID: "svc-1", UnitPrice: decimal.NewFromInt(50), Service: &entity.Service{Name: "Painting"}},
		{ID: "ds2", ServiceID: "svc-2", UnitPrice: decimal.NewFromInt(80)},
	}
	active := []repository.ServiceReworkStatus{{ServiceID: "svc-1", Status: entity.ReworkStatusPending}}

	out := OverlayReworkStatus(lines, active)
	require.Len(t, out, 2)

	assert.Equal(t, "Painting", out[0].ServiceName)
	require.NotNil(t, out[0].ReworkStatus)
	assert.Equal(t, entity.ReworkStatusPending, *out[0].ReworkStatus)
	assert.False(t, out[0].Eligible)

	assert.Nil(t, out[1].ReworkStatus)
	assert.True(t, out[1].Eligible)
}

func TestAuditActions(t *testing.T) {
	svc := &AuditService{}
	actions := svc.Actions()
	require.NotEmpty(t, actions)

	for i := 1; i < len(actions); i++ {
		assert.Less(t, actions[i-1].Code, actions[i].Code)
	}
	assert.Equal(t, 1, actions[0].Code)
	assert.Equal(t, "requisition_created", actions[0].Name)

	codes := map[int]bool{}
	for _, a := range actions {
		codes[a.Code] = true
		assert.NotEmpty(t, a.Description, a.Name)
		assert.NotEmpty(t, a.EntityType, a.Name)
	}
	for _, c := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12} {
		assert.True(t, codes[c], "missing audit code %d", c)
	}
	assert.False(t, entity.AuditAction(99).Valid())
}

func TestBuildPOWorkbook(t *testing.T) {
	orders := []entity.PurchaseOrder{
		{
			ReferenceNo: "PO-2026-0001",
			OrderType:   entity.OrderTypeItems,
			PaymentType: entity.PaymentTypeCash,
			Status:      entity.POStatusPending,
			TotalCost:   decimal.NewFromInt(30),
			SupplierID:  "sup-1",
			Supplier:    &entity.Supplier{Name: "Acme"},
			Items:       []entity.OrderItem{{}, {}},
			CreatedAt:   time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC),
		},
		{
			ReferenceNo: "PO-2026-0002",
			OrderType:   entity.OrderTypeServices,
			PaymentType: entity.PaymentTypeDisbursement,
			Status:      entity.POStatusApproved,
			TotalCost:   decimal.NewFromInt(70),
			SupplierID:  "sup-2",
		},
	}

	f, err := BuildPOWorkbook(orders)
	require.NoError(t, err)
	defer f.Close()

	sheet := "PurchaseOrders"
	v, _ := f.GetCellValue(sheet, "A1")
	assert.Equal(t, "订单编号", v)
	v, _ = f.GetCellValue(sheet, "A2")
	assert.Equal(t, "PO-2026-0001", v)
	v, _ = f.GetCellValue(sheet, "B2")
	assert.Equal(t, "Acme", v)
	v, _ = f.GetCellValue(sheet, "F2")
	assert.Equal(t, "2", v)
	v, _ = f.GetCellValue(sheet, "B3")
	assert.Equal(t, "sup-2", v)
	v, _ = f.GetCellValue(sheet, "A4")
	assert.Equal(t, "汇总", v)
	v, _ = f.GetCellValue(sheet, "H4")
	assert.Equal(t, "100", v)
}

func TestWrapTx(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, wrapTx(ctx, "op", nil))

	ve := invalid("f", "bad")
	assert.Same(t, ve, wrapTx(ctx, "op", ve))

	err := wrapTx(ctx, "op", gorm.ErrDuplicatedKey)
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)

	err = wrapTx(ctx, "op", repository.ErrInsufficientStock)
	assert.ErrorAs(t, err, &ce)

	err = wrapTx(ctx, "op", fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)

	boom := errors.New("boom")
	err = wrapTx(ctx, "写入", boom)
	var te *TransactionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "写入", te.Op)
	assert.ErrorIs(t, err, boom)
}

func TestNotFoundHelpers(t *testing.T) {
	err := notFoundOr(repository.ErrNotFound, "请购单", "r1")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "r1", nf.ID)

	err = mustExist(repository.ErrNotFound, "supplier_id", "供应商", "s1")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "supplier_id", ve.Field)
	assert.NotErrorIs(t, err, ErrNotFound)
}
