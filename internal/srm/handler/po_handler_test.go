package handler

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/testutil"
)

// 请购5 → 批准调整为3 → 下单 → 到货，金额按行重算
func TestProcurementFlow_EndToEnd(t *testing.T) {
	env, fx := setupSRMTest(t)

	req := createItemRequisition(t, env, RequisitionLine{fx.BoltID, 5})
	reqID := str(req, "id")
	line := list(req, "items")[0]

	w, resp := call(env, "POST", "/requisitions/"+reqID+"/adjust", map[string]interface{}{
		"lines": []map[string]interface{}{{"line_id": str(line, "id"), "approved_quantity": 3}},
	})
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.RequisitionStatusPartiallyApproved {
		t.Fatalf("Expected Partially Approved, got %s", got)
	}

	// 超过批准数量不能下单
	w, _ = call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{reqID},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "cash",
		"order_type":      "items",
		"items":           []map[string]interface{}{{"requisition_item_id": str(line, "id"), "quantity": 4, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusBadRequest)

	w, resp = call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{reqID},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "cash",
		"order_type":      "items",
		"items":           []map[string]interface{}{{"requisition_item_id": str(line, "id"), "quantity": 3, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	po := testutil.DataMap(t, resp)
	if got := dec(t, po, "total_cost"); got.IntPart() != 30 {
		t.Errorf("Expected PO total 30, got %s", got)
	}
	if !regexp.MustCompile(`^PO-\d{4}-\d{4}$`).MatchString(str(po, "reference_no")) {
		t.Errorf("Unexpected PO reference %s", str(po, "reference_no"))
	}
	if str(po, "status") != entity.POStatusPending || str(po, "payment_type") != entity.PaymentTypeCash {
		t.Errorf("Expected Pending/Cash, got %s/%s", str(po, "status"), str(po, "payment_type"))
	}

	w, resp = call(env, "GET", "/requisitions/"+reqID, nil)
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.RequisitionStatusOrdered {
		t.Errorf("Expected requisition Ordered, got %s", got)
	}

	// 请求里的 total_cost 被忽略
	w, resp = call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(po, "id"),
		"total_cost":    "999",
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 3, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	delivery := testutil.DataMap(t, resp)
	if got := dec(t, delivery, "total_cost"); got.IntPart() != 30 {
		t.Errorf("Expected delivery total recomputed to 30, got %s", got)
	}
	if !regexp.MustCompile(`^DEL-\d{4}-\d{4}$`).MatchString(str(delivery, "reference_no")) {
		t.Errorf("Unexpected delivery reference %s", str(delivery, "reference_no"))
	}

	w, resp = call(env, "GET", "/purchase-orders/"+str(po, "id"), nil)
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.POStatusDelivered {
		t.Errorf("Expected PO Delivered, got %s", got)
	}

	w, resp = call(env, "GET", "/requisitions/"+reqID, nil)
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.RequisitionStatusDelivered {
		t.Errorf("Expected requisition Delivered, got %s", got)
	}

	if got := stockOf(t, env, fx.BoltID); got != 3 {
		t.Errorf("Expected stock 3, got %d", got)
	}
	w, resp = call(env, "GET", "/items/"+fx.BoltID+"/stock-movements", nil)
	expectStatus(t, w, http.StatusOK)
	if moves, _ := resp["data"].([]interface{}); len(moves) != 1 {
		t.Errorf("Expected 1 stock movement, got %d", len(moves))
	}

	for _, action := range []entity.AuditAction{
		entity.AuditRequisitionCreated,
		entity.AuditRequisitionAdjusted,
		entity.AuditPOCreated,
		entity.AuditDeliveryRecorded,
	} {
		if n := auditCount(t, env, action); n != 1 {
			t.Errorf("Expected 1 audit row for code %d, got %d", action.Code(), n)
		}
	}
}

func TestPOHandler_CreateIsAtomic(t *testing.T) {
	env, fx := setupSRMTest(t)

	req := createItemRequisition(t, env, RequisitionLine{fx.BoltID, 2}, RequisitionLine{fx.NutID, 4})
	approveRequisition(t, env, str(req, "id"))
	lines := list(req, "items")

	w, resp := call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{str(req, "id")},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "cash",
		"order_type":      "items",
		"items": []map[string]interface{}{
			{"requisition_item_id": str(lines[0], "id"), "quantity": 2},
			{"requisition_item_id": str(lines[1], "id"), "quantity": 0},
		},
	})
	expectStatus(t, w, http.StatusBadRequest)
	if data, ok := resp["data"].(map[string]interface{}); !ok || str(data, "field") != "items[1].quantity" {
		t.Errorf("Expected field items[1].quantity, got %v", resp["data"])
	}

	for _, table := range []string{"srm_purchase_orders", "srm_order_items", "srm_requisition_order_items"} {
		if n := testutil.CountRows(t, env.DB, table); n != 0 {
			t.Errorf("Expected %s empty after rollback, got %d", table, n)
		}
	}
	w, resp = call(env, "GET", "/requisitions/"+str(req, "id"), nil)
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.RequisitionStatusApproved {
		t.Errorf("Expected requisition to stay Approved, got %s", got)
	}
}

// 两行请购分两张PO下单，全部行下单后才 Ordered，全部PO到货后才 Delivered
func TestPOHandler_SplitRequisitionAcrossOrders(t *testing.T) {
	env, fx := setupSRMTest(t)

	second := &entity.Supplier{ID: "sup-test-002", Code: "SUP-0002", Name: "第二供应商", Status: entity.SupplierStatusActive}
	if err := env.DB.Create(second).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}

	req := createItemRequisition(t, env, RequisitionLine{fx.BoltID, 2}, RequisitionLine{fx.NutID, 4})
	reqID := str(req, "id")
	approveRequisition(t, env, reqID)
	lines := list(req, "items")

	requisitionStatus := func() string {
		t.Helper()
		w, resp := call(env, "GET", "/requisitions/"+reqID, nil)
		expectStatus(t, w, http.StatusOK)
		return str(testutil.DataMap(t, resp), "status")
	}

	w, resp := call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{reqID},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "cash",
		"order_type":      "items",
		"items":           []map[string]interface{}{{"requisition_item_id": str(lines[0], "id"), "quantity": 2, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	first := testutil.DataMap(t, resp)
	if got := requisitionStatus(); got != entity.RequisitionStatusApproved {
		t.Fatalf("Expected requisition to stay Approved with a line unordered, got %s", got)
	}

	// 已下单的行不能再调整
	w, _ = call(env, "POST", "/requisitions/"+reqID+"/adjust", map[string]interface{}{
		"lines": []map[string]interface{}{{"line_id": str(lines[0], "id"), "approved_quantity": 1}},
	})
	expectStatus(t, w, http.StatusConflict)

	w, resp = call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{reqID},
		"supplier_id":     second.ID,
		"payment_type":    "store_credit",
		"order_type":      "items",
		"items":           []map[string]interface{}{{"requisition_item_id": str(lines[1], "id"), "quantity": 4, "unit_price": "2"}},
	})
	expectStatus(t, w, http.StatusCreated)
	other := testutil.DataMap(t, resp)
	if got := requisitionStatus(); got != entity.RequisitionStatusOrdered {
		t.Fatalf("Expected requisition Ordered, got %s", got)
	}

	createItemDelivery(t, env, fx, str(first, "id"), 2)
	if got := requisitionStatus(); got != entity.RequisitionStatusOrdered {
		t.Errorf("Expected requisition to stay Ordered while a PO is open, got %s", got)
	}

	w, _ = call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(other, "id"),
		"items":         []map[string]interface{}{{"item_id": fx.NutID, "quantity": 4, "unit_price": "2"}},
	})
	expectStatus(t, w, http.StatusCreated)
	if got := requisitionStatus(); got != entity.RequisitionStatusDelivered {
		t.Errorf("Expected requisition Delivered, got %s", got)
	}
	if n := testutil.CountRows(t, env.DB, "srm_requisition_order_items"); n != 2 {
		t.Errorf("Expected 2 requisition-order links, got %d", n)
	}
}

func TestPOHandler_CreateValidation(t *testing.T) {
	env, fx := setupSRMTest(t)

	pending := createItemRequisition(t, env, RequisitionLine{fx.BoltID, 1})
	pendingLine := str(list(pending, "items")[0], "id")

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"unknown supplier", map[string]interface{}{
			"requisition_ids": []string{str(pending, "id")}, "supplier_id": "sup-missing",
			"payment_type": "cash", "order_type": "items",
			"items": []map[string]interface{}{{"requisition_item_id": pendingLine, "quantity": 1}},
		}},
		{"requisition not approved", map[string]interface{}{
			"requisition_ids": []string{str(pending, "id")}, "supplier_id": fx.SupplierID,
			"payment_type": "cash", "order_type": "items",
			"items": []map[string]interface{}{{"requisition_item_id": pendingLine, "quantity": 1}},
		}},
		{"unknown payment type", map[string]interface{}{
			"requisition_ids": []string{str(pending, "id")}, "supplier_id": fx.SupplierID,
			"payment_type": "barter", "order_type": "items",
			"items": []map[string]interface{}{{"requisition_item_id": pendingLine, "quantity": 1}},
		}},
		{"no requisitions", map[string]interface{}{
			"supplier_id": fx.SupplierID, "payment_type": "cash", "order_type": "items",
			"items": []map[string]interface{}{{"requisition_item_id": pendingLine, "quantity": 1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := call(env, "POST", "/purchase-orders", tt.body)
			expectStatus(t, w, http.StatusBadRequest)
		})
	}
	if n := testutil.CountRows(t, env.DB, "srm_purchase_orders"); n != 0 {
		t.Errorf("Expected no purchase orders, got %d", n)
	}
}

func TestPOHandler_ApproveAndReject(t *testing.T) {
	env, fx := setupSRMTest(t)

	po := createItemPO(t, env, fx, 2)
	poID := str(po, "id")

	clerk := testutil.GenerateTestToken("clerk-001", "Clerk", []string{"srm_user"}, []string{"srm:read"})
	w := testutil.DoRequest(env.Router, "POST", apiPrefix+"/purchase-orders/"+poID+"/approve", nil, clerk)
	expectStatus(t, w, http.StatusForbidden)

	w, resp := call(env, "POST", "/purchase-orders/"+poID+"/approve", map[string]interface{}{"remarks": "同意"})
	expectStatus(t, w, http.StatusOK)
	data := testutil.DataMap(t, resp)
	if str(data, "status") != entity.POStatusApproved {
		t.Errorf("Expected Approved, got %s", str(data, "status"))
	}
	if str(data, "approved_by") != "test-user-001" {
		t.Errorf("Expected approver recorded, got %v", data["approved_by"])
	}

	w, _ = call(env, "POST", "/purchase-orders/"+poID+"/reject", nil)
	expectStatus(t, w, http.StatusConflict)

	other := createItemPO(t, env, fx, 1)
	w, _ = call(env, "POST", "/purchase-orders/"+str(other, "id")+"/reject", nil)
	expectStatus(t, w, http.StatusOK)

	// 已驳回的PO不能登记到货
	w, _ = call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(other, "id"),
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusConflict)
	if got := stockOf(t, env, fx.BoltID); got != 0 {
		t.Errorf("Expected stock untouched, got %d", got)
	}

	w, _ = call(env, "POST", "/purchase-orders/missing/approve", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestPOHandler_Export(t *testing.T) {
	env, fx := setupSRMTest(t)
	createItemPO(t, env, fx, 2)

	w := testutil.DoRequest(env.Router, "GET", apiPrefix+"/purchase-orders/export", nil, env.Token)
	expectStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("Unexpected content type %s", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected workbook body")
	}
}
