package handler

import (
	"encoding/base64"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/testutil"
)

func TestDeliveryHandler_MalformedPhotoDoesNotBlock(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 2)

	w, resp := call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(po, "id"),
		"receipt_photo": "data:image/png;base64,@@@broken@@@",
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 2, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	data := testutil.DataMap(t, resp)
	if data["receipt_photo"] != nil {
		t.Errorf("Expected nil receipt_photo, got %v", data["receipt_photo"])
	}
	if got := stockOf(t, env, fx.BoltID); got != 2 {
		t.Errorf("Expected stock 2, got %d", got)
	}
	if n := len(list(data, "items")); n != 1 {
		t.Errorf("Expected 1 delivery line, got %d", n)
	}
	if n := countWhere(t, env, "srm_delivery_items", "delivery_id = ?", str(data, "id")); n != 1 {
		t.Errorf("Expected 1 stored delivery line, got %d", n)
	}

	w, resp = call(env, "GET", "/purchase-orders/"+str(po, "id"), nil)
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.POStatusDelivered {
		t.Errorf("Expected PO Delivered, got %s", got)
	}
	if n := auditCount(t, env, entity.AuditDeliveryRecorded); n != 1 {
		t.Errorf("Expected 1 delivery audit, got %d", n)
	}
	if n := countPhotos(t, fx.PhotoDir); n != 0 {
		t.Errorf("Expected no stored photos, got %d", n)
	}
}

func TestDeliveryHandler_FailedDeliveryStoresNoPhoto(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 1)

	photo := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	w, _ := call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         "po-missing",
		"receipt_photo": photo,
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusBadRequest)

	// 行校验失败同样回滚
	w, _ = call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(po, "id"),
		"receipt_photo": photo,
		"items":         []map[string]interface{}{{"item_id": "missing", "quantity": 1, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusBadRequest)

	if n := testutil.CountRows(t, env.DB, "srm_deliveries"); n != 0 {
		t.Errorf("Expected no deliveries, got %d", n)
	}
	if n := countPhotos(t, fx.PhotoDir); n != 0 {
		t.Fatalf("Expected no photos left behind by failed deliveries, got %d", n)
	}

	w, resp := call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(po, "id"),
		"receipt_photo": photo,
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	if n := countPhotos(t, fx.PhotoDir); n != 1 {
		t.Errorf("Expected 1 stored photo, got %d", n)
	}
	id := str(testutil.DataMap(t, resp), "id")
	if n := countWhere(t, env, "srm_deliveries", "id = ? AND receipt_photo LIKE ?", id, "/uploads/receipts/%"); n != 1 {
		t.Errorf("Expected receipt_photo saved on the delivery row, got %d", n)
	}
}

func countPhotos(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", dir, err)
	}
	return n
}

func TestDeliveryHandler_StoresPhoto(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 1)

	photo := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	w, resp := call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         str(po, "id"),
		"receipt_no":    "R-001",
		"receipt_photo": photo,
		"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1, "unit_price": "10"}},
	})
	expectStatus(t, w, http.StatusCreated)
	path := str(testutil.DataMap(t, resp), "receipt_photo")
	if !strings.HasPrefix(path, "/uploads/receipts/") || !strings.HasSuffix(path, ".jpg") {
		t.Errorf("Unexpected photo path %q", path)
	}
}

func TestDeliveryHandler_CreateValidation(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 1)
	poID := str(po, "id")

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"unknown type", map[string]interface{}{
			"delivery_type": "drone_drop", "po_id": poID,
			"items": []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1}},
		}, http.StatusBadRequest},
		{"purchase without po", map[string]interface{}{
			"delivery_type": "item_purchase",
			"items":         []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1}},
		}, http.StatusBadRequest},
		{"no lines", map[string]interface{}{
			"delivery_type": "item_purchase", "po_id": poID,
		}, http.StatusBadRequest},
		{"negative price", map[string]interface{}{
			"delivery_type": "item_purchase", "po_id": poID,
			"items": []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1, "unit_price": "-1"}},
		}, http.StatusBadRequest},
		{"unknown po", map[string]interface{}{
			"delivery_type": "item_purchase", "po_id": "po-missing",
			"items": []map[string]interface{}{{"item_id": fx.BoltID, "quantity": 1}},
		}, http.StatusBadRequest},
		{"order type mismatch", map[string]interface{}{
			"delivery_type": "service_purchase", "po_id": poID,
			"services": []map[string]interface{}{{"service_id": fx.PaintID, "unit_price": "10"}},
		}, http.StatusBadRequest},
		{"unknown item", map[string]interface{}{
			"delivery_type": "item_purchase", "po_id": poID,
			"items": []map[string]interface{}{{"item_id": "missing", "quantity": 1}},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := call(env, "POST", "/deliveries", tt.body)
			expectStatus(t, w, tt.want)
		})
	}

	if n := testutil.CountRows(t, env.DB, "srm_deliveries"); n != 0 {
		t.Errorf("Expected no deliveries, got %d", n)
	}
	if got := stockOf(t, env, fx.BoltID); got != 0 {
		t.Errorf("Expected stock untouched, got %d", got)
	}
}

func TestDeliveryHandler_ServicePurchase(t *testing.T) {
	env, fx := setupSRMTest(t)

	d := createServiceDelivery(t, env, fx)
	if str(d, "delivery_type") != entity.DeliveryTypeServicePurchase {
		t.Errorf("Expected Service Purchase, got %s", str(d, "delivery_type"))
	}
	// 喷涂 100×2 + 焊接 80×1
	if got := dec(t, d, "total_cost"); got.IntPart() != 280 {
		t.Errorf("Expected total 280, got %s", got)
	}
	if n := len(list(d, "services")); n != 2 {
		t.Errorf("Expected 2 service lines, got %d", n)
	}
}

func TestDeliveryHandler_UpdateStatus(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 1)
	d := createItemDelivery(t, env, fx, str(po, "id"), 1)
	id := str(d, "id")

	w, resp := call(env, "PUT", "/deliveries/"+id+"/status", map[string]interface{}{"status": "received"})
	expectStatus(t, w, http.StatusOK)
	if got := str(testutil.DataMap(t, resp), "status"); got != entity.DeliveryStatusReceived {
		t.Errorf("Expected Received, got %s", got)
	}

	w, _ = call(env, "PUT", "/deliveries/"+id+"/status", map[string]interface{}{"status": "bogus"})
	expectStatus(t, w, http.StatusBadRequest)

	w, _ = call(env, "PUT", "/deliveries/"+id+"/status", map[string]interface{}{"status": "Cancelled"})
	expectStatus(t, w, http.StatusOK)

	w, _ = call(env, "PUT", "/deliveries/"+id+"/status", map[string]interface{}{"status": "received"})
	expectStatus(t, w, http.StatusConflict)

	if n := auditCount(t, env, entity.AuditDeliveryStatusChanged); n != 2 {
		t.Errorf("Expected 2 status change audits, got %d", n)
	}

	w, _ = call(env, "PUT", "/deliveries/missing/status", map[string]interface{}{"status": "received"})
	expectStatus(t, w, http.StatusNotFound)
}

func TestDeliveryHandler_List(t *testing.T) {
	env, fx := setupSRMTest(t)
	po := createItemPO(t, env, fx, 1)
	createItemDelivery(t, env, fx, str(po, "id"), 1)

	w, resp := call(env, "GET", "/deliveries?page=1&page_size=10", nil)
	expectStatus(t, w, http.StatusOK)
	data := testutil.DataMap(t, resp)
	if n := len(list(data, "items")); n != 1 {
		t.Errorf("Expected 1 delivery, got %d", n)
	}
}
