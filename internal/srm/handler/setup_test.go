package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/bitfantasy/nimo-srm/internal/srm/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1/srm"

// fixture 基础主数据
type fixture struct {
	BoltID     string
	NutID      string
	PaintID    string
	WeldID     string
	SupplierID string
	PhotoDir   string
}

func setupSRMTest(t *testing.T) (*testutil.TestEnv, fixture) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	photoDir := t.TempDir()

	svc := service.NewServices(service.Deps{
		Repos:  repository.NewRepositories(db),
		Logger: zap.NewNop(),
		Photos: service.NewLocalPhotoStore(photoDir, "/uploads"),
	})

	router := testutil.SetupRouter()
	RegisterRoutes(testutil.AuthGroup(router, apiPrefix), NewHandlers(svc))

	env := &testutil.TestEnv{DB: db, Router: router, Token: testutil.DefaultTestToken(), T: t}
	fx := seedFixture(t, env)
	fx.PhotoDir = photoDir
	return env, fx
}

func seedFixture(t *testing.T, env *testutil.TestEnv) fixture {
	t.Helper()
	fx := fixture{
		BoltID:     "item-bolt-001",
		NutID:      "item-nut-001",
		PaintID:    "svc-paint-001",
		WeldID:     "svc-weld-001",
		SupplierID: "sup-test-001",
	}

	items := []entity.Item{
		{ID: fx.BoltID, Code: "BOLT-M8", Name: "M8螺栓", Unit: "pcs", UnitPrice: decimal.NewFromInt(10), IsActive: true},
		{ID: fx.NutID, Code: "NUT-M8", Name: "M8螺母", Unit: "pcs", UnitPrice: decimal.NewFromInt(2), IsActive: true},
	}
	for i := range items {
		if err := env.DB.Create(&items[i]).Error; err != nil {
			t.Fatalf("Failed to seed item: %v", err)
		}
	}

	services := []entity.Service{
		{ID: fx.PaintID, Name: "喷涂", UnitPrice: decimal.NewFromInt(50), IsActive: true},
		{ID: fx.WeldID, Name: "焊接", UnitPrice: decimal.NewFromInt(80), IsActive: true},
	}
	for i := range services {
		if err := env.DB.Create(&services[i]).Error; err != nil {
			t.Fatalf("Failed to seed service: %v", err)
		}
	}

	supplier := &entity.Supplier{
		ID:     fx.SupplierID,
		Code:   "SUP-0001",
		Name:   "测试供应商",
		Status: entity.SupplierStatusActive,
	}
	if err := env.DB.Create(supplier).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return fx
}

// call 发送请求并返回解析后的响应
func call(env *testutil.TestEnv, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := testutil.DoRequest(env.Router, method, apiPrefix+path, body, env.Token)
	return w, testutil.ParseResponse(w)
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func str(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func num(m map[string]interface{}, key string) int {
	v, _ := m[key].(float64)
	return int(v)
}

func dec(t *testing.T, m map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	switch v := m[key].(type) {
	case string:
		return decimal.RequireFromString(v)
	case float64:
		return decimal.NewFromFloat(v)
	}
	t.Fatalf("Field %s is not a decimal: %v", key, m[key])
	return decimal.Zero
}

func list(m map[string]interface{}, key string) []map[string]interface{} {
	raw, _ := m[key].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if obj, ok := r.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

func countWhere(t *testing.T, env *testutil.TestEnv, table, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := env.DB.Table(table).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

func auditCount(t *testing.T, env *testutil.TestEnv, action entity.AuditAction) int64 {
	t.Helper()
	return countWhere(t, env, "srm_audit_logs", "type_code = ?", action.Code())
}

func stockOf(t *testing.T, env *testutil.TestEnv, itemID string) int {
	t.Helper()
	var item entity.Item
	if err := env.DB.Where("id = ?", itemID).First(&item).Error; err != nil {
		t.Fatalf("Failed to load item %s: %v", itemID, err)
	}
	return item.StockQuantity
}

// createItemRequisition 创建物料请购单，返回请购单数据
func createItemRequisition(t *testing.T, env *testutil.TestEnv, lines ...RequisitionLine) map[string]interface{} {
	t.Helper()
	items := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		items = append(items, map[string]interface{}{"item_id": l.ItemID, "quantity": l.Quantity})
	}
	w, resp := call(env, "POST", "/requisitions", map[string]interface{}{
		"requestor": "张三",
		"type":      "items",
		"priority":  "high",
		"items":     items,
	})
	expectStatus(t, w, 201)
	return testutil.DataMap(t, resp)
}

// RequisitionLine 测试用请购行
type RequisitionLine struct {
	ItemID   string
	Quantity int
}

func approveRequisition(t *testing.T, env *testutil.TestEnv, id string) {
	t.Helper()
	w, _ := call(env, "PUT", "/requisitions/"+id+"/status", map[string]interface{}{"status": "approved"})
	expectStatus(t, w, 200)
}

// createItemPO 请购 → 批准 → 下单，返回PO数据
func createItemPO(t *testing.T, env *testutil.TestEnv, fx fixture, qty int) map[string]interface{} {
	t.Helper()
	req := createItemRequisition(t, env, RequisitionLine{fx.BoltID, qty})
	approveRequisition(t, env, str(req, "id"))
	line := list(req, "items")[0]

	w, resp := call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{str(req, "id")},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "cash",
		"order_type":      "items",
		"items": []map[string]interface{}{
			{"requisition_item_id": str(line, "id"), "quantity": qty, "unit_price": "10"},
		},
	})
	expectStatus(t, w, 201)
	return testutil.DataMap(t, resp)
}

// createItemDelivery 针对PO登记物料到货
func createItemDelivery(t *testing.T, env *testutil.TestEnv, fx fixture, poID string, qty int) map[string]interface{} {
	t.Helper()
	w, resp := call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "item_purchase",
		"po_id":         poID,
		"items": []map[string]interface{}{
			{"item_id": fx.BoltID, "quantity": qty, "unit_price": "10"},
		},
	})
	expectStatus(t, w, 201)
	return testutil.DataMap(t, resp)
}

// createServiceDelivery 服务请购 → 批准 → 下单 → 到货（喷涂+焊接）
func createServiceDelivery(t *testing.T, env *testutil.TestEnv, fx fixture) map[string]interface{} {
	t.Helper()
	w, resp := call(env, "POST", "/requisitions", map[string]interface{}{
		"requestor": "李四",
		"type":      "services",
		"services": []map[string]interface{}{
			{"service_id": fx.PaintID, "hours": "2", "unit_price": "50"},
			{"service_id": fx.WeldID, "hours": "1"},
		},
	})
	expectStatus(t, w, 201)
	req := testutil.DataMap(t, resp)
	approveRequisition(t, env, str(req, "id"))

	var poServices []map[string]interface{}
	for _, s := range list(req, "services") {
		poServices = append(poServices, map[string]interface{}{"requisition_service_id": str(s, "id")})
	}
	w, resp = call(env, "POST", "/purchase-orders", map[string]interface{}{
		"requisition_ids": []string{str(req, "id")},
		"supplier_id":     fx.SupplierID,
		"payment_type":    "disbursement",
		"order_type":      "services",
		"services":        poServices,
	})
	expectStatus(t, w, 201)
	po := testutil.DataMap(t, resp)

	w, resp = call(env, "POST", "/deliveries", map[string]interface{}{
		"delivery_type": "service_purchase",
		"po_id":         str(po, "id"),
		"services": []map[string]interface{}{
			{"service_id": fx.PaintID, "hours": "2", "unit_price": "100"},
			{"service_id": fx.WeldID, "hours": "1", "unit_price": "80"},
		},
	})
	expectStatus(t, w, 201)
	return testutil.DataMap(t, resp)
}
