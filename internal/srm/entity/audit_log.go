package entity

import "time"

// AuditAction 审计动作（封闭枚举，编码即存库值）
type AuditAction int

const (
	AuditRequisitionCreated       AuditAction = 1
	AuditRequisitionApproved      AuditAction = 2
	AuditRequisitionDeclined      AuditAction = 3
	AuditPOCreated                AuditAction = 4
	AuditRequisitionUpdated       AuditAction = 5
	AuditPOApproved               AuditAction = 6
	AuditPORejected               AuditAction = 7
	AuditDeliveryRecorded         AuditAction = 8
	AuditReturnCreated            AuditAction = 9
	AuditReworkCreated            AuditAction = 10
	AuditReworkDeleted            AuditAction = 11
	AuditRequisitionAdjusted      AuditAction = 12
	AuditRequisitionStatusChanged AuditAction = 13
	AuditDeliveryStatusChanged    AuditAction = 14
	AuditReworkCancelled          AuditAction = 15
	AuditServiceCreated           AuditAction = 19
	AuditServiceUpdated           AuditAction = 20
	AuditServiceDeleted           AuditAction = 21
	AuditItemCreated              AuditAction = 22
	AuditSupplierCreated          AuditAction = 23
)

type auditActionInfo struct {
	name        string
	entityType  string
	description string
}

var auditActions = map[AuditAction]auditActionInfo{
	AuditRequisitionCreated:       {"requisition_created", "requisition", "创建请购单"},
	AuditRequisitionApproved:      {"requisition_approved", "requisition", "审批通过请购单"},
	AuditRequisitionDeclined:      {"requisition_declined", "requisition", "驳回请购单"},
	AuditPOCreated:                {"po_created", "purchase_order", "创建采购订单"},
	AuditRequisitionUpdated:       {"requisition_updated", "requisition", "修改请购单"},
	AuditPOApproved:               {"po_approved", "purchase_order", "审批通过采购订单"},
	AuditPORejected:               {"po_rejected", "purchase_order", "驳回采购订单"},
	AuditDeliveryRecorded:         {"delivery_recorded", "delivery", "登记到货"},
	AuditReturnCreated:            {"return_created", "return", "创建退货单"},
	AuditReworkCreated:            {"rework_created", "rework", "创建返工单"},
	AuditReworkDeleted:            {"rework_deleted", "rework", "删除返工单"},
	AuditRequisitionAdjusted:      {"requisition_adjusted", "requisition", "调整请购批准数量"},
	AuditRequisitionStatusChanged: {"requisition_status_changed", "requisition", "变更请购单状态"},
	AuditDeliveryStatusChanged:    {"delivery_status_changed", "delivery", "变更到货状态"},
	AuditReworkCancelled:          {"rework_cancelled", "rework", "取消返工单"},
	AuditServiceCreated:           {"service_created", "service", "新增服务"},
	AuditServiceUpdated:           {"service_updated", "service", "修改服务"},
	AuditServiceDeleted:           {"service_deleted", "service", "停用服务"},
	AuditItemCreated:              {"item_created", "item", "新增物料"},
	AuditSupplierCreated:          {"supplier_created", "supplier", "新增供应商"},
}

// Code 存库编码
func (a AuditAction) Code() int { return int(a) }

// Valid 是否为已登记的动作
func (a AuditAction) Valid() bool {
	_, ok := auditActions[a]
	return ok
}

func (a AuditAction) String() string { return auditActions[a].name }

// EntityType 动作所属实体类型
func (a AuditAction) EntityType() string { return auditActions[a].entityType }

// Description 动作描述
func (a AuditAction) Description() string { return auditActions[a].description }

// AuditActions 返回全部已登记动作
func AuditActions() []AuditAction {
	out := make([]AuditAction, 0, len(auditActions))
	for a := range auditActions {
		out = append(out, a)
	}
	return out
}

// AuditLog 审计日志（只追加，不修改不删除）
type AuditLog struct {
	ID          string      `json:"id" gorm:"primaryKey;size:32"`
	Description string      `json:"description" gorm:"type:text;not null"`
	UserID      string      `json:"user_id" gorm:"size:32;index"`
	TypeCode    AuditAction `json:"type_code" gorm:"column:type_code;not null;index"`
	EntityType  string      `json:"entity_type" gorm:"size:50;index:idx_audit_entity"`
	EntityID    string      `json:"entity_id" gorm:"size:32;index:idx_audit_entity"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "srm_audit_logs"
}

// Models 返回全部SRM实体（迁移用）
func Models() []interface{} {
	return []interface{}{
		&Item{},
		&Service{},
		&Supplier{},
		&StockMovement{},
		&Requisition{},
		&RequisitionItem{},
		&RequisitionService{},
		&PurchaseOrder{},
		&OrderItem{},
		&OrderService{},
		&RequisitionOrderItem{},
		&RequisitionOrderService{},
		&Delivery{},
		&DeliveryItem{},
		&DeliveryService{},
		&ReturnRequest{},
		&ReturnItem{},
		&ReturnDelivery{},
		&Rework{},
		&ReworkService{},
		&ReworkDelivery{},
		&AuditLog{},
	}
}
