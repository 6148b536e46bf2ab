package entity

import "strings"

// 请购单类型
const (
	RequisitionTypeItems    = "items"
	RequisitionTypeServices = "services"
)

// 请购单优先级
const (
	PriorityLow    = "Low"
	PriorityNormal = "Normal"
	PriorityHigh   = "High"
	PriorityUrgent = "Urgent"
)

// 请购单状态
const (
	RequisitionStatusPending           = "Pending"
	RequisitionStatusApproved          = "Approved"
	RequisitionStatusRejected          = "Rejected"
	RequisitionStatusPartiallyApproved = "Partially Approved"
	RequisitionStatusOrdered           = "Ordered"
	RequisitionStatusDelivered         = "Delivered"
	RequisitionStatusAwaitingPickup    = "Awaiting Pickup"
	RequisitionStatusReceived          = "Received"
	RequisitionStatusCompleted         = "Completed"
)

// RequisitionStatusTokens 状态口令 → 展示值
var RequisitionStatusTokens = map[string]string{
	"pending":            RequisitionStatusPending,
	"approved":           RequisitionStatusApproved,
	"rejected":           RequisitionStatusRejected,
	"partially_approved": RequisitionStatusPartiallyApproved,
	"ordered":            RequisitionStatusOrdered,
	"delivered":          RequisitionStatusDelivered,
	"awaiting_pickup":    RequisitionStatusAwaitingPickup,
	"received":           RequisitionStatusReceived,
	"completed":          RequisitionStatusCompleted,
}

// ValidRequisitionTransitions 合法的请购单状态流转
var ValidRequisitionTransitions = map[string][]string{
	RequisitionStatusPending:           {RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusPartiallyApproved},
	RequisitionStatusPartiallyApproved: {RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusOrdered},
	RequisitionStatusApproved:          {RequisitionStatusOrdered, RequisitionStatusRejected},
	RequisitionStatusOrdered:           {RequisitionStatusDelivered},
	RequisitionStatusDelivered:         {RequisitionStatusAwaitingPickup, RequisitionStatusReceived},
	RequisitionStatusAwaitingPickup:    {RequisitionStatusReceived},
	RequisitionStatusReceived:          {RequisitionStatusCompleted},
}

// 采购订单类型
const (
	OrderTypeItems    = "Items"
	OrderTypeServices = "Services"
)

// 付款方式
const (
	PaymentTypeCash         = "Cash"
	PaymentTypeDisbursement = "Disbursement"
	PaymentTypeStoreCredit  = "Store Credit"
)

// 采购订单状态
const (
	POStatusPending   = "Pending"
	POStatusApproved  = "Approved"
	POStatusRejected  = "Rejected"
	POStatusDelivered = "Delivered"
	POStatusCancelled = "Cancelled"
)

// 到货类型
const (
	DeliveryTypeItemPurchase    = "Item Purchase"
	DeliveryTypeServicePurchase = "Service Purchase"
	DeliveryTypeItemReturn      = "Item Return"
	DeliveryTypeServiceRework   = "Service Rework"
)

// 到货状态
const (
	DeliveryStatusPending   = "Pending"
	DeliveryStatusReceived  = "Received"
	DeliveryStatusDelivered = "Delivered"
	DeliveryStatusCancelled = "Cancelled"
)

// 退货/返工状态
const (
	ReturnStatusPending   = "Pending"
	ReturnStatusApproved  = "Approved"
	ReturnStatusRejected  = "Rejected"
	ReturnStatusDelivered = "Delivered"
	ReturnStatusCancelled = "Cancelled"

	ReworkStatusPending   = "Pending"
	ReworkStatusApproved  = "Approved"
	ReworkStatusRejected  = "Rejected"
	ReworkStatusDelivered = "Delivered"
	ReworkStatusCancelled = "Cancelled"
)

// IsOneOf 判断值是否在候选集合中
func IsOneOf(value string, candidates ...string) bool {
	for _, c := range candidates {
		if value == c {
			return true
		}
	}
	return false
}

// CanTransition 查表判断状态流转是否合法
func CanTransition(table map[string][]string, from, to string) bool {
	for _, s := range table[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MatchStatus 按口令或展示值（不区分大小写）匹配状态
func MatchStatus(tokens map[string]string, value string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(value))
	if display, ok := tokens[key]; ok {
		return display, true
	}
	key = strings.ReplaceAll(key, " ", "_")
	if display, ok := tokens[key]; ok {
		return display, true
	}
	return "", false
}

// DeliveryStatusTokens 到货状态口令
var DeliveryStatusTokens = map[string]string{
	"pending":   DeliveryStatusPending,
	"received":  DeliveryStatusReceived,
	"delivered": DeliveryStatusDelivered,
	"cancelled": DeliveryStatusCancelled,
}

// DeliveryTypeTokens 到货类型口令
var DeliveryTypeTokens = map[string]string{
	"item_purchase":    DeliveryTypeItemPurchase,
	"service_purchase": DeliveryTypeServicePurchase,
	"item_return":      DeliveryTypeItemReturn,
	"service_rework":   DeliveryTypeServiceRework,
}
