package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler 到货处理器
type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

// List 到货列表
// GET /api/v1/srm/deliveries?delivery_type=xxx&status=xxx&po_id=xxx
func (h *DeliveryHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "delivery_type", "status", "po_id", "search")

	items, total, err := h.svc.ListDeliveries(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取到货列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 到货详情
// GET /api/v1/srm/deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	d, err := h.svc.GetDelivery(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}

// Create 登记到货
// POST /api/v1/srm/deliveries
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	d, err := h.svc.CreateDelivery(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, d)
}

// UpdateStatus 变更到货状态
// PUT /api/v1/srm/deliveries/:id/status
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	d, err := h.svc.UpdateStatus(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, d)
}
