package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// RequisitionHandler 请购单处理器
type RequisitionHandler struct {
	svc *service.RequisitionService
}

func NewRequisitionHandler(svc *service.RequisitionService) *RequisitionHandler {
	return &RequisitionHandler{svc: svc}
}

// List 请购单列表
// GET /api/v1/srm/requisitions?status=xxx&type=xxx&search=xxx
func (h *RequisitionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "status", "type", "user_id", "search")

	items, total, err := h.svc.ListRequisitions(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取请购单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 请购单详情
// GET /api/v1/srm/requisitions/:id
func (h *RequisitionHandler) Get(c *gin.Context) {
	req, err := h.svc.GetRequisition(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, req)
}

// Create 创建请购单
// POST /api/v1/srm/requisitions
func (h *RequisitionHandler) Create(c *gin.Context) {
	var req service.SaveRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.CreateRequisition(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, result)
}

// Update 修改请购单（整体替换行项）
// PUT /api/v1/srm/requisitions/:id
func (h *RequisitionHandler) Update(c *gin.Context) {
	var req service.SaveRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.UpdateRequisition(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// UpdateStatus 变更状态
// PUT /api/v1/srm/requisitions/:id/status
func (h *RequisitionHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateRequisitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.UpdateStatus(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}

// Adjust 调整批准数量
// POST /api/v1/srm/requisitions/:id/adjust
func (h *RequisitionHandler) Adjust(c *gin.Context) {
	var req service.AdjustRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Adjust(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, result)
}
