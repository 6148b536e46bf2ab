package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// ReworkHandler 返工处理器
type ReworkHandler struct {
	svc *service.ReworkService
}

func NewReworkHandler(svc *service.ReworkService) *ReworkHandler {
	return &ReworkHandler{svc: svc}
}

// List 返工单列表
// GET /api/v1/srm/reworks?status=xxx&search=xxx
func (h *ReworkHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "status", "search")

	items, total, err := h.svc.ListReworks(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取返工单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 返工单详情
// GET /api/v1/srm/reworks/:id
func (h *ReworkHandler) Get(c *gin.Context) {
	rw, err := h.svc.GetRework(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, rw)
}

// Create 创建返工单
// POST /api/v1/srm/reworks
func (h *ReworkHandler) Create(c *gin.Context) {
	var req service.CreateReworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	rw, err := h.svc.CreateRework(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, rw)
}

// Destroy 删除返工单
// DELETE /api/v1/srm/reworks/:id
func (h *ReworkHandler) Destroy(c *gin.Context) {
	if err := h.svc.DestroyRework(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// Cancel 取消返工单
// POST /api/v1/srm/reworks/:id/cancel
func (h *ReworkHandler) Cancel(c *gin.Context) {
	if err := h.svc.CancelRework(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// EligibleServices 到货服务行及返工状态
// GET /api/v1/srm/deliveries/:id/reworkable-services
func (h *ReworkHandler) EligibleServices(c *gin.Context) {
	lines, err := h.svc.EligibleServices(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, lines)
}
