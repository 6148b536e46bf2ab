package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// ReturnHandler 退货处理器
type ReturnHandler struct {
	svc *service.ReturnService
}

func NewReturnHandler(svc *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{svc: svc}
}

// List 退货单列表
// GET /api/v1/srm/returns?status=xxx&search=xxx
func (h *ReturnHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "status", "search")

	items, total, err := h.svc.ListReturns(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取退货单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Get 退货单详情
// GET /api/v1/srm/returns/:id
func (h *ReturnHandler) Get(c *gin.Context) {
	r, err := h.svc.GetReturn(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, r)
}

// Create 创建退货单
// POST /api/v1/srm/returns
func (h *ReturnHandler) Create(c *gin.Context) {
	var req service.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	r, err := h.svc.CreateReturn(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, r)
}

// AvailableItems 到货上可退的物料
// GET /api/v1/srm/deliveries/:id/returnable-items
func (h *ReturnHandler) AvailableItems(c *gin.Context) {
	items, err := h.svc.AvailableItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, items)
}
