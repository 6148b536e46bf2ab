package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// CatalogHandler 服务目录与物料处理器
type CatalogHandler struct {
	svc *service.CatalogService
}

func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// ListServices 服务目录
// GET /api/v1/srm/services?search=xxx&include_inactive=true
func (h *CatalogHandler) ListServices(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "search", "include_inactive")

	items, total, err := h.svc.ListServices(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取服务列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// CreateService 新增服务
// POST /api/v1/srm/services
func (h *CatalogHandler) CreateService(c *gin.Context) {
	var req service.SaveServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	svc, err := h.svc.CreateService(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, svc)
}

// UpdateService 修改服务
// PUT /api/v1/srm/services/:id
func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var req service.SaveServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	svc, err := h.svc.UpdateService(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, svc)
}

// DeleteService 停用服务
// DELETE /api/v1/srm/services/:id
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	if err := h.svc.DeleteService(c.Request.Context(), GetUserID(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ListItems 物料列表
// GET /api/v1/srm/items?search=xxx
func (h *CatalogHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "search", "active")

	items, total, err := h.svc.ListItems(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取物料列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetItem 物料详情
// GET /api/v1/srm/items/:id
func (h *CatalogHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, item)
}

// StockMovements 物料库存流水
// GET /api/v1/srm/items/:id/stock-movements
func (h *CatalogHandler) StockMovements(c *gin.Context) {
	movements, err := h.svc.StockMovements(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, movements)
}

// CreateItem 新增物料
// POST /api/v1/srm/items
func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.svc.CreateItem(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, item)
}
