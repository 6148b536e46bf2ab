package handler

import (
	"fmt"

	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// POHandler 采购订单处理器
type POHandler struct {
	svc    *service.ProcurementService
	export *service.ExportService
}

func NewPOHandler(svc *service.ProcurementService, export *service.ExportService) *POHandler {
	return &POHandler{svc: svc, export: export}
}

// ListPOs 采购订单列表
// GET /api/v1/srm/purchase-orders?supplier_id=xxx&status=xxx&order_type=xxx&search=xxx
func (h *POHandler) ListPOs(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "supplier_id", "status", "order_type", "search")

	items, total, err := h.svc.ListPOs(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "获取采购订单列表失败: "+err.Error())
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// GetPO 采购订单详情
// GET /api/v1/srm/purchase-orders/:id
func (h *POHandler) GetPO(c *gin.Context) {
	po, err := h.svc.GetPO(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, po)
}

// CreatePO 创建采购订单
// POST /api/v1/srm/purchase-orders
func (h *POHandler) CreatePO(c *gin.Context) {
	var req service.CreatePORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	po, err := h.svc.CreatePO(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, po)
}

// ApprovePO 审批采购订单
// POST /api/v1/srm/purchase-orders/:id/approve
func (h *POHandler) ApprovePO(c *gin.Context) {
	var req service.ReviewPORequest
	// 审批意见可为空
	_ = c.ShouldBindJSON(&req)

	po, err := h.svc.ApprovePO(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, po)
}

// RejectPO 驳回采购订单
// POST /api/v1/srm/purchase-orders/:id/reject
func (h *POHandler) RejectPO(c *gin.Context) {
	var req service.ReviewPORequest
	_ = c.ShouldBindJSON(&req)

	po, err := h.svc.RejectPO(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, po)
}

// ExportPOs 导出采购订单Excel
// GET /api/v1/srm/purchase-orders/export?supplier_id=xxx&status=xxx
func (h *POHandler) ExportPOs(c *gin.Context) {
	filters := queryFilters(c, "supplier_id", "status", "order_type", "search")

	f, filename, err := h.export.ExportPOs(c.Request.Context(), filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写入Excel失败: "+err.Error())
	}
}
