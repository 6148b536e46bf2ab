package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册SRM路由，srm 组需已挂载 JWTAuth
func RegisterRoutes(srm *gin.RouterGroup, h *Handlers) {
	approve := middleware.RequirePermission(middleware.PermApprove)
	catalog := middleware.RequirePermission(middleware.PermCatalog)

	// 请购单
	reqs := srm.Group("/requisitions")
	{
		reqs.GET("", h.Requisition.List)
		reqs.POST("", h.Requisition.Create)
		reqs.GET("/:id", h.Requisition.Get)
		reqs.PUT("/:id", h.Requisition.Update)
		reqs.PUT("/:id/status", approve, h.Requisition.UpdateStatus)
		reqs.POST("/:id/adjust", approve, h.Requisition.Adjust)
	}

	// 采购订单
	pos := srm.Group("/purchase-orders")
	{
		pos.GET("", h.PO.ListPOs)
		pos.GET("/export", h.PO.ExportPOs)
		pos.POST("", h.PO.CreatePO)
		pos.GET("/:id", h.PO.GetPO)
		pos.POST("/:id/approve", approve, h.PO.ApprovePO)
		pos.POST("/:id/reject", approve, h.PO.RejectPO)
	}

	// 服务目录
	services := srm.Group("/services")
	{
		services.GET("", h.Catalog.ListServices)
		services.POST("", catalog, h.Catalog.CreateService)
		services.PUT("/:id", catalog, h.Catalog.UpdateService)
		services.DELETE("/:id", catalog, h.Catalog.DeleteService)
	}

	// 物料
	items := srm.Group("/items")
	{
		items.GET("", h.Catalog.ListItems)
		items.POST("", catalog, h.Catalog.CreateItem)
		items.GET("/:id", h.Catalog.GetItem)
		items.GET("/:id/stock-movements", h.Catalog.StockMovements)
	}

	// 供应商
	suppliers := srm.Group("/suppliers")
	{
		suppliers.GET("", h.Supplier.List)
		suppliers.POST("", h.Supplier.Create)
		suppliers.GET("/:id", h.Supplier.Get)
	}

	// 到货
	deliveries := srm.Group("/deliveries")
	{
		deliveries.GET("", h.Delivery.List)
		deliveries.POST("", h.Delivery.Create)
		deliveries.GET("/:id", h.Delivery.Get)
		deliveries.PUT("/:id/status", h.Delivery.UpdateStatus)
		deliveries.GET("/:id/returnable-items", h.Return.AvailableItems)
		deliveries.GET("/:id/reworkable-services", h.Rework.EligibleServices)
	}

	// 退货
	returns := srm.Group("/returns")
	{
		returns.GET("", h.Return.List)
		returns.POST("", h.Return.Create)
		returns.GET("/:id", h.Return.Get)
	}

	// 返工
	reworks := srm.Group("/reworks")
	{
		reworks.GET("", h.Rework.List)
		reworks.POST("", h.Rework.Create)
		reworks.GET("/:id", h.Rework.Get)
		reworks.DELETE("/:id", h.Rework.Destroy)
		reworks.POST("/:id/cancel", h.Rework.Cancel)
	}

	// 审计日志
	audit := srm.Group("/audit-logs")
	{
		audit.GET("", h.Audit.List)
		audit.GET("/actions", h.Audit.Actions)
	}
}
