package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// Handlers SRM处理器集合
type Handlers struct {
	Requisition *RequisitionHandler
	PO          *POHandler
	Catalog     *CatalogHandler
	Supplier    *SupplierHandler
	Delivery    *DeliveryHandler
	Return      *ReturnHandler
	Rework      *ReworkHandler
	Audit       *AuditHandler
}

// NewHandlers 创建SRM处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Requisition: NewRequisitionHandler(svc.Requisition),
		PO:          NewPOHandler(svc.Procurement, svc.Export),
		Catalog:     NewCatalogHandler(svc.Catalog),
		Supplier:    NewSupplierHandler(svc.Supplier),
		Delivery:    NewDeliveryHandler(svc.Delivery),
		Return:      NewReturnHandler(svc.Return),
		Rework:      NewReworkHandler(svc.Rework),
		Audit:       NewAuditHandler(svc.Audit),
	}
}

// === 响应辅助函数（与PLM保持一致） ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// RespondError 按服务层错误类别输出响应
func RespondError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var nf *service.NotFoundError
	var ce *service.ConflictError
	switch {
	case errors.As(err, &ve):
		c.JSON(400, Response{
			Code:    40000,
			Message: "参数错误: " + ve.Error(),
			Data:    gin.H{"field": ve.Field},
		})
	case errors.As(err, &nf):
		NotFound(c, nf.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, "记录不存在")
	case errors.As(err, &ce):
		Conflict(c, ce.Error())
	case errors.Is(err, service.ErrTimeout):
		Error(c, 50400, "操作超时，请稍后重试")
	default:
		InternalError(c, err.Error())
	}
}

func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

// SuccessList 分页列表响应
func SuccessList(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// queryFilters 按key读取查询参数
func queryFilters(c *gin.Context, keys ...string) map[string]string {
	filters := make(map[string]string, len(keys))
	for _, k := range keys {
		filters[k] = c.Query(k)
	}
	return filters
}
