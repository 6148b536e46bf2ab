package handler

import (
	"github.com/bitfantasy/nimo-srm/internal/srm/service"
	"github.com/gin-gonic/gin"
)

// AuditHandler 审计日志处理器
type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List 审计日志
// GET /api/v1/srm/audit-logs?entity_type=xxx&entity_id=xxx&user_id=xxx&type_code=1
func (h *AuditHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := queryFilters(c, "entity_type", "entity_id", "user_id", "type_code")

	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	SuccessList(c, items, total, page, pageSize)
}

// Actions 审计动作字典
// GET /api/v1/srm/audit-logs/actions
func (h *AuditHandler) Actions(c *gin.Context) {
	Success(c, h.svc.Actions())
}
