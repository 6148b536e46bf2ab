package service

import (
	"context"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-srm/internal/srm/entity"
	"github.com/bitfantasy/nimo-srm/internal/srm/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultTimeout = 5 * time.Second

// Options SRM业务参数
type Options struct {
	OperationTimeout  time.Duration
	PhotoTimeout      time.Duration
	AllowCustomStatus bool
}

// Deps 构建服务集合所需的依赖
type Deps struct {
	Repos    *repository.Repositories
	Logger   *zap.Logger
	Photos   PhotoStore
	Sequence SequenceSource
	Options  Options
}

// Services SRM服务集合
type Services struct {
	Requisition *RequisitionService
	Procurement *ProcurementService
	Catalog     *CatalogService
	Supplier    *SupplierService
	Delivery    *DeliveryService
	Return      *ReturnService
	Rework      *ReworkService
	Audit       *AuditService
	Export      *ExportService
}

// NewServices 创建SRM服务集合
func NewServices(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Options.OperationTimeout <= 0 {
		d.Options.OperationTimeout = defaultTimeout
	}
	if d.Options.PhotoTimeout <= 0 {
		d.Options.PhotoTimeout = defaultTimeout
	}
	if d.Photos == nil {
		d.Photos = NewLocalPhotoStore("", "")
	}

	b := &base{repos: d.Repos, logger: d.Logger, opts: d.Options}
	refs := NewReferenceGenerator(d.Sequence)

	return &Services{
		Requisition: &RequisitionService{base: b},
		Procurement: &ProcurementService{base: b},
		Catalog:     &CatalogService{base: b},
		Supplier:    &SupplierService{base: b},
		Delivery:    &DeliveryService{base: b, photos: d.Photos},
		Return:      &ReturnService{base: b, refs: refs},
		Rework:      &ReworkService{base: b, refs: refs},
		Audit:       &AuditService{base: b},
		Export:      &ExportService{base: b},
	}
}

// base 各工作流共用：超时、事务、错误归类、状态规范化
type base struct {
	repos  *repository.Repositories
	logger *zap.Logger
	opts   Options
}

func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.opts.OperationTimeout)
}

// inTx 带超时执行一个事务，错误按类别归并
func (b *base) inTx(ctx context.Context, op string, fn func(ctx context.Context, tx *repository.Repositories) error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return wrapTx(ctx, op, b.repos.Transaction(ctx, fn))
}

// read 带超时执行只读查询
func (b *base) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return wrapTx(ctx, op, fn(ctx))
}

// normalizeStatus 把口令/展示值映射到规范状态；未知值按配置决定拒绝或首字母大写后保存
func (b *base) normalizeStatus(tokens map[string]string, field, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", invalid(field, "不能为空")
	}
	if display, ok := entity.MatchStatus(tokens, value); ok {
		return display, nil
	}
	if !b.opts.AllowCustomStatus {
		return "", invalid(field, "未知状态: %s", value)
	}
	return TitleStatus(value), nil
}

// TitleStatus awaiting_pickup → Awaiting Pickup
func TitleStatus(value string) string {
	v := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	return cases.Title(language.English).String(strings.ToLower(v))
}

func newID() string {
	return uuid.New().String()[:32]
}
