package service

import (
	"strings"
	"time"

	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"
	"github.com/dujiao-next/checkout/internal/repository"

	"gorm.io/gorm"
)

// PromotionContext 促销校验上下文
type PromotionContext struct {
	CustomerID           uint
	ExistingPromotionIDs []uint
}

// ProductScope 商品级促销的适用商品集合，All 表示全部商品
type ProductScope struct {
	All bool
	IDs map[uint]struct{}
}

// Contains 判断商品是否在适用范围内
func (s ProductScope) Contains(productID uint) bool {
	if s.All {
		return true
	}
	_, ok := s.IDs[productID]
	return ok
}

// PromotionApplication 促销在订单上的实际生效结果
type PromotionApplication struct {
	Amount int64
	Type   constants.OrderPromotionType
}

// PromotionEngine 促销校验与折扣计算
type PromotionEngine struct {
	promotionRepo  repository.PromotionRepository
	collectionRepo repository.CollectionRepository
	customerRepo   repository.CustomerRepository
	now            func() time.Time
}

// NewPromotionEngine 创建促销引擎
func NewPromotionEngine(promotionRepo repository.PromotionRepository, collectionRepo repository.CollectionRepository, customerRepo repository.CustomerRepository) *PromotionEngine {
	return &PromotionEngine{
		promotionRepo:  promotionRepo,
		collectionRepo: collectionRepo,
		customerRepo:   customerRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithTx 绑定事务
func (e *PromotionEngine) WithTx(tx *gorm.DB) *PromotionEngine {
	if tx == nil {
		return e
	}
	clone := *e
	clone.promotionRepo = e.promotionRepo.WithTx(tx)
	clone.collectionRepo = e.collectionRepo.WithTx(tx)
	clone.customerRepo = e.customerRepo.WithTx(tx)
	return &clone
}

// WithClock 替换时钟
func (e *PromotionEngine) WithClock(now func() time.Time) *PromotionEngine {
	if now == nil {
		return e
	}
	clone := *e
	clone.now = now
	return &clone
}

// NormalizeCode 优惠码统一为去空格大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode 按顺序校验优惠码：存在 → 启用 → 时间窗 → 总量 → 门槛 → 每人限用 → 叠加 → 分组
func (e *PromotionEngine) ValidateCode(code string, orderAmount int64, ctx PromotionContext) (*models.Promotion, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, promotionError(PromotionReasonInvalidCode)
	}
	promotion, err := e.promotionRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if promotion == nil {
		return nil, promotionError(PromotionReasonInvalidCode)
	}
	if !promotion.Enabled {
		return nil, promotionError(PromotionReasonNotActive)
	}
	now := e.now()
	if promotion.StartsAt != nil && now.Before(*promotion.StartsAt) {
		return nil, promotionError(PromotionReasonNotStarted)
	}
	if promotion.EndsAt != nil && now.After(*promotion.EndsAt) {
		return nil, promotionError(PromotionReasonExpired)
	}
	if err := e.checkRules(promotion, orderAmount, ctx); err != nil {
		return nil, err
	}
	return promotion, nil
}

// ValidateAutomatic 校验自动促销；时间窗由调用方预先过滤
func (e *PromotionEngine) ValidateAutomatic(promotion *models.Promotion, orderAmount int64, ctx PromotionContext) error {
	if promotion == nil {
		return promotionError(PromotionReasonInvalidCode)
	}
	if !promotion.Enabled {
		return promotionError(PromotionReasonNotActive)
	}
	return e.checkRules(promotion, orderAmount, ctx)
}

func (e *PromotionEngine) checkRules(promotion *models.Promotion, orderAmount int64, ctx PromotionContext) error {
	if promotion.UsageLimit > 0 && promotion.UsageCount >= promotion.UsageLimit {
		return promotionError(PromotionReasonLimitReached)
	}
	if promotion.MinOrderAmount > 0 && orderAmount < promotion.MinOrderAmount {
		return promotionError(PromotionReasonMinimumNotMet)
	}
	if promotion.UsageLimitPerCustomer > 0 && ctx.CustomerID != 0 {
		used, err := e.promotionRepo.CountCustomerUsage(promotion.ID, ctx.CustomerID)
		if err != nil {
			return err
		}
		if used >= int64(promotion.UsageLimitPerCustomer) {
			return promotionError(PromotionReasonPerCustomerLimitReached)
		}
	}
	existingIDs := make([]uint, 0, len(ctx.ExistingPromotionIDs))
	for _, id := range ctx.ExistingPromotionIDs {
		if id != promotion.ID {
			existingIDs = append(existingIDs, id)
		}
	}
	if len(existingIDs) > 0 {
		existing, err := e.promotionRepo.ListByIDs(existingIDs)
		if err != nil {
			return err
		}
		if !CanCombine(existing, promotion) {
			return promotionError(PromotionReasonCannotCombine)
		}
	}
	if promotion.CustomerGroupID != nil {
		if ctx.CustomerID == 0 {
			return promotionError(PromotionReasonCustomerGroupRestricted)
		}
		member, err := e.customerRepo.IsGroupMember(*promotion.CustomerGroupID, ctx.CustomerID)
		if err != nil {
			return err
		}
		if !member {
			return promotionError(PromotionReasonCustomerGroupRestricted)
		}
	}
	return nil
}

// QualifyingProducts 解析商品级促销的适用商品
func (e *PromotionEngine) QualifyingProducts(promotion *models.Promotion) (ProductScope, error) {
	switch promotion.AppliesTo {
	case constants.AppliesToSpecificProducts:
		ids, err := e.promotionRepo.ListProductIDs(promotion.ID)
		if err != nil {
			return ProductScope{}, err
		}
		return newProductScope(ids), nil
	case constants.AppliesToSpecificCollections:
		collectionIDs, err := e.promotionRepo.ListCollectionIDs(promotion.ID)
		if err != nil {
			return ProductScope{}, err
		}
		ids, err := e.collectionRepo.ResolveProductIDs(collectionIDs)
		if err != nil {
			return ProductScope{}, err
		}
		return newProductScope(ids), nil
	default:
		return ProductScope{All: true}, nil
	}
}

func newProductScope(ids []uint) ProductScope {
	scope := ProductScope{IDs: make(map[uint]struct{}, len(ids))}
	for _, id := range ids {
		scope.IDs[id] = struct{}{}
	}
	return scope
}

// ComputeApplication 按促销作用对象计算折扣金额与记录类型
func (e *PromotionEngine) ComputeApplication(promotion *models.Promotion, order *models.Order) (PromotionApplication, error) {
	switch promotion.PromotionType {
	case constants.PromotionTypeFreeShipping:
		return PromotionApplication{
			Amount: order.ShippingCharge,
			Type:   constants.OrderPromotionTypeShipping,
		}, nil
	case constants.PromotionTypeProduct:
		scope, err := e.QualifyingProducts(promotion)
		if err != nil {
			return PromotionApplication{}, err
		}
		var base int64
		for _, line := range order.Lines {
			if scope.Contains(line.ProductID) {
				base += line.LineTotal
			}
		}
		if base <= 0 {
			return PromotionApplication{}, promotionError(PromotionReasonNoQualifyingProducts)
		}
		return PromotionApplication{
			Amount: CalculateDiscount(promotion, base),
			Type:   constants.OrderPromotionTypeProduct,
		}, nil
	case constants.PromotionTypeOrder:
		return PromotionApplication{
			Amount: CalculateDiscount(promotion, order.Subtotal),
			Type:   constants.OrderPromotionTypeOrder,
		}, nil
	default:
		return PromotionApplication{}, promotionError(PromotionReasonNotActive)
	}
}

// ListActiveAutomatic 当前时间窗内启用的自动促销
func (e *PromotionEngine) ListActiveAutomatic() ([]models.Promotion, error) {
	return e.promotionRepo.ListActiveAutomatic(e.now())
}
