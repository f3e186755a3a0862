package repository

import (
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/models"

	"gorm.io/gorm"
)

// CollectionRepository 商品集合数据访问接口
type CollectionRepository interface {
	ResolveProductIDs(collectionIDs []uint) ([]uint, error)
	WithTx(tx *gorm.DB) CollectionRepository
}

// GormCollectionRepository GORM 实现
type GormCollectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository 创建集合仓库
func NewCollectionRepository(db *gorm.DB) *GormCollectionRepository {
	return &GormCollectionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCollectionRepository) WithTx(tx *gorm.DB) CollectionRepository {
	if tx == nil {
		return r
	}
	return &GormCollectionRepository{db: tx}
}

// ResolveProductIDs 将集合过滤器展开为商品ID（直接商品 + 属性值匹配，去重）
func (r *GormCollectionRepository) ResolveProductIDs(collectionIDs []uint) ([]uint, error) {
	if len(collectionIDs) == 0 {
		return []uint{}, nil
	}
	var filters []models.CollectionFilter
	if err := r.db.Where("collection_id IN ?", collectionIDs).Find(&filters).Error; err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{})
	result := make([]uint, 0)
	add := func(id uint) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}

	facetIDs := make([]uint, 0)
	for _, filter := range filters {
		switch filter.Type {
		case constants.CollectionFilterProduct:
			if filter.ProductID != nil {
				add(*filter.ProductID)
			}
		case constants.CollectionFilterFacet:
			if filter.FacetValueID != nil {
				facetIDs = append(facetIDs, *filter.FacetValueID)
			}
		}
	}
	if len(facetIDs) > 0 {
		var productIDs []uint
		if err := r.db.Model(&models.ProductFacetValue{}).
			Where("facet_value_id IN ?", facetIDs).
			Distinct().
			Pluck("product_id", &productIDs).Error; err != nil {
			return nil, err
		}
		for _, id := range productIDs {
			add(id)
		}
	}
	return result, nil
}
