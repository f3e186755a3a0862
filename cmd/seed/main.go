package main

import (
	"log"
	"time"

	"github.com/dujiao-next/checkout/internal/config"
	"github.com/dujiao-next/checkout/internal/constants"
	"github.com/dujiao-next/checkout/internal/logger"
	"github.com/dujiao-next/checkout/internal/models"

	"github.com/shopspring/decimal"
)

type seedVariant struct {
	SKU            string
	Name           string
	Price          string
	Stock          int
	TrackInventory bool
	TaxCode        string
}

type seedProduct struct {
	Name     string
	Variants []seedVariant
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultTaxRates(); err != nil {
		stdLog.Printf("Failed to seed tax rates: %v", err)
	}

	products := []seedProduct{
		{
			Name: "Espresso Beans",
			Variants: []seedVariant{
				{SKU: "BEAN-250", Name: "250g", Price: "12.40", Stock: 40, TrackInventory: true, TaxCode: constants.TaxCodeFood},
				{SKU: "BEAN-1000", Name: "1kg", Price: "39.90", Stock: 10, TrackInventory: true, TaxCode: constants.TaxCodeFood},
			},
		},
		{
			Name: "Brewing Guide",
			Variants: []seedVariant{
				{SKU: "BOOK-BREW", Name: "Paperback", Price: "9.99", Stock: 25, TrackInventory: true, TaxCode: constants.TaxCodeBooks},
				{SKU: "BOOK-BREW-PDF", Name: "PDF", Price: "4.99", Stock: 0, TrackInventory: false, TaxCode: constants.TaxCodeBooks},
			},
		},
		{
			Name: "Ceramic Dripper",
			Variants: []seedVariant{
				{SKU: "DRIP-WHITE", Name: "White", Price: "24.80", Stock: 3, TrackInventory: true, TaxCode: constants.TaxCodeStandard},
			},
		},
	}

	productIDs := map[string]uint{}
	for _, item := range products {
		product, err := ensureProduct(stdLog, item)
		if err != nil {
			stdLog.Printf("Failed to seed product %s: %v", item.Name, err)
			continue
		}
		productIDs[item.Name] = product.ID
	}

	// 集合：咖啡相关商品
	collection := models.Collection{Name: "Coffee"}
	if err := models.DB.Where("name = ?", collection.Name).FirstOrCreate(&collection).Error; err != nil {
		stdLog.Printf("Failed to seed collection: %v", err)
	} else {
		for _, name := range []string{"Espresso Beans", "Ceramic Dripper"} {
			productID, ok := productIDs[name]
			if !ok {
				continue
			}
			filter := models.CollectionFilter{
				CollectionID: collection.ID,
				Type:         constants.CollectionFilterProduct,
				ProductID:    &productID,
			}
			if err := models.DB.Where("collection_id = ? AND product_id = ?", collection.ID, productID).FirstOrCreate(&filter).Error; err != nil {
				stdLog.Printf("Failed to seed collection filter for %s: %v", name, err)
			}
		}
	}

	now := time.Now().UTC()
	later := now.AddDate(0, 3, 0)
	promotions := []models.Promotion{
		{
			Method:        constants.PromotionMethodCode,
			Code:          stringPtr("WELCOME10"),
			Title:         "10% off your order",
			PromotionType: constants.PromotionTypeOrder,
			DiscountType:  constants.DiscountTypePercentage,
			DiscountValue: 10,
			AppliesTo:     constants.AppliesToAll,
			StartsAt:      &now,
			EndsAt:        &later,
			Enabled:       true,
		},
		{
			Method:                      constants.PromotionMethodCode,
			Code:                        stringPtr("COFFEE5"),
			Title:                       "5.00 off coffee",
			PromotionType:               constants.PromotionTypeProduct,
			DiscountType:                constants.DiscountTypeFixedAmount,
			DiscountValue:               mustMinor("5.00"),
			AppliesTo:                   constants.AppliesToSpecificCollections,
			UsageLimitPerCustomer:       1,
			CombinesWithOtherPromotions: true,
			Enabled:                     true,
		},
		{
			Method:                      constants.PromotionMethodAutomatic,
			Title:                       "Free shipping over 50.00",
			PromotionType:               constants.PromotionTypeFreeShipping,
			DiscountType:                constants.DiscountTypeFixedAmount,
			AppliesTo:                   constants.AppliesToAll,
			MinOrderAmount:              mustMinor("50.00"),
			CombinesWithOtherPromotions: true,
			Enabled:                     true,
		},
	}
	for _, promo := range promotions {
		var existing models.Promotion
		query := models.DB.Where("title = ?", promo.Title)
		if err := query.First(&existing).Error; err == nil {
			stdLog.Printf("Promotion already exists: %s", promo.Title)
			continue
		}
		if err := models.DB.Create(&promo).Error; err != nil {
			stdLog.Printf("Failed to create promotion %s: %v", promo.Title, err)
			continue
		}
		stdLog.Printf("Created promotion: %s", promo.Title)
		if promo.AppliesTo == constants.AppliesToSpecificCollections && collection.ID != 0 {
			link := models.PromotionCollection{PromotionID: promo.ID, CollectionID: collection.ID}
			if err := models.DB.Create(&link).Error; err != nil {
				stdLog.Printf("Failed to link promotion %s to collection: %v", promo.Title, err)
			}
		}
	}

	customers := []models.Customer{
		{Email: "buyer@example.com", Name: "Demo Buyer"},
		{Email: "purchasing@example-b2b.eu", Name: "Demo Company", B2BStatus: constants.B2BStatusApproved, VatID: "FI12345678"},
	}
	for _, customer := range customers {
		record := customer
		if err := models.DB.Where("email = ?", customer.Email).FirstOrCreate(&record).Error; err != nil {
			stdLog.Printf("Failed to seed customer %s: %v", customer.Email, err)
			continue
		}
		stdLog.Printf("Customer ready: %s (id=%d)", record.Email, record.ID)
	}

	stdLog.Printf("Seed completed")
}

func ensureProduct(stdLog *log.Logger, item seedProduct) (*models.Product, error) {
	product := models.Product{Name: item.Name, Enabled: true}
	if err := models.DB.Where("name = ?", item.Name).FirstOrCreate(&product).Error; err != nil {
		return nil, err
	}
	for _, v := range item.Variants {
		var existing models.ProductVariant
		if err := models.DB.Where("sku = ?", v.SKU).First(&existing).Error; err == nil {
			stdLog.Printf("Variant already exists: %s", v.SKU)
			continue
		}
		variant := models.ProductVariant{
			ProductID:      product.ID,
			Name:           v.Name,
			SKU:            v.SKU,
			Price:          mustMinor(v.Price),
			Stock:          v.Stock,
			TrackInventory: v.TrackInventory,
			TaxCode:        v.TaxCode,
			Enabled:        true,
		}
		if err := models.DB.Create(&variant).Error; err != nil {
			return nil, err
		}
		stdLog.Printf("Created variant: %s", v.SKU)
	}
	return &product, nil
}

// mustMinor 将两位小数金额转换为最小货币单位
func mustMinor(amount string) int64 {
	return decimal.RequireFromString(amount).Shift(2).Round(0).IntPart()
}

func stringPtr(value string) *string {
	return &value
}
