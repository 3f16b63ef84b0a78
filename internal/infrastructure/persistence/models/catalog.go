package models

import (
	"github.com/shopspring/decimal"
)

// Category is a merchandising category
type Category struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Active      bool   `gorm:"not null"`
	Timestamps
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// Dimension is embedded in Product as dimension_* columns
type Dimension struct {
	Width  decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Height decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	Depth  decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
}

// Product is a sellable product
type Product struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Name      string          `gorm:"type:varchar(200);not null"`
	SKU       string          `gorm:"column:sku;type:varchar(64);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active    bool            `gorm:"not null"`
	Dimension Dimension       `gorm:"embedded;embeddedPrefix:dimension_"`
	Timestamps
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// BundleProduct is a product sold as a bundle. It shares the products table.
type BundleProduct struct {
	Product
	BundleDiscount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (BundleProduct) TableName() string {
	return "products"
}

// Media is an asset keyed by an externally assigned string id
type Media struct {
	ID      string `gorm:"primaryKey;type:varchar(64)"`
	URL     string `gorm:"column:url;type:varchar(1024);not null"`
	Title   string `gorm:"type:varchar(200)"`
	AltText string `gorm:"type:varchar(200)"`
	Timestamps
}

// TableName returns the table name for GORM
func (Media) TableName() string {
	return "media"
}

// CategoryProduct places a product in a category at a fractional sequence
type CategoryProduct struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	CategoryID int64           `gorm:"not null;index"`
	ProductID  int64           `gorm:"not null;index"`
	Sequence   decimal.Decimal `gorm:"type:decimal(19,10);not null;default:0"`
	SandboxModel
	Timestamps
}

// TableName returns the table name for GORM
func (CategoryProduct) TableName() string {
	return "category_products"
}

// FeaturedCategoryProduct is a category placement carrying a promotion
type FeaturedCategoryProduct struct {
	CategoryProduct
	PromotionMessage string `gorm:"type:varchar(255);not null;default:''"`
}

// TableName returns the table name for GORM
func (FeaturedCategoryProduct) TableName() string {
	return "category_products"
}

// ProductMedia attaches a media asset to a product in display order
type ProductMedia struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	ProductID    int64           `gorm:"not null;index"`
	MediaID      string          `gorm:"type:varchar(64);not null;index"`
	MediaKey     string          `gorm:"type:varchar(64)"`
	DisplayOrder decimal.Decimal `gorm:"type:decimal(19,10);not null;default:0"`
	SandboxModel
	Timestamps
}

// TableName returns the table name for GORM
func (ProductMedia) TableName() string {
	return "product_media"
}

// AllModels lists every model for auto-migration in tests
func AllModels() []any {
	return []any{
		&Category{},
		&Product{},
		&BundleProduct{},
		&Media{},
		&CategoryProduct{},
		&FeaturedCategoryProduct{},
		&ProductMedia{},
	}
}
