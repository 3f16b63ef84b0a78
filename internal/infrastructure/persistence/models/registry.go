package models

import (
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/domain/metadata"
	"github.com/shopspring/decimal"
)

// Entity names of the catalog schema
const (
	EntityCategory                = "Category"
	EntityProduct                 = "Product"
	EntityBundleProduct           = "BundleProduct"
	EntityMedia                   = "Media"
	EntityCategoryProduct         = "CategoryProduct"
	EntityFeaturedCategoryProduct = "FeaturedCategoryProduct"
	EntityProductMedia            = "ProductMedia"
)

// CatalogEntityTypes builds the admin metadata of every catalog model
func CatalogEntityTypes() []*metadata.EntityType {
	category := metadata.NewEntityType[Category](EntityCategory, "categories",
		metadata.ID[Category]("id", "id", func(m *Category) *int64 { return &m.ID }),
		metadata.String[Category]("name", "name", func(m *Category) *string { return &m.Name }),
		metadata.String[Category]("description", "description", func(m *Category) *string { return &m.Description }),
		metadata.Bool[Category]("active", "active", func(m *Category) *bool { return &m.Active }),
		metadata.Collection("categoryProducts", EntityCategoryProduct),
	)

	product := metadata.NewEntityType[Product](EntityProduct, "products",
		metadata.ID[Product]("id", "id", func(m *Product) *int64 { return &m.ID }),
		metadata.String[Product]("name", "name", func(m *Product) *string { return &m.Name }),
		metadata.String[Product]("sku", "sku", func(m *Product) *string { return &m.SKU }),
		metadata.Decimal[Product]("price", "price", func(m *Product) *decimal.Decimal { return &m.Price }),
		metadata.Bool[Product]("active", "active", func(m *Product) *bool { return &m.Active }),
		metadata.Decimal[Product]("dimension.width", "dimension_width", func(m *Product) *decimal.Decimal { return &m.Dimension.Width }),
		metadata.Decimal[Product]("dimension.height", "dimension_height", func(m *Product) *decimal.Decimal { return &m.Dimension.Height }),
		metadata.Decimal[Product]("dimension.depth", "dimension_depth", func(m *Product) *decimal.Decimal { return &m.Dimension.Depth }),
		metadata.Collection("productMedia", EntityProductMedia),
	)

	bundle := metadata.Extend[Product, BundleProduct](product, EntityBundleProduct, "",
		func(m *BundleProduct) *Product { return &m.Product },
		metadata.Decimal[BundleProduct]("bundleDiscount", "bundle_discount", func(m *BundleProduct) *decimal.Decimal { return &m.BundleDiscount }),
	)

	media := metadata.NewEntityType[Media](EntityMedia, "media",
		metadata.StringID[Media]("id", "id", func(m *Media) *string { return &m.ID }),
		metadata.String[Media]("url", "url", func(m *Media) *string { return &m.URL }),
		metadata.String[Media]("title", "title", func(m *Media) *string { return &m.Title }),
		metadata.String[Media]("altText", "alt_text", func(m *Media) *string { return &m.AltText }),
	)

	categoryProduct := metadata.NewEntityType[CategoryProduct](EntityCategoryProduct, "category_products",
		metadata.ID[CategoryProduct]("id", "id", func(m *CategoryProduct) *int64 { return &m.ID }),
		metadata.Ref[CategoryProduct]("category", "category_id", EntityCategory, func(m *CategoryProduct) *int64 { return &m.CategoryID }),
		metadata.Ref[CategoryProduct]("product", "product_id", EntityProduct, func(m *CategoryProduct) *int64 { return &m.ProductID }),
		metadata.Decimal[CategoryProduct]("sequence", "sequence", func(m *CategoryProduct) *decimal.Decimal { return &m.Sequence }),
	)
	categoryProduct.Sandboxed = true

	featured := metadata.Extend[CategoryProduct, FeaturedCategoryProduct](categoryProduct, EntityFeaturedCategoryProduct, "",
		func(m *FeaturedCategoryProduct) *CategoryProduct { return &m.CategoryProduct },
		metadata.String[FeaturedCategoryProduct]("promotionMessage", "promotion_message", func(m *FeaturedCategoryProduct) *string { return &m.PromotionMessage }),
	)

	productMedia := metadata.NewEntityType[ProductMedia](EntityProductMedia, "product_media",
		metadata.ID[ProductMedia]("id", "id", func(m *ProductMedia) *int64 { return &m.ID }),
		metadata.Ref[ProductMedia]("product", "product_id", EntityProduct, func(m *ProductMedia) *int64 { return &m.ProductID }),
		metadata.StringRef[ProductMedia]("media", "media_id", EntityMedia, func(m *ProductMedia) *string { return &m.MediaID }),
		metadata.String[ProductMedia]("mediaKey", "media_key", func(m *ProductMedia) *string { return &m.MediaKey }),
		metadata.Decimal[ProductMedia]("displayOrder", "display_order", func(m *ProductMedia) *decimal.Decimal { return &m.DisplayOrder }),
	)
	productMedia.Sandboxed = true

	return []*metadata.EntityType{category, product, bundle, media, categoryProduct, featured, productMedia}
}

// RegisterCatalog registers the catalog schema with reg
func RegisterCatalog(reg *metadata.Registry) error {
	return reg.Register(CatalogEntityTypes()...)
}

// CatalogCollections are the adorned target list collections exposed by the
// admin API
func CatalogCollections() []admin.Collection {
	return []admin.Collection{
		{
			Name:          "categoryProducts",
			CeilingEntity: EntityProduct,
			List: admin.AdornedTargetList{
				CollectionFieldName: "categoryProducts",
				LinkedObjectPath:    "category",
				LinkedIDProperty:    "id",
				TargetObjectPath:    "product",
				TargetIDProperty:    "id",
				JoinEntity:          EntityCategoryProduct,
				SortField:           "sequence",
				SortAscending:       true,
				Mutable:             true,
			},
		},
		{
			Name:          "featuredProducts",
			CeilingEntity: EntityProduct,
			List: admin.AdornedTargetList{
				CollectionFieldName: "featuredProducts",
				LinkedObjectPath:    "category",
				LinkedIDProperty:    "id",
				TargetObjectPath:    "product",
				TargetIDProperty:    "id",
				JoinEntity:          EntityCategoryProduct,
				JoinPolymorphicType: EntityFeaturedCategoryProduct,
				SortField:           "sequence",
				SortAscending:       true,
				Mutable:             true,
			},
		},
		{
			Name:          "productMedia",
			CeilingEntity: EntityMedia,
			List: admin.AdornedTargetList{
				CollectionFieldName: "productMedia",
				LinkedObjectPath:    "product",
				LinkedIDProperty:    "id",
				TargetObjectPath:    "media",
				TargetIDProperty:    "id",
				JoinEntity:          EntityProductMedia,
				SortField:           "displayOrder",
				SortAscending:       true,
				Mutable:             true,
			},
			ExcludeFields: []string{"altText"},
		},
		{
			Name:          "productCategories",
			CeilingEntity: EntityCategory,
			List: admin.AdornedTargetList{
				CollectionFieldName: "productCategories",
				LinkedObjectPath:    "category",
				LinkedIDProperty:    "id",
				TargetObjectPath:    "product",
				TargetIDProperty:    "id",
				JoinEntity:          EntityCategoryProduct,
				Inverse:             true,
				Mutable:             false,
			},
			PopulateToOneFields: true,
		},
	}
}
