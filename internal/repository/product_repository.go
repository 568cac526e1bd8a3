package repository

import (
	"context"

	"reweave/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	// 公開中（status=active）の商品だけ
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Product, error)

	// その商品のバリエーションでなければErrNotFound
	FindVariant(ctx context.Context, productID, variantID int64) (model.ProductVariant, error)
	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)
	CreateVariants(ctx context.Context, productID int64, variants []model.ProductVariant) ([]model.ProductVariant, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
