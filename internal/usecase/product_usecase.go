package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 商品詳細のキャッシュ（Redis）。nilならキャッシュしない
type ProductCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	inventory   repo.InventoryRepository
	cache       ProductCache
	cacheTTL    time.Duration
	log         *zap.Logger
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	inventory repo.InventoryRepository,
	cache ProductCache,
	cacheTTL time.Duration,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		tx:          tx,
		productRepo: productRepo,
		inventory:   inventory,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: strings.TrimSpace(in.Category),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

type VariantDetail struct {
	model.ProductVariant
	AvailableQuantity int64 `json:"available_quantity"`
}

type ProductDetail struct {
	model.Product
	Variants          []VariantDetail `json:"variants"`
	AvailableQuantity int64           `json:"available_quantity"`
	InStock           bool            `json:"in_stock"`
}

// キャッシュに載せる部分。在庫は毎回読む
type cachedProduct struct {
	Product  model.Product          `json:"product"`
	Variants []model.ProductVariant `json:"variants"`
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductDetail, error) {
	if productID <= 0 {
		return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	cp, err := u.loadProduct(ctx, productID)
	if err != nil {
		return ProductDetail{}, err
	}
	if !cp.Product.IsActive() {
		return ProductDetail{}, NewHTTPError(http.StatusNotFound, "Product not found")
	}

	out := ProductDetail{
		Product:  cp.Product,
		Variants: make([]VariantDetail, 0, len(cp.Variants)),
	}

	rows, err := u.inventory.ListByProduct(ctx, productID, nil)
	if err != nil {
		// 在庫が読めなくても商品は見せる（在庫0扱い）
		u.log.Warn("inventory read failed on product detail",
			zap.Int64("product_id", productID),
			zap.Error(err))
		rows = nil
	}
	out.AvailableQuantity = max(model.SumEffective(rows), 0)
	out.InStock = out.AvailableQuantity > 0

	for _, v := range cp.Variants {
		var sum int64
		for _, row := range rows {
			if row.VariantID != nil && *row.VariantID == v.ID {
				sum += row.Effective()
			}
		}
		out.Variants = append(out.Variants, VariantDetail{ProductVariant: v, AvailableQuantity: max(sum, 0)})
	}
	return out, nil
}

func (u *ProductUsecase) loadProduct(ctx context.Context, productID int64) (cachedProduct, error) {
	key := productCacheKey(productID)
	if u.cache != nil {
		var cp cachedProduct
		err := u.cache.GetJSON(ctx, key, &cp)
		if err == nil {
			return cp, nil
		}
		u.log.Debug("product cache miss", zap.String("key", key), zap.Error(err))
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return cachedProduct{}, notFoundOr(err, "Product not found")
	}
	variants, err := u.productRepo.ListVariants(ctx, productID)
	if err != nil {
		return cachedProduct{}, internalError(err)
	}
	cp := cachedProduct{Product: p, Variants: variants}

	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, key, cp, u.cacheTTL); err != nil {
			u.log.Warn("product cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return cp, nil
}

func (u *ProductUsecase) invalidate(ctx context.Context, productID int64) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Del(ctx, productCacheKey(productID)); err != nil {
		u.log.Warn("product cache invalidate failed", zap.Int64("product_id", productID), zap.Error(err))
	}
}

type VariantInput struct {
	Name  string           `json:"name"`
	SKU   string           `json:"sku"`
	Price *decimal.Decimal `json:"price"`
}

type AdminCreateProductInput struct {
	Name         string
	Description  string
	Category     string
	Images       []string
	Price        decimal.Decimal
	Status       string
	Variants     []VariantInput
	InitialStock int64
}

func parseProductStatus(s string) (model.ProductStatus, bool) {
	switch st := model.ProductStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case model.ProductStatusActive, model.ProductStatusDraft, model.ProductStatusArchived:
		return st, true
	}
	return "", false
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminCreateProductInput) (ProductDetail, error) {
	if adminUserID <= 0 {
		return ProductDetail{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price.IsNegative() {
		return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	if in.InitialStock < 0 {
		return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "stock must be >= 0")
	}
	status := model.ProductStatusDraft
	if in.Status != "" {
		st, ok := parseProductStatus(in.Status)
		if !ok {
			return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		status = st
	}

	variants := make([]model.ProductVariant, 0, len(in.Variants))
	for _, v := range in.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "variant name required")
		}
		pv := model.ProductVariant{Name: strings.TrimSpace(v.Name), SKU: strings.TrimSpace(v.SKU)}
		if v.Price != nil {
			if v.Price.IsNegative() {
				return ProductDetail{}, NewHTTPError(http.StatusBadRequest, "variant price must be >= 0")
			}
			pv.Price = decimal.NewNullDecimal(*v.Price)
		}
		variants = append(variants, pv)
	}

	var out ProductDetail
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().Create(ctx, model.Product{
			Name:        name,
			Description: in.Description,
			Category:    strings.TrimSpace(in.Category),
			Images:      in.Images,
			Price:       in.Price,
			Status:      status,
		})
		if err != nil {
			return internalError(err)
		}

		created := []model.ProductVariant{}
		if len(variants) > 0 {
			created, err = r.Products().CreateVariants(ctx, p.ID, variants)
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "sku already exists")
			}
			if err != nil {
				return internalError(err)
			}
		}

		if in.InitialStock > 0 {
			inv, err := r.Inventory().Create(ctx, model.Inventory{
				ProductID:         p.ID,
				Location:          "main",
				QuantityAvailable: in.InitialStock,
				LowStockThreshold: 5,
			})
			if err != nil {
				return internalError(err)
			}
			if err := r.Inventory().CreateMovement(ctx, model.InventoryMovement{
				InventoryID:   inv.ID,
				Type:          model.MovementAdjust,
				Quantity:      in.InitialStock,
				ReferenceType: "admin",
				ActorUserID:   &adminUserID,
				Reason:        "initial stock",
			}); err != nil {
				return internalError(err)
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionCreateProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   p.ID,
			BeforeJSON:   "{}",
			AfterJSON:    mustJSON(p),
		}); err != nil {
			return internalError(err)
		}

		out = ProductDetail{
			Product:           p,
			Variants:          make([]VariantDetail, 0, len(created)),
			AvailableQuantity: in.InitialStock,
			InStock:           in.InitialStock > 0,
		}
		for _, v := range created {
			out.Variants = append(out.Variants, VariantDetail{ProductVariant: v})
		}
		return nil
	})
	if err != nil {
		return ProductDetail{}, err
	}
	return out, nil
}

// PATCH /admin/products/:id の入力。nilは変更しない
type AdminUpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Images      *[]string
	Price       *decimal.Decimal
	Status      *string
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminUpdateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if in.Price != nil && in.Price.IsNegative() {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	var status model.ProductStatus
	if in.Status != nil {
		st, ok := parseProductStatus(*in.Status)
		if !ok {
			return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		status = st
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "Product not found")
		}

		after := before
		if in.Name != nil {
			after.Name = strings.TrimSpace(*in.Name)
		}
		if in.Description != nil {
			after.Description = *in.Description
		}
		if in.Category != nil {
			after.Category = strings.TrimSpace(*in.Category)
		}
		if in.Images != nil {
			after.Images = *in.Images
		}
		if in.Price != nil {
			after.Price = *in.Price
		}
		if in.Status != nil {
			after.Status = status
		}

		if err := r.Products().Update(ctx, after); err != nil {
			return notFoundOr(err, "Product not found")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   mustJSON(before),
			AfterJSON:    mustJSON(after),
		}); err != nil {
			return internalError(err)
		}

		out = after
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	u.invalidate(ctx, productID)
	return out, nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "Product not found")
		}
		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			return notFoundOr(err, "Product not found")
		}

		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   mustJSON(before),
			AfterJSON:    "{}",
		})
	})
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return err
		}
		return internalError(err)
	}

	u.invalidate(ctx, productID)
	return nil
}
