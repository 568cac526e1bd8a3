package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"reweave/internal/domain/model"
	"reweave/internal/domain/pricing"
	repo "reweave/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 注文番号がぶつかったときのやり直し回数
const maxOrderNumberAttempts = 3

// 受け付ける支払い方法（codは代引き）
var checkoutPaymentMethods = map[string]bool{
	string(model.PaymentMethodCard):   true,
	string(model.PaymentMethodFPX):    true,
	string(model.PaymentMethodWallet): true,
	"cod":                             true,
}

type OrderUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger

	now      func() time.Time
	randIntN func(n int) int
}

func NewOrderUsecase(tx repo.TransactionManager, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		log:      log,
		now:      time.Now,
		randIntN: rand.IntN,
	}
}

type AddressInput struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine1  string `json:"address_line1"`
	AddressLine2  string `json:"address_line2"`
	City          string `json:"city"`
	State         string `json:"state"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
}

// 必須項目を確認してスナップショットにする
func (a AddressInput) snapshot() (model.AddressSnapshot, error) {
	s := model.AddressSnapshot{
		RecipientName: strings.TrimSpace(a.RecipientName),
		Phone:         strings.TrimSpace(a.Phone),
		AddressLine1:  strings.TrimSpace(a.AddressLine1),
		AddressLine2:  strings.TrimSpace(a.AddressLine2),
		City:          strings.TrimSpace(a.City),
		State:         strings.TrimSpace(a.State),
		PostalCode:    strings.TrimSpace(a.PostalCode),
		Country:       strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if s.Country == "" {
		s.Country = "MY"
	}

	var missing []string
	for _, f := range []struct{ name, v string }{
		{"recipient_name", s.RecipientName},
		{"phone", s.Phone},
		{"address_line1", s.AddressLine1},
		{"city", s.City},
		{"state", s.State},
		{"postal_code", s.PostalCode},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return model.AddressSnapshot{}, NewHTTPError(http.StatusBadRequest, "Missing required address fields: "+strings.Join(missing, ", "))
	}
	return s, nil
}

type CheckoutInput struct {
	ShippingAddress   *AddressInput
	ShippingAddressID int64
	BillingAddress    *AddressInput
	PaymentMethod     string
	Notes             string
	IdempotencyKey    string
}

type OrderOutput struct {
	model.Order
	Items []model.OrderItem `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// Checkout はACTIVEカートを注文に変える。
// 在庫確認・注文作成・予約・カート片付けを1トランザクションで行い、途中で失敗したら何も残らない。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	pm := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if pm == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "Payment method is required")
	}
	if !checkoutPaymentMethods[pm] {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}

	var shipping *model.AddressSnapshot
	if in.ShippingAddress != nil {
		s, err := in.ShippingAddress.snapshot()
		if err != nil {
			return OrderOutput{}, err
		}
		shipping = &s
	} else if in.ShippingAddressID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "Shipping address is required")
	}

	var billing *model.AddressSnapshot
	if in.BillingAddress != nil {
		b, err := in.BillingAddress.snapshot()
		if err != nil {
			return OrderOutput{}, err
		}
		billing = &b
	}

	var (
		out OrderOutput
		err error
	)
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		out, err = u.checkoutOnce(ctx, userID, in, pm, key, shipping, billing)
		if !errors.Is(err, repo.ErrConflict) {
			break
		}
		u.log.Warn("order insert conflict, retrying",
			zap.Int64("user_id", userID),
			zap.Int("attempt", attempt))
	}
	if errors.Is(err, repo.ErrConflict) {
		return OrderOutput{}, internalError(err)
	}
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) checkoutOnce(ctx context.Context, userID int64, in CheckoutInput, pm, key string, shipping, billing *model.AddressSnapshot) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return internalError(err)
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return internalError(err)
				}
				out = OrderOutput{Order: existing, Items: items}
				return nil
			}
		}

		// 保存済み住所（本人のものだけ）
		ship := shipping
		if ship == nil {
			addr, err := r.Addresses().FindByIDForUser(ctx, in.ShippingAddressID, userID)
			if err != nil {
				return notFoundOr(err, "Address not found")
			}
			s := addr.Snapshot()
			ship = &s
		}
		bill := billing
		if bill == nil {
			bill = ship
		}

		cart, err := r.Carts().FindActiveByOwner(ctx, model.CartOwner{UserID: userID})
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusBadRequest, "Cart is empty")
		}
		if err != nil {
			return internalError(err)
		}

		// 保存済みの金額は信用しない
		cart, cartItems, err := recalculate(ctx, r, cart)
		if err != nil {
			return internalError(err)
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "Cart is empty")
		}

		// 全明細を先にロックして確認する。1つでも足りなければ何も書かない
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err != nil && !errors.Is(err, repo.ErrNotFound) {
				return internalError(err)
			}
			if err != nil || !p.IsActive() {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Product %d is no longer available", ci.ProductID))
			}

			rows, err := r.Inventory().LockByProduct(ctx, ci.ProductID, ci.VariantID)
			if err != nil {
				return internalError(err)
			}
			if avail := max(model.SumEffective(rows), 0); avail < ci.Quantity {
				return &InsufficientInventoryError{ProductID: ci.ProductID, VariantID: ci.VariantID, Requested: ci.Quantity, Available: avail}
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				VariantID:           ci.VariantID,
				ProductNameSnapshot: p.Name,
				Quantity:            ci.Quantity,
				Price:               ci.Price,
				TotalPrice:          ci.Price.Mul(decimal.NewFromInt(ci.Quantity)),
			})
		}

		order := model.Order{
			OrderNumber:     pricing.GenerateOrderNumber(u.now(), u.randIntN),
			UserID:          userID,
			CartID:          cart.ID,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			Subtotal:        cart.Subtotal,
			Tax:             cart.Tax,
			Shipping:        cart.Shipping,
			Total:           cart.Total,
			ShippingAddress: *ship,
			BillingAddress:  *bill,
			PaymentMethod:   pm,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		created, err := r.Orders().Create(ctx, order)
		if err != nil {
			// ErrConflictはそのまま返して外側でやり直す
			if errors.Is(err, repo.ErrConflict) {
				return err
			}
			return internalError(err)
		}

		if err := r.OrderItems().CreateBulk(ctx, created.ID, orderItems); err != nil {
			return internalError(err)
		}

		ref := stockRef{OrderID: created.ID, Actor: &userID}
		for _, it := range orderItems {
			if err := reserveStock(ctx, r, ref, it.ProductID, it.VariantID, it.Quantity); err != nil {
				return err
			}
		}

		// カートを閉じて片付け
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCompleted); err != nil {
			return internalError(err)
		}
		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return internalError(err)
		}
		zero := pricing.ZeroTotals()
		cart.Subtotal, cart.Tax, cart.Shipping, cart.Total = zero.Subtotal, zero.Tax, zero.Shipping, zero.Total
		if err := r.Carts().UpdateTotals(ctx, cart); err != nil {
			return internalError(err)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, created.ID)
		if err != nil {
			return internalError(err)
		}
		out = OrderOutput{Order: created, Items: items}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return internalError(err)
		}
		outs, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: outs, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "Order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(err)
		}
		out = OrderOutput{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// CancelMyOrder は発送前の自分の注文を取り消す。
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "Order not found")
		}
		if !o.Status.HoldsReservation() {
			return NewHTTPError(http.StatusBadRequest, "Order cannot be cancelled")
		}

		o, err = cancelOrder(ctx, r, o, stockRef{OrderID: o.ID, Actor: &userID}, "cancelled by customer")
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(err)
		}
		out = OrderOutput{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// cancelOrder は予約を戻してcancelledにする。支払い済みならrefunded。
// 呼び出し側でロック済み・取消可能な状態であることを確認しておく。
func cancelOrder(ctx context.Context, r repo.TxRepos, o model.Order, ref stockRef, reason string) (model.Order, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return model.Order{}, internalError(err)
	}
	for _, it := range items {
		if err := releaseStock(ctx, r, ref, it.ProductID, it.VariantID, it.Quantity, reason); err != nil {
			return model.Order{}, err
		}
	}

	if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusCancelled); err != nil {
		return model.Order{}, notFoundOr(err, "Order not found")
	}
	o.Status = model.OrderStatusCancelled

	if o.PaymentStatus == model.PaymentStatusPaid {
		if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, model.PaymentStatusRefunded); err != nil {
			return model.Order{}, notFoundOr(err, "Order not found")
		}
		o.PaymentStatus = model.PaymentStatusRefunded
	}
	return o, nil
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, internalError(err)
		}
		outs = append(outs, OrderOutput{Order: o, Items: items})
	}
	return outs, nil
}
