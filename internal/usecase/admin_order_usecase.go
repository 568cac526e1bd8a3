package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reweave/internal/domain/model"
	"reweave/internal/domain/pricing"
	repo "reweave/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, log *zap.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, log: log}
}

// 進めてよい遷移。cancelledは別扱い
var nextOrderStatus = map[model.OrderStatus]model.OrderStatus{
	model.OrderStatusPending:    model.OrderStatusConfirmed,
	model.OrderStatusConfirmed:  model.OrderStatusProcessing,
	model.OrderStatusProcessing: model.OrderStatusShipped,
	model.OrderStatusShipped:    model.OrderStatusDelivered,
}

// 注文一覧（新しい順）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !validOrderStatus(model.OrderStatus(f.Status)) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return internalError(err)
		}
		outs, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// UpdateStatus はステータスを1段進めるか取り消す。
// cancelledで予約を戻し、shippedで予約を出荷済みに変える。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, status string) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	newStatus := model.OrderStatus(strings.ToLower(strings.TrimSpace(status)))
	if !validOrderStatus(newStatus) {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}

		// すでに同じなら何もしない（200）
		if o.Status == newStatus {
			out, err = orderWithItems(ctx, r, o)
			return err
		}

		before := o.Status
		ref := stockRef{OrderID: o.ID, Actor: &actorAdminUserID}

		switch {
		case newStatus == model.OrderStatusCancelled:
			if !o.Status.HoldsReservation() {
				return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot cancel %s order", o.Status))
			}
			o, err = cancelOrder(ctx, r, o, ref, "cancelled by admin")
			if err != nil {
				return err
			}

		case nextOrderStatus[o.Status] == newStatus:
			if newStatus == model.OrderStatusShipped {
				items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
				if err != nil {
					return internalError(err)
				}
				for _, it := range items {
					if err := shipStock(ctx, r, ref, it.ProductID, it.VariantID, it.Quantity); err != nil {
						return err
					}
				}
			}
			if err := r.Orders().UpdateStatus(ctx, o.ID, newStatus); err != nil {
				return notFoundOr(err, "Order not found")
			}
			o.Status = newStatus

		default:
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot change status from %s to %s", o.Status, newStatus))
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   mustJSON(map[string]string{"status": string(before)}),
			AfterJSON:    mustJSON(map[string]string{"status": string(o.Status)}),
		}); err != nil {
			return internalError(err)
		}

		out, err = orderWithItems(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// UpdatePaymentStatus は pending→paid→refunded。
// paidにしたとき、pendingの注文はconfirmedに進めてポイントを付ける。
func (u *AdminOrderUsecase) UpdatePaymentStatus(ctx context.Context, actorAdminUserID int64, orderID int64, status string) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	newStatus := model.PaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	switch newStatus {
	case model.PaymentStatusPending, model.PaymentStatusPaid, model.PaymentStatusRefunded:
	default:
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if o.PaymentStatus == newStatus {
			out, err = orderWithItems(ctx, r, o)
			return err
		}

		ok := (o.PaymentStatus == model.PaymentStatusPending && newStatus == model.PaymentStatusPaid) ||
			(o.PaymentStatus == model.PaymentStatusPaid && newStatus == model.PaymentStatusRefunded)
		if !ok {
			return NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot change payment status from %s to %s", o.PaymentStatus, newStatus))
		}
		if newStatus == model.PaymentStatusPaid && o.Status == model.OrderStatusCancelled {
			return NewHTTPError(http.StatusBadRequest, "cannot mark cancelled order as paid")
		}

		before := map[string]string{"payment_status": string(o.PaymentStatus), "status": string(o.Status)}

		if err := r.Orders().UpdatePaymentStatus(ctx, o.ID, newStatus); err != nil {
			return notFoundOr(err, "Order not found")
		}
		o.PaymentStatus = newStatus

		if newStatus == model.PaymentStatusPaid {
			if o.Status == model.OrderStatusPending {
				if err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusConfirmed); err != nil {
					return notFoundOr(err, "Order not found")
				}
				o.Status = model.OrderStatusConfirmed
			}
			if err := awardPurchasePoints(ctx, r, o); err != nil {
				return err
			}
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdatePaymentStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   mustJSON(before),
			AfterJSON:    mustJSON(map[string]string{"payment_status": string(o.PaymentStatus), "status": string(o.Status)}),
		}); err != nil {
			return internalError(err)
		}

		out, err = orderWithItems(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 支払い確定でポイント付与。ランクは加算後の残高で決め直す
func awardPurchasePoints(ctx context.Context, r repo.TxRepos, o model.Order) error {
	user, err := r.Users().FindByID(ctx, o.UserID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	points := pricing.PointsForPurchase(o.Total, user.LoyaltyTier)
	if points <= 0 {
		return nil
	}

	balance, err := r.Users().AddLoyaltyPoints(ctx, o.UserID, points)
	if err != nil {
		return internalError(err)
	}
	if tier := pricing.TierFor(balance); tier != user.LoyaltyTier {
		if err := r.Users().SetLoyaltyTier(ctx, o.UserID, tier); err != nil {
			return internalError(err)
		}
	}

	orderID := o.ID
	if err := r.Loyalty().Create(ctx, model.LoyaltyTransaction{
		UserID:      o.UserID,
		Points:      points,
		Type:        model.LoyaltyEarned,
		Source:      "purchase",
		OrderID:     &orderID,
		Description: "Points earned for order " + o.OrderNumber,
	}); err != nil {
		return internalError(err)
	}
	return nil
}

func orderWithItems(ctx context.Context, r repo.TxRepos, o model.Order) (OrderOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, internalError(err)
	}
	return OrderOutput{Order: o, Items: items}, nil
}

func validOrderStatus(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusPending, model.OrderStatusConfirmed, model.OrderStatusProcessing,
		model.OrderStatusShipped, model.OrderStatusDelivered, model.OrderStatusCancelled:
		return true
	}
	return false
}

// 期間パラメータ（from/to）。空ならnil、形式が違えばfalse
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
