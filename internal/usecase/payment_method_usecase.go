package usecase

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

var (
	lastFourRe    = regexp.MustCompile(`^[0-9]{4}$`)
	expiryMonthRe = regexp.MustCompile(`^(0[1-9]|1[0-2])$`)
	expiryYearRe  = regexp.MustCompile(`^[0-9]{4}$`)
)

type PaymentMethodCreateRequest struct {
	Type        string            `json:"type"`
	Provider    string            `json:"provider"`
	Token       string            `json:"token"`
	LastFour    string            `json:"last_four"`
	ExpiryMonth string            `json:"expiry_month"`
	ExpiryYear  string            `json:"expiry_year"`
	Metadata    map[string]string `json:"metadata"`
	IsDefault   bool              `json:"is_default"`
}

// PATCH用。typeとtokenは変えられない
type PaymentMethodUpdateRequest struct {
	Provider    *string            `json:"provider"`
	LastFour    *string            `json:"last_four"`
	ExpiryMonth *string            `json:"expiry_month"`
	ExpiryYear  *string            `json:"expiry_year"`
	Metadata    *map[string]string `json:"metadata"`
	IsDefault   *bool              `json:"is_default"`
}

type PaymentMethodUsecase struct {
	tx repo.TransactionManager
}

func NewPaymentMethodUsecase(tx repo.TransactionManager) *PaymentMethodUsecase {
	return &PaymentMethodUsecase{tx: tx}
}

// カードなら下4桁と有効期限の形式を見る
func validateCardFields(typ model.PaymentMethodType, lastFour, month, year string) error {
	if typ != model.PaymentMethodCard {
		return nil
	}
	if !lastFourRe.MatchString(lastFour) {
		return NewHTTPError(http.StatusBadRequest, "invalid last_four")
	}
	if !expiryMonthRe.MatchString(month) {
		return NewHTTPError(http.StatusBadRequest, "invalid expiry_month")
	}
	if !expiryYearRe.MatchString(year) {
		return NewHTTPError(http.StatusBadRequest, "invalid expiry_year")
	}
	return nil
}

func (u *PaymentMethodUsecase) List(ctx context.Context, userID int64) ([]model.PaymentMethod, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out []model.PaymentMethod
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.PaymentMethods().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		out = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.PaymentMethod{}
	}
	return out, nil
}

func (u *PaymentMethodUsecase) Get(ctx context.Context, userID, id int64) (model.PaymentMethod, error) {
	if userID <= 0 {
		return model.PaymentMethod{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return model.PaymentMethod{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.PaymentMethod
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pm, err := r.PaymentMethods().FindByIDForUser(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		out = pm
		return nil
	})
	if err != nil {
		return model.PaymentMethod{}, err
	}
	return out, nil
}

// 最初の1件は自動でデフォルト
func (u *PaymentMethodUsecase) Create(ctx context.Context, userID int64, req PaymentMethodCreateRequest) (model.PaymentMethod, error) {
	if userID <= 0 {
		return model.PaymentMethod{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	typ := model.PaymentMethodType(strings.ToLower(strings.TrimSpace(req.Type)))
	switch typ {
	case model.PaymentMethodCard, model.PaymentMethodFPX, model.PaymentMethodWallet:
	default:
		return model.PaymentMethod{}, NewHTTPError(http.StatusBadRequest, "invalid type")
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		return model.PaymentMethod{}, NewHTTPError(http.StatusBadRequest, "provider required")
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return model.PaymentMethod{}, NewHTTPError(http.StatusBadRequest, "token required")
	}
	if err := validateCardFields(typ, req.LastFour, req.ExpiryMonth, req.ExpiryYear); err != nil {
		return model.PaymentMethod{}, err
	}

	var out model.PaymentMethod
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.PaymentMethods().CountByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		created, err := r.PaymentMethods().Create(ctx, model.PaymentMethod{
			UserID:      userID,
			Type:        typ,
			Provider:    provider,
			Token:       token,
			LastFour:    req.LastFour,
			ExpiryMonth: req.ExpiryMonth,
			ExpiryYear:  req.ExpiryYear,
			Metadata:    req.Metadata,
		})
		if err != nil {
			return internalError(err)
		}

		if n == 0 || req.IsDefault {
			if err := r.PaymentMethods().SetDefault(ctx, userID, created.ID); err != nil {
				return internalError(err)
			}
			created.IsDefault = true
		}
		out = created
		return nil
	})
	if err != nil {
		return model.PaymentMethod{}, err
	}
	return out, nil
}

func (u *PaymentMethodUsecase) Update(ctx context.Context, userID, id int64, req PaymentMethodUpdateRequest) (model.PaymentMethod, error) {
	if userID <= 0 {
		return model.PaymentMethod{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return model.PaymentMethod{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.PaymentMethod
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pm, err := r.PaymentMethods().FindByIDForUser(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, "Payment method not found")
		}

		if req.Provider != nil {
			pm.Provider = strings.TrimSpace(*req.Provider)
			if pm.Provider == "" {
				return NewHTTPError(http.StatusBadRequest, "provider required")
			}
		}
		if req.LastFour != nil {
			pm.LastFour = *req.LastFour
		}
		if req.ExpiryMonth != nil {
			pm.ExpiryMonth = *req.ExpiryMonth
		}
		if req.ExpiryYear != nil {
			pm.ExpiryYear = *req.ExpiryYear
		}
		if req.Metadata != nil {
			pm.Metadata = *req.Metadata
		}
		if err := validateCardFields(pm.Type, pm.LastFour, pm.ExpiryMonth, pm.ExpiryYear); err != nil {
			return err
		}

		if err := r.PaymentMethods().Update(ctx, pm); err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		if req.IsDefault != nil && *req.IsDefault && !pm.IsDefault {
			if err := r.PaymentMethods().SetDefault(ctx, userID, pm.ID); err != nil {
				return notFoundOr(err, "Payment method not found")
			}
			pm.IsDefault = true
		}
		out = pm
		return nil
	})
	if err != nil {
		return model.PaymentMethod{}, err
	}
	return out, nil
}

func (u *PaymentMethodUsecase) Delete(ctx context.Context, userID, id int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		pm, err := r.PaymentMethods().FindByIDForUser(ctx, id, userID)
		if err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		if err := r.PaymentMethods().Delete(ctx, id, userID); err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		if !pm.IsDefault {
			return nil
		}

		// デフォルトを消したら残りの先頭へ
		rest, err := r.PaymentMethods().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		if len(rest) > 0 {
			if err := r.PaymentMethods().SetDefault(ctx, userID, rest[0].ID); err != nil {
				return internalError(err)
			}
		}
		return nil
	})
}

func (u *PaymentMethodUsecase) SetDefault(ctx context.Context, userID, id int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.PaymentMethods().FindByIDForUser(ctx, id, userID); err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		if err := r.PaymentMethods().SetDefault(ctx, userID, id); err != nil {
			return notFoundOr(err, "Payment method not found")
		}
		return nil
	})
}
