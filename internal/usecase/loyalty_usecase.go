package usecase

import (
	"context"
	"net/http"
	"strings"

	"reweave/internal/domain/model"
	"reweave/internal/domain/pricing"
	repo "reweave/internal/repository"
)

type LoyaltyBalance struct {
	Points int64 `json:"points"`
	pricing.TierProgress
}

type LoyaltyHistoryOutput struct {
	Items []model.LoyaltyTransaction `json:"items"`
	Total int64                      `json:"total"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
}

type RedeemInput struct {
	Points      int64  `json:"points"`
	Description string `json:"description"`
}

type LoyaltyUsecase struct {
	tx repo.TransactionManager
}

func NewLoyaltyUsecase(tx repo.TransactionManager) *LoyaltyUsecase {
	return &LoyaltyUsecase{tx: tx}
}

func (u *LoyaltyUsecase) Balance(ctx context.Context, userID int64) (LoyaltyBalance, error) {
	if userID <= 0 {
		return LoyaltyBalance{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out LoyaltyBalance
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "User not found")
		}
		out = LoyaltyBalance{Points: user.LoyaltyPoints, TierProgress: pricing.ProgressFor(user.LoyaltyPoints)}
		return nil
	})
	if err != nil {
		return LoyaltyBalance{}, err
	}
	return out, nil
}

func (u *LoyaltyUsecase) History(ctx context.Context, userID int64, page, limit int) (LoyaltyHistoryOutput, error) {
	if userID <= 0 {
		return LoyaltyHistoryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return LoyaltyHistoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return LoyaltyHistoryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out LoyaltyHistoryOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Loyalty().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return internalError(err)
		}
		if items == nil {
			items = []model.LoyaltyTransaction{}
		}
		out = LoyaltyHistoryOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return LoyaltyHistoryOutput{}, err
	}
	return out, nil
}

// Redeem は残高が足りるときだけ減らす（条件付きUPDATE）。
// ランクは残高で決まるので、使えば下がることもある。
func (u *LoyaltyUsecase) Redeem(ctx context.Context, userID int64, in RedeemInput) (LoyaltyBalance, error) {
	if userID <= 0 {
		return LoyaltyBalance{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.Points <= 0 {
		return LoyaltyBalance{}, NewHTTPError(http.StatusBadRequest, "Points must be a positive integer")
	}

	var out LoyaltyBalance
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Users().RedeemPointsIfEnough(ctx, userID, in.Points)
		if err != nil {
			return notFoundOr(err, "User not found")
		}
		if !ok {
			return NewHTTPError(http.StatusBadRequest, "Insufficient points")
		}

		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			desc = "Points redeemed"
		}
		if err := r.Loyalty().Create(ctx, model.LoyaltyTransaction{
			UserID:      userID,
			Points:      -in.Points,
			Type:        model.LoyaltyRedeemed,
			Source:      "redemption",
			Description: desc,
		}); err != nil {
			return internalError(err)
		}

		user, err := r.Users().FindByID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "User not found")
		}
		if tier := pricing.TierFor(user.LoyaltyPoints); tier != user.LoyaltyTier {
			if err := r.Users().SetLoyaltyTier(ctx, userID, tier); err != nil {
				return internalError(err)
			}
		}

		out = LoyaltyBalance{Points: user.LoyaltyPoints, TierProgress: pricing.ProgressFor(user.LoyaltyPoints)}
		return nil
	})
	if err != nil {
		return LoyaltyBalance{}, err
	}
	return out, nil
}
