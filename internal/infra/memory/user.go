package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type userRepo struct{ c conn }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.c.do(func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repo.ErrConflict
			}
		}
		now := r.c.now()
		user.ID = t.nextID()
		if user.Role == "" {
			user.Role = model.RoleUser
		}
		if user.LoyaltyTier == "" {
			user.LoyaltyTier = model.TierBronze
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		t.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	var out *model.User
	err := r.c.do(func(t *tables) error {
		u, ok := t.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.c.do(func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.c.do(func(t *tables) error {
		if _, ok := t.users[user.ID]; !ok {
			return repo.ErrNotFound
		}
		user.UpdatedAt = r.c.now()
		t.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) update(userID int64, fn func(u *model.User) bool) (bool, error) {
	applied := false
	err := r.c.do(func(t *tables) error {
		u, ok := t.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		if !fn(&u) {
			return nil
		}
		t.users[userID] = u
		applied = true
		return nil
	})
	return applied, err
}

func (r *userRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.update(userID, func(u *model.User) bool {
		u.LastLoginAt = &at
		return true
	})
	return err
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, userID int64) error {
	_, err := r.update(userID, func(u *model.User) bool {
		u.TokenVersion++
		return true
	})
	return err
}

func (r *userRepo) AddLoyaltyPoints(ctx context.Context, userID int64, points int64) (int64, error) {
	var balance int64
	_, err := r.update(userID, func(u *model.User) bool {
		u.LoyaltyPoints += points
		balance = u.LoyaltyPoints
		return true
	})
	return balance, err
}

func (r *userRepo) RedeemPointsIfEnough(ctx context.Context, userID int64, points int64) (bool, error) {
	ok, err := r.update(userID, func(u *model.User) bool {
		if u.LoyaltyPoints < points {
			return false
		}
		u.LoyaltyPoints -= points
		return true
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *userRepo) SetLoyaltyTier(ctx context.Context, userID int64, tier model.LoyaltyTier) error {
	_, err := r.update(userID, func(u *model.User) bool {
		u.LoyaltyTier = tier
		return true
	})
	return err
}

type loyaltyRepo struct{ c conn }

func (r *loyaltyRepo) Create(ctx context.Context, tx model.LoyaltyTransaction) error {
	return r.c.do(func(t *tables) error {
		tx.ID = t.nextID()
		tx.CreatedAt = r.c.now()
		t.loyalty[tx.ID] = tx
		return nil
	})
}

func (r *loyaltyRepo) ListByUserID(ctx context.Context, userID int64, page, limit int) ([]model.LoyaltyTransaction, int64, error) {
	var out []model.LoyaltyTransaction
	var total int64
	err := r.c.do(func(t *tables) error {
		all := sortedByID(t.loyalty, func(x model.LoyaltyTransaction) bool { return x.UserID == userID })
		// 新しい順
		slices.Reverse(all)
		total = int64(len(all))
		out = paginate(all, page, limit)
		return nil
	})
	return out, total, err
}
