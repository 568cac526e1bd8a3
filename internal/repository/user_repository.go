package repository

import (
	"context"
	"time"

	"reweave/internal/domain/model"
)

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成。メール重複はErrConflict
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// ユーザー情報の更新=>アクティブかどうか・ロールの変更など
	Update(ctx context.Context, user *model.User) error
	//最終ログイン日時
	TouchLastLogin(ctx context.Context, userID int64, at time.Time) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error

	//ポイント加算。加算後の残高を返す
	AddLoyaltyPoints(ctx context.Context, userID int64, points int64) (int64, error)
	//残高が足りるときだけ減算。足りなければfalse
	RedeemPointsIfEnough(ctx context.Context, userID int64, points int64) (bool, error)
	SetLoyaltyTier(ctx context.Context, userID int64, tier model.LoyaltyTier) error
}
