package repository

import (
	"context"

	"reweave/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	//Create は住所を新規作成する。
	//作成後はaddress（IDなどが埋まったもの）を返す
	Create(ctx context.Context, address model.Address) (model.Address, error)

	//ユーザーが持つ住所一覧を返す（デフォルトが先頭）
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)

	//そのユーザーの住所を1件取得。他人の住所はErrNotFound
	FindByIDForUser(ctx context.Context, addressID, userID int64) (model.Address, error)

	//住所の更新。
	Update(ctx context.Context, address model.Address) error

	//住所の削除。
	Delete(ctx context.Context, addressID, userID int64) error

	//ユーザーの住所の件数（最初の1件をデフォルトにするため）
	CountByUserID(ctx context.Context, userID int64) (int64, error)

	//デフォルトの切り替え。全部falseにしてから指定だけtrue
	SetDefault(ctx context.Context, userID, addressID int64) error
}
