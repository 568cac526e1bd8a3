package repository

import (
	"errors"

	repo "reweave/internal/repository"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// gorm/pgのエラーをrepositoryのsentinelに寄せる
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return repo.ErrConflict
	}
	return err
}

// 更新0件はErrNotFound
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// variant_id の条件。nilは IS NULL
func whereVariant(tx *gorm.DB, column string, variantID *int64) *gorm.DB {
	if variantID == nil {
		return tx.Where(column + " IS NULL")
	}
	return tx.Where(column+" = ?", *variantID)
}
