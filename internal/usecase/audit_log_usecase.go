package usecase

import (
	"context"
	"net/http"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"
)

type AuditLogUsecase struct {
	tx repo.TransactionManager
}

func NewAuditLogUsecase(tx repo.TransactionManager) *AuditLogUsecase {
	return &AuditLogUsecase{tx: tx}
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

var auditResourceTypes = map[model.AuditResourceType]bool{
	model.AuditResourceProduct:   true,
	model.AuditResourceOrder:     true,
	model.AuditResourceInventory: true,
}

// 管理画面の監査ログ一覧
func (u *AuditLogUsecase) List(ctx context.Context, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if f.Page < 1 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.ResourceType != nil && !auditResourceTypes[*f.ResourceType] {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be before to")
	}

	var out AuditLogListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		logs, total, err := r.AuditLogs().List(ctx, f)
		if err != nil {
			return internalError(err)
		}
		out = AuditLogListOutput{Items: logs, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return AuditLogListOutput{}, err
	}
	return out, nil
}
