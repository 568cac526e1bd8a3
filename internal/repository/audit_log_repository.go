package repository

import (
	"context"
	"time"

	"reweave/internal/domain/model"
)

// 監査ログの絞り込み条件
type AuditLogFilter struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
}

// 管理者操作の記録。書いたら変更しない。
type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順。totalはページングなしの件数
	List(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, int64, error)
}
