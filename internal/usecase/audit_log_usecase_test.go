package usecase

import (
	"net/http"
	"testing"
	"time"

	"reweave/internal/domain/model"
	repo "reweave/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAuditLogs(t *testing.T, f *fixture) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	logs := []model.AuditLog{
		{ActorUserID: 1, Action: model.AuditActionCreateProduct, ResourceType: model.AuditResourceProduct, ResourceID: 10, CreatedAt: base},
		{ActorUserID: 1, Action: model.AuditActionUpdateOrderStatus, ResourceType: model.AuditResourceOrder, ResourceID: 20, CreatedAt: base.Add(time.Hour)},
		{ActorUserID: 2, Action: model.AuditActionUpdateStock, ResourceType: model.AuditResourceInventory, ResourceID: 30, CreatedAt: base.Add(2 * time.Hour)},
		{ActorUserID: 2, Action: model.AuditActionUpdatePaymentStatus, ResourceType: model.AuditResourceOrder, ResourceID: 20, CreatedAt: base.Add(3 * time.Hour)},
	}
	for _, l := range logs {
		require.NoError(t, f.store.Repos().AuditLogs().Create(f.ctx, l))
	}
}

func TestAuditLogUsecase_List(t *testing.T) {
	f := newFixture(t)
	seedAuditLogs(t, f)
	uc := NewAuditLogUsecase(f.store)

	t.Run("newest first", func(t *testing.T) {
		out, err := uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), out.Total)
		require.Len(t, out.Items, 2)
		assert.Equal(t, model.AuditActionUpdatePaymentStatus, out.Items[0].Action)
		assert.Equal(t, model.AuditActionUpdateStock, out.Items[1].Action)
	})

	t.Run("filter by resource", func(t *testing.T) {
		rt := model.AuditResourceOrder
		id := int64(20)
		out, err := uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 50, ResourceType: &rt, ResourceID: &id})
		require.NoError(t, err)
		assert.Equal(t, int64(2), out.Total)
	})

	t.Run("filter by actor and range", func(t *testing.T) {
		actor := int64(2)
		from := time.Date(2025, 1, 1, 1, 30, 0, 0, time.UTC)
		to := time.Date(2025, 1, 1, 2, 30, 0, 0, time.UTC)
		out, err := uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 50, ActorUserID: &actor, From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, out.Items, 1)
		assert.Equal(t, int64(30), out.Items[0].ResourceID)
	})
}

func TestAuditLogUsecase_List_Validation(t *testing.T) {
	f := newFixture(t)
	uc := NewAuditLogUsecase(f.store)

	_, err := uc.List(f.ctx, repo.AuditLogFilter{Page: 0, Limit: 10})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid page")

	_, err = uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 0})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid limit")

	bad := model.AuditResourceType("user")
	_, err = uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 10, ResourceType: &bad})
	assertHTTPError(t, err, http.StatusBadRequest, "invalid resource_type")

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	_, err = uc.List(f.ctx, repo.AuditLogFilter{Page: 1, Limit: 10, From: &from, To: &to})
	assertHTTPError(t, err, http.StatusBadRequest, "from must be before to")
}
