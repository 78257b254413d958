package app

import (
	"context"

	"github.com/kudipoint/ledger-service/internal/domain"
	"github.com/kudipoint/ledger-service/internal/store"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryQuery is the read-side component joining transactions with their
// type-specific details for display.
type HistoryQuery struct {
	repo store.Repository
}

// NewHistoryQuery creates a HistoryQuery backed by the given repository.
func NewHistoryQuery(repo store.Repository) *HistoryQuery {
	return &HistoryQuery{repo: repo}
}

// List returns matching transactions newest-first. Entries whose detail row is
// missing carry nil Details instead of failing the query.
func (q *HistoryQuery) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return q.repo.ListHistory(ctx, filter)
}
