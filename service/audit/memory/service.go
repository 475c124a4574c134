// Package memory provides an in-memory audit sink for tests and
// single-instance deployments.
package memory

import (
	"context"

	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/internal/idgen"
	"github.com/opsgate/opsgate/service/audit"
	"github.com/opsgate/opsgate/service/dao"
	"github.com/opsgate/opsgate/service/dao/store"
)

// Service is an in-memory audit sink. It additionally supports listing
// recorded entries, which tests rely on.
type Service struct {
	entries dao.Service[string, audit.Entry]
}

func entryKey(e *audit.Entry) string { return e.ID }

// New creates an empty in-memory audit sink.
func New() *Service {
	return &Service{entries: store.NewMemoryStore[string, audit.Entry](entryKey)}
}

func (s *Service) record(ctx context.Context, entry *audit.Entry) error {
	if entry.ID == "" {
		entry.ID = idgen.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = clock.Now()
	}
	return s.entries.Save(ctx, entry)
}

// RecordPending stores a pending entry.
func (s *Service) RecordPending(ctx context.Context, entry *audit.Entry) error {
	entry.Kind = "pending"
	return s.record(ctx, entry)
}

// RecordTerminal stores a terminal entry.
func (s *Service) RecordTerminal(ctx context.Context, entry *audit.Entry) error {
	entry.Kind = "terminal"
	return s.record(ctx, entry)
}

// List returns all recorded entries.
func (s *Service) List(ctx context.Context) ([]*audit.Entry, error) {
	return s.entries.List(ctx)
}

var _ audit.Service = (*Service)(nil)
