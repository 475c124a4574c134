// Package fs provides an audit sink writing one JSON document per entry
// through viant/afs, so the trail can live on a local disk or any supported
// remote storage.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/internal/idgen"
	"github.com/opsgate/opsgate/service/audit"
)

// Service writes entries under <basePath>/<kind>/<approvalId>-<entryId>.json.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.Mutex
}

// New creates a filesystem audit sink rooted at basePath.
func New(fs afs.Service, basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	return &Service{basePath: basePath, fs: fs}, nil
}

func (s *Service) record(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("cannot record nil audit entry")
	}
	if entry.ID == "" {
		entry.ID = idgen.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = clock.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	location := path.Join(s.basePath, entry.Kind, fmt.Sprintf("%s-%s.json", entry.ApprovalID, entry.ID))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write audit entry %s: %w", location, err)
	}
	return nil
}

// RecordPending writes a pending entry.
func (s *Service) RecordPending(ctx context.Context, entry *audit.Entry) error {
	entry.Kind = "pending"
	return s.record(ctx, entry)
}

// RecordTerminal writes a terminal entry.
func (s *Service) RecordTerminal(ctx context.Context, entry *audit.Entry) error {
	entry.Kind = "terminal"
	return s.record(ctx, entry)
}

var _ audit.Service = (*Service)(nil)
