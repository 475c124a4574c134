// Package sqlite provides a database-backed audit sink using the pure-Go
// sqlite driver, suitable when the trail must outlive the process without
// external infrastructure.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/opsgate/opsgate/internal/clock"
	"github.com/opsgate/opsgate/internal/idgen"
	"github.com/opsgate/opsgate/service/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS approval_audit (
  id TEXT PRIMARY KEY,
  approval_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  tenant_id TEXT,
  session_id TEXT,
  tool_name TEXT,
  input_json TEXT,
  risk_level TEXT,
  disposition TEXT,
  reason TEXT,
  decided_by TEXT,
  elapsed_ms INTEGER,
  created_at_unix INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_approval_audit_approval ON approval_audit(approval_id);
`

// Service writes audit entries to a sqlite database.
type Service struct {
	dsn string

	mu sync.Mutex
	db *sql.DB
}

// New opens (creating when necessary) the database at dsn and ensures the
// audit schema exists.
func New(dsn string) (*Service, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("missing sqlite dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ensure audit schema: %w", err)
	}
	return &Service{dsn: dsn, db: db}, nil
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
	var inputJSON []byte
	if entry.Input != nil {
		var err error
		if inputJSON, err = json.Marshal(entry.Input); err != nil {
			return fmt.Errorf("failed to marshal audit input: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO approval_audit (
  id, approval_id, kind, tenant_id, session_id, tool_name,
  input_json, risk_level, disposition, reason, decided_by,
  elapsed_ms, created_at_unix
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, entry.ID, entry.ApprovalID, entry.Kind, entry.TenantID, entry.SessionID, entry.ToolName,
		string(inputJSON), string(entry.RiskLevel), string(entry.Disposition), entry.Reason, entry.DecidedBy,
		entry.Elapsed.Milliseconds(), entry.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
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

// Close releases the underlying database handle.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ audit.Service = (*Service)(nil)
