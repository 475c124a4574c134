package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"

	"github.com/opsgate/opsgate/risk"
	"github.com/opsgate/opsgate/service/audit"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "opsgate-audit-fs-test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(tempDir) })

	service, err := New(afs.New(), tempDir)
	require.NoError(t, err)
	return service, tempDir
}

func TestService_RecordPendingRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, baseDir := newTestService(t)

	entry := &audit.Entry{
		ID:         "e1",
		ApprovalID: "a1",
		TenantID:   "acme",
		SessionID:  "s1",
		ToolName:   "Bash",
		Input:      map[string]interface{}{"command": "uptime"},
		RiskLevel:  risk.LevelHigh,
		CreatedAt:  time.Now(),
	}
	require.NoError(t, service.RecordPending(ctx, entry))

	data, err := os.ReadFile(path.Join(baseDir, "pending", "a1-e1.json"))
	require.NoError(t, err)

	var stored audit.Entry
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "pending", stored.Kind)
	assert.Equal(t, "a1", stored.ApprovalID)
	assert.Equal(t, "acme", stored.TenantID)
	assert.Equal(t, "Bash", stored.ToolName)
	assert.Equal(t, map[string]interface{}{"command": "uptime"}, stored.Input)
	assert.EqualValues(t, risk.LevelHigh, stored.RiskLevel)
}

func TestService_RecordTerminalRoundTrip(t *testing.T) {
	ctx := context.Background()
	service, baseDir := newTestService(t)

	entry := &audit.Entry{
		ID:          "e2",
		ApprovalID:  "a2",
		TenantID:    "acme",
		ToolName:    "service_restart",
		Disposition: audit.DispositionDenied,
		Reason:      "out of maintenance window",
		DecidedBy:   "operator",
		Elapsed:     3 * time.Second,
	}
	require.NoError(t, service.RecordTerminal(ctx, entry))

	data, err := os.ReadFile(path.Join(baseDir, "terminal", "a2-e2.json"))
	require.NoError(t, err)

	var stored audit.Entry
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "terminal", stored.Kind)
	assert.EqualValues(t, audit.DispositionDenied, stored.Disposition)
	assert.Equal(t, "out of maintenance window", stored.Reason)
	assert.Equal(t, "operator", stored.DecidedBy)
	assert.Equal(t, 3*time.Second, stored.Elapsed)
	// Missing timestamps are stamped before the write.
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestService_FillsIDAndTimestamp(t *testing.T) {
	ctx := context.Background()
	service, baseDir := newTestService(t)

	entry := &audit.Entry{ApprovalID: "a3", ToolName: "ping"}
	require.NoError(t, service.RecordPending(ctx, entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	data, err := os.ReadFile(path.Join(baseDir, "pending", fmt.Sprintf("a3-%s.json", entry.ID)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a3")
}

func TestNew_RequiresBasePath(t *testing.T) {
	_, err := New(afs.New(), "")
	assert.Error(t, err)
}
