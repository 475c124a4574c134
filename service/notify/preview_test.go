package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview_EditRendersUnifiedDiff(t *testing.T) {
	input := map[string]interface{}{
		"path":       "/etc/resolv.conf",
		"oldContent": "nameserver 10.0.0.1\n",
		"newContent": "nameserver 10.0.0.2\n",
	}
	preview := Preview("Edit", input)
	assert.Contains(t, preview, "/etc/resolv.conf (original)")
	assert.Contains(t, preview, "/etc/resolv.conf (proposed)")
	assert.Contains(t, preview, "-nameserver 10.0.0.1")
	assert.Contains(t, preview, "+nameserver 10.0.0.2")
}

func TestPreview_IdenticalContentIsEmpty(t *testing.T) {
	input := map[string]interface{}{
		"oldContent": "same\n",
		"newContent": "same\n",
	}
	assert.Empty(t, Preview("Edit", input))
}

func TestPreview_Command(t *testing.T) {
	input := map[string]interface{}{"command": "systemctl restart bird"}
	assert.Equal(t, "$ systemctl restart bird", Preview("Bash", input))
}

func TestPreview_PatchStatistics(t *testing.T) {
	patch := `--- a/etc/network/interfaces
+++ b/etc/network/interfaces
@@ -1,3 +1,3 @@
 auto eth0
-iface eth0 inet dhcp
+iface eth0 inet static
`
	preview := Preview("apply_patch", map[string]interface{}{"patch": patch})
	// A paired -/+ line counts as a change, not an add plus a delete.
	assert.Contains(t, preview, "b/etc/network/interfaces")
	assert.Contains(t, preview, "(~1)")
}

func TestPreview_UnknownShapeIsEmpty(t *testing.T) {
	assert.Empty(t, Preview("traceroute", map[string]interface{}{"host": "10.0.0.1"}))
	assert.Empty(t, Preview("Read", nil))
}
