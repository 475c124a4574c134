package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_UnknownToolFailsClosed(t *testing.T) {
	classifier := NewClassifier(DefaultProfiles()...)

	profile := classifier.Classify("never-seen-before")
	assert.True(t, profile.RequiresApproval)
	assert.False(t, profile.AlwaysAllow)
	assert.Equal(t, LevelHigh, profile.Level)
	assert.True(t, profile.AuditRequired)
}

func TestClassifier_AmbiguousProfileCoerced(t *testing.T) {
	classifier := NewClassifier(
		&Profile{ToolName: "both", Level: LevelLow, AlwaysAllow: true, AlwaysDeny: true},
		&Profile{ToolName: "none", Level: LevelMedium},
	)

	both := classifier.Classify("both")
	assert.True(t, both.RequiresApproval)
	assert.False(t, both.AlwaysAllow)
	assert.False(t, both.AlwaysDeny)

	none := classifier.Classify("none")
	assert.True(t, none.RequiresApproval)
}

func TestClassifier_Defaults(t *testing.T) {
	classifier := NewClassifier(DefaultProfiles()...)

	read := classifier.Classify("Read")
	assert.True(t, read.AlwaysAllow)
	assert.Equal(t, LevelLow, read.Level)

	bash := classifier.Classify("Bash")
	assert.True(t, bash.RequiresApproval)
	assert.Equal(t, LevelHigh, bash.Level)
	assert.Equal(t, DefaultApprovalTimeout, bash.ApprovalTimeout)

	reset := classifier.Classify("factory_reset")
	assert.True(t, reset.AlwaysDeny)
}

func TestLevel_AtLeast(t *testing.T) {
	assert.True(t, LevelHigh.AtLeast(LevelLow))
	assert.True(t, LevelMedium.AtLeast(LevelMedium))
	assert.False(t, LevelLow.AtLeast(LevelHigh))
	// unknown levels rank highest
	assert.True(t, Level("weird").AtLeast(LevelHigh))
}
