package decision_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsgate/opsgate/service/approval"
	"github.com/opsgate/opsgate/service/decision"
)

func TestDecode(t *testing.T) {
	type testCase struct {
		name           string
		raw            string
		expectInvalid  bool
		expectedFields []string
	}

	tests := []testCase{
		{
			name: "approved boolean form",
			raw:  `{"approvalId":"a1","approved":true,"decidedBy":"operator"}`,
		},
		{
			name: "decision enum form",
			raw:  `{"approvalId":"a1","decision":"modified","modifiedInput":{"command":"ls"}}`,
		},
		{
			name:           "missing approvalId",
			raw:            `{"approved":true}`,
			expectInvalid:  true,
			expectedFields: []string{"/"},
		},
		{
			name:           "empty approvalId",
			raw:            `{"approvalId":"","approved":false}`,
			expectInvalid:  true,
			expectedFields: []string{"/approvalId"},
		},
		{
			name:          "neither approved nor decision",
			raw:           `{"approvalId":"a1","reason":"why not"}`,
			expectInvalid: true,
		},
		{
			name:           "decision outside the enum",
			raw:            `{"approvalId":"a1","decision":"maybe"}`,
			expectInvalid:  true,
			expectedFields: []string{"/decision"},
		},
		{
			name:           "approved is not a boolean",
			raw:            `{"approvalId":"a1","approved":"yes"}`,
			expectInvalid:  true,
			expectedFields: []string{"/approved"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			message, err := decision.Decode([]byte(tc.raw))
			if !tc.expectInvalid {
				require.NoError(t, err)
				require.NotNil(t, message)
				assert.Equal(t, "a1", message.ApprovalID)
				return
			}
			require.Error(t, err)
			var validation *decision.ValidationError
			require.True(t, errors.As(err, &validation))
			for _, field := range tc.expectedFields {
				assert.Contains(t, validation.Fields, field)
			}
		})
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	message, err := decision.Decode([]byte(`{"approvalId":`))
	require.Error(t, err)
	assert.Nil(t, message)
	var validation *decision.ValidationError
	assert.False(t, errors.As(err, &validation))
}

func TestMessage_Normalize(t *testing.T) {
	approved := true
	denied := false

	type testCase struct {
		name     string
		message  decision.Message
		expected approval.DecisionKind
	}

	tests := []testCase{
		{
			name:     "approved boolean",
			message:  decision.Message{ApprovalID: "a1", Approved: &approved},
			expected: approval.DecisionApproved,
		},
		{
			name:     "denied boolean",
			message:  decision.Message{ApprovalID: "a1", Approved: &denied, Reason: "nope"},
			expected: approval.DecisionDenied,
		},
		{
			name:     "explicit decision wins over boolean",
			message:  decision.Message{ApprovalID: "a1", Approved: &denied, Decision: approval.DecisionApproved},
			expected: approval.DecisionApproved,
		},
		{
			name: "approval with modified input becomes modified",
			message: decision.Message{
				ApprovalID:    "a1",
				Approved:      &approved,
				ModifiedInput: map[string]interface{}{"command": "ls"},
			},
			expected: approval.DecisionModified,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			normalized := tc.message.Normalize()
			assert.EqualValues(t, tc.expected, normalized.Kind)
			assert.Equal(t, tc.message.Reason, normalized.Reason)
		})
	}
}
