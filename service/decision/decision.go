// Package decision implements the external decision channel: the wire
// schema a human-facing surface uses to settle a pending approval, and the
// listener that carries validated decisions from a message queue to the
// correlator. Malformed messages are rejected at this boundary with a
// structured error naming the offending fields; they never reach Resolve.
package decision

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/opsgate/opsgate/service/approval"
)

// Message is the wire form of a human decision. Either Decision or Approved
// must be present; Decision wins when both are supplied.
type Message struct {
	ApprovalID    string                 `json:"approvalId"`
	Approved      *bool                  `json:"approved,omitempty"`
	Decision      approval.DecisionKind  `json:"decision,omitempty"`
	Reason        string                 `json:"reason,omitempty"`
	ModifiedInput map[string]interface{} `json:"modifiedInput,omitempty"`
	DecidedBy     string                 `json:"decidedBy,omitempty"`
}

const messageSchema = `{
  "type": "object",
  "required": ["approvalId"],
  "properties": {
    "approvalId": { "type": "string", "minLength": 1 },
    "approved": { "type": "boolean" },
    "decision": { "enum": ["approved", "denied", "modified"] },
    "reason": { "type": "string" },
    "modifiedInput": { "type": "object" },
    "decidedBy": { "type": "string" }
  },
  "anyOf": [
    { "required": ["approved"] },
    { "required": ["decision"] }
  ],
  "additionalProperties": true
}`

type schemaRegistry struct {
	once    sync.Once
	initErr error
	message *jsonschema.Schema
}

var schemas schemaRegistry

func initSchemas() error {
	schemas.once.Do(func() {
		compiled, err := jsonschema.CompileString("decision_message", messageSchema)
		if err != nil {
			schemas.initErr = err
			return
		}
		schemas.message = compiled
	})
	return schemas.initErr
}

// ValidationError names the fields a decision message was rejected for.
type ValidationError struct {
	Fields []string
	cause  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid decision message, offending fields: %v", strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return e.cause }

func collectFields(err *jsonschema.ValidationError, into map[string]bool) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		into[location] = true
		return
	}
	for _, cause := range err.Causes {
		collectFields(cause, into)
	}
}

func newValidationError(err error) error {
	fields := map[string]bool{}
	if validation, ok := err.(*jsonschema.ValidationError); ok {
		collectFields(validation, fields)
	}
	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}
	sort.Strings(names)
	if len(names) == 0 {
		names = append(names, "/")
	}
	return &ValidationError{Fields: names, cause: err}
}

// Decode validates raw wire bytes against the message schema and unmarshals
// them. It returns a *ValidationError when the payload does not conform.
func Decode(raw []byte) (*Message, error) {
	if err := initSchemas(); err != nil {
		return nil, err
	}
	var payload interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("malformed decision message: %w", err)
	}
	if err := schemas.message.Validate(payload); err != nil {
		return nil, newValidationError(err)
	}
	message := &Message{}
	if err := json.Unmarshal(raw, message); err != nil {
		return nil, fmt.Errorf("malformed decision message: %w", err)
	}
	return message, nil
}

// Validate re-checks an already-typed message against the wire schema, used
// when messages arrive through a typed queue rather than as raw bytes.
func (m *Message) Validate() error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = Decode(raw)
	return err
}

// Normalize translates the wire message into the correlator's decision.
func (m *Message) Normalize() *approval.Decision {
	kind := m.Decision
	if kind == "" {
		if m.Approved != nil && *m.Approved {
			kind = approval.DecisionApproved
		} else {
			kind = approval.DecisionDenied
		}
	}
	if kind == approval.DecisionApproved && len(m.ModifiedInput) > 0 {
		kind = approval.DecisionModified
	}
	return &approval.Decision{
		Kind:          kind,
		Reason:        m.Reason,
		ModifiedInput: m.ModifiedInput,
		DecidedBy:     m.DecidedBy,
	}
}
