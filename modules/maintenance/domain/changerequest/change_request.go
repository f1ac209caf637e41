// Package changerequest holds the change-request aggregate and its approval
// state machine. The payload is built by the changeset package and stored
// here as an immutable JSON document once submitted.
package changerequest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the approval lifecycle state of a change request.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusReturned  Status = "returned"
)

// Action is a reviewer decision or requester move applied to a request.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
)

// transitions maps each action to the statuses it may be applied from and
// the status it lands in. Approved and rejected are terminal.
var transitions = map[Action]struct {
	from []Status
	to   Status
}{
	ActionSubmit:  {from: []Status{StatusDraft, StatusReturned}, to: StatusSubmitted},
	ActionApprove: {from: []Status{StatusSubmitted}, to: StatusApproved},
	ActionReject:  {from: []Status{StatusSubmitted}, to: StatusRejected},
	ActionReturn:  {from: []Status{StatusSubmitted}, to: StatusReturned},
}

// TransitionError reports an action applied from a status it is not allowed
// from, naming the statuses that would have been accepted.
type TransitionError struct {
	Action  Action
	Current Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot %s a change request in status %q, requires one of: %s",
		e.Action, e.Current, strings.Join(names, ", "))
}

// Transition returns the resulting status of applying action from current,
// or a TransitionError when the move is not in the table.
func Transition(current Status, action Action) (Status, error) {
	rule, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q", action)
	}
	for _, s := range rule.from {
		if s == current {
			return rule.to, nil
		}
	}
	return "", &TransitionError{Action: action, Current: current, Allowed: rule.from}
}

// AllowedFrom exposes the source statuses of an action. Repositories use it
// to make status updates conditional at the SQL level.
func AllowedFrom(action Action) []Status {
	return transitions[action].from
}

// ChangeRequest is the stored aggregate. SnapshotBefore and ProposedChanges
// are the component documents the diff was computed between; MovePreview is
// the JSON Patch that turns the former into the latter and RevertPatch the
// inverse, kept for audit after approval.
type ChangeRequest struct {
	ID              uuid.UUID
	VesselID        uuid.UUID
	TargetType      string
	TargetID        uuid.UUID
	Title           string
	Category        string
	Reason          string
	Status          Status
	Payload         json.RawMessage
	SnapshotBefore  json.RawMessage
	ProposedChanges json.RawMessage
	MovePreview     json.RawMessage
	RevertPatch     json.RawMessage
	RequestedBy     uuid.UUID
	ReviewerID      *uuid.UUID
	Comment         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DecidedAt       *time.Time
}

// Editable reports whether the requester may still change the draft's
// target, title or proposed document.
func (cr *ChangeRequest) Editable() bool {
	return cr.Status == StatusDraft || cr.Status == StatusReturned
}

// Terminal reports whether no further action can be applied.
func (cr *ChangeRequest) Terminal() bool {
	return cr.Status == StatusApproved || cr.Status == StatusRejected
}

// SubmitGuard validates everything submit requires beyond the status table:
// a complete target, a snapshot to diff against, a title, a reason and a
// non-empty payload diff.
func (cr *ChangeRequest) SubmitGuard() error {
	if cr.VesselID == uuid.Nil {
		return fmt.Errorf("vessel is required")
	}
	if strings.TrimSpace(cr.TargetType) == "" {
		return fmt.Errorf("target type is required")
	}
	if cr.TargetID == uuid.Nil {
		return fmt.Errorf("target is required")
	}
	if strings.TrimSpace(cr.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(cr.Category) == "" {
		return fmt.Errorf("category is required")
	}
	if strings.TrimSpace(cr.Reason) == "" {
		return fmt.Errorf("reason is required")
	}
	if len(cr.SnapshotBefore) == 0 {
		return fmt.Errorf("snapshot is required")
	}
	if !hasDiff(cr.Payload) {
		return ErrNoChanges
	}
	return nil
}

// DiffSummaryCount sums the payload's per-section summary into one badge
// number. List sections contribute added+modified+removed.
func (cr *ChangeRequest) DiffSummaryCount() int {
	var payload struct {
		Summary map[string]json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(cr.Payload, &payload); err != nil {
		return 0
	}
	total := 0
	for _, raw := range payload.Summary {
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			total += n
			continue
		}
		var list struct {
			Added    int `json:"added"`
			Modified int `json:"modified"`
			Removed  int `json:"removed"`
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			total += list.Added + list.Modified + list.Removed
		}
	}
	return total
}

func hasDiff(payload json.RawMessage) bool {
	var p struct {
		Diff map[string]json.RawMessage `json:"diff"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	return len(p.Diff) > 0
}
