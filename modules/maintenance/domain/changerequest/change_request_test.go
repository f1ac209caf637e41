package changerequest

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTransition_AllowedMoves(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
	}{
		{StatusDraft, ActionSubmit, StatusSubmitted},
		{StatusReturned, ActionSubmit, StatusSubmitted},
		{StatusSubmitted, ActionApprove, StatusApproved},
		{StatusSubmitted, ActionReject, StatusRejected},
		{StatusSubmitted, ActionReturn, StatusReturned},
	}
	for _, tc := range cases {
		got, err := Transition(tc.from, tc.action)
		require.NoError(t, err, "%s from %s", tc.action, tc.from)
		require.Equal(t, tc.to, got)
	}
}

func TestTransition_DisallowedMoves(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
	}{
		{StatusDraft, ActionApprove},
		{StatusDraft, ActionReject},
		{StatusDraft, ActionReturn},
		{StatusApproved, ActionSubmit},
		{StatusApproved, ActionApprove},
		{StatusRejected, ActionSubmit},
		{StatusReturned, ActionApprove},
	}
	for _, tc := range cases {
		_, err := Transition(tc.from, tc.action)
		require.Error(t, err, "%s from %s must fail", tc.action, tc.from)

		var te *TransitionError
		require.ErrorAs(t, err, &te)
		require.Equal(t, tc.action, te.Action)
		require.Equal(t, tc.from, te.Current)
		require.NotEmpty(t, te.Allowed)
	}
}

func TestTransition_UnknownAction(t *testing.T) {
	_, err := Transition(StatusDraft, Action("escalate"))
	require.EqualError(t, err, `unknown action "escalate"`)
}

func TestTransitionError_NamesAllowedSources(t *testing.T) {
	_, err := Transition(StatusApproved, ActionSubmit)
	require.EqualError(t, err,
		`cannot submit a change request in status "approved", requires one of: draft, returned`)
}

func TestEditableTerminal(t *testing.T) {
	require.True(t, (&ChangeRequest{Status: StatusDraft}).Editable())
	require.True(t, (&ChangeRequest{Status: StatusReturned}).Editable())
	require.False(t, (&ChangeRequest{Status: StatusSubmitted}).Editable())

	require.True(t, (&ChangeRequest{Status: StatusApproved}).Terminal())
	require.True(t, (&ChangeRequest{Status: StatusRejected}).Terminal())
	require.False(t, (&ChangeRequest{Status: StatusReturned}).Terminal())
}

func TestSubmitGuard(t *testing.T) {
	withDiff := json.RawMessage(`{"diff":{"A.maker":{"from":"x","to":"y"}}}`)
	empty := json.RawMessage(`{"diff":{}}`)

	complete := func() *ChangeRequest {
		return &ChangeRequest{
			VesselID:       uuid.New(),
			TargetType:     "component",
			TargetID:       uuid.New(),
			Title:          "Fix maker",
			Category:       "componentUpdate",
			Reason:         "typo",
			SnapshotBefore: json.RawMessage(`{"maker":"x"}`),
			Payload:        withDiff,
		}
	}
	require.NoError(t, complete().SubmitGuard())

	cases := []struct {
		mutate func(cr *ChangeRequest)
		want   string
	}{
		{func(cr *ChangeRequest) { cr.VesselID = uuid.Nil }, "vessel is required"},
		{func(cr *ChangeRequest) { cr.TargetType = "" }, "target type is required"},
		{func(cr *ChangeRequest) { cr.TargetID = uuid.Nil }, "target is required"},
		{func(cr *ChangeRequest) { cr.Title = "  " }, "title is required"},
		{func(cr *ChangeRequest) { cr.Category = "" }, "category is required"},
		{func(cr *ChangeRequest) { cr.Reason = "" }, "reason is required"},
		{func(cr *ChangeRequest) { cr.SnapshotBefore = nil }, "snapshot is required"},
		{func(cr *ChangeRequest) { cr.Payload = empty }, "change request has no changes"},
	}
	for _, tc := range cases {
		cr := complete()
		tc.mutate(cr)
		require.EqualError(t, cr.SubmitGuard(), tc.want)
	}
}

func TestDiffSummaryCount_MixedScalarAndListSections(t *testing.T) {
	payload := json.RawMessage(`{
		"summary": {
			"A": 2,
			"H": 1,
			"C": {"added": 1, "modified": 2, "removed": 1},
			"E": {"removed": 1}
		}
	}`)

	cr := &ChangeRequest{Payload: payload}
	require.Equal(t, 8, cr.DiffSummaryCount())
}

func TestDiffSummaryCount_BadPayloadIsZero(t *testing.T) {
	require.Zero(t, (&ChangeRequest{Payload: json.RawMessage(`not json`)}).DiffSummaryCount())
	require.Zero(t, (&ChangeRequest{Payload: json.RawMessage(`{}`)}).DiffSummaryCount())
}
