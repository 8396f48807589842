package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/claimflow/backend/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid appeal transition")
	ErrInconsistentState = errors.New("inconsistent appeal state")
)

// State is the lifecycle position of an appeal. Each variant carries only the
// fields that are meaningful for it.
type State interface {
	Status() models.AppealStatus
	isState()
}

// PendingValidation waits for automated validation.
type PendingValidation struct{}

// AwaitingAgent needs a human decision. Result is nil when validation failed.
type AwaitingAgent struct {
	Result *models.ValidationResult
}

// Provisional holds an automated Approved or Rejected outcome that an agent
// has not confirmed yet.
type Provisional struct {
	Outcome models.AppealStatus
	Result  models.ValidationResult
}

// Decided is terminal.
type Decided struct {
	Outcome   models.AppealStatus
	Comments  string
	DecidedAt time.Time
	Result    *models.ValidationResult
}

func (PendingValidation) Status() models.AppealStatus { return models.StatusPendingValidation }
func (AwaitingAgent) Status() models.AppealStatus     { return models.StatusNeedsAgentReview }
func (p Provisional) Status() models.AppealStatus     { return p.Outcome }
func (d Decided) Status() models.AppealStatus         { return d.Outcome }

func (PendingValidation) isState() {}
func (AwaitingAgent) isState()     {}
func (Provisional) isState()       {}
func (Decided) isState()           {}

// StateOf decodes the flat stored record into its lifecycle variant.
func StateOf(a models.Appeal) (State, error) {
	bad := func(format string, args ...any) (State, error) {
		return nil, fmt.Errorf("%w: appeal %s: %s", ErrInconsistentState, a.ID, fmt.Sprintf(format, args...))
	}

	if a.FinalDecisionDate != nil {
		if !a.Status.Outcome() {
			return bad("decision date on status %q", a.Status)
		}
		return Decided{Outcome: a.Status, Comments: a.AgentComments, DecidedAt: *a.FinalDecisionDate, Result: a.ValidationResult}, nil
	}

	if !a.Status.Valid() {
		return bad("unknown status %q", a.Status)
	}
	switch a.Status {
	case models.StatusPendingValidation:
		if a.ValidationResult != nil {
			return bad("validation result on a pending appeal")
		}
		return PendingValidation{}, nil
	case models.StatusNeedsAgentReview:
		return AwaitingAgent{Result: a.ValidationResult}, nil
	case models.StatusInfoRequested:
		return bad("info requested without decision date")
	}

	// Approved or Rejected without a decision date.
	if a.ValidationResult == nil {
		return bad("%q without decision date or validation result", a.Status)
	}
	return Provisional{Outcome: a.Status, Result: *a.ValidationResult}, nil
}

// apply writes s back onto the flat record. ValidationError is left to the caller.
func apply(a models.Appeal, s State) models.Appeal {
	a.Status = s.Status()
	switch st := s.(type) {
	case PendingValidation:
		a.ValidationResult = nil
		a.FinalDecisionDate = nil
	case AwaitingAgent:
		a.ValidationResult = st.Result
		a.FinalDecisionDate = nil
	case Provisional:
		r := st.Result
		a.ValidationResult = &r
		a.FinalDecisionDate = nil
	case Decided:
		at := st.DecidedAt
		a.ValidationResult = st.Result
		a.AgentComments = st.Comments
		a.FinalDecisionDate = &at
	}
	return a
}

// afterValidation maps a recommendation onto the next state.
func afterValidation(res models.ValidationResult) State {
	switch res.SummaryRecommendation {
	case models.RecommendApprove:
		return Provisional{Outcome: models.StatusApproved, Result: res}
	case models.RecommendReject:
		return Provisional{Outcome: models.StatusRejected, Result: res}
	}
	return AwaitingAgent{Result: &res}
}

func decide(s State, outcome models.AppealStatus, comments string, at time.Time) (State, error) {
	if !outcome.Outcome() {
		return nil, fmt.Errorf("%w: %q is not a decision", ErrInvalidTransition, outcome)
	}
	switch st := s.(type) {
	case AwaitingAgent:
		return Decided{Outcome: outcome, Comments: comments, DecidedAt: at, Result: st.Result}, nil
	case Provisional:
		r := st.Result
		return Decided{Outcome: outcome, Comments: comments, DecidedAt: at, Result: &r}, nil
	}
	return nil, fmt.Errorf("%w: cannot decide from %q", ErrInvalidTransition, describe(s))
}

func confirm(s State, comments string, at time.Time) (State, error) {
	p, ok := s.(Provisional)
	if !ok {
		return nil, fmt.Errorf("%w: only provisional outcomes can be confirmed, appeal is %q", ErrInvalidTransition, describe(s))
	}
	r := p.Result
	return Decided{Outcome: p.Outcome, Comments: comments, DecidedAt: at, Result: &r}, nil
}

func describe(s State) string {
	switch s.(type) {
	case Provisional:
		return "provisional " + string(s.Status())
	case Decided:
		return "decided " + string(s.Status())
	}
	return string(s.Status())
}

// Actions lists what can be done next with an appeal in state s.
func Actions(s State) []string {
	switch s.(type) {
	case PendingValidation:
		return []string{"validate"}
	case AwaitingAgent:
		return []string{"approve", "reject", "request_info"}
	case Provisional:
		return []string{"confirm", "approve", "reject", "request_info"}
	}
	return []string{}
}
