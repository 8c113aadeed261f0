package panel

import (
	"fmt"

	"github.com/pkg/errors"
)

// refusal is a local precondition failure. code labels metrics, msg is shown to the operator.
type refusal struct {
	code string
	msg  string
}

func (r *refusal) Error() string { return r.msg }

var (
	ErrEmptyMessage          error = &refusal{"empty_message", "Message is empty."}
	ErrDisconnected          error = &refusal{"disconnected", "Not connected to the support API."}
	ErrIntakePending         error = &refusal{"intake_pending", "Customer intake has not been completed."}
	ErrSendInFlight          error = &refusal{"send_in_flight", "A message is already being sent."}
	ErrNoActiveSession       error = &refusal{"no_active_session", "There is no active session."}
	ErrEmptyReason           error = &refusal{"empty_reason", "An escalation reason is required."}
	ErrEscalationUnavailable error = &refusal{"escalation_unavailable", "Escalation is not available for this conversation."}
	ErrEscalationInFlight    error = &refusal{"escalation_in_flight", "An escalation request is already in progress."}
	ErrUnknownQuickAction    error = &refusal{"unknown_quick_action", "Unknown quick action."}
)

// ErrStaleReply is returned when a reply arrives for a session that was replaced
// while the request was in flight. The reply is discarded.
var ErrStaleReply = errors.New("reply belongs to a session that was reset")

// PreconditionError means the operation was refused before any backend call.
type PreconditionError struct {
	Op     string
	Reason error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s refused: %s", e.Op, e.Reason.Error())
}

func (e *PreconditionError) Unwrap() error { return e.Reason }

func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

func reasonCode(err error) string {
	var r *refusal
	if errors.As(err, &r) {
		return r.code
	}
	return "other"
}
