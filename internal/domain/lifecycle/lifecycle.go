// Package lifecycle enforces the quote state machine.
//
// Every function takes the quote by pointer and either applies the whole transition or
// returns an error leaving the quote untouched.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"quotes_service/internal/domain/entities"
)

// Transition names a status-changing operation.
type Transition string

const (
	Submit  Transition = "submit"
	Approve Transition = "approve"
	Reject  Transition = "reject"
)

var allowed = map[Transition]struct {
	from entities.QuoteStatus
	to   entities.QuoteStatus
}{
	Submit:  {from: entities.QuoteStatusDraft, to: entities.QuoteStatusSubmitted},
	Approve: {from: entities.QuoteStatusSubmitted, to: entities.QuoteStatusApproved},
	Reject:  {from: entities.QuoteStatusSubmitted, to: entities.QuoteStatusRejected},
}

// CanTransition reports whether t is legal from status.
func CanTransition(status entities.QuoteStatus, t Transition) bool {
	rule, ok := allowed[t]
	return ok && rule.from == status
}

// Target returns the status a legal transition leads to.
func Target(t Transition) (entities.QuoteStatus, bool) {
	rule, ok := allowed[t]
	return rule.to, ok
}

func requireFrom(q *entities.Quote, t Transition) error {
	if !CanTransition(q.Status, t) {
		return fmt.Errorf("%w: cannot %s quote %s in %s status", entities.ErrInvalidStateTransition, t, q.Number, q.Status)
	}
	return nil
}

// SubmitQuote moves a draft with at least one line item to SUBMITTED.
func SubmitQuote(q *entities.Quote, now time.Time) error {
	if err := requireFrom(q, Submit); err != nil {
		return err
	}
	if !q.HasLineItems() {
		return entities.NewValidationError(entities.FieldViolation{Field: "lineItems", Message: "at least one line item is required to submit"})
	}
	q.Status = entities.QuoteStatusSubmitted
	q.TouchUpdatedAt(now)
	return nil
}

// ApproveQuote records approverID as the approver of a SUBMITTED quote.
func ApproveQuote(q *entities.Quote, approverID string, now time.Time) error {
	if err := requireFrom(q, Approve); err != nil {
		return err
	}
	at := now.UTC()
	q.Status = entities.QuoteStatusApproved
	q.ApprovedBy = approverID
	q.ApprovedAt = &at
	q.RejectionReason = ""
	q.TouchUpdatedAt(now)
	return nil
}

// ValidateRejectionReason fails with ErrInvalidQuoteData for a blank reason.
func ValidateRejectionReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return entities.NewValidationError(entities.FieldViolation{Field: "rejectionReason", Message: "is required"})
	}
	return nil
}

// RejectQuote rejects a SUBMITTED quote. The reviewer is stored in ApprovedBy.
func RejectQuote(q *entities.Quote, reason, reviewerID string, now time.Time) error {
	if err := ValidateRejectionReason(reason); err != nil {
		return err
	}
	if err := requireFrom(q, Reject); err != nil {
		return err
	}
	at := now.UTC()
	q.Status = entities.QuoteStatusRejected
	q.RejectionReason = strings.TrimSpace(reason)
	q.ApprovedBy = reviewerID
	q.ApprovedAt = &at
	q.TouchUpdatedAt(now)
	return nil
}

// RequireEditable allows line item and category edits only before submission.
func RequireEditable(q *entities.Quote) error {
	if q.Status != entities.QuoteStatusDraft {
		return fmt.Errorf("%w: quote %s is %s and can no longer be edited", entities.ErrInvalidStateTransition, q.Number, q.Status)
	}
	return nil
}

// AcknowledgeQuote records a customer's acceptance of an approved quote. The status is
// not changed; APPROVED stays terminal.
func AcknowledgeQuote(q *entities.Quote, customerID string, now time.Time) error {
	if q.Status != entities.QuoteStatusApproved {
		return fmt.Errorf("%w: quote %s must be approved before a customer can acknowledge it (status %s)", entities.ErrInvalidStateTransition, q.Number, q.Status)
	}
	if q.CustomerAcknowledgedBy != "" {
		return fmt.Errorf("%w: quote %s was already acknowledged", entities.ErrInvalidStateTransition, q.Number)
	}
	at := now.UTC()
	q.CustomerAcknowledgedBy = customerID
	q.CustomerAcknowledgedAt = &at
	q.TouchUpdatedAt(now)
	return nil
}
