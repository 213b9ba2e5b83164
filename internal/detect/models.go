package detect

import (
	"fmt"

	"payrelay/internal/provider"
)

type SubjectKind string

const (
	SubjectTransaction SubjectKind = "transaction"
	SubjectWithdrawal  SubjectKind = "withdrawal"
)

type EventType string

const (
	EventSalePaid            EventType = "sale_paid"
	EventRefund              EventType = "refund"
	EventWithdrawalRequested EventType = "withdrawal_requested"
	EventWithdrawalApproved  EventType = "withdrawal_approved"
)

// KnownEventType reports whether t is one of the four detected event types.
func KnownEventType(t string) bool {
	switch EventType(t) {
	case EventSalePaid, EventRefund, EventWithdrawalRequested, EventWithdrawalApproved:
		return true
	}
	return false
}

// Identity is the dedup key for one detected state transition. Its String
// form is what gets persisted; two identities collide only if all three
// parts match.
type Identity struct {
	Kind     SubjectKind
	RecordID string
	Suffix   string
}

func (i Identity) String() string {
	return fmt.Sprintf("%s-%s-%s", i.Kind, i.RecordID, i.Suffix)
}

// Event is a newly detected state transition together with the provider
// record it was derived from. Exactly one of Transaction and Withdrawal is
// set, matching Identity.Kind.
type Event struct {
	Type        EventType
	Identity    Identity
	Transaction *provider.Transaction
	Withdrawal  *provider.Withdrawal
}

// Payload flattens the event for filter evaluation and the broker mirror.
func (e Event) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"kind": string(e.Identity.Kind),
		"type": string(e.Type),
		"id":   e.Identity.RecordID,
	}

	switch {
	case e.Transaction != nil:
		payload["status"] = e.Transaction.Status
		payload["amount"] = e.Transaction.Amount
		payload["payment_method"] = e.Transaction.PaymentMethod
		payload["installments"] = e.Transaction.Installments
		if e.Transaction.Customer != nil {
			payload["customer"] = map[string]interface{}{
				"name":     e.Transaction.Customer.Name,
				"email":    e.Transaction.Customer.Email,
				"document": e.Transaction.Customer.Document,
			}
		}
	case e.Withdrawal != nil:
		payload["status"] = e.Withdrawal.Status
		payload["amount"] = e.Withdrawal.Amount
	}

	return payload
}
