package detect

import (
	"payrelay/internal/provider"
)

// LedgerReader is the read side of the dedup ledger the classifier consults.
type LedgerReader interface {
	Contains(id string) bool
}

type transactionRule struct {
	eventType EventType
	suffix    string
	matches   func(status string) bool
}

type withdrawalRule struct {
	eventType EventType
	suffix    string
	matches   func(status string) bool
}

// Rule groups are evaluated in this fixed order; record order within a group
// follows the provider response.
var transactionRules = []transactionRule{
	{
		eventType: EventSalePaid,
		suffix:    "paid",
		matches:   func(status string) bool { return status == "paid" },
	},
	{
		eventType: EventRefund,
		suffix:    "refunded",
		matches:   func(status string) bool { return status == "refunded" || status == "chargeback" },
	},
}

var withdrawalRules = []withdrawalRule{
	{
		eventType: EventWithdrawalRequested,
		suffix:    "requested",
		matches:   func(status string) bool { return status == "pending" },
	},
	{
		eventType: EventWithdrawalApproved,
		suffix:    "approved",
		matches:   func(status string) bool { return status == "approved" },
	},
}

// Classifier turns raw provider records into new events of interest. It is
// stateless; record-level dedup lives in the ledger.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the events not yet present in the ledger. Records with an
// unrecognized status are skipped silently. An identity appearing more than
// once in the same fetch window is emitted once.
func (c *Classifier) Classify(transactions []provider.Transaction, withdrawals []provider.Withdrawal, ledger LedgerReader) []Event {
	var events []Event
	seen := make(map[string]struct{})

	for _, rule := range transactionRules {
		for i := range transactions {
			t := &transactions[i]
			if t.ID == "" || !rule.matches(t.Status) {
				continue
			}

			identity := Identity{Kind: SubjectTransaction, RecordID: t.ID, Suffix: rule.suffix}
			key := identity.String()
			if _, dup := seen[key]; dup || ledger.Contains(key) {
				continue
			}
			seen[key] = struct{}{}

			events = append(events, Event{
				Type:        rule.eventType,
				Identity:    identity,
				Transaction: t,
			})
		}
	}

	for _, rule := range withdrawalRules {
		for i := range withdrawals {
			w := &withdrawals[i]
			if w.ID == "" || !rule.matches(w.Status) {
				continue
			}

			identity := Identity{Kind: SubjectWithdrawal, RecordID: w.ID, Suffix: rule.suffix}
			key := identity.String()
			if _, dup := seen[key]; dup || ledger.Contains(key) {
				continue
			}
			seen[key] = struct{}{}

			events = append(events, Event{
				Type:       rule.eventType,
				Identity:   identity,
				Withdrawal: w,
			})
		}
	}

	return events
}
