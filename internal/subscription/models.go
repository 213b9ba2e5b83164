package subscription

import "time"

// Subscription is one operator-configured webhook target listening for a
// single event type. Title and Text are templates; Filter is an optional CEL
// expression narrowing which events of that type get delivered.
type Subscription struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	URL       string    `json:"url" db:"url"`
	Title     string    `json:"title" db:"title"`
	Text      string    `json:"text" db:"text"`
	EventType string    `json:"event_type" db:"event_type"`
	Filter    string    `json:"filter,omitempty" db:"filter_expression"`
	Enabled   bool      `json:"enabled" db:"enabled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CreateSubscriptionRequest struct {
	Name      string `json:"name" binding:"required"`
	URL       string `json:"url" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Text      string `json:"text" binding:"required"`
	EventType string `json:"event_type" binding:"required"`
	Filter    string `json:"filter"`
	Enabled   *bool  `json:"enabled"`
}

type UpdateSubscriptionRequest struct {
	Name      *string `json:"name"`
	URL       *string `json:"url"`
	Title     *string `json:"title"`
	Text      *string `json:"text"`
	EventType *string `json:"event_type"`
	Filter    *string `json:"filter"`
	Enabled   *bool   `json:"enabled"`
}

type Status struct {
	Running             bool `json:"running"`
	IntervalSeconds     int  `json:"interval_seconds"`
	ProcessedCount      int  `json:"processed_count"`
	SubscriptionsCount  int  `json:"subscriptions_count"`
	ActiveSubscriptions int  `json:"active_subscriptions"`
}

type TestDeliveryResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Error   string `json:"error,omitempty"`
}
