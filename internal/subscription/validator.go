package subscription

import (
	"fmt"
	"net/url"

	"payrelay/internal/detect"
	"payrelay/pkg/cel"
)

func ValidateSubscription(req CreateSubscriptionRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.URL == "" {
		return fmt.Errorf("url is required")
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return err
	}
	if req.Title == "" {
		return fmt.Errorf("title is required")
	}
	if req.Text == "" {
		return fmt.Errorf("text is required")
	}
	if !detect.KnownEventType(req.EventType) {
		return fmt.Errorf("invalid event_type: %s. Allowed: sale_paid, refund, withdrawal_requested, withdrawal_approved", req.EventType)
	}
	if req.Filter != "" {
		if err := validateFilter(req.Filter); err != nil {
			return err
		}
	}
	return nil
}

func ValidateUpdateSubscription(req UpdateSubscriptionRequest) error {
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if req.URL != nil {
		if *req.URL == "" {
			return fmt.Errorf("url cannot be empty")
		}
		if err := validateWebhookURL(*req.URL); err != nil {
			return err
		}
	}
	if req.Title != nil && *req.Title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if req.Text != nil && *req.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if req.EventType != nil && !detect.KnownEventType(*req.EventType) {
		return fmt.Errorf("invalid event_type: %s. Allowed: sale_paid, refund, withdrawal_requested, withdrawal_approved", *req.EventType)
	}
	if req.Filter != nil && *req.Filter != "" {
		if err := validateFilter(*req.Filter); err != nil {
			return err
		}
	}
	return nil
}

func validateWebhookURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme: %s. Allowed: http, https", u.Scheme)
	}
	return nil
}

func validateFilter(expression string) error {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}
	if err := evaluator.ValidateFilterExpression(expression); err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}
	return nil
}
