package errors

import "errors"

var (
	ErrWebhookNotFound     = errors.New("webhook configuration not found")
	ErrWebhookExists       = errors.New("webhook configuration already exists")
	ErrWebhookInactive     = errors.New("webhook configuration is inactive")
	ErrDeliveryNotFound    = errors.New("webhook delivery not found")
	ErrInvalidWebhookInput = errors.New("invalid webhook configuration input")
)
