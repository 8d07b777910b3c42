// Package notifier delivers the lifecycle emails of an access request:
// confirmation with the validation link, identity-validated acknowledgement
// and the data-ready notice with its time-limited download link.
package notifier

import (
	"context"

	"arcop/internal/domain"
)

// Notifier is the delivery port the lifecycle service depends on. A failed
// delivery must not roll back persisted state; the service reports it as a
// delivery error and the request stays queryable.
type Notifier interface {
	// SendConfirmation mails the validation link right after intake.
	SendConfirmation(ctx context.Context, req domain.Request) error

	// SendIdentityConfirmed acknowledges a successful identity validation
	// and states the response deadline.
	SendIdentityConfirmed(ctx context.Context, req domain.Request) error

	// SendDataReady delivers the download link once the request is resolved.
	SendDataReady(ctx context.Context, req domain.Request) error
}

// Settings carries the portal facts every template needs.
type Settings struct {
	// BaseURL is the public portal origin, e.g. https://portal.example.cl.
	BaseURL     string
	CompanyName string
	DPOEmail    string
	// TokenTTLMinutes is stated in the confirmation email so the recipient
	// knows how long the validation link stays usable.
	TokenTTLMinutes  int
	DownloadTTLHours int
	// ResponseDays is the business-day response window stated in the
	// identity-validated email.
	ResponseDays int
}
