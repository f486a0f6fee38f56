// Package notify delivers alert batches to the outside world. The engine
// hands over one ordered batch per cycle and has no notion of how it is
// delivered; a failed delivery is logged by the caller and never retried
// within the cycle.
package notify

import (
	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

// Notifier delivers one alert batch.
type Notifier interface {
	// Name identifies the channel in logs, e.g. "email" or "telegram".
	Name() string
	// Send attempts delivery of the batch and reports failure. Channel-level
	// retries (rate limits, transient network errors) are the notifier's own
	// business.
	Send(batch models.AlertBatch) error
}
