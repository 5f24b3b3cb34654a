package monitor

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/trogers1052/market-notifier/internal/models"
)

// EmailListener simulates e-mail delivery by logging each notification
// against the recipient's address.
type EmailListener struct {
	registry *Registry
	log      zerolog.Logger
}

// NewEmailListener creates an EmailListener that resolves addresses through registry
func NewEmailListener(registry *Registry, log zerolog.Logger) *EmailListener {
	return &EmailListener{
		registry: registry,
		log:      log.With().Str("component", "email").Logger(),
	}
}

// OnNotification logs the simulated e-mail
func (e *EmailListener) OnNotification(n models.Notification) {
	sub, err := e.registry.Get(context.Background(), n.SubscriberID)
	if err != nil {
		e.log.Warn().Err(err).Int("subscriber_id", n.SubscriberID).Msg("No address for notification")
		return
	}
	e.log.Info().
		Str("to", sub.Email).
		Str("subject", n.Title).
		Str("priority", string(n.Priority)).
		Int("notification_id", n.ID).
		Msg("Email sent")
}
