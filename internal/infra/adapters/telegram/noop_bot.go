package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.AdminAlerter = (*NoopAlerter)(nil)

// NoopAlerter logs alerts instead of sending them. Used when no bot is
// configured.
type NoopAlerter struct{ log *zerolog.Logger }

func NewNoopAlerter(logger *zerolog.Logger) *NoopAlerter {
	l := logger.With().Str("component", "noop_alerter").Logger()
	return &NoopAlerter{log: &l}
}

func (n *NoopAlerter) Alert(ctx context.Context, text string) error {
	n.log.Info().Str("text", text).Msg("admin alert")
	return nil
}
