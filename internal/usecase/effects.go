package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/domain/ports/adapter"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

func (a Actor) canAccess(ownerID string) bool {
	return a.IsAdmin || (a.UserID != "" && a.UserID == ownerID)
}

// Dispatcher runs side-effect tasks outside the request path.
type Dispatcher interface {
	Submit(task func(ctx context.Context) error) error
}

// effects dispatches the post-commit side effects of billing operations.
// Nothing here may run before the transaction that justified it commits.
type effects struct {
	directory adapter.DirectorySync
	mailer    adapter.Mailer
	alerter   adapter.AdminAlerter
	pool      Dispatcher
	log       *zerolog.Logger
}

// Effects bundles the collaborators notified after billing state changes.
// Alerter may be nil.
type Effects struct {
	Directory adapter.DirectorySync
	Mailer    adapter.Mailer
	Alerter   adapter.AdminAlerter
	Pool      Dispatcher
}

func newEffects(e Effects, logger *zerolog.Logger) *effects {
	return &effects{directory: e.Directory, mailer: e.Mailer, alerter: e.Alerter, pool: e.Pool, log: logger}
}

// inlineTimeout bounds an effect run on the caller's goroutine after the
// pool refused it.
const inlineTimeout = 15 * time.Second

// submit hands task to the pool. A refused task is dropped, unless it is
// required, in which case it runs inline: access and subscriber mail must
// follow a validation even when the queue is saturated.
func (e *effects) submit(name string, required bool, task func(ctx context.Context) error) {
	if e.pool == nil {
		return
	}
	err := e.pool.Submit(task)
	if err == nil {
		return
	}
	if !required {
		e.log.Warn().Err(err).Str("effect", name).Msg("side effect dropped")
		return
	}
	e.log.Warn().Err(err).Str("effect", name).Msg("pool refused side effect, running inline")
	ctx, cancel := context.WithTimeout(context.Background(), inlineTimeout)
	defer cancel()
	if err := task(ctx); err != nil {
		e.log.Error().Err(err).Str("effect", name).Msg("inline side effect failed")
	}
}

func (e *effects) resync(userID string, opts adapter.ResyncOptions) {
	if e.directory == nil {
		return
	}
	e.submit("resync", true, func(ctx context.Context) error {
		return e.directory.ResyncAccess(ctx, userID, opts)
	})
}

func (e *effects) mail(m adapter.Mail) {
	if e.mailer == nil || m.Recipient == "" {
		return
	}
	e.submit("mail:"+m.Template, true, func(ctx context.Context) error {
		return e.mailer.Send(ctx, m)
	})
}

func (e *effects) alert(text string) {
	if e.alerter == nil {
		return
	}
	e.submit("alert", false, func(ctx context.Context) error {
		return e.alerter.Alert(ctx, text)
	})
}
