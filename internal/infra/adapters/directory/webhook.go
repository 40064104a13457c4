package directory

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/config"
	"netaccess-billing/internal/domain/ports/adapter"
)

var _ adapter.DirectorySync = (*WebhookSync)(nil)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Billing-Signature"

// WebhookSync asks the directory service to refresh a user's access by
// posting a signed JSON body to <url>/users/<id>/resync.
type WebhookSync struct {
	baseURL string
	secret  []byte
	client  *http.Client
	log     *zerolog.Logger
}

func NewWebhookSync(cfg config.DirectoryConfig, logger *zerolog.Logger) *WebhookSync {
	l := logger.With().Str("component", "directory").Logger()
	return &WebhookSync{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		secret:  []byte(cfg.Secret),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     &l,
	}
}

type resyncRequest struct {
	Base          bool `json:"base"`
	AccessRefresh bool `json:"access_refresh"`
	MacRefresh    bool `json:"mac_refresh"`
}

func (w *WebhookSync) ResyncAccess(ctx context.Context, userID string, opts adapter.ResyncOptions) error {
	body, err := json.Marshal(resyncRequest{Base: opts.Base, AccessRefresh: opts.AccessRefresh, MacRefresh: opts.MacRefresh})
	if err != nil {
		return err
	}
	endpoint := w.baseURL + "/users/" + url.PathEscape(userID) + "/resync"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(w.secret, body))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("directory resync: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("directory resync: status %d", resp.StatusCode)
	}
	w.log.Debug().Str("user_id", userID).Bool("access_refresh", opts.AccessRefresh).Msg("access resynced")
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret, body []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// NoopSync only logs; used when no directory URL is configured.
type NoopSync struct{ log *zerolog.Logger }

func NewNoopSync(logger *zerolog.Logger) *NoopSync {
	l := logger.With().Str("component", "directory").Logger()
	return &NoopSync{log: &l}
}

func (n *NoopSync) ResyncAccess(ctx context.Context, userID string, opts adapter.ResyncOptions) error {
	n.log.Info().Str("user_id", userID).Interface("opts", opts).Msg("directory resync skipped (no directory configured)")
	return nil
}
