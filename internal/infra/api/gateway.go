package api

import (
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"netaccess-billing/internal/domain"
	"netaccess-billing/internal/infra/logging"
	"netaccess-billing/internal/infra/metrics"
	"netaccess-billing/internal/usecase"
)

// ackBody is the fixed acknowledgement the gateway expects.
const ackBody = "HTTP/1.0 200 OK"

// notify receives the gateway callback. Refusals never say why.
func (s *Server) notify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := r.ParseForm(); err != nil {
		metrics.ObserveNotification("refused", time.Since(start).Seconds())
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	fields := make(map[string]string, len(usecase.NotificationFields))
	for _, k := range usecase.NotificationFields {
		if vs, ok := r.PostForm[k]; ok && len(vs) > 0 {
			fields[k] = vs[0]
		}
	}

	methodID := chi.URLParam(r, "methodID")
	outcome, err := s.d.Notifications.HandleGateway(r.Context(), methodID, fields)
	if err != nil {
		l := logging.With(r.Context(), s.log)
		if domain.IsProtocolError(err) {
			metrics.ObserveNotification("refused", time.Since(start).Seconds())
			l.Warn().Err(err).Str("method_id", methodID).Msg("gateway notification refused")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// the gateway retries on 5xx
		metrics.ObserveNotification("error", time.Since(start).Seconds())
		l.Error().Err(err).Str("method_id", methodID).Msg("gateway notification failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	metrics.ObserveNotification(string(outcome), time.Since(start).Seconds())
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ackBody))
}

var landing = template.Must(template.New("landing").Parse(`<!doctype html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{.Title}}</h2>
  <p>{{.Body}}</p>
  {{if .Invoice}}<div class="small">{{.Invoice}}</div>{{end}}
</div>
</body>
</html>`))

// page renders the landing page the gateway returns the payer to. It shows
// no payment state: validation only happens through notify.
func (s *Server) page(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tr := s.d.Translator
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_ = landing.Execute(w, struct {
			Lang    string
			Title   string
			Body    string
			Invoice string
			OK      bool
		}{
			Lang:    tr.Lang(),
			Title:   tr.T("page." + kind + ".title"),
			Body:    tr.T("page." + kind + ".body"),
			Invoice: r.URL.Query().Get("invoice"),
			OK:      kind == "accept",
		})
	}
}
