package tracking

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/phishtrack/internal/classifier"
	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/pkg/logger"
	trackingsvc "github.com/ignite/phishtrack/internal/service/tracking"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Ingestor is the slice of the tracking service the handlers need.
// *trackingsvc.Service satisfies it.
type Ingestor interface {
	HandleOpen(ctx context.Context, token string, rc classifier.RequestContext) bool
	HandleClick(ctx context.Context, token string, rc classifier.RequestContext) (string, bool, bool)
	StorePending(ctx context.Context, token string, kind domain.PendingEventType, rc classifier.RequestContext) (string, error)
	Confirm(ctx context.Context, token string, now time.Time) bool
}

// Config holds the handler tunables.
type Config struct {
	// FallbackURL is where an unresolvable click token redirects. The page
	// behind it should look like an expired-link notice.
	FallbackURL string

	// RequireConfirmation routes every pixel hit through the two-phase
	// pending flow instead of counting on first sight.
	RequireConfirmation bool
}

type Handler struct {
	svc Ingestor
	pub *Publisher
	cfg Config
}

func NewHandler(svc Ingestor, pub *Publisher, cfg Config) *Handler {
	return &Handler{svc: svc, pub: pub, cfg: cfg}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/open", h.HandleOpen)
	r.Get("/track/click", h.HandleClick)
	r.Post("/track/click-beacon", h.HandleClickBeacon)
	r.Get("/health", h.HandleHealth)
	return r
}

// HandleOpen serves the tracking pixel. The response is identical for
// genuine opens, scans, and garbage tokens so the endpoint leaks nothing.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.servePixel(w)
		return
	}
	rc := requestContext(r)

	if h.cfg.RequireConfirmation || r.URL.Query().Get("js") == "1" {
		if _, err := h.svc.StorePending(r.Context(), token, domain.PendingOpen, rc); err != nil {
			logger.Debug("pending open not stored", "token", token, "error", err.Error())
		}
		h.servePixel(w)
		return
	}

	if h.svc.HandleOpen(r.Context(), token, rc) {
		h.pub.Publish(r.Context(), AnalyticsEvent{
			EventType: "opened", Token: token,
			IPAddress: rc.IP, UserAgent: rc.UserAgent, Timestamp: rc.Now,
		})
	}
	h.servePixel(w)
}

// HandleClick records the click and redirects. Every hit gets a redirect,
// bot or not; bots go to the real target, unresolvable tokens to the
// fallback page.
func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	rc := requestContext(r)

	url, _, counted := h.svc.HandleClick(r.Context(), token, rc)
	if url == "" {
		url = h.cfg.FallbackURL
	}
	if counted {
		h.pub.Publish(r.Context(), AnalyticsEvent{
			EventType: "clicked", Token: token, LinkURL: url,
			IPAddress: rc.IP, UserAgent: rc.UserAgent, Timestamp: rc.Now,
		})
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// HandleClickBeacon is the script-driven confirmation for the two-phase
// flow. Always 204: the landing page fires it blind.
func (h *Handler) HandleClickBeacon(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token != "" {
		if h.svc.Confirm(r.Context(), token, time.Now().UTC()) {
			h.pub.Publish(r.Context(), AnalyticsEvent{
				EventType: "confirmed", Token: token,
				IPAddress: realIP(r), UserAgent: r.UserAgent(), Timestamp: time.Now().UTC(),
			})
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func requestContext(r *http.Request) classifier.RequestContext {
	return classifier.RequestContext{
		IP:        realIP(r),
		UserAgent: r.UserAgent(),
		Now:       time.Now().UTC(),
	}
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

var _ Ingestor = (*trackingsvc.Service)(nil)
