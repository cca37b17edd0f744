package mailing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/service/recipient"
)

// LinkStore persists the per-recipient link rows the rewriter mints.
type LinkStore interface {
	CreateLink(ctx context.Context, l *domain.Link) error
}

// Rewriter turns a template HTML body into a per-recipient tracked body:
// every absolute href is swapped for a redirect through /track/click with a
// freshly minted link token, and the open pixel is appended before </body>.
type Rewriter struct {
	links   LinkStore
	baseURL string
}

// NewRewriter creates a rewriter. baseURL is the public tracking origin,
// e.g. "https://track.example.com", no trailing slash.
func NewRewriter(links LinkStore, baseURL string) *Rewriter {
	return &Rewriter{links: links, baseURL: strings.TrimRight(baseURL, "/")}
}

// Rewrite produces the tracked body for one recipient. Only absolute
// http(s) hrefs are rewritten; mailto:, anchors, and already-tracked URLs
// pass through untouched.
func (rw *Rewriter) Rewrite(ctx context.Context, html string, rec *domain.Recipient) (string, error) {
	out, err := rw.rewriteLinks(ctx, html, rec)
	if err != nil {
		return "", err
	}
	return rw.injectPixel(out, rec.Token), nil
}

func (rw *Rewriter) rewriteLinks(ctx context.Context, html string, rec *domain.Recipient) (string, error) {
	var b strings.Builder
	rest := html

	for {
		i := strings.Index(rest, `href="http`)
		if i == -1 {
			b.WriteString(rest)
			break
		}
		start := i + len(`href="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			b.WriteString(rest)
			break
		}

		originalURL := rest[start : start+end]
		b.WriteString(rest[:start])

		if strings.Contains(originalURL, "/track/") {
			b.WriteString(originalURL)
		} else {
			token, err := recipient.NewToken()
			if err != nil {
				return "", fmt.Errorf("mint link token: %w", err)
			}
			link := &domain.Link{
				ID:          uuid.NewString(),
				CampaignID:  rec.CampaignID,
				RecipientID: rec.ID,
				OriginalURL: originalURL,
				Token:       token,
				CreatedAt:   time.Now().UTC(),
			}
			if err := rw.links.CreateLink(ctx, link); err != nil {
				return "", fmt.Errorf("store link: %w", err)
			}
			b.WriteString(rw.baseURL + "/track/click?token=" + token)
		}

		rest = rest[start+end:]
	}

	return b.String(), nil
}

func (rw *Rewriter) injectPixel(html, token string) string {
	pixel := fmt.Sprintf(`<img src="%s/track/open?token=%s" width="1" height="1" style="display:none" />`,
		rw.baseURL, token)
	if strings.Contains(html, "</body>") {
		return strings.Replace(html, "</body>", pixel+"</body>", 1)
	}
	return html + pixel
}
