package source

import (
	"context"
	"fmt"
	"mime"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/labassist/backend/internal/core/ports"
)

// HTTPOpener streams http and https sources. No client timeout is set: a long
// download is bounded by the caller's idle-read timeout, not wall time.
type HTTPOpener struct {
	client *resty.Client
}

func NewHTTPOpener(userAgent string) *HTTPOpener {
	c := resty.New().
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if userAgent != "" {
		c.SetHeader("User-Agent", userAgent)
	}
	return &HTTPOpener{client: c}
}

func (o *HTTPOpener) Open(ctx context.Context, u *url.URL) (*ports.Artifact, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("source: http get %s: %w", u.Redacted(), err)
	}

	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		body.Close()
		return nil, fmt.Errorf("%w: %d from %s", ErrBadStatus, resp.StatusCode(), u.Redacted())
	}

	art := &ports.Artifact{Body: body, Size: -1}
	if raw := resp.RawResponse; raw != nil {
		if raw.ContentLength >= 0 {
			art.Size = raw.ContentLength
		}
		if cd := raw.Header.Get("Content-Disposition"); cd != "" {
			if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
				art.Name = params["filename"]
			}
		}
		// Redirects may land on the real file name.
		if art.Name == "" && raw.Request != nil && raw.Request.URL != nil {
			art.Name = ArtifactName(raw.Request.URL)
		}
	}
	return art, nil
}
