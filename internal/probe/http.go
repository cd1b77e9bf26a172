package probe

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hugo-lorenzo-mato/netdiag/internal/core"
)

const maxRedirects = 10

// HTTPResult captures the timing and shape of one HTTP GET.
type HTTPResult struct {
	URL           string        `json:"url"`
	FinalURL      string        `json:"final_url"`
	StatusCode    int           `json:"status_code"`
	Proto         string        `json:"proto"`
	ResponseTime  time.Duration `json:"response_time"`
	ContentLength int64         `json:"content_length"`
	ContentType   string        `json:"content_type,omitempty"`
	Server        string        `json:"server,omitempty"`
	Redirects     int           `json:"redirects"`
}

// FetchHTTP issues a GET and records status, timing and redirect count. The
// body is drained and discarded so the connection can be reused.
func (p *Prober) FetchHTTP(ctx context.Context, url string) (HTTPResult, error) {
	res := HTTPResult{URL: url}

	var redirects int
	client := &http.Client{
		Timeout: p.cfg.HTTPTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirects = len(via)
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, core.ErrNetwork("HTTP_REQUEST", "building request for "+url).WithCause(err)
	}

	started := time.Now()
	resp, err := client.Do(req)
	res.ResponseTime = time.Since(started)
	if err != nil {
		return res, core.ErrNetwork("HTTP_FETCH", "fetching "+url).WithCause(err)
	}
	defer resp.Body.Close()

	// Cap the drain; the probe cares about timing, not payload.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	res.FinalURL = resp.Request.URL.String()
	res.StatusCode = resp.StatusCode
	res.Proto = resp.Proto
	res.ContentLength = resp.ContentLength
	res.ContentType = resp.Header.Get("Content-Type")
	res.Server = resp.Header.Get("Server")
	res.Redirects = redirects

	p.logger.Debug("probe: http fetched",
		"url", url, "status", res.StatusCode, "duration", res.ResponseTime)
	return res, nil
}
