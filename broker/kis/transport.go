package kis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rustyeddy/equitrader/broker"
)

// send performs one bounded HTTP round trip. A non-nil error is always a
// transport failure; HTTP status handling is left to the caller.
func (g *Gateway) send(ctx context.Context, method, path string, query url.Values, body []byte, headers map[string]string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	u := g.opts.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: create request: %v", broker.ErrTransport, err)
	}
	req.Header.Set("content-type", "application/json; charset=UTF-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s %s: %v", broker.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: read response: %v", broker.ErrTransport, err)
	}
	return resp.StatusCode, data, nil
}

func retryable(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusInternalServerError
}

// call sends an authenticated request. On 401, 403 or 500 it drops the
// token, issues a fresh one and retries exactly once.
func (g *Gateway) call(ctx context.Context, method, path, trID string, query url.Values, body []byte) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := g.tokens.EnsureValid(ctx)
		if err != nil {
			return nil, err
		}

		status, data, err := g.send(ctx, method, path, query, body, map[string]string{
			"authorization": token,
			"appkey":        g.creds.Auth.AppKey,
			"appsecret":     g.creds.Auth.AppSecret,
			"tr_id":         trID,
		})
		if err != nil {
			return nil, err
		}
		if retryable(status) && attempt == 0 {
			g.log.Warn().Int("status", status).Str("tr_id", trID).Msg("kis auth failure, retrying with a new token")
			g.tokens.Invalidate()
			continue
		}
		if status < 200 || status >= 300 {
			return nil, fmt.Errorf("%w: %s HTTP %d: %s", broker.ErrTransport, trID, status, snippet(data))
		}
		return data, nil
	}
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// num reads a JSON number that may arrive as a number or a numeric string.
func num(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case string:
		if x == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
