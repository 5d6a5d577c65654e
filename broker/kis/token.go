package kis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/broker"
	"github.com/rustyeddy/equitrader/metrics"
)

const (
	tokenSafetyMargin = 30 * time.Second
	defaultTokenTTL   = 3600
)

type issueFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// tokenCache owns the bearer token. Issuance happens under the lock so
// concurrent callers share one refresh.
type tokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	issue   issueFunc
	persist func(string, time.Time) error
	now     func() time.Time
	log     zerolog.Logger
}

func newTokenCache(issue issueFunc, persist func(string, time.Time) error, now func() time.Time, log zerolog.Logger) *tokenCache {
	return &tokenCache{issue: issue, persist: persist, now: now, log: log}
}

func bearer(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

// seed installs a previously persisted token.
func (c *tokenCache) seed(token string, expiresAt time.Time) {
	if token == "" || !strings.HasPrefix(token, "Bearer ") {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.expiresAt = token, expiresAt
}

// EnsureValid returns a token that is valid now, issuing a new one when
// the cached token is missing or expired.
func (c *tokenCache) EnsureValid(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	raw, ttl, err := c.issue(ctx)
	if err != nil {
		metrics.TokenIssuesTotal.WithLabelValues("error").Inc()
		c.token, c.expiresAt = "", time.Time{}
		return "", err
	}
	metrics.TokenIssuesTotal.WithLabelValues("ok").Inc()

	c.token = bearer(raw)
	c.expiresAt = now.Add(ttl - tokenSafetyMargin)
	if c.persist != nil {
		if err := c.persist(c.token, c.expiresAt); err != nil {
			c.log.Warn().Err(err).Msg("persist token failed")
		}
	}
	c.log.Info().Dur("ttl", ttl).Msg("kis access token issued")
	return c.token, nil
}

func (c *tokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.expiresAt = "", time.Time{}
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

func (g *Gateway) issueToken(ctx context.Context) (string, time.Duration, error) {
	if g.creds == nil {
		return "", 0, fmt.Errorf("%w: credentials missing", broker.ErrAuth)
	}
	body, err := sonic.Marshal(tokenRequest{
		GrantType: "client_credentials",
		AppKey:    g.creds.Auth.AppKey,
		AppSecret: g.creds.Auth.AppSecret,
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: encode token request: %v", broker.ErrAuth, err)
	}

	status, data, err := g.send(ctx, "POST", TokenPath, nil, body, nil)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", broker.ErrAuth, err)
	}
	if status < 200 || status >= 300 {
		return "", 0, fmt.Errorf("%w: token endpoint HTTP %d: %s", broker.ErrAuth, status, snippet(data))
	}

	var resp map[string]any
	if err := sonic.Unmarshal(data, &resp); err != nil {
		return "", 0, fmt.Errorf("%w: decode token response: %v", broker.ErrAuth, err)
	}
	token := str(resp["access_token"])
	if token == "" {
		token = str(resp["accessToken"])
	}
	if token == "" {
		return "", 0, fmt.Errorf("%w: token response has no access_token", broker.ErrAuth)
	}

	ttl := defaultTokenTTL
	for _, k := range []string{"expires_in", "expiresIn"} {
		if v, ok := num(resp[k]); ok && v > 0 {
			ttl = int(v)
			break
		}
	}
	return token, time.Duration(ttl) * time.Second, nil
}
