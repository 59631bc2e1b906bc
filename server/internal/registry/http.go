package registry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/orgpulse/orgpulse/pkg/orgtree"
	"github.com/orgpulse/orgpulse/server/internal/config"
)

// treePath is where the registry serves the full organization tree.
const treePath = "/api/org/tree"

// maxBodyBytes bounds the size of a registry answer.
const maxBodyBytes = 32 << 20

// httpSource fetches trees from a registry over HTTP.
type httpSource struct {
	url      string
	client   *http.Client
	limiter  *rate.Limiter // nil when unlimited
	retries  int
	maxDepth int

	// backoff bounds; tests shrink them.
	waitInitial time.Duration
	waitMax     time.Duration
}

func newHTTPSource(cfg config.RegistryConfig) (*httpSource, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("registry: build http client: %w", err)
	}
	s := &httpSource{
		url:         strings.TrimRight(cfg.URL, "/") + treePath,
		client:      client,
		retries:     cfg.Retries,
		maxDepth:    cfg.MaxDepth,
		waitInitial: backoffInitial,
		waitMax:     backoffMax,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return s, nil
}

// FetchTree implements Source.
func (s *httpSource) FetchTree(ctx context.Context) (*orgtree.Unit, error) {
	bo := newBackoff(s.waitInitial, s.waitMax)

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			wait := bo.next()
			slog.Warn("registry: fetch failed, will retry",
				"url", s.url, "attempt", attempt, "err", lastErr, "retry_in", wait)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		root, err := s.fetchOnce(ctx)
		if err == nil {
			return checkTree(root, s.maxDepth)
		}
		if !errors.Is(err, ErrUnavailable) || isPermanentError(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *httpSource) fetchOnce(ctx context.Context) (*orgtree.Unit, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", ErrUnavailable, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http get: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return decodeEnvelopeJSON(body)
}

// Close implements Source.
func (s *httpSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// statusError is a non-200 registry answer.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry: unexpected status %d", e.code)
}

func (e *statusError) Unwrap() error { return ErrUnavailable }

// isPermanentError reports whether retrying cannot help: the registry
// rejected the request itself or our credentials.
func isPermanentError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.ClientAuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "apikey":
		req = req.Clone(req.Context())
		req.Header.Set(t.auth.Header, t.auth.Key())
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the registry's auth and TLS settings.
func buildHTTPClient(cfg config.RegistryConfig) (*http.Client, error) {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}

	if cfg.Auth.Mode == "mtls" {
		cert, err := tls.LoadX509KeyPair(cfg.Auth.CertFile, cfg.Auth.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}

		if cfg.Auth.CAFile != "" {
			caPEM, err := os.ReadFile(cfg.Auth.CAFile)
			if err != nil {
				return nil, fmt.Errorf("read ca file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("no valid certs found in ca file %q", cfg.Auth.CAFile)
			}
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRegistryTimeout
	}
	return &http.Client{
		Transport: &authRoundTripper{
			base: &http.Transport{TLSClientConfig: tlsCfg},
			auth: cfg.Auth,
		},
		Timeout: timeout,
	}, nil
}
