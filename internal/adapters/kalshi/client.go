package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	prodBase = "https://api.elections.kalshi.com"
	demoBase = "https://demo-api.kalshi.co"

	// Rate limits al 60% de los límites documentados del tier básico.
	marketsRatePerSec = 10
	ordersRatePerSec  = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// AuthFunc firma una request y devuelve los headers de autenticación. La
// firma RSA en sí es un colaborador externo: el core solo necesita el hook.
type AuthFunc func(method, path string) (http.Header, error)

// Client es el HTTP client de Kalshi con rate limiting y retries.
type Client struct {
	http           *http.Client
	base           string
	auth           AuthFunc
	marketsLimiter *rate.Limiter
	ordersLimiter  *rate.Limiter
}

// NewClient crea un Client contra el entorno dado ("prod" o "demo"). auth
// puede ser nil para los endpoints públicos de mercado.
func NewClient(env string, auth AuthFunc) *Client {
	base := demoBase
	if env == "prod" {
		base = prodBase
	}
	return &Client{
		http:           &http.Client{Timeout: 10 * time.Second},
		base:           base,
		auth:           auth,
		marketsLimiter: rate.NewLimiter(marketsRatePerSec, 5),
		ordersLimiter:  rate.NewLimiter(ordersRatePerSec, 2),
	}
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		return c.newRequest(ctx, http.MethodGet, path, nil)
	}, out)
}

// post hace un POST JSON con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		return c.newRequest(ctx, http.MethodPost, path, b)
	}, out)
}

// del hace un DELETE con rate limiting y retries.
func (c *Client) del(ctx context.Context, limiter *rate.Limiter, path string, out any) error {
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		return c.newRequest(ctx, http.MethodDelete, path, nil)
	}, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.auth != nil {
		hdr, err := c.auth(method, path)
		if err != nil {
			return nil, fmt.Errorf("auth headers: %w", err)
		}
		for k, vs := range hdr {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	return c.http.Do(req)
}

// doWithRetry ejecuta la función con backoff exponencial y jitter. Los
// errores transitorios (red, 429, 5xx) se reintentan; el resto no.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("API error %d: %s", resp.StatusCode, body)
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unreachable")
}

// sleep espera con backoff exponencial + jitter, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(float64(baseRetryWait) * math.Pow(2, float64(attempt)))
	wait += time.Duration(rand.Int63n(int64(wait / 2)))
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
