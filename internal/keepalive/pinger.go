// Package keepalive periodically requests the service's own health endpoint
// so that hosts which idle inactive instances keep it awake.
package keepalive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	healthPath   = "/api/health"
	maxRetries   = 3
	pingTimeout  = 10 * time.Second
	defaultRetry = time.Second
)

// Pinger GETs <baseURL>/api/health on a fixed interval.
type Pinger struct {
	mu        sync.RWMutex
	client    *http.Client
	url       string
	interval  time.Duration
	retryBase time.Duration
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPinger(baseURL string, interval time.Duration, logger *slog.Logger) *Pinger {
	return &Pinger{
		client:    &http.Client{Timeout: pingTimeout},
		url:       baseURL + healthPath,
		interval:  interval,
		retryBase: defaultRetry,
		logger:    logger,
	}
}

// Start begins the ping loop. The first ping happens one interval after
// Start.
func (p *Pinger) Start(ctx context.Context) {
	p.mu.Lock()
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	p.logger.Info("keepalive started", "url", p.url, "interval", p.interval)

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.Ping(ctx); err != nil && ctx.Err() == nil {
					p.logger.Warn("keepalive ping failed", "url", p.url, "error", err)
				}
			}
		}
	}()
}

// Stop ends the loop and waits for an in-flight ping to finish.
func (p *Pinger) Stop() {
	p.mu.RLock()
	cancel := p.cancel
	done := p.done
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Ping performs one health request. Network errors and 5xx responses are
// retried with exponential backoff; other non-2xx responses are not.
func (p *Pinger) Ping(ctx context.Context) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(p.retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
		if err != nil {
			return fmt.Errorf("build ping request: %w", err)
		}
		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("ping: %w", err))
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("ping: status %d", resp.StatusCode))
		case resp.StatusCode >= 300:
			return fmt.Errorf("ping: status %d", resp.StatusCode)
		}
		p.logger.Debug("keepalive ping ok", "status", resp.StatusCode)
		return nil
	})
}
