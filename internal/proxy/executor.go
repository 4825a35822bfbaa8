package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
)

// CallResult is the outcome of one proxied request. Ordinary HTTP and
// network failures are reported here, never as a Go error, so callers can
// account for them without unwinding.
type CallResult struct {
	Success    bool
	Data       []byte
	Err        error
	StatusCode int
	ProxyUsed  string
	Latency    time.Duration
}

// Executor issues single requests through the pool's rotation. Clients are
// cached per endpoint; the timeout is applied per request via the context so
// idle connections stay reusable.
type Executor struct {
	pool   *Pool
	direct *http.Client
}

func NewExecutor(pool *Pool) *Executor {
	return &Executor{
		pool:   pool,
		direct: &http.Client{},
	}
}

// Execute performs one request through the next proxy in rotation.
// A non-2xx status or a transport failure yields Success=false; the
// returned CallResult always names the proxy that served the attempt.
func (e *Executor) Execute(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, timeout time.Duration) CallResult {
	client := e.direct
	proxyUsed := "direct"

	if ep := e.pool.Next(); ep != nil {
		client = ep.client
		proxyUsed = ep.Label
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return CallResult{Err: err, ProxyUsed: proxyUsed}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	res, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		logger.Log.Warn("proxied request failed",
			zap.String("proxy", proxyUsed),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		return CallResult{Err: err, ProxyUsed: proxyUsed, Latency: latency}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return CallResult{Err: err, StatusCode: res.StatusCode, ProxyUsed: proxyUsed, Latency: latency}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return CallResult{
			Data:       data,
			Err:        &StatusError{Code: res.StatusCode},
			StatusCode: res.StatusCode,
			ProxyUsed:  proxyUsed,
			Latency:    latency,
		}
	}

	return CallResult{
		Success:    true,
		Data:       data,
		StatusCode: res.StatusCode,
		ProxyUsed:  proxyUsed,
		Latency:    latency,
	}
}
