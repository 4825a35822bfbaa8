package proxy

import (
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
)

// Endpoint is one proxy in the rotation. Label is what gets surfaced in
// call results; the full URL (which may carry credentials) stays internal.
// Each endpoint keeps its own HTTP client so idle connections through the
// proxy are reused across calls.
type Endpoint struct {
	URL    *url.URL
	Label  string
	client *http.Client
}

// Pool hands out proxy endpoints round-robin. An empty pool means direct
// connections.
type Pool struct {
	endpoints []Endpoint
	next      atomic.Uint64
}

func NewPool(rawURLs []string) (*Pool, error) {
	p := &Pool{}
	for _, raw := range rawURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		p.endpoints = append(p.endpoints, Endpoint{
			URL:    u,
			Label:  u.Host,
			client: &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(u)}},
		})
	}
	return p, nil
}

// Next returns the next endpoint in rotation, or nil when the pool is empty.
func (p *Pool) Next() *Endpoint {
	if len(p.endpoints) == 0 {
		return nil
	}
	n := p.next.Add(1) - 1
	return &p.endpoints[n%uint64(len(p.endpoints))]
}

func (p *Pool) Size() int {
	return len(p.endpoints)
}
