package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketplace-sync-service/internal/logger"
	"marketplace-sync-service/internal/proxy"
)

// RequestExecutor is the transport the client fetches through; satisfied by
// proxy.Executor.
type RequestExecutor interface {
	Execute(ctx context.Context, method, rawURL string, headers map[string]string, body []byte, timeout time.Duration) proxy.CallResult
}

// Client fetches one page at a time from the seller API, normalizing both
// endpoint shapes into Page.
type Client struct {
	executor RequestExecutor
	baseURL  string
	timeout  time.Duration
}

func NewClient(executor RequestExecutor, baseURL string, timeout time.Duration) *Client {
	return &Client{
		executor: executor,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
	}
}

// FetchPage requests one page of the given kind. A page with zero items is a
// normal result, not an error. HTTP 429 returns ErrRateLimited; a decodable
// but wrong-shaped body returns *ShapeError.
func (c *Client) FetchPage(ctx context.Context, kind Kind, apiKey string, pageNumber, pageSize int) (*Page, error) {
	endpoint, err := c.endpointURL(kind, pageNumber, pageSize)
	if err != nil {
		return nil, err
	}

	headers := map[string]string{
		"Authorization": "Key " + apiKey,
		"Accept":        "application/json",
	}

	res := c.executor.Execute(ctx, http.MethodGet, endpoint, headers, nil, c.timeout)
	if !res.Success {
		if res.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("page %d via %s: %w", pageNumber, res.ProxyUsed, ErrRateLimited)
		}
		return nil, fmt.Errorf("page %d via %s: %w", pageNumber, res.ProxyUsed, res.Err)
	}

	logger.Log.Debug("fetched page",
		zap.String("kind", string(kind)),
		zap.Int("page", pageNumber),
		zap.String("proxy", res.ProxyUsed),
		zap.Duration("latency", res.Latency),
	)

	page, err := normalize(kind, res.Data)
	if err != nil {
		return nil, err
	}
	if page.PageSize == 0 {
		page.PageSize = pageSize
	}
	return page, nil
}

func (c *Client) endpointURL(kind Kind, pageNumber, pageSize int) (string, error) {
	var path string
	switch kind {
	case KindProducts:
		path = "/v2/offers"
	case KindSales:
		path = "/v2/sales"
	default:
		return "", fmt.Errorf("unknown data kind %q", kind)
	}

	q := url.Values{}
	q.Set("page_number", strconv.Itoa(pageNumber))
	q.Set("page_size", strconv.Itoa(pageSize))
	return c.baseURL + path + "?" + q.Encode(), nil
}

func normalize(kind Kind, data []byte) (*Page, error) {
	switch kind {
	case KindProducts:
		var res catalogResponse
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, &ShapeError{Kind: kind, Detail: err.Error()}
		}
		if res.Offers == nil {
			return nil, &ShapeError{Kind: kind, Detail: "missing offers field"}
		}
		return &Page{Items: res.Offers, TotalCount: res.TotalResults, PageSize: res.PageSize}, nil

	case KindSales:
		var res salesResponse
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, &ShapeError{Kind: kind, Detail: err.Error()}
		}
		if res.Sales == nil {
			return nil, &ShapeError{Kind: kind, Detail: "missing sales field"}
		}
		return &Page{Items: res.Sales, TotalCount: res.PageSummary.Total, PageSize: res.PageSummary.PageSize}, nil
	}

	return nil, fmt.Errorf("unknown data kind %q", kind)
}
