// Package rewardsapi is the HTTP gateway to the remote rewards-card catalog
// API. It builds authenticated requests, enforces a client-side rate limit,
// retries transient failures with exponential backoff, and maps transport
// and decoding failures into a typed error set.
package rewardsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production rewards API endpoint.
	DefaultBaseURL = "https://rewards-credit-card-api.p.rapidapi.com"

	rateLimitDelay = 200 * time.Millisecond
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second

	headerAPIKey  = "X-RapidAPI-Key"
	headerAPIHost = "X-RapidAPI-Host"
)

// Client is a rate-limited rewards API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	apiKey      string
	apiHost     string
}

// Options configures a Client.
type Options struct {
	// BaseURL overrides the production endpoint. Used by tests.
	BaseURL string

	// APIKey and APIHost are the two fixed authentication headers the
	// upstream requires on every request.
	APIKey  string
	APIHost string

	// Timeout is the per-request HTTP timeout. Default: 30s.
	Timeout time.Duration
}

// NewClient creates a rewards API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = requestTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		apiHost:     opts.APIHost,
	}
}

// ListCards retrieves the basic card listing.
func (c *Client) ListCards(ctx context.Context) ([]Card, error) {
	u := fmt.Sprintf("%s/cards", c.baseURL)

	var cards []Card
	if err := c.doRequest(ctx, u, &cards); err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}

	return cards, nil
}

// GetCardDetail retrieves the enriched record for one card. The upstream
// returns a single-element array; an empty array means the card key is
// unknown and is left to the caller to interpret.
func (c *Client) GetCardDetail(ctx context.Context, cardKey string) ([]CardDetailRecord, error) {
	u := fmt.Sprintf("%s/creditcard-detail-bycard/%s", c.baseURL, url.PathEscape(cardKey))

	var records []CardDetailRecord
	if err := c.doRequest(ctx, u, &records); err != nil {
		return nil, fmt.Errorf("failed to get detail for %q: %w", cardKey, err)
	}

	return records, nil
}

// SearchByName searches cards by free-text term.
func (c *Client) SearchByName(ctx context.Context, term string) ([]SearchResult, error) {
	u := fmt.Sprintf("%s/creditcard-detail-namesearch/%s", c.baseURL, url.PathEscape(term))

	var results []SearchResult
	if err := c.doRequest(ctx, u, &results); err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", term, err)
	}

	return results, nil
}

// GetCardImage retrieves image metadata for a card. The upstream is
// inconsistent and answers with either an array or a bare object, so both
// shapes are decoded explicitly.
func (c *Client) GetCardImage(ctx context.Context, cardKey string) ([]CardImage, error) {
	u := fmt.Sprintf("%s/creditcard-card-image/%s", c.baseURL, url.PathEscape(cardKey))

	var raw json.RawMessage
	if err := c.doRequest(ctx, u, &raw); err != nil {
		return nil, fmt.Errorf("failed to get image metadata for %q: %w", cardKey, err)
	}

	images, err := decodeImagePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to get image metadata for %q: %w", cardKey, &DecodeError{URL: u, Err: err})
	}

	return images, nil
}

// decodeImagePayload handles the two response shapes of the image endpoint.
func decodeImagePayload(raw json.RawMessage) ([]CardImage, error) {
	trimmed := []byte(raw)
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t' || trimmed[0] == '\n' || trimmed[0] == '\r') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var images []CardImage
		if err := json.Unmarshal(trimmed, &images); err != nil {
			return nil, err
		}
		return images, nil
	}

	var single CardImage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []CardImage{single}, nil
}

// DownloadImage fetches raw image bytes from an arbitrary URL. It bypasses
// the JSON decode path but shares the rate limiter.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{URL: imageURL}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{URL: imageURL, Err: err}
	}
	if len(data) == 0 {
		return nil, &DecodeError{URL: imageURL, Err: fmt.Errorf("empty image body")}
	}

	return data, nil
}

// doRequest performs a GET with authentication headers, rate limiting, and
// retry with exponential backoff. Non-2xx and malformed-JSON responses are
// failures; payloads are never partially parsed.
func (c *Client) doRequest(ctx context.Context, requestURL string, result interface{}) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return &RequestError{URL: requestURL, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return &RequestError{URL: requestURL, Err: err}
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set(headerAPIKey, c.apiKey)
		req.Header.Set(headerAPIHost, c.apiHost)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &RequestError{URL: requestURL, Err: err}

			if attempt < maxRetries && ctx.Err() == nil {
				time.Sleep(backoff)
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			if readErr != nil {
				return &RequestError{URL: requestURL, Err: readErr}
			}
			if err := json.Unmarshal(body, result); err != nil {
				return &DecodeError{URL: requestURL, Err: err}
			}
			return nil

		case http.StatusTooManyRequests:
			lastErr = &APIError{StatusCode: resp.StatusCode}

			if attempt < maxRetries {
				if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
					if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
						time.Sleep(d)
					} else {
						time.Sleep(backoff)
					}
				} else {
					time.Sleep(backoff)
				}
				backoff = min(backoff*2, maxBackoff)
				continue
			}
			return lastErr

		case http.StatusNotFound:
			return &NotFoundError{URL: requestURL}

		default:
			return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
