package commerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/core/catalog"
)

// ErrCircuitOpen is returned while the circuit breaker rejects requests
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client implements the CatalogGateway interface against a commerce
// catalog service GraphQL endpoint
type Client struct {
	httpClient  *http.Client
	retryPolicy *RetryPolicy
	breaker     *CircuitBreaker
	logger      ports.LoggingGateway
	stats       *APIStats
	mutex       sync.RWMutex
}

// APIStats tracks API usage statistics
type APIStats struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	TotalItems         int64         `json:"total_items"`
	AverageLatency     time.Duration `json:"average_latency"`
	LastRequestTime    time.Time     `json:"last_request_time"`
	LastError          string        `json:"last_error,omitempty"`
	connectionStatus   ports.ConnectionStatus
}

// RetryPolicy defines retry behavior
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	Multiplier  float64       `json:"multiplier"`
}

// DefaultRetryPolicy returns a sensible default retry policy
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
	}
}

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d: %s", e.Code, e.Body)
}

// NewClient creates a new commerce client
func NewClient(timeout time.Duration, policy *RetryPolicy, logger ports.LoggingGateway) *Client {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryPolicy: policy,
		breaker:     NewCircuitBreaker(5, 30*time.Second),
		logger:      logger,
		stats:       &APIStats{},
	}
}

// NewTestClient creates a new client with test-friendly settings
func NewTestClient(logger ports.LoggingGateway) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		retryPolicy: &RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   10 * time.Millisecond,
			MaxDelay:    100 * time.Millisecond,
			Multiplier:  2.0,
		},
		breaker: NewCircuitBreaker(3, 5*time.Second),
		logger:  logger,
		stats:   &APIStats{},
	}
}

// FetchConfig downloads and flattens the configs file
func (c *Client) FetchConfig(ctx context.Context, configURL string) (map[string]catalog.Config, error) {
	if configURL == "" {
		return nil, fmt.Errorf("config URL cannot be empty")
	}

	c.logger.Log(ports.LogLevelDebug, "Fetching configs file", map[string]interface{}{
		"url": configURL,
	})

	var configs map[string]catalog.Config
	err := c.executeWithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create config request: %w", err)
		}
		body, err := c.do(req)
		if err != nil {
			return err
		}
		configs, err = parseConfigs(body)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Log(ports.LogLevelInfo, "Loaded configs file", map[string]interface{}{
		"configs": len(configs),
	})
	return configs, nil
}

// FetchCategories returns the category tree below rootID
func (c *Client) FetchCategories(ctx context.Context, rootID string, cfg catalog.Config) ([]catalog.Category, error) {
	var data categoriesData
	if err := c.query(ctx, cfg, categoriesQuery, map[string]interface{}{"id": rootID}, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch categories of %s: %w", rootID, err)
	}

	categories := make([]catalog.Category, 0, len(data.Categories))
	for _, dto := range data.Categories {
		categories = append(categories, dto.toCategory())
	}

	c.logger.Log(ports.LogLevelDebug, "Fetched categories", map[string]interface{}{
		"root":  rootID,
		"count": len(categories),
	})
	return categories, nil
}

// FetchItems returns one page of the products in a category
func (c *Client) FetchItems(ctx context.Context, folderID string, page int, cfg catalog.Config) (catalog.ItemPage, error) {
	vars := map[string]interface{}{"id": folderID, "currentPage": page}
	result, err := c.productSearch(ctx, cfg, productsInCategoryQuery, vars)
	if err != nil {
		return catalog.ItemPage{}, fmt.Errorf("failed to fetch items of %s: %w", folderID, err)
	}
	return result, nil
}

// SearchItems returns one page of the products matching term
func (c *Client) SearchItems(ctx context.Context, term string, page int, cfg catalog.Config) (catalog.ItemPage, error) {
	vars := map[string]interface{}{"searchTerm": term, "currentPage": page}
	result, err := c.productSearch(ctx, cfg, productSearchQuery, vars)
	if err != nil {
		return catalog.ItemPage{}, fmt.Errorf("failed to search items for %q: %w", term, err)
	}
	return result, nil
}

// TestConnection fetches the configs file and records the connection status
func (c *Client) TestConnection(ctx context.Context, configURL string) error {
	start := time.Now()
	_, err := c.FetchConfig(ctx, configURL)
	if err != nil {
		c.updateConnectionStatus(false, time.Since(start), err.Error())
		return err
	}
	c.updateConnectionStatus(true, time.Since(start), "")
	return nil
}

// GetConnectionStatus returns the current connection status
func (c *Client) GetConnectionStatus() ports.ConnectionStatus {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stats.connectionStatus
}

// GetUsageStats returns API usage statistics
func (c *Client) GetUsageStats() (*ports.APIUsageStats, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return &ports.APIUsageStats{
		TotalRequests:      c.stats.TotalRequests,
		SuccessfulRequests: c.stats.SuccessfulRequests,
		FailedRequests:     c.stats.FailedRequests,
		TotalItems:         c.stats.TotalItems,
		AverageLatency:     c.stats.AverageLatency,
		LastRequestTime:    c.stats.LastRequestTime,
	}, nil
}

func (c *Client) productSearch(ctx context.Context, cfg catalog.Config, query string, vars map[string]interface{}) (catalog.ItemPage, error) {
	var data productSearchData
	if err := c.query(ctx, cfg, query, vars, &data); err != nil {
		return catalog.ItemPage{}, err
	}

	page, err := data.toItemPage(cfg.Endpoint())
	if err != nil {
		return catalog.ItemPage{}, err
	}

	c.mutex.Lock()
	c.stats.TotalItems += int64(len(page.Items))
	c.mutex.Unlock()
	return page, nil
}

// query sends a GraphQL query as a GET request with the store headers of cfg
func (c *Client) query(ctx context.Context, cfg catalog.Config, query string, vars map[string]interface{}, out interface{}) error {
	endpoint := cfg.Endpoint()
	if endpoint == "" {
		return fmt.Errorf("config has no %s", catalog.ConfigEndpoint)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	encodedVars, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	params := u.Query()
	params.Set("query", compactQuery(query))
	params.Set("variables", string(encodedVars))
	u.RawQuery = params.Encode()

	return c.executeWithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		setStoreHeaders(req, cfg)

		body, err := c.do(req)
		if err != nil {
			return err
		}

		var envelope graphQLResponse
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if len(envelope.Errors) > 0 {
			gqlErr := &GraphQLError{}
			for _, e := range envelope.Errors {
				gqlErr.Messages = append(gqlErr.Messages, e.Message)
			}
			return gqlErr
		}
		if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
			return fmt.Errorf("response has no data")
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
		return nil
	})
}

// do executes req and returns the body of a 2xx response
func (c *Client) do(req *http.Request) ([]byte, error) {
	c.logHTTPRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logHTTPResponse(resp, body, latency)
	c.updateLatency(latency)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

// setStoreHeaders sets the catalog service headers from the active config
func setStoreHeaders(req *http.Request, cfg catalog.Config) {
	req.Header.Set("Magento-Environment-Id", cfg[catalog.ConfigEnvironmentID])
	req.Header.Set("Magento-Store-View-Code", cfg[catalog.ConfigStoreViewCode])
	req.Header.Set("Magento-Website-Code", cfg[catalog.ConfigWebsiteCode])
	req.Header.Set("x-api-key", cfg[catalog.ConfigAPIKey])
	req.Header.Set("Magento-Store-Code", cfg[catalog.ConfigStoreCode])
	req.Header.Set("Magento-Customer-Group", cfg[catalog.ConfigCustomerGroup])
	req.Header.Set("Content-Type", "application/json")
}

// executeWithRetry executes a function with retry logic and circuit breaker
func (c *Client) executeWithRetry(ctx context.Context, fn func() error) error {
	if !c.breaker.CanExecute() {
		return ErrCircuitOpen
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < c.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.calculateDelay(attempt)
			c.logger.Log(ports.LogLevelDebug, "Retrying request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		attempts++
		c.updateStats(true, false, "")

		err := fn()
		if err == nil {
			c.breaker.RecordSuccess()
			c.updateStats(false, true, "")
			return nil
		}

		lastErr = err
		c.updateStats(false, false, err.Error())

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !c.shouldRetry(err) {
			break
		}
	}

	// one failure per request, however many attempts it took
	c.breaker.RecordFailure()
	c.logger.LogError(lastErr, "Catalog request failed", map[string]interface{}{
		"attempts": attempts,
	})
	return fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

// calculateDelay returns BaseDelay * Multiplier^(attempt-1), capped at MaxDelay
func (c *Client) calculateDelay(attempt int) time.Duration {
	factor := math.Pow(c.retryPolicy.Multiplier, float64(attempt-1))
	delay := time.Duration(float64(c.retryPolicy.BaseDelay) * factor)

	if delay > c.retryPolicy.MaxDelay {
		delay = c.retryPolicy.MaxDelay
	}

	return delay
}

// shouldRetry retries network errors, 5xx and 429 responses
func (c *Client) shouldRetry(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= 500 || statusErr.Code == http.StatusTooManyRequests
	}

	var gqlErr *GraphQLError
	if errors.As(err, &gqlErr) {
		return false
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr)
}

// isDebugEnabled checks if debug logging is enabled
func (c *Client) isDebugEnabled() bool {
	return c.logger != nil && c.logger.GetLogLevel() == ports.LogLevelDebug
}

// logHTTPRequest logs HTTP request details for debugging
func (c *Client) logHTTPRequest(req *http.Request) {
	if !c.isDebugEnabled() {
		return
	}

	headers := req.Header.Clone()
	if headers.Get("x-api-key") != "" {
		headers.Set("x-api-key", "***")
	}

	c.logger.Log(ports.LogLevelDebug, "HTTP Request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": headers,
	})
}

// logHTTPResponse logs HTTP response details for debugging
func (c *Client) logHTTPResponse(resp *http.Response, body []byte, latency time.Duration) {
	if !c.isDebugEnabled() {
		return
	}

	c.logger.Log(ports.LogLevelDebug, "HTTP Response", map[string]interface{}{
		"status_code":  resp.StatusCode,
		"body_size":    len(body),
		"body_preview": truncate(string(body), 1000),
		"latency_ms":   latency.Milliseconds(),
	})
}

// updateStats updates API statistics
func (c *Client) updateStats(isAttempt, isSuccess bool, errorMsg string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if isAttempt {
		c.stats.TotalRequests++
		c.stats.LastRequestTime = time.Now()
	}

	if isSuccess {
		c.stats.SuccessfulRequests++
		c.stats.LastError = ""
	} else if !isAttempt {
		c.stats.FailedRequests++
		c.stats.LastError = errorMsg
	}
}

// updateLatency updates average latency
func (c *Client) updateLatency(latency time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.stats.AverageLatency == 0 {
		c.stats.AverageLatency = latency
	} else {
		c.stats.AverageLatency = (c.stats.AverageLatency + latency) / 2
	}
}

// updateConnectionStatus updates the connection status
func (c *Client) updateConnectionStatus(connected bool, latency time.Duration, errorMsg string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.stats.connectionStatus.IsConnected = connected
	c.stats.connectionStatus.Latency = latency
	c.stats.connectionStatus.LastError = errorMsg

	if connected {
		c.stats.connectionStatus.LastConnected = time.Now()
		c.stats.connectionStatus.RetryCount = 0
	} else {
		c.stats.connectionStatus.RetryCount++
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
