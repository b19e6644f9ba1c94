package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ScrapingBeeClient routes page requests through the ScrapingBee proxy API
// so that listing portals with bot protection return rendered HTML
type ScrapingBeeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	defaults   ScrapingBeeOptions
	limiter    *HostLimiter
}

// NewScrapingBeeClient creates a new ScrapingBee client
func NewScrapingBeeClient(apiKey string, limiter *HostLimiter) *ScrapingBeeClient {
	return &ScrapingBeeClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // JS rendering with premium proxies is slow
		},
		baseURL:  "https://app.scrapingbee.com/api/v1/",
		defaults: DefaultDubaiOptions(),
		limiter:  limiter,
	}
}

// ScrapingBeeOptions configures the ScrapingBee request
type ScrapingBeeOptions struct {
	// RenderJS enables JavaScript rendering
	RenderJS bool
	// Premium uses residential proxies
	Premium bool
	// Country sets the proxy country, "ae" for the UAE
	Country string
	// Device is "desktop" or "mobile"
	Device string
	// WaitForSelector waits for a CSS selector before returning
	WaitForSelector string
	// Wait adds a fixed delay in milliseconds after page load
	Wait int
	// BlockResources blocks images and stylesheets
	BlockResources bool
}

// DefaultDubaiOptions returns options tuned for the UAE listing portals
func DefaultDubaiOptions() ScrapingBeeOptions {
	return ScrapingBeeOptions{
		RenderJS:       true,
		Premium:        true,
		Country:        "ae",
		Device:         "desktop",
		Wait:           3000,
		BlockResources: true,
	}
}

// Fetch implements Fetcher. Request hints override the client defaults.
func (c *ScrapingBeeClient) Fetch(ctx context.Context, r Request) ([]byte, error) {
	if r.Method != "" && r.Method != http.MethodGet {
		return nil, fmt.Errorf("scrapingbee: unsupported method %s", r.Method)
	}

	opts := c.defaults
	opts.RenderJS = opts.RenderJS || r.RenderJS
	if r.WaitFor != "" {
		opts.WaitForSelector = r.WaitFor
	}
	if r.WaitMS > 0 {
		opts.Wait = r.WaitMS
	}
	return c.Get(ctx, r.URL, opts)
}

// Get retrieves a URL through ScrapingBee
func (c *ScrapingBeeClient) Get(ctx context.Context, targetURL string, opts ScrapingBeeOptions) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredentials
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("url", targetURL)

	if opts.RenderJS {
		params.Set("render_js", "true")
	} else {
		params.Set("render_js", "false")
	}
	if opts.Premium {
		params.Set("premium_proxy", "true")
	}
	if opts.Country != "" {
		params.Set("country_code", opts.Country)
	}
	if opts.Device != "" {
		params.Set("device", opts.Device)
	}
	if opts.WaitForSelector != "" {
		params.Set("wait_for", opts.WaitForSelector)
	}
	if opts.Wait > 0 {
		params.Set("wait", strconv.Itoa(opts.Wait))
	}
	if opts.BlockResources {
		params.Set("block_resources", "true")
	}

	apiURL := c.baseURL + "?" + params.Encode()

	// Spacing applies to the target portal, not the proxy
	if err := c.limiter.Wait(ctx, targetURL); err != nil {
		return nil, unavailable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(fmt.Errorf("reading response: %w", err))
	}

	// ScrapingBee returns error details in the response body
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: targetURL, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return body, nil
}
