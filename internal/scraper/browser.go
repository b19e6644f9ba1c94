package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in headless Chrome
type BrowserFetcher struct {
	headless bool
	timeout  time.Duration

	execPath string // empty lets chromedp search the usual locations

	mu       sync.Mutex
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewBrowserFetcher creates a browser-backed fetcher. Call Start before use.
func NewBrowserFetcher(headless bool, timeout time.Duration) *BrowserFetcher {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &BrowserFetcher{
		headless: headless,
		timeout:  timeout,
	}
}

// Start initializes the browser allocator and launches Chrome once, so a
// missing or broken browser is reported here rather than on every fetch.
func (b *BrowserFetcher) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.allocCtx != nil {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(defaultUserAgent),
	)
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	// the allocator is lazy; an empty Run starts and connects to the browser
	launchCtx, cancelLaunch := chromedp.NewContext(allocCtx)
	launchCtx, cancelTimeout := context.WithTimeout(launchCtx, b.timeout)
	err := chromedp.Run(launchCtx)
	cancelTimeout()
	cancelLaunch()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	b.allocCtx, b.cancel = allocCtx, cancel
	return nil
}

// Stop closes the browser
func (b *BrowserFetcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.allocCtx, b.cancel = nil, nil
	}
}

// Fetch navigates to the request URL and returns the rendered outer HTML
func (b *BrowserFetcher) Fetch(ctx context.Context, r Request) ([]byte, error) {
	b.mu.Lock()
	alloc := b.allocCtx
	b.mu.Unlock()
	if alloc == nil {
		return nil, unavailable(fmt.Errorf("browser not started"))
	}

	taskCtx, cancel := chromedp.NewContext(alloc)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, b.timeout)
	defer cancel()

	// Follow the caller's cancellation as well as our own timeout
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	headers := network.Headers{"Accept-Language": "en-AE,en;q=0.9"}
	for k, v := range r.Headers {
		headers[k] = v
	}

	wait := time.Duration(r.WaitMS) * time.Millisecond
	if wait <= 0 {
		wait = 3 * time.Second
	}

	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(r.URL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`, nil),
	}
	if r.WaitFor != "" {
		// WaitReady only needs the node in the DOM, which also covers <script> blocks
		actions = append(actions, chromedp.WaitReady(r.WaitFor, chromedp.ByQuery))
	}

	var html, pageURL string
	actions = append(actions,
		chromedp.Sleep(wait),
		chromedp.OuterHTML("html", &html),
		chromedp.Location(&pageURL),
	)

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, unavailable(fmt.Errorf("navigation failed: %w", err))
	}

	log.Printf("Page loaded, URL: %s, HTML length: %d", pageURL, len(html))

	if looksBlocked(html) {
		return nil, unavailable(fmt.Errorf("blocked by bot protection"))
	}

	return []byte(html), nil
}

// looksBlocked spots the short challenge pages served to suspected bots
func looksBlocked(html string) bool {
	if len(html) > 5000 {
		return false
	}
	lower := strings.ToLower(html)
	return strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "are you a robot")
}
