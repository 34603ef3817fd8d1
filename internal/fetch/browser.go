package fetch

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/review-cli/internal/resilience"
)

// BrowserOptions configures the headless Chrome fetcher.
type BrowserOptions struct {
	UserAgent string
	Timeout   time.Duration
	// Wait is how long to let client-side rendering settle after navigation.
	Wait time.Duration
	// ExecPath overrides the Chrome binary; CHROME_BIN is used when empty.
	ExecPath string
}

// BrowserFetcher renders pages in headless Chrome through chromedp. One
// browser process is shared; each Fetch opens a fresh tab.
type BrowserFetcher struct {
	opts        BrowserOptions
	allocCtx    context.Context
	cancelAlloc context.CancelFunc

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

// NewBrowserFetcher prepares the browser allocator. Chrome itself starts on
// the first Fetch. Close releases it.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Wait == 0 {
		opts.Wait = 3 * time.Second
	}
	if opts.ExecPath == "" {
		opts.ExecPath = os.Getenv("CHROME_BIN")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(1366, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	return &BrowserFetcher{opts: opts, allocCtx: allocCtx, cancelAlloc: cancel}
}

// Name implements Fetcher.
func (b *BrowserFetcher) Name() string { return "browser" }

// Fetch implements Fetcher: navigate, wait for rendering, scroll to trigger
// lazy-loaded reviews and return the outer HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()

	browserCtx, err := b.browser()
	if err != nil {
		observe(b.Name(), start, err)
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.opts.Wait),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
		chromedp.Sleep(time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		err = eris.Wrapf(err, "fetch: browser %s", url)
		observe(b.Name(), start, err)
		return "", err
	}

	if blocked, kind := DetectBlock(renderedResponse(), []byte(html)); blocked {
		err = eris.Wrapf(resilience.ErrBlocked, "fetch: blocked: rendered page (%s) %s", kind, url)
		observe(b.Name(), start, err)
		return "", err
	}

	zap.L().Debug("fetch: browser rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	observe(b.Name(), start, nil)
	return html, nil
}

// browser returns the shared browser context, launching Chrome on first use.
// A failed launch is not cached so the next Fetch tries again.
func (b *BrowserFetcher) browser() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}
	ctx, cancel := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, eris.Wrap(err, "fetch: start browser")
	}
	b.browserCtx, b.cancelBrowser = ctx, cancel
	zap.L().Debug("fetch: browser started")
	return ctx, nil
}

// renderedResponse stands in for the HTTP response of a rendered page so
// DetectBlock only inspects its markup.
func renderedResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
}

// Close shuts down the browser.
func (b *BrowserFetcher) Close() {
	b.mu.Lock()
	if b.cancelBrowser != nil {
		b.cancelBrowser()
		b.browserCtx, b.cancelBrowser = nil, nil
	}
	b.mu.Unlock()
	b.cancelAlloc()
}
