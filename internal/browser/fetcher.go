package browser

import (
	"bufio"
	"context"
	"net/http/cookiejar"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"

	"github.com/ZUGAZ/likes-to-go/pkg/errors"
	"github.com/ZUGAZ/likes-to-go/pkg/logger"
	"github.com/ZUGAZ/likes-to-go/pkg/retry"
)

// FetcherConfig configures page fetching
type FetcherConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
	CloudflareBypass  bool
	// MaxRetries is how often a failed request is repeated
	MaxRetries int
	// RetryDelay is the first backoff delay; later ones double
	RetryDelay time.Duration
	Logger     logger.Logger
}

// Fetcher downloads and parses pages. All requests share one limiter.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
	retry   *retry.Config
}

// NewFetcher creates a Fetcher with a cookie jar and a browser user agent
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("user-agent", cfg.UserAgent)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	backoff := retry.DefaultExponentialBackoff()
	if cfg.RetryDelay > 0 {
		backoff.BaseDelay = cfg.RetryDelay
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		retry: &retry.Config{
			MaxAttempts: cfg.MaxRetries + 1,
			Backoff:     backoff,
			RetryIf:     retry.Retryable,
			Logger:      cfg.Logger,
		},
	}, nil
}

// Fetch downloads url and returns it as a UTF-8 document. Network failures
// and transient statuses are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	return retry.DoWithResult(ctx, func() (*goquery.Document, error) {
		return f.fetchOnce(ctx, url)
	}, f.retry)
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*goquery.Document, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeEffect, "fetch", err)
	}

	res, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeEffect, "fetch", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return nil, errors.Wrap(errors.ErrorTypeEffect, "fetch", &retry.StatusError{
			URL:    url,
			Code:   res.StatusCode(),
			Status: res.Status(),
		})
	}

	bodyReader := bufio.NewReader(body)
	e := determineEncoding(bodyReader, res.Header().Get("Content-Type"))
	doc, err := goquery.NewDocumentFromReader(transform.NewReader(bodyReader, e.NewDecoder()))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeEffect, "parse page", err)
	}
	return doc, nil
}

func determineEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	// a short body still peeks what it has
	peek, _ := r.Peek(1024)
	if len(peek) == 0 {
		return unicode.UTF8
	}
	e, _, _ := charset.DetermineEncoding(peek, contentType)
	return e
}
