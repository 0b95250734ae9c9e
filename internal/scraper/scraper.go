// Package scraper fetches judgment pages and pulls the text out of the
// article container.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/lawchat/backend/pkg/logger"
)

const DefaultSelector = "article.the-document"

var ErrContainerNotFound = errors.New("article container not found")

type Config struct {
	UserAgent string
	Selector  string
	Timeout   time.Duration
}

type Scraper struct {
	userAgent  string
	selector   string
	httpClient *http.Client
}

func New(cfg Config) *Scraper {
	if cfg.Selector == "" {
		cfg.Selector = DefaultSelector
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Scraper{
		userAgent: cfg.UserAgent,
		selector:  cfg.Selector,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Extract returns the raw text of the first element matching the selector.
// Scripts and styles inside the container are dropped.
func (s *Scraper) Extract(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch %s returned status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	container := doc.Find(s.selector).First()
	if container.Length() == 0 {
		return "", fmt.Errorf("%w: %s on %s", ErrContainerNotFound, s.selector, url)
	}

	container.Find("script, style").Remove()
	text := container.Text()

	logger.Debug("Page extracted",
		zap.String("url", url),
		zap.Int("chars", len(text)),
	)

	return text, nil
}
