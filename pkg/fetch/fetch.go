package fetch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	readability "github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/textchain/textchain/config"
	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
)

var log = internal.GetLogger()

const (
	FetchTimeout = 30 * time.Second
	// MaxArticleChars bounds the text handed to the chain so the hosted
	// models receive input within their context windows.
	MaxArticleChars = 1000
	// languageSampleChars bounds the text fed to language detection.
	languageSampleChars = 512
)

// Article is the extracted text of a fetched web page.
type Article struct {
	URL       string
	Title     string
	Text      string
	Language  string
	FetchedAt time.Time
}

// Fetcher downloads a page and extracts readable text from it. Results are
// cached when a cache path is configured.
type Fetcher struct {
	client    *http.Client
	userAgent string
	cache     *Cache
	detector  lingua.LanguageDetector
}

func NewFetcher(cfg *config.Config) (*Fetcher, error) {
	f := &Fetcher{
		client:    &http.Client{Timeout: FetchTimeout},
		userAgent: cfg.Fetch.UserAgent,
		detector:  newDetector(),
	}

	if cfg.Fetch.CachePath != "" {
		cache, err := NewCache(cfg.Fetch.CachePath, cfg.Fetch.CacheTTL)
		if err != nil {
			return nil, err
		}
		f.cache = cache
	}

	return f, nil
}

// Fetch returns the extracted text of the page at pageURL. When selector is
// empty the main article content is distilled with readability; otherwise the
// text of the nodes matching the CSS selector is extracted.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string, selector string) (*Article, error) {
	if f.cache != nil {
		article, err := f.cache.Get(pageURL)
		if err == nil {
			log.Debugf("cache hit for %s", pageURL)
			return article, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			log.Warnf("page cache lookup failed: %v", err)
		}
	}

	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article, err := f.extract(pageURL, body, selector)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Put(article); err != nil {
			log.Warnf("page cache store failed: %v", err)
		}
	}

	return article, nil
}

func (f *Fetcher) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s failed: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body failed: %w", pageURL, err)
	}

	log.Debugf("fetched %s (%s)", pageURL, humanize.Bytes(uint64(len(body))))

	return body, nil
}

func (f *Fetcher) extract(pageURL string, body []byte, selector string) (*Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var title, text string
	if selector != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
		if err != nil {
			return nil, fmt.Errorf("parse %s failed: %w", pageURL, err)
		}
		title = normalizeText(doc.Find("title").First().Text())
		text = normalizeText(doc.Find(selector).Text())
	} else {
		readabilityParser := readability.NewParser()
		readable, err := readabilityParser.Parse(strings.NewReader(string(body)), parsedURL)
		if err != nil {
			return nil, fmt.Errorf("distill %s failed: %w", pageURL, err)
		}
		title = normalizeText(readable.Title)
		text, err = extractText(readable.Content)
		if err != nil {
			return nil, err
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text extracted from %s", pageURL)
	}
	text = truncateAtSentence(text, MaxArticleChars)

	return &Article{
		URL:       pageURL,
		Title:     title,
		Text:      text,
		Language:  f.detectLanguage(text),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// extractText walks the distilled article HTML and joins the text of the
// content-bearing tags.
func extractText(articleHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(articleHTML))
	if err != nil {
		return "", err
	}

	var blocks []string
	doc.Find("h1,h2,h3,h4,p,li").Each(func(_ int, s *goquery.Selection) {
		if text := normalizeText(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	return strings.Join(blocks, " "), nil
}

// normalizeText trims each line and joins them with single spaces.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

// truncateAtSentence cuts text to at most maxChars runes, preferring the
// last sentence boundary before the limit.
func truncateAtSentence(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	cut := string(runes[:maxChars])
	if idx := strings.LastIndexAny(cut, ".!?"); idx > 0 {
		return strings.TrimSpace(cut[:idx+1])
	}
	return strings.TrimSpace(cut)
}

func (f *Fetcher) detectLanguage(text string) string {
	sample := text
	if runes := []rune(sample); len(runes) > languageSampleChars {
		sample = string(runes[:languageSampleChars])
	}
	language, exists := f.detector.DetectLanguageOf(sample)
	if !exists {
		return ""
	}
	return language.String()
}

func newDetector() lingua.LanguageDetector {
	return lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.Spanish,
			lingua.French,
			lingua.German,
			lingua.Portuguese,
			lingua.Dutch,
		).
		Build()
}

// Close releases the page cache if one is open.
func (f *Fetcher) Close() error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Close()
}
