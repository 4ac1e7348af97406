// Package scraper resolves channel handles and vanity URLs into
// canonical channel ids by scraping the channel page.
package scraper

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"sync"

	"github.com/gocolly/colly"
	"golang.org/x/net/publicsuffix"

	"tubearchivist/internal/errs"
	"tubearchivist/internal/utils/logging"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// channelIDRe matches a canonical 24-character channel id.
var channelIDRe = regexp.MustCompile(`^UC[\w-]{22}$`)

// HandleResolver scrapes youtube.com channel pages for the canonical
// id embedded in the page metadata.
type HandleResolver struct {
	mu sync.Mutex
	c  *colly.Collector
}

// NewHandleResolver builds a resolver with its own cookie jar.
func NewHandleResolver() (*HandleResolver, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowedDomains("www.youtube.com", "youtube.com"),
	)
	c.SetCookieJar(jar)

	return &HandleResolver{c: c}, nil
}

// ResolveChannelID fetches the channel page for a handle or vanity URL
// and extracts the canonical channel id. Serialized, one page fetch at
// a time.
func (r *HandleResolver) ResolveChannelID(ctx context.Context, channelURL string) (string, error) {
	page := normalizeURL(channelURL)

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		found    string
		scrapErr error
	)

	c := r.c.Clone()
	c.OnHTML(`meta[itemprop="identifier"]`, func(e *colly.HTMLElement) {
		if found == "" {
			found = e.Attr("content")
		}
	})
	c.OnHTML(`meta[property="og:url"]`, func(e *colly.HTMLElement) {
		if found != "" {
			return
		}
		if id := idFromCanonical(e.Attr("content")); id != "" {
			found = id
		}
	})
	c.OnError(func(resp *colly.Response, err error) {
		scrapErr = err
		if resp != nil && resp.StatusCode == 404 {
			scrapErr = fmt.Errorf("%w: channel page %s", errs.ErrNotFound, page)
		}
	})

	if err := c.Visit(page); err != nil {
		return "", fmt.Errorf("scrape %s: %w", page, err)
	}
	c.Wait()

	if scrapErr != nil {
		return "", scrapErr
	}
	if !channelIDRe.MatchString(found) {
		return "", fmt.Errorf("%w: no channel id on %s", errs.ErrNotFound, page)
	}

	logging.D(1, "scraper: resolved %s to %s", channelURL, found)
	return found, nil
}

// normalizeURL turns a bare handle into its channel page URL.
func normalizeURL(in string) string {
	if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
		return in
	}
	if strings.HasPrefix(in, "@") {
		return "https://www.youtube.com/" + in
	}
	return "https://www.youtube.com/@" + in
}

// idFromCanonical extracts the id from a /channel/<id> canonical URL.
func idFromCanonical(canonical string) string {
	const marker = "/channel/"
	idx := strings.Index(canonical, marker)
	if idx == -1 {
		return ""
	}
	id := canonical[idx+len(marker):]
	if slash := strings.IndexByte(id, '/'); slash != -1 {
		id = id[:slash]
	}
	return id
}
