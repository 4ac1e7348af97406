package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/utils/logging"

	"github.com/browserutils/kooky"
	// Register all browser cookie store backends.
	_ "github.com/browserutils/kooky/browser/all"
)

// CookieStore is the KV subset the cookie jar needs.
type CookieStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, ks ...string) error
}

// CookieJar round-trips the single cookie entry between the KV store
// and a file yt-dlp can consume. yt-dlp rewrites the file on rotation,
// so the jar re-stores it after every download.
type CookieJar struct {
	store    CookieStore
	cacheDir string

	mu       sync.Mutex
	lastSeen string
}

// NewCookieJar builds a cookie jar writing its file under cacheDir.
func NewCookieJar(store CookieStore, cacheDir string) *CookieJar {
	return &CookieJar{store: store, cacheDir: cacheDir}
}

func (c *CookieJar) filePath() string {
	return filepath.Join(c.cacheDir, "cookie.txt")
}

// FilePath materializes the stored cookie into a file and returns its
// path. Fails with ErrNotFound when no cookie is imported.
func (c *CookieJar) FilePath(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	content, err := c.store.Get(ctx, keys.Cookie)
	if err != nil {
		return "", err
	}

	if content != c.lastSeen {
		if err := os.WriteFile(c.filePath(), []byte(content), 0o600); err != nil {
			return "", err
		}
		c.lastSeen = content
	}
	return c.filePath(), nil
}

// StoreIfChanged reads the cookie file back and silently refreshes the
// KV entry when the extractor rotated any cookie.
func (c *CookieJar) StoreIfChanged(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := os.ReadFile(c.filePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	content := string(raw)
	if content == c.lastSeen {
		return nil
	}

	if err := c.store.Set(ctx, keys.Cookie, content, 0); err != nil {
		return err
	}
	c.lastSeen = content
	logging.D(1, "cookie jar refreshed from disk")
	return nil
}

// Import stores raw Netscape-format cookie bytes.
func (c *CookieJar) Import(ctx context.Context, content string) error {
	if !strings.Contains(content, "youtube.com") {
		return fmt.Errorf("%w: cookie export contains no youtube.com entries", errs.ErrValidation)
	}
	return c.store.Set(ctx, keys.Cookie, content, 0)
}

// ImportFromBrowser reads youtube.com cookies from any installed
// browser and stores them in Netscape format.
func (c *CookieJar) ImportFromBrowser(ctx context.Context) error {
	cookies := kooky.ReadCookies(kooky.Valid, kooky.DomainContains("youtube.com"))
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no youtube.com cookies found in any browser", errs.ErrNotFound)
	}

	logging.I("importing %d youtube.com cookies from browser", len(cookies))
	return c.store.Set(ctx, keys.Cookie, netscapeFormat(cookies), 0)
}

// netscapeFormat serializes cookies into the cookies.txt layout yt-dlp
// expects.
func netscapeFormat(cookies []*kooky.Cookie) string {
	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, ck := range cookies {
		includeSub := "FALSE"
		if strings.HasPrefix(ck.Domain, ".") {
			includeSub = "TRUE"
		}
		secure := "FALSE"
		if ck.Secure {
			secure = "TRUE"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			ck.Domain, includeSub, ck.Path, secure, ck.Expires.Unix(), ck.Name, ck.Value)
	}
	return b.String()
}

// Validate probes the user's LL playlist with the stored cookie. On
// failure the cookie is revoked. Callers post the user-facing message
// and flip downloads.cookie_import off.
func (c *CookieJar) Validate(ctx context.Context, ex *Extractor, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}
	opts.ExtractFlat = true
	opts.SkipDownload = true

	_, err := ex.Extract(ctx, "https://www.youtube.com/playlist?list=LL", opts)
	if err != nil {
		logging.W("cookie validation failed: %v", err)
		if revokeErr := c.Revoke(ctx); revokeErr != nil {
			logging.E("cookie revoke failed: %v", revokeErr)
		}
		if errors.Is(err, errs.ErrCookieInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", errs.ErrCookieInvalid, err)
	}

	return c.store.Set(ctx, keys.CookieValid, "true", 0)
}

// IsValidated reports whether the stored cookie passed validation.
func (c *CookieJar) IsValidated(ctx context.Context) (bool, error) {
	v, err := c.store.Get(ctx, keys.CookieValid)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// Revoke deletes the stored cookie and its validation marker.
func (c *CookieJar) Revoke(ctx context.Context) error {
	c.mu.Lock()
	c.lastSeen = ""
	c.mu.Unlock()
	return c.store.Del(ctx, keys.Cookie, keys.CookieValid)
}
