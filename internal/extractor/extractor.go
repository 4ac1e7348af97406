// Package extractor wraps the yt-dlp subprocess: metadata extraction
// and media downloads with cookie and PO-token injection.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"tubearchivist/internal/config"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/utils/logging"
)

const defaultBin = "yt-dlp"

// Extractor shells out to yt-dlp. A nil Cookies disables cookie
// handling entirely. Tokens, when set, supplies the stored PO token.
// PotProviderURL points yt-dlp's bgutil plugin at a token provider.
type Extractor struct {
	Bin            string
	CacheDir       string
	Cookies        *CookieJar
	Tokens         CookieStore
	PotProviderURL string
}

// New builds an extractor writing temp files under cacheDir.
func New(cacheDir string, cookies *CookieJar) *Extractor {
	return &Extractor{Bin: defaultBin, CacheDir: cacheDir, Cookies: cookies}
}

// Options tunes one extraction call. Config attaches the application
// config, which injects cookies, the PO token and extractor args.
type Options struct {
	Config        *config.AppConfig
	ExtractFlat   bool
	SkipDownload  bool
	PlaylistItems string
	POToken       string
}

// baseArgs are the shared defaults applied to every invocation.
func (e *Extractor) baseArgs(opts *Options) []string {
	args := []string{
		"--quiet",
		"--no-warnings",
		"--socket-timeout", "10",
		"--extractor-retries", "3",
		"--retries", "10",
		"--default-search", "ytsearch",
	}

	if opts == nil {
		return args
	}

	if opts.ExtractFlat {
		args = append(args, "--flat-playlist")
	}
	if opts.SkipDownload {
		args = append(args, "--skip-download")
	}
	if opts.PlaylistItems != "" {
		args = append(args, "--playlist-items", opts.PlaylistItems)
	}

	if opts.Config != nil {
		args = append(args, e.configArgs(opts)...)
	}
	return args
}

// configArgs injects cookie file, PO token and parsed extractor args
// from the attached config.
func (e *Extractor) configArgs(opts *Options) []string {
	var args []string
	dl := opts.Config.Downloads

	if dl.CookieImport && e.Cookies != nil {
		if path, err := e.Cookies.FilePath(context.Background()); err == nil {
			args = append(args, "--cookies", path)
		} else {
			logging.W("extractor: cookie requested but unavailable: %v", err)
		}
	}

	rawArgs := ""
	if dl.ExtractorLang != nil && *dl.ExtractorLang != "" {
		rawArgs = "youtube:lang=" + *dl.ExtractorLang
	}
	parsed := ParseExtractorArgs(rawArgs)
	if dl.POToken {
		token := opts.POToken
		if token == "" && e.Tokens != nil {
			token, _ = e.Tokens.Get(context.Background(), keys.POToken)
		}
		if token != "" {
			parsed.Set("youtube", "po_token", token)
		}
	}
	if e.PotProviderURL != "" {
		parsed.Set("youtubepot-bgutilhttp", "base_url", e.PotProviderURL)
	}
	args = append(args, parsed.CommandLine()...)

	if dl.SleepInterval != nil && *dl.SleepInterval > 0 {
		args = append(args, "--sleep-interval", strconv.Itoa(*dl.SleepInterval))
	}
	return args
}

// Extract fetches the info dict for one URL without downloading media.
func (e *Extractor) Extract(ctx context.Context, url string, opts *Options) (*VideoJSON, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.SkipDownload = true

	args := append(e.baseArgs(opts), "--dump-single-json", url)
	out, err := e.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var meta VideoJSON
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata for %s: %w", url, err)
	}
	meta.Raw = out
	return &meta, nil
}

// DownloadOptions tunes one media download.
type DownloadOptions struct {
	Options
	Format       string
	FormatSort   string
	LimitSpeed   int // KB/s, 0 means unlimited
	TargetDir    string
	ProgressHook func(line string)
}

// Download fetches the media file for a video id into TargetDir as
// <id>.mp4. The cookie entry is refreshed after the run when yt-dlp
// rotated it.
func (e *Extractor) Download(ctx context.Context, youtubeID string, opts *DownloadOptions) error {
	args := e.baseArgs(&opts.Options)
	args = append(args,
		"--check-formats", "selected",
		"--merge-output-format", "mp4",
		"--newline",
		"--progress",
		"-o", filepath.Join(opts.TargetDir, youtubeID+".mp4"),
	)

	if opts.Format != "" {
		args = append(args, "--format", opts.Format)
	}
	if opts.FormatSort != "" {
		args = append(args, "--format-sort", opts.FormatSort)
	}
	if opts.LimitSpeed > 0 {
		args = append(args, "--limit-rate", fmt.Sprintf("%dK", opts.LimitSpeed))
	}
	if opts.Config != nil {
		if opts.Config.Downloads.AddMetadata {
			args = append(args, "--embed-metadata")
		}
		if opts.Config.Downloads.AddThumbnail {
			args = append(args, "--embed-thumbnail")
		}
	}

	args = append(args, "https://www.youtube.com/watch?v="+youtubeID)

	err := e.runStreaming(ctx, args, opts.ProgressHook)

	// Re-store the cookie jar when the extractor refreshed it.
	if e.Cookies != nil {
		if storeErr := e.Cookies.StoreIfChanged(ctx); storeErr != nil {
			logging.W("extractor: cookie refresh store failed: %v", storeErr)
		}
	}

	return err
}

func (e *Extractor) run(ctx context.Context, args []string) ([]byte, error) {
	if _, err := exec.LookPath(e.Bin); err != nil {
		return nil, fmt.Errorf("%s not found: %w", e.Bin, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.D(2, "extractor: %s %s", e.Bin, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return nil, classifyError(stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// runStreaming runs yt-dlp, feeding stdout lines to hook for progress
// parsing.
func (e *Extractor) runStreaming(ctx context.Context, args []string, hook func(string)) error {
	if _, err := exec.LookPath(e.Bin); err != nil {
		return fmt.Errorf("%s not found: %w", e.Bin, err)
	}

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	scanLines(stdout, func(line string) {
		if hook != nil {
			hook(line)
		}
	})

	if err := cmd.Wait(); err != nil {
		return classifyError(stderr.String(), err)
	}
	return nil
}
