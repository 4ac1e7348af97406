// Package urlparser normalizes mixed user input (bare ids, handles,
// URLs, short links) into typed references.
package urlparser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/utils/logging"

	"tubearchivist/internal/models"
)

// ChannelResolver resolves an arbitrary channel URL or @handle into a
// canonical channel id, typically by asking the extractor or scraping
// the channel page.
type ChannelResolver interface {
	ResolveChannelID(ctx context.Context, url string) (string, error)
}

// HandleCache caches handle lookups. Implemented by the KV store.
type HandleCache interface {
	GetJSON(ctx context.Context, key string, out any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Parser turns user input into typed references.
type Parser struct {
	resolver ChannelResolver
	cache    HandleCache
}

// New builds a parser. cache may be nil to disable handle caching.
func New(resolver ChannelResolver, cache HandleCache) *Parser {
	return &Parser{resolver: resolver, cache: cache}
}

// handleEntry is the cached handle resolution.
type handleEntry struct {
	ChannelID string `json:"channel_id"`
	Handle    string `json:"handle"`
}

// Parse splits input on whitespace and parses every token. The first
// invalid token aborts the whole batch.
func (p *Parser) Parse(ctx context.Context, input string) ([]models.ParsedRef, error) {
	var refs []models.ParsedRef
	for _, token := range strings.Fields(input) {
		ref, err := p.parseOne(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", token, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (p *Parser) parseOne(ctx context.Context, token string) (models.ParsedRef, error) {
	if !looksLikeURL(token) {
		return p.parseBare(ctx, token)
	}

	u, err := url.Parse(withScheme(token))
	if err != nil {
		return models.ParsedRef{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "youtu.be":
		return videoRef(strings.Trim(u.Path, "/"), models.VidTypeUnknown), nil

	case strings.Contains(host, "youtube.com"):
		return p.parseYouTubeURL(ctx, u)
	}

	return models.ParsedRef{}, fmt.Errorf("%w: invalid domain %q", errs.ErrValidation, host)
}

func (p *Parser) parseYouTubeURL(ctx context.Context, u *url.URL) (models.ParsedRef, error) {
	query := u.Query()
	segments := pathSegments(u.Path)

	switch {
	case query.Get("v") != "":
		return videoRef(query.Get("v"), models.VidTypeUnknown), nil

	case query.Get("list") != "":
		return playlistRef(query.Get("list")), nil

	case len(segments) >= 2 && segments[0] == "shorts":
		return videoRef(segments[1], models.VidTypeShorts), nil

	case len(segments) >= 2 && segments[0] == "live":
		return videoRef(segments[1], models.VidTypeUnknown), nil

	case len(segments) >= 2 && segments[0] == "channel":
		return channelRef(segments[1], trailingVidType(segments)), nil
	}

	// Vanity URL, @handle path or anything else: ask the resolver.
	id, err := p.resolveChannel(ctx, u.String())
	if err != nil {
		return models.ParsedRef{}, err
	}
	return channelRef(id, trailingVidType(segments)), nil
}

func (p *Parser) parseBare(ctx context.Context, token string) (models.ParsedRef, error) {
	switch {
	case strings.HasPrefix(token, "@"):
		id, err := p.resolveHandle(ctx, token)
		if err != nil {
			return models.ParsedRef{}, err
		}
		return channelRef(id, models.VidTypeUnknown), nil

	case token == "LL" || token == "WL":
		return playlistRef(token), nil

	case strings.HasPrefix(token, consts.CustomPlaylistPrefix):
		return playlistRef(token), nil

	case len(token) == 11:
		return videoRef(token, models.VidTypeUnknown), nil

	case len(token) == 24:
		return channelRef(token, models.VidTypeUnknown), nil

	case len(token) == 34 || len(token) == 26 || len(token) == 18:
		return playlistRef(token), nil
	}

	return models.ParsedRef{}, fmt.Errorf("%w: length %d matches no known id shape", errs.ErrValidation, len(token))
}

// resolveHandle resolves @name through the 7-day KV cache.
func (p *Parser) resolveHandle(ctx context.Context, handle string) (string, error) {
	cacheKey := keys.HandleSearchPrefix + ":" + strings.ToLower(handle)

	if p.cache != nil {
		var entry handleEntry
		if err := p.cache.GetJSON(ctx, cacheKey, &entry); err == nil && entry.ChannelID != "" {
			logging.D(1, "handle %s resolved from cache: %s", handle, entry.ChannelID)
			return entry.ChannelID, nil
		}
	}

	id, err := p.resolveChannel(ctx, "https://www.youtube.com/"+handle)
	if err != nil {
		return "", err
	}

	if p.cache != nil {
		entry := handleEntry{ChannelID: id, Handle: handle}
		if err := p.cache.SetJSON(ctx, cacheKey, entry, consts.HandleCacheTTL); err != nil {
			logging.W("failed to cache handle %s: %v", handle, err)
		}
	}
	return id, nil
}

func (p *Parser) resolveChannel(ctx context.Context, channelURL string) (string, error) {
	if p.resolver == nil {
		return "", errors.New("no channel resolver configured")
	}
	id, err := p.resolver.ResolveChannelID(ctx, channelURL)
	if err != nil {
		return "", fmt.Errorf("resolve channel for %s: %w", channelURL, err)
	}
	return id, nil
}

func looksLikeURL(token string) bool {
	return strings.Contains(token, "/") || strings.Contains(token, ".")
}

func withScheme(token string) string {
	if strings.Contains(token, "://") {
		return token
	}
	return "https://" + token
}

func pathSegments(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// trailingVidType derives the vid_type from the trailing path segment
// when it names a channel tab.
func trailingVidType(segments []string) models.VidType {
	if len(segments) == 0 {
		return models.VidTypeUnknown
	}
	return models.ParseVidType(segments[len(segments)-1])
}

func videoRef(id string, vt models.VidType) models.ParsedRef {
	return models.ParsedRef{Kind: models.RefVideo, ID: id, VidType: vt}
}

func channelRef(id string, vt models.VidType) models.ParsedRef {
	return models.ParsedRef{Kind: models.RefChannel, ID: id, VidType: vt}
}

func playlistRef(id string) models.ParsedRef {
	return models.ParsedRef{Kind: models.RefPlaylist, ID: id, VidType: models.VidTypeUnknown}
}
