package pipeline

import (
	"context"
	"net/http"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/extractor"
	"tubearchivist/internal/models"
)

// ShortsProbe reports whether a video id is served on the shorts
// endpoint. Used as the last resort of type inference.
type ShortsProbe func(ctx context.Context, youtubeID string) bool

// InferVidType classifies a video when the source did not carry an
// explicit type. The shorts probe only runs for short vertical or
// unknown-shape videos, so most calls stay offline.
func InferVidType(ctx context.Context, meta *extractor.VideoJSON, probe ShortsProbe) models.VidType {
	if meta.LiveStatus == "was_live" {
		return models.VidTypeStreams
	}
	if meta.Width > meta.Height {
		return models.VidTypeVideos
	}
	if meta.Duration > 180 {
		return models.VidTypeVideos
	}
	if probe != nil && probe(ctx, meta.ID) {
		return models.VidTypeShorts
	}
	return models.VidTypeVideos
}

// HTTPShortsProbe issues a HEAD request against the shorts endpoint.
// The endpoint redirects to /watch for regular videos, so only a plain
// 200 counts as shorts.
func HTTPShortsProbe(client *http.Client) ShortsProbe {
	if client == nil {
		client = &http.Client{
			Timeout: consts.MetadataProbeTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return func(ctx context.Context, youtubeID string) bool {
		url := "https://www.youtube.com/shorts/" + youtubeID
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}
}
