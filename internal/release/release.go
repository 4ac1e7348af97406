// Package release checks the published application release against the
// running version.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/kv"
	"tubearchivist/internal/utils/logging"
)

// Version is the running release, set at build time.
var Version = "v0.0.0-dev"

// Remote is the release descriptor served by the release API.
type Remote struct {
	ReleaseVersion  string `json:"release_version"`
	BreakingChanges bool   `json:"breaking_changes"`
}

// Checker polls the release API and stores a pending-update marker in
// the KV store.
type Checker struct {
	kvs    *kv.Store
	client *http.Client
	url    string
}

// NewChecker builds a checker against the public release API.
func NewChecker(kvs *kv.Store) *Checker {
	return &Checker{
		kvs:    kvs,
		client: &http.Client{Timeout: consts.ReleaseCheckTimeout},
		url:    consts.ReleaseAPIURL,
	}
}

// Check fetches the latest release. When it is newer than the running
// version, the descriptor is stored under the version check key.
func (c *Checker) Check(ctx context.Context) (*Remote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release API returned %d", resp.StatusCode)
	}

	var remote Remote
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("decode release descriptor: %w", err)
	}

	if NewerThan(remote.ReleaseVersion, Version) {
		logging.I("release: update available, %s -> %s", Version, remote.ReleaseVersion)
		if err := c.kvs.SetJSON(ctx, keys.VersionCheck, remote, 0); err != nil {
			return nil, err
		}
	}
	return &remote, nil
}

// Pending returns the stored update marker, or nil when up to date.
func (c *Checker) Pending(ctx context.Context) (*Remote, error) {
	var remote Remote
	if err := c.kvs.GetJSON(ctx, keys.VersionCheck, &remote); err != nil {
		return nil, err
	}
	return &remote, nil
}

// NewerThan compares two dotted versions. A leading "v" and a trailing
// "-unstable" are stripped before the tuple comparison.
func NewerThan(candidate, current string) bool {
	a := parseVersion(candidate)
	b := parseVersion(current)
	for i := 0; i < len(a) || i < len(b); i++ {
		av, bv := 0, 0
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			return av > bv
		}
	}
	return false
}

func parseVersion(v string) []int {
	v = strings.TrimSuffix(v, "-unstable")
	v = strings.TrimPrefix(v, "v")

	parts := strings.Split(v, ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			n = 0
		}
		out = append(out, n)
	}
	return out
}
