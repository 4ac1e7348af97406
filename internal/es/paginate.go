package es

import (
	"context"
	"encoding/json"
	"fmt"

	"tubearchivist/internal/utils/logging"
)

const defaultPageSize = 500

// PageFunc receives one page of hits plus the overall progress (0..1).
// Returning an error aborts pagination; the point in time is still
// closed.
type PageFunc func(hits []SearchHit, progress float64) error

// PaginateOpts tunes a paginated scan.
type PaginateOpts struct {
	// PageSize per search_after request. Defaults to 500.
	PageSize int
	// Sort applied to every page. Defaults to _doc ascending, which is
	// only valid for full scans; filtered scans that care about order
	// must set this explicitly.
	Sort []any
	// Callback streams pages as they arrive. When set, Paginate returns
	// no accumulated hits.
	Callback PageFunc
}

// Paginate opens a point in time on index, walks all hits matching
// query with search_after, then closes the PIT again. Either returns
// every hit or streams them to opts.Callback.
func (c *Connection) Paginate(ctx context.Context, index string, query map[string]any, opts *PaginateOpts) ([]SearchHit, error) {
	if opts == nil {
		opts = &PaginateOpts{}
	}
	size := opts.PageSize
	if size == 0 {
		size = defaultPageSize
	}
	sort := opts.Sort
	if len(sort) == 0 {
		sort = []any{map[string]any{"_doc": map[string]any{"order": "asc"}}}
	}

	pitID, err := c.openPIT(ctx, index)
	if err != nil {
		return nil, err
	}
	// Close whatever id the store rotated to, not the one opened here.
	defer func() { c.closePIT(pitID) }()

	total, err := c.Count(ctx, index, countBody(query))
	if err != nil {
		return nil, err
	}

	var (
		all     []SearchHit
		after   []any
		fetched int64
	)

	for {
		body := map[string]any{
			"size": size,
			"sort": sort,
			"pit":  map[string]any{"id": pitID, "keep_alive": "10m"},
		}
		if query != nil {
			body["query"] = query
		}
		if after != nil {
			body["search_after"] = after
		}

		raw, _, err := c.Post(ctx, "_search", body)
		if err != nil {
			return nil, err
		}

		var resp SearchResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode paginated search on %s: %w", index, err)
		}
		if resp.PitID != "" {
			pitID = resp.PitID
		}

		hits := resp.Hits.Hits
		if len(hits) == 0 {
			break
		}
		fetched += int64(len(hits))

		progress := 1.0
		if total > 0 {
			progress = float64(fetched) / float64(total)
		}

		if opts.Callback != nil {
			if err := opts.Callback(hits, progress); err != nil {
				return nil, err
			}
		} else {
			all = append(all, hits...)
		}

		if len(hits) < size {
			break
		}
		after = hits[len(hits)-1].Sort
	}

	return all, nil
}

func countBody(query map[string]any) map[string]any {
	if query == nil {
		return nil
	}
	return map[string]any{"query": query}
}

func (c *Connection) openPIT(ctx context.Context, index string) (string, error) {
	raw, _, err := c.Post(ctx, index+"/_pit?keep_alive=10m", nil)
	if err != nil {
		return "", fmt.Errorf("open PIT on %s: %w", index, err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Connection) closePIT(pitID string) {
	// Best effort; the server expires it after keep_alive anyway.
	if _, _, err := c.Delete(context.Background(), "_pit", map[string]any{"id": pitID}); err != nil {
		logging.D(1, "failed to close PIT: %v", err)
	}
}
