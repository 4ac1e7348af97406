package es

import (
	"context"
	"encoding/json"
	"fmt"
)

// docResponse is the envelope around a single document.
type docResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// SearchResponse is the decoded envelope of a _search call.
type SearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []SearchHit `json:"hits"`
	} `json:"hits"`
	PitID string `json:"pit_id,omitempty"`
}

// SearchHit is one document hit with its sort values.
type SearchHit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
	Sort   []any           `json:"sort,omitempty"`
}

// Decode unmarshals the hit source into out.
func (h *SearchHit) Decode(out any) error {
	return json.Unmarshal(h.Source, out)
}

// GetDoc fetches index/_doc/<id> and decodes the source into out.
// Missing documents return ErrNotFound.
func (c *Connection) GetDoc(ctx context.Context, index, id string, out any) error {
	raw, _, err := c.Get(ctx, index+"/_doc/"+id)
	if err != nil {
		return err
	}

	var doc docResponse
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", index, id, err)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(doc.Source, out)
}

// IndexDoc stores a document under an explicit id, replacing any
// previous version.
func (c *Connection) IndexDoc(ctx context.Context, index, id string, doc any) error {
	_, _, err := c.Post(ctx, index+"/_doc/"+id, doc)
	return err
}

// UpdateDoc applies a partial update to an existing document.
func (c *Connection) UpdateDoc(ctx context.Context, index, id string, fields any) error {
	_, _, err := c.Post(ctx, index+"/_update/"+id, map[string]any{"doc": fields})
	return err
}

// DeleteDoc removes a document by id.
func (c *Connection) DeleteDoc(ctx context.Context, index, id string) error {
	_, _, err := c.Delete(ctx, index+"/_doc/"+id, nil)
	return err
}

// Search runs a query against an index and returns the decoded envelope.
func (c *Connection) Search(ctx context.Context, index string, query map[string]any) (*SearchResponse, error) {
	raw, _, err := c.Post(ctx, index+"/_search", query)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode search on %s: %w", index, err)
	}
	return &resp, nil
}

// Count returns the document count matching the query; a nil query
// counts everything.
func (c *Connection) Count(ctx context.Context, index string, query map[string]any) (int64, error) {
	raw, _, err := c.Post(ctx, index+"/_count", query)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// UpdateByQuery runs _update_by_query with refresh.
func (c *Connection) UpdateByQuery(ctx context.Context, index string, body map[string]any) error {
	_, _, err := c.Post(ctx, index+"/_update_by_query?refresh=true", body)
	return err
}

// DeleteByQuery runs _delete_by_query with refresh.
func (c *Connection) DeleteByQuery(ctx context.Context, index string, query map[string]any) error {
	_, _, err := c.Post(ctx, index+"/_delete_by_query?refresh=true", query)
	return err
}
