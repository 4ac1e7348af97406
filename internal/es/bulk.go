package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/errs"
	"tubearchivist/internal/utils/logging"
)

// BulkWriter accumulates NDJSON action/doc line pairs for a _bulk call.
// The payload is terminated with a trailing newline as the API requires.
type BulkWriter struct {
	conn *Connection
	buf  bytes.Buffer
	n    int
}

// NewBulkWriter returns an empty bulk accumulator.
func (c *Connection) NewBulkWriter() *BulkWriter {
	return &BulkWriter{conn: c}
}

// Index queues an index action for id with the given document.
func (b *BulkWriter) Index(index, id string, doc any) error {
	action := map[string]any{
		"index": map[string]any{"_index": index, "_id": id},
	}
	return b.pair(action, doc)
}

// Delete queues a delete action for id.
func (b *BulkWriter) Delete(index, id string) error {
	action := map[string]any{
		"delete": map[string]any{"_index": index, "_id": id},
	}
	return b.line(action)
}

// RawPair appends a preassembled action line and source line, used by
// backup restore where the lines already exist verbatim.
func (b *BulkWriter) RawPair(action, source []byte) {
	b.buf.Write(action)
	b.buf.WriteByte('\n')
	b.buf.Write(source)
	b.buf.WriteByte('\n')
	b.n++
}

func (b *BulkWriter) pair(action, doc any) error {
	if err := b.line(action); err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	b.buf.Write(raw)
	b.buf.WriteByte('\n')
	return nil
}

func (b *BulkWriter) line(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.buf.Write(raw)
	b.buf.WriteByte('\n')
	b.n++
	return nil
}

// Len returns the number of queued actions.
func (b *BulkWriter) Len() int {
	return b.n
}

// bulkResponse is the subset of the _bulk response we act on.
type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Flush posts the accumulated payload. On partial failure the batch
// still counts as applied; the ids that failed are returned so callers
// can report them. Transport-level failures are retried once after a
// short backoff.
func (b *BulkWriter) Flush(ctx context.Context) (failedIDs []string, err error) {
	if b.n == 0 {
		return nil, nil
	}
	payload := b.buf.Bytes()

	raw, _, err := b.conn.PostNDJSON(ctx, "_bulk", payload)
	if err != nil && errs.Retryable(err) {
		time.Sleep(consts.BulkRetryBackoff)
		raw, _, err = b.conn.PostNDJSON(ctx, "_bulk", payload)
	}
	if err != nil {
		return nil, fmt.Errorf("bulk write of %d actions: %w", b.n, err)
	}

	var resp bulkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	if resp.Errors {
		for _, item := range resp.Items {
			for _, detail := range item {
				if detail.Error != nil {
					failedIDs = append(failedIDs, detail.ID)
					logging.E("bulk action for %q failed: %s: %s",
						detail.ID, detail.Error.Type, detail.Error.Reason)
				}
			}
		}
	}

	b.buf.Reset()
	b.n = 0
	return failedIDs, nil
}
