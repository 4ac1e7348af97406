package queue

import (
	"context"
	"encoding/json"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/es"
	"tubearchivist/internal/models"
	"tubearchivist/internal/utils/logging"
)

// PendingQueue is the download queue backed by the ta_download index.
type PendingQueue struct {
	conn *es.Connection
}

// New builds the queue accessor.
func New(conn *es.Connection) *PendingQueue {
	return &PendingQueue{conn: conn}
}

// AddOptions tunes a batch insertion.
type AddOptions struct {
	// Status for fresh rows, pending or ignore.
	Status string
	// Force re-adds ignored and archived ids.
	Force bool
	// AutoStart marks rows for immediate download and bumps existing
	// pending rows to priority.
	AutoStart bool
}

// AddResult summarizes a batch insertion.
type AddResult struct {
	Added    int
	Skipped  int
	Bumped   int
	FailedID []string
}

// Add inserts rows according to the state machine rules. The skip set
// is computed once per batch so concurrent scans cannot double-add.
func (q *PendingQueue) Add(ctx context.Context, rows []models.DownloadRow, opts AddOptions) (*AddResult, error) {
	if opts.Status == "" {
		opts.Status = models.StatusPending
	}

	pending, err := q.statusIDs(ctx, models.StatusPending, models.StatusPriority)
	if err != nil {
		return nil, err
	}
	ignored, err := q.statusIDs(ctx, models.StatusIgnore)
	if err != nil {
		return nil, err
	}
	archived, err := q.archivedIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &AddResult{}
	bw := q.conn.NewBulkWriter()
	now := time.Now().Unix()

	for i, row := range rows {
		switch Decide(row.YoutubeID, pending, ignored, archived, opts.Force, opts.AutoStart) {
		case DecisionSkip:
			res.Skipped++
			continue

		case DecisionPriority:
			row.Status = models.StatusPriority
			row.AutoStart = true
			res.Bumped++

		case DecisionAdd:
			row.Status = opts.Status
			row.AutoStart = opts.AutoStart
			res.Added++
		}

		// Preserve insertion order inside the batch.
		row.Timestamp = now + int64(i)

		if err := bw.Index(consts.IndexDownload, row.YoutubeID, row); err != nil {
			return nil, err
		}
		pending.Add(row.YoutubeID)
	}

	failed, err := bw.Flush(ctx)
	if err != nil {
		return nil, err
	}
	res.FailedID = failed

	logging.I("download queue: added %d, bumped %d, skipped %d", res.Added, res.Bumped, res.Skipped)
	return res, nil
}

// statusIDs collects all row ids with any of the given statuses.
func (q *PendingQueue) statusIDs(ctx context.Context, statuses ...string) (IDSet, error) {
	query := map[string]any{
		"terms": map[string]any{"status": statuses},
	}
	return q.collectIDs(ctx, consts.IndexDownload, query)
}

// archivedIDs collects every indexed video id.
func (q *PendingQueue) archivedIDs(ctx context.Context) (IDSet, error) {
	return q.collectIDs(ctx, consts.IndexVideo, nil)
}

func (q *PendingQueue) collectIDs(ctx context.Context, index string, query map[string]any) (IDSet, error) {
	set := IDSet{}
	_, err := q.conn.Paginate(ctx, index, query, &es.PaginateOpts{
		Callback: func(hits []es.SearchHit, _ float64) error {
			for _, h := range hits {
				set.Add(h.ID)
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// NextIDs returns queued ids in download order: priority and auto-start
// rows first, then oldest first. With autoOnly set, only auto-start
// rows are returned.
func (q *PendingQueue) NextIDs(ctx context.Context, autoOnly bool) ([]string, error) {
	filter := []any{
		map[string]any{"terms": map[string]any{
			"status": []string{models.StatusPending, models.StatusPriority},
		}},
	}
	if autoOnly {
		filter = append(filter, map[string]any{"term": map[string]any{"auto_start": true}})
	}

	hits, err := q.conn.Paginate(ctx, consts.IndexDownload, map[string]any{
		"bool": map[string]any{"filter": filter},
	}, &es.PaginateOpts{
		Sort: []any{
			map[string]any{"auto_start": map[string]any{"order": "desc"}},
			map[string]any{"timestamp": map[string]any{"order": "asc"}},
		},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

// List returns rows filtered by status, download order first. An empty
// status lists everything.
func (q *PendingQueue) List(ctx context.Context, status string) ([]models.DownloadRow, error) {
	var query map[string]any
	if status != "" {
		query = map[string]any{"term": map[string]any{"status": status}}
	}

	hits, err := q.conn.Paginate(ctx, consts.IndexDownload, query, &es.PaginateOpts{
		Sort: []any{
			map[string]any{"auto_start": map[string]any{"order": "desc"}},
			map[string]any{"timestamp": map[string]any{"order": "asc"}},
		},
	})
	if err != nil {
		return nil, err
	}

	rows := make([]models.DownloadRow, 0, len(hits))
	for _, h := range hits {
		var row models.DownloadRow
		if err := h.Decode(&row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Get loads one row. Missing rows return ErrNotFound.
func (q *PendingQueue) Get(ctx context.Context, youtubeID string) (*models.DownloadRow, error) {
	var row models.DownloadRow
	if err := q.conn.GetDoc(ctx, consts.IndexDownload, youtubeID, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

// SetStatus moves one row to the given status. Priority rows are also
// marked auto_start so they sort first.
func (q *PendingQueue) SetStatus(ctx context.Context, youtubeID, status string) error {
	fields := map[string]any{"status": status}
	if status == models.StatusPriority {
		fields["auto_start"] = true
	}
	return q.conn.UpdateDoc(ctx, consts.IndexDownload, youtubeID, fields)
}

// SetMessage attaches a failure message to one row.
func (q *PendingQueue) SetMessage(ctx context.Context, youtubeID, message string) error {
	return q.conn.UpdateDoc(ctx, consts.IndexDownload, youtubeID, map[string]any{
		"message": message,
	})
}

// Remove deletes one row regardless of status.
func (q *PendingQueue) Remove(ctx context.Context, youtubeID string) error {
	return q.conn.DeleteDoc(ctx, consts.IndexDownload, youtubeID)
}

// RemoveByStatus deletes all rows with the given status.
func (q *PendingQueue) RemoveByStatus(ctx context.Context, status string) error {
	return q.conn.DeleteByQuery(ctx, consts.IndexDownload, map[string]any{
		"query": map[string]any{"term": map[string]any{"status": status}},
	})
}

// IgnoreArchived inserts an id directly as ignored, used by the
// auto-delete pass so watched-and-deleted videos are not re-added.
func (q *PendingQueue) IgnoreArchived(ctx context.Context, youtubeID, title string) error {
	row := models.DownloadRow{
		YoutubeID: youtubeID,
		Title:     title,
		Status:    models.StatusIgnore,
		Timestamp: time.Now().Unix(),
		Message:   "deleted after watching",
	}
	return q.conn.IndexDoc(ctx, consts.IndexDownload, youtubeID, row)
}

// Stats returns row counts per status.
func (q *PendingQueue) Stats(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	for _, status := range []string{models.StatusPending, models.StatusIgnore, models.StatusPriority} {
		n, err := q.conn.Count(ctx, consts.IndexDownload, map[string]any{
			"query": map[string]any{"term": map[string]any{"status": status}},
		})
		if err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, nil
}

// DebugDump renders the queue as JSON for support bundles.
func (q *PendingQueue) DebugDump(ctx context.Context) ([]byte, error) {
	hits, err := q.conn.Paginate(ctx, consts.IndexDownload, nil, nil)
	if err != nil {
		return nil, err
	}
	rows := make([]json.RawMessage, len(hits))
	for i, h := range hits {
		rows[i] = h.Source
	}
	return json.MarshalIndent(rows, "", "  ")
}
