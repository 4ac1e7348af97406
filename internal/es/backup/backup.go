// Package backup writes compressed NDJSON backups of every declared
// index and restores them through the bulk API.
package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tubearchivist/internal/domain/consts"
	"tubearchivist/internal/es"
	"tubearchivist/internal/utils/logging"
)

// Reasons a backup can run for. Rotation only ever deletes auto backups.
const (
	ReasonAuto   = "auto"
	ReasonUpdate = "update"
	ReasonManual = "manual"
)

// Manager writes and restores index backups under <cache>/backup.
type Manager struct {
	conn     *es.Connection
	cacheDir string
	indices  []string
}

// NewManager builds a backup manager for the given index aliases.
func NewManager(conn *es.Connection, cacheDir string, indices []string) *Manager {
	return &Manager{conn: conn, cacheDir: cacheDir, indices: indices}
}

func (m *Manager) backupDir() string {
	return filepath.Join(m.cacheDir, consts.CacheBackup)
}

// Run exports every index to NDJSON, zips the files together and
// removes the intermediates. Returns the created archive name.
func (m *Manager) Run(ctx context.Context, reason string) (string, error) {
	if err := os.MkdirAll(m.backupDir(), 0o755); err != nil {
		return "", err
	}

	var files []string
	for _, index := range m.indices {
		f, err := m.exportIndex(ctx, index)
		if err != nil {
			return "", fmt.Errorf("backup %s: %w", index, err)
		}
		files = append(files, f)
	}

	name := fmt.Sprintf("ta_backup-%s-%s.zip", time.Now().Format("20060102"), reason)
	if err := m.zipFiles(files, filepath.Join(m.backupDir(), name)); err != nil {
		return "", err
	}

	for _, f := range files {
		if err := os.Remove(f); err != nil {
			logging.W("backup: failed to remove intermediate %s: %v", f, err)
		}
	}

	logging.S("backup: wrote %s", name)
	return name, nil
}

// exportIndex streams all documents of one index into an NDJSON file of
// action/source line pairs ready for _bulk restore.
func (m *Manager) exportIndex(ctx context.Context, index string) (string, error) {
	path := filepath.Join(m.backupDir(), "es_"+index+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	writeErr := func() error {
		defer func() {
			if err := f.Close(); err != nil {
				logging.E("backup: close %s: %v", path, err)
			}
		}()

		_, err := m.conn.Paginate(ctx, index, nil, &es.PaginateOpts{
			Callback: func(hits []es.SearchHit, progress float64) error {
				for _, hit := range hits {
					action, err := json.Marshal(map[string]any{
						"index": map[string]any{"_index": index, "_id": hit.ID},
					})
					if err != nil {
						return err
					}
					if _, err := f.Write(append(action, '\n')); err != nil {
						return err
					}
					if _, err := f.Write(append([]byte(hit.Source), '\n')); err != nil {
						return err
					}
				}
				logging.D(1, "backup %s: %.0f%%", index, progress*100)
				return nil
			},
		})
		return err
	}()

	if writeErr != nil {
		return "", writeErr
	}
	return path, nil
}

func (m *Manager) zipFiles(files []string, target string) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	for _, file := range files {
		if err := addToZip(zw, file); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func addToZip(zw *zip.Writer, file string) error {
	in, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.E("backup: close %s: %v", file, err)
		}
	}()

	w, err := zw.Create(filepath.Base(file))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

// List returns the backup archives on disk, newest first.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.backupDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "ta_backup-") && strings.HasSuffix(e.Name(), ".zip") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Rotate deletes the oldest auto backups, keeping at most keep of them.
// Backups taken for update or manual reasons are never rotated away.
func (m *Manager) Rotate(keep int) error {
	all, err := m.List()
	if err != nil {
		return err
	}

	var autos []string
	for _, name := range all {
		if strings.HasSuffix(name, "-"+ReasonAuto+".zip") {
			autos = append(autos, name)
		}
	}

	if len(autos) <= keep {
		return nil
	}
	for _, name := range autos[keep:] {
		logging.I("backup: rotating out %s", name)
		if err := os.Remove(filepath.Join(m.backupDir(), name)); err != nil {
			return err
		}
	}
	return nil
}

// Restore unzips an archive and posts every es_*.json file through the
// bulk API, deleting each file after it is applied.
func (m *Manager) Restore(ctx context.Context, archive string) error {
	zr, err := zip.OpenReader(filepath.Join(m.backupDir(), archive))
	if err != nil {
		return fmt.Errorf("open backup %s: %w", archive, err)
	}
	defer func() {
		if err := zr.Close(); err != nil {
			logging.E("backup: close archive: %v", err)
		}
	}()

	var extracted []string
	for _, zf := range zr.File {
		if !strings.HasPrefix(zf.Name, "es_") || !strings.HasSuffix(zf.Name, ".json") {
			continue
		}
		target := filepath.Join(m.backupDir(), filepath.Base(zf.Name))
		if err := extractFile(zf, target); err != nil {
			return err
		}
		extracted = append(extracted, target)
	}

	for _, path := range extracted {
		if err := m.restoreFile(ctx, path); err != nil {
			return fmt.Errorf("restore %s: %w", filepath.Base(path), err)
		}
		if err := os.Remove(path); err != nil {
			logging.W("backup: failed to remove %s after restore: %v", path, err)
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	in, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.E("backup: close zip entry: %v", err)
		}
	}()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (m *Manager) restoreFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) < 2 {
		return nil // empty export
	}

	bw := m.conn.NewBulkWriter()
	for i := 0; i+1 < len(lines); i += 2 {
		bw.RawPair([]byte(lines[i]), []byte(lines[i+1]))
	}

	failed, err := bw.Flush(ctx)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		logging.W("backup restore: %d documents failed: %v", len(failed), failed)
	}
	return nil
}
