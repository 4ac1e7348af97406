package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tubearchivist/internal/domain/keys"
	"tubearchivist/internal/es/backup"
	"tubearchivist/internal/extractor"
)

// ----------------- custom playlists -----------------

func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	pl, err := s.app.Playlists.Create(r.Context(), body.Name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, pl)
}

func (s *Server) handlePlaylistVideo(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoID string `json:"video_id"`
		Action  string `json:"action"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	playlistID := chi.URLParam(r, "id")
	var err error
	if body.Action == "add" {
		err = s.app.Playlists.AddVideo(r.Context(), playlistID, body.VideoID)
	} else {
		err = s.app.Playlists.Move(r.Context(), playlistID, body.VideoID, body.Action)
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Playlists.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------- watched state -----------------

func (s *Server) handleSetWatched(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID      string `json:"id"`
		Kind    string `json:"kind"`
		Watched bool   `json:"is_watched"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch body.Kind {
	case "video", "":
		err = s.app.Watched.MarkVideo(r.Context(), body.ID, body.Watched)
	case "channel":
		err = s.app.Watched.MarkChannel(r.Context(), body.ID, body.Watched)
	case "playlist":
		err = s.app.Watched.MarkPlaylist(r.Context(), body.ID, body.Watched)
	default:
		http.Error(w, "kind must be video, channel or playlist", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	pos, err := s.app.Watched.Position(r.Context(), s.app.Env.Username, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"position": pos})
}

func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Position int64 `json:"position"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	err := s.app.Watched.SetPosition(r.Context(), s.app.Env.Username, chi.URLParam(r, "id"), body.Position)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleClearProgress(w http.ResponseWriter, r *http.Request) {
	err := s.app.Watched.ClearPosition(r.Context(), s.app.Env.Username, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------- notifications -----------------

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	urls, err := s.app.Notifier.URLs(r.Context(), chi.URLParam(r, "task"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"urls": urls})
}

func (s *Server) handleAddNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Task string `json:"task"`
		URL  string `json:"url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.app.Notifier.AddURL(r.Context(), body.Task, body.URL); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleRemoveNotification(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Task string `json:"task"`
		URL  string `json:"url"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.app.Notifier.RemoveURL(r.Context(), body.Task, body.URL); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ----------------- backups and snapshots -----------------

func (s *Server) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	names, err := s.app.Backups.List()
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, names)
}

func (s *Server) handleRunBackup(w http.ResponseWriter, r *http.Request) {
	name, err := s.app.Backups.Run(r.Context(), backup.ReasonManual)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"filename": name})
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Backups.Restore(r.Context(), chi.URLParam(r, "filename")); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.app.Snapshots.List(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	name, err := s.app.Snapshots.TakeNow(r.Context(), wait)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Snapshots.Restore(r.Context(), chi.URLParam(r, "name")); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// ----------------- cookies -----------------

func (s *Server) handleCookieState(w http.ResponseWriter, r *http.Request) {
	valid, err := s.app.CookieJar.IsValidated(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cookie_validated": valid})
}

// handleCookieImport stores a cookie export. With ?source=browser the
// body is ignored and youtube.com cookies are read from an installed
// browser instead.
func (s *Server) handleCookieImport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "browser" {
		if err := s.app.CookieJar.ImportFromBrowser(r.Context()); err != nil {
			respondErr(w, err)
			return
		}
	} else {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil || len(raw) == 0 {
			http.Error(w, "empty cookie body", http.StatusBadRequest)
			return
		}
		if err := s.app.CookieJar.Import(r.Context(), string(raw)); err != nil {
			respondErr(w, err)
			return
		}
	}
	if err := s.app.CookieJar.Validate(r.Context(), s.app.Extractor, &extractor.Options{Config: s.app.AppConfig}); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cookie_validated": true})
}

func (s *Server) handleCookieRevoke(w http.ResponseWriter, r *http.Request) {
	if err := s.app.CookieJar.Revoke(r.Context()); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPOToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"potoken"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Token == "" {
		http.Error(w, "empty potoken", http.StatusBadRequest)
		return
	}
	if err := s.app.KV.Set(r.Context(), keys.POToken, body.Token, 0); err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

func (s *Server) handleClearPOToken(w http.ResponseWriter, r *http.Request) {
	if err := s.app.KV.Del(r.Context(), keys.POToken); err != nil {
		respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
