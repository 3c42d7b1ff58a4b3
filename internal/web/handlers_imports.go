package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/qbimport/internal/core"
	mw "github.com/JonMunkholm/qbimport/internal/web/middleware"
)

// multipartMemory is the in-memory share of a parsed upload form; the rest
// spills to temp files.
const multipartMemory = 32 << 20

// defaultListLimit caps GET /api/imports without a limit parameter.
const defaultListLimit = 50

var errRunInProgress = errors.New("import run still in progress")

// handleUpload starts an import from the multipart "file" field. API clients
// get 202 with the run id; browser form posts are redirected to the run page.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if maxSize := s.service.MaxFileSize(); maxSize > 0 {
		// Leave room for the multipart envelope around the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			respondError(w, r, core.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !s.allowedExtension(header.Filename) {
		respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, header.Filename), http.StatusBadRequest)
		return
	}

	ctx := core.WithSource(r.Context(), core.Source{IP: mw.ClientIP(r), UserAgent: r.UserAgent()})
	runID, err := s.service.StartImportReader(ctx, header.Filename, file)
	if err != nil {
		if errors.Is(err, core.ErrTooManyRuns) {
			w.Header().Set("Retry-After", "30")
		}
		respondError(w, r, err, statusFor(err))
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/imports/"+runID, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

func (s *Server) allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return slices.ContainsFunc(s.cfg.Import.AllowedExtensions, func(allowed string) bool {
		return strings.EqualFold(allowed, ext)
	})
}

// handleRunStatus returns progress and, once finished, the full report.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.service.Lookup(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns(r.Context(), parseIntParam(r, "limit", defaultListLimit))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []core.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleRunEvents streams progress as Server-Sent Events. Each event id is
// the processed row count, so a reconnecting client that sends Last-Event-ID
// only receives newer snapshots. A "complete" event ends the stream.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	lastEventID := -1
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lastEventID = n
		}
	} else if v := r.URL.Query().Get("lastEventId"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			lastEventID = n
		}
	}

	progressCh, err := s.service.SubscribeProgress(runID)
	if err != nil && !errors.Is(err, core.ErrRunNotFound) {
		respondError(w, r, err, statusFor(err))
		return
	}

	// Evicted runs replay their stored report as a single event.
	var final *core.Progress
	if progressCh == nil {
		status, err := s.service.Lookup(r.Context(), runID)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		final = &status.Progress
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(p core.Progress) {
		id := p.Processed()
		if id < lastEventID && !p.Phase.Finished() {
			return
		}
		lastEventID = id
		data, _ := json.Marshal(p)
		fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", id, data)
		flusher.Flush()
	}
	complete := func() {
		fmt.Fprint(w, "event: complete\ndata: {}\n\n")
		flusher.Flush()
	}

	if final != nil {
		send(*final)
		complete()
		return
	}

	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case p, ok := <-progressCh:
			if !ok {
				complete()
				return
			}
			send(p)
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleFailedRows exports the failed rows of a finished run as CSV with
// _line, _error and _code columns ahead of the original headers.
func (s *Server) handleFailedRows(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	status, err := s.service.Lookup(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if status.Result == nil {
		respondError(w, r, errRunInProgress, http.StatusConflict)
		return
	}

	result := status.Result
	headers := result.Headers
	if len(headers) == 0 {
		headers = core.Headers
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="failed_rows_%s.csv"`, runID))

	cw := csv.NewWriter(w)
	_ = cw.Write(append([]string{"_line", "_error", "_code"}, headers...))
	for _, row := range result.FailedRows {
		record := make([]string, 0, len(headers)+3)
		record = append(record, strconv.Itoa(row.Line), row.Reason, row.Code)
		for _, h := range headers {
			record = append(record, row.Data[h])
		}
		_ = cw.Write(record)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// handleTemplate downloads an empty CSV with the import headers.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="questions_template.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write(core.Headers)
	cw.Flush()
}

// parseIntParam parses a positive integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	i, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
