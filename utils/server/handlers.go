package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ds24m038/GenAI-Table-Processing/utils/config"
	"github.com/ds24m038/GenAI-Table-Processing/utils/models"
	"github.com/ds24m038/GenAI-Table-Processing/utils/processor"
	"github.com/ds24m038/GenAI-Table-Processing/utils/table"
)

// maxUploadBytes bounds multipart uploads (32 MiB).
const maxUploadBytes = 32 << 20

// errorResponse is the JSON error body for all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadResponse describes a newly created session.
type uploadResponse struct {
	SessionID string   `json:"session_id"`
	Filename  string   `json:"filename"`
	Rows      int      `json:"rows"`
	Columns   []string `json:"columns"`
}

// handleUpload accepts a multipart "file" field holding a CSV or XLSX table
// and opens a session around it. Boundary errors (empty file, unsupported
// format) come back as 400s, distinguishable from later pipeline failures.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: %v", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: %v", err)
		return
	}
	defer file.Close()

	tbl, err := loadUpload(file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, table.ErrEmptyFile):
			writeError(w, http.StatusBadRequest, "uploaded file contains no data rows")
		case errors.Is(err, table.ErrUnsupportedFormat):
			writeError(w, http.StatusBadRequest, "unsupported file format: %s (use .csv or .xlsx)", filepath.Ext(header.Filename))
		default:
			writeError(w, http.StatusBadRequest, "could not read uploaded file: %v", err)
		}
		return
	}

	session := s.store.Create(header.Filename, tbl)
	config.VerboseLog("[Server] Session %s: uploaded %s (%d rows)", session.ID, header.Filename, len(tbl.Rows))
	writeJSON(w, http.StatusCreated, uploadResponse{
		SessionID: session.ID,
		Filename:  session.Filename,
		Rows:      len(tbl.Rows),
		Columns:   tbl.Columns,
	})
}

// loadUpload parses an uploaded table. XLSX parsing needs a file on disk, so
// the upload is spooled to a temp file first.
func loadUpload(file io.Reader, filename string) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return table.ReadCSV(file)
	case ".xlsx":
		tmp, err := os.CreateTemp("", "upload-*.xlsx")
		if err != nil {
			return nil, fmt.Errorf("error spooling upload: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, file); err != nil {
			tmp.Close()
			return nil, fmt.Errorf("error spooling upload: %w", err)
		}
		tmp.Close()
		return table.LoadFile(tmp.Name())
	default:
		return nil, table.ErrUnsupportedFormat
	}
}

// sessionResponse summarizes session state.
type sessionResponse struct {
	SessionID string                `json:"session_id"`
	Filename  string                `json:"filename"`
	Rows      int                   `json:"rows"`
	Columns   []string              `json:"columns"`
	Steps     []processor.Step      `json:"steps"`
	Processed bool                  `json:"processed"`
	Summary   *processor.RunSummary `json:"summary,omitempty"`
	RunError  string                `json:"run_error,omitempty"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	session, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil
	}
	return session
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: session.ID,
		Filename:  session.Filename,
		Rows:      len(session.Uploaded.Rows),
		Columns:   session.Uploaded.Columns,
		Steps:     session.Steps.Steps,
		Processed: session.Processed != nil,
		Summary:   session.Summary,
		RunError:  session.RunError,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	s.store.Delete(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePutSteps replaces the session's configured steps. Steps are validated
// lazily: malformed steps are skipped at run time, matching the CLI.
func (s *Server) handlePutSteps(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	var steps processor.StepsConfig
	if err := json.NewDecoder(r.Body).Decode(&steps); err != nil {
		writeError(w, http.StatusBadRequest, "invalid steps body: %v", err)
		return
	}
	session.Steps = &steps
	writeJSON(w, http.StatusOK, map[string]int{"steps": len(steps.Steps)})
}

// processResponse carries the outcome of a run, including partial results
// after a mid-run failure.
type processResponse struct {
	Summary  *processor.RunSummary `json:"summary"`
	Rows     int                   `json:"rows"`
	Columns  []string              `json:"columns"`
	RunError string                `json:"run_error,omitempty"`
}

// handleProcess runs the pipeline over a clone of the uploaded table.
// ?preview=true restricts the run to the first row.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	if len(session.Steps.Steps) == 0 {
		writeError(w, http.StatusBadRequest, "no processing steps configured")
		return
	}
	previewOnly := r.URL.Query().Get("preview") == "true"

	proc := processor.NewProcessor(session.Steps, s.envConfig, s.verbose)
	proc.SetProgress(func(done, total int) {
		config.VerboseLog("[Server] Session %s: processed row %d/%d", session.ID, done, total)
	})

	working := session.Uploaded.Clone()
	summary, err := proc.Run(r.Context(), working, previewOnly)

	// Partial progress is kept visible even after a failure
	session.Processed = working
	session.Summary = summary
	session.RunError = ""

	if err != nil {
		session.RunError = err.Error()
		var callErr *models.ModelCallError
		switch {
		case errors.Is(err, config.ErrMissingAPIKey):
			writeError(w, http.StatusBadRequest, "configuration error: %v", err)
		case errors.As(err, &callErr):
			writeJSON(w, http.StatusBadGateway, processResponse{
				Summary:  summary,
				Rows:     summary.RowsProcessed,
				Columns:  working.Columns,
				RunError: err.Error(),
			})
		default:
			writeError(w, http.StatusInternalServerError, "processing failed: %v", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Summary: summary,
		Rows:    summary.RowsProcessed,
		Columns: working.Columns,
	})
}

// handleDownload streams the processed table in the requested format
// (?format=csv|xlsx, defaulting to the upload's own extension).
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	if session.Processed == nil {
		writeError(w, http.StatusConflict, "session has no processed result yet")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(session.Filename)), ".")
	}

	base := strings.TrimSuffix(session.Filename, filepath.Ext(session.Filename))
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_processed.csv"))
		if err := session.Processed.WriteCSV(w); err != nil {
			config.WarnLog("Failed streaming CSV for session %s: %v", session.ID, err)
		}
	case "xlsx":
		tmp, err := os.CreateTemp("", "download-*.xlsx")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not prepare download: %v", err)
			return
		}
		tmpName := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpName)

		if err := session.Processed.SaveFile(tmpName); err != nil {
			writeError(w, http.StatusInternalServerError, "could not serialize workbook: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"_processed.xlsx"))
		http.ServeFile(w, r, tmpName)
	default:
		writeError(w, http.StatusBadRequest, "unsupported download format %q", format)
	}
}
