package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/pipeline"
	"github.com/dbsmedya/phoneclean/internal/preflight"
)

// CodeBadRequest marks malformed requests.
const CodeBadRequest = "E_REQUEST"

// Response headers carrying run statistics.
const (
	HeaderRunID          = "X-Run-Id"
	HeaderTotal          = "X-Rows-Total"
	HeaderValid          = "X-Rows-Valid"
	HeaderDuplicates     = "X-Rows-Duplicate"
	HeaderInvalidPattern = "X-Rows-Invalid-Pattern"
	HeaderInvalidLength  = "X-Rows-Invalid-Length"
	HeaderRepaired       = "X-Repaired"
	HeaderWarnings       = "X-Warnings"
)

type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Busy      bool       `json:"busy"`
	RunID     string     `json:"run_id,omitempty"`
	Input     string     `json:"input,omitempty"`
	Phase     string     `json:"phase"`
	Percent   int        `json:"percent"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.cleaner.State()
	resp := StatusResponse{
		Busy:    st.Busy,
		RunID:   st.RunID,
		Input:   st.Input,
		Phase:   st.Phase,
		Percent: st.Percent,
	}
	if !st.StartedAt.IsZero() {
		resp.StartedAt = &st.StartedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleClean cleans the uploaded file and returns the cleaned file as
// an attachment. Run statistics travel in response headers.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(w, r)
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}
	req, err := parseRequest(r)
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}

	res, err := s.cleaner.Clean(r.Context(), in, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.Output.MIME)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Output.FileName}))
	h.Set("Content-Length", strconv.Itoa(len(res.Output.Data)))
	h.Set(HeaderRunID, res.RunID)
	h.Set(HeaderTotal, strconv.Itoa(res.Stats.Total))
	h.Set(HeaderValid, strconv.Itoa(res.Stats.Valid))
	h.Set(HeaderDuplicates, strconv.Itoa(res.Stats.Duplicates))
	h.Set(HeaderInvalidPattern, strconv.Itoa(res.Stats.InvalidPattern))
	h.Set(HeaderInvalidLength, strconv.Itoa(res.Stats.InvalidLength))
	h.Set(HeaderRepaired, strconv.FormatBool(res.Repaired))
	for _, warning := range res.Warnings {
		h.Add(HeaderWarnings, warning)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Output.Data); err != nil {
		s.logger.Warnf("Failed to write response for run %s: %v", res.RunID, err)
	}
}

// PreviewResponse is the body of POST /v1/preview.
type PreviewResponse struct {
	Input          string     `json:"input"`
	Delimiter      string     `json:"delimiter,omitempty"`
	HeaderRow      int        `json:"header_row"` // 1-based, 0 when none was found
	NameColumn     int        `json:"name_column"`
	NumberColumns  []int      `json:"number_columns"`
	Rows           [][]string `json:"rows"`
	Repaired       bool       `json:"repaired,omitempty"`
	SelectionError string     `json:"selection_error,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(w, r)
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}
	req, err := parseRequest(r)
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}
	rows, err := formInt(r, "rows")
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}

	pr, err := s.cleaner.Preview(r.Context(), in, req, rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := PreviewResponse{
		Input:         pr.Input,
		HeaderRow:     pr.Selection.HeaderRow + 1,
		NameColumn:    pr.Selection.NameColumn,
		NumberColumns: pr.Selection.NumberColumns,
		Rows:          pr.Rows,
		Repaired:      pr.Repaired,
	}
	if resp.NumberColumns == nil {
		resp.NumberColumns = []int{}
	}
	if pr.Delimiter != 0 {
		resp.Delimiter = string(pr.Delimiter)
	}
	if pr.SelectionErr != nil {
		resp.SelectionError = cleaner.UserMessage(pr.SelectionErr).Text
	}
	writeJSON(w, http.StatusOK, resp)
}

// InspectResponse is the body of POST /v1/inspect.
type InspectResponse struct {
	Input    string   `json:"input"`
	Family   string   `json:"family"`
	Size     int64    `json:"size"`
	Rows     int      `json:"rows"`
	Columns  int      `json:"columns"`
	Verdict  string   `json:"verdict"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
	Code     string   `json:"code,omitempty"`
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	in, err := s.readUpload(w, r)
	if err != nil {
		s.respondRequestError(w, r, err)
		return
	}

	insp, err := s.cleaner.Inspect(r.Context(), in)
	if insp == nil {
		s.respondError(w, r, err)
		return
	}
	resp := InspectResponse{
		Input:    insp.Input,
		Family:   insp.Family.String(),
		Size:     insp.Size,
		Rows:     insp.Dimensions.Rows,
		Columns:  insp.Dimensions.Columns,
		Verdict:  insp.Verdict.String(),
		Warnings: insp.Warnings,
	}
	if err != nil {
		msg := cleaner.UserMessage(err)
		resp.Error, resp.Code = msg.Text, msg.Code
	}
	writeJSON(w, http.StatusOK, resp)
}

// readUpload reads the "file" form field into memory.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (cleaner.Input, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return cleaner.Input{}, uploadError(err, s.maxUpload)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return cleaner.Input{}, badRequest{"no file provided"}
	}
	defer func() { _ = file.Close() }()

	if s.maxUpload > 0 && header.Size > s.maxUpload {
		return cleaner.Input{}, &preflight.LimitError{
			Check:   "file_size",
			Message: "upload is larger than allowed",
			Limit:   s.maxUpload,
			Actual:  header.Size,
		}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return cleaner.Input{}, uploadError(err, s.maxUpload)
	}
	return cleaner.NewInput(header.Filename, data), nil
}

func uploadError(err error, limit int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: upload exceeds %d bytes", preflight.ErrInputTooLarge, limit)
	}
	return badRequest{"invalid upload form"}
}

// parseRequest reads the run options from the form: mode, columns (comma
// separated), name_column and header_row.
func parseRequest(r *http.Request) (cleaner.Request, error) {
	var req cleaner.Request

	if mode := r.FormValue("mode"); mode != "" {
		m, err := pipeline.ParseMode(mode)
		if err != nil {
			return req, badRequest{err.Error()}
		}
		req.Mode = m
	}
	if cols := r.FormValue("columns"); cols != "" {
		req.Columns = strings.Split(cols, ",")
	}
	req.NameColumn = strings.TrimSpace(r.FormValue("name_column"))

	row, err := formInt(r, "header_row")
	if err != nil {
		return req, err
	}
	req.HeaderRow = row
	return req, nil
}

func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest{fmt.Sprintf("%s must be a non-negative integer", key)}
	}
	return n, nil
}

// respondRequestError replies 400 for malformed requests and falls back
// to respondError for everything else.
func (s *Server) respondRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	if errors.As(err, &br) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: br.msg, Code: CodeBadRequest})
		return
	}
	s.respondError(w, r, err)
}
