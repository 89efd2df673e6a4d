package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/export"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

const contactsCSV = "Name,Mobile,City\n" +
	"Asha,9818202888,Pune\n" +
	"Ravi,+91 98182-02888,Delhi\n" +
	"Meera,7012345678,Goa\n" +
	"Bad,1111111111,Agra\n" +
	"Short,12345,Kota\n"

func newTestServer(t *testing.T, opts ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Export.Format = "csv"
	for _, fn := range opts {
		fn(cfg)
	}
	session, err := cleaner.NewSession(cfg, logger.NewNop())
	require.NoError(t, err)
	return NewServer(session, cfg, logger.NewNop())
}

func uploadRequest(t *testing.T, path, name string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if name != "" {
		fw, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusIdle(t *testing.T) {
	rec := serve(newTestServer(t), httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"busy":false,"phase":"idle","percent":0}`, rec.Body.String())
}

func TestClean(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, uploadRequest(t, "/v1/clean", "contacts.csv", []byte(contactsCSV), map[string]string{"mode": "unique"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, export.MIMECSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contacts_unique_2_rows.csv")
	assert.Equal(t, "5", rec.Header().Get(HeaderTotal))
	assert.Equal(t, "2", rec.Header().Get(HeaderValid))
	assert.Equal(t, "1", rec.Header().Get(HeaderDuplicates))
	assert.Equal(t, "1", rec.Header().Get(HeaderInvalidPattern))
	assert.Equal(t, "1", rec.Header().Get(HeaderInvalidLength))
	assert.Equal(t, "false", rec.Header().Get(HeaderRepaired))

	_, err := uuid.Parse(rec.Header().Get(HeaderRunID))
	assert.NoError(t, err)

	assert.Equal(t, "\ufeffMobile\r\n+919818202888\r\n+917012345678\r\n", rec.Body.String())
}

func TestCleanExplicitColumns(t *testing.T) {
	input := "Customer,Notes,Alt\nAsha,call after 6,9818202888\nRavi,,7012345678\n"
	rec := serve(newTestServer(t), uploadRequest(t, "/v1/clean", "export.csv", []byte(input), map[string]string{
		"mode":        "mobile_name",
		"columns":     "C",
		"name_column": "A",
		"header_row":  "1",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "\ufeffCustomer,Mobile\r\nAsha,+919818202888\r\nRavi,+917012345678\r\n", rec.Body.String())
}

func TestCleanErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   func(*config.Config)
		file   string
		data   string
		fields map[string]string
		status int
		code   string
	}{
		{"no file", nil, "", "", nil, http.StatusBadRequest, CodeBadRequest},
		{"bad mode", nil, "contacts.csv", contactsCSV, map[string]string{"mode": "all"}, http.StatusBadRequest, CodeBadRequest},
		{"bad header row", nil, "contacts.csv", contactsCSV, map[string]string{"header_row": "x"}, http.StatusBadRequest, CodeBadRequest},
		{"format", nil, "contacts.pdf", contactsCSV, nil, http.StatusUnsupportedMediaType, cleaner.CodeFormat},
		{"no numbers", nil, "names.csv", "Name,City\nAsha,Pune\n", nil, http.StatusUnprocessableEntity, cleaner.CodeEmptySelection},
		{"column", nil, "contacts.csv", contactsCSV, map[string]string{"columns": "Z"}, http.StatusUnprocessableEntity, cleaner.CodeColumn},
		{"corrupt", nil, "book.xlsx", "not a workbook", nil, http.StatusUnprocessableEntity, cleaner.CodeCorrupt},
		{"too large", func(cfg *config.Config) { cfg.Limits.MaxFileSize = 10 }, "contacts.csv", contactsCSV, nil,
			http.StatusRequestEntityTooLarge, cleaner.CodeTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []func(*config.Config)
			if tt.opts != nil {
				opts = append(opts, tt.opts)
			}
			rec := serve(newTestServer(t, opts...), uploadRequest(t, "/v1/clean", tt.file, []byte(tt.data), tt.fields))
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

type busyCleaner struct {
	started time.Time
}

func (busyCleaner) Clean(context.Context, cleaner.Input, cleaner.Request) (*cleaner.RunResult, error) {
	return nil, cleaner.ErrAlreadyProcessing
}

func (busyCleaner) Preview(context.Context, cleaner.Input, cleaner.Request, int) (*cleaner.PreviewResult, error) {
	return nil, cleaner.ErrAlreadyProcessing
}

func (busyCleaner) Inspect(context.Context, cleaner.Input) (*cleaner.Inspection, error) {
	return nil, cleaner.ErrAlreadyProcessing
}

func (b busyCleaner) State() cleaner.State {
	return cleaner.State{Busy: true, RunID: "run-1", Input: "big.csv", Phase: cleaner.PhaseClean, Percent: 40, StartedAt: b.started}
}

func TestBusy(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewServer(busyCleaner{started: started}, config.DefaultConfig(), logger.NewNop())

	for _, path := range []string{"/v1/clean", "/v1/preview", "/v1/inspect"} {
		rec := serve(s, uploadRequest(t, path, "contacts.csv", []byte(contactsCSV), nil))
		assert.Equal(t, http.StatusConflict, rec.Code, path)
		assert.Equal(t, cleaner.CodeBusy, decodeError(t, rec).Code, path)
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Busy)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, cleaner.PhaseClean, st.Phase)
	assert.Equal(t, 40, st.Percent)
	require.NotNil(t, st.StartedAt)
	assert.True(t, started.Equal(*st.StartedAt))
}

func TestPreview(t *testing.T) {
	rec := serve(newTestServer(t), uploadRequest(t, "/v1/preview", "contacts.csv", []byte(contactsCSV), map[string]string{"rows": "3"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "contacts.csv", resp.Input)
	assert.Equal(t, ",", resp.Delimiter)
	assert.Equal(t, 1, resp.HeaderRow)
	assert.Equal(t, 0, resp.NameColumn)
	assert.Equal(t, []int{1}, resp.NumberColumns)
	assert.Len(t, resp.Rows, 3)
	assert.Empty(t, resp.SelectionError)

	rec = serve(newTestServer(t), uploadRequest(t, "/v1/preview", "names.csv", []byte("Name,City\nAsha,Pune\n"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int{}, resp.NumberColumns)
	assert.NotEmpty(t, resp.SelectionError)
}

func TestInspect(t *testing.T) {
	rec := serve(newTestServer(t), uploadRequest(t, "/v1/inspect", "contacts.csv", []byte(contactsCSV), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp InspectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "delimited", resp.Family)
	assert.Equal(t, 6, resp.Rows)
	assert.Equal(t, 3, resp.Columns)
	assert.Equal(t, "proceed", resp.Verdict)
	assert.Empty(t, resp.Code)

	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Limits.MaxRows = 3
		cfg.Limits.WarnRows = 1
	})
	rec = serve(s, uploadRequest(t, "/v1/inspect", "contacts.csv", []byte(contactsCSV), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reject", resp.Verdict)
	assert.Equal(t, cleaner.CodeTooLarge, resp.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		cleaner.CodeBusy:           http.StatusConflict,
		cleaner.CodeTooLarge:       http.StatusRequestEntityTooLarge,
		cleaner.CodeFormat:         http.StatusUnsupportedMediaType,
		cleaner.CodeCorrupt:        http.StatusUnprocessableEntity,
		cleaner.CodeEncrypted:      http.StatusUnprocessableEntity,
		cleaner.CodeEmptySheet:     http.StatusUnprocessableEntity,
		cleaner.CodeEmptySelection: http.StatusUnprocessableEntity,
		cleaner.CodeColumn:         http.StatusUnprocessableEntity,
		cleaner.CodeCancelled:      http.StatusServiceUnavailable,
		cleaner.CodeExport:         http.StatusInternalServerError,
		cleaner.CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, statusFor(code), code)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 0
	s := NewServer(busyCleaner{}, cfg, logger.NewNop())

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Start())
}
