package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"page-scraper/models"
	"page-scraper/sink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type capturedRequest struct {
	Method string
	Path   string
	Body   string
}

type fakeSheets struct {
	mu        sync.Mutex
	requests  []capturedRequest
	existing  int // rows already in column A
	failWrite bool
}

func (f *fakeSheets) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		io.WriteString(w, `{"spreadsheetId":"sheet-id","replies":[{"addSheet":{"properties":{"sheetId":42,"title":"x"}}}]}`)
	case strings.HasSuffix(r.URL.Path, ":clear"):
		io.WriteString(w, `{"spreadsheetId":"sheet-id"}`)
	case r.Method == http.MethodGet:
		values := make([][]string, f.existing)
		for i := range values {
			values[i] = []string{"row"}
		}
		json.NewEncoder(w).Encode(map[string]any{"values": values})
	case r.Method == http.MethodPut:
		if f.failWrite {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":{"code":403,"message":"forbidden"}}`)
			return
		}
		io.WriteString(w, `{"spreadsheetId":"sheet-id","updatedRows":1}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestWriter(t *testing.T, fake *fakeSheets) *Writer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	service, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return NewWriterWithService(service, "sheet-id", zap.NewNop())
}

func testSession() *models.Session {
	s := models.NewSession("books")
	s.StartedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Pages = 1
	s.StopReason = models.StopPageBudget
	s.Append(
		models.NewRecord(
			models.Field{Name: "title", Value: "A Light in the Attic"},
			models.Field{Name: "price", Value: 51.77},
		),
		models.NewRecord(
			models.Field{Name: "title", Value: "Sharp Objects"},
		),
	)
	return s
}

func decodeValues(t *testing.T, body string) [][]any {
	t.Helper()
	var vr struct {
		Values [][]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &vr))
	return vr.Values
}

func TestWriteCreatesSheet(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	require.NoError(t, w.Write(context.Background(), testSession()))

	require.Len(t, fake.requests, 2)
	create := fake.requests[0]
	assert.Equal(t, http.MethodPost, create.Method)
	assert.Equal(t, "/v4/spreadsheets/sheet-id:batchUpdate", create.Path)
	assert.Contains(t, create.Body, `"title":"books 2026-01-02 03-04-05"`)
	assert.Contains(t, create.Body, `"index":0`)

	update := fake.requests[1]
	assert.Equal(t, http.MethodPut, update.Method)
	assert.Contains(t, update.Path, "books 2026-01-02 03-04-05")

	values := decodeValues(t, update.Body)
	require.Len(t, values, 4)
	assert.Equal(t, []any{"Site", "books", "Run", "pages=1 stop=page_budget"}, values[0])
	assert.Equal(t, []any{"title", "price"}, values[1])
	assert.Equal(t, []any{"A Light in the Attic", 51.77}, values[2])
	assert.Equal(t, []any{"Sharp Objects", ""}, values[3])
}

func TestWriteEmptySession(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	err := w.Write(context.Background(), models.NewSession("books"))
	assert.ErrorIs(t, err, sink.ErrEmptySession)
	assert.Empty(t, fake.requests)
}

func TestWriteFailureIsWriteError(t *testing.T) {
	fake := &fakeSheets{failWrite: true}
	w := newTestWriter(t, fake)

	err := w.Write(context.Background(), testSession())

	var we *sink.WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "sheets", we.Sink)
	assert.Equal(t, "sheet-id", we.Target)
}

func TestWriteSessionClearsFirst(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	require.NoError(t, w.WriteSession(context.Background(), testSession(), true))

	require.Len(t, fake.requests, 2)
	assert.True(t, strings.HasSuffix(fake.requests[0].Path, ":clear"))
	values := decodeValues(t, fake.requests[1].Body)
	require.Len(t, values, 3)
	assert.Equal(t, []any{"title", "price"}, values[0])
}

func TestAppendSession(t *testing.T) {
	fake := &fakeSheets{existing: 5}
	w := newTestWriter(t, fake)

	require.NoError(t, w.AppendSession(context.Background(), testSession()))

	require.Len(t, fake.requests, 2)
	assert.Equal(t, http.MethodGet, fake.requests[0].Method)
	assert.True(t, strings.HasSuffix(fake.requests[1].Path, "Sheet1!A6"))
	values := decodeValues(t, fake.requests[1].Body)
	assert.Len(t, values, 2)
}

func TestWriteModes(t *testing.T) {
	tests := []struct {
		mode        string
		firstSuffix string
		firstMethod string
	}{
		{"", ":batchUpdate", http.MethodPost},
		{ModeNew, ":batchUpdate", http.MethodPost},
		{ModeOverwrite, "Sheet1!A1:clear", http.MethodPost},
		{ModeAppend, "Sheet1!A:A", http.MethodGet},
	}
	for _, tt := range tests {
		t.Run("mode "+tt.mode, func(t *testing.T) {
			fake := &fakeSheets{existing: 3}
			w := newTestWriter(t, fake)
			require.NoError(t, w.SetMode(tt.mode))

			require.NoError(t, w.Write(context.Background(), testSession()))

			require.Len(t, fake.requests, 2)
			assert.Equal(t, tt.firstMethod, fake.requests[0].Method)
			assert.True(t, strings.HasSuffix(fake.requests[0].Path, tt.firstSuffix), fake.requests[0].Path)
			assert.Equal(t, http.MethodPut, fake.requests[1].Method)
		})
	}
}

func TestSetModeUnknown(t *testing.T) {
	w := newTestWriter(t, &fakeSheets{})
	assert.Error(t, w.SetMode("replace"))
}

func TestCreateSheetTruncatesOnRunes(t *testing.T) {
	fake := &fakeSheets{}
	w := newTestWriter(t, fake)

	name, _, err := w.CreateSheetAndWriteSession(context.Background(), strings.Repeat("£", 150), testSession(), "")
	require.NoError(t, err)

	assert.Equal(t, strings.Repeat("£", 100), name)
	assert.True(t, utf8.ValidString(name))
	assert.Contains(t, fake.requests[0].Body, strings.Repeat("£", 100))
}

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"books 2026-01-02", "books 2026-01-02"},
		{"a/b\\c?d*e[f]g:h", "a_b_c_d_e_f_g_h"},
		{"it's", "it_s"},
		{"   ", "Sheet1"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeSheetName(tt.input))
		})
	}
}

func TestExtractSpreadsheetID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://docs.google.com/spreadsheets/d/abc123/edit", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123?x=1", "abc123"},
		{"https://example.com/", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSpreadsheetID(tt.url))
		})
	}
}

func TestNewWriterCredentialValidation(t *testing.T) {
	t.Setenv(CredentialsEnv, "")
	_, err := NewWriter(context.Background(), "id", "", nil)
	assert.Error(t, err)

	t.Setenv(CredentialsEnv, `{"type":"authorized_user"}`)
	_, err = NewWriter(context.Background(), "id", "", nil)
	assert.Error(t, err)

	t.Setenv(CredentialsEnv, "not json")
	_, err = NewWriter(context.Background(), "id", "", nil)
	assert.Error(t, err)
}
