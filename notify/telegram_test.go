package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"page-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBotAPI struct {
	mu   sync.Mutex
	sent []map[string]string
}

func (f *fakeBotAPI) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/botTOKEN/getMe":
		io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"scraper","username":"scraper_bot"}}`)
	case "/botTOKEN/sendMessage":
		_ = r.ParseForm()
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{
			"chat_id": r.PostForm.Get("chat_id"),
			"text":    r.PostForm.Get("text"),
		})
		f.mu.Unlock()
		io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func newTestTelegram(t *testing.T, fake *fakeBotAPI, token string) (*Telegram, error) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)
	return NewTelegram(token, 42, srv.URL+"/bot%s/%s", srv.Client(), zap.NewNop())
}

func finishedSession() *models.Session {
	s := models.NewSession("quotes")
	s.StartedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	s.FinishedAt = s.StartedAt.Add(12 * time.Second)
	s.Pages = 10
	s.Fetches = 10
	s.StopReason = models.StopPageBudget
	s.Errors = []error{errors.New("x")}
	s.Append(models.NewRecord(models.Field{Name: "quote", Value: "q"}))
	return s
}

func TestNotify(t *testing.T) {
	fake := &fakeBotAPI{}
	tg, err := newTestTelegram(t, fake, "TOKEN")
	require.NoError(t, err)

	require.NoError(t, tg.Notify(context.Background(), finishedSession(), "quotes_data.csv"))

	require.Len(t, fake.sent, 1)
	assert.Equal(t, "42", fake.sent[0]["chat_id"])
	assert.Contains(t, fake.sent[0]["text"], "Scrape finished: quotes")
	assert.Contains(t, fake.sent[0]["text"], "Saved to: quotes_data.csv")
}

func TestNewTelegramBadToken(t *testing.T) {
	_, err := newTestTelegram(t, &fakeBotAPI{}, "WRONG")
	assert.Error(t, err)
}

func TestNewTelegramValidation(t *testing.T) {
	_, err := NewTelegram("", 1, "", nil, nil)
	assert.Error(t, err)
	_, err = NewTelegram("token", 0, "", nil, nil)
	assert.Error(t, err)
}

func TestNotifyCancelled(t *testing.T) {
	fake := &fakeBotAPI{}
	tg, err := newTestTelegram(t, fake, "TOKEN")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tg.Notify(ctx, finishedSession(), ""))
	assert.Empty(t, fake.sent)
}

func TestSummary(t *testing.T) {
	expected := "✅ Scrape finished: quotes\n" +
		"Records: 1\n" +
		"Pages: 10 (fetches: 10)\n" +
		"Stopped: page_budget\n" +
		"Errors: 1\n" +
		"Duration: 12s\n" +
		"Saved to: quotes_data.csv"
	assert.Equal(t, expected, Summary(finishedSession(), "quotes_data.csv"))

	empty := models.NewSession("books")
	empty.StopReason = models.StopEmptyPage
	assert.Contains(t, Summary(empty, ""), "⚠️ Scrape finished: books")
	assert.NotContains(t, Summary(empty, ""), "Saved to")
}
