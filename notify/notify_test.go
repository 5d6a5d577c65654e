package notify

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mu     sync.Mutex
	texts  []string
	chats  []string
	failOK bool
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"trader","username":"trader_bot"}}`))
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		_ = r.ParseForm()
		f.texts = append(f.texts, r.Form.Get("text"))
		f.chats = append(f.chats, r.Form.Get("chat_id"))
		if f.failOK {
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	default:
		http.NotFound(w, r)
	}
}

func newTelegram(t *testing.T, f *fakeTelegram, chatID int64) *Telegram {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	tg, err := NewTelegramWithClient("123:abc", srv.URL+"/bot%s/%s", chatID, srv.Client(), zerolog.Nop())
	require.NoError(t, err)
	return tg
}

func TestTelegram_Send(t *testing.T) {
	t.Parallel()

	f := &fakeTelegram{}
	tg := newTelegram(t, f, 42)

	assert.True(t, tg.Send("[v5] sell signal(STOP_LOSS): 005930.KS"))
	require.Len(t, f.texts, 1)
	assert.Equal(t, "[v5] sell signal(STOP_LOSS): 005930.KS", f.texts[0])
	assert.Equal(t, "42", f.chats[0])
}

func TestTelegram_TruncatesLongMessages(t *testing.T) {
	t.Parallel()

	f := &fakeTelegram{}
	tg := newTelegram(t, f, 42)

	assert.True(t, tg.Send(strings.Repeat("가", 500)))
	require.Len(t, f.texts, 1)
	assert.Equal(t, MaxLen, len([]rune(f.texts[0])))
}

func TestTelegram_FailureIsReportedNotRaised(t *testing.T) {
	t.Parallel()

	f := &fakeTelegram{failOK: true}
	tg := newTelegram(t, f, 42)
	assert.False(t, tg.Send("hello"))

	noChat := newTelegram(t, &fakeTelegram{}, 0)
	assert.False(t, noChat.Send("hello"))

	var nilTG *Telegram
	assert.False(t, nilTG.Send("hello"))
}

func TestTelegram_RequiresToken(t *testing.T) {
	t.Parallel()

	_, err := NewTelegramWithClient("", "http://127.0.0.1/bot%s/%s", 1, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestLogAndNull(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLog(zerolog.New(&buf))
	assert.True(t, l.Send("take profit on 000660.KS"))
	assert.Contains(t, buf.String(), "take profit on 000660.KS")

	assert.False(t, Null{}.Send("dropped"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	assert.IsType(t, Null{}, New(config.NotifierConfig{Type: "none"}, zerolog.Nop()))
	assert.IsType(t, &Log{}, New(config.NotifierConfig{Type: "log"}, zerolog.Nop()))
	assert.IsType(t, &Log{}, New(config.NotifierConfig{}, zerolog.Nop()))
	// no token: falls back to the log notifier without touching the network
	assert.IsType(t, &Log{}, New(config.NotifierConfig{Type: "telegram"}, zerolog.Nop()))
}
