//go:build !integration

package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type apiCall struct {
	Method string
	Form   url.Values
}

// fakeBotAPI is an in-process Bot API. Handlers are keyed by method name; unknown
// methods answer a generic message result.
type fakeBotAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	handlers map[string]func(form url.Values) (int, string)
	server   *httptest.Server
}

func newFakeBotAPI(t *testing.T) (*fakeBotAPI, *tgbotapi.BotAPI) {
	t.Helper()
	f := &fakeBotAPI{handlers: map[string]func(url.Values) (int, string){}}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)

	bot, err := tgbotapi.NewBotAPIWithClient("TOKEN", f.server.URL+"/bot%s/%s", f.server.Client())
	if err != nil {
		t.Fatalf("NewBotAPIWithClient: %v", err)
	}
	f.reset()
	return f, bot
}

func (f *fakeBotAPI) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	method := parts[len(parts)-1]
	_ = r.ParseForm()

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Form: r.PostForm})
	h := f.handlers[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case method == "getMe":
		_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"b","username":"bot"}}`)
	case h != nil:
		status, body := h(r.PostForm)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	default:
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`)
	}
}

func (f *fakeBotAPI) handle(method string, h func(form url.Values) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeBotAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *fakeBotAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func (f *fakeBotAPI) CallsTo(method string) []apiCall {
	var out []apiCall
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func okMessage(id int) string {
	b, _ := json.Marshal(map[string]interface{}{
		"ok":     true,
		"result": map[string]interface{}{"message_id": id, "date": 0, "chat": map[string]interface{}{"id": -100, "type": "supergroup"}},
	})
	return string(b)
}

func apiError(code int, description string) (int, string) {
	b, _ := json.Marshal(map[string]interface{}{"ok": false, "error_code": code, "description": description})
	return http.StatusOK, string(b)
}
