package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sagiri/internal/core/domain"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "123:abc"

type capturedRequest struct {
	method string
	path   string
	query  url.Values
}

func newTestClient(t *testing.T, body string) (*Client, *capturedRequest) {
	t.Helper()

	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, testToken, time.Second)
	require.NoError(t, err)

	return c, captured
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      models.User
		wantErrIs error
	}{
		{
			name: "ok with result",
			body: `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"sagiri"}}`,
			want: models.User{ID: 42, IsBot: true, FirstName: "sagiri"},
		},
		{
			name:      "error with description",
			body:      `{"ok":false,"error_code":401,"description":"Unauthorized"}`,
			wantErrIs: domain.ErrRemote,
		},
		{
			name:      "ok without result",
			body:      `{"ok":true}`,
			wantErrIs: domain.ErrProtocolViolation,
		},
		{
			name:      "ok with null result",
			body:      `{"ok":true,"result":null}`,
			wantErrIs: domain.ErrProtocolViolation,
		},
		{
			name:      "error without description",
			body:      `{"ok":false}`,
			wantErrIs: domain.ErrProtocolViolation,
		},
		{
			name:      "empty object",
			body:      `{}`,
			wantErrIs: domain.ErrProtocolViolation,
		},
		{
			name:      "not json",
			body:      `<html>Bad Gateway</html>`,
			wantErrIs: domain.ErrTransport,
		},
		{
			name:      "result of wrong type",
			body:      `{"ok":true,"result":"nope"}`,
			wantErrIs: domain.ErrTransport,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeEnvelope[models.User]("getMe", []byte(tc.body))

			if tc.wantErrIs != nil {
				require.ErrorIs(t, err, tc.wantErrIs)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecodeEnvelope_RemoteErrorCarriesDescription(t *testing.T) {
	_, err := decodeEnvelope[bool]("sendMessage", []byte(`{"ok":false,"description":"d"}`))

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "d", remoteErr.Description)
}

func TestDecodeEnvelope_ViolationNamesInvariant(t *testing.T) {
	_, err := decodeEnvelope[bool]("setWebhook", []byte(`{"ok":true}`))
	assert.EqualError(t, err, "protocol violation: setWebhook: ok without result")

	_, err = decodeEnvelope[bool]("setWebhook", []byte(`{"ok":false}`))
	assert.EqualError(t, err, "protocol violation: setWebhook: error without description")
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	c, err := NewClient(srv.URL, testToken, time.Second)
	require.NoError(t, err)

	_, err = c.GetMe(t.Context())
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.NotContains(t, err.Error(), testToken)
}

func TestClient_GetMe(t *testing.T) {
	c, captured := newTestClient(t, `{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"sagiri","username":"sagiri_bot"}}`)

	me, err := c.GetMe(t.Context())
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.method)
	assert.Equal(t, "/bot"+testToken+"/getMe", captured.path)
	assert.Equal(t, "sagiri_bot", me.Username)
}

func intPtr(v int) *int {
	return &v
}

func TestClient_SetWebhook(t *testing.T) {
	tests := []struct {
		name            string
		maxConnections  *int
		allowedUpdates  []string
		wantMaxConns    string
		wantHasMaxConns bool
		wantUpdates     string
		wantHasUpdates  bool
	}{
		{
			name: "both absent",
		},
		{
			name:            "max connections only",
			maxConnections:  intPtr(40),
			wantMaxConns:    "40",
			wantHasMaxConns: true,
		},
		{
			name:           "allowed updates only",
			allowedUpdates: []string{"message", "callback_query"},
			wantUpdates:    `["message","callback_query"]`,
			wantHasUpdates: true,
		},
		{
			name:            "both present",
			maxConnections:  intPtr(1),
			allowedUpdates:  []string{"message"},
			wantMaxConns:    "1",
			wantHasMaxConns: true,
			wantUpdates:     `["message"]`,
			wantHasUpdates:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, captured := newTestClient(t, `{"ok":true,"result":true,"description":"Webhook was set"}`)

			ok, err := c.SetWebhook(t.Context(), testToken, "https://bot.example.org/", tc.maxConnections,
				tc.allowedUpdates)
			require.NoError(t, err)
			assert.True(t, ok)

			assert.Equal(t, "/bot"+testToken+"/setWebhook", captured.path)
			assert.Equal(t, "https://bot.example.org/api/tg/"+testToken+"/", captured.query.Get("url"))

			assert.Equal(t, tc.wantHasMaxConns, captured.query.Has("max_connections"))
			assert.Equal(t, tc.wantMaxConns, captured.query.Get("max_connections"))
			assert.Equal(t, tc.wantHasUpdates, captured.query.Has("allowed_updates"))
			assert.Equal(t, tc.wantUpdates, captured.query.Get("allowed_updates"))
		})
	}
}

func TestClient_SendMessage(t *testing.T) {
	c, captured := newTestClient(t, `{"ok":true,"result":{"message_id":5,"chat":{"id":100,"type":"private"},"text":"hi"}}`)

	buttons := [][]domain.Button{
		{{Label: "Trigun", Payload: "d:7:6:0"}},
		{{Label: "« Prev", Payload: "o:7:0"}, {Label: "Next »", Payload: "o:7:20"}},
	}

	msg, err := c.SendMessage(t.Context(), 100, "hi", domain.ParseModeHTML, buttons)
	require.NoError(t, err)
	assert.Equal(t, domain.Message{ID: 5, ChatID: 100, Text: "hi"}, msg)

	assert.Equal(t, "/bot"+testToken+"/sendMessage", captured.path)
	assert.Equal(t, "100", captured.query.Get("chat_id"))
	assert.Equal(t, "hi", captured.query.Get("text"))
	assert.Equal(t, "HTML", captured.query.Get("parse_mode"))

	var markup models.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(captured.query.Get("reply_markup")), &markup))
	assert.Equal(t, KeyboardMarkup(buttons), markup)
	assert.Equal(t, "o:7:20", markup.InlineKeyboard[1][1].CallbackData)
}

func TestClient_SendMessagePlain(t *testing.T) {
	c, captured := newTestClient(t, `{"ok":true,"result":{"message_id":6,"chat":{"id":100,"type":"private"}}}`)

	_, err := c.SendMessage(t.Context(), 100, "Unknown command.", domain.ParseModeNone, nil)
	require.NoError(t, err)

	assert.False(t, captured.query.Has("parse_mode"))
	assert.False(t, captured.query.Has("reply_markup"))
}

func TestClient_SendMessageRemoteError(t *testing.T) {
	c, _ := newTestClient(t, `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`)

	_, err := c.SendMessage(t.Context(), 100, "hi", domain.ParseModeNone, nil)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 400, remoteErr.Code)
	assert.Equal(t, "Bad Request: chat not found", remoteErr.Description)
}

func TestClient_EditMessageAndKeyboard(t *testing.T) {
	c, captured := newTestClient(t, `{"ok":true,"result":{"message_id":55,"chat":{"id":100,"type":"private"},"text":"page"}}`)

	buttons := [][]domain.Button{{{Label: "« Back", Payload: "o:7:0"}}}
	msg, err := c.EditMessageAndKeyboard(t.Context(), 55, 100, "page", domain.ParseModeHTML, buttons)
	require.NoError(t, err)
	assert.Equal(t, domain.Message{ID: 55, ChatID: 100, Text: "page"}, msg)

	assert.Equal(t, "/bot"+testToken+"/editMessageText", captured.path)
	assert.Equal(t, "55", captured.query.Get("message_id"))
	assert.Equal(t, "100", captured.query.Get("chat_id"))

	var markup models.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(captured.query.Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "« Back", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "o:7:0", markup.InlineKeyboard[0][0].CallbackData)
}

func TestClient_AnswerCallbackQuery(t *testing.T) {
	c, captured := newTestClient(t, `{"ok":true,"result":true}`)

	require.NoError(t, c.AnswerCallbackQuery(t.Context(), "cb-1"))
	assert.Equal(t, "/bot"+testToken+"/answerCallbackQuery", captured.path)
	assert.Equal(t, "cb-1", captured.query.Get("callback_query_id"))
}

func TestWebhookURL(t *testing.T) {
	assert.Equal(t, "https://a.org/api/tg/t/", WebhookURL("https://a.org", "t"))
	assert.Equal(t, "https://a.org/api/tg/t/", WebhookURL("https://a.org/", "t"))
}
