package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sagiri/internal/core/domain"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
)

const APIURL = "https://api.telegram.org"

// Client performs Bot API calls and maps the response envelope to a result or a typed error.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

func NewClient(apiURL, token string, timeout time.Duration) (*Client, error) {
	if apiURL == "" {
		apiURL = APIURL
	}

	base, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/bot" + token + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid bot api url: %w", err)
	}

	return &Client{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description *string         `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// The bot API accepts both GET and POST, parameters travel in the query string.
func request[T any](ctx context.Context, c *Client, method string, params url.Values) (T, error) {
	var zero T

	endpoint := c.baseURL.JoinPath(method)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return zero, &domain.TransportError{Op: method, Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return zero, &domain.TransportError{Op: method, Err: redactURL(err)}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return zero, &domain.TransportError{Op: method, Err: fmt.Errorf("error reading response: %w", err)}
	}

	log.Debug().Str("method", method).Int("status", res.StatusCode).Msg("bot api response")

	return decodeEnvelope[T](method, body)
}

func decodeEnvelope[T any](method string, body []byte) (T, error) {
	var zero T

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, &domain.TransportError{Op: method, Err: fmt.Errorf("malformed response body: %w", err)}
	}

	hasResult := len(env.Result) > 0 && string(env.Result) != "null"

	switch {
	case env.OK && hasResult:
		var result T
		if err := json.Unmarshal(env.Result, &result); err != nil {
			return zero, &domain.TransportError{Op: method, Err: fmt.Errorf("malformed result: %w", err)}
		}
		return result, nil
	case !env.OK && env.Description != nil:
		return zero, &domain.RemoteError{Code: env.ErrorCode, Description: *env.Description}
	case env.OK:
		return zero, &domain.ProtocolViolationError{Reason: method + ": ok without result"}
	default:
		return zero, &domain.ProtocolViolationError{Reason: method + ": error without description"}
	}
}

// redactURL drops the request URL, which carries the bot token, from client errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// WebhookURL is the public address updates for token are delivered to.
func WebhookURL(domainURL, token string) string {
	return fmt.Sprintf("%s/api/tg/%s/", strings.TrimSuffix(domainURL, "/"), token)
}

// SetWebhook registers the webhook. maxConnections and allowedUpdates are only sent when
// non-nil, otherwise the platform defaults apply.
func (c *Client) SetWebhook(ctx context.Context, token, domainURL string, maxConnections *int,
	allowedUpdates []string) (bool, error) {
	params := url.Values{}
	params.Set("url", WebhookURL(domainURL, token))

	if maxConnections != nil {
		params.Set("max_connections", strconv.Itoa(*maxConnections))
	}

	if allowedUpdates != nil {
		updates, err := json.Marshal(allowedUpdates)
		if err != nil {
			return false, fmt.Errorf("failed to encode allowed updates: %w", err)
		}
		params.Set("allowed_updates", string(updates))
	}

	return request[bool](ctx, c, "setWebhook", params)
}

func (c *Client) GetMe(ctx context.Context) (models.User, error) {
	return request[models.User](ctx, c, "getMe", url.Values{})
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, parseMode domain.ParseMode,
	buttons [][]domain.Button) (domain.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("text", text)

	if err := setFormatting(params, parseMode, buttons); err != nil {
		return domain.Message{}, err
	}

	msg, err := request[models.Message](ctx, c, "sendMessage", params)
	if err != nil {
		return domain.Message{}, err
	}

	return toDomainMessage(msg), nil
}

func (c *Client) EditMessageAndKeyboard(ctx context.Context, messageID int, chatID int64, text string,
	parseMode domain.ParseMode, buttons [][]domain.Button) (domain.Message, error) {
	params := url.Values{}
	params.Set("chat_id", strconv.FormatInt(chatID, 10))
	params.Set("message_id", strconv.Itoa(messageID))
	params.Set("text", text)

	if err := setFormatting(params, parseMode, buttons); err != nil {
		return domain.Message{}, err
	}

	msg, err := request[models.Message](ctx, c, "editMessageText", params)
	if err != nil {
		return domain.Message{}, err
	}

	return toDomainMessage(msg), nil
}

// AnswerCallbackQuery acknowledges a button press so the client stops showing a spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	params := url.Values{}
	params.Set("callback_query_id", callbackQueryID)

	_, err := request[bool](ctx, c, "answerCallbackQuery", params)
	return err
}

func setFormatting(params url.Values, parseMode domain.ParseMode, buttons [][]domain.Button) error {
	if parseMode != domain.ParseModeNone {
		params.Set("parse_mode", string(parseMode))
	}

	if buttons == nil {
		return nil
	}

	markup, err := json.Marshal(KeyboardMarkup(buttons))
	if err != nil {
		return fmt.Errorf("failed to encode keyboard: %w", err)
	}
	params.Set("reply_markup", string(markup))

	return nil
}

// KeyboardMarkup converts button rows into an inline keyboard.
func KeyboardMarkup(buttons [][]domain.Button) models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, len(buttons))
	for i, row := range buttons {
		rows[i] = make([]models.InlineKeyboardButton, len(row))
		for j, button := range row {
			rows[i][j] = models.InlineKeyboardButton{Text: button.Label, CallbackData: button.Payload}
		}
	}

	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func toDomainMessage(msg models.Message) domain.Message {
	return domain.Message{ID: msg.ID, ChatID: msg.Chat.ID, Text: msg.Text}
}
