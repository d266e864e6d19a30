package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command int

const (
	ListCommand Command = iota + 1
	UpdateCommand
)

func (c Command) String() string {
	switch c {
	case ListCommand:
		return "list"
	case UpdateCommand:
		return "update"
	default:
		return "unknown"
	}
}

// ParseCommand recognizes "/list" and "/update", case-insensitively and with an optional
// "@botname" suffix. Words after a slash command are ignored. Without the slash the command
// word must be the whole message, so ordinary chat text never triggers a command.
func ParseCommand(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, ErrUnknownCommand
	}

	word, slashed := strings.CutPrefix(fields[0], "/")
	if !slashed && len(fields) > 1 {
		return 0, ErrUnknownCommand
	}
	if at := strings.IndexByte(word, '@'); at >= 0 {
		word = word[:at]
	}

	switch strings.ToLower(word) {
	case "list":
		return ListCommand, nil
	case "update":
		return UpdateCommand, nil
	default:
		return 0, ErrUnknownCommand
	}
}

type ActionKind byte

const (
	Offset ActionKind = 'o'
	Detail ActionKind = 'd'
)

// MaxPayloadSize is the callback_data limit of the bot API, in bytes.
const MaxPayloadSize = 64

const payloadSeparator = ":"

var errInvalidPayload = errors.New("invalid action payload")

// Action is the state carried by an inline button. Param is the page offset for
// Offset actions and the anime id for Detail actions. Origin is the offset of the
// page a Detail view was opened from, if known.
type Action struct {
	Kind      ActionKind
	CatalogID int64
	Param     int64
	Origin    *int64
}

func NewOffset(catalogID, offset int64) Action {
	return Action{Kind: Offset, CatalogID: catalogID, Param: offset}
}

func NewDetail(catalogID, itemID int64, origin *int64) Action {
	return Action{Kind: Detail, CatalogID: catalogID, Param: itemID, Origin: origin}
}

// Encode renders the action as "o:<catalog>:<offset>" or "d:<catalog>:<item>[:<origin>]".
func (a Action) Encode() (string, error) {
	if a.Kind != Offset && a.Kind != Detail {
		return "", fmt.Errorf("%w: kind %q", errInvalidPayload, a.Kind)
	}

	parts := []string{
		string(a.Kind),
		strconv.FormatInt(a.CatalogID, 10),
		strconv.FormatInt(a.Param, 10),
	}
	if a.Kind == Detail && a.Origin != nil {
		parts = append(parts, strconv.FormatInt(*a.Origin, 10))
	}

	payload := strings.Join(parts, payloadSeparator)
	if len(payload) > MaxPayloadSize {
		return "", fmt.Errorf("%w: %d bytes exceeds limit", errInvalidPayload, len(payload))
	}

	return payload, nil
}

// ParseAction decodes a payload produced by Action.Encode.
func ParseAction(data string) (Action, error) {
	if data == "" || len(data) > MaxPayloadSize {
		return Action{}, errInvalidPayload
	}

	parts := strings.Split(data, payloadSeparator)
	if len(parts[0]) != 1 {
		return Action{}, fmt.Errorf("%w: %q", errInvalidPayload, data)
	}

	kind := ActionKind(parts[0][0])
	switch {
	case kind == Offset && len(parts) == 3:
	case kind == Detail && (len(parts) == 3 || len(parts) == 4):
	default:
		return Action{}, fmt.Errorf("%w: %q", errInvalidPayload, data)
	}

	values := make([]int64, len(parts)-1)
	for i, p := range parts[1:] {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("%w: %q", errInvalidPayload, data)
		}
		values[i] = v
	}

	action := Action{Kind: kind, CatalogID: values[0], Param: values[1]}
	if len(values) == 3 {
		action.Origin = &values[2]
	}

	return action, nil
}
