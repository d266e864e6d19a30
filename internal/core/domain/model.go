package domain

// User maps a Telegram account to its Kitsu catalog identity.
type User struct {
	TelegramID int64
	CatalogID  int64
}

type Entry struct {
	Title  string
	ItemID int64
}

// Page is one slice of a user's library. A nil cursor means there is no page in that direction.
type Page struct {
	Offset   int64
	Previous *int64
	Next     *int64
	Entries  []Entry
}

type Related struct {
	ID    int64
	Title string
	Role  string
}

type DetailItem struct {
	ID            int64
	Title         string
	Subtype       string
	Status        string
	Synopsis      string
	StartDate     string
	AverageRating string
	EpisodeCount  int
	Progress      int
	LibraryStatus string
	Related       []Related
}

type ParseMode string

const (
	ParseModeNone ParseMode = ""
	ParseModeHTML ParseMode = "HTML"
)

// Button is an inline keyboard button carrying an encoded action payload.
type Button struct {
	Label   string
	Payload string
}

// Message is a message as the bot API returned it after a send or edit.
type Message struct {
	ID     int
	ChatID int64
	Text   string
}

// Update is an inbound text message. Zero IDs mean the field was absent on the wire.
type Update struct {
	ChatID   int64
	SenderID int64
	Text     string
}

// Origin identifies the message a callback button was pressed on.
type Origin struct {
	ChatID    int64
	MessageID int
}

type Callback struct {
	ID       string
	SenderID int64
	Data     string
	Origin   *Origin
}
