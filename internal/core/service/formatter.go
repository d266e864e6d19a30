package service

import (
	"fmt"
	"html"
	"sagiri/internal/core/domain"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// MaxLabelLength is the rune limit for inline button labels.
	MaxLabelLength = 64
	// MaxMessageLength is the bot API limit for message text, in runes.
	MaxMessageLength = 4096

	previousLabel = "« Prev"
	nextLabel     = "Next »"
	backLabel     = "« Back"
	ellipsis      = "…"
)

// FormatPage renders a library page as HTML text with one detail button per entry and a
// navigation row holding whichever of the previous/next buttons the page supports.
func FormatPage(catalogID int64, page domain.Page) (string, [][]domain.Button) {
	sb := &strings.Builder{}

	if len(page.Entries) == 0 {
		sb.WriteString("<b>Anime library</b>\n\nNo entries.")
	} else {
		fmt.Fprintf(sb, "<b>Anime library</b> (%d-%d)\n", page.Offset+1, page.Offset+int64(len(page.Entries)))
		for i, entry := range page.Entries {
			title := displayTitle(entry.Title, entry.ItemID)
			fmt.Fprintf(sb, "\n%d. %s", page.Offset+int64(i)+1, html.EscapeString(title))
		}
	}

	origin := page.Offset
	buttons := make([][]domain.Button, 0, len(page.Entries)+1)
	for _, entry := range page.Entries {
		title := displayTitle(entry.Title, entry.ItemID)
		button, ok := newButton(title, domain.NewDetail(catalogID, entry.ItemID, &origin))
		if ok {
			buttons = append(buttons, []domain.Button{button})
		}
	}

	var nav []domain.Button
	if page.Previous != nil {
		if button, ok := newButton(previousLabel, domain.NewOffset(catalogID, *page.Previous)); ok {
			nav = append(nav, button)
		}
	}
	if page.Next != nil {
		if button, ok := newButton(nextLabel, domain.NewOffset(catalogID, *page.Next)); ok {
			nav = append(nav, button)
		}
	}
	if len(nav) > 0 {
		buttons = append(buttons, nav)
	}

	return sb.String(), buttons
}

// FormatDetail renders a single anime. Related titles become detail buttons and, when the
// originating page offset is known, a back button returns to that page.
func FormatDetail(catalogID int64, origin *int64, item domain.DetailItem) (string, [][]domain.Button) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "<b>%s</b>\n", html.EscapeString(displayTitle(item.Title, item.ID)))

	var kind []string
	if item.Subtype != "" {
		kind = append(kind, item.Subtype)
	}
	if item.Status != "" {
		kind = append(kind, item.Status)
	}
	if len(kind) > 0 {
		fmt.Fprintf(sb, "<i>%s</i>\n", html.EscapeString(strings.Join(kind, " · ")))
	}

	if item.EpisodeCount > 0 {
		fmt.Fprintf(sb, "Episodes: %d\n", item.EpisodeCount)
	}
	if item.AverageRating != "" {
		fmt.Fprintf(sb, "Rating: %s\n", html.EscapeString(item.AverageRating))
	}
	if item.StartDate != "" {
		fmt.Fprintf(sb, "Aired: %s\n", html.EscapeString(item.StartDate))
	}
	if item.LibraryStatus != "" {
		total := "?"
		if item.EpisodeCount > 0 {
			total = fmt.Sprint(item.EpisodeCount)
		}
		fmt.Fprintf(sb, "Progress: %d/%s (%s)\n", item.Progress, total, html.EscapeString(item.LibraryStatus))
	}

	if item.Synopsis != "" {
		sb.WriteString("\n")
		budget := MaxMessageLength - utf8.RuneCountInString(sb.String())
		sb.WriteString(escapeWithin(item.Synopsis, budget))
	}

	buttons := make([][]domain.Button, 0, len(item.Related)+1)
	for _, related := range item.Related {
		label := displayTitle(related.Title, related.ID)
		if related.Role != "" {
			label = fmt.Sprintf("%s (%s)", label, strings.ReplaceAll(related.Role, "_", " "))
		}
		if button, ok := newButton(label, domain.NewDetail(catalogID, related.ID, origin)); ok {
			buttons = append(buttons, []domain.Button{button})
		}
	}

	if origin != nil {
		if button, ok := newButton(backLabel, domain.NewOffset(catalogID, *origin)); ok {
			buttons = append(buttons, []domain.Button{button})
		}
	}

	return sb.String(), buttons
}

// displayTitle stands in for a missing title, since Telegram rejects a keyboard with an
// empty button label.
func displayTitle(title string, id int64) string {
	if strings.TrimSpace(title) == "" {
		return fmt.Sprintf("#%d", id)
	}
	return title
}

func newButton(label string, action domain.Action) (domain.Button, bool) {
	payload, err := action.Encode()
	if err != nil {
		log.Warn().Err(err).Str("label", label).Msg("dropping button with unencodable payload")
		return domain.Button{}, false
	}

	return domain.Button{Label: truncateLabel(label), Payload: payload}, true
}

func truncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= MaxLabelLength {
		return label
	}

	runes := []rune(label)
	return string(runes[:MaxLabelLength-1]) + ellipsis
}

// escapeWithin HTML-escapes s, cutting it with an ellipsis so the result fits budget runes.
func escapeWithin(s string, budget int) string {
	if budget <= 0 {
		return ""
	}

	sb := &strings.Builder{}
	used := 0
	for i, r := range s {
		piece := html.EscapeString(string(r))
		n := utf8.RuneCountInString(piece)

		_, size := utf8.DecodeRuneInString(s[i:])
		reserve := 0
		if i+size < len(s) {
			reserve = 1
		}

		if used+n+reserve > budget {
			sb.WriteString(ellipsis)
			return sb.String()
		}

		sb.WriteString(piece)
		used += n
	}

	return sb.String()
}
