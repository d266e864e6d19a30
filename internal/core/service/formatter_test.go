package service

import (
	"sagiri/internal/core/domain"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPage_Navigation(t *testing.T) {
	entries := []domain.Entry{{Title: "Cowboy Bebop", ItemID: 1}, {Title: "Trigun", ItemID: 6}}

	tests := []struct {
		name     string
		page     domain.Page
		wantNav  []domain.Button
		wantRows int
	}{
		{
			name:     "neither cursor renders only item buttons",
			page:     domain.Page{Entries: entries},
			wantNav:  nil,
			wantRows: 2,
		},
		{
			name:     "next only",
			page:     domain.Page{Next: int64Ptr(10), Entries: entries},
			wantNav:  []domain.Button{{Label: "Next »", Payload: "o:7:10"}},
			wantRows: 3,
		},
		{
			name:     "previous only",
			page:     domain.Page{Offset: 10, Previous: int64Ptr(0), Entries: entries},
			wantNav:  []domain.Button{{Label: "« Prev", Payload: "o:7:0"}},
			wantRows: 3,
		},
		{
			name:     "both cursors",
			page:     domain.Page{Offset: 10, Previous: int64Ptr(0), Next: int64Ptr(20), Entries: entries},
			wantNav:  []domain.Button{{Label: "« Prev", Payload: "o:7:0"}, {Label: "Next »", Payload: "o:7:20"}},
			wantRows: 3,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, buttons := FormatPage(7, tc.page)
			require.Len(t, buttons, tc.wantRows)

			for i := range entries {
				require.Len(t, buttons[i], 1)
				assert.Equal(t, entries[i].Title, buttons[i][0].Label)

				action, err := domain.ParseAction(buttons[i][0].Payload)
				require.NoError(t, err)
				assert.Equal(t, domain.Detail, action.Kind)
				assert.Equal(t, int64(7), action.CatalogID)
				assert.Equal(t, entries[i].ItemID, action.Param)
				require.NotNil(t, action.Origin)
				assert.Equal(t, tc.page.Offset, *action.Origin)
			}

			if tc.wantNav != nil {
				assert.Equal(t, tc.wantNav, buttons[len(buttons)-1])
			}
		})
	}
}

func TestFormatPage_Text(t *testing.T) {
	text, buttons := FormatPage(7, domain.Page{
		Offset:  10,
		Entries: []domain.Entry{{Title: "Kaguya <3 & co", ItemID: 1}},
	})

	assert.Equal(t, "<b>Anime library</b> (11-11)\n\n11. Kaguya &lt;3 &amp; co", text)
	assert.Equal(t, "Kaguya <3 & co", buttons[0][0].Label)

	text, buttons = FormatPage(7, domain.Page{})
	assert.Equal(t, "<b>Anime library</b>\n\nNo entries.", text)
	assert.Empty(t, buttons)
}

func TestFormatPage_TruncatesLabelNotPayload(t *testing.T) {
	long := strings.Repeat("長", 100)

	_, buttons := FormatPage(7, domain.Page{Entries: []domain.Entry{{Title: long, ItemID: 123456789}}})

	label := buttons[0][0].Label
	assert.Equal(t, MaxLabelLength, utf8.RuneCountInString(label))
	assert.True(t, strings.HasSuffix(label, "…"))
	assert.Equal(t, "d:7:123456789:0", buttons[0][0].Payload)
}

func TestFormatDetail(t *testing.T) {
	item := domain.DetailItem{
		ID:            1,
		Title:         "Mushishi",
		Subtype:       "TV",
		Status:        "finished",
		EpisodeCount:  26,
		AverageRating: "87.1",
		StartDate:     "2005-10-23",
		Progress:      3,
		LibraryStatus: "current",
		Synopsis:      "Ginko <travels>.",
		Related: []domain.Related{
			{ID: 2, Title: "Mushishi Special", Role: "side_story"},
		},
	}

	t.Run("with known origin", func(t *testing.T) {
		text, buttons := FormatDetail(7, int64Ptr(20), item)

		assert.Equal(t, "<b>Mushishi</b>\n<i>TV · finished</i>\nEpisodes: 26\nRating: 87.1\n"+
			"Aired: 2005-10-23\nProgress: 3/26 (current)\n\nGinko &lt;travels&gt;.", text)
		assert.Equal(t, [][]domain.Button{
			{{Label: "Mushishi Special (side story)", Payload: "d:7:2:20"}},
			{{Label: "« Back", Payload: "o:7:20"}},
		}, buttons)
	})

	t.Run("without origin omits back", func(t *testing.T) {
		_, buttons := FormatDetail(7, nil, item)

		assert.Equal(t, [][]domain.Button{
			{{Label: "Mushishi Special (side story)", Payload: "d:7:2"}},
		}, buttons)
	})

	t.Run("minimal item", func(t *testing.T) {
		text, buttons := FormatDetail(7, nil, domain.DetailItem{ID: 3, Title: "Untitled", LibraryStatus: "planned"})

		assert.Equal(t, "<b>Untitled</b>\nProgress: 0/? (planned)\n", text)
		assert.Empty(t, buttons)
	})
}

func TestFormatDetail_LongSynopsisFitsMessageLimit(t *testing.T) {
	item := domain.DetailItem{Title: "Long", Synopsis: strings.Repeat("a&b ", 3000)}

	text, _ := FormatDetail(7, nil, item)

	assert.LessOrEqual(t, utf8.RuneCountInString(text), MaxMessageLength)
	assert.True(t, strings.HasSuffix(text, "…"))
	assert.NotContains(t, text[len(text)-10:], "&am…")
}

func TestEscapeWithin(t *testing.T) {
	assert.Equal(t, "abc", escapeWithin("abc", 3))
	assert.Equal(t, "a…", escapeWithin("abc", 2))
	assert.Equal(t, "&lt;…", escapeWithin("<<", 5))
	assert.Equal(t, "", escapeWithin("abc", 0))
}

func TestFormatPage_MissingTitleGetsPlaceholder(t *testing.T) {
	text, buttons := FormatPage(7, domain.Page{Entries: []domain.Entry{{Title: "", ItemID: 42}, {Title: "  ", ItemID: 43}}})

	require.Len(t, buttons, 2)
	assert.Equal(t, "#42", buttons[0][0].Label)
	assert.Equal(t, "#43", buttons[1][0].Label)
	assert.Contains(t, text, "1. #42")
}

func TestFormatDetail_RelatedWithoutTitleGetsPlaceholder(t *testing.T) {
	item := domain.DetailItem{
		ID:      1,
		Related: []domain.Related{{ID: 2, Role: "side_story"}, {ID: 3}},
	}

	text, buttons := FormatDetail(7, nil, item)

	require.Len(t, buttons, 2)
	assert.Equal(t, "#2 (side story)", buttons[0][0].Label)
	assert.Equal(t, "#3", buttons[1][0].Label)
	for _, row := range buttons {
		for _, button := range row {
			assert.NotEmpty(t, button.Label)
		}
	}
	assert.True(t, strings.HasPrefix(text, "<b>#1</b>"))
}
