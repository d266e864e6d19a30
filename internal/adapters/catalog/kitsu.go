package catalog

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

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	APIURL          = "https://kitsu.app/api/edge"
	DefaultPageSize = 10
	contentType     = "application/vnd.api+json"
)

// Kitsu reads anime libraries from the Kitsu JSON:API.
type Kitsu struct {
	baseURL  string
	pageSize int
	client   *http.Client
}

func NewKitsu(baseURL string, pageSize int, timeout time.Duration) *Kitsu {
	if baseURL == "" {
		baseURL = APIURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Kitsu{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

var errNoData = errors.New("Kitsu response has no data")

type document struct {
	Data     json.RawMessage `json:"data"`
	Included []resource      `json:"included"`
	Links    struct {
		Prev string `json:"prev"`
		Next string `json:"next"`
	} `json:"links"`
}

type resource struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    attributes              `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type attributes struct {
	CanonicalTitle string `json:"canonicalTitle"`
	Subtype        string `json:"subtype"`
	Status         string `json:"status"`
	Synopsis       string `json:"synopsis"`
	StartDate      string `json:"startDate"`
	AverageRating  string `json:"averageRating"`
	EpisodeCount   int    `json:"episodeCount"`
	Progress       int    `json:"progress"`
	Role           string `json:"role"`
}

type relationship struct {
	Data json.RawMessage `json:"data"`
}

type identifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// target returns the single resource a to-one relationship points at.
func (r resource) target(name string) (identifier, bool) {
	rel, ok := r.Relationships[name]
	if !ok || len(rel.Data) == 0 || rel.Data[0] != '{' {
		return identifier{}, false
	}

	var id identifier
	if err := json.Unmarshal(rel.Data, &id); err != nil {
		return identifier{}, false
	}

	return id, id.ID != ""
}

func (k *Kitsu) FetchPage(ctx context.Context, catalogID, offset int64) (domain.Page, error) {
	query := url.Values{}
	query.Set("filter[userId]", strconv.FormatInt(catalogID, 10))
	query.Set("filter[kind]", "anime")
	query.Set("include", "anime")
	query.Set("sort", "-updatedAt")
	query.Set("page[limit]", strconv.Itoa(k.pageSize))
	query.Set("page[offset]", strconv.FormatInt(offset, 10))

	var doc document
	if err := k.get(ctx, "/library-entries", query, &doc); err != nil {
		return domain.Page{}, err
	}

	var entries []resource
	if err := json.Unmarshal(doc.Data, &entries); err != nil {
		return domain.Page{}, fmt.Errorf("error unmarshalling Kitsu library entries: %w", err)
	}

	titles := make(map[string]string, len(doc.Included))
	for _, inc := range doc.Included {
		if inc.Type == "anime" {
			titles[inc.ID] = inc.Attributes.CanonicalTitle
		}
	}

	page := domain.Page{
		Offset:   offset,
		Previous: cursor(doc.Links.Prev),
		Next:     cursor(doc.Links.Next),
		Entries:  make([]domain.Entry, 0, len(entries)),
	}

	for _, entry := range entries {
		anime, ok := entry.target("anime")
		if !ok {
			log.Debug().Str("entry", entry.ID).Msg("library entry without anime, skipping")
			continue
		}

		id, err := strconv.ParseInt(anime.ID, 10, 64)
		if err != nil {
			return domain.Page{}, fmt.Errorf("invalid Kitsu anime id %q: %w", anime.ID, err)
		}

		page.Entries = append(page.Entries, domain.Entry{Title: titles[anime.ID], ItemID: id})
	}

	return page, nil
}

func (k *Kitsu) FetchDetail(ctx context.Context, catalogID, itemID int64) (domain.DetailItem, error) {
	var item domain.DetailItem
	var progress int
	var libraryStatus string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		item, err = k.fetchAnime(gctx, itemID)
		return err
	})

	g.Go(func() error {
		var err error
		progress, libraryStatus, err = k.fetchLibraryEntry(gctx, catalogID, itemID)
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.DetailItem{}, err
	}

	item.Progress = progress
	item.LibraryStatus = libraryStatus

	return item, nil
}

func (k *Kitsu) fetchAnime(ctx context.Context, itemID int64) (domain.DetailItem, error) {
	query := url.Values{}
	query.Set("include", "mediaRelationships.destination")

	var doc document
	if err := k.get(ctx, "/anime/"+strconv.FormatInt(itemID, 10), query, &doc); err != nil {
		return domain.DetailItem{}, err
	}

	if len(doc.Data) == 0 || string(doc.Data) == "null" {
		return domain.DetailItem{}, errNoData
	}

	var anime resource
	if err := json.Unmarshal(doc.Data, &anime); err != nil {
		return domain.DetailItem{}, fmt.Errorf("error unmarshalling Kitsu anime: %w", err)
	}

	item := domain.DetailItem{
		ID:            itemID,
		Title:         anime.Attributes.CanonicalTitle,
		Subtype:       anime.Attributes.Subtype,
		Status:        anime.Attributes.Status,
		Synopsis:      anime.Attributes.Synopsis,
		StartDate:     anime.Attributes.StartDate,
		AverageRating: anime.Attributes.AverageRating,
		EpisodeCount:  anime.Attributes.EpisodeCount,
	}

	titles := make(map[string]string)
	for _, inc := range doc.Included {
		if inc.Type == "anime" {
			titles[inc.ID] = inc.Attributes.CanonicalTitle
		}
	}

	for _, inc := range doc.Included {
		if inc.Type != "mediaRelationships" {
			continue
		}

		dest, ok := inc.target("destination")
		if !ok || dest.Type != "anime" {
			continue
		}

		id, err := strconv.ParseInt(dest.ID, 10, 64)
		if err != nil {
			log.Debug().Str("destination", dest.ID).Msg("invalid related anime id, skipping")
			continue
		}

		item.Related = append(item.Related, domain.Related{ID: id, Title: titles[dest.ID], Role: inc.Attributes.Role})
	}

	return item, nil
}

// fetchLibraryEntry returns the user's progress on an anime. An anime outside the library
// yields zero values without an error.
func (k *Kitsu) fetchLibraryEntry(ctx context.Context, catalogID, itemID int64) (int, string, error) {
	query := url.Values{}
	query.Set("filter[userId]", strconv.FormatInt(catalogID, 10))
	query.Set("filter[animeId]", strconv.FormatInt(itemID, 10))
	query.Set("page[limit]", "1")

	var doc document
	if err := k.get(ctx, "/library-entries", query, &doc); err != nil {
		return 0, "", err
	}

	var entries []resource
	if err := json.Unmarshal(doc.Data, &entries); err != nil {
		return 0, "", fmt.Errorf("error unmarshalling Kitsu library entry: %w", err)
	}

	if len(entries) == 0 {
		return 0, "", nil
	}

	return entries[0].Attributes.Progress, entries[0].Attributes.Status, nil
}

func (k *Kitsu) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := k.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		log.Error().Err(err).Msg("error creating GET request for Kitsu")
		return err
	}

	req.Header.Add("Accept", contentType)

	res, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("error executing Kitsu request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error reading Kitsu response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected Kitsu status code %d: %s", res.StatusCode, errorDetail(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("error unmarshalling Kitsu response: %w", err)
	}

	return nil
}

// errorDetail extracts the first JSON:API error title, falling back to the raw body.
func errorDetail(body []byte) string {
	var doc struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}

	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}

	if doc.Errors[0].Detail != "" {
		return doc.Errors[0].Detail
	}

	return doc.Errors[0].Title
}

// cursor extracts page[offset] from a pagination link; an empty or unusable link means no page.
func cursor(link string) *int64 {
	if link == "" {
		return nil
	}

	u, err := url.Parse(link)
	if err != nil {
		return nil
	}

	raw := u.Query().Get("page[offset]")
	if raw == "" {
		return nil
	}

	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}

	return &offset
}
