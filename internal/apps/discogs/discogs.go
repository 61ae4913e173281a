// Package discogs implements the discogs worker (spec §4.4): search
// Discogs' release database for a cname's metadata, validated against
// measured track durations. Grounded on original_source's
// interfaces/api/Discogs.py (the search(title, artist, publisher, year)
// query shape and its "type":"release" constraint) and
// apps/metadata/DiscogsMetadataApp.py for the process_asset/record-or-fail
// flow, generalized here through internal/metadataapi.Find so the
// search-ladder and duration-validation logic isn't duplicated against
// lastfm's near-identical shape.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sonicat/sonicat/internal/apiclient"
	"github.com/sonicat/sonicat/internal/metadataapi"
	"github.com/sonicat/sonicat/internal/task"
)

const searchEndpoint = "https://api.discogs.com/database/search"

// minInterval is the 2s Discogs minimum inter-call interval (spec §5).
const minInterval = 2 * time.Second

// Credentials carries the Discogs secret contract (spec §6's secrets file
// shape for an api_key/shared_secret-style provider, here token-based).
type Credentials struct {
	UserAgent string
	Token     string
}

// httpClient implements metadataapi.SearchClient against Discogs' database
// search endpoint.
type httpClient struct {
	client *apiclient.Client
	creds  Credentials
}

// NewSearchClient builds a throttled, retrying Discogs search client,
// singleton per worker process per spec §5.
func NewSearchClient(creds Credentials) metadataapi.SearchClient {
	return &httpClient{
		client: apiclient.NewClient(minInterval, apiclient.Retry{Max: 3, BackoffMs: 1000}),
		creds:  creds,
	}
}

type discogsSearchResponse struct {
	Results []struct {
		Title        string `json:"title"`
		Year         string `json:"year"`
		Country      string `json:"country"`
		CoverImage   string `json:"cover_image"`
		ID           int    `json:"id"`
	} `json:"results"`
}

func (c *httpClient) Search(ctx context.Context, variant apiclient.QueryArgs, title string) ([]metadataapi.Release, error) {
	q := url.Values{}
	q.Set("type", "release")
	q.Set("q", title)
	if v, ok := variant["artist"]; ok {
		q.Set("artist", v)
	}
	if v, ok := variant["publisher"]; ok {
		q.Set("label", v)
	}
	if v, ok := variant["year"]; ok {
		q.Set("year", v)
	}
	q.Set("token", c.creds.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("discogs: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discogs: status %d", resp.StatusCode)
	}

	var parsed discogsSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("discogs: decode: %w", err)
	}

	releases := make([]metadataapi.Release, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		releases = append(releases, metadataapi.Release{
			Title:    r.Title,
			Year:     r.Year,
			Country:  r.Country,
			CoverURL: r.CoverImage,
			APIID:    fmt.Sprintf("%d", r.ID),
		})
	}
	return releases, nil
}

// App implements the discogs worker.
type App struct {
	Client metadataapi.SearchClient
	Log    *zap.SugaredLogger
}

func NewApp(creds Credentials, log *zap.SugaredLogger) *App {
	return &App{Client: NewSearchClient(creds), Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask implements discogs's search-and-validate action over (cname,
// track_durations).
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	cname, _ := t.Args["cname"].(string)
	if cname == "" {
		return t.Fail(fmt.Errorf("discogs: missing cname"))
	}
	rawDurations, _ := t.Args["track_durations"].([]any)
	measured := make([]float64, 0, len(rawDurations))
	for _, d := range rawDurations {
		if f, ok := d.(float64); ok {
			measured = append(measured, f)
		}
	}

	match, err := metadataapi.Find(ctx, a.Client, cname, measured)
	if err != nil {
		return t.Fail(err)
	}
	if match == nil {
		return t.Fail(fmt.Errorf("discogs: no verifiable match for %q", cname))
	}

	t.AddResult("releases", match)
	return t.Succeed()
}
