// Package lastfm implements the lastfm worker (spec §4.4), Last.fm's
// counterpart to discogs: same query-variant/duration-validation contract
// via internal/metadataapi, a different HTTP API underneath. Grounded on
// original_source's interfaces/api/LastFM.py (pylast-backed client,
// api_key+shared_secret secret shape, 1s throttle) translated to a direct
// REST call against Last.fm's album.search endpoint.
package lastfm

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

const searchEndpoint = "https://ws.audioscrobbler.com/2.0/"

// minInterval is the 1s Last.fm minimum inter-call interval (spec §5).
const minInterval = 1 * time.Second

// Credentials carries the Last.fm secret contract (spec §6:
// api_key + shared_secret).
type Credentials struct {
	UserAgent    string
	APIKey       string
	SharedSecret string
}

type httpClient struct {
	client *apiclient.Client
	creds  Credentials
}

// NewSearchClient builds a throttled, retrying Last.fm search client,
// singleton per worker process per spec §5.
func NewSearchClient(creds Credentials) metadataapi.SearchClient {
	return &httpClient{
		client: apiclient.NewClient(minInterval, apiclient.Retry{Max: 3, BackoffMs: 1000}),
		creds:  creds,
	}
}

type albumSearchResponse struct {
	Results struct {
		AlbumMatches struct {
			Album []struct {
				Name   string `json:"name"`
				Artist string `json:"artist"`
			} `json:"album"`
		} `json:"albummatches"`
	} `json:"results"`
}

func (c *httpClient) Search(ctx context.Context, variant apiclient.QueryArgs, title string) ([]metadataapi.Release, error) {
	q := url.Values{}
	q.Set("method", "album.search")
	q.Set("album", title)
	q.Set("api_key", c.creds.APIKey)
	q.Set("format", "json")
	if artist, ok := variant["artist"]; ok {
		q.Set("artist", artist)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.creds.UserAgent)

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lastfm: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lastfm: status %d", resp.StatusCode)
	}

	var parsed albumSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("lastfm: decode: %w", err)
	}

	releases := make([]metadataapi.Release, 0, len(parsed.Results.AlbumMatches.Album))
	for _, a := range parsed.Results.AlbumMatches.Album {
		releases = append(releases, metadataapi.Release{Title: a.Name, Artist: a.Artist})
	}
	return releases, nil
}

// App implements the lastfm worker.
type App struct {
	Client metadataapi.SearchClient
	Log    *zap.SugaredLogger
}

func NewApp(creds Credentials, log *zap.SugaredLogger) *App {
	return &App{Client: NewSearchClient(creds), Log: log}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	cname, _ := t.Args["cname"].(string)
	if cname == "" {
		return t.Fail(fmt.Errorf("lastfm: missing cname"))
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
		return t.Fail(fmt.Errorf("lastfm: no verifiable match for %q", cname))
	}

	t.AddResult("releases", match)
	return t.Succeed()
}
