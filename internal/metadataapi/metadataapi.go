// Package metadataapi holds the shared logic discogs and lastfm apps
// dispatch through: spec §4.4's progressively-broader query-variant search
// plus duration validation. Grounded on original_source's
// apps/metadata/DiscogsMetadataApp.py (process_asset: search, validate,
// record-or-fail) generalized across both metadata workers instead of
// duplicated per worker, since the two original Python apps shared the same
// shape and only differed in their API client.
package metadataapi

import (
	"context"
	"fmt"

	"github.com/sonicat/sonicat/internal/apiclient"
	"github.com/sonicat/sonicat/internal/names"
)

// Track is one track of a candidate release.
type Track struct {
	Title    string
	Ordinal  string
	Artist   string
	Duration float64 // seconds
}

// Release is a candidate match returned by a metadata API search.
type Release struct {
	Title    string
	Artist   string
	Year     string
	CoverURL string
	Country  string
	APIID    string
	Tracks   []Track
}

// SearchClient is the API-specific collaborator: run one query variant and
// return up to apiclient.MaxInspectedResults candidate releases.
type SearchClient interface {
	Search(ctx context.Context, variant apiclient.QueryArgs, title string) ([]Release, error)
}

// Find runs cname's label/title through spec §4.4's query-variant ladder
// against client, returning the first release whose track durations match
// measured within tolerance. Also retries with media-type-label-stripped
// titles, per spec §4.4.
func Find(ctx context.Context, client SearchClient, cname string, measured []float64) (*Release, error) {
	parts := names.Divide(cname)
	titles := []string{parts.Title}
	if names.HasMediaTypeLabel(parts.Title) {
		titles = append(titles, names.DropMediaTypeLabels(parts.Title))
	}

	for _, title := range titles {
		for _, variant := range apiclient.QueryVariants(parts.Label, "") {
			releases, err := client.Search(ctx, variant, title)
			if err != nil {
				return nil, fmt.Errorf("metadataapi: search: %w", err)
			}
			if len(releases) > apiclient.MaxInspectedResults {
				releases = releases[:apiclient.MaxInspectedResults]
			}
			for _, r := range releases {
				candidate := make([]float64, len(r.Tracks))
				for i, t := range r.Tracks {
					candidate[i] = t.Duration
				}
				if apiclient.DurationsMatch(measured, candidate) {
					match := r
					return &match, nil
				}
			}
		}
	}
	return nil, nil
}
