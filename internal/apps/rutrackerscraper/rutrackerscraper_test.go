package rutrackerscraper

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const samplePage = `
<html><body>
<div id="search-results">
  <table><tbody>
    <tr data-topic_id="12345">
      <td><div class="t-title">Acme Sounds - Pack Vol 1 FLAC</div>
      <div class="t-tags"><span class="tg">house</span><span class="tg">techno</span></div></td>
      <td class="number-format">42</td>
    </tr>
  </tbody></table>
</div>
</body></html>
`

func TestParseResultRows(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(samplePage))
	if err != nil {
		t.Fatal(err)
	}
	results := parseResultRows(doc)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.SiteID != "12345" {
		t.Errorf("SiteID = %q", r.SiteID)
	}
	if r.Name != "Acme Sounds - Pack Vol 1 FLAC" {
		t.Errorf("Name = %q", r.Name)
	}
	if r.DownloadCount != "42" {
		t.Errorf("DownloadCount = %q", r.DownloadCount)
	}
	want := []string{"house", "techno"}
	if len(r.Tags) != len(want) || r.Tags[0] != want[0] || r.Tags[1] != want[1] {
		t.Errorf("Tags = %v, want %v", r.Tags, want)
	}
}
