// Package rutrackerscraper implements the rutracker_scraper worker (spec
// §4.4): scrape rutracker.org's search results for a cname and record the
// matching torrent listings. Grounded on original_source's
// interfaces/scrapers/RuTracker.py (the query URL shape, and the
// search-results table -> tr rows -> name/tags/download_count/site_id
// extraction) and interfaces/web/html_parser/Rutracker.py, translated from
// BeautifulSoup's find()/find_all() to golang.org/x/net/html's tree walk
// (the pack's only HTML-parsing dependency).
package rutrackerscraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sonicat/sonicat/internal/apiclient"
	"github.com/sonicat/sonicat/internal/task"
)

const searchURLTemplate = "https://rutracker.org/forum/tracker.php?nm=%s"

// minInterval throttles scrape requests the same way spec §5 throttles API
// clients, protecting the target site from a retry storm.
const minInterval = 3 * time.Second

// Result is one matching torrent listing.
type Result struct {
	Name           string   `json:"name"`
	SiteID         string   `json:"site_id"`
	DownloadCount  string   `json:"download_count"`
	Tags           []string `json:"tags,omitempty"`
}

// App implements the rutracker_scraper worker.
type App struct {
	Client *apiclient.Client
	Log    *zap.SugaredLogger
}

func NewApp(log *zap.SugaredLogger) *App {
	return &App{
		Client: apiclient.NewClient(minInterval, apiclient.Retry{Max: 2, BackoffMs: 2000}),
		Log:    log,
	}
}

func (a *App) LoadCatalogReplicas(ctx context.Context) error { return nil }

// RunTask implements rutracker_scraper's search action over cname.
func (a *App) RunTask(ctx context.Context, t *task.Task) *task.Task {
	cname, _ := t.Args["cname"].(string)
	if cname == "" {
		return t.Fail(fmt.Errorf("rutracker_scraper: missing cname"))
	}
	format, _ := t.Args["format"].(string)
	if format == "" {
		format = "flac"
	}

	query := url.QueryEscape(fmt.Sprintf("%s %s", cname, format))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(searchURLTemplate, query), nil)
	if err != nil {
		return t.Fail(err)
	}

	resp, err := a.Client.Do(ctx, req)
	if err != nil {
		return t.Fail(fmt.Errorf("rutracker_scraper: request: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return t.Fail(fmt.Errorf("rutracker_scraper: status %d", resp.StatusCode))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return t.Fail(fmt.Errorf("rutracker_scraper: parse: %w", err))
	}

	results := parseResultRows(doc)
	if len(results) == 0 {
		return t.Fail(fmt.Errorf("rutracker_scraper: no results for %q", cname))
	}

	t.AddResult("results", results)
	return t.Succeed()
}

func parseResultRows(doc *html.Node) []Result {
	container := findByIDOrClass(doc, "div", "id", "search-results")
	if container == nil {
		return nil
	}
	table := findFirst(container, "table")
	if table == nil {
		return nil
	}
	tbody := findFirst(table, "tbody")
	if tbody == nil {
		tbody = table
	}

	var out []Result
	for _, row := range findAll(tbody, "tr") {
		r := Result{SiteID: attr(row, "data-topic_id")}
		if name := findByIDOrClass(row, "div", "class", "t-title"); name != nil {
			r.Name = strings.TrimSpace(textContent(name))
		}
		if r.Name == "" {
			continue
		}
		for _, td := range findAll(row, "td") {
			if hasClass(td, "number-format") {
				r.DownloadCount = strings.TrimSpace(textContent(td))
			}
		}
		if tagsWrapper := findByIDOrClass(row, "div", "class", "t-tags"); tagsWrapper != nil {
			for _, span := range findAll(tagsWrapper, "span") {
				if hasClass(span, "tg") {
					r.Tags = append(r.Tags, strings.TrimSpace(textContent(span)))
				}
			}
		}
		out = append(out, r)
	}
	return out
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findFirst(n *html.Node, tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			found = node
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == tag {
			out = append(out, node)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findByIDOrClass(n *html.Node, tag, attrName, value string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if found != nil {
			return
		}
		if node.Type == html.ElementNode && node.Data == tag {
			if attrName == "id" && attr(node, "id") == value {
				found = node
				return
			}
			if attrName == "class" && hasClass(node, value) {
				found = node
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
