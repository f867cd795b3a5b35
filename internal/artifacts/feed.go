package artifacts

import (
	"encoding/xml"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/content"
	"git.home.luguber.info/inful/sitegen/internal/urlutil"
)

const (
	// FeedCollection is the conventionally-named collection the feed is
	// built from.
	FeedCollection = "posts"

	feedEntryLimit   = 10
	dateLayout       = "2006-01-02"
	pubDateLayout    = "Mon, 02 Jan 2006 15:04:05 +0000"
	descriptionLimit = 200
)

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate,omitempty"`
	Description string `xml:"description"`
}

type feedChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	LastBuildDate string     `xml:"lastBuildDate"`
	AtomLink      atomLink   `xml:"atom:link"`
	Items         []feedItem `xml:"item"`
}

type rss struct {
	XMLName   xml.Name    `xml:"rss"`
	Version   string      `xml:"version,attr"`
	AtomXmlns string      `xml:"xmlns:atom,attr"`
	Channel   feedChannel `xml:"channel"`
}

// WriteFeed emits feed.xml with the ten most recent items of the posts
// collection. An absent or empty collection is a no-op, not an error.
func WriteFeed(collections map[string][]content.Item, cfg *config.Config, now func() time.Time) (string, error) {
	posts := collections[FeedCollection]
	if len(posts) == 0 {
		slog.Info("No posts collection found for RSS feed generation, skipping")
		return "", nil
	}
	if now == nil {
		now = time.Now
	}

	sorted := sortByDateDescending(posts)
	if len(sorted) > feedEntryLimit {
		sorted = sorted[:feedEntryLimit]
	}

	doc := rss{
		Version:   "2.0",
		AtomXmlns: "http://www.w3.org/2005/Atom",
		Channel: feedChannel{
			Title:         cfg.SiteTitle,
			Link:          cfg.BaseURL,
			Description:   cfg.SiteDescription,
			LastBuildDate: now().UTC().Format(pubDateLayout),
			AtomLink: atomLink{
				Href: cfg.BaseURL + "/feed.xml",
				Rel:  "self",
				Type: "application/rss+xml",
			},
		},
	}

	for _, post := range sorted {
		link := urlutil.URL(post.item.OutputRelPath, cfg)
		entry := feedItem{
			Title:       stringField(post.item.FrontMatter, "title", "No Title"),
			Link:        link,
			GUID:        link,
			Description: description(post.item),
		}
		if post.dateValid {
			entry.PubDate = post.date.Format(pubDateLayout)
		} else {
			slog.Warn("No valid date for RSS item, omitting pubDate", "source", post.item.SourcePath)
		}
		doc.Channel.Items = append(doc.Channel.Items, entry)
	}

	feedPath := filepath.Join(cfg.OutputDir, "feed.xml")
	if err := writeXML(feedPath, doc); err != nil {
		return "", err
	}
	slog.Info("RSS feed generated", "path", feedPath, "items", len(doc.Channel.Items))
	return feedPath, nil
}

type datedItem struct {
	item      content.Item
	date      time.Time
	dateValid bool
}

// sortByDateDescending orders posts newest-first. Items with a missing or
// unparseable date sort to the oldest position; the sort is stable so ties
// keep discovery order.
func sortByDateDescending(posts []content.Item) []datedItem {
	dated := make([]datedItem, 0, len(posts))
	for _, post := range posts {
		entry := datedItem{item: post}
		if raw, ok := post.FrontMatter["date"].(string); ok {
			if parsed, err := time.Parse(dateLayout, raw); err == nil {
				entry.date = parsed
				entry.dateValid = true
			} else {
				slog.Warn("Could not parse post date", "date", raw, "source", post.SourcePath)
			}
		}
		dated = append(dated, entry)
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].date.After(dated[j].date)
	})
	return dated
}

// description prefers the front-matter description, then the first 200
// characters of the raw body with an ellipsis when truncated.
func description(item content.Item) string {
	if desc, ok := item.FrontMatter["description"].(string); ok && desc != "" {
		return desc
	}
	body := []rune(item.Body)
	if len(body) > descriptionLimit {
		return string(body[:descriptionLimit]) + "..."
	}
	return item.Body
}

func stringField(fm map[string]any, key, fallback string) string {
	if v, ok := fm[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
