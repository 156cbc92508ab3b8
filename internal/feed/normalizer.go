package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"newspulse/internal/metrics"
)

// timePattern matches an embedded HH:MM:SS time of day with optional fraction
// and zone, e.g. "25:61:99.123Z" inside a larger date string.
var timePattern = regexp.MustCompile(`(\d{1,2}):(\d{1,2}):(\d{1,2})(\.\d+)?(Z|[+-]\d{2}:?\d{2})?`)

// videoPattern matches video-content paths right after the domain; those
// links are not textual articles.
var videoPattern = regexp.MustCompile(`\.com/(videos|short-videos)(/|$)`)

// istMarker is a quirk of some upstream feeds: the literal suffix means the
// wall-clock time is Indian, not a UTC+5:30 offset to convert through.
const istMarker = "GMT +5:30"

// Normalizer turns raw payload text into candidate articles. Malformed
// entries are dropped one at a time; one bad entry never aborts a batch.
type Normalizer struct {
	parser *gofeed.Parser
	zone   *time.Location // canonical display zone for stored publish times
	now    func() time.Time
}

func NewNormalizer(zone *time.Location) *Normalizer {
	return &Normalizer{
		parser: gofeed.NewParser(),
		zone:   zone,
		now:    time.Now,
	}
}

// Normalize parses every source payload of one topic. Sources are walked in
// sorted name order so the output order is reproducible for the same input;
// the near-duplicate filter's first-seen rule depends on that.
func (n *Normalizer) Normalize(topic string, payloads map[string]string) []Article {
	sources := make([]string, 0, len(payloads))
	for source := range payloads {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var result []Article
	for _, source := range sources {
		parsed, err := n.parser.ParseString(payloads[source])
		if err != nil {
			slog.Warn("skipping source, payload not parseable", "topic", topic, "source", source, "error", err)
			continue
		}

		for _, item := range parsed.Items {
			article, err := n.normalizeItem(topic, source, item)
			if err != nil {
				slog.Debug("skipping entry", "source", source, "reason", err)
				metrics.Global.AddEntriesDropped(1)
				continue
			}
			result = append(result, article)
		}
	}
	return result
}

func (n *Normalizer) normalizeItem(topic, source string, item *gofeed.Item) (Article, error) {
	if item.Published == "" {
		return Article{}, fmt.Errorf("no publish date")
	}

	published, err := n.parseWhen(item.Published)
	if err != nil {
		return Article{}, fmt.Errorf("invalid date %q: %w", item.Published, err)
	}

	// Future publish times are a feed bug, not valid data. The boundary is
	// exclusive: an entry stamped exactly "now" is kept.
	if published.After(n.now()) {
		return Article{}, fmt.Errorf("future publish date %s", published)
	}
	published = published.In(n.zone)

	if item.Title == "" || item.Link == "" {
		return Article{}, fmt.Errorf("missing title or link")
	}

	link, err := stripFragment(item.Link)
	if err != nil {
		return Article{}, fmt.Errorf("bad link %q: %w", item.Link, err)
	}
	if videoPattern.MatchString(link) {
		return Article{}, fmt.Errorf("video link %q", link)
	}

	return Article{
		Title:     item.Title,
		Link:      link,
		Published: published,
		Image:     extractImage(item),
		Source:    source,
		Topic:     topic,
	}, nil
}

// parseWhen repairs the raw timestamp and parses it. Zoneless strings are
// read as UTC, matching the upstream convention.
func (n *Normalizer) parseWhen(raw string) (time.Time, error) {
	raw = RepairTimeComponents(raw)

	if strings.Contains(raw, istMarker) {
		cleaned := strings.TrimSpace(strings.Replace(raw, istMarker, "", 1))
		ist, err := time.LoadLocation("Asia/Kolkata")
		if err != nil {
			return time.Time{}, err
		}
		return dateparse.ParseIn(cleaned, ist)
	}

	return dateparse.ParseAny(raw)
}

// RepairTimeComponents resets out-of-range hour/minute/second fields of the
// first embedded time-of-day pattern to 00, leaving everything else in the
// string untouched. "2024-01-15T25:61:99Z" becomes "2024-01-15T00:00:00Z".
func RepairTimeComponents(s string) string {
	m := timePattern.FindStringSubmatchIndex(s)
	if m == nil {
		return s
	}

	group := func(i int) string {
		if m[2*i] < 0 {
			return ""
		}
		return s[m[2*i]:m[2*i+1]]
	}

	hours := repairComponent(group(1), 24)
	minutes := repairComponent(group(2), 60)
	seconds := repairComponent(group(3), 60)

	repaired := hours + ":" + minutes + ":" + seconds + group(4) + group(5)
	return s[:m[0]] + repaired + s[m[1]:]
}

func repairComponent(v string, limit int) string {
	num, err := strconv.Atoi(v)
	if err != nil || num >= limit {
		return "00"
	}
	return fmt.Sprintf("%02d", num)
}

// stripFragment removes the #fragment portion of a URL.
func stripFragment(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// extractImage finds an image for the entry: enclosure URL first, then a
// media:content URL, then the first <img src> inside the description HTML.
// Returns "" when nothing is found; never an error.
func extractImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if u, ok := content.Attrs["url"]; ok && u != "" {
				return u
			}
		}
	}

	if item.Description != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
		if err == nil {
			if src, ok := doc.Find("img").First().Attr("src"); ok && src != "" {
				return src
			}
		}
	}

	return ""
}
