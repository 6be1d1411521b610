package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"hiring-signals/internal/domain"
)

// BoardFetcher parses a saved careers-board HTML snapshot (the kind of page
// greenhouse-style boards render): anchors pointing at /jobs/<id> become
// observations. Boards rarely show posting dates, so AsOf stands in.
type BoardFetcher struct {
	Path    string
	Company string
	Slug    string // board identifier used in job ids
	AsOf    time.Time
}

func (f BoardFetcher) Name() string { return "board" }

func (f BoardFetcher) Fetch(ctx context.Context) ([]domain.RawJob, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open board snapshot: %w", err)
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("parse board html: %w", err)
	}

	asOf := f.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)

	seen := map[string]bool{}
	var jobs []domain.RawJob

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || !strings.Contains(strings.ToLower(href), "/jobs/") {
			return
		}

		id := extractJobID(href)
		if id == "" {
			return
		}

		jobID := fmt.Sprintf("%s:%s:%s", f.Name(), f.Slug, id)
		if seen[jobID] {
			return
		}
		seen[jobID] = true

		title := CleanText(a.Text())
		if title == "" || looksLikeJunkTitle(title) {
			return
		}

		// Boards usually render the location as a sibling node.
		location := NormalizeLocation(a.Parent().Find(".location").First().Text())

		jobs = append(jobs, domain.RawJob{
			JobID:          jobID,
			Company:        f.Company,
			Title:          title,
			Location:       location,
			PostingDate:    day,
			URL:            href,
			Source:         f.Name(),
			FirstScrapedAt: asOf.UTC(),
			LastScrapedAt:  asOf.UTC(),
		})
	})

	return jobs, nil
}

func extractJobID(u string) string {
	// split on /jobs/ and take the next run of digits
	parts := strings.Split(u, "/jobs/")
	if len(parts) < 2 {
		return ""
	}
	id := ""
	for _, r := range parts[1] {
		if r >= '0' && r <= '9' {
			id += string(r)
		} else {
			break
		}
	}
	return id
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "view" || l == "apply" || strings.HasPrefix(l, "apply ")
}
