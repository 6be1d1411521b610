package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"hiring-signals/internal/domain"
)

// JSONLFetcher reads a scraper dump: one JSON object per line. Lines that
// fail to parse or lack the identity fields are skipped and counted, not
// treated as fatal. Scraper output is messy by nature.
type JSONLFetcher struct {
	Path   string
	Logger *logrus.Logger
	Now    func() time.Time
}

type jsonlRecord struct {
	JobID          string `json:"job_id"`
	Company        string `json:"company"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	PostingDate    string `json:"posting_date"`
	URL            string `json:"url"`
	Source         string `json:"source"`
	FirstScrapedAt string `json:"first_scraped_at"`
	LastScrapedAt  string `json:"last_scraped_at"`
}

func (f JSONLFetcher) Name() string { return "jsonl" }

func (f JSONLFetcher) Fetch(ctx context.Context) ([]domain.RawJob, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl: %w", err)
	}
	defer file.Close()

	now := time.Now().UTC()
	if f.Now != nil {
		now = f.Now().UTC()
	}

	var out []domain.RawJob
	skipped := 0
	lineNo := 0

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024) // descriptions can be large
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		if rec.JobID == "" || rec.Company == "" || rec.Title == "" {
			skipped++
			continue
		}

		job := domain.RawJob{
			JobID:          rec.JobID,
			Company:        CleanText(rec.Company),
			Title:          CleanText(rec.Title),
			Description:    rec.Description,
			Location:       NormalizeLocation(rec.Location),
			URL:            rec.URL,
			Source:         rec.Source,
			FirstScrapedAt: now,
			LastScrapedAt:  now,
		}
		if rec.Source == "" {
			job.Source = f.Name()
		}
		if rec.PostingDate != "" {
			if d, err := time.ParseInLocation(domain.DateFormat, rec.PostingDate, time.UTC); err == nil {
				job.PostingDate = d
			}
		}
		if rec.FirstScrapedAt != "" {
			if ts, err := time.Parse(time.RFC3339, rec.FirstScrapedAt); err == nil {
				job.FirstScrapedAt = ts.UTC()
			}
		}
		if rec.LastScrapedAt != "" {
			if ts, err := time.Parse(time.RFC3339, rec.LastScrapedAt); err == nil {
				job.LastScrapedAt = ts.UTC()
			}
		}
		if job.LastScrapedAt.Before(job.FirstScrapedAt) {
			job.LastScrapedAt = job.FirstScrapedAt
		}

		out = append(out, job)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}

	if skipped > 0 && f.Logger != nil {
		f.Logger.WithFields(logrus.Fields{"path": f.Path, "skipped": skipped, "lines": lineNo}).
			Warn("skipped unparseable jsonl lines")
	}
	return out, nil
}
