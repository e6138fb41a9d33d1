package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/spimexhq/oilpulse/config"
	"github.com/spimexhq/oilpulse/internal/domain/models"
	"github.com/spimexhq/oilpulse/internal/logger"
)

// Downloader drives the full acquisition pipeline: discover bulletin links,
// fetch each document under a concurrency bound, and persist raw bytes under
// date-derived canonical names.
type Downloader struct {
	client        *Client
	discoverer    *Discoverer
	dir           string
	maxConcurrent int64
}

// NewDownloader wires a Downloader from its parts. maxConcurrent bounds the
// number of simultaneous in-flight downloads.
func NewDownloader(client *Client, discoverer *Discoverer, dir string, maxConcurrent int64) *Downloader {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Downloader{
		client:        client,
		discoverer:    discoverer,
		dir:           dir,
		maxConcurrent: maxConcurrent,
	}
}

// FromConfig builds the client, discoverer and downloader in one step.
func FromConfig(cfg config.SpimexConfig) *Downloader {
	client := NewClient(cfg)
	return NewDownloader(client, NewDiscoverer(client, cfg.BaseURL, cfg.MaxPages), cfg.ReportsDir, cfg.MaxConcurrent)
}

// ReportFileName returns the canonical local name for a bulletin of the given
// trading date: oil_xls_<YYYYMMDD>.xls. The name is both the persistence key
// and the date source when the directory is processed later.
func ReportFileName(reportDate time.Time) string {
	return fileDatePrefix + reportDate.Format(dateTokenForm) + fileExtension
}

// DownloadAndSave fetches one bulletin and writes it under its canonical path.
//
// If the file already exists the fetch is skipped entirely and the existing
// path is returned, so re-runs over an already-downloaded range cost nothing.
// A fetch failure is returned as an error; the caller decides whether absence
// matters.
func (d *Downloader) DownloadAndSave(ctx context.Context, url string, reportDate time.Time) (string, error) {
	path := filepath.Join(d.dir, ReportFileName(reportDate))

	if _, err := os.Stat(path); err == nil {
		logger.L().Info().Str("path", path).Msg("report already saved, skipping fetch")
		return path, nil
	}

	content, err := d.client.Fetch(ctx, url)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	logger.L().Info().Str("path", path).Int("bytes", len(content)).Msg("report saved")
	return path, nil
}

// GetAndSaveReports discovers every bulletin in [start, end] and downloads the
// missing ones with at most maxConcurrent fetches in flight.
//
// Individual download failures are logged and dropped from the result; an
// empty discovery returns an empty result without touching the filesystem.
// Only setup failures (creating the reports directory) surface as errors.
func (d *Downloader) GetAndSaveReports(ctx context.Context, start, end time.Time) ([]string, error) {
	links := d.discoverer.Discover(ctx, start, end)
	if len(links) == 0 {
		logger.L().Warn().Msg("no bulletins discovered in requested range")
		return nil, nil
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir %s: %w", d.dir, err)
	}

	// Counting admission gate: acquire before starting a download, release on
	// completion, failed or not. Idle slots never block unrelated work.
	sem := semaphore.NewWeighted(d.maxConcurrent)

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		saved []string
	)

	for _, link := range links {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Caller cancelled: stop issuing new work, let in-flight drain.
			logger.L().Warn().Err(err).Msg("download admission interrupted")
			break
		}
		wg.Add(1)
		go func(link models.BulletinLink) {
			defer wg.Done()
			defer sem.Release(1)

			path, err := d.DownloadAndSave(ctx, link.URL, link.ReportDate)
			if err != nil {
				logger.L().Warn().Str("url", link.URL).Err(err).Msg("report skipped")
				return
			}
			mu.Lock()
			saved = append(saved, path)
			mu.Unlock()
		}(link)
	}

	wg.Wait()
	logger.L().Info().Int("saved", len(saved)).Int("discovered", len(links)).Msg("download run finished")
	return saved, nil
}
