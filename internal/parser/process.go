package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spimexhq/oilpulse/internal/logger"
	"github.com/spimexhq/oilpulse/internal/storage"
)

const (
	reportGlob     = "oil_xls_*.xls"
	fileDatePrefix = "oil_xls_"
	fileDateLayout = "20060102"
)

// ProcessDirectory extracts and persists every saved bulletin in dir, with at
// most maxParallel files in flight, and returns the total number of records
// committed.
//
// A per-file failure (unparseable name, broken workbook, rejected batch) is
// logged and contributes zero; it never stops the remaining files. The total
// is a plain sum, so completion order does not matter.
func ProcessDirectory(ctx context.Context, dir string, repo storage.TradingRepository, maxParallel int64) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, reportGlob))
	if err != nil {
		return 0, fmt.Errorf("list reports in %s: %w", dir, err)
	}
	if len(matches) == 0 {
		logger.L().Info().Str("dir", dir).Msg("no report files to process")
		return 0, nil
	}
	if maxParallel < 1 {
		maxParallel = 1
	}

	logger.L().Info().Int("files", len(matches)).Str("dir", dir).Msg("processing start")

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	var total atomic.Int64
	for _, file := range matches {
		f := file
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			total.Add(int64(processFile(gctx, f, repo)))
			return nil
		})
	}
	_ = g.Wait()

	logger.L().Info().Int64("records", total.Load()).Msg("processing finished")
	return int(total.Load()), nil
}

// processFile runs extract-then-persist for one bulletin and returns the
// committed count; every failure is contained here.
func processFile(ctx context.Context, path string, repo storage.TradingRepository) int {
	base := filepath.Base(path)
	if ctx.Err() != nil {
		logger.L().Warn().Str("file", base).Msg("skipped: processing cancelled")
		return 0
	}
	start := time.Now()

	reportDate, err := reportDateFromName(base)
	if err != nil {
		logger.L().Error().Str("file", base).Err(err).Msg("bad report file name, skipped")
		return 0
	}

	records, err := ParseReportFile(path, reportDate)
	if err != nil {
		logger.L().Error().Str("file", base).Err(err).Msg("report unparseable, skipped")
		return 0
	}
	if len(records) == 0 {
		logger.L().Info().Str("file", base).Msg("no usable rows in report")
		return 0
	}

	n, err := repo.InsertResultsBatch(records)
	if err != nil {
		logger.L().Error().Str("file", base).Err(err).Msg("batch rejected, nothing committed")
		return 0
	}

	logger.L().Info().Str("file", base).Int("records", n).Dur("elapsed", time.Since(start)).Msg("report done")
	return n
}

// reportDateFromName derives the trading date from the canonical file name,
// using the same 8-digit token rule the listing discoverer applies to hrefs.
func reportDateFromName(name string) (time.Time, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	token := strings.TrimPrefix(stem, fileDatePrefix)
	if token == stem || len(token) < len(fileDateLayout) {
		return time.Time{}, fmt.Errorf("no date token in file name %q", name)
	}
	d, err := time.Parse(fileDateLayout, token[:len(fileDateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date token in file name %q: %w", name, err)
	}
	return d, nil
}
