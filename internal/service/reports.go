package service

import (
	"context"
	"time"

	"github.com/spimexhq/oilpulse/internal/parser"
	"github.com/spimexhq/oilpulse/internal/storage"
)

// BulletinDownloader is the slice of the download pipeline the report service
// needs; satisfied by downloader.Downloader.
type BulletinDownloader interface {
	GetAndSaveReports(ctx context.Context, start, end time.Time) ([]string, error)
}

// ReportService exposes the two pipeline entry points the HTTP layer calls.
type ReportService interface {
	// DownloadReports discovers and saves every bulletin in [start, end],
	// returning the local paths of the files now present.
	DownloadReports(ctx context.Context, start, end time.Time) ([]string, error)
	// ProcessReports extracts and persists every saved bulletin, returning the
	// total number of records committed.
	ProcessReports(ctx context.Context) (int, error)
}

type reportService struct {
	dl          BulletinDownloader
	repo        storage.TradingRepository
	dir         string
	maxParallel int64
}

func NewReportService(dl BulletinDownloader, repo storage.TradingRepository, dir string, maxParallel int64) ReportService {
	return &reportService{dl: dl, repo: repo, dir: dir, maxParallel: maxParallel}
}

func (s *reportService) DownloadReports(ctx context.Context, start, end time.Time) ([]string, error) {
	return s.dl.GetAndSaveReports(ctx, start, end)
}

func (s *reportService) ProcessReports(ctx context.Context) (int, error) {
	return parser.ProcessDirectory(ctx, s.dir, s.repo, s.maxParallel)
}
