package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
	"finboard/internal/credentials"
)

// ErrIncompleteCredentials is returned when a load is attempted before the
// token and both database ids are set.
var ErrIncompleteCredentials = errors.New("credentials are incomplete")

// RecordFetcher returns the records of one Notion database.
type RecordFetcher interface {
	FetchRecords(ctx context.Context, token, databaseID string) ([]notionapi.Page, error)
}

// SummaryPublisher announces a freshly computed summary.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, sum core.Summary) error
}

// DashboardService runs one load cycle: both fetches, then the summary.
type DashboardService struct {
	fetcher    RecordFetcher
	summarizer core.Summarizer
	publisher  SummaryPublisher
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDashboardService wires a load cycle. publisher may be nil; timeout 0
// leaves the deadline to the caller.
func NewDashboardService(fetcher RecordFetcher, summarizer core.Summarizer, publisher SummaryPublisher, timeout time.Duration, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		fetcher:    fetcher,
		summarizer: summarizer,
		publisher:  publisher,
		timeout:    timeout,
		logger:     logger.With("component", "dashboard"),
	}
}

// Load fetches income and expense records concurrently and summarizes them.
// If either fetch fails the whole load fails and the returned summary is
// empty, never partial.
func (s *DashboardService) Load(ctx context.Context, creds credentials.Credentials) (core.Summary, error) {
	if !creds.IsComplete() {
		return core.EmptySummary(), ErrIncompleteCredentials
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var income, expenses []notionapi.Page

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := s.fetcher.FetchRecords(gctx, creds.Token, creds.IncomeDatabaseID)
		if err != nil {
			return fmt.Errorf("income: %w", err)
		}
		income = pages
		return nil
	})
	g.Go(func() error {
		pages, err := s.fetcher.FetchRecords(gctx, creds.Token, creds.ExpensesDatabaseID)
		if err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		expenses = pages
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "Dashboard load failed", "kind", ErrorKind(err), "error", err)
		return core.EmptySummary(), err
	}

	sum := s.summarizer.Summarize(income, expenses)
	s.logger.InfoContext(ctx, "Dashboard loaded",
		"income_entries", sum.IncomeEntries,
		"expense_entries", sum.ExpenseEntries,
		"categories", len(sum.Categories),
		"duration_ms", time.Since(start).Milliseconds())

	s.publish(ctx, sum)
	return sum, nil
}

func (s *DashboardService) publish(ctx context.Context, sum core.Summary) {
	if s.publisher == nil {
		return
	}
	// The load already succeeded; a broker outage must not fail it.
	if err := s.publisher.PublishSummary(ctx, sum); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish summary", "error", err)
	}
}
