package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	cacheKeyUsage = "usage:%s:%s"
	summaryTTL    = time.Minute
	maxRangeDays  = 366
)

var ErrInvalidRange = errors.New("invalid usage range")

// Reader is the read side of Repository.
type Reader interface {
	GetDailyUsage(ctx context.Context, startDate, endDate time.Time) ([]DailyUsage, error)
	AggregatePeriod(ctx context.Context, startDate, endDate time.Time) (*Totals, error)
}

type Service struct {
	repo  Reader
	cache *gocache.Cache
}

func NewService(repo Reader) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(summaryTTL, 2*summaryTTL),
	}
}

// GetUsage summarizes the inclusive date range [from, to], both YYYY-MM-DD.
// Empty values default to the last 30 days.
func (s *Service) GetUsage(ctx context.Context, from, to string) (*Summary, error) {
	startDate, endDate, err := parseRange(from, to, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf(cacheKeyUsage, startDate.Format(time.DateOnly), endDate.Format(time.DateOnly))
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*Summary), nil
	}

	totals, err := s.repo.AggregatePeriod(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("aggregate usage: %w", err)
	}
	days, err := s.repo.GetDailyUsage(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("daily usage: %w", err)
	}
	if days == nil {
		days = []DailyUsage{}
	}

	totals.SuccessRate = calculatePercentage(totals.Succeeded, totals.Analyses)
	summary := &Summary{
		From:   startDate.Format(time.DateOnly),
		To:     endDate.Format(time.DateOnly),
		Totals: *totals,
		Days:   days,
	}

	s.cache.SetDefault(cacheKey, summary)
	return summary, nil
}

func parseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	endDate := today
	if to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidRange)
		}
		endDate = t
	}

	startDate := endDate.AddDate(0, 0, -29)
	if from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidRange)
		}
		startDate = t
	}

	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	if endDate.Sub(startDate) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, maxRangeDays)
	}
	return startDate, endDate, nil
}

func calculatePercentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return (float64(part) / float64(total)) * 100
}
