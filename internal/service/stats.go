package service

import (
	"context"
	"log/slog"

	"github.com/sakif/secret-share/internal/apperror"
	"github.com/sakif/secret-share/internal/model"
)

// VisitedLister is the slice of repository.ItemRepository the stats need.
type VisitedLister interface {
	ListVisited(ctx context.Context) ([]model.Item, error)
}

// StatsService reports how many visited links and files were created per day.
type StatsService struct {
	items  VisitedLister
	logger *slog.Logger
}

// NewStatsService creates a StatsService reading visited items from items.
func NewStatsService(items VisitedLister, logger *slog.Logger) *StatsService {
	return &StatsService{items: items, logger: logger}
}

// Summarize buckets every visited item by the UTC calendar day it was
// created on. Expired items still count; never-visited items do not. Days
// without visited items are absent from the result.
func (s *StatsService) Summarize(ctx context.Context) (model.Stats, error) {
	items, err := s.items.ListVisited(ctx)
	if err != nil {
		return nil, apperror.Storage("listing visited items", err)
	}
	return Aggregate(items), nil
}

// Aggregate is the pure half of Summarize.
func Aggregate(items []model.Item) model.Stats {
	stats := make(model.Stats)
	for i := range items {
		item := &items[i]
		if item.VisitCount <= 0 || item.Payload == nil {
			continue
		}

		day := item.CreatedAt.UTC().Format(model.StatsDayLayout)
		bucket := stats[day]
		switch item.Payload.Kind() {
		case model.PayloadURL:
			bucket.Links++
		case model.PayloadFile:
			bucket.Files++
		}
		stats[day] = bucket
	}
	return stats
}
