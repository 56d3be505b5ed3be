package checkout

import (
	"context"
	"time"

	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/rpc"
)

const defaultPollInterval = 5 * time.Second

// TableView is one refresh of the floor: every table, the active merge
// groups and the tables that may still be merged
type TableView struct {
	Tables          []models.Table
	Merges          []models.TableMergeGroup
	MergeCandidates []models.Table
}

// WatchTables polls table occupancy until ctx is cancelled. fn runs once
// immediately and then on every tick; a failed refresh is passed to fn and
// polling continues.
func WatchTables(ctx context.Context, api rpc.API, interval time.Duration, fn func(TableView, error)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(refreshTables(ctx, api))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
}

func refreshTables(ctx context.Context, api rpc.API) (TableView, error) {
	tables, err := api.ListTables(ctx)
	if err != nil {
		return TableView{}, err
	}
	merges, err := api.ActiveMerges(ctx)
	if err != nil {
		return TableView{}, err
	}
	return TableView{
		Tables:          tables,
		Merges:          merges,
		MergeCandidates: domain.MergeCandidates(tables, merges),
	}, nil
}
