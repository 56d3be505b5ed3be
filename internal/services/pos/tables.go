package pos

import (
	"context"
	"fmt"

	"restaurant-pos/internal/models"
	domain "restaurant-pos/internal/pos"
	"restaurant-pos/internal/store"
)

func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	return s.store.ListTables(ctx)
}

func (s *Service) UpdateTable(ctx context.Context, in models.UpdateTableInput) (*models.Table, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var table *models.Table
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		locked, err := tx.LockTables(ctx, []int64{in.TableID})
		if err != nil {
			return err
		}
		if locked[0].Status == models.TableMerged {
			return models.Conflictf("table %s is merged; unmerge it first", locked[0].Name)
		}
		table, err = tx.UpdateTableStatus(ctx, in.TableID, in.Status, in.ExpectedVersion)
		return err
	})
	if err != nil {
		return nil, wrapf(err, "failed to update table %d", in.TableID)
	}
	return table, nil
}

// MergeTables locks every involved table so concurrent terminals serialize,
// then re-checks the merge rules against committed state.
func (s *Service) MergeTables(ctx context.Context, in models.MergeTablesInput) (*models.TableMergeGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	group := &models.TableMergeGroup{
		PrimaryTableID: in.PrimaryTableID,
		MergedTableIDs: append([]int64(nil), in.SecondaryTableIDs...),
	}
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		ids := append([]int64{in.PrimaryTableID}, in.SecondaryTableIDs...)
		locked, err := tx.LockTables(ctx, ids)
		if err != nil {
			return err
		}
		active, err := tx.ActiveMerges(ctx)
		if err != nil {
			return err
		}
		if err := domain.ValidateMerge(in.PrimaryTableID, in.SecondaryTableIDs, locked, active); err != nil {
			return err
		}
		for _, id := range in.SecondaryTableIDs {
			if _, err := tx.UpdateTableStatus(ctx, id, models.TableMerged, 0); err != nil {
				return err
			}
		}
		return tx.InsertMerge(ctx, group)
	})
	if err != nil {
		return nil, wrapf(err, "failed to merge tables")
	}

	s.logger.Info("tables_merged", fmt.Sprintf("Merged %d tables into table %d", len(in.SecondaryTableIDs), in.PrimaryTableID), "", map[string]interface{}{
		"merge_id":    group.ID,
		"primary":     group.PrimaryTableID,
		"secondaries": group.MergedTableIDs,
	})
	return group, nil
}

func (s *Service) UnmergeTables(ctx context.Context, in models.UnmergeTablesInput) (*models.TableMergeGroup, error) {
	if in.MergeID <= 0 {
		return nil, models.ValidationError{Field: "merge_id", Message: "merge id is required"}
	}

	var group *models.TableMergeGroup
	err := s.store.Atomic(ctx, func(tx store.Store) error {
		var err error
		group, err = tx.GetMerge(ctx, in.MergeID)
		if err != nil {
			return err
		}
		if !group.Active {
			return models.Conflictf("merge group %d is already dissolved", in.MergeID)
		}
		if _, err := tx.LockTables(ctx, group.MergedTableIDs); err != nil {
			return err
		}
		for _, id := range group.MergedTableIDs {
			if _, err := tx.UpdateTableStatus(ctx, id, models.TableFree, 0); err != nil {
				return err
			}
		}
		if err := tx.DissolveMerge(ctx, group.ID, s.now()); err != nil {
			return err
		}
		group, err = tx.GetMerge(ctx, in.MergeID)
		return err
	})
	if err != nil {
		return nil, wrapf(err, "failed to unmerge tables")
	}
	return group, nil
}

func (s *Service) ActiveMerges(ctx context.Context) ([]models.TableMergeGroup, error) {
	groups, err := s.store.ActiveMerges(ctx)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []models.TableMergeGroup{}
	}
	return groups, nil
}
