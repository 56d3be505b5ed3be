package pos

import (
	"restaurant-pos/internal/models"
)

func grouped(groups []models.TableMergeGroup) map[int64]bool {
	ids := make(map[int64]bool)
	for _, g := range groups {
		if !g.Active {
			continue
		}
		ids[g.PrimaryTableID] = true
		for _, id := range g.MergedTableIDs {
			ids[id] = true
		}
	}
	return ids
}

// MergeCandidates returns the free tables that belong to no active merge group
func MergeCandidates(tables []models.Table, groups []models.TableMergeGroup) []models.Table {
	taken := grouped(groups)
	var out []models.Table
	for _, t := range tables {
		if t.Status == models.TableFree && !taken[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// ValidateMerge checks a merge request against the current table state.
// Tables that exist but are no longer candidates yield a conflict, since
// another terminal got to them first.
func ValidateMerge(primary int64, secondaries []int64, tables []models.Table, groups []models.TableMergeGroup) error {
	in := models.MergeTablesInput{PrimaryTableID: primary, SecondaryTableIDs: secondaries}
	if err := in.Validate(); err != nil {
		return err
	}

	byID := make(map[int64]models.Table, len(tables))
	for _, t := range tables {
		byID[t.ID] = t
	}
	candidates := make(map[int64]bool)
	for _, t := range MergeCandidates(tables, groups) {
		candidates[t.ID] = true
	}

	for _, id := range append([]int64{primary}, secondaries...) {
		t, ok := byID[id]
		if !ok {
			return models.NotFoundf("table %d", id)
		}
		if !candidates[id] {
			return models.Conflictf("table %s is %s and cannot be merged", t.Name, describe(t, groups))
		}
	}
	return nil
}

func describe(t models.Table, groups []models.TableMergeGroup) string {
	if grouped(groups)[t.ID] {
		return "already merged"
	}
	return string(t.Status)
}
