package models

import "time"

// TableStatus is the seating status of a physical table
type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
	TableReserved TableStatus = "reserved"
	TableMerged   TableStatus = "merged"
)

// Table is a physical table. Version increments on every update and backs
// optimistic concurrency between terminals.
type Table struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Seats     int         `json:"seats"`
	Status    TableStatus `json:"status"`
	Version   int64       `json:"version"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableMergeGroup binds secondary tables under a primary billing table
type TableMergeGroup struct {
	ID             int64      `json:"id"`
	PrimaryTableID int64      `json:"primary_table_id"`
	MergedTableIDs []int64    `json:"merged_table_ids"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	DissolvedAt    *time.Time `json:"dissolved_at,omitempty"`
}

// Contains reports whether the table belongs to the group as primary or secondary
func (g TableMergeGroup) Contains(tableID int64) bool {
	if g.PrimaryTableID == tableID {
		return true
	}
	for _, id := range g.MergedTableIDs {
		if id == tableID {
			return true
		}
	}
	return false
}

// UpdateTableInput is the input of tables.update. ExpectedVersion 0 skips the version check.
type UpdateTableInput struct {
	TableID         int64       `json:"table_id"`
	Status          TableStatus `json:"status"`
	ExpectedVersion int64       `json:"expected_version,omitempty"`
}

// MergeTablesInput is the input of tableMerges.merge
type MergeTablesInput struct {
	PrimaryTableID    int64   `json:"primary_table_id"`
	SecondaryTableIDs []int64 `json:"secondary_table_ids"`
}

// UnmergeTablesInput is the input of tableMerges.unmerge
type UnmergeTablesInput struct {
	MergeID int64 `json:"merge_id"`
}
