package models

import (
	"strings"
	"time"
)

// StationStatus represents the status of a kitchen station
type StationStatus string

const (
	StationOnline  StationStatus = "online"
	StationOffline StationStatus = "offline"
)

// StationStaleAfter is how long an online station may miss heartbeats
// before it counts as offline. Twice the default heartbeat interval.
const StationStaleAfter = 60 * time.Second

// KitchenStation is a registered kitchen worker process
type KitchenStation struct {
	ID             int64         `json:"id,omitempty"`
	Name           string        `json:"station_name"`
	Status         StationStatus `json:"status"`
	LastSeen       time.Time     `json:"last_seen"`
	TicketsHandled int           `json:"tickets_handled"`
	CreatedAt      time.Time     `json:"created_at,omitempty"`
}

// Live reports whether the station is online and heard from recently
func (s KitchenStation) Live(now time.Time) bool {
	return s.Status == StationOnline && now.Sub(s.LastSeen) <= StationStaleAfter
}

// ParseOrderTypes parses a comma-separated string of order types into a slice
func ParseOrderTypes(orderTypesStr string) []OrderType {
	if orderTypesStr == "" {
		return nil
	}

	var orderTypes []OrderType
	for _, part := range strings.Split(orderTypesStr, ",") {
		switch OrderType(strings.TrimSpace(part)) {
		case DineIn:
			orderTypes = append(orderTypes, DineIn)
		case Takeout:
			orderTypes = append(orderTypes, Takeout)
		case Delivery:
			orderTypes = append(orderTypes, Delivery)
		}
	}
	return orderTypes
}

// CanHandle checks if a station with the given specializations accepts an order type
func CanHandle(orderType OrderType, specializations []OrderType) bool {
	if len(specializations) == 0 {
		return true
	}
	for _, s := range specializations {
		if s == orderType {
			return true
		}
	}
	return false
}
