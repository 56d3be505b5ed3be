package models

import "time"

// StaffRole limits who may authorize discounts
type StaffRole string

const (
	RoleServer  StaffRole = "server"
	RoleManager StaffRole = "manager"
	RoleAdmin   StaffRole = "admin"
)

// CanApproveDiscounts reports whether the role may authorize pending discounts
func (r StaffRole) CanApproveDiscounts() bool {
	return r == RoleManager || r == RoleAdmin
}

// StaffMember is a person who can log in at a terminal
type StaffMember struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Role    StaffRole `json:"role"`
	PINHash string    `json:"-"`
	Active  bool      `json:"active"`
}

// PINThrottle tracks failed PIN attempts for one terminal
type PINThrottle struct {
	TerminalID    string
	FailCount     int
	CooldownUntil *time.Time
}

// VerifyManagerPinInput is the input of staff.verifyManagerPin
type VerifyManagerPinInput struct {
	PIN        string `json:"pin"`
	TerminalID string `json:"terminal_id"`
}

// ManagerApproval identifies the manager who authorized an action
type ManagerApproval struct {
	StaffID int64     `json:"staff_id"`
	Name    string    `json:"name"`
	Role    StaffRole `json:"role"`
}
