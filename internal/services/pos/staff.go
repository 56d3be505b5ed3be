package pos

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/models"
)

// PINCooldownCap bounds the wait after repeated PIN failures
const PINCooldownCap = 30 * time.Second

// CooldownForFailCount returns min(30s, 2^failCount seconds)
func CooldownForFailCount(failCount int) time.Duration {
	if failCount < 0 {
		failCount = 0
	}
	if failCount >= 5 {
		return PINCooldownCap
	}
	return time.Duration(1<<failCount) * time.Second
}

// HashPIN hashes a staff PIN for storage
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// VerifyManagerPin authorizes a discount approval. Failures put the terminal
// on a growing cooldown; a success clears it.
func (s *Service) VerifyManagerPin(ctx context.Context, in models.VerifyManagerPinInput) (*models.ManagerApproval, error) {
	if err := in.Validate(s.policy.PINMinLength); err != nil {
		return nil, err
	}

	now := s.now()
	throttle, err := s.store.GetPINThrottle(ctx, in.TerminalID)
	if err != nil {
		return nil, err
	}
	if throttle.CooldownUntil != nil && now.Before(*throttle.CooldownUntil) {
		wait := int(throttle.CooldownUntil.Sub(now).Seconds()) + 1
		return nil, fmt.Errorf("try again in %d seconds: %w", wait, models.ErrThrottled)
	}

	approvers, err := s.store.ListApprovers(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range approvers {
		if bcrypt.CompareHashAndPassword([]byte(a.PINHash), []byte(in.PIN)) != nil {
			continue
		}
		if throttle.FailCount > 0 || throttle.CooldownUntil != nil {
			if err := s.store.SavePINThrottle(ctx, models.PINThrottle{TerminalID: in.TerminalID}); err != nil {
				return nil, err
			}
		}
		s.logger.Info("manager_pin_verified", fmt.Sprintf("Manager %s approved at %s", a.Name, in.TerminalID), "", map[string]interface{}{
			"staff_id":    a.ID,
			"terminal_id": in.TerminalID,
		})
		return &models.ManagerApproval{StaffID: a.ID, Name: a.Name, Role: a.Role}, nil
	}

	throttle.FailCount++
	until := now.Add(CooldownForFailCount(throttle.FailCount))
	throttle.CooldownUntil = &until
	if err := s.store.SavePINThrottle(ctx, throttle); err != nil {
		return nil, err
	}
	s.logger.Warn("manager_pin_rejected", "Invalid manager PIN", "", map[string]interface{}{
		"terminal_id": in.TerminalID,
		"fail_count":  throttle.FailCount,
	})
	return nil, models.ErrInvalidPIN
}
