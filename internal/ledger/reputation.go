package ledger

import (
	"time"

	"github.com/mymonad/aura/pkg/aura"
)

// AwardBonus credits points to principal. The balance saturates instead of
// wrapping.
func (l *Ledger) AwardBonus(caller, principal aura.Principal, points uint64, reason string) error {
	return l.mutate(func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if err := l.checkOwner(caller); err != nil {
			return err
		}
		_, err := l.registered(principal)
		return err
	}, func(now time.Time) {
		l.credit(l.profiles[principal], points, reason, now)
	})
}

// DeductPenalty removes up to points from principal's balance, never going
// below zero. It returns the amount actually removed; the emitted event
// carries both the requested and the removed amount.
func (l *Ledger) DeductPenalty(caller, principal aura.Principal, points uint64, reason string) (uint64, error) {
	var removed uint64
	err := l.mutate(func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if err := l.checkOwner(caller); err != nil {
			return err
		}
		_, err := l.registered(principal)
		return err
	}, func(now time.Time) {
		profile := l.profiles[principal]
		removed = min(points, profile.AuraPoints)
		profile.AuraPoints -= removed

		l.emit(aura.Event{
			Kind:      aura.EventAuraDeducted,
			Principal: principal,
			Points:    removed,
			Requested: points,
			Reason:    reason,
		}, now)
	})
	if err != nil {
		return 0, err
	}

	if removed < points {
		l.logger.Debug("aura deduction clamped at zero",
			"principal", principal.String(),
			"requested", points,
			"removed", removed,
		)
	}
	return removed, nil
}
