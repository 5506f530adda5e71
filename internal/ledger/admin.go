package ledger

import (
	"fmt"
	"time"

	"github.com/mymonad/aura/pkg/aura"
)

// SetPaused toggles the system-wide halt. It is the one mutating operation,
// besides TransferOwnership, that remains available while paused.
func (l *Ledger) SetPaused(caller aura.Principal, paused bool) error {
	changed := false
	err := l.mutate(func() error {
		return l.checkOwner(caller)
	}, func(now time.Time) {
		if l.paused == paused {
			return
		}
		l.paused = paused
		changed = true

		kind := aura.EventUnpaused
		if paused {
			kind = aura.EventPaused
		}
		l.emit(aura.Event{Kind: kind, Principal: caller}, now)
	})
	if err != nil {
		return err
	}

	if changed {
		l.logger.Warn("ledger pause state changed", "paused", paused)
	}
	return nil
}

// TransferOwnership hands the authority to newOwner.
func (l *Ledger) TransferOwnership(caller, newOwner aura.Principal) error {
	err := l.mutate(func() error {
		if err := l.checkOwner(caller); err != nil {
			return err
		}
		if newOwner.IsZero() {
			return fmt.Errorf("%w: new owner is the null principal", aura.ErrInvalidOwner)
		}
		return nil
	}, func(now time.Time) {
		l.owner = newOwner
		l.emit(aura.Event{
			Kind:        aura.EventOwnershipTransferred,
			Principal:   caller,
			Counterpart: newOwner,
		}, now)
	})
	if err != nil {
		return err
	}

	l.logger.Warn("ledger ownership transferred", "owner", newOwner.String())
	return nil
}
