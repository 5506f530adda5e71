package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mymonad/aura/pkg/aura"
)

// Register creates the caller's profile. The biometric commitment is bound
// to the caller by the registration proof and can never change afterwards.
func (l *Ledger) Register(
	ctx context.Context,
	caller aura.Principal,
	biometric, preferences aura.Digest,
	proof []byte,
) (aura.Profile, error) {
	check := func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if caller.IsZero() {
			return fmt.Errorf("%w: null principal cannot register", aura.ErrUnauthorized)
		}
		if _, ok := l.profiles[caller]; ok {
			return fmt.Errorf("%w: %s", aura.ErrAlreadyRegistered, caller)
		}
		if biometric.IsZero() {
			return fmt.Errorf("%w: biometric commitment is zero", aura.ErrInvalidCommitment)
		}
		return nil
	}

	var created aura.Profile
	err := l.transition(ctx, check, aura.CircuitRegistration, proof,
		aura.RegistrationInputs(biometric, caller),
		func(now time.Time) {
			profile := &aura.Profile{
				Principal:             caller,
				BiometricCommitment:   biometric,
				PreferencesCommitment: preferences,
				RegisteredAt:          now,
				LastActiveAt:          now,
				Active:                true,
			}
			l.profiles[caller] = profile
			l.totalUsers++

			l.emit(aura.Event{
				Kind:       aura.EventRegistered,
				Principal:  caller,
				Commitment: biometric,
			}, now)
			l.credit(profile, l.cfg.RegistrationAura, aura.ReasonRegistration, now)

			created = *profile
		})
	if err != nil {
		return aura.Profile{}, err
	}

	l.logger.Info("principal registered", "principal", caller.String())
	return created, nil
}

// UpdatePreferences replaces the caller's preferences commitment.
func (l *Ledger) UpdatePreferences(
	ctx context.Context,
	caller aura.Principal,
	preferences aura.Digest,
	proof []byte,
) error {
	check := func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		_, err := l.registered(caller)
		return err
	}

	return l.transition(ctx, check, aura.CircuitPreferences, proof,
		aura.PreferencesInputs(preferences, caller),
		func(now time.Time) {
			profile := l.profiles[caller]
			profile.PreferencesCommitment = preferences
			profile.LastActiveAt = now

			l.emit(aura.Event{
				Kind:       aura.EventPreferencesUpdated,
				Principal:  caller,
				Commitment: preferences,
			}, now)
		})
}

// SetActive toggles whether principal is eligible for new matching.
// Only the principal itself may call it.
func (l *Ledger) SetActive(caller, principal aura.Principal, active bool) error {
	return l.mutate(func() error {
		if err := l.checkNotPaused(); err != nil {
			return err
		}
		if caller != principal {
			return fmt.Errorf("%w: only %s may change its own activity", aura.ErrUnauthorized, principal)
		}
		_, err := l.registered(principal)
		return err
	}, func(now time.Time) {
		profile := l.profiles[principal]
		profile.Active = active
		profile.LastActiveAt = now

		l.emit(aura.Event{
			Kind:      aura.EventActiveChanged,
			Principal: principal,
			Active:    active,
		}, now)
	})
}

// VerifyProfile marks principal as verified. VerificationAura is credited
// on the first verification only, unless AwardOnReverify is set.
func (l *Ledger) VerifyProfile(caller, principal aura.Principal) error {
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
		profile := l.profiles[principal]
		first := !profile.Verified
		profile.Verified = true

		l.emit(aura.Event{
			Kind:      aura.EventVerified,
			Principal: principal,
		}, now)
		if first || l.cfg.AwardOnReverify {
			l.credit(profile, l.cfg.VerificationAura, aura.ReasonVerification, now)
		}
	})
}
