// Package ledger implements the aura state machine: the identity registry,
// the matching session store, the two-sided reveal protocol, the Aura
// reputation balance and single-authority administration.
//
// # Transitions
//
// Every mutating operation is one serialized transition. Preconditions are
// checked under the read lock, the proof is verified with no lock held, and
// the preconditions are checked again under the write lock before any field
// changes. A transition either applies completely or returns an error that
// wraps one aura.Error kind.
//
// # Thread Safety
//
// Ledger is safe for concurrent use from multiple goroutines.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mymonad/aura/pkg/aura"
)

// Default Aura amounts credited by the ledger's own flows.
const (
	RegistrationAura uint64 = 100
	MatchAura        uint64 = 75
	RevealAura       uint64 = 150
	VerificationAura uint64 = 50
)

// Verifier checks a proof against a circuit and its public inputs.
// Implementations must be total and deterministic: malformed input yields
// false, never a panic.
type Verifier interface {
	Verify(ctx context.Context, circuit aura.Circuit, proof []byte, inputs []aura.Digest) bool
}

// EventSink receives every event the ledger emits. Publish is called with
// the ledger's write lock held and must not block.
type EventSink interface {
	Publish(e aura.Event)
}

// Config holds the ledger parameters.
type Config struct {
	// Owner is the initial authority principal.
	Owner aura.Principal

	RegistrationAura uint64
	MatchAura        uint64
	RevealAura       uint64
	VerificationAura uint64

	// AwardOnReverify credits VerificationAura on every VerifyProfile call,
	// not only the first one.
	AwardOnReverify bool

	// IntentTTL, when positive, gives every submitted intent an expiry.
	IntentTTL time.Duration
}

// DefaultConfig returns a Config with the standard Aura amounts.
func DefaultConfig(owner aura.Principal) Config {
	return Config{
		Owner:            owner,
		RegistrationAura: RegistrationAura,
		MatchAura:        MatchAura,
		RevealAura:       RevealAura,
		VerificationAura: VerificationAura,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Owner.IsZero() {
		return fmt.Errorf("%w: ledger owner is required", aura.ErrInvalidOwner)
	}
	if c.IntentTTL < 0 {
		return fmt.Errorf("ledger: intent ttl must not be negative")
	}
	return nil
}

// Option configures optional Ledger collaborators.
type Option func(*Ledger)

// WithClock sets the time source. Defaults to time.Now in UTC.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithEventSink sets the sink that receives emitted events.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.sink = sink
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

type revealKey struct {
	revealer    aura.Principal
	counterpart aura.Principal
}

// Ledger is the aura state machine.
type Ledger struct {
	mu sync.RWMutex

	cfg      Config
	verifier Verifier
	sink     EventSink
	now      func() time.Time
	logger   *slog.Logger

	owner  aura.Principal
	paused bool

	profiles  map[aura.Principal]*aura.Profile
	intents   map[aura.Digest]*aura.MatchingIntent
	matches   map[aura.Digest]*aura.MutualMatch
	reveals   map[revealKey]struct{}
	revealLog []aura.RevealRecord

	totalUsers   uint64
	totalMatches uint64
	totalReveals uint64
	seq          uint64
}

// New creates a Ledger owned by cfg.Owner that checks proofs with verifier.
func New(cfg Config, verifier Verifier, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, fmt.Errorf("ledger: verifier is required")
	}

	l := &Ledger{
		cfg:      cfg,
		verifier: verifier,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
		owner:    cfg.Owner,
		profiles: make(map[aura.Principal]*aura.Profile),
		intents:  make(map[aura.Digest]*aura.MatchingIntent),
		matches:  make(map[aura.Digest]*aura.MutualMatch),
		reveals:  make(map[revealKey]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// transition runs one proof-gated state change. check is evaluated under
// the read lock, the proof is verified with no lock held, then check is
// evaluated again under the write lock and apply runs only if it passes.
func (l *Ledger) transition(
	ctx context.Context,
	check func() error,
	circuit aura.Circuit,
	proof []byte,
	inputs []aura.Digest,
	apply func(now time.Time),
) error {
	l.mu.RLock()
	err := check()
	l.mu.RUnlock()
	if err != nil {
		return err
	}

	if !l.verifier.Verify(ctx, circuit, proof, inputs) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("verify %s proof: %w", circuit, ctxErr)
		}
		return fmt.Errorf("%w: %s proof rejected", aura.ErrInvalidProof, circuit)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := check(); err != nil {
		return err
	}
	apply(l.now())
	return nil
}

// mutate runs a state change that needs no proof, under the write lock.
func (l *Ledger) mutate(check func() error, apply func(now time.Time)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := check(); err != nil {
		return err
	}
	apply(l.now())
	return nil
}

// emit stamps and publishes an event. Must be called with the write lock held.
func (l *Ledger) emit(e aura.Event, now time.Time) {
	l.seq++
	e.ID = uuid.NewString()
	e.Seq = l.seq
	e.At = now
	if l.sink != nil {
		l.sink.Publish(e)
	}
}

// credit adds points to a profile, saturating at the uint64 maximum, and
// emits an award event. Must be called with the write lock held.
func (l *Ledger) credit(p *aura.Profile, points uint64, reason string, now time.Time) {
	if p.AuraPoints > ^uint64(0)-points {
		p.AuraPoints = ^uint64(0)
	} else {
		p.AuraPoints += points
	}
	l.emit(aura.Event{
		Kind:      aura.EventAuraAwarded,
		Principal: p.Principal,
		Points:    points,
		Reason:    reason,
	}, now)
}

func (l *Ledger) checkNotPaused() error {
	if l.paused {
		return aura.ErrPaused
	}
	return nil
}

func (l *Ledger) checkOwner(caller aura.Principal) error {
	if caller.IsZero() || caller != l.owner {
		return fmt.Errorf("%w: %s is not the ledger authority", aura.ErrUnauthorized, caller)
	}
	return nil
}

func (l *Ledger) registered(p aura.Principal) (*aura.Profile, error) {
	profile, ok := l.profiles[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", aura.ErrNotRegistered, p)
	}
	return profile, nil
}
