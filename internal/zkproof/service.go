// Package zkproof provides the verification service behind the aura ledger.
//
// ZKService wraps the circuits and keys of pkg/zkproof and implements the
// ledger's Verifier contract on top of them. Proof checks run on a bounded
// pool of workers, each one limited by a timeout, and their outcomes are
// remembered in an LRU cache.
//
// # Backends
//
// The service is configured via ZKConfig which selects one backend:
//   - plonk: real PLONK verification with keys loaded from KeysDir
//   - accept: every proof verifies (development only)
//   - reject: no proof verifies (tests)
//
// # Thread Safety
//
// ZKService is safe for concurrent use from multiple goroutines.
// Metrics are tracked using atomic operations.
package zkproof

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mymonad/aura/pkg/aura"
	"github.com/mymonad/aura/pkg/zkproof"
)

// Backend names a verification backend.
type Backend string

const (
	BackendPlonk  Backend = "plonk"
	BackendAccept Backend = "accept"
	BackendReject Backend = "reject"
)

// ZKConfig contains configuration for the verification service.
type ZKConfig struct {
	// Backend selects how proofs are checked.
	Backend Backend

	// KeysDir holds the verifying keys written by the setup command.
	KeysDir string

	// DevSetup compiles the circuits with an unsafe SRS when KeysDir has
	// no keys. Never enable it outside development.
	DevSetup bool

	// ProofTimeout bounds a single verification.
	ProofTimeout time.Duration

	// Workers is the number of parallel verifications.
	Workers int

	// CacheSize is the number of verification outcomes remembered.
	// Zero disables the cache.
	CacheSize int
}

// DefaultZKConfig returns a ZKConfig with sensible defaults.
func DefaultZKConfig() ZKConfig {
	return ZKConfig{
		Backend:      BackendPlonk,
		ProofTimeout: 10 * time.Second,
		Workers:      2,
		CacheSize:    1024,
	}
}

// Validate checks the configuration for errors.
func (c ZKConfig) Validate() error {
	switch c.Backend {
	case BackendPlonk:
		if c.KeysDir == "" && !c.DevSetup {
			return fmt.Errorf("zkconfig: keys_dir is required for the plonk backend")
		}
	case BackendAccept, BackendReject:
	default:
		return fmt.Errorf("zkconfig: %w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.ProofTimeout <= 0 {
		return fmt.Errorf("zkconfig: proof_timeout must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("zkconfig: workers must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("zkconfig: cache_size must not be negative")
	}
	return nil
}

// String returns a human-readable representation of the config.
func (c ZKConfig) String() string {
	if c.Backend != BackendPlonk {
		return fmt.Sprintf("ZKConfig{Backend: %s}", c.Backend)
	}
	return fmt.Sprintf("ZKConfig{Backend: plonk, KeysDir: %s, Workers: %d, Timeout: %v, Cache: %d}",
		c.KeysDir, c.Workers, c.ProofTimeout, c.CacheSize)
}

// checker is the per-proof verification the workers run.
type checker interface {
	VerifyProof(circuit aura.Circuit, proof []byte, inputs []aura.Digest) error
}

type job struct {
	ctx     context.Context
	circuit aura.Circuit
	proof   []byte
	inputs  []aura.Digest
	result  chan error
}

// ZKService verifies ledger proofs.
type ZKService struct {
	config   ZKConfig
	logger   *slog.Logger
	static   *Static
	checker  checker
	circuits []aura.Circuit
	cache    *resultCache

	jobs      chan job
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Metrics tracked atomically
	proofsVerified uint64
	proofsRejected uint64
	cacheHits      uint64
	timeouts       uint64
}

// NewZKService creates a ZKService and starts its workers.
//
// With the plonk backend the verifying keys are loaded from KeysDir. If
// they are missing and DevSetup is set, the circuits are compiled at
// startup instead, which takes several seconds.
func NewZKService(config ZKConfig, logger *slog.Logger) (*ZKService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc := &ZKService{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	switch config.Backend {
	case BackendAccept:
		s := Accept
		svc.static = &s
		logger.Warn("zk backend accepts every proof")
		return svc, nil
	case BackendReject:
		s := Reject
		svc.static = &s
		return svc, nil
	}

	compiled, err := loadCircuits(config, logger)
	if err != nil {
		return nil, err
	}
	verifier := zkproof.NewVerifier(compiled...)
	svc.checker = verifier
	svc.circuits = verifier.Circuits()

	cache, err := newResultCache(config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create verification cache: %w", err)
	}
	svc.cache = cache
	svc.start()

	return svc, nil
}

func loadCircuits(config ZKConfig, logger *slog.Logger) ([]*zkproof.CompiledCircuit, error) {
	if config.KeysDir != "" {
		compiled, err := zkproof.LoadAll(config.KeysDir, false)
		if err == nil {
			logger.Info("zk verifying keys loaded", "dir", config.KeysDir)
			return compiled, nil
		}
		if !config.DevSetup || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitNotReady, err)
		}
	}

	logger.Warn("zk keys not found, compiling circuits with an unsafe SRS")
	compiled, err := zkproof.CompileAll()
	if err != nil {
		return nil, fmt.Errorf("compile circuits: %w", err)
	}
	return compiled, nil
}

// newWithChecker builds a plonk-shaped service around an arbitrary checker.
func newWithChecker(config ZKConfig, c checker, logger *slog.Logger) (*ZKService, error) {
	cache, err := newResultCache(config.CacheSize)
	if err != nil {
		return nil, err
	}
	svc := &ZKService{
		config:   config,
		logger:   logger,
		checker:  c,
		circuits: aura.Circuits,
		cache:    cache,
		done:     make(chan struct{}),
	}
	svc.start()
	return svc, nil
}

func (zk *ZKService) start() {
	zk.jobs = make(chan job)
	for i := 0; i < zk.config.Workers; i++ {
		zk.wg.Add(1)
		go zk.worker()
	}
}

func (zk *ZKService) worker() {
	defer zk.wg.Done()
	for {
		select {
		case <-zk.done:
			return
		case j := <-zk.jobs:
			if err := j.ctx.Err(); err != nil {
				j.result <- err
				continue
			}
			err := zk.checker.VerifyProof(j.circuit, j.proof, j.inputs)
			zk.cache.add(keyOf(j.circuit, j.proof, j.inputs), err == nil)
			j.result <- err
		}
	}
}

// Verify implements the ledger's verifier contract. Any failure, a timeout
// or a closed service yields false.
func (zk *ZKService) Verify(ctx context.Context, circuit aura.Circuit, proof []byte, inputs []aura.Digest) bool {
	if zk.static != nil {
		return zk.static.Verify(ctx, circuit, proof, inputs)
	}

	err := zk.VerifyProof(ctx, circuit, proof, inputs)
	if err != nil {
		zk.logger.Debug("proof rejected", "circuit", circuit, "error", err)
	}
	return err == nil
}

// VerifyProof checks one proof and reports why it failed.
func (zk *ZKService) VerifyProof(ctx context.Context, circuit aura.Circuit, proof []byte, inputs []aura.Digest) error {
	if zk.static != nil {
		if zk.static.Verify(ctx, circuit, proof, inputs) {
			return nil
		}
		return ErrProofVerificationFailed
	}

	if valid, ok := zk.cache.get(keyOf(circuit, proof, inputs)); ok {
		atomic.AddUint64(&zk.cacheHits, 1)
		return zk.record(resultErr(valid))
	}

	ctx, cancel := context.WithTimeout(ctx, zk.config.ProofTimeout)
	defer cancel()

	j := job{ctx: ctx, circuit: circuit, proof: proof, inputs: inputs, result: make(chan error, 1)}
	select {
	case <-zk.done:
		return ErrServiceClosed
	case <-ctx.Done():
		return zk.contextErr(ctx)
	case zk.jobs <- j:
	}

	select {
	case err := <-j.result:
		if err != nil && ctx.Err() != nil {
			return zk.contextErr(ctx)
		}
		if err != nil {
			err = fmt.Errorf("%w: %v", ErrProofVerificationFailed, err)
		}
		return zk.record(err)
	case <-ctx.Done():
		return zk.contextErr(ctx)
	}
}

func resultErr(valid bool) error {
	if valid {
		return nil
	}
	return ErrProofVerificationFailed
}

func (zk *ZKService) record(err error) error {
	if err != nil {
		atomic.AddUint64(&zk.proofsRejected, 1)
	} else {
		atomic.AddUint64(&zk.proofsVerified, 1)
	}
	return err
}

func (zk *ZKService) contextErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		atomic.AddUint64(&zk.timeouts, 1)
		return ErrProofTimeout
	}
	return ctx.Err()
}

// Capability describes what this service accepts.
func (zk *ZKService) Capability() Capability {
	c := Capability{Backend: zk.config.Backend}
	if zk.config.Backend == BackendPlonk {
		c.ProofSystem = SupportedProofSystem
		c.Circuits = append([]aura.Circuit(nil), zk.circuits...)
	}
	return c
}

// GetConfig returns a copy of the service configuration.
func (zk *ZKService) GetConfig() ZKConfig {
	return zk.config
}

// Stats is a snapshot of the service metrics.
type Stats struct {
	Verified  uint64 `json:"verified"`
	Rejected  uint64 `json:"rejected"`
	CacheHits uint64 `json:"cache_hits"`
	Timeouts  uint64 `json:"timeouts"`
	Cached    int    `json:"cached"`
}

// Stats returns the current metrics for verification.
func (zk *ZKService) Stats() Stats {
	return Stats{
		Verified:  atomic.LoadUint64(&zk.proofsVerified),
		Rejected:  atomic.LoadUint64(&zk.proofsRejected),
		CacheHits: atomic.LoadUint64(&zk.cacheHits),
		Timeouts:  atomic.LoadUint64(&zk.timeouts),
		Cached:    zk.cache.len(),
	}
}

// Close stops the workers. Verifications after Close fail.
func (zk *ZKService) Close() {
	zk.closeOnce.Do(func() {
		close(zk.done)
	})
	zk.wg.Wait()
}
