package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mymonad/aura/internal/config"
	"github.com/mymonad/aura/internal/crypto"
	"github.com/mymonad/aura/internal/ipc"
	"github.com/mymonad/aura/pkg/aura"
)

// defaultRPCTimeout bounds one command, proving included.
const defaultRPCTimeout = 2 * time.Minute

// Environment variables read by NewCLIWithDefaults.
const (
	envSocket     = "AURA_SOCKET"
	envIdentity   = "AURA_IDENTITY"
	envKeysDir    = "AURA_KEYS_DIR"
	envPassphrase = "AURA_PASSPHRASE"
)

var (
	// ErrNoPassphrase is returned when the identity file needs a passphrase
	// and none was provided.
	ErrNoPassphrase = errors.New("identity passphrase is required (set " + envPassphrase + ")")

	// ErrIdentityExists is returned by keygen when an identity is already stored.
	ErrIdentityExists = errors.New("identity already exists (use -force to replace it)")
)

// CLI provides commands for interacting with an aura node.
type CLI struct {
	socket       string
	identityPath string
	keysDir      string
	passphrase   string
	client       *ipc.Client
	identity     *crypto.Identity
	output       io.Writer
}

// NewCLI creates a new CLI instance.
func NewCLI(socket, identityPath, keysDir, passphrase string) *CLI {
	return &CLI{
		socket:       socket,
		identityPath: identityPath,
		keysDir:      keysDir,
		passphrase:   passphrase,
		output:       os.Stdout,
	}
}

// NewCLIWithDefaults creates a CLI using the default paths, overridden by
// the AURA_* environment variables.
func NewCLIWithDefaults() *CLI {
	paths := config.DefaultPaths()
	return NewCLI(
		envOr(envSocket, paths.NodeSocket),
		envOr(envIdentity, paths.IdentityPath),
		envOr(envKeysDir, paths.KeysDir),
		os.Getenv(envPassphrase),
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return config.ExpandPath(v)
	}
	return fallback
}

// connect establishes the connection to the node, signing with the
// identity if one was loaded before.
func (c *CLI) connect() (*ipc.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	client, err := ipc.NewClient(c.socket, c.identity)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *CLI) loadIdentity() (*crypto.Identity, error) {
	if c.identity != nil {
		return c.identity, nil
	}
	if c.passphrase == "" {
		return nil, ErrNoPassphrase
	}
	id, err := crypto.LoadIdentity(c.identityPath, c.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	c.identity = id
	return id, nil
}

// signer returns a client that signs as the stored identity.
func (c *CLI) signer() (*ipc.Client, *crypto.Identity, error) {
	id, err := c.loadIdentity()
	if err != nil {
		return nil, nil, err
	}
	client, err := c.connect()
	if err != nil {
		return nil, nil, err
	}
	return client, id, nil
}

// Close closes the node connection.
func (c *CLI) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *CLI) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.output)
	return fs
}

func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultRPCTimeout)
}

// Keygen creates and stores a new identity and prints its recovery phrase.
func (c *CLI) Keygen(args []string) error {
	fs := c.flags("keygen")
	force := fs.Bool("force", false, "Replace an existing identity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.passphrase == "" {
		return ErrNoPassphrase
	}
	if _, err := os.Stat(c.identityPath); err == nil && !*force {
		return ErrIdentityExists
	}

	id, mnemonic, err := crypto.NewIdentityWithMnemonic()
	if err != nil {
		return err
	}
	if err := crypto.SaveIdentity(id, c.identityPath, c.passphrase); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	c.identity = id

	fmt.Fprintf(c.output, "Principal: %s\n", id.Principal)
	fmt.Fprintf(c.output, "DID: %s\n", id.DID)
	fmt.Fprintf(c.output, "Saved to: %s\n", c.identityPath)
	fmt.Fprintln(c.output)
	fmt.Fprintln(c.output, "Recovery phrase (write it down, it is shown once):")
	fmt.Fprintf(c.output, "  %s\n", mnemonic)
	return nil
}

// Recover restores an identity from its recovery phrase.
func (c *CLI) Recover(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: aura-cli recover <word> <word> ...")
	}
	if c.passphrase == "" {
		return ErrNoPassphrase
	}
	id, err := crypto.IdentityFromMnemonic(strings.Join(args, " "))
	if err != nil {
		return err
	}
	if err := crypto.SaveIdentity(id, c.identityPath, c.passphrase); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	c.identity = id
	fmt.Fprintf(c.output, "Recovered principal: %s\n", id.Principal)
	return nil
}

// Whoami prints the stored identity.
func (c *CLI) Whoami() error {
	id, err := c.loadIdentity()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Principal: %s\n", id.Principal)
	fmt.Fprintf(c.output, "DID: %s\n", id.DID)
	return nil
}

// Register commits to a biometric template and a preferences file and
// registers the identity.
func (c *CLI) Register(args []string) error {
	fs := c.flags("register")
	biometricFile := fs.String("biometric", "", "File holding the biometric template")
	prefsFile := fs.String("preferences", "", "File holding the matching preferences")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *biometricFile == "" || *prefsFile == "" {
		return errors.New("usage: aura-cli register -biometric <file> -preferences <file>")
	}

	client, id, err := c.signer()
	if err != nil {
		return err
	}
	bioLabel, err := fileLabel(labelBiometric, *biometricFile)
	if err != nil {
		return err
	}
	prefsLabel, err := fileLabel(labelPreferences, *prefsFile)
	if err != nil {
		return err
	}

	ctx, cancel := timeout()
	defer cancel()
	p, err := newProver(ctx, c, id)
	if err != nil {
		return err
	}

	biometric := commitment(id, aura.CircuitRegistration, bioLabel, id.Principal.Digest())
	prefs := commitment(id, aura.CircuitPreferences, prefsLabel, id.Principal.Digest())
	proof, err := p.statement(aura.CircuitRegistration, bioLabel, aura.RegistrationInputs(biometric, id.Principal))
	if err != nil {
		return fmt.Errorf("failed to prove registration: %w", err)
	}

	profile, err := client.Register(ctx, biometric, prefs, proof)
	if err != nil {
		return fmt.Errorf("failed to register: %w", err)
	}
	fmt.Fprintf(c.output, "Registered %s with %d aura\n", profile.Principal, profile.AuraPoints)
	return nil
}

// Preferences replaces the preferences commitment.
func (c *CLI) Preferences(args []string) error {
	fs := c.flags("preferences")
	prefsFile := fs.String("file", "", "File holding the matching preferences")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *prefsFile == "" {
		return errors.New("usage: aura-cli preferences -file <file>")
	}

	client, id, err := c.signer()
	if err != nil {
		return err
	}
	label, err := fileLabel(labelPreferences, *prefsFile)
	if err != nil {
		return err
	}

	ctx, cancel := timeout()
	defer cancel()
	p, err := newProver(ctx, c, id)
	if err != nil {
		return err
	}

	prefs := commitment(id, aura.CircuitPreferences, label, id.Principal.Digest())
	proof, err := p.statement(aura.CircuitPreferences, label, aura.PreferencesInputs(prefs, id.Principal))
	if err != nil {
		return fmt.Errorf("failed to prove preferences: %w", err)
	}
	if err := client.UpdatePreferences(ctx, prefs, proof); err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}
	fmt.Fprintf(c.output, "Preferences commitment: %s\n", prefs)
	return nil
}

// Intent submits a matching intent.
func (c *CLI) Intent(args []string) error {
	fs := c.flags("intent")
	threshold := fs.Uint64("threshold", 0, "Minimum aura a counterpart must hold")
	nonce := fs.String("nonce", "default", "Distinguishes several intents of one identity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, id, err := c.signer()
	if err != nil {
		return err
	}

	ctx, cancel := timeout()
	defer cancel()
	p, err := newProver(ctx, c, id)
	if err != nil {
		return err
	}

	label := labelIntent + *nonce + "/" + strconv.FormatUint(*threshold, 10)
	commit := commitment(id, aura.CircuitMatching, label, id.Principal.Digest(), aura.DigestFromUint64(*threshold))
	proof, err := p.statement(aura.CircuitMatching, label, aura.MatchingInputs(commit, id.Principal, *threshold))
	if err != nil {
		return fmt.Errorf("failed to prove intent: %w", err)
	}

	intent, err := client.SubmitIntent(ctx, commit, *threshold, proof)
	if err != nil {
		return fmt.Errorf("failed to submit intent: %w", err)
	}
	fmt.Fprintf(c.output, "Intent: %s (version %d)\n", intent.Commitment, intent.Version)
	if !intent.ExpiresAt.IsZero() {
		fmt.Fprintf(c.output, "Expires: %s\n", formatTime(intent.ExpiresAt))
	}
	return nil
}

// Match records a mutual match. Owner only.
func (c *CLI) Match(args []string) error {
	if len(args) != 3 {
		return errors.New("usage: aura-cli match <principal-a> <principal-b> <score>")
	}
	a, err := aura.ParsePrincipal(args[0])
	if err != nil {
		return err
	}
	b, err := aura.ParsePrincipal(args[1])
	if err != nil {
		return err
	}
	score, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid score: %w", err)
	}

	client, id, err := c.signer()
	if err != nil {
		return err
	}

	ctx, cancel := timeout()
	defer cancel()
	p, err := newProver(ctx, c, id)
	if err != nil {
		return err
	}
	var proof []byte
	if score >= 0 && score <= 100 {
		if proof, err = p.attestation(a, b, score); err != nil {
			return fmt.Errorf("failed to prove match: %w", err)
		}
	}

	match, err := client.RecordMutualMatch(ctx, a, b, score, proof)
	if err != nil {
		return fmt.Errorf("failed to record match: %w", err)
	}
	fmt.Fprintf(c.output, "Match: %s\n", match.ID)
	return nil
}

// Reveal discloses the identity's side of a match.
func (c *CLI) Reveal(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: aura-cli reveal <match-id>")
	}
	matchID, err := aura.ParseDigest(args[0])
	if err != nil {
		return err
	}

	client, id, err := c.signer()
	if err != nil {
		return err
	}

	ctx, cancel := timeout()
	defer cancel()
	p, err := newProver(ctx, c, id)
	if err != nil {
		return err
	}

	label := labelReveal + matchID.String()
	commit := commitment(id, aura.CircuitReveal, label, matchID, id.Principal.Digest())
	proof, err := p.statement(aura.CircuitReveal, label, aura.RevealInputs(commit, matchID, id.Principal))
	if err != nil {
		return fmt.Errorf("failed to prove reveal: %w", err)
	}

	match, err := client.InitiateReveal(ctx, matchID, commit, proof)
	if err != nil {
		return fmt.Errorf("failed to reveal: %w", err)
	}
	if match.MutuallyRevealed() {
		fmt.Fprintf(c.output, "Mutually revealed with %s\n", match.Counterpart(id.Principal))
	} else {
		fmt.Fprintf(c.output, "Revealed, waiting for %s\n", match.Counterpart(id.Principal))
	}
	return nil
}

// principalArg parses the single principal argument, defaulting to the
// stored identity.
func (c *CLI) principalArg(args []string) (aura.Principal, error) {
	if len(args) > 0 {
		return aura.ParsePrincipal(args[0])
	}
	id, err := c.loadIdentity()
	if err != nil {
		return aura.Principal{}, err
	}
	return id.Principal, nil
}

// SetActive activates or deactivates a profile.
func (c *CLI) SetActive(args []string, active bool) error {
	target, err := c.principalArg(args)
	if err != nil {
		return err
	}
	client, _, err := c.signer()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	if err := client.SetActive(ctx, target, active); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "%s active: %v\n", target, active)
	return nil
}

// Verify marks a profile verified. Owner only.
func (c *CLI) Verify(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: aura-cli verify <principal>")
	}
	target, err := aura.ParsePrincipal(args[0])
	if err != nil {
		return err
	}
	client, _, err := c.signer()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	if err := client.VerifyProfile(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Verified %s\n", target)
	return nil
}

// Adjust awards (deduct false) or deducts aura. Owner only.
func (c *CLI) Adjust(args []string, deduct bool) error {
	if len(args) < 2 {
		return errors.New("usage: aura-cli award|deduct <principal> <points> [reason]")
	}
	target, err := aura.ParsePrincipal(args[0])
	if err != nil {
		return err
	}
	points, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid points: %w", err)
	}
	reason := strings.Join(args[2:], " ")

	client, _, err := c.signer()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	if !deduct {
		if err := client.AwardBonus(ctx, target, points, reason); err != nil {
			return err
		}
		fmt.Fprintf(c.output, "Awarded %d aura to %s\n", points, target)
		return nil
	}
	removed, err := client.DeductPenalty(ctx, target, points, reason)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Deducted %d aura from %s\n", removed, target)
	return nil
}

// Pause engages or releases the system-wide halt. Owner only.
func (c *CLI) Pause(paused bool) error {
	client, _, err := c.signer()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	if err := client.SetPaused(ctx, paused); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Paused: %v\n", paused)
	return nil
}

// Transfer hands the owner role to another principal. Owner only.
func (c *CLI) Transfer(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: aura-cli transfer <principal>")
	}
	target, err := aura.ParsePrincipal(args[0])
	if err != nil {
		return err
	}
	client, _, err := c.signer()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()
	if err := client.TransferOwnership(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Ownership transferred to %s\n", target)
	return nil
}
