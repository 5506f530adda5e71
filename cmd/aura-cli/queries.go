package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mymonad/aura/pkg/aura"
)

// Profile shows a profile, by default the stored identity's.
func (c *CLI) Profile(args []string) error {
	target, err := c.principalArg(args)
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	p, err := client.Profile(ctx, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Principal: %s\n", p.Principal)
	fmt.Fprintf(c.output, "Aura: %d\n", p.AuraPoints)
	fmt.Fprintf(c.output, "Active: %v\n", p.Active)
	fmt.Fprintf(c.output, "Verified: %v\n", p.Verified)
	fmt.Fprintf(c.output, "Matches: %d\n", p.MatchCount)
	fmt.Fprintf(c.output, "Reveals: %d\n", p.RevealCount)
	fmt.Fprintf(c.output, "Registered: %s\n", formatTime(p.RegisteredAt))
	fmt.Fprintf(c.output, "Last Active: %s\n", formatTime(p.LastActiveAt))
	return nil
}

// ShowIntent shows the intent stored under a commitment.
func (c *CLI) ShowIntent(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: aura-cli show-intent <commitment>")
	}
	commit, err := aura.ParseDigest(args[0])
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	i, err := client.Intent(ctx, commit)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Owner: %s\n", i.Owner)
	fmt.Fprintf(c.output, "Threshold: %d\n", i.AuraThreshold)
	fmt.Fprintf(c.output, "Active: %v\n", i.Active)
	fmt.Fprintf(c.output, "Version: %d\n", i.Version)
	fmt.Fprintf(c.output, "Updated: %s\n", formatTime(i.UpdatedAt))
	fmt.Fprintf(c.output, "Expires: %s\n", formatTime(i.ExpiresAt))
	return nil
}

// ShowMatch shows a match and its reveal state.
func (c *CLI) ShowMatch(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: aura-cli show-match <match-id>")
	}
	id, err := aura.ParseDigest(args[0])
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	m, err := client.Match(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Match: %s\n", m.ID)
	fmt.Fprintf(c.output, "  %s revealed: %v\n", m.ParticipantA, m.RevealedA)
	fmt.Fprintf(c.output, "  %s revealed: %v\n", m.ParticipantB, m.RevealedB)
	fmt.Fprintf(c.output, "Score: %d\n", m.CompatibilityScore)
	fmt.Fprintf(c.output, "Matched: %s\n", formatTime(m.MatchedAt))
	fmt.Fprintf(c.output, "Mutually Revealed: %s\n", formatTime(m.MutualRevealedAt))
	return nil
}

// Stats shows the ledger counters.
func (c *CLI) Stats() error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	s, err := client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.output, "=== Aura Ledger ===")
	fmt.Fprintf(c.output, "Owner: %s\n", s.Owner)
	fmt.Fprintf(c.output, "Paused: %v\n", s.Paused)
	fmt.Fprintf(c.output, "Users: %d\n", s.TotalUsers)
	fmt.Fprintf(c.output, "Intents: %d\n", s.TotalIntents)
	fmt.Fprintf(c.output, "Matches: %d\n", s.TotalMatches)
	fmt.Fprintf(c.output, "Reveals: %d\n", s.TotalReveals)
	return nil
}

// Revealed reports whether one principal has revealed to another.
func (c *CLI) Revealed(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: aura-cli revealed <revealer> <counterpart>")
	}
	revealer, err := aura.ParsePrincipal(args[0])
	if err != nil {
		return err
	}
	counterpart, err := aura.ParsePrincipal(args[1])
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	ok, err := client.HasRevealed(ctx, revealer, counterpart)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "%v\n", ok)
	return nil
}

// Reveals lists the reveals a principal made.
func (c *CLI) Reveals(args []string) error {
	target, err := c.principalArg(args)
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	records, err := client.RevealRecords(ctx, target)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(c.output, "No reveals")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(c.output, "%s  to %s  match %s\n", formatTime(r.RevealedAt), r.Counterpart, r.MatchID.Short())
	}
	return nil
}

// Eligible reports whether a principal meets an intent's threshold.
func (c *CLI) Eligible(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: aura-cli eligible <commitment> <principal>")
	}
	commit, err := aura.ParseDigest(args[0])
	if err != nil {
		return err
	}
	target, err := aura.ParsePrincipal(args[1])
	if err != nil {
		return err
	}
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	ok, err := client.EligibleCounterpart(ctx, commit, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "%v\n", ok)
	return nil
}

// Events lists recent audit events.
func (c *CLI) Events(args []string) error {
	fs := c.flags("events")
	principal := fs.String("principal", "", "Only events involving this principal")
	limit := fs.Int("limit", 20, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var target aura.Principal
	if *principal != "" {
		p, err := aura.ParsePrincipal(*principal)
		if err != nil {
			return err
		}
		target = p
	}

	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	events, err := client.Events(ctx, target, *limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(c.output, "#%d %s %-22s %s", e.Seq, formatTime(e.At), e.Kind, e.Principal)
		if e.Points > 0 {
			fmt.Fprintf(c.output, " points=%d", e.Points)
		}
		if e.Reason != "" {
			fmt.Fprintf(c.output, " reason=%q", e.Reason)
		}
		fmt.Fprintln(c.output)
	}
	return nil
}

// Capability shows how the node verifies proofs.
func (c *CLI) Capability() error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	ctx, cancel := timeout()
	defer cancel()

	capability, err := client.Capability(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "Backend: %s\n", capability.Backend)
	if capability.ProofSystem != "" {
		fmt.Fprintf(c.output, "Proof System: %s\n", capability.ProofSystem)
	}
	for _, circuit := range capability.Circuits {
		fmt.Fprintf(c.output, "  - %s\n", circuit)
	}
	return nil
}

// formatTime formats a timestamp for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// printUsage prints the CLI usage information to stdout.
func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo prints the CLI usage information to the given writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, "Usage: aura-cli <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Identity:")
	fmt.Fprintln(w, "  keygen [-force]                        Create an identity and print its recovery phrase")
	fmt.Fprintln(w, "  recover <words...>                     Restore an identity from its recovery phrase")
	fmt.Fprintln(w, "  whoami                                 Show the stored principal and DID")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Ledger:")
	fmt.Fprintln(w, "  register -biometric <f> -preferences <f>")
	fmt.Fprintln(w, "  preferences -file <f>                  Replace the preferences commitment")
	fmt.Fprintln(w, "  intent [-threshold n] [-nonce s]       Submit a matching intent")
	fmt.Fprintln(w, "  reveal <match-id>                      Disclose your side of a match")
	fmt.Fprintln(w, "  activate|deactivate [principal]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Owner:")
	fmt.Fprintln(w, "  match <a> <b> <score>                  Record a mutual match")
	fmt.Fprintln(w, "  verify <principal>")
	fmt.Fprintln(w, "  award|deduct <principal> <points> [reason]")
	fmt.Fprintln(w, "  pause|unpause")
	fmt.Fprintln(w, "  transfer <principal>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Queries:")
	fmt.Fprintln(w, "  profile [principal]   show-intent <c>   show-match <id>   stats")
	fmt.Fprintln(w, "  revealed <a> <b>      reveals [principal]   eligible <c> <principal>")
	fmt.Fprintln(w, "  events [-principal p] [-limit n]      capability")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment: AURA_SOCKET, AURA_IDENTITY, AURA_KEYS_DIR, AURA_PASSPHRASE")
}
