package ipc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mymonad/aura/internal/crypto"
	"github.com/mymonad/aura/internal/zkproof"
	"github.com/mymonad/aura/pkg/aura"
)

// defaultRPCTimeout is the default timeout for RPC calls.
const defaultRPCTimeout = 5 * time.Second

var (
	// ErrEmptySocketPath is returned when an empty socket path is provided.
	ErrEmptySocketPath = errors.New("socket path cannot be empty")

	// ErrNoIdentity is returned by signed calls on a query-only client.
	ErrNoIdentity = errors.New("client has no identity")
)

// Client is the IPC client for a running aura node. Mutating calls are
// signed with the client's identity; a client created with a nil identity
// can only query.
type Client struct {
	conn     *grpc.ClientConn
	identity *crypto.Identity
	timeout  time.Duration
	now      func() time.Time
}

// NewClient creates a client that connects to the node via the Unix
// socket at sockPath.
func NewClient(sockPath string, identity *crypto.Identity) (*Client, error) {
	if sockPath == "" {
		return nil, ErrEmptySocketPath
	}

	conn, err := grpc.NewClient(
		"unix://"+sockPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IPC socket: %w", err)
	}

	return &Client{
		conn:     conn,
		identity: identity,
		timeout:  defaultRPCTimeout,
		now:      time.Now,
	}, nil
}

// Close closes the connection to the node.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Principal returns the principal the client signs as.
func (c *Client) Principal() aura.Principal {
	if c.identity == nil {
		return aura.Principal{}
	}
	return c.identity.Principal
}

func (c *Client) invoke(ctx context.Context, name string, req, resp any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.conn.Invoke(ctx, fullMethod(name), req, resp); err != nil {
		return fromStatus(err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, name string, payload, resp any) error {
	if c.identity == nil {
		return ErrNoIdentity
	}
	env, err := Seal(c.identity, c.identity.Principal, fullMethod(name), payload, c.now())
	if err != nil {
		return err
	}
	return c.invoke(ctx, name, env, resp)
}

// Register registers the client's identity.
func (c *Client) Register(ctx context.Context, biometric, preferences aura.Digest, proof []byte) (aura.Profile, error) {
	var profile aura.Profile
	err := c.call(ctx, "Register", &RegisterRequest{
		Biometric:   biometric,
		Preferences: preferences,
		Proof:       proof,
	}, &profile)
	return profile, err
}

// UpdatePreferences replaces the client's preferences commitment.
func (c *Client) UpdatePreferences(ctx context.Context, preferences aura.Digest, proof []byte) error {
	return c.call(ctx, "UpdatePreferences", &UpdatePreferencesRequest{
		Preferences: preferences,
		Proof:       proof,
	}, &Empty{})
}

// SetActive toggles a profile's active flag.
func (c *Client) SetActive(ctx context.Context, principal aura.Principal, active bool) error {
	return c.call(ctx, "SetActive", &SetActiveRequest{Principal: principal, Active: active}, &Empty{})
}

// VerifyProfile marks a profile verified. Owner only.
func (c *Client) VerifyProfile(ctx context.Context, principal aura.Principal) error {
	return c.call(ctx, "VerifyProfile", &PrincipalRequest{Principal: principal}, &Empty{})
}

// SubmitIntent declares or refreshes a matching intent.
func (c *Client) SubmitIntent(ctx context.Context, commitment aura.Digest, threshold uint64, proof []byte) (aura.MatchingIntent, error) {
	var intent aura.MatchingIntent
	err := c.call(ctx, "SubmitIntent", &SubmitIntentRequest{
		Commitment:    commitment,
		AuraThreshold: threshold,
		Proof:         proof,
	}, &intent)
	return intent, err
}

// RecordMutualMatch records a match between a and b. Owner only.
func (c *Client) RecordMutualMatch(ctx context.Context, a, b aura.Principal, score int, proof []byte) (aura.MutualMatch, error) {
	var match aura.MutualMatch
	err := c.call(ctx, "RecordMutualMatch", &RecordMatchRequest{A: a, B: b, Score: score, Proof: proof}, &match)
	return match, err
}

// InitiateReveal discloses the client's side of a match.
func (c *Client) InitiateReveal(ctx context.Context, matchID, revealCommitment aura.Digest, proof []byte) (aura.MutualMatch, error) {
	var match aura.MutualMatch
	err := c.call(ctx, "InitiateReveal", &InitiateRevealRequest{
		MatchID:          matchID,
		RevealCommitment: revealCommitment,
		Proof:            proof,
	}, &match)
	return match, err
}

// AwardBonus credits points to a profile. Owner only.
func (c *Client) AwardBonus(ctx context.Context, principal aura.Principal, points uint64, reason string) error {
	return c.call(ctx, "AwardBonus", &AdjustAuraRequest{Principal: principal, Points: points, Reason: reason}, &Empty{})
}

// DeductPenalty removes up to points from a profile and returns the
// amount actually removed. Owner only.
func (c *Client) DeductPenalty(ctx context.Context, principal aura.Principal, points uint64, reason string) (uint64, error) {
	var resp DeductResponse
	err := c.call(ctx, "DeductPenalty", &AdjustAuraRequest{Principal: principal, Points: points, Reason: reason}, &resp)
	return resp.Removed, err
}

// SetPaused engages or releases the system-wide halt. Owner only.
func (c *Client) SetPaused(ctx context.Context, paused bool) error {
	return c.call(ctx, "SetPaused", &SetPausedRequest{Paused: paused}, &Empty{})
}

// TransferOwnership hands the owner role to newOwner. Owner only.
func (c *Client) TransferOwnership(ctx context.Context, newOwner aura.Principal) error {
	return c.call(ctx, "TransferOwnership", &TransferOwnershipRequest{NewOwner: newOwner}, &Empty{})
}

// Profile returns the profile of principal.
func (c *Client) Profile(ctx context.Context, principal aura.Principal) (aura.Profile, error) {
	var profile aura.Profile
	err := c.invoke(ctx, "GetProfile", &PrincipalRequest{Principal: principal}, &profile)
	return profile, err
}

// Intent returns the intent stored under commitment.
func (c *Client) Intent(ctx context.Context, commitment aura.Digest) (aura.MatchingIntent, error) {
	var intent aura.MatchingIntent
	err := c.invoke(ctx, "GetIntent", &DigestRequest{Digest: commitment}, &intent)
	return intent, err
}

// Match returns the match with the given id.
func (c *Client) Match(ctx context.Context, id aura.Digest) (aura.MutualMatch, error) {
	var match aura.MutualMatch
	err := c.invoke(ctx, "GetMatch", &DigestRequest{Digest: id}, &match)
	return match, err
}

// Stats returns the ledger counters.
func (c *Client) Stats(ctx context.Context) (aura.Stats, error) {
	var stats aura.Stats
	err := c.invoke(ctx, "GetStats", &Empty{}, &stats)
	return stats, err
}

// HasRevealed reports whether revealer has disclosed to counterpart.
func (c *Client) HasRevealed(ctx context.Context, revealer, counterpart aura.Principal) (bool, error) {
	var resp BoolResponse
	err := c.invoke(ctx, "HasRevealed", &PairRequest{Revealer: revealer, Counterpart: counterpart}, &resp)
	return resp.Value, err
}

// RevealRecords lists the reveals made by revealer, oldest first.
func (c *Client) RevealRecords(ctx context.Context, revealer aura.Principal) ([]aura.RevealRecord, error) {
	var resp RevealRecordsResponse
	err := c.invoke(ctx, "RevealRecords", &PrincipalRequest{Principal: revealer}, &resp)
	return resp.Records, err
}

// EligibleCounterpart reports whether principal meets the threshold of
// the intent stored under commitment.
func (c *Client) EligibleCounterpart(ctx context.Context, commitment aura.Digest, principal aura.Principal) (bool, error) {
	var resp BoolResponse
	err := c.invoke(ctx, "EligibleCounterpart", &EligibleRequest{Commitment: commitment, Principal: principal}, &resp)
	return resp.Value, err
}

// Events returns up to limit recent audit events, optionally filtered by
// principal.
func (c *Client) Events(ctx context.Context, principal aura.Principal, limit int) ([]aura.Event, error) {
	var resp EventsResponse
	err := c.invoke(ctx, "Events", &EventsRequest{Principal: principal, Limit: limit}, &resp)
	return resp.Events, err
}

// Capability returns the node's proof verification capability.
func (c *Client) Capability(ctx context.Context) (zkproof.Capability, error) {
	var resp CapabilityResponse
	err := c.invoke(ctx, "Capability", &Empty{}, &resp)
	return resp.Capability, err
}
