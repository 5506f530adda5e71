package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPrincipal(n byte) aura.Principal {
	var p aura.Principal
	p[0] = n
	p[31] = 0x11
	return p
}

func testEvent(seq uint64, kind aura.EventKind, p aura.Principal) aura.Event {
	return aura.Event{
		ID:        "evt-" + string(rune('a'+seq%26)) + time.Duration(seq).String(),
		Seq:       seq,
		Kind:      kind,
		Principal: p,
		At:        time.Date(2026, 1, 1, 0, 0, int(seq), 0, time.UTC),
	}
}

type collector struct {
	mu     sync.Mutex
	events []aura.Event
}

func (c *collector) Name() string { return "collector" }

func (c *collector) Handle(_ context.Context, e aura.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher(16, quietLogger())
	c := &collector{}
	d.Subscribe(c)
	d.Start(context.Background())

	for i := uint64(1); i <= 10; i++ {
		d.Publish(testEvent(i, aura.EventRegistered, testPrincipal(1)))
	}
	d.Close()

	require.Len(t, c.events, 10)
	for i, e := range c.events {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
	assert.Zero(t, d.Dropped())

	// Publishing after Close is a no-op.
	d.Publish(testEvent(11, aura.EventRegistered, testPrincipal(1)))
	assert.Len(t, c.events, 10)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, quietLogger())
	release := make(chan struct{})
	d.Subscribe(HandlerFunc{ID: "blocked", Fn: func(ctx context.Context, e aura.Event) error {
		<-release
		return nil
	}})

	// Not started: the single slot fills and the rest are dropped.
	for i := uint64(1); i <= 3; i++ {
		d.Publish(testEvent(i, aura.EventRegistered, testPrincipal(1)))
	}
	assert.Equal(t, uint64(2), d.Dropped())

	close(release)
	d.Start(context.Background())
	d.Close()
}

func TestDispatcher_CountsFailures(t *testing.T) {
	d := NewDispatcher(4, quietLogger())
	d.Subscribe(HandlerFunc{ID: "broken", Fn: func(ctx context.Context, e aura.Event) error {
		return errors.New("boom")
	}})
	d.Start(context.Background())
	d.Publish(testEvent(1, aura.EventPaused, testPrincipal(1)))
	d.Close()

	assert.Equal(t, uint64(1), d.Failed())
}

func TestJournal(t *testing.T) {
	j := NewJournal(3)
	ctx := context.Background()
	alice, bob := testPrincipal(1), testPrincipal(2)

	for i := uint64(1); i <= 5; i++ {
		p := alice
		if i%2 == 0 {
			p = bob
		}
		require.NoError(t, j.Handle(ctx, testEvent(i, aura.EventAuraAwarded, p)))
	}

	all, err := j.List(ctx, aura.Principal{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{3, 4, 5}, seqs(all))

	mine, err := j.List(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 5}, seqs(mine))

	last, err := j.List(ctx, aura.Principal{}, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, seqs(last))
}

func seqs(events []aura.Event) []uint64 {
	out := make([]uint64, len(events))
	for i, e := range events {
		out[i] = e.Seq
	}
	return out
}

func TestStore_RoundTrip(t *testing.T) {
	store, err := OpenStore(DriverSQLite, filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	alice, bob := testPrincipal(1), testPrincipal(2)

	match := testEvent(1, aura.EventMatchFound, alice)
	match.Counterpart = bob
	match.MatchID = aura.Digest{31: 9}
	match.Score = 88
	require.NoError(t, store.Handle(ctx, match))

	deducted := testEvent(2, aura.EventAuraDeducted, bob)
	deducted.Points = 10
	deducted.Requested = 40
	deducted.Reason = "spam"
	require.NoError(t, store.Handle(ctx, deducted))

	other := testEvent(3, aura.EventRegistered, testPrincipal(3))
	other.Commitment = aura.Digest{0: 1}
	require.NoError(t, store.Handle(ctx, other))

	all, err := store.List(ctx, aura.Principal{}, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, seqs(all))
	assert.Equal(t, bob, all[0].Counterpart)
	assert.Equal(t, aura.Digest{31: 9}, all[0].MatchID)
	assert.Equal(t, 88, all[0].Score)
	assert.Equal(t, aura.Digest{0: 1}, all[2].Commitment)
	assert.True(t, match.At.Equal(all[0].At))

	forBob, err := store.List(ctx, bob, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seqs(forBob))
	assert.Equal(t, uint64(40), forBob[1].Requested)

	latest, err := store.List(ctx, aura.Principal{}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, seqs(latest))

	seq, err := store.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)

	// Event ids are unique.
	assert.Error(t, store.Handle(ctx, match))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore("mysql", "x")
	require.Error(t, err)
}

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	exchange  string
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "aura.events", "aura")

	e := testEvent(7, aura.EventRevealed, testPrincipal(1))
	require.NoError(t, p.Handle(context.Background(), e))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "aura.events", ch.exchange)
	assert.Equal(t, "aura.revealed", ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, e.ID, msg.MessageId)

	var decoded aura.Event
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, e.Seq, decoded.Seq)
	assert.Equal(t, e.Principal, decoded.Principal)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Equal(t, "revealed", NewPublisher(ch, "x", "").RoutingKey(aura.EventRevealed))
}
