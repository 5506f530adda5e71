package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/pkg/aura"
)

type call struct {
	cypher string
	params map[string]any
}

type fakeClient struct {
	writes  []call
	reads   []call
	result  Result
	failure error
}

func (f *fakeClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	f.writes = append(f.writes, call{cypher, params})
	return Result{}, f.failure
}

func (f *fakeClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	f.reads = append(f.reads, call{cypher, params})
	return f.result, f.failure
}

func (f *fakeClient) VerifyConnectivity(context.Context) error { return nil }
func (f *fakeClient) Close(context.Context) error              { return nil }

func principal(n byte) aura.Principal {
	var p aura.Principal
	p[0] = n
	p[31] = 0x22
	return p
}

func TestProjector_Handle(t *testing.T) {
	client := &fakeClient{}
	p := NewProjector(client)
	ctx := context.Background()
	at := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	a, b := principal(1), principal(2)
	matchID := aura.Digest{31: 5}

	events := []aura.Event{
		{Kind: aura.EventRegistered, Principal: a, At: at},
		{Kind: aura.EventAuraAwarded, Principal: a, At: at},
		{Kind: aura.EventMatchFound, Principal: a, Counterpart: b, MatchID: matchID, Score: 77, At: at},
		{Kind: aura.EventRevealInitiated, Principal: b, Counterpart: a, MatchID: matchID, At: at},
		{Kind: aura.EventRevealed, Principal: a, Counterpart: b, MatchID: matchID, At: at},
		{Kind: aura.EventActiveChanged, Principal: a, Active: false, At: at},
	}
	for _, e := range events {
		require.NoError(t, p.Handle(ctx, e))
	}

	require.Len(t, client.writes, 5, "aura_awarded is not projected")
	assert.Equal(t, upsertPrincipal, client.writes[0].cypher)
	assert.Equal(t, a.String(), client.writes[0].params["principal"])

	assert.Equal(t, recordMatch, client.writes[1].cypher)
	assert.Equal(t, b.String(), client.writes[1].params["counterpart"])
	assert.Equal(t, matchID.String(), client.writes[1].params["match_id"])
	assert.Equal(t, int64(77), client.writes[1].params["score"])

	assert.Equal(t, recordReveal, client.writes[2].cypher)
	assert.Equal(t, recordMutual, client.writes[3].cypher)
	assert.Equal(t, false, client.writes[4].params["active"])
}

func TestProjector_HandleError(t *testing.T) {
	client := &fakeClient{failure: errors.New("bolt down")}
	p := NewProjector(client)

	err := p.Handle(context.Background(), aura.Event{Kind: aura.EventRegistered, Principal: principal(1), Seq: 4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered event 4")
}

func TestProjector_MatchedWith(t *testing.T) {
	client := &fakeClient{result: Result{Records: []Record{
		{"counterpart": "abc", "match_id": "0x01", "score": int64(90), "revealed": true},
		{"counterpart": "def", "match_id": "0x02", "score": int64(40), "revealed": false},
	}}}
	p := NewProjector(client)

	edges, err := p.MatchedWith(context.Background(), principal(1))
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{Counterpart: "abc", MatchID: "0x01", Score: 90, Revealed: true}, edges[0])
	assert.Equal(t, principal(1).String(), client.reads[0].params["principal"])
}

func TestNewNeo4jClient_MissingURI(t *testing.T) {
	_, err := NewNeo4jClient(context.Background(), Options{})
	require.ErrorIs(t, err, ErrMissingURI)
}
