package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/mymonad/aura/internal/crypto"
	zksvc "github.com/mymonad/aura/internal/zkproof"
	"github.com/mymonad/aura/pkg/aura"
	"github.com/mymonad/aura/pkg/zkproof"
)

// Secret labels. Each commitment the CLI produces opens with a secret
// derived from the identity seed under one of these labels.
const (
	labelBiometric   = "biometric/"
	labelPreferences = "preferences/"
	labelIntent      = "intent/"
	labelReveal      = "reveal/"
)

// prover produces the proofs the connected node asks for. Against a node
// that does not check proofs it produces none.
type prover struct {
	keysDir  string
	identity *crypto.Identity
	nodeCap  zksvc.Capability
	plonk    *zkproof.Prover
}

func newProver(ctx context.Context, cli *CLI, id *crypto.Identity) (*prover, error) {
	client, err := cli.connect()
	if err != nil {
		return nil, err
	}
	capability, err := client.Capability(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read node capability: %w", err)
	}
	return &prover{keysDir: cli.keysDir, identity: id, nodeCap: capability}, nil
}

func (p *prover) load(c aura.Circuit) error {
	if err := zksvc.CheckCompatibility(p.nodeCap, c); err != nil {
		return err
	}
	if p.plonk == nil {
		p.plonk = zkproof.NewProver()
	}
	if p.plonk.Has(c) {
		return nil
	}
	cc, err := zkproof.LoadCompiled(p.keysDir, c, true)
	if err != nil {
		return fmt.Errorf("failed to load %s proving key from %s: %w", c, p.keysDir, err)
	}
	p.plonk.Add(cc)
	return nil
}

// statement proves knowledge of the secret under label opening inputs[0].
func (p *prover) statement(c aura.Circuit, label string, inputs []aura.Digest) ([]byte, error) {
	if !p.nodeCap.RequiresProofs() {
		return nil, zksvc.CheckCompatibility(p.nodeCap, c)
	}
	if err := p.load(c); err != nil {
		return nil, err
	}
	return p.plonk.ProveStatement(c, p.identity.Secret(label), inputs)
}

func (p *prover) attestation(a, b aura.Principal, score int) ([]byte, error) {
	if !p.nodeCap.RequiresProofs() {
		return nil, zksvc.CheckCompatibility(p.nodeCap, aura.CircuitMutualMatch)
	}
	if err := p.load(aura.CircuitMutualMatch); err != nil {
		return nil, err
	}
	return p.plonk.ProveAttestation(a, b, score)
}

// fileLabel binds a secret label to the contents of a file, so a new
// file yields a new commitment.
func fileLabel(prefix, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return prefix + hex.EncodeToString(sum[:]), nil
}

// commitment computes the commitment to circuit c of the secret under
// label over the statement.
func commitment(id *crypto.Identity, c aura.Circuit, label string, statement ...aura.Digest) aura.Digest {
	return zkproof.Commit(c, id.Secret(label), statement...)
}
