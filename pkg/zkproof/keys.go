package zkproof

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"

	"github.com/mymonad/aura/pkg/aura"
)

// Key file extensions inside a keys directory.
const (
	constraintExt   = ".ccs"
	provingKeyExt   = ".pk"
	verifyingKeyExt = ".vk"
)

// ErrMissingProvingKey is returned when proving with a verify-only setup.
var ErrMissingProvingKey = errors.New("zkproof: proving key not loaded")

// KeyPath returns the path of one key file of c inside dir.
func KeyPath(dir string, c aura.Circuit, ext string) string {
	return filepath.Join(dir, string(c)+ext)
}

// SaveKeys writes the constraint system and both keys of cc into dir.
// Each file is written atomically.
func SaveKeys(dir string, cc *CompiledCircuit) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create keys dir: %w", err)
	}

	files := []struct {
		ext string
		w   io.WriterTo
	}{
		{constraintExt, cc.ConstraintSystem},
		{provingKeyExt, cc.ProvingKey},
		{verifyingKeyExt, cc.VerifyingKey},
	}
	for _, f := range files {
		if f.w == nil {
			continue
		}
		if err := writeAtomic(KeyPath(dir, cc.Circuit, f.ext), f.w); err != nil {
			return fmt.Errorf("save %s%s: %w", cc.Circuit, f.ext, err)
		}
	}
	return nil
}

// LoadCompiled reads the setup of c from dir. With withProvingKey false
// only the verifying key is read.
func LoadCompiled(dir string, c aura.Circuit, withProvingKey bool) (*CompiledCircuit, error) {
	if _, err := InputCount(c); err != nil {
		return nil, err
	}

	cc := &CompiledCircuit{
		Circuit:      c,
		VerifyingKey: plonk.NewVerifyingKey(ecc.BN254),
	}
	if err := readFrom(KeyPath(dir, c, verifyingKeyExt), cc.VerifyingKey); err != nil {
		return nil, err
	}
	if !withProvingKey {
		return cc, nil
	}

	cc.ConstraintSystem = plonk.NewCS(ecc.BN254)
	if err := readFrom(KeyPath(dir, c, constraintExt), cc.ConstraintSystem); err != nil {
		return nil, err
	}
	cc.ProvingKey = plonk.NewProvingKey(ecc.BN254)
	if err := readFrom(KeyPath(dir, c, provingKeyExt), cc.ProvingKey); err != nil {
		return nil, err
	}
	return cc, nil
}

// LoadAll reads the setup of every ledger circuit from dir.
func LoadAll(dir string, withProvingKey bool) ([]*CompiledCircuit, error) {
	out := make([]*CompiledCircuit, 0, len(aura.Circuits))
	for _, c := range aura.Circuits {
		cc, err := LoadCompiled(dir, c, withProvingKey)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

func readFrom(path string, r io.ReaderFrom) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := r.ReadFrom(f); err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeAtomic(path string, w io.WriterTo) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := w.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
