package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mymonad/aura/pkg/aura"
	"github.com/mymonad/aura/pkg/zkproof"
)

// runSetup compiles every ledger circuit and writes its constraint
// system and keys into dir. Existing keys are overwritten.
func runSetup(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keys directory: %w", err)
	}

	logger.Warn("generating circuit keys with an unsafe SRS; use ceremony keys in production")
	for _, c := range aura.Circuits {
		start := time.Now()
		cc, err := zkproof.CompileCircuit(c)
		if err != nil {
			return fmt.Errorf("failed to compile %s: %w", c, err)
		}
		if err := zkproof.SaveKeys(dir, cc); err != nil {
			return fmt.Errorf("failed to save %s keys: %w", c, err)
		}
		logger.Info("circuit keys written",
			"circuit", c,
			"constraints", cc.ConstraintSystem.GetNbConstraints(),
			"duration", time.Since(start),
		)
	}
	return nil
}
