// Command obfactors is the thin CLI driver around engine.Run: it resolves
// flags and an optional YAML config file into an engine.Config, wires up
// signal-based cancellation, and reports the exit code. It is an example
// collaborator, not part of the core's contract — everything interesting
// lives in package engine and below.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/obfactors/engine/engine"
)

var (
	configFile  string
	root        string
	outputDir   string
	parallelism int
	emitArrow   bool
	emitGzip    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "obfactors",
		Short: "Computes order-book factor means from Level-10 snapshot trees",
		Long:  "obfactors walks a <root>/<MMDD>/<stock>/snapshot.csv tree and writes one cross-sectional factor-mean CSV per trading day.",
		RunE:  run,
	}

	rootCmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file with overrides")
	rootCmd.Flags().StringVar(&root, "root", "", "input tree root (<root>/<MMDD>/<stock>/snapshot.csv)")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for <MMDD>.csv files")
	rootCmd.Flags().IntVar(&parallelism, "parallelism", 0, "parallelism hint, clamped to min(8, hw parallelism); 0 = auto")
	rootCmd.Flags().BoolVar(&emitArrow, "emit-arrow", false, "also write <MMDD>.arrow alongside each day's CSV")
	rootCmd.Flags().BoolVar(&emitGzip, "emit-gzip", false, "gzip-compress CSV output as <MMDD>.csv.gz")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "obfactors: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("obfactors: received %v, cancelling run", sig)
		cancel()
	}()

	return engine.Run(ctx, cfg)
}

// resolveConfig builds an engine.Config from, in increasing precedence:
// defaults, an optional YAML config file loaded via viper, then flags. A
// flag overrides the file only when its value is non-zero (non-empty,
// non-zero, or true); a flag set explicitly to its zero value leaves the
// file's value in place.
func resolveConfig() (engine.Config, error) {
	cfg := engine.Config{
		Root:        root,
		OutputDir:   outputDir,
		Parallelism: parallelism,
		EmitArrow:   emitArrow,
		EmitGzip:    emitGzip,
	}

	if configFile != "" {
		v := viper.New()
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("obfactors: read config %s: %w", configFile, err)
		}

		if cfg.Root == "" {
			cfg.Root = v.GetString("root")
		}
		if cfg.OutputDir == "" {
			cfg.OutputDir = v.GetString("output_dir")
		}
		if cfg.Parallelism == 0 {
			cfg.Parallelism = v.GetInt("parallelism")
		}
		if !cfg.EmitArrow {
			cfg.EmitArrow = v.GetBool("emit_arrow")
		}
		if !cfg.EmitGzip {
			cfg.EmitGzip = v.GetBool("emit_gzip")
		}
	}

	if cfg.Root == "" {
		return cfg, fmt.Errorf("obfactors: --root (or config root:) is required")
	}
	if cfg.OutputDir == "" {
		return cfg, fmt.Errorf("obfactors: --output-dir (or config output_dir:) is required")
	}
	return cfg, nil
}
