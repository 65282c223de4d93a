package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/born-ml/accel/internal/config"
	"github.com/born-ml/accel/internal/envconfig"
	"github.com/born-ml/accel/internal/layers"
	"github.com/born-ml/accel/internal/logutil"
	"github.com/born-ml/accel/internal/net"
	"github.com/born-ml/accel/internal/parallel"
)

const version = "v0.1.0-dev"

// NewCLI returns the root command.
func NewCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "accel",
		Short:         "Run nets on the accelerated layer engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logutil.NewLogger(cmd.ErrOrStderr(), envconfig.LogLevel()))
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			parallel.Shutdown()
		},
	}

	timeCmd := &cobra.Command{
		Use:   "time",
		Short: "Report per-layer forward (and backward) time",
		Args:  cobra.NoArgs,
		RunE:  TimeHandler,
	}
	timeCmd.Flags().IntP("iterations", "i", 10, "Number of timed passes")
	timeCmd.Flags().Bool("backward", false, "Also time the backward pass")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the accel engine against the reference engine",
		Args:  cobra.NoArgs,
		RunE:  CompareHandler,
	}
	compareCmd.Flags().Float64("tolerance", 1e-3, "Maximum absolute difference per blob")

	initCmd := &cobra.Command{
		Use:   "init-weights",
		Short: "Write freshly initialized parameters to a SafeTensors file",
		Args:  cobra.NoArgs,
		RunE:  InitWeightsHandler,
	}
	initCmd.Flags().StringP("output", "o", "", "Output SafeTensors file")
	_ = initCmd.MarkFlagRequired("output")

	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment configuration",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}

	for _, cmd := range []*cobra.Command{timeCmd, compareCmd, initCmd} {
		cmd.Flags().StringP("net", "n", "", "YAML net definition")
		_ = cmd.MarkFlagRequired("net")
		cmd.Flags().StringP("weights", "w", "", "SafeTensors weights to load")
		cmd.Flags().Uint64("seed", 1, "Seed for parameter fillers and random input")
	}
	timeCmd.Flags().StringP("engine", "e", "", "Override every layer's engine (reference, accel)")

	rootCmd.AddCommand(timeCmd, compareCmd, initCmd, envCmd)
	return rootCmd
}

// buildNet loads the --net definition, forces engine on every layer unless
// it is EngineDefault, and fills input and parameters from --seed.
func buildNet(cmd *cobra.Command, engine config.Engine) (*net.Net, error) {
	path, _ := cmd.Flags().GetString("net")
	seed, _ := cmd.Flags().GetUint64("seed")

	param, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if engine != config.EngineDefault {
		for i := range param.Layers {
			param.Layers[i].Engine = engine
		}
	}

	n, err := net.New(param, layers.WithRand(rand.New(rand.NewPCG(seed, 0))))
	if err != nil {
		return nil, err
	}

	if weights, _ := cmd.Flags().GetString("weights"); weights != "" {
		if err := n.LoadWeights(weights); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewPCG(seed, 1))
	for _, name := range n.InputNames() {
		b, _ := n.Blob(name)
		for i := range b.Data() {
			b.Data()[i] = float32(rng.NormFloat64())
		}
	}
	return n, nil
}

func engineFlag(cmd *cobra.Command) (config.Engine, error) {
	s, _ := cmd.Flags().GetString("engine")
	e, err := config.ParseEngine(s)
	if err != nil {
		return e, fmt.Errorf("--engine: %w", err)
	}
	return e, nil
}
