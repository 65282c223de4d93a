package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/accel/internal/config"
)

// InitWeightsHandler fills the net's parameters from their fillers and
// writes them out.
func InitWeightsHandler(cmd *cobra.Command, _ []string) error {
	output, _ := cmd.Flags().GetString("output")

	n, err := buildNet(cmd, config.EngineReference)
	if err != nil {
		return err
	}
	if err := n.SaveWeights(output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tensors to %s\n", len(n.Params()), output)
	return nil
}
