package main

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/accel/internal/net"
)

// TimeHandler runs the net repeatedly and prints the average time per layer.
func TimeHandler(cmd *cobra.Command, _ []string) error {
	iterations, _ := cmd.Flags().GetInt("iterations")
	if iterations <= 0 {
		return fmt.Errorf("--iterations must be positive, got %d", iterations)
	}
	backward, _ := cmd.Flags().GetBool("backward")
	engine, err := engineFlag(cmd)
	if err != nil {
		return err
	}

	n, err := buildNet(cmd, engine)
	if err != nil {
		return err
	}

	// Warm up the pool and caches.
	n.Forward()

	fwd := make([]time.Duration, len(n.Layers()))
	bwd := make([]time.Duration, len(n.Layers()))
	for range iterations {
		accumulate(fwd, n.ForwardTimed())
		if backward {
			n.ClearParamDiffs()
			accumulate(bwd, n.BackwardTimed())
		}
	}

	header := []string{"LAYER", "TYPE", "ENGINE", "FORWARD"}
	if backward {
		header = append(header, "BACKWARD")
	}

	var data [][]string
	var totalFwd, totalBwd time.Duration
	for i, l := range n.Layers() {
		avgFwd := fwd[i] / time.Duration(iterations)
		totalFwd += avgFwd
		row := []string{l.Name(), l.Type(), l.Engine().String(), avgFwd.String()}
		if backward {
			avgBwd := bwd[i] / time.Duration(iterations)
			totalBwd += avgBwd
			row = append(row, avgBwd.String())
		}
		data = append(data, row)
	}
	footer := []string{"TOTAL", "", "", totalFwd.String()}
	if backward {
		footer = append(footer, totalBwd.String())
	}
	data = append(data, footer)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d iterations\n", n.Name(), iterations)
	return nil
}

func accumulate(total []time.Duration, timings []net.Timing) {
	for i, t := range timings {
		total[i] += t.Duration
	}
}
