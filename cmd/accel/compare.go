package main

import (
	"fmt"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/born-ml/accel/internal/config"
)

// CompareHandler runs the net on the reference and accel engines with the
// same weights and input, and prints the largest difference per blob.
func CompareHandler(cmd *cobra.Command, _ []string) error {
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")

	ref, err := buildNet(cmd, config.EngineReference)
	if err != nil {
		return err
	}
	acc, err := buildNet(cmd, config.EngineAccel)
	if err != nil {
		return err
	}
	if err := acc.CopyParams(ref); err != nil {
		return err
	}

	ref.Forward()
	acc.Forward()

	var data [][]string
	var failed []string
	for _, name := range ref.BlobNames() {
		want, _ := ref.Blob(name)
		got, _ := acc.Blob(name)

		var maxDiff float64
		for i, v := range want.Data() {
			maxDiff = math.Max(maxDiff, math.Abs(float64(v-got.Data()[i])))
		}
		status := "ok"
		if maxDiff > tolerance {
			status = "FAIL"
			failed = append(failed, name)
		}
		data = append(data, []string{name, fmt.Sprint([]int(want.Shape())), fmt.Sprintf("%.3g", maxDiff), status})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"BLOB", "SHAPE", "MAX ABS DIFF", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	if len(failed) > 0 {
		return fmt.Errorf("%d blob(s) differ by more than %g: %v", len(failed), tolerance, failed)
	}
	return nil
}
