package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/born-ml/infer/keras"
	"github.com/spf13/cobra"
)

// tensorJSON is the output form of a predicted tensor.
type tensorJSON struct {
	Shape  [3]int    `json:"shape"`
	Values []float32 `json:"values"`
}

func newPredictCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "predict MODEL INPUTS",
		Short: "Run the model on a JSON array of input tensors",
		Long: `Run the model on a JSON array of input tensors and print the outputs.

INPUTS holds one {"shape": [depth, height, width], "values": [...]} object per
model input; values may also be a base64 float32 blob.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.load(args[0])
			defer release()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read inputs: %w", err)
			}
			inputs, err := keras.ParseTensors(data)
			if err != nil {
				return err
			}

			outputs, err := m.Predict(inputs)
			if err != nil {
				return err
			}
			result := make([]tensorJSON, len(outputs))
			for i, out := range outputs {
				s := out.Shape()
				result[i] = tensorJSON{Shape: [3]int{s.Depth, s.Height, s.Width}, Values: out.Values()}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}
