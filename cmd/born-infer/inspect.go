package main

import (
	"fmt"
	"sort"

	"github.com/born-ml/infer/keras"
	"github.com/spf13/cobra"
)

func newInspectCommand(a *app) *cobra.Command {
	var showFlags bool
	cmd := &cobra.Command{
		Use:   "inspect MODEL",
		Short: "Print the layer table and metadata of a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.load(args[0])
			defer release()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			m.WriteSummary(w)

			outs, err := m.OutputShapes(m.InputShapes())
			if err == nil {
				fmt.Fprintf(w, "Inputs: %v\nOutputs: %v\n", m.InputShapes(), outs)
			}
			fmt.Fprintf(w, "Tests: %d\n", len(m.Tests()))

			meta := m.Metadata()
			keys := make([]string, 0, len(meta))
			for k := range meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s: %s\n", k, meta[k])
			}

			if showFlags {
				return printFlags(cmd, args[0], a.paddingOverrides())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFlags, "flags", false, "print the effective padding flags")
	return cmd
}

// printFlags resolves the padding flags of the document at path with the
// configured overrides applied.
func printFlags(cmd *cobra.Command, path string, overrides map[string]bool) error {
	base, err := keras.DocumentFlags(path)
	if err != nil {
		return err
	}
	flags, err := keras.ResolveFlags(keras.Overlay{Override: overrides, Base: base})
	if err != nil {
		return err
	}
	for _, name := range keras.PaddingFlags {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %t\n", name, flags[name])
	}
	return nil
}
