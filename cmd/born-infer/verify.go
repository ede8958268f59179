package main

import (
	"fmt"

	"github.com/born-ml/infer/keras"
	"github.com/spf13/cobra"
)

func newVerifyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify MODEL",
		Short: "Replay the test cases recorded in a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, release, err := a.load(args[0])
			defer release()
			if err != nil {
				return err
			}
			if len(m.Tests()) == 0 {
				a.logger.Warn("model has no test cases", "model", m.Name())
			}

			tol := keras.Tolerance{Abs: a.v.GetFloat64("tolerance.abs"), Rel: a.v.GetFloat64("tolerance.rel")}
			report, err := keras.Verify(m, tol)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d cases, %d values, max abs error %g\n",
				report.Cases, report.Elements, report.MaxAbsError)
			return nil
		},
	}

	def := keras.DefaultTolerance()
	cmd.Flags().Float64("abs", def.Abs, "absolute tolerance")
	cmd.Flags().Float64("rel", def.Rel, "relative tolerance")
	if err := a.v.BindPFlag("tolerance.abs", cmd.Flags().Lookup("abs")); err != nil {
		panic(err)
	}
	if err := a.v.BindPFlag("tolerance.rel", cmd.Flags().Lookup("rel")); err != nil {
		panic(err)
	}
	return cmd
}
