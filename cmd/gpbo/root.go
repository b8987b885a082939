package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thalesfsp/gpbo/testfunctions"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gpbo",
		Short: "gpbo - Bayesian optimization with Gaussian Processes",
		Long: `gpbo fits a Gaussian Process to the evaluations of an objective and picks
the next point with an acquisition function (ei, pi, cb, ts or kg).`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newFunctionsCmd())

	return root
}

// functionInfo is one entry of the functions listing.
type functionInfo struct {
	Name    string   `yaml:"name"`
	Dim     int      `yaml:"dim,omitempty"`
	Minimum *float64 `yaml:"minimum_2d,omitempty"`
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the benchmark objectives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listFunctions(cmd.OutOrStdout())
		},
	}
}

func listFunctions(w io.Writer) error {
	var infos []functionInfo

	for _, f := range testfunctions.All() {
		info := functionInfo{Name: f.Name(), Dim: f.Dim()}

		if m, ok := f.Minimum(2); ok {
			info.Minimum = &m.F
		}

		infos = append(infos, info)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(infos); err != nil {
		return fmt.Errorf("functions: %w", err)
	}

	return enc.Close()
}
