package main

import (
	"fmt"

	"github.com/aretw0/epochlik"
	"github.com/aretw0/epochlik/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <scenario.yaml>",
	Short: "Export the scenario tree as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the scenario tree with nodes styled by epoch and boundary-crossing branches drawn dotted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := epochlik.LoadScenario(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sc.Tree, sc.Tree.Name, sc.Boundaries, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
