package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/epochlik"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of epochlik",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "epochlik version %s\n", strings.TrimSpace(epochlik.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
