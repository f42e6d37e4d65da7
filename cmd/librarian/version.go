package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlziade/librarian/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("librarian %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}
