package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlziade/librarian/tools"
	"github.com/mlziade/librarian/tools/wikipedia"
	"github.com/mlziade/librarian/wiki"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the served tool set as a JSON digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := wikipedia.All(wiki.NewClient())
		if err != nil {
			return err
		}
		list := make([]tools.ITool, 0, len(all))
		for _, t := range all {
			list = append(list, t)
		}
		fmt.Println(tools.GetDescriptions(list...))
		return nil
	},
}
