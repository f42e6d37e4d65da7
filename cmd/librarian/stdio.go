package main

import (
	"github.com/spf13/cobra"

	"github.com/mlziade/librarian/mcp/transport/stdiotransport"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve a single session over stdin and stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, server, err := setup()
		if err != nil {
			return err
		}

		tr := stdiotransport.New()
		go func() {
			<-cmd.Context().Done()
			_ = tr.Close()
		}()
		return server.Serve(tr)
	},
}
