package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show dashboard URL with access token",
		Long: `Show the dashboard URL with the access token of the running server.

Use this when you've scrolled past the startup message.

Example:
  alat token`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenFile := getTokenFilePath(a.cfg.Database.Path)

			data, err := os.ReadFile(tokenFile)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no server running (token file not found)\nStart the server with: alat serve")
				}
				return fmt.Errorf("failed to read token file: %w", err)
			}

			token := strings.TrimSpace(string(data))
			if token == "" {
				return fmt.Errorf("token file is empty. Restart the server with: alat serve")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: http://localhost:%d/dashboard?token=%s\n", a.cfg.Server.Port, token)
			return nil
		},
	}
}
