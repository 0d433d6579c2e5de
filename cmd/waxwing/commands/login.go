package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// login unlocks a profile once, which also records it as the current
// profile for the next start.
func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <name>",
		Short: "Unlock a profile and make it the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			fmt.Printf("Logged in as %s (%s)\n", p.Core().Username(), p.Name())
			if !p.HistoryEnabled() {
				fmt.Println("Chat logs are disabled for this session.")
			}
			return nil
		},
	}
}
