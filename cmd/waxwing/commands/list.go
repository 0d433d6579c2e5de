package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"waxwing/internal/profile"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles in the profile directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := profile.List(appWire.Paths, appWire.Log)
			if err != nil {
				return err
			}
			current := appWire.Global.CurrentProfile()
			for _, name := range names {
				marker := " "
				if name == current {
					marker = "*"
				}
				enc, _ := profile.IsEncrypted(appWire.Paths, name)
				state := "plain"
				if enc {
					state = "encrypted"
				}
				fmt.Printf("%s %-20s %s\n", marker, name, state)
			}
			return nil
		},
	}
}
