package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a profile and all of its files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.Rename(args[1]); err != nil {
				return err
			}
			fmt.Printf("Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}
