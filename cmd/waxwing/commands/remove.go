package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete a profile and all of its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			if failed := p.Remove(); len(failed) > 0 {
				for _, path := range failed {
					fmt.Printf("could not remove %s\n", path)
				}
				return fmt.Errorf("profile removed with leftovers")
			}
			fmt.Printf("Removed profile %s\n", args[0])
			return nil
		},
	}
}
