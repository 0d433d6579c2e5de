package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"waxwing/internal/crypto"
	"waxwing/internal/profile"
)

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new profile, encrypted when -p is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Create(appWire.ProfileConfig(profile.Events{}), args[0], password)
			if err != nil {
				return err
			}
			defer p.Close()

			fmt.Printf("Profile created.\nAddress:     %s\nFingerprint: %s\n",
				p.Core().Address(), crypto.Fingerprint(p.Core().PublicKey().Slice()))
			return nil
		},
	}
}
