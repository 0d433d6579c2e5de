package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"waxwing/internal/profile"
)

// passwd changes the profile password. The current password comes from
// -p, the new one from --new; an empty --new removes the encryption.
func passwdCmd() *cobra.Command {
	var newPassword string

	cmd := &cobra.Command{
		Use:   "passwd <name>",
		Short: "Change or remove a profile's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.SetPassword(newPassword); err != nil {
				if errors.Is(err, profile.ErrHistoryRekey) {
					// Save and avatars already use the new password.
					fmt.Println("Warning: chat logs kept the old password; they may be corrupted.")
					return nil
				}
				return err
			}
			if newPassword == "" {
				fmt.Println("Password removed, profile is stored unencrypted.")
			} else {
				fmt.Println("Password changed.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&newPassword, "new", "", "new password (empty removes encryption)")
	return cmd
}
