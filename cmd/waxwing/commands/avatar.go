package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"waxwing/internal/identicon"
)

func avatarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "avatar",
		Short: "Manage the profile's own avatar",
	}
	cmd.AddCommand(avatarSetCmd(), avatarClearCmd(), avatarExportCmd())
	return cmd
}

func avatarSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <image.png>",
		Short: "Set the profile avatar from a PNG file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pic, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.SetAvatar(pic); err != nil {
				return err
			}
			fmt.Println("Avatar set.")
			return nil
		},
	}
}

func avatarClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <name>",
		Short: "Clear the profile avatar, falling back to the identicon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			if err := p.DeleteSelfAvatar(); err != nil {
				return err
			}
			fmt.Println("Avatar cleared.")
			return nil
		},
	}
}

// avatar export writes the current avatar, or the generated identicon when
// none is set, to a file.
func avatarExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <out.png>",
		Short: "Export the profile avatar or identicon to a PNG file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			self := p.Core().PublicKey()
			pic, err := p.AvatarData(self)
			if err != nil {
				return err
			}
			if len(pic) == 0 {
				if pic, err = identicon.PNG(self.Slice(), 32); err != nil {
					return err
				}
			}
			return os.WriteFile(args[1], pic, 0o600)
		},
	}
}
