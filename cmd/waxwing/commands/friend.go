package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"waxwing/internal/domain"
)

func friendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friend",
		Short: "Manage the friends roster",
	}
	cmd.AddCommand(friendAddCmd(), friendListCmd())
	return cmd
}

func friendAddCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "add <name> <address>",
		Short: "Send a friend request to an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := domain.ParseAddress(args[1])
			if err != nil {
				return err
			}

			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			friend, err := p.Core().AddFriend(addr, message)
			if err != nil {
				return err
			}
			fmt.Printf("Friend request sent to %s\n", friend.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "Hi, add me please!", "request message")
	return cmd
}

func friendListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <name>",
		Short: "List the friends roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openProfile(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			for _, f := range p.Core().Friends() {
				alias := f.Alias
				if alias == "" {
					alias = "-"
				}
				fmt.Printf("%s  %s\n", f.PublicKey, alias)
			}
			return nil
		},
	}
}
