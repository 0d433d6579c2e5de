package commands

import (
	"fmt"
	"os"

	qrterminal "github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"waxwing/internal/crypto"
)

func infoCmd() *cobra.Command {
	var asQR bool

	cmd := &cobra.Command{
		Use:   "info [name]",
		Short: "Print a profile's identity",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := appWire.Global.CurrentProfile()
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("no profile name given and no current profile recorded")
			}

			p, err := openProfile(name)
			if err != nil {
				return err
			}
			defer p.Close()

			addr := p.Core().Address()
			fmt.Printf("Profile:     %s\n", p.Name())
			fmt.Printf("Username:    %s\n", p.Core().Username())
			fmt.Printf("Status:      %s\n", p.Core().StatusMessage())
			fmt.Printf("Address:     %s\n", addr)
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(p.Core().PublicKey().Slice()))
			fmt.Printf("Encrypted:   %v\n", p.IsEncrypted())
			fmt.Printf("Friends:     %d\n", len(p.Core().Friends()))

			if asQR {
				qrterminal.GenerateWithConfig(addr.Hex(), qrterminal.Config{
					Level:     qrterminal.M,
					Writer:    os.Stdout,
					BlackChar: qrterminal.BLACK,
					WhiteChar: qrterminal.WHITE,
					QuietZone: 1,
				})
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asQR, "qr", false, "also print the address as a QR code")
	return cmd
}
