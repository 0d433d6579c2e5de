package commands

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"waxwing/internal/app"
	"waxwing/internal/profile"
)

var (
	home     string
	password string
	verbose  bool
	appWire  *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:   "waxwing",
		Short: "Peer-to-peer encrypted messenger profiles",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".waxwing")
			}

			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).With().Timestamp().Logger()

			var err error
			appWire, err = app.NewWire(app.Config{Home: home, Log: log})
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "profile dir (default ~/.waxwing)")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "profile password")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(createCmd(), loginCmd(), listCmd(), infoCmd(), renameCmd(),
		removeCmd(), passwdCmd(), avatarCmd(), friendCmd())
	return root.Execute()
}

// openProfile loads name using the shared password flag.
func openProfile(name string) (*profile.Profile, error) {
	return profile.Load(appWire.ProfileConfig(profile.Events{}), name, password)
}
