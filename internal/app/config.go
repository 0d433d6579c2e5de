package app

import (
	"github.com/rs/zerolog"

	"waxwing/internal/domain"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home    string             // profile directory, e.g. $HOME/.waxwing
	Options domain.CoreOptions // transport configuration for every core
	Log     zerolog.Logger     // base logger; zerolog.Nop() to discard
}
