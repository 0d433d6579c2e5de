// Package commands defines the waxwing CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - create   Create a new profile, optionally password-protected
//   - login    Unlock a profile and record it as the current one
//   - list     List profile names found in the profile directory
//   - info     Print a profile's identity, optionally as a QR code
//   - rename   Rename a profile and all of its files
//   - remove   Delete a profile and all of its files
//   - passwd   Change or remove a profile's password
//   - avatar   Set or clear the profile's own avatar
//   - friend   Manage the friends roster
//
// # Implementation
//
// The root command builds the dependency graph (paths, locker, global
// settings, core factories) before any subcommand runs; handlers open a
// profile through it, do their work and close it again.
package commands
