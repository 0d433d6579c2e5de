// Package app wires application dependencies for the CLI.
//
// It builds the profile directory layout, the instance locker, the global
// settings and the core factories from Config, exposing them via the Wire
// struct for commands to use.
package app
