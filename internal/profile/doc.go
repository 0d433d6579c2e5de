// Package profile coordinates a user profile's whole lifecycle.
//
// A Profile owns the password-derived key material, the protocol core and
// its AV extension, the avatar cache, the chat history database and the
// instance lock for its name. Load and Create drive the initialization
// sequence: lock, read and decrypt the save blob, start the core, start
// AV, wire the core's change notifications, open history. History failures
// degrade the session instead of aborting it; everything earlier is fatal
// to startup and releases the lock.
//
// One goroutine drives a Profile's public operations. Core notifications
// arrive from the core's own loop; the avatar-offer handler additionally
// goes through a deferred task queue so it never re-enters the core from
// inside its own delivery.
package profile
