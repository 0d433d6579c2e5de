// Package core implements the protocol session owned by a profile.
//
// A Core holds the durable session state: the identity key pair, the
// nospam tag, profile texts and the friends roster. The state serializes
// to an opaque blob that the profile layer persists, encrypted when the
// profile has a password; Core never touches the disk itself.
//
// Between Start and Stop a Core runs one processing loop goroutine and
// delivers every registered callback from it, in order. Mutations made
// before Start deliver their callbacks inline on the caller. Peer traffic
// enters through the Receive* methods, which model ingress from the
// transport layer and feed the same loop.
package core
