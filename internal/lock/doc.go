// Package lock implements cross-instance mutual exclusion for named
// profiles.
//
// Each running instance creates one Locker. Acquiring a name writes
// <name>.lock containing the holder PID; a second instance acquiring the
// same name fails until the file is released or its owner dies. Guards
// returned by TryLock are released exactly once, and Relock moves a guard
// to a new name without ever being fully unlocked in between.
package lock
