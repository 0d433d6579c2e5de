// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (keys, addresses, roster entries) and the contracts
// the profile layer consumes (Core, AV, factories) only.
package domain
