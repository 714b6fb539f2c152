package main

import "errors"

// Rejection categories for player-facing failures. Everything here is
// recoverable: the player can fix the command and resubmit within the
// same window.
var (
	// ErrConfigMismatch means the room's role counts don't balance
	// against its player count; the start attempt fails and no session
	// is created.
	ErrConfigMismatch = errors.New("role configuration does not match player count")

	// ErrInvalidTarget means the named seat doesn't exist, is already
	// dead, or is the actor where self-targeting is disallowed.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrActionNotPermitted means wrong phase, wrong role, a spent
	// one-shot ability, or a timing rule violation (repeat guard,
	// pairing after night one, disguise on night one).
	ErrActionNotPermitted = errors.New("action not permitted")
)
