// Package credentials supplies AFP login credentials to the session layer
// without coupling it to any particular UI or storage mechanism.
package credentials

import "context"

// Source supplies a username/password pair for DHX login, and is given the
// chance to persist a pair that worked.
//
// Ask is called once per login attempt; after an AuthContinue-then-denied
// round trip the session layer calls Ask again (up to the configured retry
// limit) so an interactive implementation can re-prompt. Lookup is tried
// first, before falling back to Ask, so a keyring- or config-backed Source
// can skip prompting entirely when it already has a usable pair. Save is
// called after a successful login; real OS-keyring persistence is left to
// the caller's own Source implementation.
type Source interface {
	// Lookup returns a previously known username/password pair for server,
	// if one exists. ok is false if this Source has nothing to offer.
	Lookup(ctx context.Context, server string) (username, password string, ok bool)

	// Ask prompts for a username/password pair for server. attempt is the
	// 1-based number of the login attempt the pair is for, so it starts at 2
	// when Lookup supplied the pair for the first attempt.
	Ask(ctx context.Context, server string, attempt int) (username, password string, err error)

	// Save persists a username/password pair that logged in successfully.
	Save(ctx context.Context, server, username, password string) error
}
