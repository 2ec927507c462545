package credentials

import (
	"context"
	"fmt"

	"github.com/marmos91/afpfs/internal/prompt"
)

// Interactive prompts the terminal for a username and password. It never
// remembers anything across Ask calls and Lookup always reports nothing;
// Save is a no-op, since persisting to an OS keyring is left to whatever
// wraps this Source.
type Interactive struct{}

// NewInteractive returns an Interactive credential source.
func NewInteractive() *Interactive { return &Interactive{} }

func (Interactive) Lookup(ctx context.Context, server string) (string, string, bool) {
	return "", "", false
}

func (Interactive) Ask(ctx context.Context, server string, attempt int) (string, string, error) {
	label := fmt.Sprintf("Username for %s", server)
	if attempt > 1 {
		label = fmt.Sprintf("Username for %s (attempt %d)", server, attempt)
	}

	username, err := prompt.InputRequired(label)
	if err != nil {
		return "", "", err
	}

	password, err := prompt.Password(fmt.Sprintf("Password for %s@%s", username, server))
	if err != nil {
		return "", "", err
	}

	return username, password, nil
}

func (Interactive) Save(ctx context.Context, server, username, password string) error {
	return nil
}
