package credentials

import (
	"context"

	"github.com/marmos91/afpfs/pkg/afperrors"
)

// Static returns a single fixed username/password pair without prompting.
// Useful when credentials arrive from a flag, an already-decrypted secret
// store, or a test fixture.
type Static struct {
	Username string
	Password string
}

// NewStatic returns a Source that always answers with username/password.
func NewStatic(username, password string) Static {
	return Static{Username: username, Password: password}
}

func (s Static) Lookup(ctx context.Context, server string) (string, string, bool) {
	return s.Username, s.Password, true
}

func (s Static) Ask(ctx context.Context, server string, attempt int) (string, string, error) {
	if attempt > 1 {
		return "", "", afperrors.New(afperrors.PermissionDenied, "static credentials rejected by server")
	}
	return s.Username, s.Password, nil
}

func (s Static) Save(ctx context.Context, server, username, password string) error {
	return nil
}
