package session

import (
	"context"

	"github.com/marmos91/afpfs/internal/logger"
	"github.com/marmos91/afpfs/pkg/afperrors"
	"github.com/marmos91/afpfs/pkg/command"
	"github.com/marmos91/afpfs/pkg/connection"
)

// dhxLogin runs the DHCAST128 LOGIN / LOGIN_CONT exchange, making at most
// opts.LoginRetries attempts in all and asking for a fresh username/password
// pair after each denied attempt.
func dhxLogin(ctx context.Context, conn *connection.Connection, opts Options, version string) (anonymous bool, err error) {
	log := logger.With("server", opts.Address, "uam", uamDHCAST128)

	username, password, ok := opts.Credentials.Lookup(ctx, opts.Address)

	for attempt := 1; attempt <= opts.LoginRetries; attempt++ {
		if !ok {
			username, password, err = opts.Credentials.Ask(ctx, opts.Address, attempt)
			if err != nil {
				return false, err
			}
		}
		ok = false // Lookup's answer is only ever tried once

		loginErr := dhxLoginAttempt(ctx, conn, version, username, password)
		if opts.Session != nil {
			outcome := "success"
			if loginErr != nil {
				outcome = "denied"
			}
			opts.Session.RecordLoginAttempt(uamDHCAST128, outcome)
		}

		if loginErr == nil {
			if err := opts.Credentials.Save(ctx, opts.Address, username, password); err != nil {
				log.Warn("failed to save credentials", "error", err)
			}
			if opts.Session != nil {
				opts.Session.RecordNegotiatedVersion(version)
			}
			return false, nil
		}

		if !afperrors.Is(loginErr, afperrors.PermissionDenied) {
			return false, loginErr
		}

		log.Warn("login denied", "attempt", attempt, "error", loginErr)
		err = loginErr
	}

	return false, err
}

// dhxLoginAttempt performs one LOGIN/LOGIN_CONT round trip for a single
// username/password pair.
func dhxLoginAttempt(ctx context.Context, conn *connection.Connection, version, username, password string) error {
	client, err := newDHXClient()
	if err != nil {
		return err
	}

	loginCmd := command.New(command.Login)
	loginCmd.W().PutPascal(version)
	loginCmd.W().PutPascal(uamDHCAST128)
	loginCmd.W().PutPascal(username)
	loginCmd.W().PadToEven()
	loginCmd.W().PutRaw(client.public[:])

	rep, err := conn.SendCommand(ctx, loginCmd, 0)
	if err != nil {
		return err
	}

	if rep.OK() {
		// Some servers accept DHCAST128 in one round trip; treat as success.
		return nil
	}
	if rep.ResultCode != afperrors.AuthContinue {
		return afperrors.Translate(rep.ResultCode, "DHX login", nil)
	}

	sessionID, err := rep.R().ReadU16()
	if err != nil {
		return err
	}
	mb, err := rep.R().ReadRaw(dhxKeyLen)
	if err != nil {
		return err
	}
	nonceCipher, err := rep.R().ReadRaw(32)
	if err != nil {
		return err
	}

	key, err := client.sharedKey(mb)
	if err != nil {
		return err
	}
	nonce, err := decryptNonce(key, nonceCipher)
	if err != nil {
		return err
	}
	answer, err := buildLoginContAnswer(key, incrementNonce(nonce), password)
	if err != nil {
		return err
	}

	contCmd := command.New(command.LoginCont)
	contCmd.W().PutU8(0) // pad byte, matching LOGIN_CONT's even-alignment convention
	contCmd.W().PutU16(sessionID)
	contCmd.W().PutRaw(answer)

	contRep, err := conn.SendCommand(ctx, contCmd, 0)
	if err != nil {
		return err
	}
	if !contRep.OK() {
		return afperrors.Translate(contRep.ResultCode, "DHX login", nil)
	}
	return nil
}
