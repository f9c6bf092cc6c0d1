// tokengen mints development authority tokens and derives identity hashes.
//
//	tokengen --authority host-wallet --ttl 2h
//	tokengen --hash wallet:9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
//
// The signing key and issuer come from JWT_SIGNING_KEY and JWT_ISSUER, the
// same variables the server reads, unless overridden by flags.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"topcharger/internal/authority"
	"topcharger/internal/platform/config"
	"topcharger/pkg/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	_ = godotenv.Load()

	var (
		subject    string
		externalID string
		ttl        time.Duration
		signingKey string
		issuer     string
	)
	flagSet := pflag.NewFlagSet("tokengen", pflag.ContinueOnError)
	flagSet.StringVarP(&subject, "authority", "a", "", "authority to put in the token subject")
	flagSet.StringVar(&externalID, "hash", "", "print the identity hash of an external identifier and exit")
	flagSet.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flagSet.StringVar(&signingKey, "signing-key", "", "HS256 key (default: JWT_SIGNING_KEY)")
	flagSet.StringVar(&issuer, "issuer", "", "token issuer (default: JWT_ISSUER)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected argument: %s", extra[0])
	}

	if externalID != "" {
		_, err := fmt.Fprintln(out, domain.HashExternalID(externalID))
		return err
	}

	a, err := domain.ParseAuthority(subject)
	if err != nil {
		return fmt.Errorf("--authority: %w", err)
	}

	if signingKey == "" || issuer == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if signingKey == "" {
			signingKey = cfg.JWTSigningKey
		}
		if issuer == "" {
			issuer = cfg.JWTIssuer
		}
	}

	token, err := authority.NewTokenService(signingKey, issuer).Issue(a, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
