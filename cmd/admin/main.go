// Command admin runs maintenance tasks against the EMS database.
//
// Usage:
//
//	admin promote <email> [flags]
//	admin demote <email> [flags]
//	admin purge-otps [flags]
//
// Flags are the server's (-c, -d, -k, ...); the command comes first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server"
	"github.com/dmitrijs2005/ems/internal/server/config"
	"github.com/dmitrijs2005/ems/internal/server/services"
)

var errUsage = errors.New("usage: admin promote|demote <email> | admin purge-otps")

var openStorage = server.OpenStorage

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errUsage
	}
	cmd := args[0]

	cfg, err := config.Load(args[1:])
	if err != nil {
		return err
	}

	switch cmd {
	case "promote", "demote":
		if len(args) < 2 || strings.HasPrefix(args[1], "-") {
			return errUsage
		}
		return withStorage(ctx, cfg, func(st *server.Storage) error {
			return setAdmin(ctx, st, args[1], cmd == "promote", out)
		})
	case "purge-otps":
		return withStorage(ctx, cfg, func(st *server.Storage) error {
			return purgeOTPs(ctx, st, cfg, out)
		})
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func withStorage(ctx context.Context, cfg *config.Config, fn func(*server.Storage) error) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if st.DB != nil {
		defer st.DB.Close()
	}
	return fn(st)
}

func setAdmin(ctx context.Context, st *server.Storage, email string, isAdmin bool, out io.Writer) error {
	creds := services.NewCredentialStore(st.Transactor, st.Repos)
	if err := creds.SetAdmin(ctx, email, isAdmin); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %s not found", services.NormalizeEmail(email))
		}
		return err
	}

	state := "granted to"
	if !isAdmin {
		state = "withdrawn from"
	}
	fmt.Fprintf(out, "admin %s %s\n", state, services.NormalizeEmail(email))
	return nil
}

func purgeOTPs(ctx context.Context, st *server.Storage, cfg *config.Config, out io.Writer) error {
	n, err := services.NewOTPEngine(st.Transactor, st.Repos, cfg.OTPValidityDuration).PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "purged %d otp(s)\n", n)
	return nil
}
