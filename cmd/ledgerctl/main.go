// Command ledgerctl is an operator CLI for the stat ledger API.
//
//	ledgerctl [--url URL] [--token TOKEN] <command> [args]
//
//	health
//	profile get <user_id>
//	profile set <user_id> [--display-name S] [--avatar-url S] [--bio S]
//	stats get <user_id>
//	stats incr <user_id> <xp|messages|calls> [--by N]
//	event <user_id> <message_sent|call_placed|call_answered>
//	token <user_id> [--ttl 24h]
//
// --url, --token and --secret default to LEDGER_URL, LEDGER_TOKEN and JWT_SECRET.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/privachat/statledger/internal/auth"
	"github.com/privachat/statledger/pkg/client"
)

var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	v      *viper.Viper
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	v := viper.New()
	v.SetDefault("url", "http://localhost:8080")
	_ = v.BindEnv("url", "LEDGER_URL")
	_ = v.BindEnv("token", "LEDGER_TOKEN")
	_ = v.BindEnv("secret", "JWT_SECRET")

	global := pflag.NewFlagSet("ledgerctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	global.String("url", "http://localhost:8080", "ledger base URL")
	global.String("token", "", "bearer token for write commands")
	global.String("secret", "", "JWT secret used by the token command")
	global.Duration("timeout", 10*time.Second, "request timeout")
	global.Usage = func() { fmt.Fprintln(stderr, usage) }

	if err := global.Parse(args); err != nil {
		return 2
	}
	for _, name := range []string{"url", "token", "secret"} {
		_ = v.BindPFlag(name, global.Lookup(name))
	}
	timeout, _ := global.GetDuration("timeout")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := &cli{v: v, stdout: stdout}
	if err := c.dispatch(ctx, global.Args(), stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		fmt.Fprintln(stderr, "ledgerctl:", err)
		return 1
	}
	return 0
}

const usage = `usage: ledgerctl [--url URL] [--token TOKEN] [--secret SECRET] <command>

commands:
  health
  profile get <user_id>
  profile set <user_id> [--display-name S] [--avatar-url S] [--bio S]
  stats get <user_id>
  stats incr <user_id> <xp|messages|calls> [--by N]
  event <user_id> <message_sent|call_placed|call_answered>
  token <user_id> [--ttl 24h]`

func (c *cli) client() *client.Client {
	var opts []client.Option
	if tok := c.v.GetString("token"); tok != "" {
		opts = append(opts, client.WithToken(tok))
	}
	return client.New(c.v.GetString("url"), opts...)
}

func (c *cli) dispatch(ctx context.Context, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "health":
		return c.print(c.client().Health(ctx))

	case "profile":
		if len(rest) < 2 {
			return errUsage
		}
		switch rest[0] {
		case "get":
			return c.print(c.client().GetProfile(ctx, rest[1]))
		case "set":
			return c.profileSet(ctx, rest[1], rest[2:], stderr)
		}
		return errUsage

	case "stats":
		if len(rest) < 2 {
			return errUsage
		}
		switch rest[0] {
		case "get":
			return c.print(c.client().GetStats(ctx, rest[1]))
		case "incr":
			return c.statsIncr(ctx, rest[1:], stderr)
		}
		return errUsage

	case "event":
		if len(rest) != 2 {
			return errUsage
		}
		return c.print(c.client().RecordEvent(ctx, rest[0], rest[1]))

	case "token":
		return c.token(rest, stderr)
	}
	return errUsage
}

func (c *cli) profileSet(ctx context.Context, userID string, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("profile set", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	displayName := fs.String("display-name", "", "display name (empty clears)")
	avatarURL := fs.String("avatar-url", "", "avatar URL (empty clears)")
	bio := fs.String("bio", "", "bio (empty clears)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	// Only flags given on the command line are sent, so the rest are kept.
	var update client.ProfileUpdate
	if fs.Changed("display-name") {
		update.DisplayName = displayName
	}
	if fs.Changed("avatar-url") {
		update.AvatarURL = avatarURL
	}
	if fs.Changed("bio") {
		update.Bio = bio
	}
	return c.print(c.client().UpdateProfile(ctx, userID, update))
}

func (c *cli) statsIncr(ctx context.Context, args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("stats incr", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	by := fs.Int64("by", 1, "amount to add")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	return c.print(c.client().UpdateStats(ctx, fs.Arg(0), fs.Arg(1), *by))
}

func (c *cli) token(args []string, stderr io.Writer) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	ttl := fs.Duration("ttl", auth.DefaultTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	tokens, err := auth.NewTokenService(c.v.GetString("secret"))
	if err != nil {
		return fmt.Errorf("token: %w (set --secret or JWT_SECRET)", err)
	}
	tok, err := tokens.GenerateWithDuration(fs.Arg(0), *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.stdout, tok)
	return err
}

// print writes v as indented JSON, or returns err.
func (c *cli) print(v any, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
