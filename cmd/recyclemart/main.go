// Command recyclemart is a terminal client for the Recycle Mart marketplace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"

	"recyclemart/internal/infra/bootstrap"
	"recyclemart/internal/infra/config"
	"recyclemart/internal/infra/obs"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"login":        {"sign in with email and password", runLogin},
	"verify-otp":   {"finish sign-up with the emailed code", runVerifyOTP},
	"resend-otp":   {"send a new sign-up code", runResendOTP},
	"forgot":       {"request a password reset email", runForgot},
	"logout":       {"forget the saved session", runLogout},
	"whoami":       {"show the signed-in profile", runWhoami},
	"ads":          {"search ads", runAds},
	"ad":           {"show one ad", runAd},
	"my-ads":       {"list your own ads", runMyAds},
	"report":       {"report an ad", runReport},
	"categories":   {"list categories", runCategories},
	"favorites":    {"list saved ads", runFavorites},
	"favorite":     {"add or remove a saved ad", runFavorite},
	"plans":        {"list subscription plans", runPlans},
	"subscription": {"show or change your subscription", runSubscription},
	"invoices":     {"list subscription invoices", runInvoices},
	"chat":         {"open the chat window", runChat},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	logOut := stderr
	if args[0] == "chat" {
		f, err := obs.OpenLogFile(bootstrap.LogPath(cfg))
		if err != nil {
			fmt.Fprintln(stderr, "log file:", err)
			return 1
		}
		defer f.Close()
		logOut = f
	} else if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel, logOut)

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, "setup:", err)
		return 1
	}
	c := &cli{app: app, out: stdout, errOut: stderr, stdin: os.Stdin}
	if err := cmd.run(ctx, c, args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		color.New(color.FgRed).Fprintln(stderr, "error:", describe(err))
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: recyclemart <command> [flags] [args]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
}
