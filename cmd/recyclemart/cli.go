package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/infra/api"
	"recyclemart/internal/infra/bootstrap"
)

type cli struct {
	app    *bootstrap.App
	out    io.Writer
	errOut io.Writer
	stdin  io.Reader
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) token(ctx context.Context) (string, error) {
	return c.app.Auth.AccessToken(ctx)
}

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) header(tw *tabwriter.Writer, cols ...string) {
	bold := color.New(color.Bold)
	for i, col := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		bold.Fprint(tw, col)
	}
	fmt.Fprintln(tw)
}

func (c *cli) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(c.out, format+"\n", args...)
}

// prompt reads one line from stdin when a value was not given as a flag.
func (c *cli) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(c.errOut, "%s: ", label)
	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func describe(err error) string {
	if errors.Is(err, chatapp.ErrNotAuthenticated) || errors.Is(err, api.ErrUnauthorized) {
		return "not signed in, run `recyclemart login` first"
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.ServerMessage()
	}
	return err.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatPrice(p float64) string {
	return fmt.Sprintf("৳ %.0f", p)
}

func badge(b bool, label string) string {
	if b {
		return label
	}
	return ""
}
