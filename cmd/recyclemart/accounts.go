package main

import (
	"context"
	"fmt"
	"strings"
)

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password, prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := c.prompt("email", *email)
	if err != nil {
		return err
	}
	p, err := c.prompt("password", *password)
	if err != nil {
		return err
	}
	hint, err := c.app.Auth.Login(ctx, e, p)
	if err != nil {
		return err
	}
	c.success("signed in as %s (%s)", displayName(hint.Name, hint.Email), hint.Role)
	return nil
}

func runVerifyOTP(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("verify-otp")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "emailed code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	hint, err := c.app.Auth.VerifyOTP(ctx, *email, *code)
	if err != nil {
		return err
	}
	c.success("verified, signed in as %s", displayName(hint.Name, hint.Email))
	return nil
}

func runResendOTP(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("resend-otp")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.app.Auth.ResendOTP(ctx, *email); err != nil {
		return err
	}
	c.success("a new code was sent to %s", *email)
	return nil
}

func runForgot(ctx context.Context, c *cli, args []string) error {
	fs := c.flags("forgot")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e := strings.TrimSpace(*email)
	if e == "" {
		fmt.Fprintln(c.errOut, "forgot: -email is required")
		return errUsage
	}
	if err := c.app.API.ForgotPassword(ctx, e); err != nil {
		return err
	}
	c.success("reset instructions were sent to %s", e)
	return nil
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Auth.Logout(ctx); err != nil {
		return err
	}
	c.success("signed out")
	return nil
}

func runWhoami(ctx context.Context, c *cli, _ []string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	p, err := c.app.API.Profile(ctx, token)
	if err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintf(tw, "id\t%s\n", p.ID)
	fmt.Fprintf(tw, "name\t%s\n", p.Name)
	fmt.Fprintf(tw, "email\t%s\n", p.Email)
	fmt.Fprintf(tw, "phone\t%s\n", p.Phone)
	fmt.Fprintf(tw, "role\t%s\n", p.Role)
	fmt.Fprintf(tw, "verified\t%t\n", p.Verified)
	fmt.Fprintf(tw, "joined\t%s\n", formatTime(p.CreatedAt))
	return tw.Flush()
}

func runPlans(ctx context.Context, c *cli, _ []string) error {
	plans, err := c.app.API.Plans(ctx)
	if err != nil {
		return err
	}
	tw := c.table()
	c.header(tw, "ID", "NAME", "PRICE", "DAYS", "ADS", "FEATURES")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			p.ID, p.Name, formatPrice(p.Price), p.DurationDays, p.AdLimit, strings.Join(p.Features, ", "))
	}
	return tw.Flush()
}

// runSubscription shows the current plan, or with "change <planId>" or
// "cancel" modifies it.
func runSubscription(ctx context.Context, c *cli, args []string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		switch args[0] {
		case "change":
			if len(args) != 2 {
				fmt.Fprintln(c.errOut, "usage: recyclemart subscription change <planId>")
				return errUsage
			}
			if err := c.app.API.ChangePlan(ctx, token, args[1]); err != nil {
				return err
			}
			c.success("plan changed")
			return nil
		case "cancel":
			if err := c.app.API.CancelSubscription(ctx, token); err != nil {
				return err
			}
			c.success("subscription cancelled")
			return nil
		default:
			fmt.Fprintln(c.errOut, "usage: recyclemart subscription [change <planId> | cancel]")
			return errUsage
		}
	}

	sub, err := c.app.API.MySubscription(ctx, token)
	if err != nil {
		return err
	}
	tw := c.table()
	fmt.Fprintf(tw, "plan\t%s\n", sub.Plan.Name)
	fmt.Fprintf(tw, "status\t%s\n", sub.Status)
	fmt.Fprintf(tw, "started\t%s\n", formatTime(sub.StartDate))
	fmt.Fprintf(tw, "ends\t%s\n", formatTime(sub.EndDate))
	fmt.Fprintf(tw, "auto renew\t%t\n", sub.AutoRenew)
	return tw.Flush()
}

func runInvoices(ctx context.Context, c *cli, _ []string) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}
	invoices, err := c.app.API.Invoices(ctx, token)
	if err != nil {
		return err
	}
	tw := c.table()
	c.header(tw, "NUMBER", "PLAN", "AMOUNT", "STATUS", "ISSUED", "PAID")
	for _, inv := range invoices {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			inv.Number, inv.PlanName, formatPrice(inv.Amount), inv.Status, formatTime(inv.IssuedAt), formatTime(inv.PaidAt))
	}
	return tw.Flush()
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
