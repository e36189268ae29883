package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type whoamiCmd struct{}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "show the current role, session and agency" }
func (*whoamiCmd) Usage() string    { return "whoami\n" }

func (*whoamiCmd) SetFlags(*flag.FlagSet) {}

func (*whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		fmt.Fprintf(stdout, "Role:   %s\n", a.svc.Role())
		if a.svc.DemoMode() {
			fmt.Fprintln(stdout, "Mode:   demo")
		}
		if sess := a.svc.Session(); sess != nil {
			fmt.Fprintf(stdout, "User:   %s (%s)\n", sess.Email, sess.UserID)
		}
		if cur := a.svc.CurrentAgency(); cur.ID != "" {
			fmt.Fprintf(stdout, "Agency: %s (%s)\n", cur.Name, cur.ID)
		}
		return nil
	})
}

type loginReaderCmd struct {
	passcode string
}

func (*loginReaderCmd) Name() string     { return "login-reader" }
func (*loginReaderCmd) Synopsis() string { return "get read-only access to an agency with its passcode" }
func (*loginReaderCmd) Usage() string    { return "login-reader -passcode <agency passcode>\n" }

func (c *loginReaderCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.passcode, "passcode", "", "Agency reader passcode (required)")
}

func (c *loginReaderCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		ok, err := a.svc.LoginAsReader(ctx, c.passcode)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no agency matches that passcode")
		}
		fmt.Fprintf(stdout, "Reading %s.\n", a.svc.CurrentAgency().Name)
		return nil
	})
}

type loginDemoCmd struct{}

func (*loginDemoCmd) Name() string     { return "login-demo" }
func (*loginDemoCmd) Synopsis() string { return "become admin locally without a backend account" }
func (*loginDemoCmd) Usage() string    { return "login-demo\n" }

func (*loginDemoCmd) SetFlags(*flag.FlagSet) {}

func (*loginDemoCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := a.svc.LoginAsDemoAdmin(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Demo admin mode on. Changes stay on this machine.")
		return nil
	})
}

type credentials struct {
	email, password string
}

func (c *credentials) register(f *flag.FlagSet) {
	f.StringVar(&c.email, "email", "", "Account email (required)")
	f.StringVar(&c.password, "password", "", "Account password (required)")
}

func (c *credentials) check() error {
	if c.email == "" || c.password == "" {
		return usagef("-email and -password are required")
	}
	return nil
}

type signUpCmd struct {
	credentials
}

func (*signUpCmd) Name() string     { return "sign-up" }
func (*signUpCmd) Synopsis() string { return "create a backend account and sign in" }
func (*signUpCmd) Usage() string    { return "sign-up -email <email> -password <password>\n" }

func (c *signUpCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *signUpCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := c.check(); err != nil {
			return err
		}
		sess, err := a.svc.SignUp(ctx, c.email, c.password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Signed up as %s.\n", sess.Email)
		return nil
	})
}

type signInCmd struct {
	credentials
}

func (*signInCmd) Name() string     { return "sign-in" }
func (*signInCmd) Synopsis() string { return "sign in to the backend as admin" }
func (*signInCmd) Usage() string {
	return `sign-in -email <email> -password <password>

  When the account has a cloud copy it replaces the local data.
`
}

func (c *signInCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *signInCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := c.check(); err != nil {
			return err
		}
		sess, err := a.svc.SignIn(ctx, c.email, c.password)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Signed in as %s.\n", sess.Email)
		return nil
	})
}

type logoutCmd struct{}

func (*logoutCmd) Name() string     { return "logout" }
func (*logoutCmd) Synopsis() string { return "drop the current role and end any backend session" }
func (*logoutCmd) Usage() string    { return "logout\n" }

func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		return a.svc.Logout(ctx)
	})
}

type changePasswordCmd struct {
	password string
}

func (*changePasswordCmd) Name() string     { return "change-password" }
func (*changePasswordCmd) Synopsis() string { return "change the signed-in account's password" }
func (*changePasswordCmd) Usage() string    { return "change-password -password <new password>\n" }

func (c *changePasswordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.password, "password", "", "New password (required)")
}

func (c *changePasswordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.password == "" {
			return usagef("-password is required")
		}
		return a.svc.UpdatePassword(ctx, c.password)
	})
}

type changePasscodeCmd struct {
	current, next, confirm string
}

func (*changePasscodeCmd) Name() string     { return "change-passcode" }
func (*changePasscodeCmd) Synopsis() string { return "change the UI passcode guarding destructive commands" }
func (*changePasscodeCmd) Usage() string {
	return "change-passcode -current <passcode> -new <passcode> -confirm <passcode>\n"
}

func (c *changePasscodeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.current, "current", "", "Current UI passcode")
	f.StringVar(&c.next, "new", "", "New UI passcode, at least 4 characters")
	f.StringVar(&c.confirm, "confirm", "", "New UI passcode again")
}

func (c *changePasscodeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := a.svc.ChangePasscode(c.current, c.next, c.confirm); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "UI passcode changed.")
		return nil
	})
}

type uploadCmd struct{}

func (*uploadCmd) Name() string     { return "upload" }
func (*uploadCmd) Synopsis() string { return "overwrite the cloud copy with the local data" }
func (*uploadCmd) Usage() string    { return "upload\n" }

func (*uploadCmd) SetFlags(*flag.FlagSet) {}

func (*uploadCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := a.svc.SyncLocalToCloud(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Local data uploaded.")
		return nil
	})
}
