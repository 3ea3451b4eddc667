package command

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/storefront-go/internal/core/domain"
)

func loginCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "sign in with email and password",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "account email"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "password (prompted when omitted)", EnvVars: []string{"STOREFRONT_PASSWORD"}},
		},
		Action: func(c *cli.Context) error {
			email, err := valueOrPrompt(rt, c, "email", "Email: ")
			if err != nil {
				return err
			}
			password, err := valueOrPrompt(rt, c, "password", "Password: ")
			if err != nil {
				return err
			}

			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			profile, err := a.Session.Login(c.Context, domain.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			return signedIn(rt, c, profile, a.Session.State())
		},
	}
}

func loginGoogleCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:      "login-google",
		Usage:     "sign in with a Google OAuth authorization code",
		ArgsUsage: "CODE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "code", Usage: "authorization code from the OAuth redirect"},
		},
		Action: func(c *cli.Context) error {
			code, err := argOrFlag(c, "code", "authorization code")
			if err != nil {
				return err
			}
			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			profile, err := a.Session.LoginWithOAuthCode(c.Context, code)
			if err != nil {
				return err
			}
			return signedIn(rt, c, profile, a.Session.State())
		},
	}
}

func registerCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create an account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "password (prompted when omitted)"},
			&cli.StringFlag{Name: "confirm", Usage: "password confirmation (defaults to --password)"},
		},
		Action: func(c *cli.Context) error {
			reg := domain.Registration{
				Username: strings.TrimSpace(c.String("username")),
				Email:    strings.TrimSpace(c.String("email")),
			}
			reg.Password1 = c.String("password")
			reg.Password2 = c.String("confirm")
			if reg.Password1 == "" {
				var err error
				if reg.Password1, err = rt.prompt("Password: ", "password"); err != nil {
					return err
				}
				if reg.Password2, err = rt.prompt("Confirm password: ", "confirm"); err != nil {
					return err
				}
			} else if reg.Password2 == "" {
				reg.Password2 = reg.Password1
			}

			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			profile, err := a.Session.Register(c.Context, reg)
			if err != nil {
				return err
			}
			if a.Session.State() != domain.SessionAuthenticated {
				return rt.done(c, "Account created. Confirm it with the link sent to %s, then log in.", reg.Email)
			}
			return signedIn(rt, c, profile, a.Session.State())
		},
	}
}

func logoutCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "end the session and clear local data",
		Action: func(c *cli.Context) error {
			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			if err := a.Session.Logout(c.Context); err != nil {
				return err
			}
			return rt.done(c, "Logged out.")
		},
	}
}

func whoamiCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the signed-in user",
		Action: func(c *cli.Context) error {
			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			profile, err := a.Session.Profile(c.Context)
			if err != nil {
				return err
			}
			return rt.show(c, profile, profileView{profile: profile, state: a.Session.State()})
		},
	}
}

func deactivateCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:  "deactivate",
		Usage: "deactivate the signed-in account",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "skip the confirmation"},
		},
		Action: func(c *cli.Context) error {
			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			profile, err := a.Session.Profile(c.Context)
			if err != nil {
				return err
			}

			if !c.Bool("force") {
				answer, err := rt.prompt("Deactivate account "+profile.Username+"? This cannot be undone. [y/N] ", "force")
				if err != nil {
					return err
				}
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					return rt.done(c, "Aborted.")
				}
			}

			if err := a.Session.Deactivate(c.Context); err != nil {
				return err
			}
			return rt.done(c, "Account %s deactivated.", profile.Username)
		},
	}
}

func resendEmailCommand(rt *Runtime) *cli.Command {
	return &cli.Command{
		Name:      "resend-email",
		Usage:     "send the email confirmation link again",
		ArgsUsage: "EMAIL",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}},
		},
		Action: func(c *cli.Context) error {
			email, err := argOrFlag(c, "email", "email")
			if err != nil {
				return err
			}
			a, err := rt.App(c.Context)
			if err != nil {
				return err
			}
			if err := a.Session.ResendEmailConfirmation(c.Context, email); err != nil {
				return err
			}
			return rt.done(c, "Confirmation email sent to %s.", email)
		},
	}
}

func valueOrPrompt(rt *Runtime, c *cli.Context, flag, label string) (string, error) {
	if v := c.String(flag); v != "" {
		return v, nil
	}
	return rt.prompt(label, flag)
}

// signedIn prints the profile returned by a sign-in. The profile can be nil
// when the backend accepted the login but the profile fetch failed.
func signedIn(rt *Runtime, c *cli.Context, profile *domain.UserProfile, state domain.SessionState) error {
	if profile == nil {
		return rt.done(c, "Logged in.")
	}
	return rt.show(c, profile, profileView{profile: profile, state: state})
}
