package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"syscall"

	"golang.org/x/term"

	"github.com/GoSim-25-26J-441/lms-access-backend/config"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/session"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/checkout"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg     *config.ClientConfig
	out     io.Writer
	log     *slog.Logger
	toolkit *identity.Toolkit
	// widget overrides the hosted checkout page.
	widget checkout.Widget
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  signup -email EMAIL [-role ROLE] [-name NAME]  - create an account")
	fmt.Fprintln(cli.out, "  login -email EMAIL                             - sign in and print an ID token")
	fmt.Fprintln(cli.out, "  whoami -email EMAIL                            - sign in and print the session")
	fmt.Fprintln(cli.out, "  reset-password -email EMAIL                    - e-mail a password reset link")
	fmt.Fprintln(cli.out, "  checkout -email EMAIL -course ID [-coupon CODE] - pay for a course")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
	fs.SetOutput(cli.out)
	email := fs.String("email", "", "The account e-mail. The password is prompted next.")
	role := fs.String("role", "", "Requested role (signup only; the first account is always admin).")
	name := fs.String("name", "", "Display name (signup only).")
	course := fs.String("course", "", "Course to pay for (checkout only).")
	coupon := fs.String("coupon", "", "Coupon code (checkout only).")

	if err := fs.Parse(args[2:]); err != nil {
		return errHelp
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}

	switch args[1] {
	case "reset-password":
		return cli.resetPassword(ctx, *email)
	case "signup", "login", "whoami", "checkout":
	default:
		cli.printUsage()
		return errHelp
	}

	if args[1] == "checkout" && *course == "" {
		fs.Usage()
		return errHelp
	}

	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return errHelp
	}

	switch args[1] {
	case "signup":
		return cli.signup(ctx, *email, string(pwd), *role, *name)
	case "login":
		return cli.login(ctx, *email, string(pwd))
	case "whoami":
		return cli.whoami(ctx, *email, string(pwd))
	default:
		return cli.checkout(ctx, *email, string(pwd), *course, *coupon)
	}
}

func (cli *commandLine) signup(ctx context.Context, email, pwd, role, name string) error {
	if _, err := domain.ParseRole(role); err != nil {
		return err
	}

	api := newLMSAPI(cli.cfg.APIURL, cli.toolkit)
	user, err := api.Signup(ctx, signupRequest{Email: email, Password: pwd, Role: role, DisplayName: name})
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "created %s (%s) with role %s\n", user.Email, user.ID, user.Role)
	return nil
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	p, err := cli.toolkit.SignIn(ctx, email, pwd)
	if err != nil {
		return err
	}
	token, err := cli.toolkit.IDToken(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "signed in as %s (%s)\n%s\n", p.Email, p.ID, token)
	return nil
}

func (cli *commandLine) whoami(ctx context.Context, email, pwd string) error {
	store, err := cli.signIn(ctx, email, pwd)
	if err != nil {
		return err
	}

	s := store.Current()
	fmt.Fprintf(cli.out, "id:       %s\n", s.Principal.ID)
	fmt.Fprintf(cli.out, "email:    %s (verified: %t)\n", s.Principal.Email, s.Principal.EmailVerified)
	if s.Profile == nil {
		fmt.Fprintf(cli.out, "profile:  unavailable (%v)\n", s.ProfileErr)
		return nil
	}
	fmt.Fprintf(cli.out, "role:     %s\n", s.Profile.Role)
	fmt.Fprintf(cli.out, "paid:     %t\n", s.Profile.HasPaid)
	fmt.Fprintf(cli.out, "access:   %t %s\n", s.Profile.AccessGranted, s.Profile.AccessLevel)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, email string) error {
	if err := cli.toolkit.SendPasswordReset(ctx, email); err != nil && !errors.Is(err, domain.ErrInvalidLogin) {
		return err
	}
	fmt.Fprintf(cli.out, "if %s has an account, a reset link is on its way\n", email)
	return nil
}

func (cli *commandLine) checkout(ctx context.Context, email, pwd, course, coupon string) error {
	store, err := cli.signIn(ctx, email, pwd)
	if err != nil {
		return err
	}

	widget := cli.widget
	if widget == nil {
		widget = &checkout.HostedWidget{
			Addr:      cli.cfg.Payments.WidgetAddr,
			ScriptURL: cli.cfg.Payments.CheckoutJS,
			Wait:      cli.cfg.Payments.WidgetWait,
			OnReady: func(url string) {
				fmt.Fprintf(cli.out, "open %s in a browser to pay\n", url)
			},
			Log: cli.log,
		}
	}

	var o *checkout.Orchestrator
	o = checkout.NewOrchestrator(store,
		checkout.NewPaymentAPI(cli.cfg.Payments.APIBaseURL, cli.cfg.Payments.Timeout),
		widget,
		checkout.Options{
			SiteURL:      cli.cfg.Payments.SiteURL,
			ThemeColor:   cli.cfg.Payments.ThemeColor,
			MerchantName: "LMS",
			OnTransition: func(t checkout.Transition) {
				cli.log.Debug("checkout", slog.String("from", string(t.From)), slog.String("to", string(t.To)))
				if t.To != checkout.StateWidgetOpen {
					return
				}
				if intent, ok := o.Pending(); ok {
					fmt.Fprintf(cli.out, "order %s: %d %s\n", intent.OrderID, intent.Amount, intent.Currency)
				}
			},
		},
		cli.log, nil)

	conf, err := o.Checkout(ctx, course, coupon)
	if err != nil {
		return err
	}
	if conf == nil {
		fmt.Fprintln(cli.out, "checkout cancelled")
		return nil
	}

	fmt.Fprintf(cli.out, "enrolled in %s (enrollment %s)\n%s\n", conf.CourseID, conf.EnrollmentID, conf.URL)

	// Payment flags changed server-side.
	store.Refresh(ctx)
	if p := store.Current().Profile; p != nil {
		fmt.Fprintf(cli.out, "paid:     %t\naccess:   %t %s\n", p.HasPaid, p.AccessGranted, p.AccessLevel)
	}
	return nil
}

// signIn binds a session store to the toolkit and signs in. The store has
// loaded the profile by the time SignIn returns.
func (cli *commandLine) signIn(ctx context.Context, email, pwd string) (*session.Store, error) {
	store := session.NewStore(newLMSAPI(cli.cfg.APIURL, cli.toolkit), cli.log)
	store.Bind(ctx, cli.toolkit)

	if _, err := cli.toolkit.SignIn(ctx, email, pwd); err != nil {
		return nil, err
	}
	return store, nil
}
