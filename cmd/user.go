package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cashoffer/internal/bootstrap/logging"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Seller account commands",
}

var userSignUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a seller account and send the verification link",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		firstName, _ := cmd.Flags().GetString("first-name")
		lastName, _ := cmd.Flags().GetString("last-name")
		phone, _ := cmd.Flags().GetString("phone")

		account, err := svc.Identity.SignUp(ctx, ports.SignUpInput{
			Email:     email,
			Password:  password,
			FirstName: firstName,
			LastName:  lastName,
			Phone:     phone,
		})
		if err != nil {
			logging.Error(ctx, "sign up failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "sign up")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "created account: %s email=%s\n", account.UserID, account.Email); err != nil {
			return errs.Wrap(err, "write signup output")
		}
		return nil
	}),
}

var userSignInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Issue a bearer token",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		issued, err := svc.Identity.SignIn(ctx, email, password)
		if err != nil {
			return errs.Wrap(err, "sign in")
		}
		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"token: %s\nexpires_at: %s\nemail_verified: %t\n",
			issued.Token,
			issued.ExpiresAt.Format(time.RFC3339),
			issued.Session.EmailVerified(),
		); err != nil {
			return errs.Wrap(err, "write signin output")
		}
		return nil
	}),
}

var userVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an email with a link token, or confirm it directly by address",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		token, _ := cmd.Flags().GetString("token")
		email, _ := cmd.Flags().GetString("email")

		var (
			session ports.Session
			err     error
		)
		switch {
		case strings.TrimSpace(token) != "":
			session, err = svc.Identity.VerifyEmail(ctx, token)
		case strings.TrimSpace(email) != "":
			session, err = svc.Identity.ConfirmEmail(ctx, email)
		default:
			return errors.New("either --token or --email is required")
		}
		if err != nil {
			logging.Error(ctx, "verify email failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "verify email")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "email verified: %s\n", session.Email); err != nil {
			return errs.Wrap(err, "write verify output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userSignUpCmd)
	userCmd.AddCommand(userSignInCmd)
	userCmd.AddCommand(userVerifyCmd)

	userSignUpCmd.Flags().String("email", "", "Account email")
	userSignUpCmd.Flags().String("password", "", "Account password")
	userSignUpCmd.Flags().String("first-name", "", "First name")
	userSignUpCmd.Flags().String("last-name", "", "Last name")
	userSignUpCmd.Flags().String("phone", "", "Phone number")
	_ = userSignUpCmd.MarkFlagRequired("email")
	_ = userSignUpCmd.MarkFlagRequired("password")

	userSignInCmd.Flags().String("email", "", "Account email")
	userSignInCmd.Flags().String("password", "", "Account password")
	_ = userSignInCmd.MarkFlagRequired("email")

	userVerifyCmd.Flags().String("token", "", "Verification token from the email link")
	userVerifyCmd.Flags().String("email", "", "Confirm this address without a token (operator)")
}
