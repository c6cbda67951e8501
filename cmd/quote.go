package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"cashoffer/internal/bootstrap/logging"
	domainoffer "cashoffer/internal/domain/offer"
	"cashoffer/internal/errs"
	"cashoffer/internal/ports"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Submit and manage cash offer quotes",
}

var quoteSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an intake form file as a new quote",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		file, _ := cmd.Flags().GetString("file")
		form, err := readIntakeForm(file)
		if err != nil {
			return err
		}
		session, err := resolveSession(ctx, cmd, svc.Identity)
		if err != nil {
			return err
		}

		wizard := svc.Offers.NewWizard()
		for _, step := range form.Steps() {
			if err := wizard.Advance(step); err != nil {
				return reportUserError(cmd, err, "advance intake wizard")
			}
		}
		quoteID, err := wizard.Submit(ctx, session)
		if err != nil {
			logging.Error(ctx, "submit quote failed", slog.Any("err", errs.Loggable(err)))
			return reportUserError(cmd, err, "submit quote")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "submitted quote: %s\n", quoteID); err != nil {
			return errs.Wrap(err, "write submit output")
		}
		return nil
	}),
}

var quoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotes across all users",
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		userID, _ := cmd.Flags().GetString("user")
		rawStatuses, _ := cmd.Flags().GetStringSlice("status")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := ports.QuoteFilter{UserID: strings.TrimSpace(userID), Limit: limit}
		for _, raw := range rawStatuses {
			status, err := domainoffer.ParseQuoteStatus(raw)
			if err != nil {
				return errs.Wrap(err, "parse status filter")
			}
			filter.Statuses = append(filter.Statuses, status)
		}

		views, err := svc.Offers.ListAllQuotes(ctx, filter)
		if err != nil {
			logging.Error(ctx, "list quotes failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list quotes")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		if _, err := fmt.Fprintln(w, "quote_id\tstatus\toffer\tuser_id\taddress\tcreated_at"); err != nil {
			return errs.Wrap(err, "write quote list header")
		}
		for _, view := range views {
			offerText := "calculating"
			if amount, ok := view.DisplayAmount(); ok {
				offerText = fmt.Sprintf("%d", amount)
			}
			if _, err := fmt.Fprintf(
				w,
				"%s\t%s\t%s\t%s\t%s\t%s\n",
				view.Quote.ID,
				view.Quote.Status,
				offerText,
				view.Quote.UserID,
				view.Property.Address,
				view.Quote.CreatedAt.Format(time.RFC3339),
			); err != nil {
				return errs.Wrap(err, "write quote row")
			}
		}
		if err := w.Flush(); err != nil {
			return errs.Wrap(err, "flush quote list")
		}
		return nil
	}),
}

var quoteOfferCmd = &cobra.Command{
	Use:   "offer <quote-id>",
	Short: "Make the formal offer after the inspection",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		quoteID := cmd.Flags().Arg(0)
		amount, _ := cmd.Flags().GetInt("amount")

		if err := svc.Offers.MakeFormalOffer(ctx, quoteID, amount); err != nil {
			logging.Error(ctx, "make formal offer failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "make formal offer")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "formal offer sent: %s amount=%d\n", quoteID, amount); err != nil {
			return errs.Wrap(err, "write offer output")
		}
		return nil
	}),
}

var quoteCloseCmd = &cobra.Command{
	Use:   "close <quote-id>",
	Short: "Close an accepted or declined quote",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, svc *appServices) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		quoteID := cmd.Flags().Arg(0)

		if err := svc.Offers.CloseQuote(ctx, quoteID); err != nil {
			logging.Error(ctx, "close quote failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "close quote")
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "closed quote: %s\n", quoteID); err != nil {
			return errs.Wrap(err, "write close output")
		}
		return nil
	}),
}

func readIntakeForm(path string) (domainoffer.IntakeForm, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return domainoffer.IntakeForm{}, errors.New("--file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domainoffer.IntakeForm{}, errs.Wrapf(err, "read intake file %q", path)
	}
	var form domainoffer.IntakeForm
	if err := yaml.Unmarshal(raw, &form); err != nil {
		return domainoffer.IntakeForm{}, errs.Wrapf(err, "decode intake file %q", path)
	}
	return form, nil
}

// resolveSession authenticates from --token or from --email/--password.
func resolveSession(ctx context.Context, cmd *cobra.Command, ident ports.Identity) (*ports.Session, error) {
	token, _ := cmd.Flags().GetString("token")
	if strings.TrimSpace(token) != "" {
		session, err := ident.CurrentSession(ctx, token)
		if err != nil {
			return nil, errs.Wrap(err, "resolve session from token")
		}
		return session, nil
	}

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}
	issued, err := ident.SignIn(ctx, email, password)
	if err != nil {
		return nil, errs.Wrap(err, "sign in")
	}
	return &issued.Session, nil
}

// reportUserError prints the user-facing message of err and returns it wrapped.
func reportUserError(cmd *cobra.Command, err error, op string) error {
	var validation *domainoffer.ValidationError
	if errors.As(err, &validation) {
		for field, msg := range validation.Fields {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
		}
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), errs.UserMessage(err, err.Error()))
	return errs.Wrap(err, op)
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.AddCommand(quoteSubmitCmd)
	quoteCmd.AddCommand(quoteListCmd)
	quoteCmd.AddCommand(quoteOfferCmd)
	quoteCmd.AddCommand(quoteCloseCmd)

	quoteSubmitCmd.Flags().String("file", "", "Intake form YAML file")
	quoteSubmitCmd.Flags().String("token", "", "Bearer token of the seller")
	quoteSubmitCmd.Flags().String("email", "", "Seller email (used with --password)")
	quoteSubmitCmd.Flags().String("password", "", "Seller password")
	_ = quoteSubmitCmd.MarkFlagRequired("file")

	quoteListCmd.Flags().String("user", "", "Only quotes of this user id")
	quoteListCmd.Flags().StringSlice("status", nil, "Status filter (repeatable)")
	quoteListCmd.Flags().Int("limit", 50, "Max quotes")

	quoteOfferCmd.Flags().Int("amount", 0, "Formal offer amount in whole dollars")
	_ = quoteOfferCmd.MarkFlagRequired("amount")
}
