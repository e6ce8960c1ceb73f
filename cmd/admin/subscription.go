package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/kevin07696/lawdesk/internal/domain"
	"github.com/kevin07696/lawdesk/pkg/timeutil"
)

type appRunner func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newSubscriptionCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Inspect and repair company subscriptions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status [company-id]",
		Short: "Print a company's subscription status",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			companyID, err := parseID(args[0])
			if err != nil {
				return err
			}
			payload, err := a.lifecycle.GetStatus(cmd.Context(), companyID)
			if err != nil {
				return err
			}
			return printJSON(cmd, payload)
		}),
	})

	var paidOn, cadence string
	applyPayment := &cobra.Command{
		Use:   "apply-payment [company-id]",
		Short: "Start a new billing period as if a payment arrived",
		Long: `Start a new billing period as if a payment arrived.

Examples:
  admin subscription apply-payment 42 --date 2024-03-01
  admin subscription apply-payment 42 --cadence annual`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			companyID, err := parseID(args[0])
			if err != nil {
				return err
			}
			date := timeutil.Now()
			if paidOn != "" {
				parsed, ok := timeutil.ParseTimestamp(paidOn)
				if !ok {
					return fmt.Errorf("invalid --date %q", paidOn)
				}
				date = parsed
			}
			hint, err := parseCadenceFlag(cadence)
			if err != nil {
				return err
			}

			var window *domain.PaymentWindow
			err = a.executor.WithTransaction(cmd.Context(), func(ctx context.Context, tx pgx.Tx) error {
				window, err = a.lifecycle.ApplyPayment(ctx, tx, companyID, date, hint)
				return err
			})
			if err != nil {
				return err
			}
			if window == nil {
				return fmt.Errorf("company %d not found", companyID)
			}
			return printJSON(cmd, window)
		}),
	}
	applyPayment.Flags().StringVar(&paidOn, "date", "", "payment date (YYYY-MM-DD or RFC3339, default now)")
	applyPayment.Flags().StringVar(&cadence, "cadence", "", "force monthly or annual")
	cmd.AddCommand(applyPayment)

	var dueOn, overdueCadence string
	applyOverdue := &cobra.Command{
		Use:   "apply-overdue [company-id]",
		Short: "Open the grace window as if a payment became overdue",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			companyID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var reference *time.Time
			if dueOn != "" {
				parsed, ok := timeutil.ParseTimestamp(dueOn)
				if !ok {
					return fmt.Errorf("invalid --due-date %q", dueOn)
				}
				reference = &parsed
			}
			hint, err := parseCadenceFlag(overdueCadence)
			if err != nil {
				return err
			}

			var window *domain.OverdueWindow
			err = a.executor.WithTransaction(cmd.Context(), func(ctx context.Context, tx pgx.Tx) error {
				window, err = a.lifecycle.ApplyOverdue(ctx, tx, companyID, reference, hint)
				return err
			})
			if err != nil {
				return err
			}
			if window == nil {
				return fmt.Errorf("company %d not found", companyID)
			}
			return printJSON(cmd, window)
		}),
	}
	applyOverdue.Flags().StringVar(&dueOn, "due-date", "", "due date the grace window counts from (default stored period end)")
	applyOverdue.Flags().StringVar(&overdueCadence, "cadence", "", "force monthly or annual")
	cmd.AddCommand(applyOverdue)

	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", raw)
	}
	return id, nil
}

func parseCadenceFlag(raw string) (domain.Cadence, error) {
	if raw == "" {
		return "", nil
	}
	c, ok := domain.ParseCadence(raw)
	if !ok {
		return "", fmt.Errorf("invalid --cadence %q: use monthly or annual", raw)
	}
	return c, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
