package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevin07696/lawdesk/internal/services/asaas"
)

func newWebhookCmd(withApp appRunner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage Asaas webhook credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "secret [credential-id]",
		Short: "Print the callback URL and secret, creating the secret on first use",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			credentialID, err := parseID(args[0])
			if err != nil {
				return err
			}
			settings, err := a.secrets.WebhookSettings(cmd.Context(), credentialID)
			if err != nil {
				return err
			}
			return printJSON(cmd, settings)
		}),
	})

	var secret, file string
	sign := &cobra.Command{
		Use:   "sign",
		Short: "Sign a payload for manual webhook replay",
		Long: `Print the hex HMAC-SHA256 signature of a payload, as sent in the
asaas-signature header.

Examples:
  admin webhook sign --secret "$SECRET" --file payload.json
  cat payload.json | admin webhook sign --secret "$SECRET"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret is required")
			}
			var (
				body []byte
				err  error
			)
			if file != "" && file != "-" {
				body, err = os.ReadFile(file)
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), asaas.Sign(body, secret))
			return nil
		},
	}
	sign.Flags().StringVar(&secret, "secret", "", "credential webhook secret")
	sign.Flags().StringVarP(&file, "file", "f", "", "payload file (default stdin)")
	cmd.AddCommand(sign)

	return cmd
}
