package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ecospectre-be/pkg/syncclient"

	"github.com/spf13/cobra"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newCredentialCommand(ctx, "register", "Create an account and sign in", func(c context.Context, client *syncclient.APIClient, email, password string) (*syncclient.Session, error) {
			return client.Register(c, email, password)
		}),
		newCredentialCommand(ctx, "login", "Sign in to sync scans to your account", func(c context.Context, client *syncclient.APIClient, email, password string) (*syncclient.Session, error) {
			return client.Login(c, email, password)
		}),
		newLogoutCommand(ctx),
	}
}

type credentialCall func(ctx context.Context, client *syncclient.APIClient, email, password string) (*syncclient.Session, error)

func newCredentialCommand(ctx *commandContext, use, short string, call credentialCall) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			email = strings.TrimSpace(email)
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			session, err := call(cmd.Context(), client, email, password)
			if err != nil {
				var apiErr *syncclient.APIError
				if errors.As(err, &apiErr) {
					return errors.New(apiErr.Message)
				}
				return err
			}
			if err := saveCredentials(ctx.credentialsPath(), session); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", okText("✓"), boldText(session.User.Email))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clearCredentials(ctx.credentialsPath()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
