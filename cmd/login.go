package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"libseat-cli/service"
	"libseat-cli/session"
	"libseat-cli/store"
)

func newLoginCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				prompt := promptui.Prompt{
					Label:    "Username",
					Validate: required("username"),
				}
				value, err := prompt.Run()
				if err != nil {
					return err
				}
				username = value
			}
			passwordPrompt := promptui.Prompt{
				Label:    "Password",
				Mask:     '*',
				Validate: required("password"),
			}
			password, err := passwordPrompt.Run()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.RequestTimeout)
			defer cancel()
			token, err := a.client.Login(ctx, strings.TrimSpace(username), password)
			if err != nil {
				a.logger.Warn("login failed", zap.String("username", username), zap.Error(err))
				if service.IsUnauthorized(err) {
					return errors.New("wrong username or password")
				}
				return fmt.Errorf("login: %w", err)
			}
			sess, err := session.New(token)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if err := store.SaveToken(token); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			a.logger.Info("signed in", zap.Int("user_id", sess.User().Id))
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s!\n", sess.User().DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	return cmd
}

func required(field string) promptui.ValidateFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ClearToken(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			a.logger.Info("signed out")
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
