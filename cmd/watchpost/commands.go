package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"watchpost/config"
	"watchpost/core/appbootstrap"
	"watchpost/core/utils"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	cfg        *config.AppConfig
	logger     *utils.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "watchpost",
		Short:         "Neighbourhood safety incident service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = utils.NewLoggerForEnv(cfg.AppEnv, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("WATCHPOST_CONFIG"), "path to YAML config (env overrides still apply)")
	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newSweepCmd(opts), newUsersCmd(opts))
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the retention sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return appbootstrap.Serve(ctx, opts.cfg, opts.logger)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := appbootstrap.OpenDatabase(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete resolved incidents past their retention window once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := appbootstrap.SweepOnce(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted=%d sessions_purged=%d\n", res.Deleted, res.SessionsPurged)
			return nil
		},
	}
}

func newUsersCmd(opts *rootOptions) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage admin and resolver accounts",
	}
	var role, password string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an admin or resolver account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("WATCHPOST_USER_PASSWORD")
			}
			if strings.TrimSpace(password) == "" {
				return errors.New("password required (--password or WATCHPOST_USER_PASSWORD)")
			}
			u, err := appbootstrap.CreateUser(cmd.Context(), opts.cfg, opts.logger, args[0], password, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", u.Username, u.Role)
			return nil
		},
	}
	create.Flags().StringVar(&role, "role", "resolver", "admin or resolver")
	create.Flags().StringVar(&password, "password", "", "initial password")
	users.AddCommand(create)
	return users
}
