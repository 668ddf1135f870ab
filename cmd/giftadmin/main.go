package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/router-for-me/GiftAdmin/internal/app"
	"github.com/router-for-me/GiftAdmin/internal/config"
	"github.com/router-for-me/GiftAdmin/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagConfig      = "config"
	flagPort        = "port"
	flagMode        = "mode"
	flagDatabaseURL = "database-url"
	flagJWTSecret   = "jwt-secret"
	flagRedisAddr   = "redis-addr"
	flagLogLevel    = "log-level"
	flagUsername    = "username"
	flagPassword    = "password"
)

// persistentBindings maps root flags onto the viper keys shared with the environment.
var persistentBindings = map[string]string{
	flagConfig:      config.KeyConfigPath,
	flagPort:        config.KeyPort,
	flagMode:        config.KeyMode,
	flagDatabaseURL: config.KeyDatabaseURL,
	flagJWTSecret:   config.KeyJWTSecret,
	flagRedisAddr:   config.KeyRedisAddr,
	flagLogLevel:    config.KeyLogLevel,
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "giftadmin: %v\n", err)
		os.Exit(1)
	}
}

// cliState carries the loaded configuration between cobra hooks and commands.
type cliState struct {
	cfg       config.Config
	logCloser io.Closer
}

func newRootCommand() *cobra.Command {
	state := &cliState{}
	cmd := &cobra.Command{
		Use:           "giftadmin",
		Short:         "Gift code administration backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if state.logCloser != nil {
				_ = state.logCloser.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagConfig, "", "path to the YAML config file (default config.yaml)")
	flags.Int(flagPort, 0, "HTTP listen port")
	flags.String(flagMode, "", "production or development")
	flags.String(flagDatabaseURL, "", "database DSN, overrides the database section")
	flags.String(flagJWTSecret, "", "JWT signing secret")
	flags.String(flagRedisAddr, "", "redis address for login throttling")
	flags.String(flagLogLevel, "", "log level")

	cmd.AddCommand(
		newServeCommand(state),
		newMigrateCommand(state),
		newBootstrapCommand(state),
		newCheckDBCommand(state),
		newResetPasswordCommand(state),
	)
	return cmd
}

// load resolves the config file, applies environment and flag overrides and
// configures logging.
func (s *cliState) load(cmd *cobra.Command) error {
	v := viper.New()
	if err := config.BindEnv(v); err != nil {
		return err
	}
	for flagName, key := range persistentBindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg, errLoad := config.Load(config.ResolveConfigPath(v.GetString(config.KeyConfigPath)))
	if errLoad != nil {
		return errLoad
	}
	cfg.ApplyOverrides(v)
	s.cfg = cfg

	closer, errSetup := logging.Setup(cfg.Log, cfg.IsDevelopment())
	if errSetup != nil {
		return errSetup
	}
	s.logCloser = closer
	return nil
}

func newServeCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.RunServer(ctx, state.cfg)
		},
	}
}

func newMigrateCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(cmd.Context(), state.cfg)
		},
	}
}

func newBootstrapCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the configured super_admin account if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Bootstrap(cmd.Context(), state.cfg)
		},
	}
}

func newCheckDBCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Ping the database and list its tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := app.CheckDB(cmd.Context(), state.cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "database connection ok")
			for _, table := range tables {
				fmt.Fprintf(out, "  %s\n", table)
			}
			return nil
		},
	}
}

func newResetPasswordCommand(state *cliState) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ResetPassword(cmd.Context(), state.cfg, username, password)
		},
	}
	cmd.Flags().StringVar(&username, flagUsername, "", "account username (required)")
	cmd.Flags().StringVar(&password, flagPassword, "", "new password (required)")
	_ = cmd.MarkFlagRequired(flagUsername)
	_ = cmd.MarkFlagRequired(flagPassword)
	return cmd
}
