package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-auth-core/config"
)

var (
	cfg        *config.Config
	configFile string
	flags      = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "authd",
	Short: "Identity and access service",
	Long: `authd registers principals, issues signed access tokens and
administers role memberships over an HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := []config.Option{config.WithViper(flags)}
		if configFile != "" {
			opts = append(opts, config.WithConfigFile(configFile))
		}

		var err error
		cfg, err = config.Load(opts...)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	pf.String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	pf.String("log-level", "", "Log level (env: LOG_LEVEL)")
	pf.String("log-format", "", "Log format, json or console (env: LOG_FORMAT)")
	pf.Bool("debug", false, "Enable debug logging (env: DEBUG)")

	mustBind("database.url", "db-url")
	mustBind("log.level", "log-level")
	mustBind("log.format", "log-format")
	mustBind("debug", "debug")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(usersCmd)
}

func mustBind(key, flag string) {
	if err := flags.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
