package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/hugo-lorenzo-mato/content-agency/internal/config"
	"github.com/hugo-lorenzo-mato/content-agency/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"

	// Set by initConfig before any subcommand runs.
	loader *config.Loader
	cfg    *config.Config
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "agency",
	Short: "AI content agency: research, write and review blog posts",
	Long: `agency turns a topic into a reviewed blog post. A planner validates the
topic, a researcher gathers web search notes, a writer drafts the post and
a reviewer scores it.

Run 'agency serve' for the REST API or 'agency run <topic>' to generate a
post from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build information.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./agency.yaml or ~/.config/agency/agency.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig(cmd *cobra.Command) error {
	loader = config.NewLoaderWithViper(viper.GetViper()).WithConfigFile(cfgFile)
	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if f := loader.ConfigFile(); f != "" {
		logger.Debug("config loaded", "file", f)
	}
	return nil
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
