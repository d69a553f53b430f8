package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"nomnomhub/internal/app"
	"nomnomhub/internal/config"
	"nomnomhub/internal/version"
)

var (
	verbose    bool
	configFile string
	jsonOutput bool

	// appCtx is created once per process in PersistentPreRunE
	appCtx *app.Context
	logger *log.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nomnom",
	Short: "nomnom hub - editor templates and project generation",
	Long: `nomnom manages installed editors, their project templates and the
projects created from them.

It resolves the package set of a template against the editor's built-in
catalog, generates projects and packs projects back into templates.`,
	Version:       version.Build,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.nomnom/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(editorsCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(hubCmd)
	rootCmd.AddCommand(serveCmd)
}

// initApp loads the config and opens the application state
func initApp() error {
	if appCtx != nil {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = app.NewLogger(os.Stderr, cfg.LogLevel, verbose)
	appCtx, err = app.Open(cfg, logger)
	if err != nil {
		return err
	}
	logger.Debug("config loaded", "editors", cfg.EditorsPath, "cache", cfg.CacheDir)
	return nil
}

func loadConfig() (config.Config, error) {
	if configFile != "" {
		return config.LoadFrom(configFile)
	}
	return config.Load()
}
