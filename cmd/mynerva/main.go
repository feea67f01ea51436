package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/config"
	"github.com/yacchin1205/jupyter-mynerva/internal/logging"
)

var version = "0.3.0"

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mynerva",
	Short: "mynerva - conversational notebook engine",
	Long: `mynerva turns model replies into reviewed, structured edits of a Jupyter
notebook. The engine speaks a closed action vocabulary, holds every
requested operation for human approval, and feeds the results back into
the conversation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{
			Level:       level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the engine version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mynerva %s\n", version)
	},
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to engine.yaml (default ~/.mynerva/engine.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
