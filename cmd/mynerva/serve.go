package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yacchin1205/jupyter-mynerva/internal/agent"
	"github.com/yacchin1205/jupyter-mynerva/internal/config"
	"github.com/yacchin1205/jupyter-mynerva/internal/document"
	"github.com/yacchin1205/jupyter-mynerva/internal/files"
	"github.com/yacchin1205/jupyter-mynerva/internal/provider"
	"github.com/yacchin1205/jupyter-mynerva/internal/redact"
	"github.com/yacchin1205/jupyter-mynerva/internal/server"
	"github.com/yacchin1205/jupyter-mynerva/internal/session"
	"github.com/yacchin1205/jupyter-mynerva/internal/settings"
)

var notebookPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine's HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Named("serve")

		root, err := files.NewRoot(cfg.Workspace.Root)
		if err != nil {
			return fmt.Errorf("workspace root: %w", err)
		}

		var seed []document.SeedCell
		docKey := "untitled.ipynb"
		if notebookPath != "" {
			seed, err = root.ReadNotebook(notebookPath)
			if err != nil {
				return fmt.Errorf("open notebook: %w", err)
			}
			docKey = notebookPath
		}
		doc := document.NewLive(docKey, seed, nil)

		settingsPath := cfg.Workspace.SettingsPath
		if settingsPath == "" {
			settingsPath, err = settings.DefaultPath()
			if err != nil {
				return err
			}
		}
		settingsStore := settings.NewStore(settingsPath)
		providerCfg, err := settingsStore.Load()
		if err != nil {
			return err
		}
		client, err := provider.New(providerCfg.Provider, settings.ResolveAPIKey(providerCfg))
		if err != nil {
			return err
		}

		filter, err := buildFilter(cfg.Redaction.Rules)
		if err != nil {
			return err
		}

		sessions, err := session.Open(cfg.Workspace.SessionDB)
		if err != nil {
			return err
		}
		defer sessions.Close()

		ag := agent.New(agent.Options{
			Client:      client,
			Model:       providerCfg.Model,
			Doc:         doc,
			Root:        root,
			Filter:      filter,
			RedactionOn: cfg.Redaction.Enabled,
			MaxRetries:  cfg.Agent.MaxRetries,
			Logger:      logger.Named("agent"),
		})

		srv := server.New(server.Deps{
			Agent:    ag,
			Sessions: sessions,
			Settings: settingsStore,
			Logger:   logger.Named("http"),
		})

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Listen(cfg.Server.Addr) }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info("shutting down", zap.String("signal", sig.String()))
			return srv.Shutdown()
		}
	},
}

// buildFilter compiles the configured redaction rules, falling back to the
// built-in set when none are configured.
func buildFilter(rules []config.RedactionRule) (*redact.Filter, error) {
	if len(rules) == 0 {
		return redact.Compile(redact.DefaultRules())
	}
	pairs := make([][2]string, len(rules))
	for i, r := range rules {
		pairs[i] = [2]string{r.Pattern, r.Label}
	}
	return redact.Compile(pairs)
}

func init() {
	serveCmd.Flags().StringVar(&notebookPath, "notebook", "", "notebook to open, relative to the workspace root")
}
