package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/pilothouse-sh/pilothouse/internal/config"
	"github.com/pilothouse-sh/pilothouse/internal/db"
	"github.com/pilothouse-sh/pilothouse/internal/github"
	"github.com/pilothouse-sh/pilothouse/internal/logger"
	"github.com/pilothouse-sh/pilothouse/internal/server"
)

var (
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "pilothouse",
	Short: "Local control plane for AI assistant sessions",
	Long: `Pilothouse manages long-lived AI assistant conversation sessions, each
bound to a working directory and, optionally, a cloned GitHub repository
and branch. State lives in a single SQLite file.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local API server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date and exit",
	RunE:  runMigrate,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the external tools pilothouse drives are available",
	RunE:  runDoctor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd, doctorCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func setup() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		logger.SetDebug(true)
	} else {
		logger.SetLevel(cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		if err := logger.InitFile(cfg.LogFile); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer logger.Close()

	cfg, err := setup()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.New(db.NewQueries(database))
	if err := srv.Listen(cfg.Addr); err != nil {
		return err
	}
	return srv.Serve(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	defer logger.Close()

	cfg, err := setup()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	logger.Info("schema up to date", "path", cfg.DBPath)
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	for _, dep := range []struct {
		name    string
		helpURL string
	}{
		{"git", "https://git-scm.com"},
		{"gh", "https://cli.github.com"},
		{"claude", "https://docs.anthropic.com/en/docs/claude-code"},
	} {
		if _, err := exec.LookPath(dep.name); err != nil {
			return fmt.Errorf("%s CLI not found. Install: %s", dep.name, dep.helpURL)
		}
	}

	if err := github.CheckAuth(ctx); err != nil {
		return err
	}

	fmt.Println("All external tools are available.")
	return nil
}
