package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conorfennell/studyboard/internal/api"
	"github.com/conorfennell/studyboard/internal/config"
	"github.com/conorfennell/studyboard/internal/credentials"
	"github.com/conorfennell/studyboard/internal/persist"
	"github.com/conorfennell/studyboard/internal/storage"
)

// app holds what every subcommand shares once flags are parsed.
type app struct {
	configPath string

	cfg     config.Config
	logger  *slog.Logger
	creds   *credentials.Store
	client  *api.Client
	journal *storage.DB
	bridge  *persist.Bridge
}

func main() {
	a := &app{}
	root := a.rootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	d := config.Default()
	root := &cobra.Command{
		Use:   "studyboard",
		Short: "Kanban board for course study plans",
		Long: `studyboard edits a study board kept by the studyboard backend. Every
change is applied locally at once and pushed to the backend in the
background; failed pushes are logged and recorded in the local journal.

Examples:
  studyboard login --token $TOKEN
  studyboard add list1 CS101 Algorithms "Week 1" --difficulty hard
  studyboard move list1 0 list2 0
  studyboard shell`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", filepath.Join(filepath.Dir(d.Credentials.Path), "config.yaml"), "Path to the YAML config file")
	pf.String("api-url", d.API.BaseURL, "Backend base URL")
	pf.Duration("api-timeout", d.API.Timeout, "Timeout for each backend request")
	pf.String("log-level", d.Log.Level, "Log level: debug|info|warn|error")
	pf.String("journal", d.Journal.Path, "Push journal database (empty disables it)")
	pf.String("credentials", d.Credentials.Path, "Credentials file")

	root.AddCommand(
		a.loginCommand(),
		a.logoutCommand(),
		a.showCommand(),
		a.cardCommand(),
		a.addCommand(),
		a.importCommand(),
		a.editCommand(),
		a.moveCommand(),
		a.flagCommand("archive", "Archive a card"),
		a.flagCommand("restore", "Restore an archived card"),
		a.flagCommand("delete", "Soft-delete a card"),
		a.gradeCommand(),
		a.exportCommand(),
		a.progressCommand(),
		a.timerCommand(),
		a.shellCommand(),
		a.pushesCommand(),
		a.devserverCommand(),
	)
	return root
}

// setup loads configuration and builds the shared clients.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(a.logger)

	a.creds = credentials.NewStore(cfg.Credentials.Path)
	a.client = api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout),
		api.WithUserAgent("studyboard-cli"),
	)

	opts := []persist.Option{persist.WithLogger(a.logger)}
	if journal := a.openJournal(); journal != nil {
		opts = append(opts, persist.WithJournal(journal))
	}
	a.bridge = persist.NewBridge(a.client, opts...)
	return nil
}

// openJournal opens the push journal. The CLI still works without one.
func (a *app) openJournal() *storage.DB {
	path := a.cfg.Journal.Path
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		a.logger.Warn("Push journal disabled", "path", path, "error", err)
		return nil
	}
	db, err := storage.Open(path)
	if err != nil {
		a.logger.Warn("Push journal disabled", "path", path, "error", err)
		return nil
	}
	a.journal = db
	return db
}

// close waits for outstanding pushes before releasing the journal they
// write to.
func (a *app) close() {
	if a.bridge != nil {
		a.bridge.Wait()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Error("Error closing push journal", "error", err)
		}
	}
}
