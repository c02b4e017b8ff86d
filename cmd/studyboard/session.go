package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/conorfennell/studyboard/internal/config"
	"github.com/conorfennell/studyboard/internal/render"
	"github.com/conorfennell/studyboard/internal/shell"
	"github.com/conorfennell/studyboard/internal/studytimer"
)

func (a *app) loginCommand() *cobra.Command {
	var (
		token   string
		expires time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the backend token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var until *time.Time
			if expires > 0 {
				t := time.Now().Add(expires)
				until = &t
			}
			if err := a.creds.Save(cmd.Context(), token, until); err != nil {
				return err
			}
			render.OK(cmd.OutOrStdout(), "token saved to "+a.creds.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Backend access token")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Forget the token after this long (0 keeps it)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.creds.Delete(cmd.Context()); err != nil {
				return err
			}
			render.OK(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func (a *app) progressCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show the backend's progress report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.creds.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			if !sess.LoggedIn() {
				return errors.New(loginHint)
			}
			report, err := a.client.ProgressReport(cmd.Context(), sess.Token)
			if err != nil {
				return fmt.Errorf("fetch progress report: %w", err)
			}
			render.Progress(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func (a *app) timerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Track study time on a card",
	}
	cmd.PersistentFlags().Duration("timer-every", config.Default().Timer.Interval, "How often a running timer refreshes")

	for _, name := range []string{"status", "stop"} {
		cmd.AddCommand(&cobra.Command{
			Use:   name + " <cardID>",
			Short: name + " the card's study timer",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd, "timer", name, args[0])
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "start <cardID>",
		Short: "Start a study session and run until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTimer(cmd, args[0])
		},
	})
	return cmd
}

// runTimer starts a session, reports every tick, and ends the session when
// the command is interrupted.
func (a *app) runTimer(cmd *cobra.Command, cardID string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	onTick := func(id string, m int) {
		fmt.Fprintf(out, "%s  studied %s\n", id, studytimer.FormatMinutes(m))
	}
	return a.withShell(ctx, out, onTick, func(sh *shell.Shell) error {
		err := sh.Execute(ctx, []string{"timer", "start", cardID})
		if err != nil && !errors.Is(err, studytimer.ErrRunning) {
			return err
		}
		t, err := sh.Timer(ctx, cardID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Press Ctrl+C to stop.")
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.API.Timeout)
		defer cancel()
		if err := t.Stop(stopCtx); err != nil {
			return err
		}
		render.Timer(out, cardID, t.Running(), t.ElapsedMinutes(), t.TotalMinutes())
		return nil
	})
}

func (a *app) shellCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Edit the board interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "studyboard> ",
				HistoryFile:     filepath.Join(filepath.Dir(a.cfg.Credentials.Path), "history"),
				AutoComplete:    completer(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("initialize readline: %w", err)
			}
			defer rl.Close()

			return a.withShell(cmd.Context(), rl.Stdout(), nil, func(sh *shell.Shell) error {
				return sh.Run(cmd.Context(), rl)
			})
		},
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("show", readline.PcItem("--all")),
		readline.PcItem("card"),
		readline.PcItem("add"),
		readline.PcItem("import"),
		readline.PcItem("edit"),
		readline.PcItem("grade"),
		readline.PcItem("move"),
		readline.PcItem("archive"),
		readline.PcItem("restore"),
		readline.PcItem("delete"),
		readline.PcItem("adding"),
		readline.PcItem("timer",
			readline.PcItem("start"),
			readline.PcItem("stop"),
			readline.PcItem("status"),
		),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}
