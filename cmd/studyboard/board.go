package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conorfennell/studyboard/internal/board"
	"github.com/conorfennell/studyboard/internal/credentials"
	"github.com/conorfennell/studyboard/internal/domain"
	"github.com/conorfennell/studyboard/internal/gitsource"
	"github.com/conorfennell/studyboard/internal/persist"
	"github.com/conorfennell/studyboard/internal/shell"
	"github.com/conorfennell/studyboard/internal/studytimer"
)

const loginHint = "run 'studyboard login --token <token>' first"

// session resolves the credentials and fetches the board they open.
func (a *app) session(ctx context.Context) (credentials.Session, domain.Board, error) {
	sess, err := a.creds.Resolve(ctx)
	if err != nil {
		return credentials.Session{}, domain.Board{}, err
	}
	b, err := a.bridge.Fetch(ctx, sess)
	if errors.Is(err, persist.ErrLoginRequired) {
		return sess, domain.Board{}, fmt.Errorf("%w; %s", err, loginHint)
	}
	if err != nil {
		return sess, domain.Board{}, err
	}
	return sess, b, nil
}

// withShell fetches the board and runs fn against a shell editing it. The
// pushes fn triggers finish before withShell returns.
func (a *app) withShell(ctx context.Context, out io.Writer, onTick func(string, int), fn func(*shell.Shell) error) error {
	sess, b, err := a.session(ctx)
	if err != nil {
		return err
	}
	store := board.NewStore(b, persist.Bound{Bridge: a.bridge, Session: sess}, board.WithLogger(a.logger))
	sh := shell.New(store, out,
		shell.WithTimers(a.timerFactory(sess, onTick)),
		shell.WithLogger(a.logger),
	)
	defer a.bridge.Wait()
	defer sh.Close()
	return fn(sh)
}

func (a *app) timerFactory(sess credentials.Session, onTick func(string, int)) shell.TimerFactory {
	return func(cardID, listTitle string) *studytimer.Timer {
		opts := []studytimer.Option{
			studytimer.InList(listTitle),
			studytimer.WithInterval(a.cfg.Timer.Interval),
			studytimer.WithLogger(a.logger),
		}
		if onTick != nil {
			opts = append(opts, studytimer.OnTick(func(m int) { onTick(cardID, m) }))
		}
		return studytimer.New(a.client, sess, cardID, opts...)
	}
}

// run executes a single shell command line.
func (a *app) run(cmd *cobra.Command, line ...string) error {
	return a.withShell(cmd.Context(), cmd.OutOrStdout(), nil, func(sh *shell.Shell) error {
		return sh.Execute(cmd.Context(), line)
	})
}

func (a *app) showCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Draw the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line := []string{"show"}
			if all {
				line = append(line, "--all")
			}
			return a.run(cmd, line...)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include archived and deleted cards")
	return cmd
}

func (a *app) cardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "card <cardID>",
		Short: "Print every field of a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, "card", args[0])
		},
	}
}

func (a *app) addCommand() *cobra.Command {
	var difficulty string
	cmd := &cobra.Command{
		Use:   "add <listID> <courseCode> <courseName> <material>",
		Short: "Add a card to the end of a list",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			line := append([]string{"add"}, args...)
			if difficulty != "" {
				line = append(line, difficulty)
			}
			return a.run(cmd, line...)
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy|medium|hard|expert (default easy)")
	return cmd
}

func (a *app) importCommand() *cobra.Command {
	var repo string
	cmd := &cobra.Command{
		Use:   "import <listID> <file>",
		Short: "Add every card described in a plan file",
		Long: `Add every card described in a plan file. Each card is a block of
"Code:", "Course:", "Material:", "Difficulty:", "Description:" and "Notes:"
lines; blocks are separated by "---" or a new Code line.

With --git, file is a path inside that repository, which is cloned or
pulled into plans.dir first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[1]
			if repo != "" {
				var err error
				path, err = gitsource.File(cmd.Context(), repo, a.cfg.Plans.Dir, args[1], a.logger)
				if err != nil {
					return err
				}
			}
			return a.run(cmd, "import", args[0], path)
		},
	}
	cmd.Flags().StringVar(&repo, "git", "", "Git repository holding the plan file")
	return cmd
}

func (a *app) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <cardID> <field> <value>",
		Short: "Set one field of a card",
		Long:  "Set one field of a card. An empty value clears rating and checklists.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, append([]string{"edit"}, args...)...)
		},
	}
}

func (a *app) moveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <srcList> <srcIndex> <dstList> <dstIndex>",
		Short: "Move a card within or between lists",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, append([]string{"move"}, args...)...)
		},
	}
}

// flagCommand builds archive, restore and delete.
func (a *app) flagCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <cardID>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, name, args[0])
		},
	}
}

func (a *app) gradeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "grade <cardID> pre|post <value>",
		Short:     "Record a pre- or post-test grade",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"pre", "post"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, append([]string{"grade"}, args...)...)
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, b, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			return export(cmd.OutOrStdout(), b, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json|yaml")
	return cmd
}

// export writes b in the backend's JSON layout, or the same keys as YAML.
func export(w io.Writer, b domain.Board, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case "yaml":
		raw, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode board: %w", err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("encode board: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode board: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
