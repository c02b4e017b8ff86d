// Package shell is the interactive board editor. It also interprets the
// one-shot mutation commands of the studyboard CLI.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/chzyer/readline"

	"github.com/conorfennell/studyboard/internal/board"
	"github.com/conorfennell/studyboard/internal/render"
	"github.com/conorfennell/studyboard/internal/studytimer"
)

// ErrExit is returned by Execute when the user asks to leave.
var ErrExit = errors.New("exit requested")

// TimerFactory builds the study timer for a card sitting in the list with
// the given title.
type TimerFactory func(cardID, listTitle string) *studytimer.Timer

type Shell struct {
	store    *board.Store
	out      io.Writer
	newTimer TimerFactory
	logger   *slog.Logger

	timers  map[string]*studytimer.Timer
	showAll bool
}

type Option func(*Shell)

// WithTimers enables the timer command.
func WithTimers(f TimerFactory) Option {
	return func(s *Shell) { s.newTimer = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Shell) { s.logger = l }
}

func New(store *board.Store, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		store:  store,
		out:    out,
		logger: slog.Default(),
		timers: make(map[string]*studytimer.Timer),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run reads commands from rl until the user exits or input ends. Command
// errors are printed, not returned.
func (s *Shell) Run(ctx context.Context, rl *readline.Instance) error {
	fmt.Fprintln(s.out, "Type 'help' for the list of commands.")
	s.show()
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(s.out, "Use 'exit' or 'quit' to leave the shell.")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}

		args := ParseArgs(line)
		if len(args) == 0 {
			continue
		}
		if err := s.Execute(ctx, args); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			render.Fail(s.out, err.Error())
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close stops every local timer. Backend sessions stay open and are
// adopted by the next Resume.
func (s *Shell) Close() {
	for _, t := range s.timers {
		t.Close()
	}
}

// ParseArgs splits a command line on whitespace. Double quotes group words
// and "" yields an empty argument.
func ParseArgs(input string) []string {
	var (
		args     []string
		current  strings.Builder
		inQuotes bool
		pending  bool
	)
	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			pending = true
		case (r == ' ' || r == '\t') && !inQuotes:
			if pending {
				args = append(args, current.String())
				current.Reset()
				pending = false
			}
		default:
			current.WriteRune(r)
			pending = true
		}
	}
	if pending {
		args = append(args, current.String())
	}
	return args
}

type command struct {
	usage string
	help  string
	run   func(s *Shell, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"show":    {"show [--all]", "Draw the board. --all includes archived and deleted cards.", (*Shell).handleShow},
		"card":    {"card <cardID>", "Print every field of a card.", (*Shell).handleCard},
		"add":     {"add <listID> <courseCode> <courseName> <material> [difficulty]", "Add a card to the end of a list.", (*Shell).handleAdd},
		"edit":    {"edit <cardID> <field> <value>", "Set one field of a card. Fields: " + fieldNames() + ".", (*Shell).handleEdit},
		"grade":   {"grade <cardID> pre|post <value>", "Record a test grade between 0 and 100.", (*Shell).handleGrade},
		"import":  {"import <listID> <file>", "Add every card described in a plan file.", (*Shell).handleImport},
		"move":    {"move <srcList> <srcIndex> <dstList> <dstIndex>", "Move a card. Indexes are the numbers shown by show.", (*Shell).handleMove},
		"archive": {"archive <cardID>", "Hide a card from the board.", (*Shell).handleArchive},
		"restore": {"restore <cardID>", "Bring back an archived card.", (*Shell).handleRestore},
		"delete":  {"delete <cardID>", "Soft-delete a card.", (*Shell).handleDelete},
		"adding":  {"adding <listID> on|off", "Open or close the add-card form of a list.", (*Shell).handleAdding},
		"timer":   {"timer start|stop|status <cardID>", "Control a card's study timer.", (*Shell).handleTimer},
		"help":    {"help [command]", "Show help.", (*Shell).handleHelp},
		"exit":    {"exit", "Leave the shell.", (*Shell).handleExit},
		"quit":    {"quit", "Leave the shell.", (*Shell).handleExit},
	}
}

// Execute runs one parsed command line.
func (s *Shell) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.run(s, ctx, args[1:])
}

func (s *Shell) handleHelp(_ context.Context, args []string) error {
	if len(args) > 0 {
		cmd, ok := commands[args[0]]
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(s.out, "Syntax: %s\n%s\n", cmd.usage, cmd.help)
		return nil
	}
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintln(s.out, "Available commands:")
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", commands[name].usage)
	}
	return nil
}

func (s *Shell) handleExit(_ context.Context, _ []string) error {
	return ErrExit
}

func fieldNames() string {
	names := make([]string, len(board.Fields))
	for i, f := range board.Fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
