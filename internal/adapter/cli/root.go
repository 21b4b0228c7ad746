// Package cli wires the quizd commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"quizsolver/internal/domain"
	"quizsolver/internal/store"
	"quizsolver/internal/usecase/solve"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// QuizSolver defines the dependency required to run the solve command.
type QuizSolver interface {
	SolveQuiz(ctx context.Context, req domain.QuizRequest) (domain.Attempt, error)
	SolveChain(ctx context.Context, req domain.QuizRequest, opts solve.ChainOptions, sink solve.EventSink) (domain.ChainResult, error)
}

// ServerRunner runs the HTTP server until its context is cancelled.
type ServerRunner interface {
	Run(ctx context.Context) error
	Addr() string
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Solver       QuizSolver
	Server       ServerRunner
	History      store.Store // optional, backs the progress command
	Args         Arguments
	ChainOptions solve.ChainOptions
	Version      string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "quizd",
		Short: "LLM-backed quiz solving service",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server))
	root.AddCommand(solveCommand(deps.Solver, deps.ChainOptions))
	root.AddCommand(progressCommand(deps.History))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(server ServerRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz solver API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return errors.New("server is not configured")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", server.Addr())
			return server.Run(cmd.Context())
		},
	}
}

func solveCommand(solver QuizSolver, chainOpts solve.ChainOptions) *cobra.Command {
	var email string
	var secret string
	var chain bool

	cmd := &cobra.Command{
		Use:   "solve <url>",
		Short: "Solve one quiz question, or a whole chain with --chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if solver == nil {
				return errors.New("solver is not configured")
			}
			if email == "" || secret == "" {
				return fmt.Errorf("--email and --secret are required")
			}

			req := domain.QuizRequest{Email: email, Secret: secret, URL: args[0]}
			out := cmd.OutOrStdout()

			if chain {
				sink := func(event domain.ChainEvent) {
					switch event.Type {
					case "question":
						_, _ = fmt.Fprintf(out, "[%d] %s\n", event.Number, event.URL)
					case "answered":
						status := "wrong"
						if event.Correct {
							status = "correct"
						}
						_, _ = fmt.Fprintf(out, "[%d] %s", event.Number, status)
						if event.Error != "" {
							_, _ = fmt.Fprintf(out, " (%s)", event.Error)
						}
						_, _ = fmt.Fprintln(out)
					}
				}
				result, err := solver.SolveChain(cmd.Context(), req, chainOpts, sink)
				if err != nil {
					return err
				}
				return printJSON(out, result)
			}

			attempt, err := solver.SolveQuiz(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(out, attempt)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Registered email")
	cmd.Flags().StringVar(&secret, "secret", "", "Submission secret")
	cmd.Flags().BoolVar(&chain, "chain", false, "Follow the chain of next-question URLs")

	return cmd
}

func progressCommand(history store.Store) *cobra.Command {
	var limit int
	var runID string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show recent attempts and overall accuracy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if history == nil {
				return errors.New("attempt store is not configured; enable store in the config")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var attempts []store.AttemptRecord
			var err error
			if runID != "" {
				attempts, err = history.ListAttemptsByRun(ctx, runID)
			} else {
				attempts, err = history.ListAttempts(ctx, limit)
			}
			if err != nil {
				return err
			}

			for _, a := range attempts {
				status := " "
				if a.Submitted {
					status = "✗"
				}
				if a.Correct {
					status = "✓"
				}
				_, _ = fmt.Fprintf(out, "%s %-12s %-40s %v\n", status, a.TaskType, a.URL, store.DecodeAnswer(a.AnswerJSON))
			}

			summary, err := history.Summary(ctx)
			if err != nil {
				return err
			}

			taskTypes := make([]string, 0, len(summary.ByTaskType))
			for taskType := range summary.ByTaskType {
				taskTypes = append(taskTypes, taskType)
			}
			sort.Strings(taskTypes)
			if len(taskTypes) > 0 {
				_, _ = fmt.Fprintln(out)
			}
			for _, taskType := range taskTypes {
				stats := summary.ByTaskType[taskType]
				accuracy := 0.0
				if stats.Attempts > 0 {
					accuracy = float64(stats.Correct) / float64(stats.Attempts) * 100
				}
				_, _ = fmt.Fprintf(out, "%-12s %d/%d correct (%.0f%%)\n", taskType, stats.Correct, stats.Attempts, accuracy)
			}

			_, _ = fmt.Fprintf(out, "\n%d attempts, %d submitted, %d correct, $%.4f spent\n",
				summary.TotalAttempts, summary.Submitted, summary.Correct, summary.TotalCostUSD)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "How many recent attempts to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show all attempts for one run")

	return cmd
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
