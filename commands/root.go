// Package commands implements the rnative command line: submit structures
// for analysis, follow their status and print the results.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/compute"
	"github.com/rnative/rnative-client/sdk/config"
	"github.com/rnative/rnative-client/sdk/history"
	"github.com/rnative/rnative-client/sdk/httputils"
	"github.com/rnative/rnative-client/sdk/models"
	"github.com/rnative/rnative-client/sdk/notify"
)

// BuildInfo identifies the binary
type BuildInfo struct {
	Version      string
	SourceCommit string
}

// app carries what every command needs once the configuration is loaded
type app struct {
	build     BuildInfo
	out       io.Writer
	errOut    io.Writer
	cfg       *config.Config
	client    *compute.Client
	publisher notify.Publisher
	now       func() time.Time
}

// Execute runs the command line and exits with ExitCodeFailure on any error.
func Execute(build BuildInfo) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCommand(build, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	common.ExitOnError(os.Stderr, err, "")
}

// NewRootCommand builds the command tree writing results to out and
// diagnostics to errOut.
func NewRootCommand(build BuildInfo, out io.Writer, errOut io.Writer) *cobra.Command {
	a := &app{build: build, out: out, errOut: errOut, now: time.Now}

	root := &cobra.Command{
		Use:           common.AppName,
		Short:         "Client of the RNAtive consensus service",
		Long:          "Submit RNA 3D structures to the RNAtive compute service, follow the analysis and print the consensus secondary structure.",
		Version:       fmt.Sprintf("%s (%s)", build.Version, build.SourceCommit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.publisher != nil {
				a.publisher.Close()
			}
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	config.RegisterGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newSubmitCommand(a),
		newStatusCommand(a),
		newResultsCommand(a),
		newRequestCommand(a),
		newMolProbityCommand(a),
		newSplitCommand(a),
		newHistoryCommand(a),
		newVersionCommand(a),
	)

	return root
}

// setup loads and validates the configuration, then builds the client.
func (a *app) setup(cmd *cobra.Command) error {
	configPath, err := cmd.Flags().GetString(config.FlagConfig)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath, DotEnvPath: common.PathDotEnv})
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := common.ConfigureLogging(a.errOut, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	transport, err := httputils.NewTransport(
		cfg.BaseURL,
		httputils.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		httputils.WithRetries(cfg.Retries, cfg.RetryDelay),
		httputils.WithUserAgent(fmt.Sprintf("%s/%s", common.DefaultUserAgent, a.build.Version)),
	)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.client = compute.NewClient(
		transport,
		compute.WithConcurrency(cfg.Concurrency),
		compute.WithBooleanMolProbityFilter(cfg.BooleanMolProbityFilter()),
	)
	a.publisher = notify.NewPublisher(cfg.BrokerURL, cfg.BrokerQueue)

	logrus.Debugf("Using compute service at %s.", transport.Endpoint())
	return nil
}

// openHistory opens the local task history. The history is a convenience:
// when it cannot be opened the command goes on without it.
func (a *app) openHistory(ctx context.Context) *history.Store {
	if !a.cfg.HistoryEnabled() {
		return nil
	}

	store, err := history.Open(ctx, a.cfg.HistoryDriver, a.cfg.HistoryDSN)
	if err != nil {
		common.LogWarning(fmt.Sprintf("Task history unavailable: %s", err))
		return nil
	}
	return store
}

// recordStatus stores the last observed status of a task in the history.
func (a *app) recordStatus(ctx context.Context, store *history.Store, status *models.TaskStatus, taskID string) {
	if store == nil || status == nil {
		return
	}

	err := store.UpdateStatus(ctx, taskID, string(status.Status), status.Message, a.now())
	if err != nil && !errors.Is(err, history.ErrNotFound) {
		common.LogWarning(fmt.Sprintf("Unable to update task history: %s", err))
	}
}

// taskError points at the configured service when it does not know the task.
func (a *app) taskError(taskID string, err error) error {
	if httputils.StatusCode(err) == http.StatusNotFound {
		return fmt.Errorf("task %s is unknown to %s: %w", taskID, a.cfg.BaseURL, err)
	}
	return err
}

// taskIDArgs accepts an optional task id; with --last the most recent task of
// the history is used instead.
func taskIDArgs(cmd *cobra.Command) {
	cmd.Args = cobra.MaximumNArgs(1)
	cmd.Flags().Bool(flagLast, false, "use the most recently submitted task")
}

const flagLast = "last"

var errNoTaskID = errors.New("a task id is required (or use --last)")

func (a *app) resolveTaskID(cmd *cobra.Command, args []string) (string, error) {
	last, _ := cmd.Flags().GetBool(flagLast)

	switch {
	case len(args) == 1 && last:
		return "", errors.New("give either a task id or --last, not both")
	case len(args) == 1:
		return args[0], nil
	case !last:
		return "", errNoTaskID
	}

	store := a.openHistory(cmd.Context())
	if store == nil {
		return "", errors.New("--last needs the task history, which is disabled or unavailable")
	}
	defer store.Close()

	entry, err := store.Latest(cmd.Context())
	if err != nil {
		return "", fmt.Errorf("unable to find the last task: %w", err)
	}

	common.LogInfo(fmt.Sprintf("Using last task %s submitted %s.", entry.TaskID, entry.SubmittedAt.Format(time.RFC3339)))
	return entry.TaskID, nil
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "%s %s (commit %s)\n", common.AppName, a.build.Version, a.build.SourceCommit)
		},
	}
}
