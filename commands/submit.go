package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rnative/rnative-client/sdk/common"
	"github.com/rnative/rnative-client/sdk/compute"
	"github.com/rnative/rnative-client/sdk/config"
	"github.com/rnative/rnative-client/sdk/history"
	"github.com/rnative/rnative-client/sdk/httputils"
	"github.com/rnative/rnative-client/sdk/models"
	"github.com/rnative/rnative-client/sdk/monitor"
	"github.com/rnative/rnative-client/sdk/notify"
	"github.com/rnative/rnative-client/sdk/reportutils"
)

const (
	flagDotBracket = "dot-bracket"
	flagWait       = "wait"
)

func newSubmitCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <files...>",
		Short: "Submit structure files for analysis",
		Long:  "Submit one or more PDB/mmCIF models for consensus analysis. With --wait the command follows the task and prints its results.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dotBracket, _ := cmd.Flags().GetString(flagDotBracket)
			wait, _ := cmd.Flags().GetBool(flagWait)
			return a.submit(cmd.Context(), args, dotBracket, wait)
		},
	}

	cmd.Flags().String(flagDotBracket, "", "optional dot-bracket secondary structure")
	cmd.Flags().Bool(flagWait, false, "wait for completion and print the results")
	config.RegisterAnalysisFlags(cmd.Flags())
	config.RegisterWaitFlags(cmd.Flags())
	config.RegisterOutputFlag(cmd.Flags())

	return cmd
}

func (a *app) submit(ctx context.Context, paths []string, dotBracket string, wait bool) error {
	files := make([]models.FileData, len(paths))
	for i, path := range paths {
		f, err := models.ReadFileData(path)
		if err != nil {
			return err
		}
		files[i] = f
	}

	req := a.cfg.NewSubmission(files, dotBracket)
	taskID, err := a.client.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Submitted task: %s\n", taskID)

	store := a.openHistory(ctx)
	if store != nil {
		defer store.Close()
		err := store.Record(ctx, history.Entry{
			TaskID:        taskID,
			BaseURL:       a.cfg.BaseURL,
			FileNames:     req.FileNames(),
			Analyzer:      string(req.Analyzer),
			ConsensusMode: string(req.ConsensusMode),
			Status:        "SUBMITTED",
			SubmittedAt:   a.now(),
		})
		if err != nil {
			common.LogWarning(fmt.Sprintf("Unable to record task history: %s", err))
		}
	}

	if !wait {
		return nil
	}

	if _, err := a.wait(ctx, store, taskID, req.FileNames()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "\nTask completed successfully!")

	return a.showResults(ctx, taskID)
}

// wait follows the task to a terminal state. The terminal status is stored in
// the history and announced on the broker.
func (a *app) wait(ctx context.Context, store *history.Store, taskID string, fileNames []string) (*models.TaskStatus, error) {
	waitCtx := ctx
	if a.cfg.WaitTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.cfg.WaitTimeout)
		defer cancel()
	}

	progress := reportutils.NewProgressPrinter(a.out)
	status, err := monitor.WaitTask(waitCtx, a.client, taskID, a.cfg.PollInterval, progress.Update)
	progress.Done()

	var failed *httputils.TaskFailedError
	if err != nil && !errors.As(err, &failed) {
		return status, err
	}

	a.recordStatus(ctx, store, status, taskID)

	if status.TaskID == "" {
		status.TaskID = taskID
	}
	if pubErr := a.publisher.PublishEvent(ctx, notify.NewTaskEvent(status, fileNames, a.now())); pubErr != nil {
		common.LogWarning(fmt.Sprintf("Unable to publish task event: %s", pubErr))
	}

	return status, err
}

// showResults prints the full result of a completed task and saves its
// visualization. Models that could not be fetched are reported after
// everything else was printed.
func (a *app) showResults(ctx context.Context, taskID string) error {
	rs, err := a.client.FetchResult(ctx, taskID)

	var partial *compute.ResultError
	if err != nil && !errors.As(err, &partial) {
		return err
	}
	if partial != nil {
		for _, f := range partial.Files {
			common.LogError(fmt.Sprintf("Unable to fetch result of model %s", f))
		}
	}
	reportutils.WriteResultSet(a.out, rs)

	svg, svgErr := a.client.FetchVisualization(ctx, taskID)
	if svgErr != nil {
		return errors.Join(err, fmt.Errorf("unable to fetch visualization: %w", svgErr))
	}
	summary, saveErr := reportutils.SaveVisualization(a.cfg.VisualizationPath, svg)
	if saveErr != nil {
		return errors.Join(err, saveErr)
	}
	fmt.Fprintf(a.out, "\n%s\n", summary)

	return err
}
