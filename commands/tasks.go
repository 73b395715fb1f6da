package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rnative/rnative-client/sdk/config"
	"github.com/rnative/rnative-client/sdk/reportutils"
)

func newStatusCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [taskId]",
		Short: "Show the status of a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := a.resolveTaskID(cmd, args)
			if err != nil {
				return err
			}

			status, err := a.client.PollStatus(cmd.Context(), taskID)
			if err != nil {
				return a.taskError(taskID, err)
			}
			if status.TaskID == "" {
				status.TaskID = taskID
			}
			reportutils.WriteStatus(a.out, status, a.now())

			store := a.openHistory(cmd.Context())
			if store == nil {
				return nil
			}
			defer store.Close()

			if entry, err := store.Get(cmd.Context(), taskID); err == nil {
				reportutils.WriteHistoryEntry(a.out, entry, a.now())
			}
			if status.Status.IsTerminal() {
				a.recordStatus(cmd.Context(), store, status, taskID)
			}
			return nil
		},
	}
	taskIDArgs(cmd)

	return cmd
}

func newResultsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [taskId]",
		Short: "Print the results of a completed task and save its visualization",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := a.resolveTaskID(cmd, args)
			if err != nil {
				return err
			}
			return a.taskError(taskID, a.showResults(cmd.Context(), taskID))
		},
	}
	taskIDArgs(cmd)
	config.RegisterOutputFlag(cmd.Flags())

	return cmd
}

func newRequestCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request [taskId]",
		Short: "Print the request stored by the service for a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := a.resolveTaskID(cmd, args)
			if err != nil {
				return err
			}

			content, err := a.client.FetchRequest(cmd.Context(), taskID)
			if err != nil {
				return a.taskError(taskID, err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, content, "", "  "); err != nil {
				logrus.Debugf("Stored request is not JSON, printing it as is: %s", err)
				pretty.Reset()
				pretty.Write(content)
			}
			fmt.Fprintln(a.out, pretty.String())
			return nil
		},
	}
	taskIDArgs(cmd)

	return cmd
}

const flagRaw = "raw"

func newMolProbityCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "molprobity [taskId]",
		Short: "Show the MolProbity responses of a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := a.resolveTaskID(cmd, args)
			if err != nil {
				return err
			}

			responses, err := a.client.FetchMolProbity(cmd.Context(), taskID)
			if err != nil {
				return a.taskError(taskID, err)
			}

			raw, _ := cmd.Flags().GetBool(flagRaw)
			reportutils.WriteMolProbity(a.out, responses, raw)
			return nil
		},
	}
	taskIDArgs(cmd)
	cmd.Flags().Bool(flagRaw, false, "print the raw JSON response of every model")

	return cmd
}

const flagOutDir = "out"

func newSplitCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <file>",
		Short: "Split a multi-model structure file or archive into model files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("unable to open %s: %w", path, err)
			}
			defer f.Close()

			files, err := a.client.SplitFile(cmd.Context(), filepath.Base(path), f)
			if err != nil {
				return err
			}
			reportutils.WriteSplitFiles(a.out, files)

			outDir, _ := cmd.Flags().GetString(flagOutDir)
			if outDir == "" {
				return nil
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("unable to create %s: %w", outDir, err)
			}
			for _, sf := range files {
				content, err := sf.Bytes()
				if err != nil {
					return err
				}
				target := filepath.Join(outDir, filepath.Base(sf.Name))
				if err := os.WriteFile(target, content, 0o644); err != nil {
					return fmt.Errorf("unable to write %s: %w", target, err)
				}
			}
			fmt.Fprintf(a.out, "\nWrote %d file(s) to %s\n", len(files), outDir)
			return nil
		},
	}
	cmd.Flags().String(flagOutDir, "", "directory receiving the extracted model files")

	return cmd
}

const flagLimit = "limit"

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the tasks submitted from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.openHistory(cmd.Context())
			if store == nil {
				return fmt.Errorf("task history is disabled or unavailable")
			}
			defer store.Close()

			limit, _ := cmd.Flags().GetInt(flagLimit)
			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			reportutils.WriteHistory(a.out, entries, a.now())
			return nil
		},
	}
	cmd.Flags().Int(flagLimit, 20, "number of tasks to list, 0 for all")

	return cmd
}
