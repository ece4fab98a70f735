package main

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
)

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running crawl",
		Long: `Stop sends SIGTERM to the crawl started by 'k8crawler run'.

The crawl stops dispatching new fetches, waits for the in-flight ones,
writes its report and exits. The process is found through the pid file
that 'run' writes to the XDG state directory.`,
		Args: cobra.NoArgs,
		RunE: runStopCmd,
	}

	cmd.Flags().String("pid-file", defaultPIDFile(),
		"File recording the pid of the running crawl")

	return cmd
}

func runStopCmd(cmd *cobra.Command, _ []string) error {
	pidFile, err := cmd.Flags().GetString("pid-file")
	if err != nil {
		return err
	}

	pid, err := readPIDFile(pidFile)
	if err != nil {
		return err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = os.Remove(pidFile)
			return fmt.Errorf("%w (removed stale pid file for process %d)", errNotRunning, pid)
		}
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent stop signal to crawl (pid %d)\n", pid)
	return nil
}
