package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"papertriage/internal/ipc"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Manage the papertriage daemon",
	}
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the papertriage daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			if socketAlive(socket) {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}

			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			launch := exec.Command(exe)
			if ctx.configFlag != nil && strings.TrimSpace(*ctx.configFlag) != "" {
				launch.Args = append(launch.Args, "--config", strings.TrimSpace(*ctx.configFlag))
			}
			launch.Stdout = nil
			launch.Stderr = nil
			if err := launch.Start(); err != nil {
				return fmt.Errorf("launch daemon: %w", err)
			}
			if err := launch.Process.Release(); err != nil {
				return fmt.Errorf("detach daemon: %w", err)
			}

			fmt.Fprintln(stdout, "Daemon not running, launching...")
			if err := waitForSocket(socket, 10*time.Second); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the papertriage daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			socket := ctx.socketPath()

			if !socketAlive(socket) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}

			err := ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Shutdown()
				return err
			})
			if err != nil {
				return err
			}

			deadline := time.Now().Add(5 * time.Second)
			for socketAlive(socket) {
				if time.Now().After(deadline) {
					fmt.Fprintln(stdout, "Stop request sent")
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon liveness and paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				kind := statusWarn
				if status.Running {
					kind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", kind, yesNo(status.Running), colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, fmt.Sprintf("%d", status.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Checkpoints", statusInfo, status.CheckpointPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("History DB", statusInfo, status.HistoryDBPath, colorize))
				return nil
			})
		},
	}
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	sibling := filepath.Join(filepath.Dir(exe), "papertriaged")
	if _, err := os.Stat(sibling); err == nil {
		return sibling, nil
	}
	found, err := exec.LookPath("papertriaged")
	if err != nil {
		return "", fmt.Errorf("locate papertriaged: %w", err)
	}
	return found, nil
}

func socketAlive(path string) bool {
	conn, err := net.DialTimeout("unix", path, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if socketAlive(path) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon did not come up within %s", timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
