package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/tessd"
)

var tesseractCmd = &cobra.Command{
	Use:   "tesseract",
	Short: "Manage the Tesseract OCR container",
	Long: `Manage the Tesseract OCR container lifecycle.

The structural masthead detector sends page images to a tesseract-server
container over HTTP. The server manages this container automatically when
tesseract.managed is set in the config; these commands control it by hand.

Examples:
  masthead tesseract start   # Start the OCR container
  masthead tesseract stop    # Stop the container
  masthead tesseract status  # Check container status
  masthead tesseract logs    # View container logs`,
}

var tesseractStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Tesseract container",
	Long: `Start the Tesseract OCR container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting Tesseract...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start Tesseract: %w", err)
		}

		fmt.Printf("Tesseract is running at %s\n", mgr.URL())
		return nil
	},
}

var tesseractStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the Tesseract container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping Tesseract...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop Tesseract: %w", err)
		}

		fmt.Println("Tesseract stopped")
		return nil
	},
}

var tesseractStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Tesseract container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case tessd.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())
		case tessd.StatusStopped:
			fmt.Printf("Status: %s (use 'masthead tesseract start' to start)\n", status)
		case tessd.StatusNotFound:
			fmt.Printf("Status: %s (use 'masthead tesseract start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var tessLogsTail string

var tesseractLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Tesseract container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, tessLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var tesseractRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the Tesseract container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing Tesseract container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Tesseract container removed")
		return nil
	},
}

var tesseractWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for Tesseract to be ready",
	Long: `Wait for the Tesseract container to accept OCR requests.

Useful in scripts to ensure OCR is available before starting an analysis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getTessManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for Tesseract (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("tesseract not ready: %w", err)
		}

		fmt.Println("Tesseract is ready")
		return nil
	},
}

func init() {
	tesseractCmd.AddCommand(tesseractStartCmd)
	tesseractCmd.AddCommand(tesseractStopCmd)
	tesseractCmd.AddCommand(tesseractStatusCmd)
	tesseractCmd.AddCommand(tesseractLogsCmd)
	tesseractCmd.AddCommand(tesseractRemoveCmd)
	tesseractCmd.AddCommand(tesseractWaitCmd)

	tesseractLogsCmd.Flags().StringVar(&tessLogsTail, "tail", "100", "Number of lines to show from the end")
	tesseractWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for Tesseract")

	rootCmd.AddCommand(tesseractCmd)
}

// getTessManager creates a container manager from the configured
// container name, image, and port.
func getTessManager() (*tessd.Manager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	cfgMgr, err := getConfigManager(h)
	if err != nil {
		return nil, err
	}
	tc := cfgMgr.Get().Tesseract

	return tessd.NewManager(tessd.Config{
		ContainerName: tc.ContainerName,
		Image:         tc.Image,
		HostPort:      tc.Port,
	})
}
