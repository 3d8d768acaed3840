// Assembly Coach - real-time guidance server for the car kit assembly task.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/ashureev/assembly-coach/internal/coach"
	"github.com/ashureev/assembly-coach/internal/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "assembly-coach",
		Short:         "Coach a user through the car kit assembly from camera frames",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

			if err := godotenv.Load(); err != nil {
				slog.Info("No .env file found, using environment variables")
			}
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newStepsCmd(), newVersionCmd())
	return root
}

func newStepsCmd() *cobra.Command {
	var layout bool
	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Print the step transition table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSteps(cmd.OutOrStdout(), coach.Steps(layout))
		},
	}
	cmd.Flags().BoolVar(&layout, "layout", false, "route start through the wheel layout steps")
	return cmd
}

func printSteps(out io.Writer, steps []coach.StepInfo) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tKIND\tNEXT\tREACHABLE")
	for _, s := range steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", s.ID, s.Kind, s.Next, s.Reachable)
	}
	return tw.Flush()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get())
		},
	}
}
