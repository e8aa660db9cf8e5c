package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "cropscan <input>",
		Short:        "Detect and crop uninformative borders from a video",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("mode", "dark", "Border family to target: dark, light or motion")
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Bool("refine", true, "Run a second short-window pass against the cropped intermediate")
	root.Flags().Bool("strict", false, "Raise the over-crop rejection floor from 0.5 to 0.6")
	root.Flags().Bool("verbose", false, "Log per-probe detail")

	// Hidden tuning flags (internal)
	root.Flags().Float64("probe-seconds", 8, "Probe window length in seconds")
	root.Flags().Float64("start-offset", 1, "Seconds to skip at the head of the source")
	root.Flags().Float64("accept-score", 0, "Early-exit score threshold")
	root.Flags().Int("detect-timeout", 120, "Detection wall-clock timeout in seconds")
	_ = root.Flags().MarkHidden("probe-seconds")
	_ = root.Flags().MarkHidden("start-offset")
	_ = root.Flags().MarkHidden("accept-score")
	_ = root.Flags().MarkHidden("detect-timeout")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
