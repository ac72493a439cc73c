package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/rulebook-cli/internal/resilience"
)

var (
	runKey      keyFlags
	runAttempts int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover, archive and extract a season in one pass",
	Long: "Runs every stage for the season, retrying transient provider and network " +
		"failures. Completed stages are skipped, so a failed run can be repeated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := runKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context(), "search", "archive", "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		retry := resilience.FromConfig(cfg.Retry)
		if runAttempts > 0 {
			retry.MaxAttempts = runAttempts
		}
		res, err := env.Pipeline.Run(cmd.Context(), key, retry)
		if perr := printResult(res, "json"); perr != nil && err == nil {
			err = perr
		}
		return err
	},
}

func init() {
	runKey.register(runCmd)
	runCmd.Flags().IntVar(&runAttempts, "attempts", 0, "attempts per stage (default from config)")
	rootCmd.AddCommand(runCmd)
}
