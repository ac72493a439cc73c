package main

import (
	"github.com/spf13/cobra"
)

var (
	discoverKey keyFlags
	archiveKey  keyFlags
	extractKey  keyFlags
	statusKey   keyFlags
	statusOut   string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search for a season's announcement pages and record their links",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := discoverKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context(), "search")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Discover(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printResult(res, "json")
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy each discovered rules document into the blob store",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := archiveKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context(), "archive")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Archive(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printResult(res, "json")
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the tournament schedule from the archived rules document",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := extractKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context(), "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Extract(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printResult(res, "json")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how far a season has progressed",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := statusKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Pipeline.Status(cmd.Context(), key)
		if err != nil {
			return err
		}
		return printResult(res, statusOut)
	},
}

func init() {
	discoverKey.register(discoverCmd)
	archiveKey.register(archiveCmd)
	extractKey.register(extractCmd)
	statusKey.register(statusCmd)
	statusCmd.Flags().StringVarP(&statusOut, "output", "o", "json", "output format: json or yaml")

	rootCmd.AddCommand(discoverCmd, archiveCmd, extractCmd, statusCmd)
}
