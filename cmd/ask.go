package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	askKey      keyFlags
	askQuestion string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from a season's archived rulebook",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := askKey.key()
		if err != nil {
			return err
		}
		env, err := initPipeline(cmd.Context(), "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Asker == nil {
			return eris.New("question answering requires gemini.key")
		}
		res, err := env.Asker.Ask(cmd.Context(), key, askQuestion)
		if err != nil {
			return err
		}
		return printResult(res, "json")
	},
}

func init() {
	askKey.register(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question about the rulebook")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}
