package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Generate feedback for an assessed question",
	RunE: func(cmd *cobra.Command, _ []string) error {
		question, _ := cmd.Flags().GetString("question")
		modelLevel, _ := cmd.Flags().GetString("gpt-level")
		userLevel, _ := cmd.Flags().GetString("user-level")
		pretty, _ := cmd.Flags().GetBool("pretty")

		cfg, _, logger, cleanup, err := setup(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		a, err := buildApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		fb, err := a.feedback.Generate(cmd.Context(), question, modelLevel, userLevel)
		if err != nil {
			return fmt.Errorf("feedback: %w", err)
		}
		return writeJSON(cmd.OutOrStdout(), fb, pretty)
	},
}

func init() {
	feedbackCmd.Flags().String("question", "", "Question text")
	feedbackCmd.Flags().String("gpt-level", "", "Difficulty level assessed by the model")
	feedbackCmd.Flags().String("user-level", "", "Difficulty level assessed by the learner")
	feedbackCmd.Flags().Bool("pretty", false, "Indent the JSON output")
	_ = feedbackCmd.MarkFlagRequired("question")
	_ = feedbackCmd.MarkFlagRequired("gpt-level")
	_ = feedbackCmd.MarkFlagRequired("user-level")
}
