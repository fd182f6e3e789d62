package main

import "github.com/spf13/cobra"

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Show vocabulary sizes and where they were loaded from",
	Args:  cobra.NoArgs,
	RunE:  runLexicon,
}

func init() {
	rootCmd.AddCommand(lexiconCmd)
}

func runLexicon(cmd *cobra.Command, _ []string) error {
	components, err := loadComponents(cmd)
	if err != nil {
		return err
	}
	defer components.Close()

	return writeJSON(cmd.OutOrStdout(), components.Lexicon.Stats(), true)
}
