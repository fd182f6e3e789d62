package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/service"
)

var (
	analyzeMode    string
	analyzeBackend string
	analyzeFile    string
	analyzePretty  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text...]",
	Short: "Score text and print the result as JSON",
	Long: `Score text for political bias. The text is taken from the arguments, from
--file, or from stdin, in that order of preference.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeMode, "mode", "m", "lexicon", "Analysis mode (lexicon, model)")
	analyzeCmd.Flags().StringVarP(&analyzeBackend, "backend", "b", "", "Model backend id (model mode only)")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read text from this file")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "Indent JSON output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	mode, err := models.ParseMode(analyzeMode)
	if err != nil {
		return err
	}
	text, err := readInput(cmd.InOrStdin(), args, analyzeFile)
	if err != nil {
		return err
	}

	components, err := loadComponents(cmd)
	if err != nil {
		return err
	}
	defer components.Close()

	result, analyzeErr := components.Service.Analyze(cmd.Context(), service.Request{
		Text:    text,
		Mode:    mode,
		Backend: analyzeBackend,
	})
	if err := writeJSON(cmd.OutOrStdout(), result, analyzePretty); err != nil {
		return err
	}
	return analyzeErr
}

func readInput(stdin io.Reader, args []string, path string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read input file: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
