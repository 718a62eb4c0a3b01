package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/livecheck/internal/model"
)

var checkJSON bool

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <statement>",
	Short: "Verify a single statement and print the event stream",
	Long: `Check runs one verification: query generation, evidence retrieval,
credibility scoring and synthesis. Every event a websocket client would
receive is printed as it happens.

Example:
  livecheck check "The Eiffel Tower is 330 metres tall."
  livecheck check "Water boils at 100C at sea level." --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print events as JSON lines")
}

func runCheck(cmd *cobra.Command, args []string) error {
	statement := strings.Join(strings.Fields(strings.Join(args, " ")), " ")
	if statement == "" {
		return fmt.Errorf("statement is empty")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Pipeline.RunTimeout)
	defer cancel()

	out := cmd.OutOrStdout()
	emit := func(ev model.Event) { printEvent(out, ev) }
	if checkJSON {
		enc := json.NewEncoder(out)
		emit = func(ev model.Event) { _ = enc.Encode(ev) }
	}

	if _, err := a.pipeline.Run(ctx, statement, emit); err != nil {
		return fmt.Errorf("check failed: %w", err)
	}
	return nil
}

// printEvent renders one event for a terminal
func printEvent(w io.Writer, ev model.Event) {
	switch e := ev.(type) {
	case model.StatusEvent:
		fmt.Fprintf(w, "[%3d%%] %s\n", e.Progress, e.Message)
	case model.SearchEvent:
		if len(e.Sources) == 0 {
			fmt.Fprintf(w, "       query: %s\n", e.Query)
			return
		}
		for i, src := range e.Sources {
			fmt.Fprintf(w, "       %2d. %s\n", i+1, src)
		}
	case model.AnalysisEvent:
		fmt.Fprintf(w, "       %5.1f  %s (%s)\n", e.Credibility, e.Source, e.Authority)
		if verbose && e.Summary != "" {
			fmt.Fprintf(w, "              %s\n", e.Summary)
		}
	case model.FactCheckEvent:
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Statement:   %s\n", e.Statement)
		fmt.Fprintf(w, "Verdict:     %s\n", e.Verdict)
		fmt.Fprintf(w, "Truth score: %.1f/100\n", e.TruthScore)
		fmt.Fprintf(w, "Summary:     %s\n", e.Correction)
	case model.ErrorEvent:
		fmt.Fprintf(w, "error: %s\n", e.Message)
	default:
		fmt.Fprintf(w, "%s\n", ev.Kind())
	}
}
