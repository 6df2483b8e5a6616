package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/crucial707/risk-watch/cmd/cli/client"
	"github.com/crucial707/risk-watch/cmd/cli/output"
	"github.com/spf13/cobra"
)

// InitBatch registers the batch scoring commands on the root command.
func InitBatch(rootCmd *cobra.Command) {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit and track batch scoring jobs",
	}

	batchCmd.AddCommand(
		submitCmd(),
		statusCmd(),
		resultsCmd(),
		cancelCmd(),
	)

	rootCmd.AddCommand(batchCmd)
}

func submitCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit [identifier ...]",
		Short: "Submit identifiers for sequential scoring",
		Long: `Submit identifiers for scoring, either as arguments or one per line
from a file (use --file - for stdin).

Example:
  riskwatch batch submit +15551234567 @some_account
  riskwatch batch submit --file numbers.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := append([]string(nil), args...)
			if file != "" {
				fromFile, err := readItems(file)
				if err != nil {
					return err
				}
				items = append(items, fromFile...)
			}
			if len(items) == 0 {
				return fmt.Errorf("no identifiers given")
			}

			var out struct {
				JobID string `json:"job_id"`
			}
			if err := client.Do(http.MethodPost, "/batch", map[string][]string{"items": items}, &out); err != nil {
				return err
			}
			fmt.Printf("Submitted %d item(s). Job ID: %s\n", len(items), out.JobID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with one identifier per line, - for stdin")

	return cmd
}

func readItems(path string) ([]string, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}
	var items []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			items = append(items, line)
		}
	}
	return items, sc.Err()
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show a job's progress and remaining-time estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var st struct {
				JobID      string  `json:"job_id"`
				Status     string  `json:"status"`
				Progress   int     `json:"progress"`
				ETASeconds float64 `json:"eta_seconds"`
			}
			if err := client.Do(http.MethodGet, "/batch/"+url.PathEscape(args[0])+"/status", nil, &st); err != nil {
				return err
			}
			fmt.Printf("Job %s: %s, %d%% done", st.JobID, st.Status, st.Progress)
			if st.Status == "pending" || st.Status == "processing" {
				fmt.Printf(", ~%.0fs remaining", st.ETASeconds)
			}
			fmt.Println()
			return nil
		},
	}
}

func resultsCmd() *cobra.Command {
	var sortBy, risk string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "results <job-id>",
		Short: "Show a job's scored results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if sortBy != "" {
				q.Set("sort", sortBy)
			}
			if risk != "" {
				q.Set("risk", risk)
			}
			path := "/batch/" + url.PathEscape(args[0]) + "/results"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var res struct {
				JobID   string `json:"job_id"`
				Status  string `json:"status"`
				Results []struct {
					Input string `json:"input"`
					Score int    `json:"score"`
					Level string `json:"level"`
					Error string `json:"error,omitempty"`
				} `json:"results"`
				Stats struct {
					CountsByLevel map[string]int `json:"counts_by_level"`
					AverageScore  float64        `json:"average_score"`
				} `json:"stats"`
			}
			if err := client.Do(http.MethodGet, path, nil, &res); err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(res, "", "  ")
				fmt.Println(string(b))
				return nil
			}

			rows := make([][]interface{}, 0, len(res.Results))
			for _, r := range res.Results {
				rows = append(rows, []interface{}{r.Input, r.Score, r.Level, r.Error})
			}
			output.RenderTable([]string{"Input", "Score", "Level", "Error"}, rows)
			fmt.Printf("\nJob %s (%s): average score %.1f\n", res.JobID, res.Status, res.Stats.AverageScore)
			for level, n := range res.Stats.CountsByLevel {
				fmt.Printf("  %s: %d\n", level, n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "", "sort by score or level")
	cmd.Flags().StringVar(&risk, "risk", "", "filter by risk level")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of a table")

	return cmd
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cancellation of a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Do(http.MethodPost, "/batch/"+url.PathEscape(args[0])+"/cancel", nil, nil); err != nil {
				return err
			}
			fmt.Println("Cancellation requested for job", args[0])
			return nil
		},
	}
}
