package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/crucial707/risk-watch/cmd/cli/client"
	"github.com/crucial707/risk-watch/cmd/cli/output"
	"github.com/spf13/cobra"
)

type target struct {
	WatchID       string `json:"watch_id"`
	Identifier    string `json:"identifier"`
	Kind          string `json:"kind"`
	Frequency     string `json:"frequency"`
	Status        string `json:"status"`
	CurrentScore  int    `json:"current_score"`
	BaselineScore int    `json:"baseline_score"`
	AlertsCount   int    `json:"alerts_count"`
}

// InitWatch registers the watchlist commands on the root command.
func InitWatch(rootCmd *cobra.Command) {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the monitoring watchlist",
	}

	watchCmd.AddCommand(
		addCmd(),
		listCmd(),
		removeCmd(),
		timelineCmd(),
		checkCmd(),
	)

	rootCmd.AddCommand(watchCmd)
}

func addCmd() *cobra.Command {
	var identifier, kind, frequency string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a target to the watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			var t target
			err := client.Do(http.MethodPost, "/watchlist", map[string]string{
				"identifier": identifier,
				"kind":       kind,
				"frequency":  frequency,
			}, &t)
			if err != nil {
				return err
			}
			fmt.Printf("Watching %s (%s, %s). Watch ID: %s\n", t.Identifier, t.Kind, t.Frequency, t.WatchID)
			return nil
		},
	}

	cmd.Flags().StringVar(&identifier, "identifier", "", "phone number or profile handle (required)")
	cmd.Flags().StringVar(&kind, "kind", "phone", "target kind: phone or profile")
	cmd.Flags().StringVar(&frequency, "frequency", "daily", "check frequency: hourly, daily, or weekly")
	cmd.MarkFlagRequired("identifier")

	return cmd
}

func listCmd() *cobra.Command {
	var owner string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List watched targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/watchlist"
			if owner != "" {
				path += "?owner=" + url.QueryEscape(owner)
			}
			var list []target
			if err := client.Do(http.MethodGet, path, nil, &list); err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(b))
				return nil
			}
			rows := make([][]interface{}, 0, len(list))
			for _, t := range list {
				rows = append(rows, []interface{}{
					t.WatchID, t.Identifier, t.Kind, t.Frequency, t.Status, t.CurrentScore, t.AlertsCount,
				})
			}
			output.RenderTable(
				[]string{"Watch ID", "Identifier", "Kind", "Frequency", "Status", "Score", "Alerts"},
				rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of a table")

	return cmd
}

func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <watch-id>",
		Short: "Remove a target and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Do(http.MethodDelete, "/watchlist/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Println("Removed", args[0])
			return nil
		},
	}
}

func timelineCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "timeline <watch-id>",
		Short: "Show a target's snapshot history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snaps []struct {
				CapturedAt string `json:"captured_at"`
				Score      int    `json:"score"`
				Level      string `json:"level"`
				Fields     struct {
					FollowerCount int `json:"follower_count"`
					PostCount     int `json:"post_count"`
				} `json:"fields"`
			}
			if err := client.Do(http.MethodGet, "/watchlist/"+url.PathEscape(args[0])+"/timeline", nil, &snaps); err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(snaps, "", "  ")
				fmt.Println(string(b))
				return nil
			}
			rows := make([][]interface{}, 0, len(snaps))
			for _, s := range snaps {
				rows = append(rows, []interface{}{s.CapturedAt, s.Score, s.Level, s.Fields.FollowerCount, s.Fields.PostCount})
			}
			output.RenderTable([]string{"Captured At", "Score", "Level", "Followers", "Posts"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of a table")

	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <watch-id>",
		Short: "Run a check for a target right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Assessment struct {
					Score int    `json:"score"`
					Level string `json:"level"`
				} `json:"assessment"`
				AlertsCreated int `json:"alerts_created"`
			}
			if err := client.Do(http.MethodPost, "/watchlist/"+url.PathEscape(args[0])+"/check", nil, &result); err != nil {
				return err
			}
			fmt.Printf("Check complete: score %d (%s), %d new alert(s)\n",
				result.Assessment.Score, result.Assessment.Level, result.AlertsCreated)
			return nil
		},
	}
}
