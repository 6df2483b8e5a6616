package alerts

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/crucial707/risk-watch/cmd/cli/client"
	"github.com/crucial707/risk-watch/cmd/cli/output"
	"github.com/spf13/cobra"
)

// InitAlerts registers the alert log commands on the root command.
func InitAlerts(rootCmd *cobra.Command) {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Review and manage alerts",
	}

	alertsCmd.AddCommand(
		listCmd(),
		readCmd(),
		dismissCmd(),
	)

	rootCmd.AddCommand(alertsCmd)
}

func listCmd() *cobra.Command {
	var unread, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/alerts"
			if unread {
				path += "?unread=true"
			}
			var list []struct {
				ID        int    `json:"id"`
				Type      string `json:"type"`
				Severity  string `json:"severity"`
				Title     string `json:"title"`
				Read      bool   `json:"read"`
				CreatedAt string `json:"created_at"`
			}
			if err := client.Do(http.MethodGet, path, nil, &list); err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(b))
				return nil
			}
			rows := make([][]interface{}, 0, len(list))
			for _, a := range list {
				read := ""
				if a.Read {
					read = "read"
				}
				rows = append(rows, []interface{}{a.ID, a.Severity, a.Type, a.Title, read, a.CreatedAt})
			}
			output.RenderTable([]string{"ID", "Severity", "Type", "Title", "", "Created At"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "only unread alerts")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of a table")

	return cmd
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark an alert as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Do(http.MethodPost, "/alerts/"+args[0]+"/read", nil, nil); err != nil {
				return err
			}
			fmt.Println("Marked alert", args[0], "as read")
			return nil
		},
	}
}

func dismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Do(http.MethodPost, "/alerts/"+args[0]+"/dismiss", nil, nil); err != nil {
				return err
			}
			fmt.Println("Dismissed alert", args[0])
			return nil
		},
	}
}
