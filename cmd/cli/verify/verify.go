package verify

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/crucial707/risk-watch/cmd/cli/client"
	"github.com/spf13/cobra"
)

// InitVerify registers the one-shot verification command on the root command.
func InitVerify(rootCmd *cobra.Command) {
	var force, jsonOutput bool

	cmd := &cobra.Command{
		Use:   "verify <identifier>",
		Short: "Score a phone number or profile once",
		Long: `Score an identifier on demand without adding it to the watchlist.
Recent results are served from the server-side cache unless --force is set.

Example:
  riskwatch verify +15551234567
  riskwatch verify @some_account --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var out struct {
				Identifier string         `json:"identifier"`
				Score      int            `json:"score"`
				Level      string         `json:"level"`
				Reasons    []string       `json:"reasons"`
				Breakdown  map[string]int `json:"breakdown"`
				Cached     bool           `json:"cached"`
			}
			err := client.Do(http.MethodPost, "/verify", map[string]interface{}{
				"identifier":    args[0],
				"force_refresh": force,
			}, &out)
			if err != nil {
				return err
			}
			if jsonOutput {
				b, _ := json.MarshalIndent(out, "", "  ")
				fmt.Println(string(b))
				return nil
			}

			fmt.Printf("%s: score %d (%s)", out.Identifier, out.Score, out.Level)
			if out.Cached {
				fmt.Print(" [cached]")
			}
			fmt.Println()
			for _, reason := range out.Reasons {
				fmt.Println("  -", reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "bypass the server-side cache")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of formatted text")

	rootCmd.AddCommand(cmd)
}
