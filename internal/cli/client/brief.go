package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// BriefRequest represents the multi-query grounding API request.
type BriefRequest struct {
	Queries []string `json:"queries"`
	TopK    int      `json:"top_k,omitempty"`
}

// BriefQueryResult represents the grounding outcome for one query.
type BriefQueryResult struct {
	Query   string         `json:"query"`
	Error   string         `json:"error,omitempty"`
	Results []SearchResult `json:"results"`
}

// BriefResponse represents the multi-query grounding API response.
type BriefResponse struct {
	ScanID  string             `json:"scan_id"`
	TopK    int                `json:"top_k"`
	Queries []BriefQueryResult `json:"queries"`
}

// BriefCmd creates the brief command.
func BriefCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "brief <query> [query...]",
		Short: "Ground a batch of queries against the scan corpus",
		Long:  "Fetches the scan corpus once and ranks it against every query, printing the grounding per query.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runBrief(args, topK, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum results per query (server default if omitted)")

	return cmd
}

func runBrief(queries []string, topK int, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := BriefRequest{
		Queries: queries,
		TopK:    topK,
	}

	resp, err := api.Post(fmt.Sprintf("/scans/%s/brief", config.ScanID), req)
	if err != nil {
		return fmt.Errorf("brief failed: %w", err)
	}

	var briefResp BriefResponse
	if err := json.Unmarshal(resp.Data, &briefResp); err != nil {
		return fmt.Errorf("failed to parse brief response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(briefResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	for i, q := range briefResp.Queries {
		fmt.Printf("Query: %s\n", q.Query)
		if q.Error != "" {
			fmt.Printf("  error: %s\n", q.Error)
		} else if len(q.Results) == 0 {
			fmt.Println("  no matching chunks")
		} else {
			for _, result := range q.Results {
				text := result.Text
				if len(text) > 120 {
					text = text[:117] + "..."
				}
				fmt.Printf("  %.4f  %s\n", result.Score, text)
			}
		}
		if i < len(briefResp.Queries)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
