package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResult represents one ranked chunk in a search response.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	ScanID  string         `json:"scan_id"`
	Query   string         `json:"query"`
	TopK    int            `json:"top_k"`
	Results []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the scan corpus",
		Long:  "Ranks the scan's document chunks against the query and prints the top matches.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(args[0], topK, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "n", 0, "Maximum number of results (server default if omitted)")

	return cmd
}

func runSearch(query string, topK int, outputJSON bool) error {
	// Load workspace config to get scan ID
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	// Create API client
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query: query,
		TopK:  topK,
	}

	resp, err := api.Post(fmt.Sprintf("/scans/%s/search", config.ScanID), req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
	} else {
		if len(searchResp.Results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
		for i, result := range searchResp.Results {
			fmt.Printf("%d. %.4f  document %s\n", i+1, result.Score, result.DocumentID)
			text := result.Text
			if len(text) > 200 {
				text = text[:197] + "..."
			}
			fmt.Printf("   %s\n", text)
			fmt.Printf("   Chunk: %s\n", result.ChunkID)
			if i < len(searchResp.Results)-1 {
				fmt.Println(strings.Repeat("-", 40))
			}
		}
	}

	return nil
}
