package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// CorpusChunk represents one chunk in the corpus snapshot.
type CorpusChunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// Corpus represents the full corpus response.
type Corpus struct {
	ScanID string        `json:"scan_id"`
	Count  int           `json:"count"`
	Chunks []CorpusChunk `json:"chunks"`
}

// PullCmd creates the pull command.
func PullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the scan corpus",
		Long:  "Downloads every chunk of the scan's corpus and saves it to .scansight/corpus.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runPull(outputJSON)
		},
	}

	return cmd
}

func runPull(outputJSON bool) error {
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

	resp, err := api.Get(fmt.Sprintf("/scans/%s/chunks", config.ScanID))
	if err != nil {
		return fmt.Errorf("failed to fetch corpus: %w", err)
	}

	var corpus Corpus
	if err := json.Unmarshal(resp.Data, &corpus); err != nil {
		return fmt.Errorf("failed to parse corpus: %w", err)
	}

	// Save to .scansight/corpus.json
	corpusPath := filepath.Join(scansightDir, corpusFile)
	data, err := json.MarshalIndent(corpus, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}

	if err := os.WriteFile(corpusPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"chunks":  corpus.Count,
			"path":    corpusPath,
		}
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Downloaded %d chunks to %s\n", corpus.Count, corpusPath)
	}

	return nil
}

// LoadCorpus reads the corpus snapshot from .scansight/corpus.json.
func LoadCorpus() (*Corpus, error) {
	corpusPath := filepath.Join(scansightDir, corpusFile)
	data, err := os.ReadFile(corpusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("corpus not found (run 'scansight pull' first)")
		}
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var corpus Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	return &corpus, nil
}
