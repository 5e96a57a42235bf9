package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	scansightDir = ".scansight"
	configFile   = "config.json"
	corpusFile   = "corpus.json"
)

// Config represents the workspace configuration stored in .scansight/config.json.
type Config struct {
	ScanID string `json:"scan_id"`
}

func InitCmd() *cobra.Command {
	var scanID string
	var apiToken string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a scansight workspace",
		Long:  "Creates the .scansight/ directory with the scan ID and saves API credentials globally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runInit(scanID, apiToken, apiURL, outputJSON)
		},
	}

	cmd.Flags().StringVar(&scanID, "scan", "", "Scan ID this workspace is bound to")
	cmd.Flags().StringVar(&apiToken, "api-token", "", "API token for authentication")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL (default: http://localhost:8080)")

	return cmd
}

func runInit(scanID, apiToken, apiURL string, outputJSON bool) error {
	if _, err := os.Stat(scansightDir); err == nil {
		return fmt.Errorf(".scansight directory already exists")
	}

	_ = godotenv.Load()
	if apiToken == "" {
		apiToken = os.Getenv(envAPIToken)
	}
	if apiToken == "" {
		fmt.Print("Enter API token: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API token: %w", err)
		}
		apiToken = strings.TrimSpace(input)
		if apiToken == "" {
			return fmt.Errorf("API token is required")
		}
	}

	if apiURL == "" {
		apiURL = os.Getenv(envAPIURL)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	if scanID == "" {
		fmt.Print("Enter scan ID: ")
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read scan ID: %w", err)
		}
		scanID = strings.TrimSpace(input)
		if scanID == "" {
			return fmt.Errorf("scan ID is required")
		}
	}

	if err := os.MkdirAll(scansightDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", scansightDir, err)
	}

	config := Config{ScanID: scanID}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	configPath := filepath.Join(scansightDir, configFile)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if err := SaveGlobalConfig(&GlobalConfig{APIToken: apiToken, APIURL: apiURL}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"success": true,
			"scan_id": scanID,
			"path":    configPath,
		}
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Initialized workspace for scan %s\n", scanID)
	}

	return nil
}

// LoadConfig reads the workspace config from .scansight/config.json.
func LoadConfig() (*Config, error) {
	configPath := filepath.Join(scansightDir, configFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workspace not initialized (run 'scansight init' first)")
		}
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse workspace config: %w", err)
	}

	if config.ScanID == "" {
		return nil, fmt.Errorf("workspace config has no scan_id (run 'scansight init' again)")
	}

	return &config, nil
}
