package client

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

// Document represents a document as returned by the API.
type Document struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ScanID    string `json:"scan_id"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// InitUploadResponse represents the upload initialization API response.
type InitUploadResponse struct {
	Document  *Document `json:"document"`
	UploadURL string    `json:"upload_url"`
}

// CompleteUploadResponse represents the upload completion API response.
type CompleteUploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// DownloadURLResponse represents the download URL API response.
type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

// DocCmd creates the doc command group.
func DocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Manage scan documents",
		Long:  "Upload, list, download, and delete the documents backing the scan corpus.",
	}

	cmd.AddCommand(docUploadCmd())
	cmd.AddCommand(docListCmd())
	cmd.AddCommand(docDownloadCmd())
	cmd.AddCommand(docDeleteCmd())

	return cmd
}

func docUploadCmd() *cobra.Command {
	var mimeType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocUpload(args[0], mimeType, outputJSON)
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (detected from extension if omitted)")

	return cmd
}

func runDocUpload(filePath, mimeType string, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(filePath))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	initReq := map[string]interface{}{
		"filename":   filepath.Base(filePath),
		"mime_type":  mimeType,
		"size_bytes": stat.Size(),
	}

	resp, err := api.Post(fmt.Sprintf("/scans/%s/documents", config.ScanID), initReq)
	if err != nil {
		return fmt.Errorf("failed to initialize upload: %w", err)
	}

	var initResp InitUploadResponse
	if err := json.Unmarshal(resp.Data, &initResp); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}
	if initResp.Document == nil || initResp.UploadURL == "" {
		return fmt.Errorf("upload response missing document or URL")
	}

	if err := api.UploadFile(initResp.UploadURL, filePath, mimeType); err != nil {
		return err
	}

	resp, err = api.Post(fmt.Sprintf("/documents/%s/complete", initResp.Document.ID), nil)
	if err != nil {
		return fmt.Errorf("failed to complete upload: %w", err)
	}

	var completeResp CompleteUploadResponse
	if err := json.Unmarshal(resp.Data, &completeResp); err != nil {
		return fmt.Errorf("failed to parse completion response: %w", err)
	}

	if outputJSON {
		result := map[string]interface{}{
			"document_id": initResp.Document.ID,
			"job_id":      completeResp.JobID,
			"status":      completeResp.Status,
		}
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Uploaded %s (document %s, ingestion job %s)\n",
			initResp.Document.Filename, initResp.Document.ID, completeResp.JobID)
	}

	return nil
}

// DocumentPage represents one page of the document listing API response.
type DocumentPage struct {
	Items   []Document `json:"items"`
	Cursor  string     `json:"cursor,omitempty"`
	HasMore bool       `json:"has_more"`
}

func docListCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scan's documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocList(limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of documents (server default if omitted)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runDocList(limit int, cursor string, outputJSON bool) error {
	config, err := LoadConfig()
	if err != nil {
		return err
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/scans/%s/documents", config.ScanID)
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var page DocumentPage
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No documents in this scan.")
		return nil
	}

	for _, doc := range page.Items {
		fmt.Printf("%s  %-10s  %8d bytes  %s\n", doc.ID, doc.Status, doc.SizeBytes, doc.Filename)
	}
	if page.HasMore && page.Cursor != "" {
		fmt.Printf("\nMore documents available. Use --cursor %s\n", page.Cursor)
	}

	return nil
}

func docDownloadCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "download <document-id>",
		Short: "Download a document's original file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocDownload(args[0], outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output path (defaults to the document ID)")

	return cmd
}

func runDocDownload(documentID, outputPath string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s/download", documentID))
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var urlResp DownloadURLResponse
	if err := json.Unmarshal(resp.Data, &urlResp); err != nil {
		return fmt.Errorf("failed to parse download response: %w", err)
	}

	if outputPath == "" {
		outputPath = documentID
	}

	if err := api.DownloadFile(urlResp.DownloadURL, outputPath); err != nil {
		return err
	}

	fmt.Printf("Downloaded document %s to %s\n", documentID, outputPath)
	return nil
}

func docDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocDelete(args[0])
		},
	}
}

func runDocDelete(documentID string) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	if _, err := api.Delete(fmt.Sprintf("/documents/%s", documentID)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted document %s\n", documentID)
	return nil
}
