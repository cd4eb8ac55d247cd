/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
)

const (
	defaultHubURL = "http://localhost:8090"
)

type ModelStatus struct {
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size_bytes"`
	Memory      string `json:"memory"`
	Speed       string `json:"speed"`
	Quality     string `json:"quality"`
	Downloaded  bool   `json:"downloaded"`
	OnDiskBytes int64  `json:"on_disk_bytes"`
}

func main() {
	var (
		hubURL   = flag.String("hub", defaultHubURL, "URL of the QuillScribe service")
		action   = flag.String("action", "list", "Action to perform: list, download, cancel, delete")
		model    = flag.String("model", "", "Model name for actions")
		category = flag.String("category", "", "Filter listing by category: Tiny, Base, Small, Medium, Large")
		format   = flag.String("format", "table", "Output format: table, json")
	)
	flag.Parse()

	client := &ModelCLI{
		hubURL: *hubURL,
		format: *format,
	}

	switch *action {
	case "list":
		err := client.listModels(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "download":
		if *model == "" {
			fmt.Fprintf(os.Stderr, "Error: model name required for download action\n")
			os.Exit(1)
		}
		err := client.downloadModel(*model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "cancel":
		if *model == "" {
			fmt.Fprintf(os.Stderr, "Error: model name required for cancel action\n")
			os.Exit(1)
		}
		err := client.cancelDownload(*model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "delete":
		if *model == "" {
			fmt.Fprintf(os.Stderr, "Error: model name required for delete action\n")
			os.Exit(1)
		}
		err := client.deleteModel(*model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown action %s\n", *action)
		fmt.Fprintf(os.Stderr, "Valid actions: list, download, cancel, delete\n")
		os.Exit(1)
	}
}

type ModelCLI struct {
	hubURL string
	format string
}

func (c *ModelCLI) listModels(category string) error {
	url := c.hubURL + "/api/models"
	if category != "" {
		url += "?category=" + category
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Models         []ModelStatus `json:"models"`
		Categories     []string      `json:"categories"`
		TotalSizeBytes int64         `json:"total_size_bytes"`
		ModelDir       string        `json:"model_dir"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if c.format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result.Models)
	}

	// Table format
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tMEMORY\tSPEED\tQUALITY\tDOWNLOADED")
	fmt.Fprintln(w, "----\t----\t------\t-----\t-------\t----------")

	for _, model := range result.Models {
		downloaded := "✗"
		if model.Downloaded {
			downloaded = "✓"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			model.Name,
			formatSize(model.SizeBytes),
			model.Memory,
			model.Speed,
			model.Quality,
			downloaded,
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("error flushing output: %w", err)
	}
	fmt.Printf("\nOn disk: %s in %s\n", formatSize(result.TotalSizeBytes), result.ModelDir)
	return nil
}

func (c *ModelCLI) downloadModel(model string) error {
	resp, err := http.Post(c.hubURL+"/api/models/"+model+"/download", "application/json", strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("unknown model %s", model)
	}
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("model %s already downloaded", model)
	}
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	fmt.Printf("Download of %s started\n", model)
	return nil
}

func (c *ModelCLI) cancelDownload(model string) error {
	resp, err := http.Post(c.hubURL+"/api/models/"+model+"/cancel", "application/json", strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no active download for model %s", model)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	fmt.Printf("Download of %s cancelled\n", model)
	return nil
}

func (c *ModelCLI) deleteModel(model string) error {
	req, err := http.NewRequest(http.MethodDelete, c.hubURL+"/api/models/"+model, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("model %s not found", model)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	fmt.Printf("Model %s deleted\n", model)
	return nil
}

func formatSize(bytes int64) string {
	const mb = 1024 * 1024
	if bytes >= mb {
		return fmt.Sprintf("%d MB", bytes/mb)
	}
	return fmt.Sprintf("%d B", bytes)
}
