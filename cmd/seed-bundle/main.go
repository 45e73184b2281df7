// Package main loads a STIX bundle into a running stixgraph server.
//
// The bundle comes from a local file or an HTTP(S) URL and is written
// through the server's ingest API, so every side effect of a normal write
// (entity cache rebuild, graph sync, archival) applies.
//
// Usage:
//
//	BUNDLE_FILE=enterprise-attack.json go run ./cmd/seed-bundle
//	BUNDLE_URL=https://raw.githubusercontent.com/mitre/cti/master/enterprise-attack/enterprise-attack.json go run ./cmd/seed-bundle
//
// Environment variables:
//
//	SERVER_URL   stixgraph API base URL (default: http://localhost:8080)
//	BUNDLE_FILE  path to a bundle JSON file
//	BUNDLE_URL   URL to download the bundle from (used when BUNDLE_FILE is unset)
//	REPLACE      "true" → overwrite when the version already exists
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	serverURL := os.Getenv("SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	bundleFile := os.Getenv("BUNDLE_FILE")
	bundleURL := os.Getenv("BUNDLE_URL")
	replace := os.Getenv("REPLACE") == "true" || os.Getenv("REPLACE") == "1"

	if bundleFile == "" && bundleURL == "" {
		log.Fatal("Set BUNDLE_FILE or BUNDLE_URL to choose a bundle source")
	}

	client := &http.Client{Timeout: 5 * time.Minute}

	raw, source, err := readBundle(client, bundleFile, bundleURL)
	if err != nil {
		log.Fatalf("Failed to read bundle: %v", err)
	}

	version, objects, err := inspectBundle(raw)
	if err != nil {
		log.Fatalf("Not a STIX bundle: %v", err)
	}
	log.Printf("Loaded bundle from %s: version=%s objects=%d size=%s", source, version, objects, byteSize(len(raw)))

	status, body, err := put(client, serverURL+"/api/bundles", raw)
	if err != nil {
		log.Fatalf("Create request failed: %v", err)
	}

	if status == http.StatusConflict {
		if !replace {
			log.Fatalf("Version %s already exists — set REPLACE=true to overwrite", version)
		}
		log.Printf("Version %s exists, replacing", version)
		status, body, err = put(client, serverURL+"/api/bundles/"+version, raw)
		if err != nil {
			log.Fatalf("Replace request failed: %v", err)
		}
	}

	if status < 200 || status > 299 {
		log.Fatalf("Server rejected bundle (HTTP %d): %s", status, strings.TrimSpace(string(body)))
	}

	var resp struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	_ = json.Unmarshal(body, &resp)
	log.Printf("Done: status=%s version=%s", resp.Status, resp.Version)
}

// readBundle fetches the bundle bytes from the file when set, the URL
// otherwise. Returns the bytes and a human-readable source description.
func readBundle(client *http.Client, file, url string) ([]byte, string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		return data, file, err
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, url, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, url, fmt.Errorf("GET %s: HTTP %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	return data, url, err
}

// inspectBundle pulls the version key and object count out of the raw
// document without decoding the objects themselves.
func inspectBundle(raw []byte) (string, int, error) {
	var bundle struct {
		Type        string            `json:"type"`
		SpecVersion string            `json:"spec_version"`
		Objects     []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return "", 0, err
	}
	if bundle.Type != "bundle" {
		return "", 0, fmt.Errorf("type is %q, want %q", bundle.Type, "bundle")
	}
	if bundle.SpecVersion == "" {
		return "", 0, fmt.Errorf("missing spec_version")
	}
	return bundle.SpecVersion, len(bundle.Objects), nil
}

func put(client *http.Client, url string, body []byte) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}

// byteSize renders n in a human-friendly unit.
func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
