//go:build e2e

package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// e2eClient drives a running editor-service, EDITOR_BASE_URL or localhost:3001.
type e2eClient struct {
	baseURL string
	http    *http.Client
}

func newE2EClient() *e2eClient {
	baseURL := os.Getenv("EDITOR_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}
	return &e2eClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *e2eClient) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err, "request failed")
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	return resp, respBody
}

func TestEditorWorkflow(t *testing.T) {
	client := newE2EClient()

	t.Run("Store is reachable", func(t *testing.T) {
		resp, body := client.do(t, http.MethodGet, "/init-db", nil)
		require.Equal(t, 200, resp.StatusCode, string(body))
		resp, body = client.do(t, http.MethodGet, "/db-test", nil)
		require.Equal(t, 200, resp.StatusCode, string(body))
	})

	var projectID string
	t.Run("Create project", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/projects", map[string]string{"name": "e2e-" + time.Now().Format("150405")})
		require.Equal(t, 200, resp.StatusCode, string(body))
		var result map[string]string
		require.NoError(t, json.Unmarshal(body, &result))
		projectID = result["id"]
		require.NotEmpty(t, projectID)
	})

	t.Run("Replace files", func(t *testing.T) {
		resp, body := client.do(t, http.MethodPost, "/projects/"+projectID+"/files", map[string]any{
			"files": []map[string]string{
				{"path": "x.py", "content": "1"},
				{"path": "y.py", "content": "2"},
			},
		})
		require.Equal(t, 200, resp.StatusCode, string(body))

		resp, body = client.do(t, http.MethodGet, "/projects/"+projectID+"/files", nil)
		require.Equal(t, 200, resp.StatusCode)
		var files []map[string]string
		require.NoError(t, json.Unmarshal(body, &files))
		require.Len(t, files, 2)
		assert.Equal(t, "x.py", files[0]["path"])
		assert.Equal(t, "y.py", files[1]["path"])
	})

	t.Run("Download archive", func(t *testing.T) {
		resp, body := client.do(t, http.MethodGet, "/projects/"+projectID+"/download", nil)
		require.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))

		zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
		require.NoError(t, err)
		got := map[string]string{}
		for _, f := range zr.File {
			rc, err := f.Open()
			require.NoError(t, err)
			content, err := io.ReadAll(rc)
			require.NoError(t, err)
			rc.Close()
			got[f.Name] = string(content)
		}
		assert.Equal(t, map[string]string{"x.py": "1", "y.py": "2"}, got)
	})
}
