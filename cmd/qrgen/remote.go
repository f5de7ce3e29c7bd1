package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrylevesque/qrgen/internal/models"
)

var (
	serverBaseURL = "http://localhost:8080"
	remoteUser    string
	createFlags   intentFlags
	createName    string
	createDynamic bool
	listType      string
	listQuery     string
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a code on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := models.ParseKind(createFlags.kind)
		if !ok {
			return fmt.Errorf("unknown type %q", createFlags.kind)
		}
		c, err := createFlags.content()
		if err != nil {
			return err
		}
		body := map[string]any{
			"name":      createName,
			"type":      kind,
			"content":   c,
			"isDynamic": createDynamic,
		}
		resp, status, err := doJSON(http.MethodPost, "/codes", body)
		if err != nil {
			return fmt.Errorf("post create: %w", err)
		}
		if status != http.StatusCreated {
			return fmt.Errorf("server returned status %d: %s", status, strings.TrimSpace(string(resp)))
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a saved code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, status, err := doJSON(http.MethodGet, "/codes/"+url.PathEscape(args[0]), nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("server returned status %d: %s", status, strings.TrimSpace(string(resp)))
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved codes, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		if listType != "" {
			q.Set("type", listType)
		}
		if listQuery != "" {
			q.Set("q", listQuery)
		}
		path := "/codes"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}
		resp, status, err := doJSON(http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("server returned status %d: %s", status, strings.TrimSpace(string(resp)))
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	if env := os.Getenv("QRGEN_SERVER"); env != "" {
		serverBaseURL = strings.TrimRight(env, "/")
	}
	for _, c := range []*cobra.Command{createCmd, getCmd, listCmd} {
		c.Flags().StringVar(&serverBaseURL, "server", serverBaseURL, "server base URL (or QRGEN_SERVER)")
		c.Flags().StringVarP(&remoteUser, "user", "u", os.Getenv("QRGEN_USER"), "user id sent as X-User-ID (or QRGEN_USER)")
	}
	createFlags.register(createCmd)
	createCmd.Flags().StringVarP(&createName, "name", "n", "", "display name")
	createCmd.Flags().BoolVar(&createDynamic, "dynamic", false, "request a short URL")
	_ = createCmd.MarkFlagRequired("name")
	listCmd.Flags().StringVar(&listType, "type", "", "filter by type")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "search name or type")
}

func doJSON(method, path string, payload any) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, strings.TrimRight(serverBaseURL, "/")+path, body)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if remoteUser != "" {
		req.Header.Set("X-User-ID", remoteUser)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return b, resp.StatusCode, nil
}

func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = w.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
