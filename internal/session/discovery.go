package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Tab is one page descriptor from the debugger discovery endpoint.
type Tab struct {
	Description          string `json:"description"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl"`
	ID                   string `json:"id"`
	Title                string `json:"title"`
	Type                 string `json:"type"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// discoverStoreTab fetches the open tabs and returns the first one whose URL
// sits under the storefront prefix and that exposes a channel endpoint.
func discoverStoreTab(ctx context.Context, client *http.Client, discoveryURL, storePrefix string) (Tab, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return Tab{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Tab{}, fmt.Errorf("discovery fetch failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Tab{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Tab{}, fmt.Errorf("discovery returned status %d", resp.StatusCode)
	}

	var tabs []Tab
	if err := json.Unmarshal(body, &tabs); err != nil {
		return Tab{}, fmt.Errorf("malformed discovery response: %w", err)
	}
	for _, tab := range tabs {
		if strings.Contains(tab.URL, storePrefix) && tab.WebSocketDebuggerURL != "" {
			return tab, nil
		}
	}
	return Tab{}, fmt.Errorf("no store tab among %d tabs", len(tabs))
}
