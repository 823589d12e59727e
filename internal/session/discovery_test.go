package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const storePrefix = "https://store.steampowered.com"

func TestDiscoverStoreTabPicksFirstStoreTab(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Tab{
			{URL: "chrome://settings", WebSocketDebuggerURL: "ws://x/1"},
			{URL: "https://store.steampowered.com/app/400/Portal/", WebSocketDebuggerURL: "ws://x/2"},
			{URL: "https://store.steampowered.com/", WebSocketDebuggerURL: "ws://x/3"},
		})
	}))
	defer srv.Close()

	tab, err := discoverStoreTab(context.Background(), srv.Client(), srv.URL, storePrefix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.WebSocketDebuggerURL != "ws://x/2" {
		t.Fatalf("picked %q, want ws://x/2", tab.WebSocketDebuggerURL)
	}
}

func TestDiscoverStoreTabSkipsTabsWithoutChannelEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Tab{
			{URL: "https://store.steampowered.com/app/400/", WebSocketDebuggerURL: ""},
			{URL: "https://store.steampowered.com/app/500/", WebSocketDebuggerURL: "ws://x/5"},
		})
	}))
	defer srv.Close()

	tab, err := discoverStoreTab(context.Background(), srv.Client(), srv.URL, storePrefix)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tab.WebSocketDebuggerURL != "ws://x/5" {
		t.Fatalf("picked %q, want ws://x/5", tab.WebSocketDebuggerURL)
	}
}

func TestDiscoverStoreTabNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]Tab{{URL: "about:blank"}})
	}))
	defer srv.Close()

	if _, err := discoverStoreTab(context.Background(), srv.Client(), srv.URL, storePrefix); err == nil {
		t.Fatal("expected an error when no store tab is open")
	}
}

func TestDiscoverStoreTabBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := discoverStoreTab(context.Background(), srv.Client(), srv.URL, storePrefix); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestDiscoverStoreTabMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	if _, err := discoverStoreTab(context.Background(), srv.Client(), srv.URL, storePrefix); err == nil {
		t.Fatal("expected an error for a malformed body")
	}
}
