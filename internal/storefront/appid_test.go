package storefront

import "testing"

func TestResolveAppURL(t *testing.T) {
	id, ok := Resolve("https://store.steampowered.com/app/570/Dota_2/")
	if !ok || id != "570" {
		t.Fatalf("expected 570, got %q ok=%v", id, ok)
	}
}

func TestResolveNoTrailingSlash(t *testing.T) {
	id, ok := Resolve("https://store.steampowered.com/app/12345")
	if !ok || id != "12345" {
		t.Fatalf("expected 12345, got %q ok=%v", id, ok)
	}
}

func TestResolveNonAppStorePage(t *testing.T) {
	if id, ok := Resolve("https://store.steampowered.com/search/?term=deck"); ok {
		t.Fatalf("expected no id for search page, got %q", id)
	}
}

func TestResolveOutsideStorefront(t *testing.T) {
	if id, ok := Resolve("https://example.com/app/570/"); ok {
		t.Fatalf("expected no id outside storefront, got %q", id)
	}
	if IsStoreURL("https://example.com/app/570/") {
		t.Fatalf("example.com should not classify as store URL")
	}
}

func TestResolveEmpty(t *testing.T) {
	if _, ok := Resolve(""); ok {
		t.Fatalf("empty URL should not resolve")
	}
}
