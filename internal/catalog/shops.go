package catalog

// shopNames maps catalog shop ids to display names. Unknown ids fall back to
// the provider-given name, else "Unknown".
var shopNames = map[int]string{
	4:  "GamesPlanet",
	6:  "GamersGate",
	16: "Epic Game Store",
	24: "Fanatical",
	35: "GOG",
	37: "Humble Store",
	48: "Microsoft Store",
	61: "Steam",
	62: "Ubisoft Store",
}

// ShopName resolves a shop to its display name.
func ShopName(id int, fallback string) string {
	if name, ok := shopNames[id]; ok {
		return name
	}
	if fallback != "" {
		return fallback
	}
	return "Unknown"
}
