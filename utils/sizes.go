package utils

import (
	"encoding/json"
	"strings"
)

// NormalizeSize normalizes size values to standard format
// Extra small -> XS, Extra large -> XL, anything else upper-cased
func NormalizeSize(size string) string {
	sizeUpper := strings.ToUpper(strings.TrimSpace(size))

	switch sizeUpper {
	case "EXTRA SMALL", "XSMALL":
		return "XS"
	case "SMALL":
		return "S"
	case "MEDIUM":
		return "M"
	case "LARGE":
		return "L"
	case "EXTRA LARGE", "XLARGE":
		return "XL"
	}

	return sizeUpper
}

// ParseSizes accepts the shapes admin forms send for the sizes field:
// a JSON array ("[\"S\",\"M\"]"), a comma separated list ("S, M") or a single size.
// Blank entries are dropped and every size is normalized.
func ParseSizes(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &parts); err != nil {
			// Not valid JSON, fall back to a comma separated list
			parts = strings.Split(strings.Trim(raw, "[]"), ",")
		}
	} else {
		parts = strings.Split(raw, ",")
	}

	sizes := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p == "" {
			continue
		}
		sizes = append(sizes, NormalizeSize(p))
	}
	return sizes
}
