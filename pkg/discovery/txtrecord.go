package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXT record keys.
const (
	TXTKeyPath    = "path"    // Landing page path
	TXTKeyTrigger = "trigger" // Actuation path
	TXTKeyVersion = "version" // Build version (optional)
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// DefaultTXT returns the TXT entries for the control surface. An empty
// version is omitted.
func DefaultTXT(version string) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyPath:    "/",
		TXTKeyTrigger: "/open",
	}
	if version != "" {
		txt[TXTKeyVersion] = version
	}
	return txt
}

// Strings converts the map to "key=value" strings, sorted by key so the
// published record is stable.
func (t TXTRecordMap) Strings() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, 0, len(t))
	for _, k := range keys {
		result = append(result, fmt.Sprintf("%s=%s", k, t[k]))
	}
	return result
}

// ParseTXT parses "key=value" strings into a TXTRecordMap.
func ParseTXT(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}
