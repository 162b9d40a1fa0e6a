package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
)

// jsonText projects structured data into a flat "key: value" text form that
// embeds reasonably, and records depth/key-count analysis on the metadata.
func jsonText(data []byte, meta *model.FileMetadata) (string, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return "", err
	}
	var lines []string
	keyCount := 0
	maxDepth := 0
	var walk func(prefix string, value any, depth int)
	walk = func(prefix string, value any, depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
		switch v := value.(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				keyCount++
				walk(joinKey(prefix, k), v[k], depth+1)
			}
		case []any:
			for i, item := range v {
				walk(fmt.Sprintf("%s[%d]", prefix, i), item, depth+1)
			}
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", prefix, v))
		}
	}
	walk("", root, 0)
	meta.KeyCount = keyCount
	meta.Depth = maxDepth
	return strings.Join(lines, "\n"), nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
