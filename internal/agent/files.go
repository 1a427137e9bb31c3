package agent

import (
	"encoding/json"
	"sort"
	"strings"
)

// fileSet accumulates output file references across all tool calls in one
// turn, deduplicated, preserving first-seen order.
type fileSet struct {
	seen  map[string]bool
	order []string
}

func newFileSet() *fileSet {
	return &fileSet{seen: make(map[string]bool)}
}

func (s *fileSet) add(name string) {
	if name == "" || s.seen[name] {
		return
	}
	s.seen[name] = true
	s.order = append(s.order, name)
}

func (s *fileSet) list() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// harvestFiles pulls output file references out of a successful tool
// payload: every string field whose key contains "path", plus the string
// list under "generated_files".
func harvestFiles(payload string, files *fileSet) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return
	}

	if status, ok := fields["status"].(string); !ok || status != "success" {
		return
	}

	// Sorted key walk keeps the harvested order deterministic.
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := fields[key]
		if strings.Contains(strings.ToLower(key), "path") {
			if path, ok := value.(string); ok {
				files.add(path)
			}
			continue
		}
		if key == "generated_files" {
			if list, ok := value.([]interface{}); ok {
				for _, item := range list {
					if path, ok := item.(string); ok {
						files.add(path)
					}
				}
			}
		}
	}
}
