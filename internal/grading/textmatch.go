package grading

import "strings"

// normalize trims surrounding whitespace and folds case.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parseBool(s string) (bool, bool) {
	switch normalize(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[strings.TrimSpace(s)] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
