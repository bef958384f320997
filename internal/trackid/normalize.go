package trackid

import "strings"

// Normalize canonicalizes track names and their common aliases.
func Normalize(name string) string {
	normalized := strings.TrimSpace(strings.ToLower(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return ""
	}
	for _, candidate := range aliasCandidates(normalized) {
		if canonical, ok := canonicalTrackName(candidate); ok {
			return canonical
		}
	}
	return normalized
}

func aliasCandidates(normalized string) []string {
	candidates := []string{normalized}

	trimmed := strings.TrimPrefix(normalized, "track-")
	trimmed = strings.TrimSuffix(trimmed, "-track")
	trimmed = strings.Trim(trimmed, "-")
	if trimmed != "" && trimmed != normalized {
		candidates = append(candidates, trimmed)
	}
	return candidates
}

func canonicalTrackName(alias string) (string, bool) {
	switch strings.ReplaceAll(alias, "-", "") {
	case "oval", "stadium":
		return "oval", true
	case "square", "box":
		return "square", true
	case "kidney", "bean":
		return "kidney", true
	default:
		return "", false
	}
}
