package nhlapi

import (
	"strconv"
	"strings"
)

// Generic-tree accessors. Feed documents are decoded into map[string]any
// because field types drift between schema generations (ids arrive as both
// numbers and strings).

func getMap(src map[string]any, key string) map[string]any {
	if src == nil {
		return nil
	}
	value, _ := src[key].(map[string]any)
	return value
}

func getList(src map[string]any, key string) []any {
	if src == nil {
		return nil
	}
	value, _ := src[key].([]any)
	return value
}

func getString(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	switch value := src[key].(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatInt(int64(value), 10)
	}
	return ""
}

func getInt(src map[string]any, key string) int {
	return int(getInt64(src, key))
}

func getInt64(src map[string]any, key string) int64 {
	if src == nil {
		return 0
	}
	switch value := src[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func firstPositive(values ...int64) int64 {
	for _, value := range values {
		if value > 0 {
			return value
		}
	}
	return 0
}

// parseClockSeconds converts a "MM:SS" period clock into elapsed seconds.
func parseClockSeconds(raw string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, false
	}
	if minutes < 0 || seconds < 0 || seconds > 59 {
		return 0, false
	}
	return minutes*60 + seconds, true
}
