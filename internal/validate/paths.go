package validate

import "strings"

// NormalizePathPrefix returns a copy of value in which every string starting
// with hostRoot + "/" has that root replaced by containerRoot. Slices and maps
// are walked to any depth; the input is never modified.
func NormalizePathPrefix(value any, hostRoot, containerRoot string) any {
	hostRoot = strings.TrimRight(hostRoot, "/")
	containerRoot = strings.TrimRight(containerRoot, "/")
	if hostRoot == "" {
		return value
	}
	return normalizePath(value, hostRoot+"/", containerRoot)
}

func normalizePath(value any, prefix, containerRoot string) any {
	switch v := value.(type) {
	case string:
		if strings.HasPrefix(v, prefix) {
			return containerRoot + "/" + v[len(prefix):]
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizePath(item, prefix, containerRoot)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = normalizePath(item, prefix, containerRoot).(string)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = normalizePath(item, prefix, containerRoot)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = normalizePath(item, prefix, containerRoot).(string)
		}
		return out
	default:
		return v
	}
}

// NormalizeArguments applies NormalizePathPrefix to a call's argument map.
func NormalizeArguments(args map[string]any, hostRoot, containerRoot string) map[string]any {
	if args == nil {
		return nil
	}
	out, _ := NormalizePathPrefix(args, hostRoot, containerRoot).(map[string]any)
	return out
}
