package tooldef

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
	"github.com/bobmcallan/toolgate/internal/validate"
)

// Loader reads tool definition files.
type Loader struct {
	lookup validate.LookupFunc
	logger *common.Logger
}

// NewLoader creates a loader. A nil lookup reads the process environment.
func NewLoader(lookup validate.LookupFunc, logger *common.Logger) *Loader {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Loader{lookup: lookup, logger: logger}
}

// LoadPaths loads every file or directory in paths, in order. Directories
// contribute their .yaml, .yml, .json and .toml files in lexical order.
// A file that fails to load is logged and skipped.
func (l *Loader) LoadPaths(paths []string) []ToolDefinition {
	var defs []ToolDefinition
	for _, p := range paths {
		files, err := expandPath(p)
		if err != nil {
			l.logger.Error().Str("path", p).Err(err).Msg("cannot read tool path")
			continue
		}
		for _, f := range files {
			loaded, err := l.LoadFile(f)
			if err != nil {
				l.logger.Error().Str("file", f).Err(err).Msg("skipping tool file")
				continue
			}
			l.logger.Debug().Str("file", f).Int("tools", len(loaded)).Msg("loaded tool file")
			defs = append(defs, loaded...)
		}
	}
	return defs
}

// LoadFile parses one file. The format is chosen by extension.
func (l *Loader) LoadFile(path string) ([]ToolDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "failed to read tool file "+path, err)
	}
	format := formatOf(path)
	if format == "" {
		return nil, apperrors.Newf(apperrors.CodeConfig, "unsupported tool file extension: %s", path)
	}
	defs, err := l.Parse(data, format)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "failed to parse tool file "+path, err)
	}
	return defs, nil
}

// Parse decodes definitions from data in format ("yaml", "json" or "toml").
// The document is either a list of definitions or an object with a tools
// list. Environment placeholders are resolved in every string value before
// the definitions are decoded.
func (l *Loader) Parse(data []byte, format string) ([]ToolDefinition, error) {
	var doc any
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal(data, &doc)
	case "json":
		err = json.Unmarshal(data, &doc)
	case "toml":
		var m map[string]any
		err = toml.Unmarshal(data, &m)
		doc = m
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	var list any
	switch t := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		list = t
	case map[string]any:
		tools, ok := t["tools"]
		if !ok {
			return nil, fmt.Errorf("document has no tools list")
		}
		list = tools
	default:
		return nil, fmt.Errorf("expected a list of tools or an object with tools, got %T", doc)
	}

	var items []any
	switch t := list.(type) {
	case []any:
		items = t
	case []map[string]any:
		for _, m := range t {
			items = append(items, m)
		}
	default:
		return nil, fmt.Errorf("tools must be a list, got %T", list)
	}

	expanded, unresolved := validate.ExpandEnvValue(items, l.lookup)
	for _, name := range dedupe(unresolved) {
		l.logger.Warn().Str("variable", name).Msg("environment variable referenced by tool definition is not set")
	}

	var defs []ToolDefinition
	for i, item := range expanded.([]any) {
		def, err := decodeDefinition(item)
		if err != nil {
			l.logger.Warn().Int("index", i).Str("tool", nameOf(item)).Err(err).Msg("skipping malformed tool definition")
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Scalar fields that may arrive as strings after ${VAR} expansion.
var (
	intFields  = []string{"timeout_seconds"}
	boolFields = []string{"enabled", "quote_arguments", "forward_arguments", "discover_tools"}
)

// decodeDefinition converts one generic definition into a ToolDefinition.
// It round-trips through JSON so all three formats share one decoder and one
// set of field names.
func decodeDefinition(item any) (ToolDefinition, error) {
	var def ToolDefinition
	m, ok := item.(map[string]any)
	if !ok {
		return def, fmt.Errorf("expected a tool object, got %T", item)
	}
	m = coerceScalars(m)

	raw, err := json.Marshal(m)
	if err != nil {
		return def, err
	}
	if err := json.Unmarshal(raw, &def); err != nil {
		return def, err
	}
	return def, nil
}

// coerceScalars returns a copy of m with numeric and boolean string values
// converted for the typed fields. An empty string drops the field so its
// default applies; anything unparsable is left for the decoder to reject.
func coerceScalars(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range intFields {
		s, ok := out[k].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			delete(out, k)
		} else if n, err := strconv.Atoi(s); err == nil {
			out[k] = n
		}
	}
	for _, k := range boolFields {
		s, ok := out[k].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			delete(out, k)
		} else if b, err := strconv.ParseBool(s); err == nil {
			out[k] = b
		}
	}
	return out
}

func nameOf(item any) string {
	if m, ok := item.(map[string]any); ok {
		if name, ok := m["name"].(string); ok {
			return name
		}
	}
	return ""
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	}
	return ""
}

func expandPath(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || formatOf(e.Name()) == "" {
			continue
		}
		files = append(files, filepath.Join(p, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
