package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	// IncludeKeyword starts a line that splices a template into the script.
	IncludeKeyword = "#include"
	// IncludeFileKey names the template inside an include directive.
	IncludeFileKey = "file"

	templateExt = ".csv"
)

// ErrMissingTemplateFile is returned for include directives without a file key.
var ErrMissingTemplateFile = errors.New("include directive has no file parameter")

// TemplateLoader expands include directives against templates stored in a
// directory. It holds no per-call state and is safe for concurrent use.
type TemplateLoader struct {
	dir    string
	logger *zap.Logger
}

// NewTemplateLoader creates a loader resolving template names under dir.
func NewTemplateLoader(dir string, logger *zap.Logger) *TemplateLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateLoader{dir: dir, logger: logger.Named("templates")}
}

// LoadWithTemplates reads the script at path and expands its include
// directives. The result is terminated line by line with LineSeparator.
func (l *TemplateLoader) LoadWithTemplates(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("reading script %s: %w", path, err)
	}
	lines, err := l.expand(splitLines(string(content)), nil, []string{abs})
	if err != nil {
		return "", err
	}
	return joinLines(lines), nil
}

// Expand resolves include directives in an already rendered script. Records
// may be separated by LineSeparator or by newlines.
func (l *TemplateLoader) Expand(text string) (string, error) {
	if !strings.Contains(text, IncludeKeyword) {
		return text, nil
	}
	var lines []string
	if strings.Contains(text, LineSeparator) {
		lines = strings.Split(strings.TrimSuffix(text, LineSeparator), LineSeparator)
	} else {
		lines = splitLines(text)
	}
	expanded, err := l.expand(lines, nil, nil)
	if err != nil {
		return "", err
	}
	return joinLines(expanded), nil
}

// expand walks lines, splicing templates in place of include directives.
// chain holds the files on the current inclusion path.
func (l *TemplateLoader) expand(lines []string, params []includeParam, chain []string) ([]string, error) {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.ContainsRune(line, markerDelim) {
			line = addIncludeParameters(line, params)
		}
		if !isInclude(line) {
			out = append(out, line)
			continue
		}

		name, incParams, err := parseInclude(line)
		if err != nil {
			return nil, err
		}
		path := l.resolve(name)
		for _, seen := range chain {
			if seen == path {
				return nil, &InclusionCycleError{File: path, Chain: append(append([]string(nil), chain...), path)}
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", name, err)
		}
		l.logger.Debug("Including template.", zap.String("file", path), zap.Int("params", len(incParams)))

		nested := append(append(make([]string, 0, len(chain)+1), chain...), path)
		included, err := l.expand(splitLines(string(content)), incParams, nested)
		if err != nil {
			return nil, err
		}
		out = append(out, included...)
	}
	return out, nil
}

func (l *TemplateLoader) resolve(name string) string {
	if filepath.Ext(name) == "" {
		name += templateExt
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(l.dir, name)
	}
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return filepath.Clean(name)
}

// includeParam is one key=value pair of an include directive.
type includeParam struct {
	Key   string
	Value string
}

// addIncludeParameters substitutes %key% for every parameter, in the order
// the directive declared them. A value may therefore contain the marker of a
// later parameter. Markers with no matching key are left for Compile.
func addIncludeParameters(line string, params []includeParam) string {
	for _, p := range params {
		line = strings.ReplaceAll(line, string(markerDelim)+p.Key+string(markerDelim), p.Value)
	}
	return line
}

func isInclude(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, IncludeKeyword) {
		return false
	}
	rest := trimmed[len(IncludeKeyword):]
	return rest == "" || rest[0] == ','
}

// parseInclude reads "#include,file=name,key=value,..." honoring double
// quotes around values. Single quotes are dropped from keys and values.
// Parameters keep their declaration order; a repeated key keeps its first
// position and takes the last value.
func parseInclude(line string) (string, []includeParam, error) {
	fields := splitQuoted(strings.TrimSpace(line))
	params := make([]includeParam, 0, len(fields))
	index := make(map[string]int, len(fields))
	var file string
	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		key = strings.ReplaceAll(strings.TrimSpace(key), "'", "")
		value = unquote(strings.TrimSpace(value))
		if key == IncludeFileKey {
			file = value
			continue
		}
		if i, ok := index[key]; ok {
			params[i].Value = value
			continue
		}
		index[key] = len(params)
		params = append(params, includeParam{Key: key, Value: value})
	}
	if file == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrMissingTemplateFile, line)
	}
	return file, params, nil
}

func splitQuoted(s string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}

func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.ReplaceAll(v, "'", "")
}

func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString(LineSeparator)
	}
	return b.String()
}
