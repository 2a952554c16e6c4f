package aliasing

import (
	"log/slog"
	"regexp"
	"strings"
)

type (
	// compiledPattern holds a pre-compiled regex pattern and its canonical template.
	compiledPattern struct {
		regex     *regexp.Regexp
		canonical string
		variables []string
	}

	// Resolver resolves resource names using pattern-based aliasing.
	// Thread-safe for concurrent use (immutable after construction).
	//
	// The resolver transforms a caller-supplied resource name into its
	// canonical form, so GetByName lookups stay keyed on one name per
	// Resource even when producers address it under different
	// conventions.
	//
	// Pattern syntax:
	//   - {variable} captures any characters except "/"
	//   - {variable*} captures any characters including "/" (for paths)
	//   - Literal characters match exactly
	//   - First matching pattern wins (order matters)
	Resolver struct {
		patterns []compiledPattern
	}
)

// variableRegex matches {name} or {name*} patterns in the pattern string.
var variableRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\*?\}`)

// compilePattern converts a pattern string to a compiled regex.
//
// Pattern: "legacy_warehouse/{name}" → Regex: ^legacy_warehouse/(?P<name>[^/]+)$.
// Pattern: "s3://bucket/{path*}" → Regex: ^s3://bucket/(?P<path>.+)$.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	variables := make([]string, 0, 4) //nolint:mnd // preallocate for typical pattern

	// Escape regex special characters in literal parts
	escaped := regexp.QuoteMeta(pattern)

	// Replace escaped variable placeholders with capture groups
	// QuoteMeta escapes { and }, so we look for \{...\}
	result := escaped

	// Find all variables in original pattern
	matches := variableRegex.FindAllStringSubmatch(pattern, -1)
	for _, match := range matches {
		fullMatch := match[0] // e.g., "{name}" or "{path*}"
		varName := match[1]   // e.g., "name" or "path"
		isGreedy := strings.HasSuffix(fullMatch, "*}")

		variables = append(variables, varName)

		// Build the capture group
		var captureGroup string
		if isGreedy {
			// {var*} captures anything including slashes
			captureGroup = "(?P<" + varName + ">.+)"
		} else {
			// {var} captures anything except slashes
			captureGroup = "(?P<" + varName + ">[^/]+)"
		}

		// Replace the escaped version in the result
		escapedVar := regexp.QuoteMeta(fullMatch)
		result = strings.Replace(result, escapedVar, captureGroup, 1)
	}

	// Anchor the regex to match the entire string
	result = "^" + result + "$"

	regex, err := regexp.Compile(result)
	if err != nil {
		return nil, nil, err
	}

	return regex, variables, nil
}

// substituteVariables replaces {var} placeholders in canonical with captured values.
func substituteVariables(canonical string, captures map[string]string) string {
	result := canonical

	for varName, value := range captures {
		// Replace both {var} and {var*} forms
		result = strings.ReplaceAll(result, "{"+varName+"}", value)
		result = strings.ReplaceAll(result, "{"+varName+"*}", value)
	}

	return result
}

// NewResolver creates a resolver from config with validation.
//
// Validates:
//   - Patterns with empty pattern or canonical are skipped with warning
//   - Patterns with invalid regex are skipped with warning
//
// Returns a resolver containing only valid patterns.
// If config is nil or has no patterns, returns a no-op resolver (passthrough).
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil || len(cfg.ResourceNamePatterns) == 0 {
		return &Resolver{
			patterns: []compiledPattern{},
		}
	}

	validPatterns := make([]compiledPattern, 0, len(cfg.ResourceNamePatterns))

	for _, np := range cfg.ResourceNamePatterns {
		pattern := strings.TrimSpace(np.Pattern)
		canonical := strings.TrimSpace(np.Canonical)

		// Skip empty patterns
		if pattern == "" {
			slog.Warn("skipping alias pattern with empty pattern string")

			continue
		}

		// Skip empty canonical
		if canonical == "" {
			slog.Warn("skipping alias pattern with empty canonical",
				slog.String("pattern", pattern))

			continue
		}

		// Compile the pattern
		regex, variables, err := compilePattern(pattern)
		if err != nil {
			slog.Warn("skipping alias pattern with invalid regex",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))

			continue
		}

		validPatterns = append(validPatterns, compiledPattern{
			regex:     regex,
			canonical: canonical,
			variables: variables,
		})

		slog.Debug("compiled resource name alias pattern",
			slog.String("pattern", pattern),
			slog.String("canonical", canonical),
			slog.Int("variables", len(variables)))
	}

	return &Resolver{
		patterns: validPatterns,
	}
}

// GetPatternCount returns the number of compiled patterns.
func (r *Resolver) GetPatternCount() int {
	if r == nil {
		return 0
	}

	return len(r.patterns)
}

// Resolve applies patterns to transform a resource name to its canonical
// form. Returns the canonical name if a pattern matches, otherwise returns
// the original name unchanged.
//
// Patterns are evaluated in order; first match wins.
func (r *Resolver) Resolve(name string) string {
	if r == nil || len(r.patterns) == 0 || name == "" {
		return name
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(name)
		if match == nil {
			continue
		}

		captures := captureGroups(cp.regex, match)

		return substituteVariables(cp.canonical, captures)
	}

	return name
}

// Match checks if a name matches any pattern and returns match details.
// Returns (canonical, true) if matched, ("", false) if no match.
func (r *Resolver) Match(name string) (string, bool) {
	if r == nil || len(r.patterns) == 0 || name == "" {
		return "", false
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(name)
		if match == nil {
			continue
		}

		captures := captureGroups(cp.regex, match)

		return substituteVariables(cp.canonical, captures), true
	}

	return "", false
}

func captureGroups(regex *regexp.Regexp, match []string) map[string]string {
	captures := make(map[string]string)

	for i, name := range regex.SubexpNames() {
		if i > 0 && name != "" && i < len(match) {
			captures[name] = match[i]
		}
	}

	return captures
}
