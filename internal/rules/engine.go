// Package rules applies user-defined transcript substitutions.
//
// A rules file holds one rule per line. Blank lines and lines starting
// with '#' are skipped. Two forms are accepted:
//
//	wrong phrase => right phrase
//	s/pattern/replacement/flags
//
// Literal rules match case-insensitively and replace every occurrence.
// Regex rules use Go regexp syntax; recognized flags are i (ignore
// case), g (replace all matches instead of the first), m (multi-line
// anchors) and s (dot matches newline). Rules are applied in file
// order, and the whole set is re-applied until the text stops changing
// or the iteration limit is hit, so rules may feed each other.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

const defaultIterationLimit = 30

type rule struct {
	pattern     *regexp.Regexp
	replacement string
	replaceAll  bool
}

func (r rule) apply(text string) string {
	if r.replaceAll {
		return r.pattern.ReplaceAllString(text, r.replacement)
	}
	loc := r.pattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	match := text[loc[0]:loc[1]]
	return text[:loc[0]] + r.pattern.ReplaceAllString(match, r.replacement) + text[loc[1]:]
}

// Engine rewrites transcripts using an ordered rule set.
type Engine struct {
	rules []rule
	limit int
	log   zerolog.Logger
}

// Load reads the rules file at path. A missing file yields an empty
// engine, because dictation must keep working without one.
func Load(path string, limit int, log zerolog.Logger) (*Engine, error) {
	if limit <= 0 {
		limit = defaultIterationLimit
	}
	engine := &Engine{limit: limit, log: log}
	if path == "" {
		return engine, nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("rules file not found")
			return engine, nil
		}
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	for i, line := range strings.Split(string(contents), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parsed, err := parseRule(line)
		if err != nil {
			log.Warn().Err(err).Int("line", i+1).Str("path", path).Msg("skipping invalid rule")
			continue
		}
		engine.rules = append(engine.rules, parsed)
	}

	log.Debug().Int("rules", len(engine.rules)).Str("path", path).Msg("loaded substitution rules")
	return engine, nil
}

func parseRule(line string) (rule, error) {
	if strings.HasPrefix(line, "s/") {
		return parseRegexRule(line)
	}
	return parseLiteralRule(line)
}

func parseLiteralRule(line string) (rule, error) {
	from, to, found := strings.Cut(line, "=>")
	if !found {
		return rule{}, fmt.Errorf("expected 'from => to' or 's/pattern/replacement/flags', got %q", line)
	}
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return rule{}, fmt.Errorf("empty match text in %q", line)
	}
	pattern, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return rule{}, fmt.Errorf("compile literal rule %q: %w", line, err)
	}
	return rule{pattern: pattern, replacement: escapeReplacement(to), replaceAll: true}, nil
}

func parseRegexRule(line string) (rule, error) {
	pattern, rest, err := cutUnescaped(line[len("s/"):])
	if err != nil {
		return rule{}, fmt.Errorf("unterminated pattern in %q", line)
	}
	replacement, flags, err := cutUnescaped(rest)
	if err != nil {
		return rule{}, fmt.Errorf("unterminated replacement in %q", line)
	}

	var prefix string
	replaceAll := false
	for _, flag := range flags {
		switch flag {
		case 'i':
			prefix += "i"
		case 'g':
			replaceAll = true
		case 'm':
			prefix += "m"
		case 's':
			prefix += "s"
		default:
			return rule{}, fmt.Errorf("unknown flag %q in %q", string(flag), line)
		}
	}
	if prefix != "" {
		prefix = "(?" + prefix + ")"
	}

	compiled, err := regexp.Compile(prefix + unescapeDelimiter(pattern))
	if err != nil {
		return rule{}, fmt.Errorf("compile regex rule %q: %w", line, err)
	}
	return rule{pattern: compiled, replacement: unescapeDelimiter(replacement), replaceAll: replaceAll}, nil
}

// cutUnescaped splits s at the first '/' that is not preceded by a
// backslash, returning the text before and after it.
func cutUnescaped(s string) (before, after string, err error) {
	escaped := false
	for i, ch := range s {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '/':
			return s[:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("missing '/' delimiter")
}

func unescapeDelimiter(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}

// escapeReplacement protects '$' in literal replacements from being
// treated as a regexp capture reference.
func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}

// Apply runs the rule set over text until it settles or the iteration
// limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}
	for i := 0; i < e.limit; i++ {
		next := text
		for _, r := range e.rules {
			next = r.apply(next)
		}
		if next == text {
			return next, nil
		}
		text = next
	}
	e.log.Warn().Int("limit", e.limit).Msg("substitution rules did not converge")
	return text, nil
}

// Len reports how many rules were loaded.
func (e *Engine) Len() int {
	return len(e.rules)
}
