// Package matcher selects package identities by glob or regex patterns.
package matcher

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PatternType represents the type of pattern matching to use.
type PatternType int

const (
	// Glob uses shell-style glob patterns (*, ?, []). A * does not cross
	// the / between a repository and its subrepository.
	Glob PatternType = iota
	// Regex uses unanchored regular expressions.
	Regex
	// Auto detects the pattern type.
	Auto
)

// String returns a string representation of the PatternType.
func (pt PatternType) String() string {
	switch pt {
	case Glob:
		return "glob"
	case Regex:
		return "regex"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// Matcher matches a single pattern.
type Matcher interface {
	Match(input string) bool
	Pattern() string
	Type() PatternType
}

type matcher struct {
	pattern     string
	patternType PatternType
	compiled    *regexp.Regexp
}

// New compiles pattern. Auto picks Regex when the pattern carries regex
// syntax and Glob otherwise.
func New(patternType PatternType, pattern string) (Matcher, error) {
	if patternType == Auto {
		patternType = detectPatternType(pattern)
	}

	m := &matcher{pattern: pattern, patternType: patternType}
	switch patternType {
	case Glob:
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
	case Regex:
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		m.compiled = compiled
	default:
		return nil, fmt.Errorf("unsupported pattern type: %v", patternType)
	}
	return m, nil
}

// Match checks if the input matches the pattern.
func (m *matcher) Match(input string) bool {
	if m.patternType == Regex {
		return m.compiled.MatchString(input)
	}
	ok, _ := path.Match(m.pattern, input)
	return ok
}

// Pattern returns the original pattern string.
func (m *matcher) Pattern() string { return m.pattern }

// Type returns the pattern type being used.
func (m *matcher) Type() PatternType { return m.patternType }

func detectPatternType(pattern string) PatternType {
	regexIndicators := []string{
		"^", "$", "\\d", "\\w", "\\s", "(?", "{", "}", "+", "|", "(", ")", ".*",
	}
	for _, indicator := range regexIndicators {
		if strings.Contains(pattern, indicator) {
			return Regex
		}
	}
	return Glob
}

// Filter keeps identities that match any include pattern (or all identities
// when there are none) and no exclude pattern.
type Filter struct {
	include []Matcher
	exclude []Matcher
}

// NewFilter compiles include and exclude patterns with type detection.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

// Empty reports whether the filter keeps everything.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// Keep reports whether id passes the filter.
func (f *Filter) Keep(id string) bool {
	if f.Empty() {
		return true
	}
	if len(f.include) > 0 && !matchAny(f.include, id) {
		return false
	}
	return !matchAny(f.exclude, id)
}

func compileAll(patterns []string) ([]Matcher, error) {
	matchers := make([]Matcher, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		m, err := New(Auto, p)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	return matchers, nil
}

func matchAny(matchers []Matcher, input string) bool {
	for _, m := range matchers {
		if m.Match(input) {
			return true
		}
	}
	return false
}
