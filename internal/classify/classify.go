// Package classify decides which model role serves a request without
// invoking any model.
//
// The policy is deterministic and checked in order:
//  1. an attached image always selects the vision role, regardless of text
//  2. text matching a code-indicating signal selects the coding role
//  3. everything else is general
package classify

import (
	"regexp"
	"strings"

	"modelvault/pkg/types"
)

// codeFence matches markdown code fences and inline backtick spans that
// contain more than trivial content.
var codeFence = regexp.MustCompile("(?s)```|~~~\\w")

// codePatterns are structural signals that the text is about source code.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(func|def|class|struct|interface)\s+\w+\s*[({:]`),
	regexp.MustCompile(`(?m)^\s*(import|from|package)\s+[\w."]+|#include\s*<`),
	regexp.MustCompile(`(?i)\bselect\s+.+\s+from\s+\w+`),
	regexp.MustCompile(`(?i)(stack trace|traceback|segfault|panic:|nullpointerexception)`),
	regexp.MustCompile(`\w+\(\)|\w+\.\w+\(`),
}

// defaultKeywords are word-level signals checked after the structural
// patterns. Matching is whole-word, case-insensitive.
var defaultKeywords = []string{
	"code", "function", "bug", "compile", "debug", "refactor",
	"regex", "unit test", "syntax error", "algorithm",
	"python", "golang", "javascript", "typescript", "rust", "sql",
}

// Classifier inspects requests and assigns a model role. It is pure: no I/O,
// no failure modes.
type Classifier struct {
	keywords []string
}

// New builds a Classifier. Extra keywords extend the built-in code signals.
func New(extraKeywords ...string) *Classifier {
	kw := make([]string, 0, len(defaultKeywords)+len(extraKeywords))
	kw = append(kw, defaultKeywords...)
	for _, k := range extraKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	return &Classifier{keywords: kw}
}

// Classify returns the role for req. Image presence dominates text content;
// the ordering is fixed so routing stays reproducible.
func (c *Classifier) Classify(req types.GenerateRequest) types.Role {
	if len(req.Image) > 0 {
		return types.RoleVision
	}
	if c.isCodeText(req.Text) {
		return types.RoleCoding
	}
	return types.RoleGeneral
}

func (c *Classifier) isCodeText(text string) bool {
	if text == "" {
		return false
	}
	if codeFence.MatchString(text) {
		return true
	}
	for _, p := range codePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if containsWord(lower, kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether s contains kw bounded by non-word characters.
func containsWord(s, kw string) bool {
	for idx := 0; ; {
		i := strings.Index(s[idx:], kw)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(s[i-1])
		after := i+len(kw) == len(s) || !isWordByte(s[i+len(kw)])
		if before && after {
			return true
		}
		idx = i + len(kw)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
