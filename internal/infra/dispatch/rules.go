package dispatch

import (
	"regexp"
	"strings"

	"opsd/internal/domain"
)

// Rule is one entry in the ordered command-classification list. Match gates
// the rule, Extract pulls tool arguments out of the text. An extractor that
// finds nothing means "no argument supplied", not an error.
type Rule struct {
	Name    string
	Tool    string
	Match   func(text string) bool
	Extract func(text string) domain.ToolArgs
}

var (
	runIDPattern     = regexp.MustCompile(`(?i)\brun\s+([0-9a-z][0-9a-z-]{3,})`)
	namespacePattern = regexp.MustCompile(`(?i)\b(?:namespace|ns)[\s:]+([A-Za-z0-9._-]+)`)
	limitPattern     = regexp.MustCompile(`(?i)\b(?:last|limit)\s+(\d+)`)
)

func containsAny(text string, words ...string) bool {
	lower := strings.ToLower(text)
	for _, word := range words {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func extractMatch(pattern *regexp.Regexp, key, text string) domain.ToolArgs {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	return domain.ToolArgs{key: match[1]}
}

// DefaultRules is the precedence-ordered classifier for operator commands.
// Order is load-bearing: "open run" must win over the generic run listing,
// and the run listing over the flow listing.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "open-run",
			Tool: ToolOpenRun,
			Match: func(text string) bool {
				return containsAny(text, "open", "show", "inspect") && runIDPattern.MatchString(text)
			},
			Extract: func(text string) domain.ToolArgs {
				return extractMatch(runIDPattern, "runId", text)
			},
		},
		{
			Name: "lineage",
			Tool: ToolLineage,
			Match: func(text string) bool {
				return containsAny(text, "lineage", "marquez", "provenance")
			},
			Extract: func(text string) domain.ToolArgs {
				return extractMatch(namespacePattern, "namespace", text)
			},
		},
		{
			Name: "flow-runs",
			Tool: ToolListFlowRuns,
			Match: func(text string) bool {
				return containsAny(text, "runs", "failures", "recent")
			},
			Extract: func(text string) domain.ToolArgs {
				return extractMatch(limitPattern, "limit", text)
			},
		},
		{
			Name: "flows",
			Tool: ToolListFlows,
			Match: func(text string) bool {
				return containsAny(text, "flows", "pipelines")
			},
		},
	}
}
