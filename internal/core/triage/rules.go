// Package triage implements the rule-first red-flag engine and safe-language
// guidance generator. Detection never depends on a classifier: red-flag
// phrases force category=emergency regardless of any model output.
package triage

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

//go:embed red_flags.json
var embeddedRedFlags []byte

type rawRule struct {
	ID         string   `json:"id"`
	Flag       string   `json:"flag"`
	Severity   int      `json:"severity"`
	Substrings []string `json:"substrings"`
	Patterns   []string `json:"patterns"`
}

type rawPack struct {
	Version int       `json:"version"`
	Rules   []rawRule `json:"rules"`
}

// Rule is a single compiled red-flag rule: a canonical flag name backed by
// one or more case-insensitive substrings and/or a compiled regex
type Rule struct {
	ID       string
	Flag     string
	Severity int
	Compiled []*regexp.Regexp
}

// Pack is the compiled set of red-flag rules used by the Engine
type Pack struct {
	Rules      []Rule
	automaton  *acAutomaton
	substrByID map[int]Rule // automaton output id -> owning rule
}

// LoadEmbedded returns the compiled pack from the embedded red_flags.json
func LoadEmbedded() (*Pack, error) { return Load(embeddedRedFlags) }

// Load compiles a rule pack from raw JSON bytes, matching the on-disk schema
// documented in red_flags.json. Callers that want operator-editable rule
// packs can read bytes from disk/config and pass them here instead.
func Load(raw []byte) (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil, fmt.Errorf("triage: parse rule pack: %w", err)
	}

	p := &Pack{
		automaton:  newAutomaton(),
		substrByID: map[int]Rule{},
	}

	nextSubstrID := 0
	for _, rr := range rp.Rules {
		if rr.ID == "" || rr.Flag == "" {
			return nil, fmt.Errorf("triage: rule missing id/flag")
		}
		rule := Rule{ID: rr.ID, Flag: rr.Flag, Severity: rr.Severity}

		for _, pat := range rr.Patterns {
			re, err := regexp.Compile("(?i)" + pat)
			if err != nil {
				return nil, fmt.Errorf("triage: rule %s: compile pattern %q: %w", rr.ID, pat, err)
			}
			rule.Compiled = append(rule.Compiled, re)
		}

		for _, sub := range rr.Substrings {
			norm := strings.ToLower(strings.TrimSpace(sub))
			if norm == "" {
				continue
			}
			p.automaton.addPattern([]byte(norm), nextSubstrID)
			p.substrByID[nextSubstrID] = rule
			nextSubstrID++
		}

		p.Rules = append(p.Rules, rule)
	}

	p.automaton.build()
	return p, nil
}

// Match is a single red-flag hit found in a text scan
type Match struct {
	Rule Rule
}

// Scan returns every distinct rule that matched somewhere in normalized text.
// A rule matches via either an Aho-Corasick substring hit or a compiled
// regex hit; either is sufficient. The result is de-duplicated by rule ID:
// rules hit by a substring come first, in the order their phrases end in the
// text, followed by rules hit only by a regex, in pack definition order.
func (p *Pack) Scan(normalized string) []Match {
	if p == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []Match

	lower := []byte(strings.ToLower(normalized))
	p.automaton.findAll(lower, func(_ int, id int) bool {
		rule, ok := p.substrByID[id]
		if ok && !seen[rule.ID] {
			seen[rule.ID] = true
			out = append(out, Match{Rule: rule})
		}
		return true
	})

	for _, rule := range p.Rules {
		if seen[rule.ID] {
			continue
		}
		for _, re := range rule.Compiled {
			if re.MatchString(normalized) {
				seen[rule.ID] = true
				out = append(out, Match{Rule: rule})
				break
			}
		}
	}

	return out
}
