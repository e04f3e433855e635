package triage

import (
	"sort"

	"sahay/internal/core/langhint"
	"sahay/internal/core/normalize"
)

// Category is the triage outcome bucket
type Category string

const (
	// CategorySelfCare is for minor, non-urgent symptoms
	CategorySelfCare Category = "self_care"
	// CategoryPHC routes the citizen to a primary health center
	CategoryPHC Category = "phc"
	// CategoryEmergency forces immediate escalation; red flags always win
	CategoryEmergency Category = "emergency"
)

// Input describes a triage request
type Input struct {
	SymptomsText string
	Age          int
	Sex          string
	Pregnancy    bool
	Language     string // BCP-47 hint; empty means auto-detect
}

// ClassifierPort is the optional, replaceable summarizer/classifier seam.
// It is consulted only when no red flag fired; its opinion can never
// override a red flag and it never sees a requirement to diagnose.
type ClassifierPort interface {
	Classify(in Input) (Category, bool)
}

// Result is the outcome of Evaluate
type Result struct {
	Category   Category
	RedFlags   []string // canonical flag names, one per matched rule, sorted
	Language   string   // resolved language used for guidance
	Guidance   string
	UsedFlags  bool
	ClassifierUsed bool
}

// Engine runs red-flag detection first, optional classification second, and
// guidance generation last. It owns no state beyond its compiled rule pack
// and guidance templates, so it is safe for concurrent use.
type Engine struct {
	pack       *Pack
	guidance   *GuidanceSet
	classifier ClassifierPort
	normalizer *normalize.Normalizer
}

// New builds an Engine from a compiled rule pack and guidance set.
// classifier may be nil, in which case the default category is PHC.
func New(pack *Pack, guidance *GuidanceSet, classifier ClassifierPort) *Engine {
	return &Engine{
		pack:       pack,
		guidance:   guidance,
		classifier: classifier,
		normalizer: normalize.New(),
	}
}

// Evaluate runs the full pipeline: normalize -> red flags -> (optional)
// classify -> guidance. Red flags are authoritative: any hit forces
// category=emergency regardless of what a classifier would have said.
func (e *Engine) Evaluate(in Input) Result {
	norm := e.normalizer.Normalize(in.SymptomsText)

	matches := e.pack.Scan(norm)
	flags := flagNames(matches)

	res := Result{RedFlags: flags}

	switch {
	case len(flags) > 0:
		res.Category = CategoryEmergency
		res.UsedFlags = true
	case e.classifier != nil:
		if cat, ok := e.classifier.Classify(in); ok {
			res.Category = cat
			res.ClassifierUsed = true
		} else {
			res.Category = CategoryPHC
		}
	default:
		res.Category = CategoryPHC
	}

	res.Language = resolveLanguage(in.Language, in.SymptomsText)
	res.Guidance = e.guidance.Render(res.Category, res.Language)

	return res
}

// flagNames extracts the canonical flag name of each matched rule, sorted
func flagNames(matches []Match) []string {
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Rule.Flag)
	}
	sort.Strings(out) // stable, deterministic wire output
	return out
}

// resolveLanguage trusts an explicit hint; otherwise falls back to a coarse
// script/language detector over the raw symptom text, defaulting to "en"
func resolveLanguage(hint, text string) string {
	if hint != "" {
		return hint
	}
	if _, lang := langhint.DetectScriptAndLang(text); lang != "" {
		return lang
	}
	return "en"
}
