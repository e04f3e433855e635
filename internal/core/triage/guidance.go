package triage

import "strings"

// safetyPhrase must appear, in spirit, in every guidance text the engine
// emits. We use the English phrase as the canonical anchor and translate it
// per language in the template table below
const safetyPhraseEN = "this is guidance, not a diagnosis"

// safetyPhrases lists the accepted renderings of the safety phrase, one per
// template language
var safetyPhrases = []string{
	safetyPhraseEN,
	"यह मार्गदर्शन है, निदान नहीं",
}

// forbiddenTerms are diagnosis-shaped phrases that must never reach a
// citizen. The check is substring, case-insensitive, against the rendered
// guidance text (not the input) — templates are authored by us, but a
// future templated/LLM-backed renderer could slip one in, so the guard
// stays regardless of how guidance is produced.
var forbiddenTerms = []string{
	"you have ",
	"diagnosis of",
	"diagnosed with",
	"you are suffering from",
	"this confirms",
	"the condition is",
}

// GuidanceSet resolves (category, language) to a guidance text, always
// safety-checked against forbiddenTerms before being returned
type GuidanceSet struct {
	templates map[string]map[Category]string // language -> category -> text
	fallback  map[Category]string
}

// NewGuidanceSet builds the default, built-in guidance templates. These are
// intentionally generic ("safe language") templates; richer per-language
// copy can be layered on by a future config-driven loader without changing
// the Render contract.
func NewGuidanceSet() *GuidanceSet {
	gs := &GuidanceSet{
		templates: map[string]map[Category]string{
			"en": {
				CategorySelfCare: "Your symptoms can usually be managed at home with rest and fluids. " +
					"Please watch for worsening symptoms. " + capitalize(safetyPhraseEN) + ".",
				CategoryPHC: "Please visit your nearest primary health center for an in-person check. " +
					capitalize(safetyPhraseEN) + ".",
				CategoryEmergency: "Your symptoms may be serious. Please go to the nearest emergency " +
					"facility or call emergency services right away. " + capitalize(safetyPhraseEN) + ".",
			},
			"hi": {
				CategorySelfCare: "आपके लक्षणों को आमतौर पर आराम और पर्याप्त तरल पदार्थ लेकर घर पर संभाला जा सकता है। " +
					"लक्षण बिगड़ने पर ध्यान दें। यह मार्गदर्शन है, निदान नहीं।",
				CategoryPHC: "कृपया जांच के लिए अपने नज़दीकी प्राथमिक स्वास्थ्य केंद्र जाएं। यह मार्गदर्शन है, निदान नहीं।",
				CategoryEmergency: "आपके लक्षण गंभीर हो सकते हैं। कृपया तुरंत नज़दीकी आपातकालीन सुविधा पर जाएं " +
					"या आपातकालीन सेवाओं को कॉल करें। यह मार्गदर्शन है, निदान नहीं।",
			},
		},
		fallback: map[Category]string{
			CategorySelfCare:  "Please rest, stay hydrated, and monitor your symptoms. " + capitalize(safetyPhraseEN) + ".",
			CategoryPHC:       "Please get checked at a primary health center. " + capitalize(safetyPhraseEN) + ".",
			CategoryEmergency: "Please seek emergency care immediately. " + capitalize(safetyPhraseEN) + ".",
		},
	}
	return gs
}

// Render returns the guidance text for (category, language), falling back to
// a safe generic template if the language is unknown or the resolved text
// fails the forbidden-term check
func (gs *GuidanceSet) Render(cat Category, language string) string {
	if byLang, ok := gs.templates[language]; ok {
		if text, ok := byLang[cat]; ok && passesSafetyCheck(text) {
			return text
		}
	}
	if text, ok := gs.fallback[cat]; ok && passesSafetyCheck(text) {
		return text
	}
	// last-resort: category itself is unrecognized/templates corrupted
	return capitalize(safetyPhraseEN) + ". Please consult a health worker for guidance."
}

// passesSafetyCheck reports whether text contains no forbidden diagnosis
// language and does carry the safety phrase
func passesSafetyCheck(text string) bool {
	lower := strings.ToLower(text)
	hasPhrase := false
	for _, phrase := range safetyPhrases {
		if strings.Contains(lower, phrase) {
			hasPhrase = true
			break
		}
	}
	if !hasPhrase {
		return false
	}
	for _, term := range forbiddenTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
