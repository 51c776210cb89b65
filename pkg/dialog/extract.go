package dialog

import (
	"regexp"
	"sort"
	"strings"
)

// Each field has an ordered table of introductory phrases evaluated
// top-down. Tables are sorted longest-first at init so that a more
// specific phrase ("representing") can never be shadowed by a shorter
// prefix of it ("represent").
type phraseTable struct {
	phrases          []string
	stripDeterminers bool
	filter           *regexp.Regexp
}

var (
	// Letters, spaces and hyphens only; names never need digits.
	nameFilter = regexp.MustCompile(`[^A-Za-z\s\-]`)

	// Companies and interests may legitimately carry digits.
	alnumFilter = regexp.MustCompile(`[^A-Za-z0-9\s\-]`)

	determinerPrefix = regexp.MustCompile(`^(?i)(the|at|from)\s+`)

	budgetToken  = regexp.MustCompile(`\$?\d+`)
	budgetFilter = regexp.MustCompile(`[^$0-9]`)
)

var nameTable = newPhraseTable(nameFilter, false,
	"my name is", "i am", "i'm", "this is",
	"mi nombre es", "mein name ist", "mijn naam is", "je m'appelle",
)

var companyTable = newPhraseTable(alnumFilter, true,
	"i work at", "i work for", "i am from", "i'm from",
	"my company is", "company name is", "i represent", "representing",
	"represent", "we are",
)

var interestTable = newPhraseTable(alnumFilter, false,
	"i am interested in", "i'm interested in", "interested in",
	"my interest is", "i want", "i would like", "i need",
)

func newPhraseTable(filter *regexp.Regexp, stripDeterminers bool, phrases ...string) phraseTable {
	sort.SliceStable(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	return phraseTable{phrases: phrases, stripDeterminers: stripDeterminers, filter: filter}
}

// extract applies the table: trim, strip trailing sentence punctuation,
// match the first (longest) introductory phrase case-insensitively, drop
// leading determiners where the table asks for it, then pass the result
// through the field's character whitelist. With no phrase match the
// whitelist-filtered original text is the fallback. Never fails: empty or
// fully-symbolic input yields an empty string.
func (t phraseTable) extract(text string) string {
	text = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text), ".!?"))
	lowered := strings.ToLower(text)

	for _, phrase := range t.phrases {
		if !strings.HasPrefix(lowered, phrase) {
			continue
		}
		value := strings.TrimSpace(text[len(phrase):])
		if t.stripDeterminers {
			value = determinerPrefix.ReplaceAllString(value, "")
		}
		return strings.TrimSpace(t.filter.ReplaceAllString(value, ""))
	}

	return strings.TrimSpace(t.filter.ReplaceAllString(text, ""))
}

// ExtractName pulls a person's name out of a transcribed sentence.
func ExtractName(text string) string { return nameTable.extract(text) }

// ExtractCompany pulls a company name out of a transcribed sentence.
func ExtractCompany(text string) string { return companyTable.extract(text) }

// ExtractInterest pulls the service of interest out of a transcribed sentence.
func ExtractInterest(text string) string { return interestTable.extract(text) }

// ExtractBudget finds the first numeric token, with an optional leading
// currency symbol, after removing thousands-separator commas. Budgets
// appear mid-sentence ("around $50,000 or so"), so a prefix table does
// not work here.
func ExtractBudget(text string) string {
	text = strings.ReplaceAll(text, ",", "")
	if m := budgetToken.FindString(text); m != "" {
		return m
	}
	return strings.TrimSpace(budgetFilter.ReplaceAllString(text, ""))
}

// ExtractForState runs the extractor matching the interview step that is
// waiting for input. States that ignore input return the text unchanged.
func ExtractForState(state State, text string) string {
	switch state {
	case StateAskName:
		return ExtractName(text)
	case StateAskCompany:
		return ExtractCompany(text)
	case StateAskBudget:
		return ExtractBudget(text)
	case StateAskInterest:
		return ExtractInterest(text)
	default:
		return text
	}
}
