package extract

import (
	"regexp"

	"github.com/nao1215/k8crawler/internal/model"
)

// keywordRule maps a keyword pattern to a label. Rules are evaluated in
// slice order and the first match wins.
type keywordRule[T ~string] struct {
	label T
	re    *regexp.Regexp
}

// words builds a case-insensitive pattern matching any alternative as a
// whole word prefix, e.g. words(`tutor\w*`, `homework`).
func words(alternatives ...string) *regexp.Regexp {
	pattern := `(?i)\b(?:`
	for i, alt := range alternatives {
		if i > 0 {
			pattern += "|"
		}
		pattern += alt
	}
	return regexp.MustCompile(pattern + `)\b`)
}

// firstMatch returns the label of the first rule matching text and the
// matched keyword.
func firstMatch[T ~string](rules []keywordRule[T], text string) (T, string, bool) {
	for _, r := range rules {
		if m := r.re.FindString(text); m != "" {
			return r.label, m, true
		}
	}
	var zero T
	return zero, "", false
}

// allMatches returns the labels of every rule matching text, in rule order.
func allMatches[T ~string](rules []keywordRule[T], text string) []T {
	var labels []T
	for _, r := range rules {
		if r.re.MatchString(text) {
			labels = append(labels, r.label)
		}
	}
	return labels
}

// categoryRules are ordered by precedence: tutoring > cultural >
// mentorship > library > community > enrichment. Pages matching none
// default to community.
var categoryRules = []keywordRule[model.Category]{
	{model.CategoryTutoring, words(`tutor\w*`, `academic\w*`, `homework`)},
	{model.CategoryCultural, words(`cultur(?:al|e)`, `heritage`, `ethnic\w*`)},
	{model.CategoryMentorship, words(`mentor\w*`, `leadership`, `role models?`)},
	{model.CategoryLibrary, words(`librar(?:y|ies)`, `reading`, `books?`)},
	{model.CategoryCommunity, words(`community`, `recreation`, `parks?`, `youth cent(?:er|re)s?`)},
	{model.CategoryEnrichment, words(`enrichment`, `stem`, `steam`, `science`, `coding`, `robotics`, `music`, `arts?`, `dance`, `chess`)},
}

// costRules are ordered by precedence: free > low_cost > high > moderate.
// Pages matching none have an unknown cost.
var costRules = []keywordRule[model.CostRange]{
	{model.CostFree, words(`free`, `no cost`, `no charge`, `complimentary`, `free of charge`)},
	{model.CostLow, words(`low[- ]cost`, `affordable`, `sliding[- ]scale`, `reduced (?:fee|price)s?`, `scholarships?`)},
	{model.CostHigh, words(`expensive`, `premium`, `high[- ]cost`)},
	{model.CostModerate, regexp.MustCompile(`(?i)\$\s?\d|\b(?:fees?|tuition|per (?:session|month|week|class))\b`)},
}

// programTypeRules are ordered from most to least specific. Pages matching
// none are activities.
var programTypeRules = []keywordRule[model.ProgramType]{
	{model.ProgramTutoring, words(`tutor\w*`, `homework help`)},
	{model.ProgramMentorship, words(`mentor\w*`)},
	{model.ProgramCamp, words(`camps?`)},
	{model.ProgramWorkshop, words(`workshops?`)},
	{model.ProgramClass, words(`class(?:es)?`, `courses?`, `lessons?`)},
}

// culturalRules detect a specific cultural focus. Pages matching none have
// a general focus.
var culturalRules = []keywordRule[model.CulturalFocus]{
	{model.CulturalBlackHistory, words(`black history`, `african[- ]american`, `juneteenth`)},
	{model.CulturalHispanic, words(`hispanic`, `latin[oaxe]`, `latinx`, `bilingual spanish`)},
	{model.CulturalAsian, words(`asian(?:[- ]american)?`, `aapi`, `lunar new year`)},
	{model.CulturalIndigenous, words(`indigenous`, `native american`, `first nations`, `tribal`)},
}

// identitySupportRules detect programs that support a part of a child's
// identity. Every matching label is kept.
var identitySupportRules = []keywordRule[string]{
	{"racial_identity", words(`racial identity`, `students of color`, `black (?:boys|girls|youth)`, `kids of color`)},
	{"cultural_pride", words(`cultural pride`, `heritage pride`, `culturally (?:responsive|relevant)`)},
	{"leadership", words(`leadership`, `youth leaders?`)},
	{"girls_empowerment", words(`girls who`, `girls in stem`, `girls? empowerment`)},
	{"lgbtq", words(`lgbtq\+?`, `queer`, `gender[- ]diverse`)},
	{"bilingual", words(`bilingual`, `dual[- ]language`, `english learners?`)},
	{"special_needs", words(`special needs`, `disabilit(?:y|ies)`, `sensory[- ]friendly`, `autis(?:m|tic)`)},
	{"newcomer", words(`immigrants?`, `refugees?`, `newcomers?`)},
}

// availabilityRules detect when a program runs. Pages matching none are
// ongoing.
var availabilityRules = []keywordRule[string]{
	{"year_round", words(`year[- ]round`)},
	{"after_school", words(`after[- ]school`)},
	{"summer", words(`summer`)},
	{"weekends", words(`weekends?`, `saturdays?`, `sundays?`)},
}

// Default labels for pages matching no rule.
const (
	defaultAvailability = "ongoing"
)
