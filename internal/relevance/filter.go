// Package relevance decides whether a candidate record describes a K-8
// resource.
package relevance

import "github.com/nao1215/k8crawler/internal/model"

// Rule names the check that decided a record.
type Rule string

const (
	// RuleAgeWindow accepts records whose age range lies inside the window.
	RuleAgeWindow Rule = "age_window"
	// RuleGradeVocabulary accepts records whose grades are both K-8.
	RuleGradeVocabulary Rule = "grade_vocabulary"
	// RuleFallback accepts records with no age or grade but a name and a
	// description. It trades precision for recall.
	RuleFallback Rule = "fallback"
	// RuleRejected means no rule matched.
	RuleRejected Rule = "rejected"
)

// Default window bounds, inclusive.
const (
	DefaultAgeMin = 5
	DefaultAgeMax = 14
)

// Filter accepts or rejects records. The zero value is not usable; use New.
type Filter struct {
	ageMin int
	ageMax int
}

// New creates a Filter for the inclusive age window [ageMin, ageMax].
func New(ageMin, ageMax int) *Filter {
	return &Filter{ageMin: ageMin, ageMax: ageMax}
}

// Default creates a Filter for ages 5 to 14.
func Default() *Filter {
	return New(DefaultAgeMin, DefaultAgeMax)
}

// Accept reports whether rec passes any rule.
func (f *Filter) Accept(rec *model.CandidateRecord) bool {
	return f.Evaluate(rec) != RuleRejected
}

// Evaluate returns the first rule that accepts rec, or RuleRejected.
//
// A record with age information outside the window can still pass on its
// grades, but never on the fallback rule.
func (f *Filter) Evaluate(rec *model.CandidateRecord) Rule {
	if rec == nil {
		return RuleRejected
	}
	if rec.HasAge() {
		lo, hi := *rec.AgeMin, *rec.AgeMax
		if lo <= hi && lo >= f.ageMin && hi <= f.ageMax {
			return RuleAgeWindow
		}
	}
	if rec.HasGrade() && model.IsGrade(rec.GradeMin) && model.IsGrade(rec.GradeMax) {
		return RuleGradeVocabulary
	}
	if !rec.HasAnyAgeOrGrade() && rec.Name != "" && rec.Description != "" {
		return RuleFallback
	}
	return RuleRejected
}
