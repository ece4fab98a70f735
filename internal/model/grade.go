package model

import (
	"strconv"
	"strings"
)

// GradeVocabulary is the fixed set of K-8 grade markers, lowest first.
var GradeVocabulary = []string{"K", "1", "2", "3", "4", "5", "6", "7", "8"}

// kindergartenAge is the approximate age of a kindergarten student.
const kindergartenAge = 5

// IsGrade reports whether g is in GradeVocabulary.
func IsGrade(g string) bool {
	for _, v := range GradeVocabulary {
		if g == v {
			return true
		}
	}
	return false
}

// NormalizeGrade upper-cases a "k" marker and trims whitespace.
func NormalizeGrade(g string) string {
	g = strings.TrimSpace(g)
	if strings.EqualFold(g, "k") {
		return "K"
	}
	return g
}

// GradeToAge converts a grade marker to an approximate age.
// K maps to 5 and grade n maps to n+5.
func GradeToAge(grade string) (int, bool) {
	grade = NormalizeGrade(grade)
	if grade == "K" {
		return kindergartenAge, true
	}
	n, err := strconv.Atoi(grade)
	if err != nil || n < 0 {
		return 0, false
	}
	return n + kindergartenAge, true
}

// AgeToGrade converts an age to an approximate grade marker.
// The result can fall outside GradeVocabulary for ages outside K-8.
func AgeToGrade(age int) string {
	if age == kindergartenAge {
		return "K"
	}
	return strconv.Itoa(age - kindergartenAge)
}
