package model

import (
	"testing"
	"time"
)

func TestCandidateRecordFill(t *testing.T) {
	t.Parallel()

	r := CandidateRecord{Name: "Homework Club", AgeMin: Age(6), Duration: "10 weeks"}
	r.Fill(CandidateRecord{
		Name:            "Other",
		Description:     "After-school help",
		AgeMin:          Age(8),
		AgeMax:          Age(11),
		Category:        CategoryTutoring,
		Tags:            []string{"homework"},
		Contact:         Contact{Phone: "555-123-4567"},
		Schedule:        "mondays, 3-5 pm",
		Duration:        "6 weeks",
		IdentitySupport: []string{"bilingual"},
	})

	if r.Name != "Homework Club" {
		t.Errorf("Name = %q, earlier value should win", r.Name)
	}
	if r.Description != "After-school help" {
		t.Errorf("Description = %q", r.Description)
	}
	if *r.AgeMin != 6 || *r.AgeMax != 11 {
		t.Errorf("ages = %d-%d, want 6-11", *r.AgeMin, *r.AgeMax)
	}
	if r.Category != CategoryTutoring || r.Contact.Phone != "555-123-4567" {
		t.Errorf("category/phone not filled: %+v", r)
	}
	if len(r.Tags) != 1 {
		t.Errorf("Tags = %v", r.Tags)
	}
	if r.Schedule != "mondays, 3-5 pm" || r.Duration != "10 weeks" {
		t.Errorf("schedule/duration = %q/%q, want filled schedule and kept duration", r.Schedule, r.Duration)
	}
	if len(r.IdentitySupport) != 1 || r.IdentitySupport[0] != "bilingual" {
		t.Errorf("IdentitySupport = %v", r.IdentitySupport)
	}
}

func TestCandidateRecordAgeAndGrade(t *testing.T) {
	t.Parallel()

	var r CandidateRecord
	if r.HasAge() || r.HasGrade() || r.HasAnyAgeOrGrade() {
		t.Error("empty record should have no age or grade")
	}
	r.GradeMin = "K"
	if r.HasGrade() || !r.HasAnyAgeOrGrade() {
		t.Error("half grade range should count as some grade info only")
	}
	r.GradeMax = "5"
	if !r.HasGrade() {
		t.Error("expected full grade range")
	}
}

func TestGradeConversion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		grade string
		age   int
	}{
		{"K", 5}, {"k", 5}, {"1", 6}, {"5", 10}, {"8", 13},
	}
	for _, tt := range tests {
		got, ok := GradeToAge(tt.grade)
		if !ok || got != tt.age {
			t.Errorf("GradeToAge(%q) = %d, %v; want %d", tt.grade, got, ok, tt.age)
		}
	}
	if _, ok := GradeToAge("senior"); ok {
		t.Error("GradeToAge(senior) should fail")
	}
	if got := AgeToGrade(5); got != "K" {
		t.Errorf("AgeToGrade(5) = %q, want K", got)
	}
	if got := AgeToGrade(9); got != "4" {
		t.Errorf("AgeToGrade(9) = %q, want 4", got)
	}
	if !IsGrade("K") || IsGrade("9") || IsGrade("k") {
		t.Error("IsGrade mismatch")
	}
}

func TestFingerprints(t *testing.T) {
	t.Parallel()

	a := RecordFingerprint("https://example.org/", ContentHash([]byte("body")))
	b := RecordFingerprint("https://example.org/", ContentHash([]byte("body")))
	c := RecordFingerprint("https://example.org/", ContentHash([]byte("changed")))
	if a != b {
		t.Error("same input must give same fingerprint")
	}
	if a == c {
		t.Error("different content must give different fingerprint")
	}
	if len(a) != 64 || len(a.Short()) != 12 {
		t.Errorf("unexpected fingerprint length %d", len(a))
	}
	if PageFingerprint("https://example.org/") == a {
		t.Error("page and record fingerprints should differ")
	}
}

func TestFetchResult(t *testing.T) {
	t.Parallel()

	r := FetchResult{StatusCode: 200, ContentType: "text/html; charset=utf-8", FetchedAt: time.Now()}
	if !r.OK() || !r.IsHTML() || r.IsFeed() {
		t.Errorf("unexpected classification for %+v", r)
	}
	feed := FetchResult{StatusCode: 200, ContentType: "application/rss+xml"}
	if !feed.IsFeed() || feed.IsHTML() {
		t.Error("rss content should be a feed")
	}
	notFound := FetchResult{StatusCode: 404, ContentType: "text/html"}
	if notFound.OK() {
		t.Error("404 should not be OK")
	}
}
