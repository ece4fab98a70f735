package relevance

import (
	"testing"

	"github.com/nao1215/k8crawler/internal/model"
)

// TestEvaluate tests the acceptance rules.
func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  *model.CandidateRecord
		want Rule
	}{
		{
			name: "ages inside the window",
			rec:  &model.CandidateRecord{AgeMin: model.Age(6), AgeMax: model.Age(10)},
			want: RuleAgeWindow,
		},
		{
			name: "window bounds are inclusive",
			rec:  &model.CandidateRecord{AgeMin: model.Age(5), AgeMax: model.Age(14)},
			want: RuleAgeWindow,
		},
		{
			name: "range exceeding the window",
			rec:  &model.CandidateRecord{AgeMin: model.Age(3), AgeMax: model.Age(20)},
			want: RuleRejected,
		},
		{
			name: "inverted range",
			rec:  &model.CandidateRecord{AgeMin: model.Age(12), AgeMax: model.Age(6)},
			want: RuleRejected,
		},
		{
			name: "only one age bound",
			rec:  &model.CandidateRecord{AgeMin: model.Age(6), Name: "Club", Description: "A club"},
			want: RuleRejected,
		},
		{
			name: "grades K to 5",
			rec:  &model.CandidateRecord{GradeMin: "K", GradeMax: "5"},
			want: RuleGradeVocabulary,
		},
		{
			name: "grade outside vocabulary",
			rec:  &model.CandidateRecord{GradeMin: "6", GradeMax: "10"},
			want: RuleRejected,
		},
		{
			name: "ages outside window but grades inside",
			rec: &model.CandidateRecord{
				AgeMin: model.Age(4), AgeMax: model.Age(13), GradeMin: "K", GradeMax: "8",
			},
			want: RuleGradeVocabulary,
		},
		{
			name: "fallback with name and description",
			rec:  &model.CandidateRecord{Name: "Reading Club", Description: "Weekly stories."},
			want: RuleFallback,
		},
		{
			name: "fallback needs a name",
			rec:  &model.CandidateRecord{Description: "Weekly stories."},
			want: RuleRejected,
		},
		{
			name: "fallback needs a description",
			rec:  &model.CandidateRecord{Name: "Reading Club"},
			want: RuleRejected,
		},
		{
			name: "nil record",
			rec:  nil,
			want: RuleRejected,
		},
	}

	f := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := f.Evaluate(tt.rec); got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
			if got := f.Accept(tt.rec); got != (tt.want != RuleRejected) {
				t.Errorf("Accept() = %v", got)
			}
		})
	}
}

// TestCustomWindow tests a configured window.
func TestCustomWindow(t *testing.T) {
	t.Parallel()

	f := New(8, 12)
	if f.Accept(&model.CandidateRecord{AgeMin: model.Age(6), AgeMax: model.Age(10)}) {
		t.Error("ages 6-10 must be rejected by an 8-12 window")
	}
	if !f.Accept(&model.CandidateRecord{AgeMin: model.Age(8), AgeMax: model.Age(12)}) {
		t.Error("ages 8-12 must be accepted by an 8-12 window")
	}
}
