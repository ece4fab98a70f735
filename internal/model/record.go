package model

import (
	"slices"
	"time"
)

// Category is the main classification of a resource.
type Category string

// Resource categories.
const (
	CategoryTutoring   Category = "tutoring"
	CategoryCultural   Category = "cultural"
	CategoryMentorship Category = "mentorship"
	CategoryLibrary    Category = "library"
	CategoryCommunity  Category = "community"
	CategoryEnrichment Category = "enrichment"
)

// Categories lists every category in classification precedence order.
var Categories = []Category{
	CategoryTutoring,
	CategoryCultural,
	CategoryMentorship,
	CategoryLibrary,
	CategoryCommunity,
	CategoryEnrichment,
}

// CostRange describes how expensive a resource is.
type CostRange string

// Cost ranges.
const (
	CostFree     CostRange = "free"
	CostLow      CostRange = "low_cost"
	CostModerate CostRange = "moderate"
	CostHigh     CostRange = "high"
	CostUnknown  CostRange = "unknown"
)

// ProgramType describes the format of a program.
type ProgramType string

// Program types.
const (
	ProgramTutoring   ProgramType = "tutoring"
	ProgramMentorship ProgramType = "mentorship"
	ProgramClass      ProgramType = "class"
	ProgramWorkshop   ProgramType = "workshop"
	ProgramCamp       ProgramType = "camp"
	ProgramActivity   ProgramType = "activity"
)

// CulturalFocus describes the cultural or identity emphasis of a program.
type CulturalFocus string

// Cultural focus values.
const (
	CulturalBlackHistory CulturalFocus = "black_history"
	CulturalHispanic     CulturalFocus = "hispanic"
	CulturalAsian        CulturalFocus = "asian"
	CulturalIndigenous   CulturalFocus = "indigenous"
	CulturalGeneral      CulturalFocus = "general"
)

// Location is where a resource takes place.
type Location struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

// IsZero reports whether no location field is known.
func (l Location) IsZero() bool {
	return l == Location{}
}

// Contact holds the ways to reach a resource.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// CandidateRecord is a structured resource extracted from one fetched page.
//
// Unknown fields keep their zero value: empty strings, nil ages and empty
// enumerations. A record produced by the extractor pipeline must not be
// modified afterwards.
type CandidateRecord struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    Category `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	AgeMin   *int   `json:"age_min,omitempty"`
	AgeMax   *int   `json:"age_max,omitempty"`
	GradeMin string `json:"grade_min,omitempty"`
	GradeMax string `json:"grade_max,omitempty"`

	Location Location `json:"location,omitzero"`
	Contact  Contact  `json:"contact,omitzero"`

	CostRange    CostRange     `json:"cost_range,omitempty"`
	CostDetails  string        `json:"cost_details,omitempty"`
	Availability string        `json:"availability,omitempty"`
	ProgramType  ProgramType   `json:"program_type,omitempty"`
	Schedule     string        `json:"schedule,omitempty"`
	Duration     string        `json:"duration,omitempty"`

	Cultural        CulturalFocus `json:"cultural_focus,omitempty"`
	IdentitySupport []string      `json:"identity_support,omitempty"`

	SourceURL  string    `json:"source_url"`
	SourceSite string    `json:"source_site,omitempty"`
	ScrapedAt  time.Time `json:"scraped_at"`

	// Fingerprint identifies the record for deduplication and idempotent writes.
	Fingerprint Fingerprint `json:"fingerprint"`
}

// HasAge reports whether both age bounds are known.
func (r *CandidateRecord) HasAge() bool {
	return r.AgeMin != nil && r.AgeMax != nil
}

// HasGrade reports whether both grade bounds are known.
func (r *CandidateRecord) HasGrade() bool {
	return r.GradeMin != "" && r.GradeMax != ""
}

// HasAnyAgeOrGrade reports whether any age or grade marker is present.
func (r *CandidateRecord) HasAnyAgeOrGrade() bool {
	return r.AgeMin != nil || r.AgeMax != nil || r.GradeMin != "" || r.GradeMax != ""
}

// Fill copies every field of partial that is still unknown in r.
// Fields already set in r are kept, so earlier extractors win.
func (r *CandidateRecord) Fill(partial CandidateRecord) {
	fillString(&r.Name, partial.Name)
	fillString(&r.Description, partial.Description)
	if r.Category == "" {
		r.Category = partial.Category
	}
	fillString(&r.Subcategory, partial.Subcategory)
	if len(r.Tags) == 0 && len(partial.Tags) > 0 {
		r.Tags = slices.Clone(partial.Tags)
	}

	if r.AgeMin == nil && partial.AgeMin != nil {
		r.AgeMin = Age(*partial.AgeMin)
	}
	if r.AgeMax == nil && partial.AgeMax != nil {
		r.AgeMax = Age(*partial.AgeMax)
	}
	fillString(&r.GradeMin, partial.GradeMin)
	fillString(&r.GradeMax, partial.GradeMax)

	fillString(&r.Location.Name, partial.Location.Name)
	fillString(&r.Location.Address, partial.Location.Address)
	fillString(&r.Location.City, partial.Location.City)
	fillString(&r.Location.State, partial.Location.State)
	fillString(&r.Location.Zip, partial.Location.Zip)

	fillString(&r.Contact.Phone, partial.Contact.Phone)
	fillString(&r.Contact.Email, partial.Contact.Email)
	fillString(&r.Contact.Website, partial.Contact.Website)

	if r.CostRange == "" {
		r.CostRange = partial.CostRange
	}
	fillString(&r.CostDetails, partial.CostDetails)
	fillString(&r.Availability, partial.Availability)
	if r.ProgramType == "" {
		r.ProgramType = partial.ProgramType
	}
	fillString(&r.Schedule, partial.Schedule)
	fillString(&r.Duration, partial.Duration)
	if r.Cultural == "" {
		r.Cultural = partial.Cultural
	}
	if len(r.IdentitySupport) == 0 && len(partial.IdentitySupport) > 0 {
		r.IdentitySupport = slices.Clone(partial.IdentitySupport)
	}
}

func fillString(dst *string, src string) {
	if *dst == "" && src != "" {
		*dst = src
	}
}

// Age returns a pointer to an age value.
func Age(v int) *int {
	return &v
}
