package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/k8crawler/internal/model"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 1000
	minDescriptionLen = 20
)

var (
	nameSelectors        = []string{"h1", ".title", ".program-name", "h2", "title"}
	descriptionSelectors = []string{".description", ".program-description", ".content p", "p"}

	agePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bages?\s*(\d{1,2})\s*(?:-|–|to|through)\s*(\d{1,2})`),
		regexp.MustCompile(`\b(\d{1,2})\s*(?:-|–|to)\s*(\d{1,2})\s*(?:years?|yrs?)[\s-]*old`),
	}
	gradePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bgrades?\s*([k1-8])(?:st|nd|rd|th)?\s*(?:-|–|to|through)\s*([1-8])(?:st|nd|rd|th)?\b`),
		regexp.MustCompile(`\b([k1-8])(?:st|nd|rd|th)?\s*(?:-|–|to|through)\s*([1-8])(?:st|nd|rd|th)?\s*grades?\b`),
	}

	phonePattern = regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	pricePattern = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d{2})?(?:\s*(?:/|per)\s*[a-z]+)?`)
	cityStateZip = regexp.MustCompile(`\b([A-Z][A-Za-z.' -]{1,40}),\s*([A-Z]{2})\s+(\d{5}(?:-\d{4})?)\b`)
	streetLine   = regexp.MustCompile(`\b\d{1,6}\s+(?:[A-Z0-9][A-Za-z0-9.'-]*\s+){1,5}(?:St|Street|Ave|Avenue|Rd|Road|Blvd|Boulevard|Dr|Drive|Ln|Lane|Way|Ct|Court|Pl|Place|Pkwy|Parkway)\b\.?`)

	// "tuesdays and thursdays, 3:30-5 pm", "saturday at 10am"
	schedulePattern = regexp.MustCompile(`\b` + weekday + `(?:\s*(?:-|–|to|through|and|&|,)\s*` + weekday + `)*` +
		`(?:\s*,?\s*(?:from|at)?\s*(?:` + clock + `?\s*(?:-|–|to)\s*` + clock + `|` + clock + `))?`)

	// "8-week", "six weeks", "10 sessions"
	durationPattern = regexp.MustCompile(`\b(?:\d{1,3}|one|two|three|four|five|six|seven|eight|nine|ten|twelve)[\s-]+(?:weeks?|months?|sessions?|classes|hours?|minutes?)\b`)
)

const (
	weekday = `(?:mon|tues|wednes|thurs|fri|satur|sun)days?\b`
	clock   = `\d{1,2}(?::\d{2})?\s*(?:am|pm|a\.m\.|p\.m\.)`
)

// DefaultExtractors returns the built-in field extractors in run order.
func DefaultExtractors() []FieldExtractor {
	return []FieldExtractor{
		Func("name", extractName),
		Func("description", extractDescription),
		Func("category", extractCategory),
		Func("age", extractAge),
		Func("cost", extractCost),
		Func("contact", extractContact),
		Func("location", extractLocation),
		Func("program_type", extractProgramType),
		Func("cultural_focus", extractCulturalFocus),
		Func("availability", extractAvailability),
		Func("schedule", extractSchedule),
		Func("identity_support", extractIdentitySupport),
		Func("tags", extractTags),
	}
}

func extractName(doc *Document) (model.CandidateRecord, error) {
	name := doc.First(nameSelectors, nil)
	if name == "" {
		name = doc.Meta("og:title")
	}
	return model.CandidateRecord{Name: truncate(name, maxNameLen)}, nil
}

func extractDescription(doc *Document) (model.CandidateRecord, error) {
	desc := doc.First(descriptionSelectors, func(s string) bool {
		return len(s) > minDescriptionLen
	})
	if desc == "" {
		desc = doc.Meta("description", "og:description")
	}
	return model.CandidateRecord{Description: truncate(desc, maxDescriptionLen)}, nil
}

// categoryText is the text categories are matched against: the visible text
// plus the page URL, whose host often names the kind of site.
func categoryText(doc *Document) string {
	return doc.URL + " " + doc.LowerText()
}

func extractCategory(doc *Document) (model.CandidateRecord, error) {
	category, keyword, ok := firstMatch(categoryRules, categoryText(doc))
	if !ok {
		return model.CandidateRecord{Category: model.CategoryCommunity}, nil
	}
	return model.CandidateRecord{Category: category, Subcategory: strings.ToLower(keyword)}, nil
}

func extractAge(doc *Document) (model.CandidateRecord, error) {
	text := doc.LowerText()

	for _, re := range agePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo != nil || errHi != nil {
			continue
		}
		r := model.CandidateRecord{AgeMin: model.Age(lo), AgeMax: model.Age(hi)}
		if g := model.AgeToGrade(lo); model.IsGrade(g) {
			r.GradeMin = g
		}
		if g := model.AgeToGrade(hi); model.IsGrade(g) {
			r.GradeMax = g
		}
		return r, nil
	}

	for _, re := range gradePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		r := model.CandidateRecord{
			GradeMin: model.NormalizeGrade(m[1]),
			GradeMax: model.NormalizeGrade(m[2]),
		}
		if age, ok := model.GradeToAge(r.GradeMin); ok {
			r.AgeMin = model.Age(age)
		}
		if age, ok := model.GradeToAge(r.GradeMax); ok {
			r.AgeMax = model.Age(age)
		}
		return r, nil
	}
	return model.CandidateRecord{}, nil
}

func extractCost(doc *Document) (model.CandidateRecord, error) {
	text := doc.LowerText()
	cost, _, ok := firstMatch(costRules, text)
	if !ok {
		cost = model.CostUnknown
	}
	return model.CandidateRecord{
		CostRange:   cost,
		CostDetails: pricePattern.FindString(text),
	}, nil
}

func extractContact(doc *Document) (model.CandidateRecord, error) {
	var c model.Contact

	doc.DOM.Find(`a[href]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		lower := strings.ToLower(href)
		switch {
		case c.Email == "" && strings.HasPrefix(lower, "mailto:"):
			addr := strings.TrimSpace(strings.SplitN(href[len("mailto:"):], "?", 2)[0])
			if emailPattern.MatchString(addr) {
				c.Email = addr
			}
		case c.Phone == "" && strings.HasPrefix(lower, "tel:"):
			c.Phone = strings.TrimSpace(href[len("tel:"):])
		}
		return c.Email == "" || c.Phone == ""
	})

	if c.Email == "" {
		c.Email = emailPattern.FindString(doc.Text)
	}
	if c.Phone == "" {
		c.Phone = phonePattern.FindString(doc.Text)
	}
	if u, err := url.Parse(doc.URL); err == nil && u.Host != "" {
		c.Website = u.Scheme + "://" + u.Host + "/"
	}
	return model.CandidateRecord{Contact: c}, nil
}

func extractLocation(doc *Document) (model.CandidateRecord, error) {
	var loc model.Location

	loc.Name = doc.First([]string{
		`[itemprop="location"] [itemprop="name"]`, ".location-name", ".venue", ".branch-name",
	}, nil)
	loc.Address = doc.First([]string{`[itemprop="streetAddress"]`, ".street-address"}, nil)
	loc.City = doc.First([]string{`[itemprop="addressLocality"]`, ".locality"}, nil)
	loc.State = doc.First([]string{`[itemprop="addressRegion"]`, ".region"}, nil)
	loc.Zip = doc.First([]string{`[itemprop="postalCode"]`, ".postal-code"}, nil)

	addressText := doc.First([]string{"address", ".address", ".location"}, nil)
	if addressText == "" {
		addressText = doc.Text
	}
	if loc.City == "" || loc.State == "" || loc.Zip == "" {
		if m := cityStateZip.FindStringSubmatch(addressText); m != nil {
			if loc.City == "" {
				loc.City = lastWords(m[1], 3)
			}
			if loc.State == "" {
				loc.State = m[2]
			}
			if loc.Zip == "" {
				loc.Zip = m[3]
			}
		}
	}
	if loc.Address == "" {
		loc.Address = strings.TrimSuffix(streetLine.FindString(addressText), ".")
	}
	return model.CandidateRecord{Location: loc}, nil
}

func extractProgramType(doc *Document) (model.CandidateRecord, error) {
	programType, _, ok := firstMatch(programTypeRules, doc.LowerText())
	if !ok {
		programType = model.ProgramActivity
	}
	return model.CandidateRecord{ProgramType: programType}, nil
}

func extractCulturalFocus(doc *Document) (model.CandidateRecord, error) {
	focus, _, ok := firstMatch(culturalRules, doc.LowerText())
	if !ok {
		focus = model.CulturalGeneral
	}
	return model.CandidateRecord{Cultural: focus}, nil
}

func extractAvailability(doc *Document) (model.CandidateRecord, error) {
	availability, _, ok := firstMatch(availabilityRules, doc.LowerText())
	if !ok {
		availability = defaultAvailability
	}
	return model.CandidateRecord{Availability: availability}, nil
}

// extractSchedule finds the first weekday schedule and the first program
// length mentioned on the page.
func extractSchedule(doc *Document) (model.CandidateRecord, error) {
	text := doc.LowerText()
	return model.CandidateRecord{
		Schedule: strings.TrimSpace(schedulePattern.FindString(text)),
		Duration: durationPattern.FindString(text),
	}, nil
}

func extractIdentitySupport(doc *Document) (model.CandidateRecord, error) {
	return model.CandidateRecord{IdentitySupport: allMatches(identitySupportRules, doc.LowerText())}, nil
}

// extractTags tags a page with every category it mentions.
func extractTags(doc *Document) (model.CandidateRecord, error) {
	categories := allMatches(categoryRules, doc.LowerText())
	tags := make([]string, 0, len(categories))
	for _, c := range categories {
		tags = append(tags, string(c))
	}
	return model.CandidateRecord{Tags: tags}, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// lastWords keeps the last n words of s, trimming leading street text that
// the city pattern may have picked up.
func lastWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}
