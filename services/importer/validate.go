package importer

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/textutil"

	"github.com/antzucaro/matchr"
)

// employment types the schema recognizes, with the synonyms seen in
// scraped data folded onto them
var employmentTypes = map[string]string{
	"full-time":      "full-time",
	"full time":      "full-time",
	"fulltime":       "full-time",
	"part-time":      "part-time",
	"part time":      "part-time",
	"contract":       "contract",
	"contractor":     "contract",
	"freelance":      "freelance",
	"internship":     "internship",
	"intern":         "internship",
	"apprenticeship": "apprenticeship",
	"temporary":      "temporary",
	"self-employed":  "self-employed",
	"self employed":  "self-employed",
}

var proficiencyLevels = map[string]string{
	"elementary proficiency":           "elementary",
	"elementary":                       "elementary",
	"limited working proficiency":      "limited working",
	"limited working":                  "limited working",
	"professional working proficiency": "professional working",
	"professional working":             "professional working",
	"full professional proficiency":    "full professional",
	"full professional":                "full professional",
	"native or bilingual proficiency":  "native",
	"native":                           "native",
}

// threshold above which two normalized skill names count as the same
// skill
const skillSimilarity = 0.97

// ValidateRequiredFields checks the mandatory identity fields and
// reports every violation at once rather than stopping at the first.
func ValidateRequiredFields(p *Profile) error {
	var violations []string
	if strings.TrimSpace(p.FirstName) == "" {
		violations = append(violations, "first name is empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		violations = append(violations, "last name is empty")
	}
	email := strings.TrimSpace(p.Email)
	if email == "" {
		violations = append(violations, "email is empty")
	} else if _, err := mail.ParseAddress(email); err != nil {
		violations = append(violations, fmt.Sprintf("email %q is not a valid address", email))
	}
	return violationError(violations)
}

// ValidateProfileURLs checks that every populated URL field is an
// absolute http(s) URL with a host. Violations are collected.
func ValidateProfileURLs(p *Profile) error {
	var violations []string
	check := func(field, value string) {
		if value == "" {
			return
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			violations = append(violations, fmt.Sprintf("%s %q is not an absolute http(s) url", field, value))
		}
	}

	check("picture url", p.PictureURL)
	for i, pos := range p.Positions {
		check(fmt.Sprintf("position[%d] company url", i), pos.CompanyURL)
		check(fmt.Sprintf("position[%d] logo url", i), pos.LogoURL)
	}
	for i, cert := range p.Certifications {
		check(fmt.Sprintf("certification[%d] url", i), cert.URL)
	}
	for i, pub := range p.Publications {
		check(fmt.Sprintf("publication[%d] url", i), pub.URL)
	}
	return violationError(violations)
}

func violationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return apperr.Validation(strings.Join(violations, "; ")).
		WithDetail("violations", violations)
}

// NormalizeSkillName trims and title-cases a scraped skill.
func NormalizeSkillName(name string) string {
	return textutil.TitleCase(strings.TrimSpace(name))
}

// NormalizeEmploymentType folds a scraped employment type onto the
// closed enumeration, returning "" for anything unrecognized.
func NormalizeEmploymentType(raw string) string {
	return employmentTypes[strings.ToLower(strings.TrimSpace(raw))]
}

// NormalizeProficiency folds a scraped language proficiency onto the
// five-level enumeration, returning "" for anything unrecognized.
func NormalizeProficiency(raw string) string {
	return proficiencyLevels[strings.ToLower(strings.TrimSpace(raw))]
}

// Normalize applies the field normalizations in place. Callers run the
// validators first so bad input fails before any mutation.
func Normalize(p *Profile) {
	p.Skills = dedupeSkills(p.Skills)
	for i := range p.Positions {
		p.Positions[i].EmploymentType = NormalizeEmploymentType(p.Positions[i].EmploymentType)
	}
	for i := range p.Languages {
		p.Languages[i].Proficiency = NormalizeProficiency(p.Languages[i].Proficiency)
	}
}

// dedupeSkills normalizes each skill name then collapses duplicates:
// exact matches first, then near-duplicates ("PostgreSQL"/"PostgresQL"
// style typos) by Jaro-Winkler similarity. First spelling wins.
func dedupeSkills(skills []string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, raw := range skills {
		name := NormalizeSkillName(raw)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		nearDuplicate := false
		for _, kept := range out {
			if matchr.JaroWinkler(strings.ToLower(kept), strings.ToLower(name), true) >= skillSimilarity {
				nearDuplicate = true
				break
			}
		}
		if nearDuplicate {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	return out
}
