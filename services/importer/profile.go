// Package importer turns a scraped profile into relational rows: it
// validates and normalizes the profile model, maps it onto a user plus
// owned entities, and writes everything in one transaction.
package importer

import (
	"strings"
	"time"

	"linkedin-importer/lib/scrapers/linkedin"
)

// Profile is the validated model one import run operates on. The email
// is mandatory and supplied externally, it cannot be scraped reliably.
// All eight collections are always non-nil.
type Profile struct {
	ProfileID  string
	FirstName  string
	LastName   string
	Email      string
	Headline   string
	Summary    string
	Location   string
	Industry   string
	PictureURL string

	Positions      []Position
	Educations     []Education
	Skills         []string
	Certifications []Certification
	Publications   []Publication
	Volunteer      []VolunteerExperience
	Honors         []Honor
	Languages      []Language
}

type Position struct {
	Company          string
	Title            string
	Location         string
	Description      string
	Responsibilities string
	EmploymentType   string
	CompanyURL       string
	LogoURL          string
	StartDate        *time.Time
	EndDate          *time.Time
}

// IsCurrent reports whether the position is ongoing: no end date means
// the person still holds it.
func (p Position) IsCurrent() bool {
	return p.EndDate == nil
}

type Education struct {
	School       string
	Degree       string
	FieldOfStudy string
	Description  string
	Activities   string
	StartDate    *time.Time
	EndDate      *time.Time
}

type Certification struct {
	Name           string
	Issuer         string
	LicenseNumber  string
	URL            string
	IssueDate      *time.Time
	ExpirationDate *time.Time
}

type Publication struct {
	Title       string
	Publisher   string
	Description string
	URL         string
	Date        *time.Time
}

type VolunteerExperience struct {
	Role         string
	Organization string
	Description  string
	StartDate    *time.Time
	EndDate      *time.Time
}

type Honor struct {
	Title       string
	Issuer      string
	Year        int
	Description string
}

type Language struct {
	Name        string
	Proficiency string
}

// NewProfile returns a profile with every collection initialized so
// downstream code never has to nil-check.
func NewProfile(profileID, email string) *Profile {
	return &Profile{
		ProfileID:      profileID,
		Email:          email,
		Positions:      []Position{},
		Educations:     []Education{},
		Skills:         []string{},
		Certifications: []Certification{},
		Publications:   []Publication{},
		Volunteer:      []VolunteerExperience{},
		Honors:         []Honor{},
		Languages:      []Language{},
	}
}

// FromRaw adapts a scraped profile into the import model, splitting
// the display name on the first token.
func FromRaw(raw linkedin.RawProfile, email string) *Profile {
	p := NewProfile(raw.ProfileID, email)
	p.FirstName, p.LastName = splitName(raw.Name)
	p.Headline = raw.Headline
	p.Summary = raw.Summary
	p.Location = raw.Location
	p.Industry = raw.Industry
	p.PictureURL = raw.PictureURL

	for _, pos := range raw.Positions {
		p.Positions = append(p.Positions, Position{
			Company:        pos.Company,
			Title:          pos.Title,
			Location:       pos.Location,
			Description:    pos.Description,
			EmploymentType: pos.EmploymentType,
			CompanyURL:     pos.CompanyURL,
			LogoURL:        pos.LogoURL,
			StartDate:      pos.StartDate,
			EndDate:        pos.EndDate,
		})
	}
	for _, edu := range raw.Educations {
		p.Educations = append(p.Educations, Education{
			School:       edu.School,
			Degree:       edu.Degree,
			FieldOfStudy: edu.FieldOfStudy,
			Description:  edu.Description,
			Activities:   edu.Activities,
			StartDate:    edu.StartDate,
			EndDate:      edu.EndDate,
		})
	}
	p.Skills = append(p.Skills, raw.Skills...)
	for _, cert := range raw.Certifications {
		p.Certifications = append(p.Certifications, Certification{
			Name:           cert.Name,
			Issuer:         cert.Issuer,
			LicenseNumber:  cert.LicenseNumber,
			URL:            cert.URL,
			IssueDate:      cert.IssueDate,
			ExpirationDate: cert.ExpirationDate,
		})
	}
	for _, pub := range raw.Publications {
		p.Publications = append(p.Publications, Publication{
			Title:       pub.Title,
			Publisher:   pub.Publisher,
			Description: pub.Description,
			URL:         pub.URL,
			Date:        pub.Date,
		})
	}
	for _, vol := range raw.Volunteer {
		p.Volunteer = append(p.Volunteer, VolunteerExperience{
			Role:         vol.Role,
			Organization: vol.Organization,
			Description:  vol.Description,
			StartDate:    vol.StartDate,
			EndDate:      vol.EndDate,
		})
	}
	for _, honor := range raw.Honors {
		p.Honors = append(p.Honors, Honor{
			Title:       honor.Title,
			Issuer:      honor.Issuer,
			Year:        honor.Year,
			Description: honor.Description,
		})
	}
	for _, lang := range raw.Languages {
		p.Languages = append(p.Languages, Language{
			Name:        lang.Name,
			Proficiency: lang.Proficiency,
		})
	}
	return p
}

func splitName(full string) (first, last string) {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
