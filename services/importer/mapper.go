package importer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"linkedin-importer/lib/textutil"
)

// User is the relational shape of the profile owner. Imported users
// never get a password hash.
type User struct {
	Email        string
	Name         string
	Bio          string
	AvatarURL    string
	PasswordHash string
}

// Entity is one project-style row derived from a profile section,
// together with the technology tags that will be linked to it.
type Entity struct {
	Title           string
	Slug            string
	Description     string
	LongDescription string
	ImageURL        string
	LiveURL         string
	GithubURL       string
	Featured        bool
	IsCurrent       bool
	StartDate       *time.Time
	Technologies    []string
}

const certificationMarker = "Certification"

type MapperOptions struct {
	// number of most-recent entities skills attach to, defaults to 3
	RecentEntityCount int
}

// MapProfile is the pure transform from a validated profile to the
// rows the store writes. It never touches the database and never
// validates, it trusts its input.
func MapProfile(p *Profile, opts MapperOptions) (User, []Entity) {
	if opts.RecentEntityCount <= 0 {
		opts.RecentEntityCount = 3
	}

	user := User{
		Email:     p.Email,
		Name:      strings.TrimSpace(p.FirstName + " " + p.LastName),
		Bio:       synthesizeBio(p),
		AvatarURL: p.PictureURL,
	}

	entities := []Entity{}
	for _, pos := range p.Positions {
		entities = append(entities, mapPosition(pos))
	}
	for _, edu := range p.Educations {
		entities = append(entities, mapEducation(edu))
	}
	for _, cert := range p.Certifications {
		entities = append(entities, mapCertification(cert))
	}
	for _, pub := range p.Publications {
		entities = append(entities, mapPublication(pub))
	}
	for _, vol := range p.Volunteer {
		entities = append(entities, mapVolunteer(vol))
	}
	for i := range entities {
		entities[i].Slug = textutil.Slugify(entities[i].Title)
	}

	attachSkills(entities, p.Skills, opts.RecentEntityCount)
	return user, entities
}

// synthesizeBio builds the multi-section bio. Sections with no source
// data are omitted entirely, the rest are blank-line separated.
func synthesizeBio(p *Profile) string {
	var sections []string
	push := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}

	push(p.Headline)
	push(p.Summary)

	var whereabouts []string
	if p.Location != "" {
		whereabouts = append(whereabouts, "Location: "+p.Location)
	}
	if p.Industry != "" {
		whereabouts = append(whereabouts, "Industry: "+p.Industry)
	}
	push(strings.Join(whereabouts, "\n"))

	var education []string
	for _, edu := range p.Educations {
		if edu.School == "" {
			continue
		}
		line := edu.School
		if edu.Degree != "" {
			line += " - " + edu.Degree
			if edu.FieldOfStudy != "" {
				line += ", " + edu.FieldOfStudy
			}
		}
		education = append(education, line)
	}
	if len(education) > 0 {
		push("Education:\n" + strings.Join(education, "\n"))
	}

	var languages []string
	for _, lang := range p.Languages {
		if lang.Name == "" {
			continue
		}
		entry := lang.Name
		if lang.Proficiency != "" {
			entry = fmt.Sprintf("%s (%s)", lang.Name, lang.Proficiency)
		}
		languages = append(languages, entry)
	}
	if len(languages) > 0 {
		push("Languages: " + strings.Join(languages, ", "))
	}

	var honors []string
	for _, honor := range p.Honors {
		if honor.Title == "" {
			continue
		}
		entry := honor.Title
		if honor.Issuer != "" {
			entry += " - " + honor.Issuer
		}
		if honor.Year != 0 {
			entry += fmt.Sprintf(" (%d)", honor.Year)
		}
		if honor.Description != "" {
			entry += "\n" + honor.Description
		}
		honors = append(honors, entry)
	}
	if len(honors) > 0 {
		push("Honors:\n" + strings.Join(honors, "\n"))
	}

	return strings.Join(sections, "\n\n")
}

func mapPosition(pos Position) Entity {
	title := pos.Title
	if pos.Company != "" && pos.Title != "" {
		title = pos.Company + " - " + pos.Title
	} else if pos.Company != "" {
		title = pos.Company
	}

	description := pos.Description
	if description != "" && pos.Responsibilities != "" {
		description = description + "\n\n" + pos.Responsibilities
	} else if pos.Responsibilities != "" {
		description = pos.Responsibilities
	}

	var long []string
	if pos.EmploymentType != "" {
		long = append(long, "Employment type: "+pos.EmploymentType)
	}
	if pos.Location != "" {
		long = append(long, "Location: "+pos.Location)
	}

	return Entity{
		Title:           title,
		Description:     description,
		LongDescription: strings.Join(long, "\n"),
		ImageURL:        pos.LogoURL,
		LiveURL:         pos.CompanyURL,
		IsCurrent:       pos.IsCurrent(),
		StartDate:       pos.StartDate,
	}
}

func mapEducation(edu Education) Entity {
	title := edu.School
	if edu.Degree != "" {
		title = edu.School + " - " + edu.Degree
	}

	description := edu.Description
	if description != "" && edu.Activities != "" {
		description = description + "\n\n" + "Activities: " + edu.Activities
	} else if edu.Activities != "" {
		description = "Activities: " + edu.Activities
	}

	return Entity{
		Title:           title,
		Description:     description,
		LongDescription: edu.FieldOfStudy,
		IsCurrent:       edu.EndDate == nil,
		StartDate:       edu.StartDate,
	}
}

func mapCertification(cert Certification) Entity {
	var lines []string
	if cert.Issuer != "" {
		lines = append(lines, "Issued by "+cert.Issuer)
	}
	if cert.LicenseNumber != "" {
		lines = append(lines, "License "+cert.LicenseNumber)
	}
	if cert.IssueDate != nil {
		lines = append(lines, "Issued "+cert.IssueDate.Format("Jan 2006"))
	}
	if cert.ExpirationDate != nil {
		lines = append(lines, "Expires "+cert.ExpirationDate.Format("Jan 2006"))
	}

	return Entity{
		Title:           cert.Name,
		Description:     certificationMarker,
		LongDescription: strings.Join(lines, "\n"),
		LiveURL:         cert.URL,
		IsCurrent:       cert.ExpirationDate == nil,
		StartDate:       cert.IssueDate,
	}
}

func mapPublication(pub Publication) Entity {
	title := pub.Title
	if pub.Publisher != "" {
		title = pub.Title + " - " + pub.Publisher
	}
	return Entity{
		Title:       title,
		Description: pub.Description,
		LiveURL:     pub.URL,
		StartDate:   pub.Date,
	}
}

func mapVolunteer(vol VolunteerExperience) Entity {
	title := vol.Role
	if vol.Organization != "" && vol.Role != "" {
		title = vol.Organization + " - " + vol.Role
	} else if vol.Organization != "" {
		title = vol.Organization
	}
	return Entity{
		Title:       title,
		Description: vol.Description,
		IsCurrent:   vol.EndDate == nil,
		StartDate:   vol.StartDate,
	}
}

// attachSkills tags the count most recent entities with every skill.
// Recency is start date descending, undated entities last, ties broken
// by original position.
func attachSkills(entities []Entity, skills []string, count int) {
	if len(skills) == 0 || len(entities) == 0 {
		return
	}

	order := make([]int, len(entities))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		da, db := entities[order[a]].StartDate, entities[order[b]].StartDate
		if da == nil || db == nil {
			return da != nil && db == nil
		}
		return da.After(*db)
	})

	if count > len(order) {
		count = len(order)
	}
	for _, idx := range order[:count] {
		entities[idx].Technologies = append([]string{}, skills...)
	}
}
