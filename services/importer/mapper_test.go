package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month) *time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestMapProfileUser(t *testing.T) {
	p := validProfile()
	p.Headline = "Senior Engineer at Acme"
	p.Summary = "Builds data pipelines."
	p.Location = "Berlin, Germany"
	p.Industry = "Software"
	p.PictureURL = "https://cdn.example.com/jdoe.jpg"
	p.Educations = append(p.Educations, Education{School: "TU Berlin", Degree: "BSc", FieldOfStudy: "CS"})
	p.Languages = append(p.Languages, Language{Name: "German", Proficiency: "native"})
	p.Honors = append(p.Honors, Honor{Title: "Best Paper", Issuer: "ACM", Year: 2019})

	user, _ := MapProfile(p, MapperOptions{})

	require.Equal(t, "John Doe", user.Name)
	require.Equal(t, "john@x.com", user.Email)
	require.Equal(t, "https://cdn.example.com/jdoe.jpg", user.AvatarURL)
	require.Empty(t, user.PasswordHash)

	for _, fragment := range []string{
		"Senior Engineer at Acme",
		"Builds data pipelines.",
		"Location: Berlin, Germany",
		"Industry: Software",
		"TU Berlin",
		"German (native)",
		"Best Paper - ACM (2019)",
	} {
		require.Contains(t, user.Bio, fragment)
	}
}

func TestMapProfileBioOmitsEmptySections(t *testing.T) {
	p := validProfile()
	p.Headline = "Engineer"

	user, _ := MapProfile(p, MapperOptions{})
	require.Equal(t, "Engineer", user.Bio)
}

func TestMapProfileEntityCounts(t *testing.T) {
	p := validProfile()
	p.Positions = []Position{{Company: "Acme", Title: "Engineer"}, {Company: "Globex", Title: "Intern"}}
	p.Educations = []Education{{School: "TU Berlin"}}
	p.Certifications = []Certification{{Name: "CKA"}}
	p.Publications = []Publication{{Title: "A Paper"}}
	p.Volunteer = []VolunteerExperience{{Role: "Mentor", Organization: "CoderDojo"}}

	_, entities := MapProfile(p, MapperOptions{})
	require.Len(t, entities,
		len(p.Positions)+len(p.Educations)+len(p.Certifications)+len(p.Publications)+len(p.Volunteer))
}

func TestMapPositionCurrent(t *testing.T) {
	p := validProfile()
	p.Positions = []Position{{Company: "Acme", Title: "Engineer", EndDate: nil}}

	_, entities := MapProfile(p, MapperOptions{})
	require.Len(t, entities, 1)
	require.Equal(t, "Acme - Engineer", entities[0].Title)
	require.True(t, entities[0].IsCurrent)
	require.Equal(t, "acme-engineer", entities[0].Slug)
}

func TestMapPositionJoinsDescriptionAndResponsibilities(t *testing.T) {
	p := validProfile()
	p.Positions = []Position{{
		Company:          "Acme",
		Title:            "Engineer",
		Description:      "Owns ingest.",
		Responsibilities: "On-call rotation.",
	}}

	_, entities := MapProfile(p, MapperOptions{})
	require.Equal(t, "Owns ingest.\n\nOn-call rotation.", entities[0].Description)
}

func TestMapCertificationMarker(t *testing.T) {
	p := validProfile()
	p.Positions = []Position{{Company: "Acme", Title: "Engineer"}}
	p.Certifications = []Certification{{Name: "CKA", Issuer: "CNCF", IssueDate: date(2022, time.June)}}

	_, entities := MapProfile(p, MapperOptions{})
	var cert, position *Entity
	for i := range entities {
		if entities[i].Title == "CKA" {
			cert = &entities[i]
		} else {
			position = &entities[i]
		}
	}
	require.NotNil(t, cert)
	require.NotNil(t, position)
	require.Equal(t, "Certification", cert.Description)
	require.NotEqual(t, "Certification", position.Description)
	require.Contains(t, cert.LongDescription, "CNCF")
}

func TestMapEducationActivities(t *testing.T) {
	p := validProfile()
	p.Educations = []Education{{School: "TU Berlin", Description: "Thesis on storage.", Activities: "Chess club"}}

	_, entities := MapProfile(p, MapperOptions{})
	require.Contains(t, entities[0].Description, "Thesis on storage.")
	require.Contains(t, entities[0].Description, "Activities: Chess club")
}

func TestSkillsAttachToMostRecentEntities(t *testing.T) {
	p := validProfile()
	p.Skills = []string{"Go", "SQL"}
	p.Positions = []Position{
		{Company: "Old", Title: "Junior", StartDate: date(2015, time.January)},
		{Company: "Mid", Title: "Engineer", StartDate: date(2019, time.January)},
		{Company: "New", Title: "Senior", StartDate: date(2023, time.January)},
		{Company: "Undated", Title: "Helper"},
	}

	_, entities := MapProfile(p, MapperOptions{RecentEntityCount: 2})

	tagged := map[string][]string{}
	for _, e := range entities {
		if len(e.Technologies) > 0 {
			tagged[e.Title] = e.Technologies
		}
	}
	require.Len(t, tagged, 2)
	require.Equal(t, []string{"Go", "SQL"}, tagged["New - Senior"])
	require.Equal(t, []string{"Go", "SQL"}, tagged["Mid - Engineer"])
}

func TestSkillsUndatedEntitiesSortLast(t *testing.T) {
	p := validProfile()
	p.Skills = []string{"Go"}
	p.Positions = []Position{
		{Company: "Undated", Title: "Helper"},
		{Company: "Dated", Title: "Engineer", StartDate: date(2010, time.January)},
	}

	_, entities := MapProfile(p, MapperOptions{RecentEntityCount: 1})
	for _, e := range entities {
		if e.Title == "Dated - Engineer" {
			require.Equal(t, []string{"Go"}, e.Technologies)
		} else {
			require.Empty(t, e.Technologies)
		}
	}
}

func TestSlugsAreCleanAndBounded(t *testing.T) {
	p := validProfile()
	p.Positions = []Position{{Company: "Acme & Sons, Inc.", Title: "VP / Engineering"}}

	_, entities := MapProfile(p, MapperOptions{})
	slug := entities[0].Slug
	require.NotContains(t, slug, " ")
	require.Equal(t, "acme-sons-inc-vp-engineering", slug)
}
