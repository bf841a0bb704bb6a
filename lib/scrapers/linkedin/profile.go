package linkedin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"linkedin-importer/lib/apperr"
	"linkedin-importer/lib/htmlutil"
	"linkedin-importer/lib/webclient"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RawProfile is the intermediate shape handed to the import pipeline.
// Every field is optional at this layer: the extractor maps whatever
// the page offers and leaves the rest zero, it never fails over a
// missing section. Sections that could not be located at all are
// listed in Unavailable.
type RawProfile struct {
	ProfileID  string
	Name       string
	Headline   string
	Summary    string
	Location   string
	Industry   string
	PictureURL string

	Positions      []RawPosition
	Educations     []RawEducation
	Skills         []string
	Certifications []RawCertification
	Publications   []RawPublication
	Volunteer      []RawVolunteer
	Honors         []RawHonor
	Languages      []RawLanguage

	Unavailable []string
}

type RawPosition struct {
	Title          string
	Company        string
	CompanyURL     string
	LogoURL        string
	Location       string
	Description    string
	EmploymentType string
	StartDate      *time.Time
	EndDate        *time.Time
}

type RawEducation struct {
	School       string
	Degree       string
	FieldOfStudy string
	Description  string
	Activities   string
	StartDate    *time.Time
	EndDate      *time.Time
}

type RawCertification struct {
	Name           string
	Issuer         string
	LicenseNumber  string
	URL            string
	IssueDate      *time.Time
	ExpirationDate *time.Time
}

type RawPublication struct {
	Title       string
	Publisher   string
	Description string
	URL         string
	Date        *time.Time
}

type RawVolunteer struct {
	Role         string
	Organization string
	Description  string
	StartDate    *time.Time
	EndDate      *time.Time
}

type RawHonor struct {
	Title       string
	Issuer      string
	Year        int
	Description string
}

type RawLanguage struct {
	Name        string
	Proficiency string
}

// FetchProfile retrieves and extracts one profile. The page body goes
// through the webclient so repeated fetches of the same profile within
// a run hit its cache, and rate limiting is honored.
func (c *Client) FetchProfile(ctx context.Context, web *webclient.Client, profileURL string) (RawProfile, error) {
	ctx, span := tracer.Start(ctx, "client:FetchProfile")
	defer span.End()

	id := UsernameFromURL(profileURL)
	span.SetAttributes(attribute.String("profile", id))

	body, err := web.Fetch(ctx, "profile", id, profileURL)
	if err != nil {
		err = translateFetchError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return RawProfile{}, err
	}
	if bytes.Contains(body, []byte("authwall")) {
		span.SetStatus(codes.Error, "authwall")
		return RawProfile{}, apperr.ScrapingBlocked("profile page served an authwall", 0)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse profile html")
		return RawProfile{}, apperr.Scraper("failed to parse profile page").WithError(err)
	}

	raw := extractProfile(ctx, doc)
	raw.ProfileID = id
	if raw.Name == "" {
		span.SetStatus(codes.Error, "profile name missing")
		return RawProfile{}, apperr.ElementNotFound("h1.top-card-layout__title")
	}
	return raw, nil
}

// the generic api kinds coming out of the webclient get refined into
// scraper kinds here. linkedin answers bot traffic with status 999.
func translateFetchError(err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind != apperr.KindAPI {
		return err
	}
	if status, _ := e.Details["status"].(int); status == 999 {
		return apperr.ScrapingBlocked("request blocked by linkedin bot protection", 0)
	}
	return err
}

func extractProfile(ctx context.Context, doc *goquery.Document) RawProfile {
	raw := RawProfile{
		Positions:      []RawPosition{},
		Educations:     []RawEducation{},
		Skills:         []string{},
		Certifications: []RawCertification{},
		Publications:   []RawPublication{},
		Volunteer:      []RawVolunteer{},
		Honors:         []RawHonor{},
		Languages:      []RawLanguage{},
	}

	raw.Name = htmlutil.CleanedText(doc.Find("h1.top-card-layout__title"))
	raw.Headline = htmlutil.CleanedText(doc.Find("h2.top-card-layout__headline"))
	raw.Location = htmlutil.CleanedText(
		doc.Find(".top-card-layout__first-subline .top-card__subline-item").First())
	raw.Industry = htmlutil.CleanedText(doc.Find(".top-card-layout__second-subline .top-card__industry"))
	raw.PictureURL = doc.Find("img.top-card-layout__entity-image").AttrOr("src", "")
	raw.Summary = htmlutil.CleanedText(doc.Find("section.summary div.core-section-container__content"))

	raw.Positions = extractPositions(ctx, doc, &raw.Unavailable)
	raw.Educations = extractEducations(ctx, doc, &raw.Unavailable)
	raw.Skills = extractSkills(ctx, doc, raw.Headline, &raw.Unavailable)
	raw.Certifications = extractCertifications(ctx, doc, &raw.Unavailable)
	raw.Publications = extractPublications(ctx, doc, &raw.Unavailable)
	raw.Volunteer = extractVolunteer(ctx, doc, &raw.Unavailable)
	raw.Honors = extractHonors(ctx, doc, &raw.Unavailable)
	raw.Languages = extractLanguages(ctx, doc, &raw.Unavailable)

	return raw
}

// markUnavailable records a section that yielded nothing, once, so a
// silent empty collection is always traceable in the logs.
func markUnavailable(ctx context.Context, unavailable *[]string, section string) {
	slog.WarnContext(ctx, "profile section unavailable", "section", section)
	*unavailable = append(*unavailable, section)
}

func dateRangeOf(item *goquery.Selection) (start, end *time.Time, current bool) {
	times := item.Find("span.date-range time")
	if times.Length() == 0 {
		return ParseDateRange(htmlutil.CleanedText(item.Find("span.date-range")))
	}
	start, _ = ParseLooseDate(htmlutil.CleanedText(times.First()))
	if times.Length() > 1 {
		end, _ = ParseLooseDate(htmlutil.CleanedText(times.Last()))
	}
	return start, end, end == nil
}

func extractPositions(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawPosition {
	positions := []RawPosition{}
	items := doc.Find("section[data-section=experience] li.experience-item")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "experience")
		return positions
	}
	items.Each(func(_ int, item *goquery.Selection) {
		p := RawPosition{
			Title:          htmlutil.CleanedText(item.Find(".experience-item__title")),
			Company:        htmlutil.CleanedText(item.Find(".experience-item__subtitle")),
			CompanyURL:     item.Find("a.experience-item__company-link").AttrOr("href", ""),
			LogoURL:        item.Find("img.experience-item__logo").AttrOr("src", ""),
			Location:       htmlutil.CleanedText(item.Find(".experience-item__location")),
			Description:    htmlutil.CleanedText(item.Find(".experience-item__description")),
			EmploymentType: htmlutil.CleanedText(item.Find(".experience-item__employment-type")),
		}
		// an ongoing role surfaces as a nil end date
		p.StartDate, p.EndDate, _ = dateRangeOf(item)
		if p.Title != "" || p.Company != "" {
			positions = append(positions, p)
		}
	})
	return positions
}

func extractEducations(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawEducation {
	educations := []RawEducation{}
	items := doc.Find("section[data-section=educationsDetails] li.education__list-item")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "education")
		return educations
	}
	items.Each(func(_ int, item *goquery.Selection) {
		e := RawEducation{
			School:       htmlutil.CleanedText(item.Find("h3.education__school-name")),
			Degree:       htmlutil.CleanedText(item.Find("h4.education__item-degree-info span.education__item--degree-info")),
			FieldOfStudy: htmlutil.CleanedText(item.Find("span.education__item--field-of-study")),
			Description:  htmlutil.CleanedText(item.Find("div.education__item--details p")),
			Activities:   htmlutil.CleanedText(item.Find("p.education__item--activities-societies")),
		}
		e.StartDate, e.EndDate, _ = dateRangeOf(item)
		if e.School != "" {
			educations = append(educations, e)
		}
	})
	return educations
}

// skills come from several places on the page, deduplicated by a loose
// token match across all of them.
func extractSkills(ctx context.Context, doc *goquery.Document, headline string, unavailable *[]string) []string {
	skills := []string{}
	seen := map[string]bool{}
	add := func(name string) {
		name = htmlutil.Clean(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		skills = append(skills, name)
	}

	doc.Find("section[data-section=skills] li.skills__item").Each(func(_ int, item *goquery.Selection) {
		add(htmlutil.CleanedText(item))
	})
	doc.Find("section[data-section=skills] a[data-tracking-control-name=skill]").Each(func(_ int, item *goquery.Selection) {
		add(htmlutil.CleanedText(item))
	})

	if len(skills) == 0 {
		markUnavailable(ctx, unavailable, "skills")
	}
	return skills
}

func extractCertifications(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawCertification {
	certifications := []RawCertification{}
	items := doc.Find("section[data-section=certifications] li.profile-section-card")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "certifications")
		return certifications
	}
	items.Each(func(_ int, item *goquery.Selection) {
		c := RawCertification{
			Name:          htmlutil.CleanedText(item.Find("h3.profile-section-card__title")),
			Issuer:        htmlutil.CleanedText(item.Find("h4.profile-section-card__subtitle")),
			LicenseNumber: htmlutil.CleanedText(item.Find("div.certifications__credential-id")),
			URL:           item.Find("a.profile-section-card__title-link").AttrOr("href", ""),
		}
		c.IssueDate, c.ExpirationDate, _ = dateRangeOf(item)
		if c.Name != "" {
			certifications = append(certifications, c)
		}
	})
	return certifications
}

func extractPublications(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawPublication {
	publications := []RawPublication{}
	items := doc.Find("section[data-section=publications] li.profile-section-card")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "publications")
		return publications
	}
	items.Each(func(_ int, item *goquery.Selection) {
		p := RawPublication{
			Title:       htmlutil.CleanedText(item.Find("h3.profile-section-card__title")),
			Publisher:   htmlutil.CleanedText(item.Find("h4.profile-section-card__subtitle")),
			Description: htmlutil.CleanedText(item.Find("div.profile-section-card__contents p")),
			URL:         item.Find("a.profile-section-card__title-link").AttrOr("href", ""),
		}
		p.Date, _ = ParseLooseDate(htmlutil.CleanedText(item.Find("span.date-range time").First()))
		if p.Title != "" {
			publications = append(publications, p)
		}
	})
	return publications
}

func extractVolunteer(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawVolunteer {
	volunteer := []RawVolunteer{}
	items := doc.Find("section[data-section=volunteering] li.profile-section-card")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "volunteering")
		return volunteer
	}
	items.Each(func(_ int, item *goquery.Selection) {
		v := RawVolunteer{
			Role:         htmlutil.CleanedText(item.Find("h3.profile-section-card__title")),
			Organization: htmlutil.CleanedText(item.Find("h4.profile-section-card__subtitle")),
			Description:  htmlutil.CleanedText(item.Find("div.profile-section-card__contents p")),
		}
		v.StartDate, v.EndDate, _ = dateRangeOf(item)
		if v.Role != "" || v.Organization != "" {
			volunteer = append(volunteer, v)
		}
	})
	return volunteer
}

func extractHonors(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawHonor {
	honors := []RawHonor{}
	items := doc.Find("section[data-section=honors-and-awards] li.profile-section-card")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "honors")
		return honors
	}
	items.Each(func(_ int, item *goquery.Selection) {
		h := RawHonor{
			Title:       htmlutil.CleanedText(item.Find("h3.profile-section-card__title")),
			Issuer:      htmlutil.CleanedText(item.Find("h4.profile-section-card__subtitle")),
			Description: htmlutil.CleanedText(item.Find("div.profile-section-card__contents p")),
		}
		if year := htmlutil.CleanedText(item.Find("span.date-range time").First()); year != "" {
			if y, err := strconv.Atoi(year); err == nil {
				h.Year = y
			}
		}
		if h.Title != "" {
			honors = append(honors, h)
		}
	})
	return honors
}

func extractLanguages(ctx context.Context, doc *goquery.Document, unavailable *[]string) []RawLanguage {
	languages := []RawLanguage{}
	items := doc.Find("section[data-section=languages] li.profile-section-card")
	if items.Length() == 0 {
		markUnavailable(ctx, unavailable, "languages")
		return languages
	}
	items.Each(func(_ int, item *goquery.Selection) {
		l := RawLanguage{
			Name:        htmlutil.CleanedText(item.Find("h3.profile-section-card__title")),
			Proficiency: htmlutil.CleanedText(item.Find("h4.profile-section-card__subtitle")),
		}
		if l.Name != "" {
			languages = append(languages, l)
		}
	})
	return languages
}
