// Package extract pulls the handful of fields reconciliation stores out of an
// upstream job detail payload. The payload shape drifts over time, so every
// field has fallbacks and extraction never fails.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mitchellh/mapstructure"

	"github.com/amishk599/mcfradar/internal/model"
)

// Fields are the best-effort values found in a detail payload.
// A nil field means no usable value was present.
type Fields struct {
	Title       *string
	CompanyName *string
	Location    *string
	URL         *string
	Description *string // plain text, HTML stripped
}

// Detail converts the extracted fields into the row written for a new job.
func (f Fields) Detail(jobUUID string) model.JobDetail {
	return model.JobDetail{
		UUID:        jobUUID,
		Title:       f.Title,
		CompanyName: f.CompanyName,
		Location:    f.Location,
		URL:         f.URL,
	}
}

type company struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
}

type district struct {
	Location string `json:"location"`
}

type address struct {
	Country       string     `json:"country"`
	PostalCode    string     `json:"postalCode"`
	StreetAddress string     `json:"streetAddress"`
	Districts     []district `json:"districts"`
}

type metadata struct {
	JobDetailsURL string `json:"jobDetailsUrl"`
}

type payload struct {
	Title          string    `json:"title"`
	JobTitle       string    `json:"jobTitle"`
	Description    string    `json:"description"`
	JobDescription string    `json:"jobDescription"`
	Company        *company  `json:"company"`
	PostingCompany *company  `json:"postingCompany"`
	PostedCompany  *company  `json:"postedCompany"`
	Address        *address  `json:"address"`
	WorkLocation   *address  `json:"workLocation"`
	Metadata       *metadata `json:"metadata"`
	JobDetailsURL  string    `json:"jobDetailsUrl"`
}

// FromDetail extracts fields from a raw detail payload. Fields whose value has
// an unexpected type are treated as absent.
func FromDetail(raw map[string]any) Fields {
	if len(raw) == 0 {
		return Fields{}
	}

	var p payload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Fields{}
	}
	// Per-field type errors are collected while the rest of the struct is
	// still filled in, so the partial result is used as is.
	_ = dec.Decode(raw)

	f := Fields{
		Title: firstNonEmpty(p.Title, p.JobTitle),
		URL:   firstNonEmpty(metadataURL(p.Metadata), p.JobDetailsURL),
	}

	for _, c := range []*company{p.Company, p.PostingCompany, p.PostedCompany} {
		if c == nil {
			continue
		}
		if v := firstNonEmpty(c.Name, c.CompanyName); v != nil {
			f.CompanyName = v
			break
		}
	}

	for _, a := range []*address{p.Address, p.WorkLocation} {
		if a == nil {
			continue
		}
		if v := firstNonEmpty(a.Country, a.PostalCode, a.StreetAddress, firstDistrict(a.Districts)); v != nil {
			f.Location = v
			break
		}
	}

	if d := firstNonEmpty(p.Description, p.JobDescription); d != nil {
		f.Description = firstNonEmpty(HTMLToText(*d))
	}

	return f
}

// HTMLToText strips markup and collapses blank lines. Input that is not HTML
// comes back trimmed.
func HTMLToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	doc.Find("script, style").Remove()

	// Block elements would otherwise run together.
	doc.Find("p, li, br, h1, h2, h3, h4, div").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	return cleanWhitespace(doc.Text())
}

func cleanWhitespace(text string) string {
	var cleaned []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

func metadataURL(m *metadata) string {
	if m == nil {
		return ""
	}
	return m.JobDetailsURL
}

func firstDistrict(ds []district) string {
	if len(ds) == 0 {
		return ""
	}
	return ds[0].Location
}

func firstNonEmpty(vals ...string) *string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return &v
		}
	}
	return nil
}
