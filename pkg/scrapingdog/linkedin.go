package scrapingdog

import (
	"bytes"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"

	"github.com/sells-group/osint-cli/pkg/htmlutil"
)

// LinkedInProfile holds the fields read from a rendered public LinkedIn
// profile page. Location, company, and photo are best-effort guesses.
type LinkedInProfile struct {
	Name     string
	Headline string
	Location string
	Company  string
	Photo    string
}

// ParseLinkedIn extracts profile fields from rendered LinkedIn HTML.
func ParseLinkedIn(body []byte) (*LinkedInProfile, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "scrapingdog: parse linkedin html")
	}

	p := &LinkedInProfile{
		Name:     htmlutil.Text(htmlutil.Find(doc, htmlutil.Tag("h1"))),
		Headline: htmlutil.Text(htmlutil.Find(doc, htmlutil.And(htmlutil.Tag("div"), htmlutil.HasClass("text-body-medium")))),
	}

	for _, s := range htmlutil.TextNodes(doc) {
		if strings.Contains(s, ", ") && len(s) <= 64 {
			p.Location = s
			break
		}
	}

	for _, span := range htmlutil.FindAll(doc, htmlutil.Tag("span")) {
		t := htmlutil.Text(span)
		lower := strings.ToLower(t)
		if strings.Contains(lower, "at ") || strings.Contains(lower, "@") {
			t = strings.ReplaceAll(t, "at ", "")
			p.Company = strings.TrimSpace(strings.ReplaceAll(t, "@", ""))
			break
		}
	}

	for _, img := range htmlutil.FindAll(doc, htmlutil.Tag("img")) {
		src := strings.TrimSpace(htmlutil.Attr(img, "src"))
		if strings.Contains(src, "profile-displayphoto") ||
			(strings.HasPrefix(src, "https://media.") && strings.Contains(src, "profile")) {
			p.Photo = src
			break
		}
	}
	return p, nil
}
