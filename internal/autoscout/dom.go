package autoscout

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"relentless-autoscout/internal/models"
)

// ExtractDOM normalizes one rendered listing container. Containers without a
// detail link are skipped.
func ExtractDOM(sel *goquery.Selection) (models.ListingRecord, bool) {
	href, ok := sel.Find(detailLinkSelector).First().Attr("href")
	link := AbsoluteURL(href)
	if !ok || link == "" {
		return models.ListingRecord{}, false
	}

	rec := models.ListingRecord{
		ID:       idFromHref(href),
		Currency: models.DefaultCurrency,
		Color:    ColorFromURL(link),
		URL:      link,
	}

	title := strings.Fields(titleText(sel))
	if len(title) > 0 {
		rec.Make = firstString(title[0])
		rec.Model = firstString(strings.Join(title[1:], " "))
	}
	rec.Price = parsePriceText(sel.Find(priceSelector).First().Text())

	var specs []string
	sel.Find(specSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			specs = append(specs, text)
		}
	})
	rec.MileageKm = specMatch(specs, mileageSpecPattern.MatchString, digitsToInt)
	rec.FirstRegistration = specMatch(specs, isRegistrationSnippet, registrationYear)
	rec.FuelType = specMatch(specs, fuelSpecPattern.MatchString, trimmed)
	rec.Transmission = specMatch(specs, transmissionSpecPattern.MatchString, trimmed)
	rec.PowerHP = specMatch(specs, powerSpecPattern.MatchString, domPower)

	if img := sel.Find(imageSelector).First(); img.Length() > 0 {
		src, _ := img.Attr("src")
		if src == "" {
			src, _ = img.Attr("data-src")
		}
		rec.ImageURL = firstString(AbsoluteURL(src))
	}
	return rec, true
}

// ExtractDOMPage applies ExtractDOM to every listing container on the page.
func ExtractDOMPage(raw []byte) ([]models.ListingRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	var listings []models.ListingRecord
	doc.Find(listingContainerSelector).Each(func(_ int, s *goquery.Selection) {
		if rec, ok := ExtractDOM(s); ok {
			listings = append(listings, rec)
		}
	})
	return listings, nil
}

// specMatch converts the first snippet accepted by match.
func specMatch[T any](specs []string, match func(string) bool, convert func(string) *T) *T {
	for _, s := range specs {
		if match(s) {
			return convert(s)
		}
	}
	return nil
}

func isRegistrationSnippet(s string) bool {
	return monthYearSpecPattern.MatchString(s) || yearSpecPattern.MatchString(s)
}

// registrationYear keeps the year of a "MM/YYYY" or "YYYY" snippet.
func registrationYear(s string) *string {
	parts := strings.Split(s, "/")
	return firstString(parts[len(parts)-1])
}

func domPower(s string) *int {
	if m := domPowerPattern.FindStringSubmatch(s); m != nil {
		return digitsToInt(m[1])
	}
	return nil
}

func trimmed(s string) *string { return firstString(s) }

// titleText joins the text of every title element of the card. A title may be
// split across sibling elements, e.g. one for the make and one for the model.
func titleText(sel *goquery.Selection) string {
	var parts []string
	sel.Find(titleSelector).Not(titleSelector + " " + titleSelector).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// idFromHref reads the identifier from a detail link: the last path segment
// up to its first hyphen.
func idFromHref(href string) *string {
	p := href
	if u, err := url.Parse(href); err == nil {
		p = u.Path
	}
	segment := path.Base(strings.TrimRight(p, "/"))
	if segment == "." || segment == "/" {
		return nil
	}
	if i := strings.Index(segment, "-"); i >= 0 {
		segment = segment[:i]
	}
	return firstString(segment)
}
