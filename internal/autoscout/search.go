package autoscout

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"relentless-autoscout/internal/models"
)

// Origin is the canonical site origin used to resolve relative links.
const Origin = "https://www.autoscout24.com"

const (
	searchPath = "/lst"
	pageParam  = "page"

	// sourceMarker tags the traffic source on every generated search URL.
	sourceParam  = "source"
	sourceMarker = "detailsearch"
)

// BuildSearchURL builds the seed search URL for a filter. Absent fields are
// omitted entirely.
func BuildSearchURL(filter models.SearchFilter) string {
	u, _ := url.Parse(Origin + searchPath)
	q := url.Values{}
	if len(filter.Countries) > 0 {
		q.Set("cy", strings.Join(filter.Countries, ","))
	}
	setIf(q, "mmvmk0", strings.ToLower(filter.Make))
	setIf(q, "mmvmd0", strings.ToLower(filter.Model))
	setIf(q, "pricefrom", filter.PriceFrom)
	setIf(q, "priceto", filter.PriceTo)
	setIf(q, "fregfrom", filter.YearFrom)
	setIf(q, "fregto", filter.YearTo)
	setIf(q, "kmfrom", filter.MileageFrom)
	setIf(q, "kmto", filter.MileageTo)
	if fuel := strings.TrimSpace(filter.FuelType); fuel != "" {
		q.Set("fuel", strings.ToUpper(string([]rune(fuel)[:1])))
	}
	q.Set(sourceParam, sourceMarker)
	u.RawQuery = q.Encode()
	return u.String()
}

func setIf(q url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		q.Set(key, value)
	}
}

// PageURL returns raw with its page query parameter set to page.
func PageURL(raw string, page int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse page url: %w", err)
	}
	q := u.Query()
	q.Set(pageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// AbsoluteURL resolves a link found on a page against Origin.
// It returns "" when href is empty or cannot be parsed.
func AbsoluteURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	base, _ := url.Parse(Origin)
	if !strings.HasPrefix(ref.Path, "/") && ref.Host == "" {
		ref.Path = "/" + ref.Path
	}
	return base.ResolveReference(ref).String()
}
