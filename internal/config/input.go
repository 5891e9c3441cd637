package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"relentless-autoscout/internal/autoscout"
	"relentless-autoscout/internal/models"
)

const (
	DefaultResultsWanted = 50
	DefaultMaxPages      = 10
	// MaxPagesCeiling bounds max_pages regardless of input.
	MaxPagesCeiling = 20
)

// DefaultCountries is used when the input does not mention countries at all.
var DefaultCountries = []string{"D", "A", "I", "B", "NL", "E", "L", "F"}

// Scalar is an input value that may arrive as a JSON string or number.
type Scalar struct {
	Text string
	Set  bool
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*s = Scalar{}
		return nil
	}
	if b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		*s = Scalar{Text: strings.TrimSpace(text), Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		// Booleans, arrays and objects read as unset so defaults apply.
		*s = Scalar{}
		return nil
	}
	*s = Scalar{Text: n.String(), Set: true}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Text)
}

// Int parses the value as a finite number, truncating any fraction.
func (s Scalar) Int() (int, bool) {
	if !s.Set {
		return 0, false
	}
	v, err := strconv.ParseFloat(s.Text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	return int(v), true
}

// filterValue renders a filter value for a URL, treating zero as absent.
// Non-numeric text is passed through unchanged.
func (s Scalar) filterValue() string {
	if !s.Set || s.Text == "" {
		return ""
	}
	if n, ok := s.Int(); ok && n == 0 {
		return ""
	}
	return s.Text
}

// StartURL is a seed given either as a bare string or as {"url": "..."}.
type StartURL struct {
	URL string `json:"url"`
}

func (u *StartURL) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) > 0 && b[0] == '"':
		return json.Unmarshal(b, &u.URL)
	case len(b) > 0 && b[0] == '{':
		type plain StartURL
		return json.Unmarshal(b, (*plain)(u))
	}
	return nil
}

// ProxyConfiguration carries explicit proxy URLs for the transport pool.
type ProxyConfiguration struct {
	ProxyURLs []string `json:"proxyUrls"`
}

// CrawlInput is the user-facing crawl request.
type CrawlInput struct {
	StartURLs          []StartURL          `json:"startUrls,omitempty"`
	Countries          *[]string           `json:"countries,omitempty"`
	Make               string              `json:"make,omitempty"`
	Model              string              `json:"model,omitempty"`
	PriceFrom          Scalar              `json:"priceFrom"`
	PriceTo            Scalar              `json:"priceTo"`
	YearFrom           Scalar              `json:"yearFrom"`
	YearTo             Scalar              `json:"yearTo"`
	MileageFrom        Scalar              `json:"mileageFrom"`
	MileageTo          Scalar              `json:"mileageTo"`
	FuelType           string              `json:"fuelType,omitempty"`
	ResultsWanted      Scalar              `json:"results_wanted"`
	MaxPages           Scalar              `json:"max_pages"`
	CollectDetails     bool                `json:"collectDetails,omitempty"`
	ProxyConfiguration *ProxyConfiguration `json:"proxyConfiguration,omitempty"`
}

// DecodeInput reads a crawl input document. An empty document is a valid
// input with every option defaulted.
func DecodeInput(r io.Reader) (CrawlInput, error) {
	var in CrawlInput
	raw, err := io.ReadAll(r)
	if err != nil {
		return in, fmt.Errorf("read crawl input: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode crawl input: %w", err)
	}
	return in, nil
}

// TargetCount is results_wanted coerced: default 50, at least 1.
func (in CrawlInput) TargetCount() int {
	v, ok := in.ResultsWanted.Int()
	if !ok {
		return DefaultResultsWanted
	}
	if v < 1 {
		return 1
	}
	return v
}

// PageCap is max_pages coerced: default 10, clamped to [1, 20].
func (in CrawlInput) PageCap() int {
	v, ok := in.MaxPages.Int()
	if !ok {
		return DefaultMaxPages
	}
	if v < 1 {
		return 1
	}
	if v > MaxPagesCeiling {
		return MaxPagesCeiling
	}
	return v
}

// ToFilter maps the input onto a search filter.
func (in CrawlInput) ToFilter() models.SearchFilter {
	countries := DefaultCountries
	if in.Countries != nil {
		countries = *in.Countries
	}
	return models.SearchFilter{
		Countries:   append([]string(nil), countries...),
		Make:        strings.TrimSpace(in.Make),
		Model:       strings.TrimSpace(in.Model),
		PriceFrom:   in.PriceFrom.filterValue(),
		PriceTo:     in.PriceTo.filterValue(),
		YearFrom:    in.YearFrom.filterValue(),
		YearTo:      in.YearTo.filterValue(),
		MileageFrom: in.MileageFrom.filterValue(),
		MileageTo:   in.MileageTo.filterValue(),
		FuelType:    strings.TrimSpace(in.FuelType),
	}
}

// Seeds returns the start URLs in input order. When none are usable a single
// URL is built from the filter fields.
func (in CrawlInput) Seeds() []string {
	var seeds []string
	for _, u := range in.StartURLs {
		if s := strings.TrimSpace(u.URL); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		seeds = append(seeds, autoscout.BuildSearchURL(in.ToFilter()))
	}
	return seeds
}

// ProxyURLs returns the explicit proxy URLs from proxyConfiguration.
func (in CrawlInput) ProxyURLs() []string {
	if in.ProxyConfiguration == nil {
		return nil
	}
	var out []string
	for _, p := range in.ProxyConfiguration.ProxyURLs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
