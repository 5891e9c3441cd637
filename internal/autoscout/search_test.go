package autoscout

import (
	"net/url"
	"testing"

	"relentless-autoscout/internal/models"
)

func TestBuildSearchURL(t *testing.T) {
	raw := BuildSearchURL(models.SearchFilter{
		Countries: []string{"D", "A"},
		Make:      "BMW",
		Model:     "3 Series",
		PriceFrom: "5000",
		YearTo:    "2020",
		FuelType:  "diesel",
	})
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://www.autoscout24.com/lst" {
		t.Fatalf("unexpected base: %s", raw)
	}
	q := u.Query()
	want := map[string]string{
		"cy":        "D,A",
		"mmvmk0":    "bmw",
		"mmvmd0":    "3 series",
		"pricefrom": "5000",
		"fregto":    "2020",
		"fuel":      "D",
		"source":    "detailsearch",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("param %s = %q, want %q", k, q.Get(k), v)
		}
	}
	for _, absent := range []string{"priceto", "fregfrom", "kmfrom", "kmto", "page"} {
		if q.Has(absent) {
			t.Fatalf("unexpected param %s in %s", absent, raw)
		}
	}
}

func TestBuildSearchURLNoCountries(t *testing.T) {
	u, err := url.Parse(BuildSearchURL(models.SearchFilter{}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Query().Has("cy") {
		t.Fatalf("empty country list must omit cy: %s", u)
	}
	if u.Query().Get("source") != "detailsearch" {
		t.Fatalf("source marker missing: %s", u)
	}
}

func TestPageURL(t *testing.T) {
	next, err := PageURL("https://www.autoscout24.com/lst?cy=D&page=2", 3)
	if err != nil {
		t.Fatalf("PageURL error: %v", err)
	}
	u, _ := url.Parse(next)
	if u.Query().Get("page") != "3" || u.Query().Get("cy") != "D" {
		t.Fatalf("unexpected next url: %s", next)
	}
	if _, err := PageURL("http://[::1", 2); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestAbsoluteURL(t *testing.T) {
	cases := map[string]string{
		"/offers/x-1":                   "https://www.autoscout24.com/offers/x-1",
		"offers/x-1":                    "https://www.autoscout24.com/offers/x-1",
		"https://cdn.example.com/a.jpg": "https://cdn.example.com/a.jpg",
		"":                              "",
	}
	for in, want := range cases {
		if got := AbsoluteURL(in); got != want {
			t.Fatalf("AbsoluteURL(%q) = %q, want %q", in, got, want)
		}
	}
}
