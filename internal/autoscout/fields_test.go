package autoscout

import "testing"

func TestColorFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.autoscout24.com/offers/bmw-320-diesel-blue-metallic-12345", "Blue"},
		{"https://www.autoscout24.com/offers/bmw-320-diesel-white-12345", "White"},
		{"/offers/opel-corsa-grey-abc?ipc=list", "Grey"},
		{"https://www.autoscout24.com/offers/12345", ""},
		{"https://www.autoscout24.com/offers/bmw-320-2019-12345", ""},
		{"", ""},
	}
	for _, tc := range cases {
		got := ColorFromURL(tc.url)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("ColorFromURL(%q) = %q, want nil", tc.url, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Fatalf("ColorFromURL(%q) = %v, want %q", tc.url, got, tc.want)
		}
	}
}

func TestPowerFromDetails(t *testing.T) {
	hp, kw := PowerFromDetails([]rawDetail{
		{Data: "1,995 cc", AriaLabel: "Engine size"},
		{Data: "110 kW (150 hp)", Label: "Power"},
	})
	if hp == nil || *hp != 150 {
		t.Fatalf("unexpected hp: %v", hp)
	}
	if kw == nil || *kw != 110 {
		t.Fatalf("unexpected kw: %v", kw)
	}

	hp, kw = PowerFromDetails([]rawDetail{{Data: "85 kW", AriaLabel: "Power"}})
	if hp != nil || kw == nil || *kw != 85 {
		t.Fatalf("expected only kw, got hp=%v kw=%v", hp, kw)
	}

	if hp, kw := PowerFromDetails(nil); hp != nil || kw != nil {
		t.Fatalf("expected nil power for missing details")
	}
}

func TestPriceFromStructuredOrder(t *testing.T) {
	l := &rawListing{
		Tracking: rawTracking{Price: "12,500"},
		Price:    rawPrice{PriceRaw: "13000", PriceFormatted: "€ 14.000"},
	}
	if got := priceFromStructured(l); got == nil || *got != 12500 {
		t.Fatalf("tracking price should win, got %v", got)
	}
	l.Tracking.Price = ""
	if got := priceFromStructured(l); got == nil || *got != 13000 {
		t.Fatalf("raw price should win, got %v", got)
	}
	l.Price.PriceRaw = ""
	if got := priceFromStructured(l); got == nil || *got != 14000 {
		t.Fatalf("formatted price should win, got %v", got)
	}
	l.Price.PriceFormatted = "on request"
	if got := priceFromStructured(l); got != nil {
		t.Fatalf("expected nil price, got %d", *got)
	}
}

func TestImageFromStructured(t *testing.T) {
	l := &rawListing{Image: &rawImage{URL: "https://img.example.com/fallback.jpg"}}
	if got := imageFromStructured(l); got == nil || *got != "https://img.example.com/fallback.jpg" {
		t.Fatalf("expected image.url fallback, got %v", got)
	}
	l.Images = []rawImage{{URL: "https://img.example.com/first.jpg"}, {URL: "https://img.example.com/second.jpg"}}
	if got := imageFromStructured(l); got == nil || *got != "https://img.example.com/first.jpg" {
		t.Fatalf("expected first image, got %v", got)
	}
}

func TestParsePriceText(t *testing.T) {
	cases := map[string]int{
		"€ 15.000,-":  15000,
		"CHF 9,990.-": 9990,
		"€ 1.234.567": 1234567,
	}
	for in, want := range cases {
		if got := parsePriceText(in); got == nil || *got != want {
			t.Fatalf("parsePriceText(%q) = %v, want %d", in, got, want)
		}
	}
	if got := parsePriceText("Price on request"); got != nil {
		t.Fatalf("expected nil, got %d", *got)
	}
}
