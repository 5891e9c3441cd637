package autoscout

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"relentless-autoscout/internal/models"
)

// jsonText holds a JSON string or number as text. Objects, arrays and
// booleans are ignored so one odd field never fails the whole page.
type jsonText string

func (t *jsonText) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = jsonText(s)
	case '{', '[', 't', 'f':
	default:
		*t = jsonText(b)
	}
	return nil
}

func (t jsonText) String() string { return strings.TrimSpace(string(t)) }

// digits parses the text with every non-digit removed.
func (t jsonText) digits() *int { return digitsToInt(string(t)) }

// number parses the text as a plain JSON number, truncating fractions.
func (t jsonText) number() *int {
	v, err := strconv.ParseFloat(t.String(), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n := int(v)
	return &n
}

// objectOnly decodes b into v when b is a JSON object and leaves v untouched
// otherwise.
func objectOnly(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	return json.Unmarshal(b, v)
}

// lenientList decodes a JSON array; any other value leaves the list nil.
type lenientList[T any] []T

func (l *lenientList[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '[' {
		*l = nil
		return nil
	}
	var items []T
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	*l = items
	return nil
}

type nextData struct {
	Props struct {
		PageProps *pageProps `json:"pageProps"`
	} `json:"props"`
}

type pageProps struct {
	Listings      lenientList[rawListing] `json:"listings"`
	NumberOfPages jsonText                `json:"numberOfPages"`
	Pagination    rawPagination           `json:"pagination"`
	SearchResult  rawSearchResult         `json:"searchResult"`
}

func (p *pageProps) UnmarshalJSON(b []byte) error {
	type plain pageProps
	return objectOnly(b, (*plain)(p))
}

type rawPagination struct {
	TotalPages jsonText `json:"totalPages"`
}

func (p *rawPagination) UnmarshalJSON(b []byte) error {
	type plain rawPagination
	return objectOnly(b, (*plain)(p))
}

type rawSearchResult struct {
	Listings      lenientList[rawListing] `json:"listings"`
	NumberOfPages jsonText                `json:"numberOfPages"`
}

func (r *rawSearchResult) UnmarshalJSON(b []byte) error {
	type plain rawSearchResult
	return objectOnly(b, (*plain)(r))
}

// rawListings returns pageProps.listings when present, else searchResult.listings.
func (p *pageProps) rawListings() []rawListing {
	if p.Listings != nil {
		return p.Listings
	}
	return p.SearchResult.Listings
}

// totalPages reads the pagination hint, defaulting to 1.
func (p *pageProps) totalPages() int {
	for _, hint := range []jsonText{p.NumberOfPages, p.Pagination.TotalPages, p.SearchResult.NumberOfPages} {
		if n := hint.number(); n != nil && *n >= 1 {
			return *n
		}
	}
	return 1
}

// Every raw type tolerates values of the wrong JSON kind: a mismatched field
// reads as empty instead of failing the page.
type rawListing struct {
	ID             jsonText               `json:"id"`
	URL            jsonText               `json:"url"`
	Price          rawPrice               `json:"price"`
	Vehicle        rawVehicle             `json:"vehicle"`
	Tracking       rawTracking            `json:"tracking"`
	Seller         rawSeller              `json:"seller"`
	Location       rawLocation            `json:"location"`
	Images         lenientList[rawImage]  `json:"images"`
	Image          *rawImage              `json:"image"`
	VehicleDetails lenientList[rawDetail] `json:"vehicleDetails"`
}

func (l *rawListing) UnmarshalJSON(b []byte) error {
	type plain rawListing
	return objectOnly(b, (*plain)(l))
}

type rawPrice struct {
	PriceRaw       jsonText `json:"priceRaw"`
	PriceFormatted jsonText `json:"priceFormatted"`
	Currency       jsonText `json:"currency"`
}

// UnmarshalJSON also accepts a bare number as the raw price.
func (p *rawPrice) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		return p.PriceRaw.UnmarshalJSON(b)
	}
	type plain rawPrice
	return json.Unmarshal(b, (*plain)(p))
}

type rawVehicle struct {
	Make                  jsonText `json:"make"`
	Model                 jsonText `json:"model"`
	ModelVersionInput     jsonText `json:"modelVersionInput"`
	Variant               jsonText `json:"variant"`
	MileageInKmRaw        jsonText `json:"mileageInKmRaw"`
	MileageInKm           jsonText `json:"mileageInKm"`
	FirstRegistrationDate jsonText `json:"firstRegistrationDate"`
	FirstRegistration     jsonText `json:"firstRegistration"`
	Fuel                  jsonText `json:"fuel"`
	FuelType              jsonText `json:"fuelType"`
	Transmission          jsonText `json:"transmission"`
	TransmissionType      jsonText `json:"transmissionType"`
	Gearbox               jsonText `json:"gearbox"`
	BodyType              jsonText `json:"bodyType"`
	NumberOfDoors         jsonText `json:"numberOfDoors"`
	Doors                 jsonText `json:"doors"`
	NumberOfSeats         jsonText `json:"numberOfSeats"`
	Seats                 jsonText `json:"seats"`
}

func (v *rawVehicle) UnmarshalJSON(b []byte) error {
	type plain rawVehicle
	return objectOnly(b, (*plain)(v))
}

type rawTracking struct {
	Make              jsonText `json:"make"`
	Model             jsonText `json:"model"`
	Price             jsonText `json:"price"`
	Mileage           jsonText `json:"mileage"`
	FirstRegistration jsonText `json:"firstRegistration"`
	FuelType          jsonText `json:"fuelType"`
	BodyType          jsonText `json:"bodyType"`
	SellerType        jsonText `json:"sellerType"`
}

func (t *rawTracking) UnmarshalJSON(b []byte) error {
	type plain rawTracking
	return objectOnly(b, (*plain)(t))
}

type rawSeller struct {
	CompanyName jsonText `json:"companyName"`
	ContactName jsonText `json:"contactName"`
	Name        jsonText `json:"name"`
	Type        jsonText `json:"type"`
}

func (s *rawSeller) UnmarshalJSON(b []byte) error {
	type plain rawSeller
	return objectOnly(b, (*plain)(s))
}

type rawLocation struct {
	City        jsonText `json:"city"`
	CountryCode jsonText `json:"countryCode"`
	Country     jsonText `json:"country"`
	Zip         jsonText `json:"zip"`
	ZipCode     jsonText `json:"zipCode"`
}

func (l *rawLocation) UnmarshalJSON(b []byte) error {
	type plain rawLocation
	return objectOnly(b, (*plain)(l))
}

// rawImage is either a bare URL string or an object with a url field.
type rawImage struct {
	URL jsonText `json:"url"`
}

func (i *rawImage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return i.URL.UnmarshalJSON(b)
	}
	type plain rawImage
	return objectOnly(b, (*plain)(i))
}

type rawDetail struct {
	Data      jsonText `json:"data"`
	AriaLabel jsonText `json:"ariaLabel"`
	Label     jsonText `json:"label"`
}

func (d *rawDetail) UnmarshalJSON(b []byte) error {
	type plain rawDetail
	return objectOnly(b, (*plain)(d))
}

func (d rawDetail) label() string {
	if l := d.AriaLabel.String(); l != "" {
		return l
	}
	return d.Label.String()
}

// Fallback chains. Each accessor reads one source field; the first non-empty
// value wins.
type (
	textField func(*rawListing) string
	intField  func(*rawListing) *int
)

var (
	makeChain = []textField{
		func(l *rawListing) string { return l.Vehicle.Make.String() },
		func(l *rawListing) string { return l.Tracking.Make.String() },
	}
	modelChain = []textField{
		func(l *rawListing) string { return l.Vehicle.Model.String() },
		func(l *rawListing) string { return l.Tracking.Model.String() },
	}
	versionChain = []textField{
		func(l *rawListing) string { return l.Vehicle.ModelVersionInput.String() },
		func(l *rawListing) string { return l.Vehicle.Variant.String() },
	}
	registrationChain = []textField{
		func(l *rawListing) string { return l.Tracking.FirstRegistration.String() },
		func(l *rawListing) string { return l.Vehicle.FirstRegistrationDate.String() },
		func(l *rawListing) string { return l.Vehicle.FirstRegistration.String() },
	}
	fuelChain = []textField{
		func(l *rawListing) string { return l.Vehicle.Fuel.String() },
		func(l *rawListing) string { return l.Vehicle.FuelType.String() },
		func(l *rawListing) string { return l.Tracking.FuelType.String() },
	}
	transmissionChain = []textField{
		func(l *rawListing) string { return l.Vehicle.Transmission.String() },
		func(l *rawListing) string { return l.Vehicle.TransmissionType.String() },
		func(l *rawListing) string { return l.Vehicle.Gearbox.String() },
	}
	bodyTypeChain = []textField{
		func(l *rawListing) string { return l.Vehicle.BodyType.String() },
		func(l *rawListing) string { return l.Tracking.BodyType.String() },
	}
	sellerNameChain = []textField{
		func(l *rawListing) string { return l.Seller.CompanyName.String() },
		func(l *rawListing) string { return l.Seller.ContactName.String() },
		func(l *rawListing) string { return l.Seller.Name.String() },
	}
	sellerTypeChain = []textField{
		func(l *rawListing) string { return l.Seller.Type.String() },
		func(l *rawListing) string { return l.Tracking.SellerType.String() },
	}
	cityChain = []textField{
		func(l *rawListing) string { return l.Location.City.String() },
	}
	countryChain = []textField{
		func(l *rawListing) string { return l.Location.CountryCode.String() },
		func(l *rawListing) string { return l.Location.Country.String() },
	}
	zipChain = []textField{
		func(l *rawListing) string { return l.Location.Zip.String() },
		func(l *rawListing) string { return l.Location.ZipCode.String() },
	}

	priceChain = []intField{
		func(l *rawListing) *int { return l.Tracking.Price.digits() },
		func(l *rawListing) *int { return l.Price.PriceRaw.number() },
		func(l *rawListing) *int { return l.Price.PriceFormatted.digits() },
	}
	mileageChain = []intField{
		func(l *rawListing) *int { return l.Vehicle.MileageInKmRaw.number() },
		func(l *rawListing) *int { return l.Vehicle.MileageInKm.digits() },
		func(l *rawListing) *int { return l.Tracking.Mileage.digits() },
	}
	doorsChain = []intField{
		func(l *rawListing) *int { return l.Vehicle.NumberOfDoors.digits() },
		func(l *rawListing) *int { return l.Vehicle.Doors.digits() },
	}
	seatsChain = []intField{
		func(l *rawListing) *int { return l.Vehicle.NumberOfSeats.digits() },
		func(l *rawListing) *int { return l.Vehicle.Seats.digits() },
	}
)

func pickText(l *rawListing, chain []textField) *string {
	for _, get := range chain {
		if v := firstString(get(l)); v != nil {
			return v
		}
	}
	return nil
}

func pickInt(l *rawListing, chain []intField) *int {
	for _, get := range chain {
		if v := get(l); v != nil {
			return v
		}
	}
	return nil
}

// priceFromStructured applies the price chain: tracking price digits, then the
// raw numeric price, then the formatted price digits.
func priceFromStructured(l *rawListing) *int {
	return pickInt(l, priceChain)
}

// PowerFromDetails finds the "Power" details entry and reads hp and kW from it.
func PowerFromDetails(details []rawDetail) (hp, kw *int) {
	for _, d := range details {
		if d.label() == powerDetailLabel {
			return parsePowerText(d.Data.String())
		}
	}
	return nil, nil
}

// imageFromStructured takes the first images entry, else image.url.
func imageFromStructured(l *rawListing) *string {
	if len(l.Images) > 0 {
		if v := firstString(l.Images[0].URL.String()); v != nil {
			return v
		}
	}
	if l.Image != nil {
		return firstString(l.Image.URL.String())
	}
	return nil
}

// detailURL resolves the listing link, synthesizing /offers/<id> when the
// item carries an identifier but no link.
func detailURL(l *rawListing) string {
	if u := AbsoluteURL(l.URL.String()); u != "" {
		return u
	}
	if id := l.ID.String(); id != "" {
		return AbsoluteURL("/offers/" + id)
	}
	return ""
}

// extractStructured normalizes one embedded listing. It reports false when no
// absolute detail URL can be derived.
func extractStructured(l *rawListing) (models.ListingRecord, bool) {
	link := detailURL(l)
	if link == "" {
		return models.ListingRecord{}, false
	}
	hp, kw := PowerFromDetails(l.VehicleDetails)
	currency := l.Price.Currency.String()
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return models.ListingRecord{
		ID:                firstString(l.ID.String()),
		Make:              pickText(l, makeChain),
		Model:             pickText(l, modelChain),
		Version:           pickText(l, versionChain),
		Price:             priceFromStructured(l),
		Currency:          currency,
		MileageKm:         pickInt(l, mileageChain),
		FirstRegistration: pickText(l, registrationChain),
		FuelType:          pickText(l, fuelChain),
		Transmission:      pickText(l, transmissionChain),
		PowerHP:           hp,
		PowerKW:           kw,
		BodyType:          pickText(l, bodyTypeChain),
		Color:             ColorFromURL(link),
		NumDoors:          pickInt(l, doorsChain),
		NumSeats:          pickInt(l, seatsChain),
		SellerName:        pickText(l, sellerNameChain),
		SellerType:        pickText(l, sellerTypeChain),
		LocationCity:      pickText(l, cityChain),
		LocationCountry:   pickText(l, countryChain),
		LocationZip:       pickText(l, zipChain),
		ImageURL:          imageFromStructured(l),
		URL:               link,
	}, true
}

// decodeNextData locates and decodes the page-state blob. A missing or
// malformed blob yields nil.
func decodeNextData(raw []byte) *pageProps {
	m := nextDataPattern.FindSubmatch(raw)
	if m == nil {
		return nil
	}
	var data nextData
	if err := json.Unmarshal(m[1], &data); err != nil {
		return nil
	}
	return data.Props.PageProps
}

// ExtractStructuredPage returns the normalized listings and page hint from the
// embedded blob. ok is false when the blob is missing or malformed.
func ExtractStructuredPage(raw []byte) (listings []models.ListingRecord, totalPages int, ok bool) {
	props := decodeNextData(raw)
	if props == nil {
		return nil, 1, false
	}
	items := props.rawListings()
	for i := range items {
		if rec, ok := extractStructured(&items[i]); ok {
			listings = append(listings, rec)
		}
	}
	return listings, props.totalPages(), true
}
