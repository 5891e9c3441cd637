package models

// ListingRecord is the normalized vehicle listing emitted by a crawl.
// Every field except URL is nullable; URL is always absolute.
type ListingRecord struct {
	ID                *string `json:"id"`
	Make              *string `json:"make"`
	Model             *string `json:"model"`
	Version           *string `json:"version"`
	Price             *int    `json:"price"`
	Currency          string  `json:"currency"`
	MileageKm         *int    `json:"mileage_km"`
	FirstRegistration *string `json:"first_registration"`
	FuelType          *string `json:"fuel_type"`
	Transmission      *string `json:"transmission"`
	PowerHP           *int    `json:"power_hp"`
	PowerKW           *int    `json:"power_kw"`
	BodyType          *string `json:"body_type"`
	Color             *string `json:"color"`
	NumDoors          *int    `json:"num_doors"`
	NumSeats          *int    `json:"num_seats"`
	SellerName        *string `json:"seller_name"`
	SellerType        *string `json:"seller_type"`
	LocationCity      *string `json:"location_city"`
	LocationCountry   *string `json:"location_country"`
	LocationZip       *string `json:"location_zip"`
	ImageURL          *string `json:"image_url"`
	URL               string  `json:"url"`
}

// DefaultCurrency is used when a listing does not state its currency.
const DefaultCurrency = "EUR"

// Key returns the listing identifier, or "" when the listing has none.
func (l ListingRecord) Key() string {
	if l.ID == nil {
		return ""
	}
	return *l.ID
}

// StringPtr returns nil for an empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
