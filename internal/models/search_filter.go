package models

// SearchFilter describes the search used to build the seed URL.
// Range bounds are kept as their textual form; an empty string means absent.
type SearchFilter struct {
	Countries   []string
	Make        string
	Model       string
	PriceFrom   string
	PriceTo     string
	YearFrom    string
	YearTo      string
	MileageFrom string
	MileageTo   string
	FuelType    string
}
