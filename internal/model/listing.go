package model

// PhotoMeta describes a single gallery photo as reported by the renderer.
type PhotoMeta struct {
	URL         string `json:"url"`
	Alt         string `json:"alt,omitempty"`
	Widths      []int  `json:"widths,omitempty"`
	Fingerprint uint64 `json:"fingerprint,omitempty"`
}

// MaxWidth returns the largest rendered width available for the photo.
func (p PhotoMeta) MaxWidth() int {
	max := 0
	for _, w := range p.Widths {
		if w > max {
			max = w
		}
	}
	return max
}

// ListingDocument is the structured snapshot returned by the render/extraction
// gateway for one listing address.
type ListingDocument struct {
	Address         string      `json:"address"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary"`
	Description     string      `json:"description"`
	FullText        string      `json:"full_text"`
	AmenitiesListed []string    `json:"amenities_listed"`
	HouseRules      []string    `json:"house_rules"`
	Reviews         []string    `json:"reviews"`
	Photos          []PhotoMeta `json:"photos"`
}
