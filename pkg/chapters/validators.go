package chapters

type ListChaptersQuery struct {
	// OrdinalFrom and OrdinalTo bound the listed ordinals; zero leaves a side
	// open.
	OrdinalFrom int `query:"ordinal_from" json:"ordinal_from,omitempty" validate:"min=0"`
	OrdinalTo   int `query:"ordinal_to" json:"ordinal_to,omitempty" validate:"omitempty,gtefield=OrdinalFrom"`
	// Content includes chapter bodies in the listing.
	Content bool `query:"content" json:"content,omitempty"`
}
