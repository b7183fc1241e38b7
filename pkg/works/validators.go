package works

type ListWorksQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Ranked bool `query:"ranked" json:"ranked,omitempty"`
}
