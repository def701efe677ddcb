package model

// FloorDescriptor is the normalized result of parsing a listing's floor text
type FloorDescriptor struct {
	IsBasement  bool   `json:"isBasement"`
	IsHighFloor bool   `json:"isHighFloor"`
	IsLowFloor  bool   `json:"isLowFloor"` // qualitative "저" marker, kept apart from basement
	Floor       *int   `json:"floor"`      // nil when no floor token is recognized
	RawText     string `json:"rawText"`
}

// Counts summarizes one filtering pass over the listing container
type Counts struct {
	Total   int `json:"total"`
	Hidden  int `json:"hidden"`
	Visible int `json:"visible"`
}

// NewCounts builds Counts keeping visible = total - hidden
func NewCounts(total, hidden int) Counts {
	return Counts{
		Total:   total,
		Hidden:  hidden,
		Visible: total - hidden,
	}
}
