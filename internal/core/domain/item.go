package domain

type Item struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Quantity     int    `json:"quantity"`
	Unit         string `json:"unit"`
	MinThreshold int    `json:"min_threshold"`
}

func (i Item) IsLowStock() bool {
	return i.Quantity < i.MinThreshold
}
