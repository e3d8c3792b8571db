package domain

import "fmt"

// Observation is one normalized economic data point. (AreaCode, Period) is
// the natural key; re-ingestion upserts by it.
type Observation struct {
	AreaCode string  `json:"area_code"`
	AreaName string  `json:"area_name"`
	Period   string  `json:"period"`
	Value    float64 `json:"value"`
}

func (o Observation) Key() string {
	return fmt.Sprintf("%s|%s", o.AreaCode, o.Period)
}
