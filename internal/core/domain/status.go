package domain

import (
	"fmt"
	"math"
	"time"
)

type LoadTarget string

const (
	TargetVector  LoadTarget = "vector"
	TargetTabular LoadTarget = "tabular"
)

type LoadStatus string

const (
	StatusNotLoaded LoadStatus = "not_loaded"
	StatusLoading   LoadStatus = "loading"
	StatusLoaded    LoadStatus = "loaded"
	StatusFailed    LoadStatus = "failed"
)

type LoadPolicy string

const (
	PolicyMissingOnly LoadPolicy = "missing_only"
	PolicyAll         LoadPolicy = "all"
)

// FileLoadStatus is one row per (source id, file name, target); the triple is
// a unique key in the backing store.
type FileLoadStatus struct {
	SourceID  string     `json:"source_id"`
	FileName  string     `json:"file_name"`
	Target    LoadTarget `json:"target"`
	Status    LoadStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	SourceURL string     `json:"source_url,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Progress is the structured form of the loader's progress channel. Polling
// clients parse the rendered string, so its shape is a contract.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

func (p Progress) Message() string {
	return fmt.Sprintf("Loading %d/%d", p.Current, p.Total)
}

func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(p.Current) / float64(p.Total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

type LoadSummary struct {
	Policy    LoadPolicy        `json:"policy"`
	Processed int               `json:"processed"`
	Skipped   int               `json:"skipped"`
	Failures  map[string]string `json:"failures,omitempty"`
	Duration  time.Duration     `json:"duration"`
}
