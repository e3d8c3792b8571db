package domain

import "time"

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeText FileType = "text"
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
)

// SourceFile is one declared file of a source. Targets decide whether the
// file feeds the vector corpus, the tabular store, or both.
type SourceFile struct {
	Name    string       `yaml:"name" json:"name"`
	Type    FileType     `yaml:"type" json:"type"`
	Targets []LoadTarget `yaml:"targets" json:"targets"`
}

type Source struct {
	ID    string       `yaml:"id" json:"id"`
	Name  string       `yaml:"name" json:"name"`
	URL   string       `yaml:"url,omitempty" json:"url,omitempty"`
	Files []SourceFile `yaml:"files" json:"files"`
}

func (f SourceFile) HasTarget(target LoadTarget) bool {
	for _, t := range f.Targets {
		if t == target {
			return true
		}
	}
	return false
}

// Chunk is the unit of embedding and retrieval: one window of extracted text
// plus the metadata the agent needs to build a citation for it.
type Chunk struct {
	SourceID      string    `json:"source_id"`
	SourceName    string    `json:"source_name"`
	FileName      string    `json:"file_name"`
	URL           string    `json:"url,omitempty"`
	PageNumber    int       `json:"page_number"`
	Text          string    `json:"text"`
	IngestedAt    time.Time `json:"ingested_at"`
	IngestionYear int       `json:"ingestion_year"`
}

type RetrievedChunk struct {
	SourceName string  `json:"source_name"`
	FileName   string  `json:"file_name"`
	URL        string  `json:"url,omitempty"`
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
