package ports

import (
	"context"
	"io"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

// StatusRegistry persists per-file load state. The state machine is
// intentionally permissive: any status may be written over any other.
type StatusRegistry interface {
	GetStatus(ctx context.Context, sourceID, fileName string, target domain.LoadTarget) (*domain.FileLoadStatus, error)
	UpsertStatus(ctx context.Context, row domain.FileLoadStatus) error
	ListStatuses(ctx context.Context) ([]domain.FileLoadStatus, error)
	ResetStatuses(ctx context.Context, targets []domain.LoadTarget) error
}

// JobGuard is the in-process half of the ingestion lock: non-blocking,
// single-flight per job name. TryAcquire returns an idempotent release
// function, or domain.ErrLoadInProgress while the job is held.
type JobGuard interface {
	TryAcquire(job string) (func(), error)
}

// LockStore is the cross-instance half of the ingestion lock. Acquire races
// are settled by the store's uniqueness constraint; release is scoped to the
// acquiring instance.
type LockStore interface {
	AcquireJob(ctx context.Context, jobName, instanceID string) error
	ReleaseJob(ctx context.Context, jobName, instanceID string) error
	Heartbeat(ctx context.Context, instanceID string) error
}

// FileStore opens declared source files for extraction.
type FileStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// TextExtractor turns one source file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, fileName string) (string, error)
}

// TabularParser parses a delimited or spreadsheet file into typed rows,
// collecting row-level problems instead of failing the whole file.
type TabularParser interface {
	Parse(ctx context.Context, fileName string) ([]domain.Observation, []error, error)
}

// Chunker splits extracted text into overlapping fixed-size windows.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text. Ingestion and query
// vectors must come from the same model so they stay comparable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore owns the embedded chunk corpus.
type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// TabularStore owns normalized economic observations.
type TabularStore interface {
	UpsertObservations(ctx context.Context, rows []domain.Observation) error
	QueryObservations(ctx context.Context, areaCode string, year, month int) ([]domain.Observation, error)
	Clear(ctx context.Context) error
}

// ReasoningModel runs one turn of the tool-calling conversation.
type ReasoningModel interface {
	Complete(ctx context.Context, messages []domain.ModelMessage, tools []domain.ToolDefinition) (*domain.ModelReply, error)
}

// EconDataClient answers the agent's live data functions that are not backed
// by the tabular store.
type EconDataClient interface {
	GDPGrowth(ctx context.Context, countryCode, period string) (string, error)
	ExchangeRate(ctx context.Context, base, quote string) (string, error)
}

// LoadQueue distributes load requests to worker instances.
type LoadQueue interface {
	PublishLoadRequest(ctx context.Context, policy domain.LoadPolicy) error
	SubscribeLoadRequests(ctx context.Context, handler func(context.Context, domain.LoadPolicy) error) error
}
