package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

// VectorFileLoader turns one declared file into embedded chunks: extract,
// split, embed chunk by chunk, then persist the whole batch in one call.
type VectorFileLoader struct {
	statuses   ports.StatusRegistry
	extractors map[domain.FileType]ports.TextExtractor
	chunker    ports.Chunker
	embedder   ports.Embedder
	vectorDB   ports.VectorStore
	limiter    *rate.Limiter
	now        func() time.Time
}

func NewVectorFileLoader(
	statuses ports.StatusRegistry,
	extractors map[domain.FileType]ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	limiter *rate.Limiter,
) *VectorFileLoader {
	return &VectorFileLoader{
		statuses:   statuses,
		extractors: extractors,
		chunker:    chunker,
		embedder:   embedder,
		vectorDB:   vectorDB,
		limiter:    limiter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (l *VectorFileLoader) LoadFile(ctx context.Context, source domain.Source, file domain.SourceFile) error {
	if err := l.setStatus(ctx, source, file, domain.StatusLoading, ""); err != nil {
		return err
	}

	chunks, err := l.process(ctx, source, file)
	if err != nil {
		if failErr := l.setStatus(ctx, source, file, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	return l.setStatus(ctx, source, file, domain.StatusLoaded, fmt.Sprintf("Loaded %d chunks", chunks))
}

func (l *VectorFileLoader) process(ctx context.Context, source domain.Source, file domain.SourceFile) (int, error) {
	extractor, ok := l.extractors[file.Type]
	if !ok {
		return 0, fmt.Errorf("no text extractor for file type %q", file.Type)
	}

	text, err := extractor.Extract(ctx, file.Name)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	texts := l.chunker.Split(text)
	if len(texts) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "split text", errors.New("chunking produced zero chunks"))
	}

	total := len(texts)
	if err := l.reportProgress(ctx, source, file, 0, total); err != nil {
		return 0, err
	}

	// Progress is written roughly every 5% of chunks, every chunk for small
	// files, and always for the last one. Pollers parse the rendered message,
	// so the update cadence decides how smooth their percentage looks.
	stride := total / 20
	if stride < 1 {
		stride = 1
	}

	ingestedAt := l.now()
	vectors := make([][]float32, 0, total)
	records := make([]domain.Chunk, 0, total)

	for i, chunkText := range texts {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return 0, fmt.Errorf("wait for embed slot: %w", err)
			}
		}

		batch, err := l.embedder.Embed(ctx, []string{chunkText})
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d/%d: %w", i+1, total, err)
		}
		if len(batch) != 1 {
			return 0, fmt.Errorf("embed chunk %d/%d: got %d vectors", i+1, total, len(batch))
		}
		vectors = append(vectors, batch[0])

		records = append(records, domain.Chunk{
			SourceID:      source.ID,
			SourceName:    source.Name,
			FileName:      file.Name,
			URL:           source.URL,
			PageNumber:    i + 1,
			Text:          chunkText,
			IngestedAt:    ingestedAt,
			IngestionYear: ingestedAt.Year(),
		})

		current := i + 1
		if current == total || current%stride == 0 {
			if err := l.reportProgress(ctx, source, file, current, total); err != nil {
				return 0, err
			}
		}
	}

	if err := l.vectorDB.AddDocuments(ctx, records, vectors); err != nil {
		return 0, fmt.Errorf("persist chunks: %w", err)
	}
	return total, nil
}

func (l *VectorFileLoader) reportProgress(ctx context.Context, source domain.Source, file domain.SourceFile, current, total int) error {
	progress := domain.Progress{Current: current, Total: total}
	return l.setStatus(ctx, source, file, domain.StatusLoading, progress.Message())
}

func (l *VectorFileLoader) setStatus(ctx context.Context, source domain.Source, file domain.SourceFile, status domain.LoadStatus, message string) error {
	row := domain.FileLoadStatus{
		SourceID:  source.ID,
		FileName:  file.Name,
		Target:    domain.TargetVector,
		Status:    status,
		Message:   message,
		SourceURL: source.URL,
		UpdatedAt: l.now(),
	}
	if err := l.statuses.UpsertStatus(ctx, row); err != nil {
		return fmt.Errorf("set status=%s for %s: %w", status, file.Name, err)
	}
	return nil
}
