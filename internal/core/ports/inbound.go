package ports

import (
	"context"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

// CorpusLoader is the inbound contract for ingestion jobs.
type CorpusLoader interface {
	Load(ctx context.Context, policy domain.LoadPolicy) (*domain.LoadSummary, error)
}

// ChatService is the inbound contract for retrieval-augmented answering.
type ChatService interface {
	Answer(ctx context.Context, question string, history []domain.ChatTurn) (*domain.Answer, error)
}

// StatusReader is the inbound read model for load-state polling.
type StatusReader interface {
	ListStatuses(ctx context.Context) ([]domain.FileLoadStatus, error)
}
