package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mirceapaciu/econ-assistant/internal/config"
	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
	"github.com/mirceapaciu/econ-assistant/internal/core/usecase"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/chunking"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/econdata"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/extractor/pdfdoc"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/joblock"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/llm/openai"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/queue/nats"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/repository/postgres"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/resilience"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/storage/localfs"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/tabular"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config     config.Config
	Sources    []domain.Source
	InstanceID string

	Queue    *nats.Queue
	Locks    *postgres.LockRepository
	Statuses ports.StatusRegistry
	LoadUC   ports.CorpusLoader
	ChatUC   ports.ChatService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources manifest: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	statuses := postgres.NewStatusRepository(db)
	if err := statuses.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure status schema: %w", err)
	}
	tabularStore := postgres.NewTabularRepository(db)
	if err := tabularStore.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure tabular schema: %w", err)
	}
	locks := postgres.NewLockRepository(db, cfg.LockTTL)
	if err := locks.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure lock schema: %w", err)
	}

	files, err := localfs.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init source file store: %w", err)
	}

	// An empty NATS_URL disables the queue: the API then runs loads
	// in-process under the interactive timeout instead of enqueueing.
	var queue *nats.Queue
	if cfg.NATSURL != "" {
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("init load queue: %w", err)
		}
	}

	llmClient := openai.New(cfg.OpenAIURL, cfg.OpenAIAPIKey, cfg.OpenAIChatModel, cfg.OpenAIEmbedModel)
	embedder := openai.NewEmbedder(llmClient)
	chatModel := openai.NewChatModel(llmClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	parser := tabular.NewParser(files)
	econClient := econdata.NewClient(cfg.GDPAPIBaseURL, cfg.FXAPIBaseURL, 15*time.Second, resilience.NewExecutor(resilience.EconDataConfig()))

	extractors := map[domain.FileType]ports.TextExtractor{
		domain.FileTypePDF:  pdfdoc.NewExtractor(files),
		domain.FileTypeText: plaintext.NewExtractor(files),
	}

	var limiter *rate.Limiter
	if cfg.EmbedRatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSecond), 1)
	}

	instanceID := uuid.NewString()
	vectorLoader := usecase.NewVectorFileLoader(statuses, extractors, chunker, embedder, vectorDB, limiter)
	tabularLoader := usecase.NewTabularFileLoader(statuses, parser, tabularStore)
	loadUC := usecase.NewLoadCorpusUseCase(sources, joblock.NewGuard(), locks, statuses, vectorDB, vectorLoader, tabularLoader, instanceID)
	chatUC := usecase.NewChatAgentUseCase(embedder, vectorDB, chatModel, econClient, tabularStore, cfg.ChatTopK, cfg.AgentMaxToolIterations)

	return &App{
		Config:     cfg,
		Sources:    sources,
		InstanceID: instanceID,

		Queue:    queue,
		Locks:    locks,
		Statuses: statuses,
		LoadUC:   loadUC,
		ChatUC:   chatUC,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// LoadQueue adapts the optional queue to its port. A plain interface
// conversion of a nil *nats.Queue would yield a non-nil interface value,
// which the router would then try to publish to.
func (a *App) LoadQueue() ports.LoadQueue {
	if a.Queue == nil {
		return nil
	}
	return a.Queue
}
