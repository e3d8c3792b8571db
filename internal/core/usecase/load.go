package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

const loadJobName = "corpus_load"

// FileLoader processes one declared file for one storage target, owning that
// file's status transitions from loading to loaded or failed.
type FileLoader interface {
	LoadFile(ctx context.Context, source domain.Source, file domain.SourceFile) error
}

type LoadCorpusUseCase struct {
	sources    []domain.Source
	guard      ports.JobGuard
	locks      ports.LockStore
	statuses   ports.StatusRegistry
	vectorDB   ports.VectorStore
	vector     FileLoader
	tabular    FileLoader
	instanceID string
}

func NewLoadCorpusUseCase(
	sources []domain.Source,
	guard ports.JobGuard,
	locks ports.LockStore,
	statuses ports.StatusRegistry,
	vectorDB ports.VectorStore,
	vector FileLoader,
	tabular FileLoader,
	instanceID string,
) *LoadCorpusUseCase {
	return &LoadCorpusUseCase{
		sources:    sources,
		guard:      guard,
		locks:      locks,
		statuses:   statuses,
		vectorDB:   vectorDB,
		vector:     vector,
		tabular:    tabular,
		instanceID: instanceID,
	}
}

// Load runs one ingestion job over the declared sources. A second call while
// a job is running, in this process or in another instance sharing the lock
// store, is refused with domain.ErrLoadInProgress. Per-file failures are
// collected in the summary and never abort the batch.
func (uc *LoadCorpusUseCase) Load(ctx context.Context, policy domain.LoadPolicy) (*domain.LoadSummary, error) {
	switch policy {
	case domain.PolicyMissingOnly, domain.PolicyAll:
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "load corpus", fmt.Errorf("unknown policy %q", policy))
	}

	release, err := uc.guard.TryAcquire(loadJobName)
	if err != nil {
		return nil, err
	}
	defer release()

	if uc.locks != nil {
		if err := uc.locks.AcquireJob(ctx, loadJobName, uc.instanceID); err != nil {
			return nil, err
		}
		// Release must survive a job-level timeout, otherwise the lock row
		// outlives the job until another instance reclaims it by staleness.
		defer func() {
			_ = uc.locks.ReleaseJob(context.WithoutCancel(ctx), loadJobName, uc.instanceID)
		}()
	}

	start := time.Now()

	if policy == domain.PolicyAll {
		if err := uc.vectorDB.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset vector store: %w", err)
		}
		if err := uc.statuses.ResetStatuses(ctx, []domain.LoadTarget{domain.TargetVector, domain.TargetTabular}); err != nil {
			return nil, fmt.Errorf("reset statuses: %w", err)
		}
	}

	if err := uc.initStatuses(ctx); err != nil {
		return nil, err
	}

	summary := &domain.LoadSummary{
		Policy:   policy,
		Failures: make(map[string]string),
	}

	for _, source := range uc.sources {
		for _, file := range source.Files {
			for _, target := range file.Targets {
				if policy == domain.PolicyMissingOnly {
					loaded, err := uc.isLoaded(ctx, source.ID, file.Name, target)
					if err != nil {
						return nil, err
					}
					if loaded {
						summary.Skipped++
						continue
					}
				}

				loader, err := uc.loaderFor(target)
				if err != nil {
					summary.Failures[file.Name] = err.Error()
					continue
				}
				if err := loader.LoadFile(ctx, source, file); err != nil {
					summary.Failures[file.Name] = err.Error()
					continue
				}
				summary.Processed++
			}
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// initStatuses creates missing not_loaded rows so that status listing shows
// every declared (source, file, target) before any processing starts.
func (uc *LoadCorpusUseCase) initStatuses(ctx context.Context) error {
	for _, source := range uc.sources {
		for _, file := range source.Files {
			for _, target := range file.Targets {
				_, err := uc.statuses.GetStatus(ctx, source.ID, file.Name, target)
				if err == nil {
					continue
				}
				if !errors.Is(err, domain.ErrStatusNotFound) {
					return fmt.Errorf("get status for %s/%s: %w", source.ID, file.Name, err)
				}
				row := domain.FileLoadStatus{
					SourceID:  source.ID,
					FileName:  file.Name,
					Target:    target,
					Status:    domain.StatusNotLoaded,
					SourceURL: source.URL,
					UpdatedAt: time.Now().UTC(),
				}
				if err := uc.statuses.UpsertStatus(ctx, row); err != nil {
					return fmt.Errorf("init status for %s/%s: %w", source.ID, file.Name, err)
				}
			}
		}
	}
	return nil
}

func (uc *LoadCorpusUseCase) isLoaded(ctx context.Context, sourceID, fileName string, target domain.LoadTarget) (bool, error) {
	row, err := uc.statuses.GetStatus(ctx, sourceID, fileName, target)
	if err != nil {
		if errors.Is(err, domain.ErrStatusNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get status for %s/%s: %w", sourceID, fileName, err)
	}
	return row.Status == domain.StatusLoaded, nil
}

func (uc *LoadCorpusUseCase) loaderFor(target domain.LoadTarget) (FileLoader, error) {
	switch target {
	case domain.TargetVector:
		return uc.vector, nil
	case domain.TargetTabular:
		return uc.tabular, nil
	default:
		return nil, fmt.Errorf("no loader for target %q", target)
	}
}
