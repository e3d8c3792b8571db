package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/joblock"
)

func testSources() []domain.Source {
	return []domain.Source{
		{
			ID:   "src1",
			Name: "Statistics Office",
			URL:  "https://stats.example.org",
			Files: []domain.SourceFile{
				{Name: "gdp.pdf", Type: domain.FileTypePDF, Targets: []domain.LoadTarget{domain.TargetVector}},
				{Name: "cpi.csv", Type: domain.FileTypeCSV, Targets: []domain.LoadTarget{domain.TargetTabular}},
			},
		},
	}
}

func newLoadUseCase(
	statuses *statusRegistryFake,
	locks *lockStoreFake,
	vectorDB *vectorStoreFake,
	vector, tabular *fileLoaderFake,
) *LoadCorpusUseCase {
	return NewLoadCorpusUseCase(testSources(), joblock.NewGuard(), locks, statuses, vectorDB, vector, tabular, "instance-1")
}

func TestLoadRefusedWhileJobHeld(t *testing.T) {
	guard := joblock.NewGuard()
	release, err := guard.TryAcquire(loadJobName)
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	defer release()

	statuses := newStatusRegistryFake()
	locks := &lockStoreFake{}
	vector := &fileLoaderFake{}
	uc := NewLoadCorpusUseCase(testSources(), guard, locks, statuses, &vectorStoreFake{}, vector, &fileLoaderFake{}, "instance-1")

	_, err = uc.Load(context.Background(), domain.PolicyMissingOnly)
	if !domain.IsKind(err, domain.ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress, got %v", err)
	}
	if len(vector.calls) != 0 {
		t.Fatalf("loader ran despite refusal: %v", vector.calls)
	}
	if len(statuses.upserts) != 0 {
		t.Fatalf("refused load wrote %d statuses", len(statuses.upserts))
	}
	if len(locks.acquired) != 0 {
		t.Fatalf("distributed lock touched despite in-process refusal")
	}
}

func TestLoadMissingOnlySkipsLoadedTargets(t *testing.T) {
	statuses := newStatusRegistryFake()
	statuses.rows[statusKey("src1", "gdp.pdf", domain.TargetVector)] = domain.FileLoadStatus{
		SourceID: "src1",
		FileName: "gdp.pdf",
		Target:   domain.TargetVector,
		Status:   domain.StatusLoaded,
	}

	vector := &fileLoaderFake{}
	tabular := &fileLoaderFake{}
	uc := newLoadUseCase(statuses, &lockStoreFake{}, &vectorStoreFake{}, vector, tabular)

	summary, err := uc.Load(context.Background(), domain.PolicyMissingOnly)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Fatalf("summary = %d skipped / %d processed, want 1/1", summary.Skipped, summary.Processed)
	}
	if len(vector.calls) != 0 {
		t.Fatalf("loaded file reprocessed: %v", vector.calls)
	}
	if len(tabular.calls) != 1 || tabular.calls[0] != "src1/cpi.csv" {
		t.Fatalf("tabular calls = %v", tabular.calls)
	}

	row, err := statuses.GetStatus(context.Background(), "src1", "cpi.csv", domain.TargetTabular)
	if err != nil {
		t.Fatalf("missing file got no initialized status: %v", err)
	}
	if row.Status != domain.StatusNotLoaded {
		t.Fatalf("initialized status = %s, want not_loaded", row.Status)
	}
}

func TestLoadAllResetsAndReprocessesEverything(t *testing.T) {
	statuses := newStatusRegistryFake()
	for _, row := range []domain.FileLoadStatus{
		{SourceID: "src1", FileName: "gdp.pdf", Target: domain.TargetVector, Status: domain.StatusLoaded},
		{SourceID: "src1", FileName: "cpi.csv", Target: domain.TargetTabular, Status: domain.StatusLoaded},
	} {
		statuses.rows[statusKey(row.SourceID, row.FileName, row.Target)] = row
	}

	vectorDB := &vectorStoreFake{count: 3}
	vector := &fileLoaderFake{}
	tabular := &fileLoaderFake{}
	uc := newLoadUseCase(statuses, &lockStoreFake{}, vectorDB, vector, tabular)

	summary, err := uc.Load(context.Background(), domain.PolicyAll)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !vectorDB.resetCalled {
		t.Fatal("vector store was not reset")
	}
	if len(statuses.resets) != 1 || len(statuses.resets[0]) != 2 {
		t.Fatalf("status resets = %v", statuses.resets)
	}
	if summary.Processed != 2 || summary.Skipped != 0 {
		t.Fatalf("summary = %d processed / %d skipped, want 2/0", summary.Processed, summary.Skipped)
	}
	if len(vector.calls) != 1 || len(tabular.calls) != 1 {
		t.Fatalf("loader calls = %v / %v", vector.calls, tabular.calls)
	}
}

func TestLoadIsolatesFileFailures(t *testing.T) {
	statuses := newStatusRegistryFake()
	vector := &fileLoaderFake{errs: map[string]error{"gdp.pdf": errors.New("extract text: boom")}}
	tabular := &fileLoaderFake{}
	uc := newLoadUseCase(statuses, &lockStoreFake{}, &vectorStoreFake{}, vector, tabular)

	summary, err := uc.Load(context.Background(), domain.PolicyMissingOnly)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("processed = %d, want 1", summary.Processed)
	}
	if got := summary.Failures["gdp.pdf"]; got != "extract text: boom" {
		t.Fatalf("failure message = %q", got)
	}
	if len(tabular.calls) != 1 {
		t.Fatal("failure aborted the rest of the batch")
	}
}

func TestLoadDistributedLockConflict(t *testing.T) {
	locks := &lockStoreFake{
		acquireErr: domain.WrapError(domain.ErrLoadInProgress, "acquire job lock", errors.New("held by instance-2")),
	}
	vector := &fileLoaderFake{}
	uc := newLoadUseCase(newStatusRegistryFake(), locks, &vectorStoreFake{}, vector, &fileLoaderFake{})

	_, err := uc.Load(context.Background(), domain.PolicyMissingOnly)
	if !domain.IsKind(err, domain.ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress, got %v", err)
	}
	if len(vector.calls) != 0 {
		t.Fatal("loader ran despite distributed lock conflict")
	}

	// The in-process guard must have been released by the failed attempt.
	locks.acquireErr = nil
	if _, err := uc.Load(context.Background(), domain.PolicyMissingOnly); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if len(locks.released) != 1 {
		t.Fatalf("released = %v, want one release", locks.released)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	uc := newLoadUseCase(newStatusRegistryFake(), &lockStoreFake{}, &vectorStoreFake{}, &fileLoaderFake{}, &fileLoaderFake{})

	_, err := uc.Load(context.Background(), domain.LoadPolicy("everything"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
