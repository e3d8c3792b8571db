package joblock

import (
	"testing"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

func TestTryAcquireSecondCallRefused(t *testing.T) {
	guard := NewGuard()

	release, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	if release == nil {
		t.Fatalf("expected release function")
	}

	if _, err := guard.TryAcquire("corpus_load"); err == nil {
		t.Fatalf("expected second acquire to be refused")
	} else if !domain.IsKind(err, domain.ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress, got %v", err)
	}

	release()
	release2, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() after release error = %v", err)
	}
	release2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	guard := NewGuard()

	release, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	release()
	release()

	again, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() after double release error = %v", err)
	}
	again()
}

func TestIndependentJobsDoNotBlockEachOther(t *testing.T) {
	guard := NewGuard()

	releaseA, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire(corpus_load) error = %v", err)
	}
	defer releaseA()

	releaseB, err := guard.TryAcquire("tabular_refresh")
	if err != nil {
		t.Fatalf("TryAcquire(tabular_refresh) error = %v", err)
	}
	defer releaseB()
}

func TestStaleReleaseCannotFreeNewHolder(t *testing.T) {
	guard := NewGuard()

	first, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	first()

	second, err := guard.TryAcquire("corpus_load")
	if err != nil {
		t.Fatalf("TryAcquire() error = %v", err)
	}
	defer second()

	// A stale release handle from the first acquisition must not unlock
	// the second holder.
	first()
	if _, err := guard.TryAcquire("corpus_load"); !domain.IsKind(err, domain.ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress after stale release, got %v", err)
	}
}
