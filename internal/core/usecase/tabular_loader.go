package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

var monthPeriodPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// TabularFileLoader parses one declared tabular file into normalized
// observations, deduplicates them by natural key, and upserts the result.
type TabularFileLoader struct {
	statuses ports.StatusRegistry
	parser   ports.TabularParser
	store    ports.TabularStore
	now      func() time.Time
}

func NewTabularFileLoader(
	statuses ports.StatusRegistry,
	parser ports.TabularParser,
	store ports.TabularStore,
) *TabularFileLoader {
	return &TabularFileLoader{
		statuses: statuses,
		parser:   parser,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *TabularFileLoader) LoadFile(ctx context.Context, source domain.Source, file domain.SourceFile) error {
	// The whole file is one unit of progress, so the message contract
	// degenerates to a single Loading 0/1 before the loaded summary.
	progress := domain.Progress{Current: 0, Total: 1}
	if err := l.setStatus(ctx, source, file, domain.StatusLoading, progress.Message()); err != nil {
		return err
	}

	stored, parsed, err := l.process(ctx, file)
	if err != nil {
		if failErr := l.setStatus(ctx, source, file, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	message := fmt.Sprintf("Loaded %d rows (%d parsed)", stored, parsed)
	return l.setStatus(ctx, source, file, domain.StatusLoaded, message)
}

func (l *TabularFileLoader) process(ctx context.Context, file domain.SourceFile) (stored, parsed int, err error) {
	rows, _, err := l.parser.Parse(ctx, file.Name)
	if err != nil {
		return 0, 0, fmt.Errorf("parse tabular file: %w", err)
	}
	if len(rows) == 0 {
		return 0, 0, domain.WrapError(domain.ErrInvalidInput, "parse tabular file", errors.New("no usable rows"))
	}

	deduped := dedupeObservations(normalizePeriods(rows))

	if err := l.store.UpsertObservations(ctx, deduped); err != nil {
		return 0, 0, fmt.Errorf("upsert observations: %w", err)
	}
	return len(deduped), len(rows), nil
}

// normalizePeriods rewrites "YYYY-MM" periods to the first day of that month.
// Any other shape passes through unchanged.
func normalizePeriods(rows []domain.Observation) []domain.Observation {
	out := make([]domain.Observation, len(rows))
	for i, row := range rows {
		if monthPeriodPattern.MatchString(row.Period) {
			row.Period += "-01"
		}
		out[i] = row
	}
	return out
}

// dedupeObservations collapses duplicate (area code, period) keys, keeping the
// last-parsed row. First-seen key order is preserved so output is stable.
func dedupeObservations(rows []domain.Observation) []domain.Observation {
	index := make(map[string]int, len(rows))
	out := make([]domain.Observation, 0, len(rows))
	for _, row := range rows {
		key := row.Key()
		if pos, seen := index[key]; seen {
			out[pos] = row
			continue
		}
		index[key] = len(out)
		out = append(out, row)
	}
	return out
}

func (l *TabularFileLoader) setStatus(ctx context.Context, source domain.Source, file domain.SourceFile, status domain.LoadStatus, message string) error {
	row := domain.FileLoadStatus{
		SourceID:  source.ID,
		FileName:  file.Name,
		Target:    domain.TargetTabular,
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
