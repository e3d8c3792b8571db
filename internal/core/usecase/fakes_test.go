package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

type statusRegistryFake struct {
	rows      map[string]domain.FileLoadStatus
	upserts   []domain.FileLoadStatus
	resets    [][]domain.LoadTarget
	getErr    error
	upsertErr error
}

func newStatusRegistryFake() *statusRegistryFake {
	return &statusRegistryFake{rows: make(map[string]domain.FileLoadStatus)}
}

func statusKey(sourceID, fileName string, target domain.LoadTarget) string {
	return fmt.Sprintf("%s|%s|%s", sourceID, fileName, target)
}

func (f *statusRegistryFake) GetStatus(_ context.Context, sourceID, fileName string, target domain.LoadTarget) (*domain.FileLoadStatus, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	row, ok := f.rows[statusKey(sourceID, fileName, target)]
	if !ok {
		return nil, domain.WrapError(domain.ErrStatusNotFound, "get status", fmt.Errorf("%s/%s/%s", sourceID, fileName, target))
	}
	copyRow := row
	return &copyRow, nil
}

func (f *statusRegistryFake) UpsertStatus(_ context.Context, row domain.FileLoadStatus) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, row)
	f.rows[statusKey(row.SourceID, row.FileName, row.Target)] = row
	return nil
}

func (f *statusRegistryFake) ListStatuses(context.Context) ([]domain.FileLoadStatus, error) {
	keys := make([]string, 0, len(f.rows))
	for key := range f.rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]domain.FileLoadStatus, 0, len(keys))
	for _, key := range keys {
		out = append(out, f.rows[key])
	}
	return out, nil
}

func (f *statusRegistryFake) ResetStatuses(_ context.Context, targets []domain.LoadTarget) error {
	f.resets = append(f.resets, targets)
	match := make(map[domain.LoadTarget]bool, len(targets))
	for _, target := range targets {
		match[target] = true
	}
	for key, row := range f.rows {
		if match[row.Target] {
			row.Status = domain.StatusNotLoaded
			row.Message = ""
			f.rows[key] = row
		}
	}
	return nil
}

// messagesFor returns the upserted (status, message) pairs for one row key,
// in write order.
func (f *statusRegistryFake) messagesFor(sourceID, fileName string, target domain.LoadTarget) []string {
	out := make([]string, 0)
	for _, row := range f.upserts {
		if row.SourceID == sourceID && row.FileName == fileName && row.Target == target {
			out = append(out, fmt.Sprintf("%s:%s", row.Status, row.Message))
		}
	}
	return out
}

type lockStoreFake struct {
	acquireErr error
	acquired   []string
	released   []string
	heartbeats int
}

func (f *lockStoreFake) AcquireJob(_ context.Context, jobName, instanceID string) error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired = append(f.acquired, jobName+"/"+instanceID)
	return nil
}

func (f *lockStoreFake) ReleaseJob(_ context.Context, jobName, instanceID string) error {
	f.released = append(f.released, jobName+"/"+instanceID)
	return nil
}

func (f *lockStoreFake) Heartbeat(context.Context, string) error {
	f.heartbeats++
	return nil
}

type vectorStoreFake struct {
	count        int
	countErr     error
	searchResult []domain.RetrievedChunk
	searchErr    error
	added        []domain.Chunk
	addedVectors [][]float32
	addCalls     int
	addErr       error
	resetCalled  bool
	resetErr     error
}

func (f *vectorStoreFake) AddDocuments(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, chunks...)
	f.addedVectors = append(f.addedVectors, vectors...)
	return nil
}

func (f *vectorStoreFake) Search(context.Context, []float32, int) ([]domain.RetrievedChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResult, nil
}

func (f *vectorStoreFake) Count(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *vectorStoreFake) Reset(context.Context) error {
	f.resetCalled = true
	return f.resetErr
}

type fileLoaderFake struct {
	calls []string
	errs  map[string]error
}

func (f *fileLoaderFake) LoadFile(_ context.Context, source domain.Source, file domain.SourceFile) error {
	f.calls = append(f.calls, source.ID+"/"+file.Name)
	if f.errs != nil {
		if err, ok := f.errs[file.Name]; ok {
			return err
		}
	}
	return nil
}

type embedderStub struct {
	vector      []float32
	embedErr    error
	embedCalls  int
	queryVector []float32
	queryErr    error
	queryCalls  int
}

func (f *embedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *embedderStub) EmbedQuery(context.Context, string) ([]float32, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryVector, nil
}

type extractorStub struct {
	text string
	err  error
}

func (f *extractorStub) Extract(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerStub struct {
	chunks []string
}

func (f *chunkerStub) Split(string) []string { return f.chunks }

type tabularParserStub struct {
	rows    []domain.Observation
	rowErrs []error
	err     error
}

func (f *tabularParserStub) Parse(context.Context, string) ([]domain.Observation, []error, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.rows, f.rowErrs, nil
}

type tabularStoreFake struct {
	upserted  [][]domain.Observation
	upsertErr error
	queryRows []domain.Observation
	queryErr  error
}

func (f *tabularStoreFake) UpsertObservations(_ context.Context, rows []domain.Observation) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, rows)
	return nil
}

func (f *tabularStoreFake) QueryObservations(context.Context, string, int, int) ([]domain.Observation, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryRows, nil
}

func (f *tabularStoreFake) Clear(context.Context) error { return nil }

// modelStub replays scripted replies; after the script runs out it repeats
// the last reply, which lets loop-cap tests model a model that never stops
// calling tools.
type modelStub struct {
	replies []*domain.ModelReply
	err     error
	calls   [][]domain.ModelMessage
}

func (f *modelStub) Complete(_ context.Context, messages []domain.ModelMessage, _ []domain.ToolDefinition) (*domain.ModelReply, error) {
	copied := make([]domain.ModelMessage, len(messages))
	copy(copied, messages)
	f.calls = append(f.calls, copied)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	return f.replies[idx], nil
}

type econDataStub struct {
	gdp      string
	gdpErr   error
	gdpCalls []string
	fx       string
	fxErr    error
	fxCalls  []string
}

func (f *econDataStub) GDPGrowth(_ context.Context, countryCode, period string) (string, error) {
	f.gdpCalls = append(f.gdpCalls, countryCode+"/"+period)
	if f.gdpErr != nil {
		return "", f.gdpErr
	}
	return f.gdp, nil
}

func (f *econDataStub) ExchangeRate(_ context.Context, base, quote string) (string, error) {
	f.fxCalls = append(f.fxCalls, base+"/"+quote)
	if f.fxErr != nil {
		return "", f.fxErr
	}
	return f.fx, nil
}
