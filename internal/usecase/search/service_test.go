package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/schemefinder/internal/domain/search/cursor"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/request"
	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

func newTestService(t *testing.T, f *fixture, qlog QueryLog) *Service {
	t.Helper()
	codec, err := cursor.NewCodec([]byte("service-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc, err := New(f.retriever(), NewPaginator(codec, zap.NewNop()), qlog, DefaultConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func mustRequest(t *testing.T, query string, topK, threshold int, cur, session string) *request.Request {
	t.Helper()
	r, err := request.New(query, topK, threshold, 0, cur, session)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func TestSearch_SharedSchemeRanksAboveSingleNeed(t *testing.T) {
	f := newFixture()
	f.need("i need financial help", neighbors(0.3, "both", "fin"))
	f.need("i need housing support", neighbors(0.3, "both", "house"))
	f.add(activeScheme("both", "Scheme Both"), activeScheme("fin", "Scheme Fin"), activeScheme("house", "Scheme House"))

	svc := newTestService(t, f, nil)
	resp, err := svc.Search(context.Background(),
		mustRequest(t, "I need financial help and also housing support", 20, 0, "", "sess"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := result.Ranked(resp.Items).IDs()
	if len(ids) != 3 || ids[0] != "both" {
		t.Fatalf("expected shared scheme first, got %v", ids)
	}
	single := resp.Items[1].Score
	if resp.Items[0].Score < 2*single-1e-12 {
		t.Errorf("shared score %g should be the sum of per-need scores (~%g)", resp.Items[0].Score, 2*single)
	}
	if resp.SessionID != "sess" {
		t.Errorf("expected request session, got %q", resp.SessionID)
	}
}

func TestSearch_PaginatesAcrossCalls(t *testing.T) {
	f := newFixture()
	var ids []string
	for i := range 25 {
		id := fmt.Sprintf("s%02d", i)
		ids = append(ids, id)
		f.add(activeScheme(id, "Scheme "+id))
	}
	f.need("i need food", neighbors(0.1, ids[0:10]...))
	f.need("i need rent", neighbors(0.2, ids[10:20]...))
	f.need("i need childcare", neighbors(0.3, ids[20:25]...))
	qlog := &mockQueryLog{}
	svc := newTestService(t, f, qlog)

	first, err := svc.Search(context.Background(), mustRequest(t, "I need food and rent and childcare", 10, 0, "", ""))
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if first.TotalCount != 25 || len(first.Items) != 10 || !first.HasMore || first.NextCursor == "" {
		t.Fatalf("unexpected first page: total=%d items=%d more=%v", first.TotalCount, len(first.Items), first.HasMore)
	}
	if first.SessionID == "" {
		t.Fatal("expected a generated session id")
	}

	second, err := svc.Search(context.Background(),
		mustRequest(t, "I need food and rent and childcare", 10, 0, first.NextCursor, first.SessionID))
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if second.TotalCount != 25 {
		t.Errorf("total changed across pages: %d", second.TotalCount)
	}
	got := result.Ranked(second.Items).IDs()
	if !slices.Equal(got, ids[10:20]) {
		t.Errorf("expected candidates 11-20, got %v", got)
	}
	if slices.Contains(got, first.Items[0].SchemeID) {
		t.Error("second page repeats first page rows")
	}

	if len(qlog.entries) != 1 {
		t.Fatalf("expected one query log entry, got %d", len(qlog.entries))
	}
	if qlog.sessions[0] != first.SessionID || len(qlog.entries[0].Results) != DefaultLogTopResults {
		t.Errorf("unexpected log entry for %q: %+v", qlog.sessions[0], qlog.entries[0])
	}
}

func TestSearch_NoNeedsYieldsEmptyPage(t *testing.T) {
	f := newFixture()
	svc := newTestService(t, f, nil)

	resp, err := svc.Search(context.Background(), mustRequest(t, "the and a", 20, 0, "", "sess"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalCount != 0 || resp.HasMore || len(resp.Items) != 0 {
		t.Errorf("expected empty page, got %+v", resp)
	}
	if f.embed.calls != 0 {
		t.Error("no needs should mean no retrieval")
	}
}

func TestSearch_RetrievalErrorSurfaces(t *testing.T) {
	errDown := errors.New("index down")
	f := newFixture()
	f.need("i need rent", neighbors(0.1, "a"))
	f.add(activeScheme("a", "A"))
	f.index.err = errDown

	svc := newTestService(t, f, nil)
	_, err := svc.Search(context.Background(), mustRequest(t, "I need rent", 20, 0, "", "sess"))
	if !errors.Is(err, errDown) {
		t.Errorf("expected index error, got %v", err)
	}
}

func TestSearch_QueryLogFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.need("i need rent", neighbors(0.1, "a"))
	f.add(activeScheme("a", "A"))
	qlog := &mockQueryLog{err: errors.New("redis down")}

	svc := newTestService(t, f, qlog)
	resp, err := svc.Search(context.Background(), mustRequest(t, "I need rent", 20, 0, "", "sess"))
	if err != nil {
		t.Fatalf("query log failure surfaced: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Errorf("expected one result, got %d", len(resp.Items))
	}
}

func TestNew_RejectsNegativeWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Lexical = -1
	if _, err := New(nil, nil, nil, cfg, zap.NewNop()); err == nil {
		t.Error("expected error for negative weight")
	}
}
