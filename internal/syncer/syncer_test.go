package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/embergate-hq/ember-news-sync/internal/domain"
	"github.com/embergate-hq/ember-news-sync/internal/feed"
	"github.com/embergate-hq/ember-news-sync/internal/storage"
	"github.com/embergate-hq/ember-news-sync/pkg/publishers"
)

type fakeFeed struct {
	items      []domain.NewsItem
	latestErr  error
	contentErr map[int64]error
}

func (f *fakeFeed) FetchLatest(_ context.Context, limit int) ([]domain.NewsItem, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	items := append([]domain.NewsItem(nil), f.items...)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeFeed) FetchContent(_ context.Context, id int64) (string, error) {
	if err, ok := f.contentErr[id]; ok {
		return "", err
	}
	return fmt.Sprintf("<p>body %d</p>", id), nil
}

type fakeTranslator struct {
	mu            sync.Mutex
	translatedIDs []int64
}

func (f *fakeTranslator) TranslateItem(_ context.Context, item domain.NewsItem) domain.TranslatedNewsItem {
	f.mu.Lock()
	f.translatedIDs = append(f.translatedIDs, item.ID)
	f.mu.Unlock()
	return domain.TranslatedNewsItem{
		NewsItem:     item,
		TitleES:      "ES:" + item.Title,
		ContentES:    "ES:" + item.Content,
		TranslatedAt: time.Now().UTC(),
	}
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, items []domain.NewsItem) []domain.TranslatedNewsItem {
	out := make([]domain.TranslatedNewsItem, len(items))
	for i := range items {
		out[i] = f.TranslateItem(ctx, items[i])
	}
	return out
}

type memStore struct {
	data    *domain.NewsStorage
	saves   int
	saveErr error
}

func (m *memStore) Load() *domain.NewsStorage {
	if m.data == nil {
		return &domain.NewsStorage{LastUpdated: time.Now().UTC(), News: []domain.TranslatedNewsItem{}}
	}
	cp := *m.data
	cp.News = append([]domain.TranslatedNewsItem(nil), m.data.News...)
	return &cp
}

func (m *memStore) Save(s *domain.NewsStorage) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = s
	return nil
}

type stubSink struct {
	events []publishers.Event
	err    error
}

func (s *stubSink) Publish(_ context.Context, evt publishers.Event) (int, error) {
	s.events = append(s.events, evt)
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func (s *stubSink) Size() int { return 1 }

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func feedItem(id int64, date time.Time, title string) domain.NewsItem {
	return domain.NewsItem{ID: id, Date: date, Title: title, Category: domain.CategoryGeneral}
}

func newService(t *testing.T, f *fakeFeed, tr *fakeTranslator, store *memStore, ledger storage.Ledger, sink EventSink, maxNews int) *Service {
	t.Helper()
	svc, err := NewService(f, tr, store, ledger, sink, maxNews)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestBootstrapTranslatesOnlyNewestItem(t *testing.T) {
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(3, day(3), "A"),
		feedItem(2, day(2), "B"),
		feedItem(1, day(1), "C"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{}
	svc := newService(t, f, tr, store, nil, nil, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeBootstrap {
		t.Fatalf("empty cache should take the bootstrap path, got %q", res.Mode)
	}
	if len(tr.translatedIDs) != 1 || tr.translatedIDs[0] != 3 {
		t.Fatalf("only the newest item should be translated, got %v", tr.translatedIDs)
	}

	news := store.data.News
	if len(news) != 3 {
		t.Fatalf("cache length = %d", len(news))
	}
	if news[0].ID != 3 || news[0].TitleES == "" {
		t.Errorf("newest item should be first and translated: %+v", news[0])
	}
	for _, item := range news[1:] {
		if item.TitleES != "" || item.ContentES != "" {
			t.Errorf("item %d should carry no translation: %+v", item.ID, item)
		}
	}
}

func TestForceFlagSelectsBootstrapWithNonEmptyCache(t *testing.T) {
	prior := domain.TranslatedNewsItem{
		NewsItem: feedItem(2, day(2), "B"),
		TitleES:  "ES:B", ContentES: "ES:old", TranslatedAt: day(2),
	}
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(3, day(3), "A"),
		feedItem(2, day(2), "B"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(2), News: []domain.TranslatedNewsItem{prior}}}
	svc := newService(t, f, tr, store, nil, nil, 10)

	res, err := svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeBootstrap {
		t.Fatalf("force should take the bootstrap path, got %q", res.Mode)
	}
	if len(tr.translatedIDs) != 1 || tr.translatedIDs[0] != 3 {
		t.Fatalf("force should translate only the newest item, got %v", tr.translatedIDs)
	}

	// The prior translation of B must be carried over unchanged.
	got, ok := store.data.ItemByID(2)
	if !ok || got.TitleES != "ES:B" || got.ContentES != "ES:old" {
		t.Fatalf("prior translation lost: %+v", got)
	}
}

func TestBootstrapEmptyFeedLeavesCacheUntouched(t *testing.T) {
	f := &fakeFeed{}
	tr := &fakeTranslator{}
	store := &memStore{}
	svc := newService(t, f, tr, store, nil, nil, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeNoop || res.Wrote {
		t.Fatalf("empty feed + empty cache should no-op, got %+v", res)
	}
	if store.saves != 0 {
		t.Fatalf("no write expected, got %d saves", store.saves)
	}
	if len(tr.translatedIDs) != 0 {
		t.Fatalf("nothing should be translated, got %v", tr.translatedIDs)
	}
}

func TestIncrementalTranslatesOnlyNewIDs(t *testing.T) {
	stored := []domain.TranslatedNewsItem{
		{NewsItem: feedItem(2, day(2), "B"), TitleES: "ES:B", TranslatedAt: day(2)},
		{NewsItem: feedItem(3, day(1), "C"), TitleES: "ES:C", TranslatedAt: day(1)},
	}
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(1, day(3), "A"),
		feedItem(2, day(2), "B"),
		feedItem(3, day(1), "C"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(2), News: stored}}
	svc := newService(t, f, tr, store, nil, nil, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeIncremental {
		t.Fatalf("mode = %q", res.Mode)
	}
	if len(tr.translatedIDs) != 1 || tr.translatedIDs[0] != 1 {
		t.Fatalf("new-id set should be {1}, translated %v", tr.translatedIDs)
	}

	news := store.data.News
	if len(news) != 3 {
		t.Fatalf("cache length = %d", len(news))
	}
	if news[0].ID != 1 || news[0].TitleES != "ES:A" {
		t.Errorf("new item should lead the cache: %+v", news[0])
	}
	// B and C must be byte-unchanged from before the run.
	if news[1].TitleES != "ES:B" || !news[1].TranslatedAt.Equal(day(2)) {
		t.Errorf("B changed: %+v", news[1])
	}
	if news[2].TitleES != "ES:C" || !news[2].TranslatedAt.Equal(day(1)) {
		t.Errorf("C changed: %+v", news[2])
	}
}

func TestIncrementalNoNewItemsSkipsWrite(t *testing.T) {
	stored := []domain.TranslatedNewsItem{
		{NewsItem: feedItem(1, day(3), "A"), TitleES: "ES:A"},
		{NewsItem: feedItem(2, day(2), "B"), TitleES: "ES:B"},
	}
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(1, day(3), "A"),
		feedItem(2, day(2), "B"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(3), News: stored}}
	sink := &stubSink{}
	svc := newService(t, f, tr, store, nil, sink, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Mode != ModeNoop || res.Wrote {
		t.Fatalf("unchanged feed should no-op, got %+v", res)
	}
	if store.saves != 0 {
		t.Fatalf("no-op run must not write, got %d saves", store.saves)
	}
	if len(sink.events) != 0 {
		t.Fatalf("no-op run must not notify, got %d events", len(sink.events))
	}
}

func TestRunIsIdempotentAgainstUnchangedFeed(t *testing.T) {
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(3, day(3), "A"),
		feedItem(2, day(2), "B"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{}
	svc := newService(t, f, tr, store, nil, nil, 10)

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstSaves := store.saves
	firstNews := append([]domain.TranslatedNewsItem(nil), store.data.News...)

	// Both ids landed in the cache on bootstrap, so the second pass is a no-op.
	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Mode != ModeNoop {
		t.Fatalf("second run should no-op, got %q", res.Mode)
	}
	if store.saves != firstSaves {
		t.Fatalf("no-op run must not write, got %d saves", store.saves)
	}
	if len(firstNews) != 2 || len(store.data.News) != 2 {
		t.Fatalf("cache sizes: first %d now %d", len(firstNews), len(store.data.News))
	}
	for i := range firstNews {
		if firstNews[i].ID != store.data.News[i].ID {
			t.Fatal("no-op run modified the cache")
		}
	}
}

func TestMergeNeverDuplicatesIDs(t *testing.T) {
	stored := []domain.TranslatedNewsItem{
		{NewsItem: feedItem(2, day(2), "B"), TitleES: "ES:B"},
	}
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(1, day(3), "A"),
		feedItem(2, day(2), "B"),
	}}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(2), News: stored}}
	svc := newService(t, f, &fakeTranslator{}, store, nil, nil, 10)

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := map[int64]int{}
	for _, item := range store.data.News {
		seen[item.ID]++
	}
	for id, count := range seen {
		if count > 1 {
			t.Fatalf("id %d appears %d times", id, count)
		}
	}
}

func TestCapAndSortInvariants(t *testing.T) {
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(5, day(5), "E"),
		feedItem(4, day(4), "D"),
		feedItem(3, day(3), "C"),
		feedItem(2, day(2), "B"),
		feedItem(1, day(1), "A"),
	}}
	store := &memStore{}
	svc := newService(t, f, &fakeTranslator{}, store, nil, nil, 3)

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	news := store.data.News
	if len(news) != 3 {
		t.Fatalf("cap violated: %d items", len(news))
	}
	for i := 1; i < len(news); i++ {
		if news[i-1].Date.Before(news[i].Date) {
			t.Fatalf("sort violated at %d: %v before %v", i, news[i-1].Date, news[i].Date)
		}
	}
	if news[0].ID != 5 {
		t.Fatalf("newest item should lead, got id %d", news[0].ID)
	}
}

func TestDegradedContentKeepsItemWithPlaceholder(t *testing.T) {
	f := &fakeFeed{
		items: []domain.NewsItem{
			feedItem(5, day(2), "Timeout victim"),
			feedItem(6, day(1), "Healthy"),
		},
		contentErr: map[int64]error{5: errors.New("simulated timeout")},
	}
	store := &memStore{}
	svc := newService(t, f, &fakeTranslator{}, store, nil, nil, 10)

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, ok := store.data.ItemByID(5)
	if !ok {
		t.Fatal("degraded item missing from cache")
	}
	if got.Content != feed.ContentUnavailable {
		t.Fatalf("content = %q", got.Content)
	}
	if got.Title != "Timeout victim" || got.Date.IsZero() {
		t.Fatalf("other fields should stay populated: %+v", got)
	}

	healthy, _ := store.data.ItemByID(6)
	if healthy.Content != "<p>body 6</p>" {
		t.Fatalf("healthy item content = %q", healthy.Content)
	}
	if healthy.Excerpt == "" {
		t.Error("healthy item should carry an excerpt")
	}
}

func TestFetchFailureIsFatalAndPreservesState(t *testing.T) {
	stored := []domain.TranslatedNewsItem{
		{NewsItem: feedItem(1, day(1), "A"), TitleES: "ES:A"},
	}
	f := &fakeFeed{latestErr: errors.New("feed down")}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(1), News: stored}}
	svc := newService(t, f, &fakeTranslator{}, store, nil, nil, 10)

	if _, err := svc.Run(context.Background(), false); err == nil {
		t.Fatal("expected fetch failure to propagate")
	}
	if store.saves != 0 {
		t.Fatalf("failed fetch must not write, got %d saves", store.saves)
	}
}

func TestSaveFailureIsAbsorbed(t *testing.T) {
	f := &fakeFeed{items: []domain.NewsItem{feedItem(1, day(1), "A")}}
	store := &memStore{saveErr: errors.New("disk full")}
	sink := &stubSink{}
	svc := newService(t, f, &fakeTranslator{}, store, nil, sink, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("save failure must not fail the run: %v", err)
	}
	if res.Wrote {
		t.Fatal("result should report the missed write")
	}
	if len(sink.events) != 0 {
		t.Fatal("no event should be published when the write failed")
	}
}

func TestLedgerPreventsRetranslationOfCappedOutIDs(t *testing.T) {
	ledger, err := storage.NewLedger("bbolt", t.TempDir()+"/ledger.db")
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	defer ledger.Close()

	// id 9 was translated in some earlier run and has since fallen off the cap.
	if err := ledger.MarkTranslated(9); err != nil {
		t.Fatalf("MarkTranslated: %v", err)
	}

	stored := []domain.TranslatedNewsItem{
		{NewsItem: feedItem(2, day(2), "B"), TitleES: "ES:B"},
	}
	f := &fakeFeed{items: []domain.NewsItem{
		feedItem(9, day(3), "Reappeared"),
		feedItem(2, day(2), "B"),
	}}
	tr := &fakeTranslator{}
	store := &memStore{data: &domain.NewsStorage{LastUpdated: day(2), News: stored}}
	svc := newService(t, f, tr, store, ledger, nil, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(tr.translatedIDs) != 0 {
		t.Fatalf("id 9 must not be re-translated, got %v", tr.translatedIDs)
	}
	if res.Mode != ModeIncremental || res.Translated != 0 {
		t.Fatalf("expected an incremental run with zero translations, got %+v", res)
	}

	// The reappeared item is carried in untranslated so the cache still
	// reflects the feed window.
	got, ok := store.data.ItemByID(9)
	if !ok {
		t.Fatal("ledger-known item missing from cache")
	}
	if got.TitleES != "" || got.ContentES != "" {
		t.Fatalf("ledger-known item should stay untranslated: %+v", got)
	}
	if store.data.News[0].ID != 9 {
		t.Fatalf("newest item should lead the cache, got id %d", store.data.News[0].ID)
	}
}

func TestSuccessfulRunMarksLedgerAndNotifies(t *testing.T) {
	ledger, err := storage.NewLedger("bbolt", t.TempDir()+"/ledger.db")
	if err != nil {
		t.Fatalf("NewLedger: %v", err)
	}
	defer ledger.Close()

	f := &fakeFeed{items: []domain.NewsItem{feedItem(4, day(4), "Fresh")}}
	store := &memStore{}
	sink := &stubSink{}
	svc := newService(t, f, &fakeTranslator{}, store, ledger, sink, 10)

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen, err := ledger.Translated(4)
	if err != nil || !seen {
		t.Fatalf("translated id should be in the ledger, seen=%v err=%v", seen, err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one event, got %d", len(sink.events))
	}
	evt := sink.events[0]
	if evt.NewItems != 1 || evt.TotalItems != 1 {
		t.Fatalf("event counts wrong: %+v", evt)
	}
	if len(evt.Items) != 1 || evt.Items[0].ID != 4 {
		t.Fatalf("event items wrong: %+v", evt.Items)
	}
}

func TestSinkFailureDoesNotFailRun(t *testing.T) {
	f := &fakeFeed{items: []domain.NewsItem{feedItem(1, day(1), "A")}}
	store := &memStore{}
	sink := &stubSink{err: errors.New("webhook down")}
	svc := newService(t, f, &fakeTranslator{}, store, nil, sink, 10)

	res, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if !res.Wrote {
		t.Fatal("cache should still have been written")
	}
}
