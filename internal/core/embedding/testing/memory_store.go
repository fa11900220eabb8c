package testing

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/samber/mo"
)

// MemoryStore はテスト用のインメモリ Store です
// Transact は状態のコピーに対して fn を実行し、成功時のみ置き換えることでコミット/ロールバックを再現します
type MemoryStore struct {
	state    *memState
	commits  int
	attempts int
	clock    time.Time

	// FailCommit は n 回目のコミット試行（1始まり）で返すエラーを指定します
	FailCommit func(n int) error
	// UpsertErr は UpsertResult で返すエラーを指定します
	UpsertErr func(id string) error
	// MarkFailedErr は MarkFailed で返すエラーを指定します
	MarkFailedErr func(itemID string) error
}

type memState struct {
	nextID  int64
	entries []*embedding.LedgerEntry
	results map[string]*embedding.Result
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:  s.nextID,
		entries: make([]*embedding.LedgerEntry, len(s.entries)),
		results: make(map[string]*embedding.Result, len(s.results)),
	}
	for i, e := range s.entries {
		cp := *e
		c.entries[i] = &cp
	}
	for id, r := range s.results {
		cp := *r
		cp.Vector = slices.Clone(r.Vector)
		c.results[id] = &cp
	}
	return c
}

// NewMemoryStore は空の MemoryStore を作成します
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{nextID: 1, results: map[string]*embedding.Result{}},
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now は呼び出しごとに単調増加する時刻を返します
func (m *MemoryStore) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

// Commits は成功したトップレベルのコミット数を返します
// 失敗したコミットは含みません
func (m *MemoryStore) Commits() int {
	return m.commits
}

// Entry はコミット済みのレジャーエントリを返します
func (m *MemoryStore) Entry(sessionID, itemID string) (*embedding.LedgerEntry, bool) {
	e := m.state.find(sessionID, itemID)
	if e == nil {
		return nil, false
	}
	cp := *e
	return &cp, true
}

// Entries はセッションのコミット済みエントリを登録順に返します
func (m *MemoryStore) Entries(sessionID string) []*embedding.LedgerEntry {
	var out []*embedding.LedgerEntry
	for _, e := range m.state.entries {
		if e.SessionID == sessionID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

// ResultCount はコミット済みの結果件数を返します
func (m *MemoryStore) ResultCount() int {
	return len(m.state.results)
}

// SeedResult は結果を直接登録します
func (m *MemoryStore) SeedResult(r *embedding.Result) {
	cp := *r
	m.state.results[r.ID] = &cp
}

func (m *MemoryStore) root() *memView {
	return &memView{store: m, state: m.state}
}

func (m *MemoryStore) LatestIncompleteSession(ctx context.Context) (mo.Option[*embedding.SessionSummary], error) {
	return m.root().LatestIncompleteSession(ctx)
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]*embedding.SessionSummary, error) {
	return m.root().ListSessions(ctx)
}

func (m *MemoryStore) FailureBreakdown(ctx context.Context, sessionID string) ([]*embedding.FailureGroup, error) {
	return m.root().FailureBreakdown(ctx, sessionID)
}

func (m *MemoryStore) CountByStatus(ctx context.Context, sessionID string) (embedding.StatusCounts, error) {
	return m.root().CountByStatus(ctx, sessionID)
}

func (m *MemoryStore) ListRemaining(ctx context.Context, sessionID string) ([]*embedding.LedgerEntry, error) {
	return m.root().ListRemaining(ctx, sessionID)
}

func (m *MemoryStore) InsertEntry(ctx context.Context, sessionID string, item embedding.WorkItem, status embedding.Status, errorMessage *string) (bool, error) {
	return m.root().InsertEntry(ctx, sessionID, item, status, errorMessage)
}

func (m *MemoryStore) MarkCompleted(ctx context.Context, sessionID, itemID string) error {
	return m.root().MarkCompleted(ctx, sessionID, itemID)
}

func (m *MemoryStore) MarkFailed(ctx context.Context, sessionID, itemID, message string) error {
	return m.root().MarkFailed(ctx, sessionID, itemID, message)
}

func (m *MemoryStore) ResetFailed(ctx context.Context, sessionID string) (int64, error) {
	return m.root().ResetFailed(ctx, sessionID)
}

func (m *MemoryStore) ResultExists(ctx context.Context, id string) (bool, error) {
	return m.root().ResultExists(ctx, id)
}

func (m *MemoryStore) UpsertResult(ctx context.Context, result *embedding.Result) error {
	return m.root().UpsertResult(ctx, result)
}

func (m *MemoryStore) GetResult(ctx context.Context, id string) (mo.Option[*embedding.Result], error) {
	return m.root().GetResult(ctx, id)
}

func (m *MemoryStore) Transact(ctx context.Context, fn func(tx embedding.Store) error) error {
	return m.root().Transact(ctx, fn)
}

// memView は MemoryStore の状態（コミット済みまたはトランザクション内のコピー）に対する操作です
type memView struct {
	store *MemoryStore
	state *memState
	inTx  bool
}

func (v *memView) Transact(ctx context.Context, fn func(tx embedding.Store) error) error {
	child := &memView{store: v.store, state: v.state.clone(), inTx: true}
	if err := fn(child); err != nil {
		return err
	}

	if !v.inTx {
		v.store.attempts++
		if v.store.FailCommit != nil {
			if err := v.store.FailCommit(v.store.attempts); err != nil {
				return fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
		v.store.commits++
		v.store.state = child.state
		return nil
	}

	// セーブポイントの解放
	*v.state = *child.state
	return nil
}

func (s *memState) find(sessionID, itemID string) *embedding.LedgerEntry {
	for _, e := range s.entries {
		if e.SessionID == sessionID && e.ItemID == itemID {
			return e
		}
	}
	return nil
}

func (v *memView) summaries() map[string]*embedding.SessionSummary {
	out := map[string]*embedding.SessionSummary{}
	for _, e := range v.state.entries {
		s, ok := out[e.SessionID]
		if !ok {
			s = &embedding.SessionSummary{SessionID: e.SessionID, StartedAt: e.CreatedAt, LastUpdated: e.UpdatedAt}
			out[e.SessionID] = s
		}
		s.Total++
		switch e.Status {
		case embedding.StatusCompleted:
			s.Completed++
		case embedding.StatusFailed:
			s.Failed++
		case embedding.StatusPending:
			s.Pending++
		}
		if e.CreatedAt.Before(s.StartedAt) {
			s.StartedAt = e.CreatedAt
		}
		if e.UpdatedAt.After(s.LastUpdated) {
			s.LastUpdated = e.UpdatedAt
		}
	}
	return out
}

func (v *memView) LatestIncompleteSession(ctx context.Context) (mo.Option[*embedding.SessionSummary], error) {
	var latest *embedding.SessionSummary
	for _, s := range v.summaries() {
		if !s.Incomplete() {
			continue
		}
		if latest == nil || s.LastUpdated.After(latest.LastUpdated) {
			latest = s
		}
	}
	if latest == nil {
		return mo.None[*embedding.SessionSummary](), nil
	}
	return mo.Some(latest), nil
}

func (v *memView) ListSessions(ctx context.Context) ([]*embedding.SessionSummary, error) {
	sessions := slices.Collect(maps.Values(v.summaries()))
	slices.SortFunc(sessions, func(a, b *embedding.SessionSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return sessions, nil
}

func (v *memView) FailureBreakdown(ctx context.Context, sessionID string) ([]*embedding.FailureGroup, error) {
	counts := map[string]int{}
	for _, e := range v.state.entries {
		if e.SessionID != sessionID || e.Status != embedding.StatusFailed {
			continue
		}
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		counts[msg]++
	}

	groups := make([]*embedding.FailureGroup, 0, len(counts))
	for msg, n := range counts {
		groups = append(groups, &embedding.FailureGroup{ErrorMessage: msg, Count: n})
	}
	slices.SortFunc(groups, func(a, b *embedding.FailureGroup) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ErrorMessage, b.ErrorMessage)
	})
	return groups, nil
}

func (v *memView) CountByStatus(ctx context.Context, sessionID string) (embedding.StatusCounts, error) {
	var counts embedding.StatusCounts
	for _, e := range v.state.entries {
		if e.SessionID != sessionID {
			continue
		}
		switch e.Status {
		case embedding.StatusPending:
			counts.Pending++
		case embedding.StatusCompleted:
			counts.Completed++
		case embedding.StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (v *memView) ListRemaining(ctx context.Context, sessionID string) ([]*embedding.LedgerEntry, error) {
	var out []*embedding.LedgerEntry
	for _, e := range v.state.entries {
		if e.SessionID == sessionID && e.Status != embedding.StatusCompleted {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (v *memView) InsertEntry(ctx context.Context, sessionID string, item embedding.WorkItem, status embedding.Status, errorMessage *string) (bool, error) {
	if v.state.find(sessionID, item.ID) != nil {
		return false, nil
	}

	now := v.store.now()
	entry := &embedding.LedgerEntry{
		ID:        v.state.nextID,
		SessionID: sessionID,
		ItemID:    item.ID,
		Label:     item.Label,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errorMessage != nil {
		msg := *errorMessage
		entry.ErrorMessage = &msg
	}
	v.state.nextID++
	v.state.entries = append(v.state.entries, entry)
	return true, nil
}

func (v *memView) MarkCompleted(ctx context.Context, sessionID, itemID string) error {
	e := v.state.find(sessionID, itemID)
	if e == nil {
		return embedding.ErrEntryNotFound
	}
	e.Status = embedding.StatusCompleted
	e.ErrorMessage = nil
	e.UpdatedAt = v.store.now()
	return nil
}

func (v *memView) MarkFailed(ctx context.Context, sessionID, itemID, message string) error {
	if v.store.MarkFailedErr != nil {
		if err := v.store.MarkFailedErr(itemID); err != nil {
			return err
		}
	}
	e := v.state.find(sessionID, itemID)
	if e == nil {
		return embedding.ErrEntryNotFound
	}
	e.Status = embedding.StatusFailed
	e.ErrorMessage = &message
	e.UpdatedAt = v.store.now()
	return nil
}

func (v *memView) ResetFailed(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	for _, e := range v.state.entries {
		if e.SessionID == sessionID && e.Status == embedding.StatusFailed {
			e.Status = embedding.StatusPending
			e.ErrorMessage = nil
			e.UpdatedAt = v.store.now()
			n++
		}
	}
	return n, nil
}

func (v *memView) ResultExists(ctx context.Context, id string) (bool, error) {
	_, ok := v.state.results[id]
	return ok, nil
}

func (v *memView) UpsertResult(ctx context.Context, result *embedding.Result) error {
	if v.store.UpsertErr != nil {
		if err := v.store.UpsertErr(result.ID); err != nil {
			return err
		}
	}
	cp := *result
	cp.Vector = slices.Clone(result.Vector)
	v.state.results[result.ID] = &cp
	return nil
}

func (v *memView) GetResult(ctx context.Context, id string) (mo.Option[*embedding.Result], error) {
	r, ok := v.state.results[id]
	if !ok {
		return mo.None[*embedding.Result](), nil
	}
	cp := *r
	return mo.Some(&cp), nil
}
