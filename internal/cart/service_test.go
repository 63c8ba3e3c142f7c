package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"

	"github.com/Eidanhurtado/Bibliowave/internal/cart/cache"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

type mockRepository struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockRepository) GetCart(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, ErrCartNotFound
	}
	c := *m.cart
	c.Items = append([]domain.LineItem(nil), m.cart.Items...)
	return &c, nil
}

func (m *mockRepository) UpsertCart(_ context.Context, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	stored := *c
	stored.Items = append([]domain.LineItem(nil), c.Items...)
	m.cart = &stored
	return nil
}

func (m *mockRepository) DeleteCart(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cart = nil
	return nil
}

type mockCache struct {
	m    sync.RWMutex
	cart *domain.Cart
	err  error
}

func (m *mockCache) Get(context.Context, string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return nil, cache.ErrCacheMiss
	}
	return m.cart, nil
}

func (m *mockCache) Set(_ context.Context, _ string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = cart
	return m.err
}

func (m *mockCache) Delete(context.Context, string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.cart = nil
	return nil
}

type recordingNotifier struct {
	levels   []NotifyLevel
	messages []string
}

func (r *recordingNotifier) Notify(level NotifyLevel, message string) {
	r.levels = append(r.levels, level)
	r.messages = append(r.messages, message)
}

func newTestStore() (*Store, *mockRepository, *mockCache, *recordingNotifier) {
	repo := &mockRepository{}
	c := &mockCache{}
	n := &recordingNotifier{}
	return NewStore("visitor1", repo, c, n, nil), repo, c, n
}

func ebook(id string, cents int64) domain.LineItem {
	return domain.LineItem{ID: id, Title: "E-book " + id, Category: "Business", UnitPrice: cents}
}

func TestAdd_New(t *testing.T) {
	s, repo, _, n := newTestStore()

	added, err := s.Add(context.Background(), ebook("x", 2499))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, s.Items(), 1)
	assert.False(t, s.Items()[0].AddedAt.IsZero())

	// persisted synchronously
	require.NotNil(t, repo.cart)
	assert.Len(t, repo.cart.Items, 1)
	require.Len(t, n.levels, 1)
	assert.Equal(t, NotifySuccess, n.levels[0])
}

func TestAdd_DuplicateIsNoOp(t *testing.T) {
	s, _, _, n := newTestStore()
	ctx := context.Background()

	added, err := s.Add(ctx, ebook("x", 2499))
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Add(ctx, ebook("x", 2499))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, s.Items(), 1)

	// second notification distinguishes "already present"
	require.Len(t, n.levels, 2)
	assert.Equal(t, NotifyInfo, n.levels[1])
}

func TestRemove(t *testing.T) {
	s, repo, _, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Add(ctx, ebook("a", 1000))
	require.NoError(t, err)
	_, err = s.Add(ctx, ebook("b", 2000))
	require.NoError(t, err)

	removed, err := s.Remove(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "a", removed.ID)
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, "b", s.Items()[0].ID)
	assert.Len(t, repo.cart.Items, 1)

	// absent id is a no-op
	removed, err = s.Remove(ctx, "zzz")
	require.NoError(t, err)
	assert.Nil(t, removed)
	assert.Len(t, s.Items(), 1)
}

func TestClear_ResetsItemsAndDiscount(t *testing.T) {
	s, _, _, _ := newTestStore()
	ctx := context.Background()

	for _, it := range []domain.LineItem{ebook("a", 1000), ebook("b", 2000), ebook("c", 3000)} {
		_, err := s.Add(ctx, it)
		require.NoError(t, err)
	}
	ok, err := s.ApplyDiscount(ctx, "ESTUDIANTE15")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0.15, s.DiscountRate())

	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Items())
	assert.Equal(t, float64(0), s.DiscountRate())
}

func TestApplyDiscount(t *testing.T) {
	s, _, _, n := newTestStore()
	ctx := context.Background()

	ok, err := s.ApplyDiscount(ctx, "premium20")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.20, s.DiscountRate())

	// a miss leaves the previous rate untouched
	ok, err = s.ApplyDiscount(ctx, "TYPO99")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0.20, s.DiscountRate())
	assert.Equal(t, NotifyError, n.levels[len(n.levels)-1])

	// a second valid code overwrites, no stacking
	ok, err = s.ApplyDiscount(ctx, "PRIMERA25")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.25, s.DiscountRate())
}

func TestTotals_WithAppliedDiscount(t *testing.T) {
	s, _, _, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Add(ctx, ebook("a", 1000))
	require.NoError(t, err)
	ok, err := s.ApplyDiscount(ctx, "PREMIUM20")
	require.NoError(t, err)
	require.True(t, ok)

	b := s.Totals()
	assert.Equal(t, int64(1000), b.Subtotal)
	assert.Equal(t, int64(200), b.Discount)
	assert.Equal(t, int64(800), b.Total)
	assert.Equal(t, 1, b.Count)
}

func TestLoad_RoundTrip(t *testing.T) {
	s, repo, _, _ := newTestStore()
	ctx := context.Background()

	_, err := s.Add(ctx, ebook("a", 1000))
	require.NoError(t, err)
	_, err = s.Add(ctx, ebook("b", 2000))
	require.NoError(t, err)
	_, err = s.Remove(ctx, "a")
	require.NoError(t, err)
	ok, err := s.ApplyDiscount(ctx, "BIBLIOWAVE10")
	require.NoError(t, err)
	require.True(t, ok)

	// a fresh store over the same repository reproduces the state
	restored := NewStore("visitor1", repo, &mockCache{}, &recordingNotifier{}, nil)
	restored.Load(ctx)
	assert.Equal(t, s.Items(), restored.Items())
	assert.Equal(t, 0.10, restored.DiscountRate())
}

func TestLoad_CacheHitSkipsRepo(t *testing.T) {
	repo := &mockRepository{err: errors.New("repo must not be hit")}
	cached := &domain.Cart{
		OwnerID: "visitor1",
		Items:   []domain.LineItem{ebook("a", 1000)},
	}
	s := NewStore("visitor1", repo, &mockCache{cart: cached}, &recordingNotifier{}, nil)

	s.Load(context.Background())
	assert.Len(t, s.Items(), 1)
}

func TestLoad_NotFoundStartsEmpty(t *testing.T) {
	s, _, _, _ := newTestStore()
	s.Load(context.Background())
	assert.Empty(t, s.Items())
	assert.Equal(t, float64(0), s.DiscountRate())
}

// gatedRepository blocks GetCart until released and counts the reads
// that actually reached storage.
type gatedRepository struct {
	mockRepository
	reads   int32
	release chan struct{}
}

func (g *gatedRepository) GetCart(_ context.Context, ownerID string) (*domain.Cart, error) {
	atomic.AddInt32(&g.reads, 1)
	<-g.release
	return &domain.Cart{OwnerID: ownerID, Items: []domain.LineItem{ebook("a", 1000)}}, nil
}

func TestLoad_ConcurrentRestoresShareOneRead(t *testing.T) {
	repo := &gatedRepository{release: make(chan struct{})}
	loads := new(singleflight.Group)
	ctx := context.Background()

	const stores = 8
	all := make([]*Store, stores)
	for i := range all {
		all[i] = NewStore("visitor1", repo, &mockCache{}, &recordingNotifier{}, loads)
	}

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			s.Load(ctx)
		}(s)
	}

	// let every load join the in-flight read before releasing it
	time.Sleep(100 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&repo.reads))
	for _, s := range all {
		require.Len(t, s.Items(), 1)
	}

	// every store owns its copy of the shared result
	_, err := all[0].Add(ctx, ebook("b", 2000))
	require.NoError(t, err)
	assert.Len(t, all[0].Items(), 2)
	assert.Len(t, all[1].Items(), 1)
}

func TestLoad_StorageFailureDegradesToEmpty(t *testing.T) {
	repo := &mockRepository{err: errors.New("mongo down")}
	c := &mockCache{err: errors.New("redis down")}
	s := NewStore("visitor1", repo, c, &recordingNotifier{}, nil)

	s.Load(context.Background())
	assert.Empty(t, s.Items())

	// the store keeps working in memory
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	added, err := s.Add(context.Background(), ebook("a", 1000))
	assert.Error(t, err) // persistence still down, surfaced not swallowed
	assert.True(t, added)
	assert.Len(t, s.Items(), 1)
}
