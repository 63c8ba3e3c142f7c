package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Eidanhurtado/Bibliowave/internal/cart/cache"
	"github.com/Eidanhurtado/Bibliowave/internal/discount"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/pricing"
)

type NotifyLevel string

const (
	NotifySuccess NotifyLevel = "success"
	NotifyInfo    NotifyLevel = "info"
	NotifyError   NotifyLevel = "error"
)

// Notifier surfaces cart events to the buyer. The storefront UI owns
// the real implementation; LogNotifier serves headless runs and tests.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

type LogNotifier struct{}

func (LogNotifier) Notify(level NotifyLevel, message string) {
	log.Printf("[%s] %s", level, message)
}

// Store owns one buyer's cart: the in-memory working copy, its durable
// persistence and the read cache in front of it. Mutations arrive from
// a single session and are not interleaved, so no lock guards the
// working copy.
type Store struct {
	ownerID  string
	repo     CartRepository
	cache    cache.CartCache
	notifier Notifier
	loads    *singleflight.Group // Prevents cache stampede
	now      func() time.Time

	cart *domain.Cart
}

// NewStore builds a store over one buyer's cart. Stores that share a
// loads group coalesce concurrent restores for the same owner into a
// single storage read; pass nil for a private group when only one
// store per owner exists.
func NewStore(ownerID string, repo CartRepository, c cache.CartCache, notifier Notifier, loads *singleflight.Group) *Store {
	if loads == nil {
		loads = new(singleflight.Group)
	}
	return &Store{
		ownerID:  ownerID,
		repo:     repo,
		cache:    c,
		notifier: notifier,
		loads:    loads,
		now:      time.Now,
		cart:     emptyCart(ownerID),
	}
}

func emptyCart(ownerID string) *domain.Cart {
	now := time.Now()
	return &domain.Cart{
		OwnerID:   ownerID,
		Items:     nil,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Load restores the persisted cart. Storage being unreachable or the
// record being unreadable degrades to an empty in-memory cart; the
// store never fails to come up.
func (s *Store) Load(ctx context.Context) {
	v, err, _ := s.loads.Do(s.ownerID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, s.ownerID)
		if err == nil {
			return c, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		c, errGet := s.repo.GetCart(ctx, s.ownerID)
		if errGet != nil {
			if errors.Is(errGet, ErrCartNotFound) {
				return emptyCart(s.ownerID), nil
			}
			return nil, errGet
		}

		// Write-back stays on the request path so a later mutation's
		// invalidation cannot be overtaken by a stale repopulation.
		if errSet := s.cache.Set(ctx, s.ownerID, c); errSet != nil {
			log.Printf("cache set error: %v", errSet)
		}

		return c, nil
	})

	if err != nil {
		log.Printf("cart restore failed, starting empty: %v", err)
		s.cart = emptyCart(s.ownerID)
		return
	}

	// Coalesced loads hand every waiter the same pointer; each store
	// takes its own copy so mutations stay isolated.
	s.cart = cloneCart(v.(*domain.Cart))
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.LineItem(nil), c.Items...)
	return &out
}

// Add appends the item unless one with the same id is already present.
// Returns false and leaves state unchanged on a duplicate.
func (s *Store) Add(ctx context.Context, item domain.LineItem) (bool, error) {
	if s.cart.HasItem(item.ID) {
		s.notifier.Notify(NotifyInfo, fmt.Sprintf("%q ya está en tu biblioteca", item.Title))
		return false, nil
	}

	item.AddedAt = s.now()
	s.cart.Items = append(s.cart.Items, item)

	if err := s.persist(ctx); err != nil {
		return true, err
	}

	s.notifier.Notify(NotifySuccess, fmt.Sprintf("%q añadido a tu biblioteca - €%s",
		item.Title, pricing.FormatAmount(item.UnitPrice)))
	return true, nil
}

// Remove deletes the item with the given id and returns it, or nil if
// the id is not in the cart (a no-op).
func (s *Store) Remove(ctx context.Context, id string) (*domain.LineItem, error) {
	for i, it := range s.cart.Items {
		if it.ID != id {
			continue
		}
		removed := it
		s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)

		if err := s.persist(ctx); err != nil {
			return &removed, err
		}

		s.notifier.Notify(NotifySuccess, fmt.Sprintf("%q eliminado de tu biblioteca", removed.Title))
		return &removed, nil
	}
	return nil, nil
}

// Clear empties the cart and resets the active discount.
func (s *Store) Clear(ctx context.Context) error {
	s.cart.Items = nil
	s.cart.DiscountRate = 0

	if err := s.persist(ctx); err != nil {
		return err
	}

	s.notifier.Notify(NotifyInfo, "Biblioteca vacía")
	return nil
}

// ApplyDiscount resolves a promotional code. A hit overwrites any
// active discount (no stacking); a miss leaves the previous rate in
// place so a typo cannot discard an already applied code.
func (s *Store) ApplyDiscount(ctx context.Context, code string) (bool, error) {
	rate, ok := discount.Lookup(code)
	if !ok {
		s.notifier.Notify(NotifyError, "Código promocional inválido")
		return false, nil
	}

	s.cart.DiscountRate = rate
	if err := s.persist(ctx); err != nil {
		return true, err
	}

	s.notifier.Notify(NotifySuccess, fmt.Sprintf("Código %q aplicado. %.0f%% de descuento", code, rate*100))
	return true, nil
}

// Totals delegates to the pricing engine over the current state.
func (s *Store) Totals() pricing.Breakdown {
	return pricing.Totals(s.cart.Items, s.cart.DiscountRate)
}

// Items returns a snapshot of the cart's line items in display order.
func (s *Store) Items() []domain.LineItem {
	out := make([]domain.LineItem, len(s.cart.Items))
	copy(out, s.cart.Items)
	return out
}

func (s *Store) DiscountRate() float64 {
	return s.cart.DiscountRate
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.repo.UpsertCart(ctx, s.cart); err != nil {
		log.Printf("repo upsert cart error: %v", err)
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *Store) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, s.ownerID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
