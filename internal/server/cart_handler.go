package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Eidanhurtado/Bibliowave/internal/cart"
	"github.com/Eidanhurtado/Bibliowave/internal/domain"
	"github.com/Eidanhurtado/Bibliowave/internal/pricing"
)

// sessionHeader identifies the anonymous browser session a cart
// belongs to. There are no accounts; the storefront generates the id
// client-side and sends it on every request.
const sessionHeader = "X-Session-ID"

type CartResponse struct {
	Items        []domain.LineItem `json:"items"`
	DiscountRate float64           `json:"discount"`
	Totals       pricing.Breakdown `json:"totals"`
}

func cartResponse(store *cart.Store) CartResponse {
	return CartResponse{
		Items:        store.Items(),
		DiscountRate: store.DiscountRate(),
		Totals:       store.Totals(),
	}
}

// cartStore loads the caller's cart for this request. A nil return
// means the error response was already written.
func (s *Server) cartStore(w http.ResponseWriter, r *http.Request) *cart.Store {
	ownerID := r.Header.Get(sessionHeader)
	if ownerID == "" {
		respondError(w, http.StatusBadRequest, "missing_session", "X-Session-ID header is required")
		return nil
	}

	store := cart.NewStore(ownerID, s.carts, s.cartCache, cart.LogNotifier{}, &s.cartLoads)
	store.Load(r.Context())
	return store
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	store := s.cartStore(w, r)
	if store == nil {
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	store := s.cartStore(w, r)
	if store == nil {
		return
	}

	var item domain.LineItem
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&item); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if item.ID == "" || item.Title == "" {
		respondError(w, http.StatusBadRequest, "invalid_item", "item id and title are required")
		return
	}
	if item.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must not be negative")
		return
	}

	added, err := store.Add(r.Context(), item)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not persist cart")
		return
	}
	if !added {
		respondJSON(w, http.StatusOK, cartResponse(store))
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(store))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	store := s.cartStore(w, r)
	if store == nil {
		return
	}

	itemID := chi.URLParam(r, "item_id")
	removed, err := store.Remove(r.Context(), itemID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not persist cart")
		return
	}
	if removed == nil {
		respondError(w, http.StatusNotFound, "not_found", "item is not in the cart")
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	store := s.cartStore(w, r)
	if store == nil {
		return
	}

	if err := store.Clear(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not persist cart")
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(store))
}

type applyDiscountRequest struct {
	Code string `json:"code"`
}

type applyDiscountResponse struct {
	Applied bool         `json:"applied"`
	Cart    CartResponse `json:"cart"`
}

func (s *Server) handleApplyDiscount(w http.ResponseWriter, r *http.Request) {
	store := s.cartStore(w, r)
	if store == nil {
		return
	}

	var req applyDiscountRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	applied, err := store.ApplyDiscount(r.Context(), req.Code)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not persist cart")
		return
	}
	respondJSON(w, http.StatusOK, applyDiscountResponse{Applied: applied, Cart: cartResponse(store)})
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.GetAllProducts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "storage_error", "could not list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}
