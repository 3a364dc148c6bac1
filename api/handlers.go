package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/apothecary"
	"github.com/xraph/apothecary/id"
	"github.com/xraph/apothecary/inventory"
	"github.com/xraph/apothecary/search"
	"github.com/xraph/apothecary/types"
)

type newCartRequest struct {
	Customer string `json:"customer"`
}

type newCartResponse struct {
	CartID id.CartID `json:"cart_id"`
}

type cartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

type checkoutRequest struct {
	Payment string `json:"payment"`
}

type stockResponse struct {
	SKU      string      `json:"sku"`
	Quantity int64       `json:"quantity"`
	Price    *types.Gold `json:"price,omitempty"`
}

type goldResponse struct {
	Gold types.Gold `json:"gold"`
}

func (s *Server) createCart(w http.ResponseWriter, r *http.Request) {
	var req newCartRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.shop.CreateCart(r.Context(), req.Customer)
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse{CartID: c.ID})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	msg, err := s.shop.RenderCart(r.Context(), chi.URLParam(r, "cart_id"))
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

func (s *Server) setItemQuantity(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.shop.SetLineItem(r.Context(), cartID, chi.URLParam(r, "item_sku"), req.Quantity); err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "OK")
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	cartID, ok := cartIDParam(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	receipt, err := s.shop.Checkout(r.Context(), cartID, req.Payment)
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

func (s *Server) searchOrders(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	page, err := s.shop.Search(r.Context(), search.Query{
		Customer: v.Get("customer_name"),
		SKU:      v.Get("potion_sku"),
		Cursor:   v.Get("search_page"),
		Sort:     search.SortColumn(v.Get("sort_col")),
		Order:    search.SortOrder(v.Get("sort_order")),
	})
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.shop.Catalog(r.Context())
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	if entries == nil {
		entries = []inventory.CatalogEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// getStock reports the stock of one item, and its price when the day
// query parameter names a pricing bucket.
func (s *Server) getStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sku := chi.URLParam(r, "sku")

	qty, err := s.shop.CurrentStock(ctx, sku)
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	resp := stockResponse{SKU: sku, Quantity: qty}

	if raw := r.URL.Query().Get("day"); raw != "" {
		day, err := types.ParseDay(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, string(apothecary.KindInvalidInput), err.Error())
			return
		}
		price, err := s.shop.CurrentPrice(ctx, sku, day)
		if err != nil {
			s.respondShopError(w, err)
			return
		}
		resp.Price = &price
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) getGold(w http.ResponseWriter, r *http.Request) {
	gold, err := s.shop.GoldBalance(r.Context())
	if err != nil {
		s.respondShopError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, goldResponse{Gold: gold})
}

// cartIDParam parses the cart_id path parameter. A malformed id names no
// cart, so it is reported as not found.
func cartIDParam(w http.ResponseWriter, r *http.Request) (id.CartID, bool) {
	cartID, err := id.ParseCartID(chi.URLParam(r, "cart_id"))
	if err != nil {
		respondError(w, http.StatusNotFound, string(apothecary.KindCartNotFound), "cart not found")
		return id.Nil, false
	}
	return cartID, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}
