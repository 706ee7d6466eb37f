package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/platform/httpx"
	"github.com/storefront/api/internal/services"
)

const maxCartBodySize = 4 * 1024

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartHandlers exposes the authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.Require())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(uid string) (services.CartView, error) {
		return h.carts.GetCart(r.Context(), uid)
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(uid string) (services.CartView, error) {
		return h.carts.ClearCart(r.Context(), uid)
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeBody(r.Context(), w, r, maxCartBodySize, false, &req) {
		return
	}
	h.respond(w, r, func(uid string) (services.CartView, error) {
		return h.carts.AddItem(r.Context(), services.CartItemCommand{
			UserID:    uid,
			ProductID: strings.TrimSpace(req.ProductID),
			Quantity:  req.Quantity,
		})
	})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if !decodeBody(r.Context(), w, r, maxCartBodySize, false, &req) {
		return
	}
	h.respond(w, r, func(uid string) (services.CartView, error) {
		return h.carts.UpdateItem(r.Context(), services.CartItemCommand{
			UserID:    uid,
			ProductID: strings.TrimSpace(chi.URLParam(r, "productID")),
			Quantity:  req.Quantity,
		})
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(uid string) (services.CartView, error) {
		return h.carts.RemoveItem(r.Context(), uid, strings.TrimSpace(chi.URLParam(r, "productID")))
	})
}

func (h *CartHandlers) respond(w http.ResponseWriter, r *http.Request, call func(uid string) (services.CartView, error)) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	view, err := call(identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	setCartResponseHeaders(w, view)
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	UserID        string            `json:"userId"`
	Items         []cartItemPayload `json:"items"`
	Subtotal      int64             `json:"subtotal"`
	TotalQuantity int               `json:"totalQuantity"`
	Version       int64             `json:"version"`
	UpdatedAt     string            `json:"updatedAt,omitempty"`
}

type cartItemPayload struct {
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	Price             int64  `json:"price"`
	Image             string `json:"image,omitempty"`
	Brand             string `json:"brand,omitempty"`
	Category          string `json:"category,omitempty"`
	AvailableQuantity int    `json:"availableQuantity"`
	Quantity          int    `json:"quantity"`
	LineTotal         int64  `json:"lineTotal"`
	AddedAt           string `json:"addedAt,omitempty"`
}

func setCartResponseHeaders(w http.ResponseWriter, view services.CartView) {
	w.Header().Set("Cache-Control", "no-store, no-cache, max-age=0, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("ETag", `W/"`+strconv.FormatInt(view.Version, 10)+`"`)
	if !view.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", view.UpdatedAt.UTC().Format(http.TimeFormat))
	}
}

func buildCartPayload(view services.CartView) cartPayload {
	payload := cartPayload{
		UserID:        view.UserID,
		Items:         make([]cartItemPayload, 0, len(view.Lines)),
		Subtotal:      view.Subtotal,
		TotalQuantity: view.TotalQuantity,
		Version:       view.Version,
		UpdatedAt:     formatTime(view.UpdatedAt),
	}
	for _, line := range view.Lines {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID:         line.ProductID,
			Name:              line.Name,
			Price:             line.Price,
			Image:             line.Image,
			Brand:             line.Brand,
			Category:          line.Category,
			AvailableQuantity: line.AvailableQuantity,
			Quantity:          line.Quantity,
			LineTotal:         line.LineTotal,
			AddedAt:           formatTime(line.AddedAt),
		})
	}
	return payload
}
