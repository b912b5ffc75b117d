package httphandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/niksmo/prodmng/internal/core/domain"
	"github.com/niksmo/prodmng/internal/core/port"
)

// GET    v1/products?q=&category=&min_price=&max_price=&min_rating= (200 OK, 400 Bad request)
// GET    v1/categories (200 OK)
// POST   v1/products/refresh (200 OK, degraded flag set when the remote is down)
// POST   v1/products JSON product (201 Created, 400 Bad request)
// PUT    v1/products/{id} JSON product (200 OK, 400 Bad request, 404 Not found)
// DELETE v1/products/{id} (200 OK, 404 Not found)

const (
	msgDegraded = "Using locally stored products. Could not connect to API."
	msgCreated  = "Product added successfully!"
	msgUpdated  = "Product updated successfully!"
	msgRemoved  = "Product deleted successfully!"
)

type ProductsHandler struct {
	viewer    port.ProductsViewer
	refresher port.ProductsRefresher
	editor    port.ProductsEditor
}

func RegisterProducts(
	mux *http.ServeMux,
	viewer port.ProductsViewer,
	refresher port.ProductsRefresher,
	editor port.ProductsEditor,
) {
	h := ProductsHandler{viewer, refresher, editor}
	mux.HandleFunc("GET /v1/products", h.GetProducts)
	mux.HandleFunc("GET /v1/categories", h.GetCategories)
	mux.HandleFunc("POST /v1/products/refresh", h.PostRefresh)
	mux.HandleFunc("POST /v1/products", h.PostProduct)
	mux.HandleFunc("PUT /v1/products/{id}", h.PutProduct)
	mux.HandleFunc("DELETE /v1/products/{id}", h.DeleteProduct)
}

func (h ProductsHandler) GetProducts(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.GetProducts"
	log := slog.With("op", op)

	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		log.Warn("invalid filter", "err", err)
		return
	}

	view := h.viewer.Products(r.Context(), f)
	res := ProductsResponse{
		Products:      fromDomainList(view.Products),
		Total:         view.Total,
		Shown:         len(view.Products),
		Degraded:      view.Degraded,
		Categories:    nonNil(h.viewer.Categories(r.Context())),
		ActiveFilters: nonNil(f.Describe()),
	}
	if view.Degraded {
		res.Notice = msgDegraded
	}

	writeJSON(w, http.StatusOK, res)
}

func (h ProductsHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{
		Categories: nonNil(h.viewer.Categories(r.Context())),
	})
}

func (h ProductsHandler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostRefresh"
	log := slog.With("op", op)

	view, err := h.refresher.Refresh(r.Context())
	if err != nil && !errors.Is(err, domain.ErrRemoteUnavailable) {
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to refresh products",
		})
		log.Error("failed to refresh", "err", err)
		return
	}

	res := ProductsResponse{
		Products:      fromDomainList(view.Products),
		Total:         view.Total,
		Shown:         len(view.Products),
		Degraded:      view.Degraded,
		Categories:    nonNil(domain.Categories(view.Products)),
		ActiveFilters: []string{},
	}
	if view.Degraded {
		res.Notice = msgDegraded
	}

	writeJSON(w, http.StatusOK, res)
	log.Info("refreshed", "nProducts", view.Total, "degraded", view.Degraded)
}

func (h ProductsHandler) PostProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PostProduct"
	log := slog.With("op", op)

	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}

	res, err := h.editor.CreateProduct(r.Context(), toDomain(p))
	if err != nil {
		writeMutationError(w, err)
		log.Warn("failed to create product", "err", err)
		return
	}

	writeJSON(w, http.StatusCreated, MutationResponse{
		Product: fromDomain(res.Product),
		Synced:  res.Synced,
		Message: msgCreated,
	})
	log.Info("created", "id", res.Product.ID, "synced", res.Synced)
}

func (h ProductsHandler) PutProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.PutProduct"
	log := slog.With("op", op)

	id := domain.ID(r.PathValue("id"))

	var p Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON data"})
		log.Warn("failed to parse JSON", "err", err)
		return
	}
	if p.ID != "" && p.ID != id {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("body id %q does not match path id %q", p.ID, id),
		})
		return
	}
	p.ID = id

	res, err := h.editor.UpdateProduct(r.Context(), toDomain(p))
	if err != nil {
		writeMutationError(w, err)
		log.Warn("failed to update product", "id", id, "err", err)
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{
		Product: fromDomain(res.Product),
		Synced:  res.Synced,
		Message: msgUpdated,
	})
	log.Info("updated", "id", id, "synced", res.Synced)
}

func (h ProductsHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.DeleteProduct"
	log := slog.With("op", op)

	id := domain.ID(r.PathValue("id"))

	res, err := h.editor.RemoveProduct(r.Context(), id)
	if err != nil {
		writeMutationError(w, err)
		log.Warn("failed to delete product", "id", id, "err", err)
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{
		Product: fromDomain(res.Product),
		Synced:  res.Synced,
		Message: msgRemoved,
	})
	log.Info("deleted", "id", id, "synced", res.Synced)
}

func parseFilter(q url.Values) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}

	var err error
	if f.MinPrice, err = parseOptFloat(q, "min_price"); err != nil {
		return domain.ProductFilter{}, err
	}
	if f.MaxPrice, err = parseOptFloat(q, "max_price"); err != nil {
		return domain.ProductFilter{}, err
	}

	minRating, err := parseOptFloat(q, "min_rating")
	if err != nil {
		return domain.ProductFilter{}, err
	}
	if minRating != nil {
		if *minRating < 0 || *minRating > 5 {
			return domain.ProductFilter{}, errors.New("min_rating: must be in [0, 5]")
		}
		f.MinRating = *minRating
	}

	return f, nil
}

func parseOptFloat(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q", name, raw)
	}
	return &v, nil
}

func writeMutationError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:  domain.ErrValidation.Error(),
			Fields: verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{
			Error: domain.ErrNotFound.Error(),
		})
	default:
		writeError(w, http.StatusInternalServerError, ErrorResponse{
			Error: "failed to apply change",
		})
	}
}

func writeError(w http.ResponseWriter, code int, res ErrorResponse) {
	writeJSON(w, code, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	const op = "httphandler.writeJSON"

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response body", "op", op, "err", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
