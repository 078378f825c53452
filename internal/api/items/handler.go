// Package items is the demo API router mounted by the app server.
package items

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/fullstack-app-server/internal/domain"
	"github.com/tjfontaine/fullstack-app-server/internal/server"
	"github.com/tjfontaine/fullstack-app-server/internal/storage"
)

const maxTitleLength = 255

type Handler struct {
	store storage.ItemStore
}

func NewHandler(store storage.ItemStore) *Handler {
	return &Handler{store: store}
}

// NewRouter returns a chi router serving the item endpoints under /api/items.
func NewRouter(store storage.ItemStore) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Route("/api/items", func(r chi.Router) {
		r.Method(http.MethodGet, "/", server.HandlerFunc(h.Browse))
		r.Method(http.MethodPost, "/", server.HandlerFunc(h.Add))
		r.Method(http.MethodGet, "/{id}", server.HandlerFunc(h.Read))
	})
	return r
}

type createItemRequest struct {
	Title string `json:"title"`
}

// Browse lists items. Optional limit and offset query parameters page the result.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) error {
	opts, err := listOptions(r)
	if err != nil {
		return err
	}

	items, err := h.store.ListItems(r.Context(), opts)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, items)
}

// Read returns a single item by numeric id.
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return domain.ErrInvalidRequest("item id must be a positive integer")
	}

	item, err := h.store.GetItem(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.ErrNotFound("item not found").WithCause(err)
	}
	if err != nil {
		return err
	}

	server.AddLogField(r.Context(), "item_id", strconv.FormatInt(item.ID, 10))
	return writeJSON(w, http.StatusOK, item)
}

// Add creates an item from a JSON body and answers 201 with its id.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) error {
	var req createItemRequest
	if err := server.Bind(r, &req); err != nil {
		return err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.ErrInvalidRequest("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return domain.ErrInvalidRequest("title must be at most 255 characters")
	}

	item := &storage.Item{Title: title}
	if err := h.store.CreateItem(r.Context(), item); err != nil {
		return err
	}

	server.AddLogField(r.Context(), "item_id", strconv.FormatInt(item.ID, 10))
	w.Header().Set("Location", "/api/items/"+strconv.FormatInt(item.ID, 10))
	return writeJSON(w, http.StatusCreated, map[string]int64{"insertId": item.ID})
}

func listOptions(r *http.Request) (storage.ListOptions, error) {
	var opts storage.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, domain.ErrInvalidRequest("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, domain.ErrInvalidRequest("offset must be a non-negative integer")
		}
		opts.Offset = n
	}

	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
