package transport

import (
	"net/http"
	"strings"

	"campus-eats/internal/menu"
	"campus-eats/internal/utils"

	"github.com/go-chi/chi/v5"
)

type MenuHandler struct {
	MenuSvc menu.Service
}

func NewMenuHandler(svc menu.Service) *MenuHandler {
	return &MenuHandler{MenuSvc: svc}
}

// List supports ?category=&search=&vegetarian=true&vegan=true&glutenFree=true.
// A category of "all" is the same as no category.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := menu.ListFilter{
		Search:     q.Get("search"),
		Vegetarian: utils.ParseBool(q.Get("vegetarian")),
		Vegan:      utils.ParseBool(q.Get("vegan")),
		GlutenFree: utils.ParseBool(q.Get("glutenFree")),
	}
	if c := strings.TrimSpace(q.Get("category")); c != "" && c != "all" {
		cat := menu.Category(c)
		filter.Category = &cat
	}

	items, err := h.MenuSvc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.MenuSvc.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *MenuHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.MenuSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
