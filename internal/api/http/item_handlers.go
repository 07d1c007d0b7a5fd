package httpapi

import (
	"net/http"

	appCatalog "github.com/barter-hub/barter-hub/internal/application/catalog"
	"github.com/barter-hub/barter-hub/internal/domain/image"
	"github.com/barter-hub/barter-hub/internal/domain/item"
)

// imagePayload carries one picture inline; Data is base64 in JSON.
type imagePayload struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

func toUploads(in []imagePayload) []image.Upload {
	out := make([]image.Upload, 0, len(in))
	for _, p := range in {
		out = append(out, image.Upload{Name: p.Name, Data: p.Data})
	}
	return out
}

type itemCreateRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category,omitempty"`
	Condition   string         `json:"condition,omitempty"`
	WishedItem  string         `json:"wishedItem,omitempty"`
	Images      []imagePayload `json:"images,omitempty"`
	ImageRefs   []string       `json:"imageRefs,omitempty"`
}

type itemUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Condition   *string `json:"condition,omitempty"`
	WishedItem  *string `json:"wishedItem,omitempty"`
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	it, err := s.catalogSvc.CreateItem(r.Context(), actorID(r.Context()), appCatalog.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		WishedItem:  req.WishedItem,
		Images:      toUploads(req.Images),
		ImageRefs:   req.ImageRefs,
	})
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusCreated, it)
}

func (s *Server) browseItems(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r, 20, 100)
	items, err := s.catalogSvc.Browse(r.Context(), r.URL.Query().Get("category"), limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: items, Limit: limit, Offset: offset})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	it, err := s.catalogSvc.GetItem(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, it)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	var req itemUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	it, err := s.catalogSvc.UpdateItem(r.Context(), actorID(r.Context()), id, appCatalog.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Condition:   req.Condition,
		WishedItem:  req.WishedItem,
	})
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, it)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	if err := s.catalogSvc.DeleteItem(r.Context(), actorID(r.Context()), id); err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// offerCandidates lists the caller's available items for a proposal on
// itemId, the ones matching the owner's wish first.
func (s *Server) offerCandidates(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "itemId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid itemId")
		return
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	candidates, err := s.proposals.OfferCandidates(r.Context(), actorID(r.Context()), id, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: candidates, Limit: limit, Offset: offset})
}

func (s *Server) myItems(w http.ResponseWriter, r *http.Request) {
	var status *item.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := item.Status(v)
		if err := item.ValidateStatus(st); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
			return
		}
		status = &st
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	items, err := s.catalogSvc.ListUserItems(r.Context(), actorID(r.Context()), status, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: items, Limit: limit, Offset: offset})
}
