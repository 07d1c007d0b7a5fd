package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	appExchange "github.com/barter-hub/barter-hub/internal/application/exchange"
	appProposal "github.com/barter-hub/barter-hub/internal/application/proposal"
	"github.com/barter-hub/barter-hub/internal/domain/exchange"
)

type otherItemPayload struct {
	Description string         `json:"description"`
	Images      []imagePayload `json:"images,omitempty"`
}

func toDrafts(in []otherItemPayload) []appProposal.OtherItemDraft {
	out := make([]appProposal.OtherItemDraft, 0, len(in))
	for _, o := range in {
		out = append(out, appProposal.OtherItemDraft{Description: o.Description, Images: toUploads(o.Images)})
	}
	return out
}

type exchangeCreateRequest struct {
	RequestedItemID uuid.UUID          `json:"requestedItemId"`
	OfferedItemIDs  []uuid.UUID        `json:"offeredItemIds,omitempty"`
	OtherItems      []otherItemPayload `json:"otherItems,omitempty"`
	Message         string             `json:"message,omitempty"`
}

type exchangeModifyRequest struct {
	OfferedItemIDs   []uuid.UUID        `json:"offeredItemIds,omitempty"`
	OtherItems       []otherItemPayload `json:"otherItems,omitempty"`
	KeepOtherItemIDs []uuid.UUID        `json:"keepOtherItemIds,omitempty"`
	Message          string             `json:"message,omitempty"`
}

type respondRequest struct {
	Decision string `json:"decision"`
}

type counterOfferRequest struct {
	ItemIDs []uuid.UUID `json:"itemIds"`
}

type rateRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

type rateResponse struct {
	Rating   interface{} `json:"rating"`
	Exchange interface{} `json:"exchange"`
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) createExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	ex, err := s.exchangeSvc.Create(r.Context(), actorID(r.Context()), appProposal.BuildInput{
		RequestedItemID: req.RequestedItemID,
		OfferedItemIDs:  req.OfferedItemIDs,
		OtherItems:      toDrafts(req.OtherItems),
		Message:         req.Message,
	})
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, ex)
}

func (s *Server) listExchanges(w http.ResponseWriter, r *http.Request) {
	q := appExchange.ListQuery{Box: appExchange.Box(r.URL.Query().Get("box"))}
	if v := r.URL.Query().Get("status"); v != "" {
		st := exchange.Status(v)
		q.Status = &st
	}
	q.Limit, q.Offset = parseLimitOffset(r, 20, 100)
	views, total, err := s.exchangeSvc.List(r.Context(), actorID(r.Context()), q)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: views, Total: &total, Limit: q.Limit, Offset: q.Offset})
}

func (s *Server) getExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	view, err := s.exchangeSvc.Get(r.Context(), actorID(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// pollExchange is the refresh endpoint clients call every few seconds.
func (s *Server) pollExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	since, ok := sinceParam(w, r)
	if !ok {
		return
	}
	res, err := s.exchangeSvc.Poll(r.Context(), actorID(r.Context()), id, since)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) respondExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	var req respondRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	ex, err := s.exchangeSvc.Respond(r.Context(), actorID(r.Context()), id, appExchange.Decision(req.Decision))
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (s *Server) modifyExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	var req exchangeModifyRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	ex, err := s.exchangeSvc.Modify(r.Context(), actorID(r.Context()), id, appExchange.ModifyInput{
		OfferedItemIDs:   req.OfferedItemIDs,
		OtherItems:       toDrafts(req.OtherItems),
		KeepOtherItemIDs: req.KeepOtherItemIDs,
		Message:          req.Message,
	})
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (s *Server) counterOffer(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	var req counterOfferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	ex, err := s.exchangeSvc.AddCounterOffer(r.Context(), actorID(r.Context()), id, req.ItemIDs)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (s *Server) confirmExchange(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.exchangeSvc.Confirm)
}

func (s *Server) cancelExchange(w http.ResponseWriter, r *http.Request) {
	s.simpleTransition(w, r, s.exchangeSvc.Cancel)
}

func (s *Server) simpleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, exchangeID uuid.UUID) (*exchange.Exchange, error)) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	ex, err := fn(r.Context(), actorID(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, ex)
}

func (s *Server) rateExchange(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	var req rateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	rt, ex, err := s.ratingSvc.RateAndComplete(r.Context(), actorID(r.Context()), id, req.Score, req.Comment)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, rateResponse{Rating: rt, Exchange: ex})
}

func (s *Server) exchangeContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	contact, err := s.exchangeSvc.Contacts(r.Context(), actorID(r.Context()), id)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	since, ok := sinceParam(w, r)
	if !ok {
		return
	}
	limit, _ := parseLimitOffset(r, 200, 500)
	messages, err := s.chatSvc.ListMessages(r.Context(), actorID(r.Context()), id, since, limit)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: messages, Limit: limit})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	msg, err := s.chatSvc.SendMessage(r.Context(), actorID(r.Context()), id, req.Text)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id, ok := exchangeIDParam(w, r)
	if !ok {
		return
	}
	if err := s.chatSvc.MarkRead(r.Context(), actorID(r.Context()), id); err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

func exchangeIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUIDParam(r, "exchangeId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid exchangeId")
		return uuid.Nil, false
	}
	return id, true
}

// sinceParam reads an optional RFC 3339 ?since= cursor.
func sinceParam(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid since")
		return nil, false
	}
	return &t, true
}
