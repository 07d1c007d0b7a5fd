package httpapi

import (
	"net/http"

	appUser "github.com/barter-hub/barter-hub/internal/application/user"
)

type contactUpdateRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

type passwordUpdateRequest struct {
	Password string `json:"password"`
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	p, err := s.userSvc.Profile(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) listRatings(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "userId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid userId")
		return
	}
	limit, offset := parseLimitOffset(r, 20, 100)
	ratings, err := s.ratingSvc.ListReceived(r.Context(), id, limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, listResponse{Items: ratings, Limit: limit, Offset: offset})
}

func (s *Server) myProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.userSvc.Profile(r.Context(), actorID(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	var req contactUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	u, err := s.userSvc.UpdateContact(r.Context(), actorID(r.Context()), appUser.ContactInput{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
	})
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, u.Contact())
}

func (s *Server) setPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if err := s.userSvc.SetPassword(r.Context(), actorID(r.Context()), req.Password); err != nil {
		s.respondServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "OK"})
}

// counters backs the inbox badges; it is recomputed on every call.
func (s *Server) counters(w http.ResponseWriter, r *http.Request) {
	c, err := s.bridge.Counters(r.Context(), actorID(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, c)
}
