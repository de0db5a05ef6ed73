package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"medibook/internal/camps/service"
	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

type CampHandler struct {
	service service.CampService
	log     *logger.Logger
}

func NewCampHandler(service service.CampService, log *logger.Logger) *CampHandler {
	return &CampHandler{
		service: service,
		log:     log,
	}
}

type registrationRequest struct {
	ParticipantID string `json:"participant_id"`
}

type statusRequest struct {
	OrganizerID string           `json:"organizer_id"`
	Status      model.CampStatus `json:"status"`
}

func (h *CampHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var camp model.HealthCamp
	if err := json.NewDecoder(r.Body).Decode(&camp); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &camp); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, camp); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *CampHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	camp, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, camp); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CampHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	var camps []*model.HealthCamp
	var total int64
	if organizerID := r.URL.Query().Get("organizer_id"); organizerID != "" {
		camps, total, err = h.service.ListByOrganizer(r.Context(), organizerID, limit, offset)
	} else {
		camps, total, err = h.service.GetAll(r.Context(), limit, offset)
	}
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, camps, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *CampHandler) Register(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Register", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	camp, err := h.service.Register(r.Context(), id, req.ParticipantID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Register", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, camp); err != nil {
		h.log.Error("failed to write success response", "handler", "Register", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CampHandler) Unregister(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req registrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Unregister", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	camp, err := h.service.Unregister(r.Context(), id, req.ParticipantID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Unregister", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, camp); err != nil {
		h.log.Error("failed to write success response", "handler", "Unregister", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CampHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "AdvanceStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.AdvanceStatus(r.Context(), id, req.OrganizerID, req.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "AdvanceStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CampHandler) Discover(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidLocation("invalid or missing lat parameter")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Discover", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidLocation("invalid or missing lng parameter")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Discover", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	radiusKm := 0.0
	if s := query.Get("radius_km"); s != "" {
		radiusKm, err = strconv.ParseFloat(s, 64)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid radius_km parameter: "+s)); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "Discover", "operation", "WriteError", "error", writeErr)
			}
			return
		}
	}

	camps, err := h.service.Discover(r.Context(), model.Location{Latitude: lat, Longitude: lng}, radiusKm)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Discover", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, camps); err != nil {
		h.log.Error("failed to write success response", "handler", "Discover", "operation", "WriteSuccess", "error", err)
	}
}

func (h *CampHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/camps", h.Create)
	router.GET("/api/v1/camps", h.GetAll)
	router.GET("/api/v1/camps/discover", h.Discover)
	router.GET("/api/v1/camps/id/:id", h.GetByID)
	router.POST("/api/v1/camps/id/:id/register", h.Register)
	router.POST("/api/v1/camps/id/:id/unregister", h.Unregister)
	router.PATCH("/api/v1/camps/id/:id/status", h.AdvanceStatus)
}
