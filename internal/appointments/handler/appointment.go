package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"medibook/internal/appointments/service"
	"medibook/internal/consult"
	"medibook/pkg/config"
	apperrors "medibook/pkg/errors"
	httputil "medibook/pkg/http"
	"medibook/pkg/logger"
	"medibook/pkg/model"
)

type AppointmentHandler struct {
	service service.AppointmentService
	cfg     *config.Config
	log     *logger.Logger
	now     func() time.Time
}

func NewAppointmentHandler(service service.AppointmentService, cfg *config.Config, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		cfg:     cfg,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type transitionRequest struct {
	ActorID         string                  `json:"actor_id"`
	ActorRole       service.Role            `json:"actor_role"`
	Target          model.AppointmentStatus `json:"target"`
	ObservedVersion int64                   `json:"observed_version"`
}

type paymentRequest struct {
	Method model.PaymentMethod `json:"method"`
	Amount int64               `json:"amount"`
}

type settlementRequest struct {
	Succeeded bool `json:"succeeded"`
}

type gateResponse struct {
	AppointmentID string           `json:"appointment_id"`
	StartsAt      time.Time        `json:"starts_at"`
	Snapshot      consult.Snapshot `json:"snapshot"`
	Phase         string           `json:"phase"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var appointment model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appointment); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Request(r.Context(), &appointment); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, appointment); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	appointment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// List serves both party views: exactly one of patient_id or doctor_id
// selects whose appointments to return.
func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	patientID := query.Get("patient_id")
	doctorID := query.Get("doctor_id")

	var appointments []*model.Appointment
	var total int64
	switch {
	case patientID != "" && doctorID == "":
		appointments, total, err = h.service.ListByPatient(r.Context(), patientID, limit, offset)
	case doctorID != "" && patientID == "":
		appointments, total, err = h.service.ListByDoctor(r.Context(), doctorID, limit, offset)
	default:
		err = apperrors.InvalidInput("Provide exactly one of patient_id or doctor_id")
	}
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appointments, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *AppointmentHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Transition", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	actor := service.Actor{ID: req.ActorID, Role: req.ActorRole}
	appointment, err := h.service.Transition(r.Context(), id, actor, req.Target, req.ObservedVersion)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Transition", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RecordPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "RecordPayment", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appointment, err := h.service.RecordPayment(r.Context(), id, req.Method, req.Amount)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "RecordPayment", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "RecordPayment", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) SettlePayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req settlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "SettlePayment", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	appointment, err := h.service.SettlePayment(r.Context(), id, req.Succeeded)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SettlePayment", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write success response", "handler", "SettlePayment", "operation", "WriteSuccess", "error", err)
	}
}

// Gate reports where a video consultation stands relative to the configured
// notification and join thresholds, evaluated at the server clock.
func (h *AppointmentHandler) Gate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	appointment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Gate", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if appointment.Modality != model.ModalityVideo {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Only video appointments have a join gate")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Gate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	thresholds := consult.Thresholds{
		NotifyThreshold: h.cfg.NotifyThreshold,
		JoinGateLead:    h.cfg.JoinGateLead,
	}
	startsAt := appointment.StartsAt()
	snapshot := consult.Evaluate(startsAt, h.now(), thresholds)

	gate := consult.NewGate(startsAt, thresholds)
	phase := gate.Observe(h.now())

	response := gateResponse{
		AppointmentID: appointment.ID,
		StartsAt:      startsAt,
		Snapshot:      snapshot,
		Phase:         phase.String(),
	}
	if err := httputil.WriteSuccess(w, response); err != nil {
		h.log.Error("failed to write success response", "handler", "Gate", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Create)
	router.GET("/api/v1/appointments", h.List)
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.POST("/api/v1/appointments/id/:id/transition", h.Transition)
	router.POST("/api/v1/appointments/id/:id/payment", h.RecordPayment)
	router.POST("/api/v1/appointments/id/:id/payment/settlement", h.SettlePayment)
	router.GET("/api/v1/appointments/id/:id/gate", h.Gate)
}
