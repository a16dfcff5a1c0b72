package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"seatbook/internal/bookings/service"
	"seatbook/pkg/auth"
	apperrors "seatbook/pkg/errors"
	httputil "seatbook/pkg/http"
	"seatbook/pkg/logger"
	"seatbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	admission service.AdmissionService
	service   service.BookingService
	log       *logger.Logger
}

func NewBookingHandler(admission service.AdmissionService, service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		admission: admission,
		service:   service,
		log:       log,
	}
}

func (h *BookingHandler) Admit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "Admit")
	if !ok {
		return
	}

	var req model.AdmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		message := "Invalid request body"
		if errors.Is(err, io.EOF) {
			message = "Request body is empty"
		}
		h.writeError(w, "Admit", apperrors.InvalidInput(message))
		return
	}

	booking, err := h.admission.Admit(r.Context(), req, caller)
	if err != nil {
		h.writeError(w, "Admit", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Admit", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, ok := h.caller(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"), caller)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "ListMine")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	bookings, total, err := h.service.ListMine(r.Context(), caller, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, ok := h.caller(w, r, "ListAll")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	filter := model.BookingFilter{SeatID: r.URL.Query().Get("seat_id")}
	if filter.From, err = httputil.ExtractTimeParam(r, "start_time"); err != nil {
		h.writeError(w, "ListAll", err)
		return
	}
	if filter.To, err = httputil.ExtractTimeParam(r, "end_time"); err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	bookings, total, err := h.service.ListAll(r.Context(), caller, filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) SeatOccupancy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	from, err := httputil.ExtractTimeParam(r, "start_time")
	if err != nil {
		h.writeError(w, "SeatOccupancy", err)
		return
	}
	to, err := httputil.ExtractTimeParam(r, "end_time")
	if err != nil {
		h.writeError(w, "SeatOccupancy", err)
		return
	}

	bookings, err := h.service.SeatOccupancy(r.Context(), ps.ByName("seat_id"), from, to)
	if err != nil {
		h.writeError(w, "SeatOccupancy", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "SeatOccupancy", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) caller(w http.ResponseWriter, r *http.Request, handler string) (model.CallerIdentity, bool) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
	}
	return caller, ok
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Admit)
	router.GET("/api/v1/bookings", h.ListAll)
	router.GET("/api/v1/bookings/me", h.ListMine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.GET("/api/v1/seats/:seat_id/bookings", h.SeatOccupancy)
}
