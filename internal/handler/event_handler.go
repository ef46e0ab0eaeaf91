package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/models"
	"github.com/hayekcoin/campus-wallet/internal/service"
	u "github.com/hayekcoin/campus-wallet/internal/utils"
)

// EventHandler serves campus events, their businesses and memberships, plus
// settlement submission for a business's event takings.
type EventHandler struct {
	eventService      service.EventService
	settlementService service.SettlementService
	auditService      service.AuditService
	logger            *slog.Logger
}

func NewEventHandler(eventService service.EventService, settlementService service.SettlementService, auditService service.AuditService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventService:      eventService,
		settlementService: settlementService,
		auditService:      auditService,
		logger:            logger,
	}
}

func (h *EventHandler) RegisterRoutes(router *mux.Router) {
	gate := func(cap auth.Capability, fn http.HandlerFunc) http.Handler {
		return auth.Require(cap)(fn)
	}

	router.Handle("/events", gate(auth.CapManageEvents, h.CreateEvent)).Methods(http.MethodPost)
	router.Handle("/events", gate(auth.CapManageEvents, h.ListEvents)).Methods(http.MethodGet)
	router.Handle("/events/{id}", gate(auth.CapManageEvents, h.GetEvent)).Methods(http.MethodGet)
	router.Handle("/events/{id}", gate(auth.CapManageEvents, h.UpdateEvent)).Methods(http.MethodPut)
	router.Handle("/events/{id}", gate(auth.CapManageEvents, h.DeleteEvent)).Methods(http.MethodDelete)

	router.Handle("/events/{id}/businesses", gate(auth.CapManageEvents, h.CreateBusiness)).Methods(http.MethodPost)
	router.Handle("/events/{id}/businesses", gate(auth.CapManageEvents, h.ListBusinesses)).Methods(http.MethodGet)
	router.Handle("/businesses/{id}", gate(auth.CapManageEvents, h.UpdateBusiness)).Methods(http.MethodPut)
	router.Handle("/businesses/{id}", gate(auth.CapManageEvents, h.DeleteBusiness)).Methods(http.MethodDelete)

	router.Handle("/businesses/{id}/members", gate(auth.CapManageEvents, h.AddMember)).Methods(http.MethodPost)
	router.Handle("/businesses/{id}/members", gate(auth.CapManageEvents, h.ListMembers)).Methods(http.MethodGet)
	router.Handle("/businesses/{id}/members/{userId}", gate(auth.CapManageEvents, h.RemoveMember)).Methods(http.MethodDelete)

	router.Handle("/businesses/{id}/settlements", gate(auth.CapRequestSettlement, h.CreateSettlement)).Methods(http.MethodPost)
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create event")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "event.create",
		EntityType:  models.EntityTypeEvent,
		EntityID:    event.ID,
		Description: "evento creado",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page, pageSize := u.ParsePagination(r)
	rows, total, err := h.eventService.ListEvents(r.Context(), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list events")
		return
	}
	u.WriteJSON(w, http.StatusOK, models.PageResponse{
		Rows:     rows,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "get event")
		return
	}
	u.WriteJSON(w, http.StatusOK, event)
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := h.eventService.UpdateEvent(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update event")
		return
	}
	u.WriteJSON(w, http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.eventService.DeleteEvent(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete event")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "event.delete",
		EntityType:  models.EntityTypeEvent,
		EntityID:    id,
		Description: "evento eliminado",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *EventHandler) CreateBusiness(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var req models.BusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	business, err := h.eventService.CreateBusiness(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create business")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "business.create",
		EntityType:  models.EntityTypeBusiness,
		EntityID:    business.ID,
		Description: "negocio creado",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, business)
}

func (h *EventHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := h.eventService.ListBusinesses(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "list businesses")
		return
	}
	u.WriteJSON(w, http.StatusOK, businesses)
}

func (h *EventHandler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	var req models.BusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	business, err := h.eventService.UpdateBusiness(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update business")
		return
	}
	u.WriteJSON(w, http.StatusOK, business)
}

func (h *EventHandler) DeleteBusiness(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	id := mux.Vars(r)["id"]

	if err := h.eventService.DeleteBusiness(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete business")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "business.delete",
		EntityType:  models.EntityTypeBusiness,
		EntityID:    id,
		Description: "negocio eliminado, cuenta retirada",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *EventHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req models.MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		u.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	member, err := h.eventService.AddMember(r.Context(), mux.Vars(r)["id"], req.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err, "add member")
		return
	}
	u.WriteJSON(w, http.StatusCreated, member)
}

func (h *EventHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.eventService.ListMembers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleServiceError(w, h.logger, err, "list members")
		return
	}
	u.WriteJSON(w, http.StatusOK, members)
}

func (h *EventHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.eventService.RemoveMember(r.Context(), vars["id"], vars["userId"]); err != nil {
		handleServiceError(w, h.logger, err, "remove member")
		return
	}
	u.WriteJSON(w, http.StatusNoContent, nil)
}

// CreateSettlement submits a settlement request for the business's full event
// balance. The amount is snapshotted here; the sweep happens on approval.
func (h *EventHandler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	businessID := mux.Vars(r)["id"]

	request, err := h.settlementService.Create(r.Context(), businessID)
	if err != nil {
		handleServiceError(w, h.logger, err, "create settlement")
		return
	}

	h.auditService.Record(&models.AuditLog{
		ActorID:     actor.ID,
		Action:      "settlement.create",
		EntityType:  models.EntityTypeSettlement,
		EntityID:    request.ID,
		Description: "solicitud de liquidación",
		IP:          u.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	u.WriteJSON(w, http.StatusCreated, request)
}
