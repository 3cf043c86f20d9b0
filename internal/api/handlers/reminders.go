package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notesapp/internal/core"
	"notesapp/internal/types"
)

// ReminderService is the subset of scheduler.ReminderService the HTTP layer drives.
type ReminderService interface {
	ScheduleReminder(ctx context.Context, rem *types.Reminder) error
	GetReminder(ctx context.Context, id string) (*types.Reminder, error)
	CancelReminder(ctx context.Context, id string) error
	RescheduleReminder(ctx context.Context, id string, newTime time.Time) (*types.Reminder, error)
	SnoozeReminder(ctx context.Context, id string) (*types.Reminder, error)
	DeliverNotification(ctx context.Context, rem *types.Reminder) error
}

// CreateReminderRequest is the body of POST /v1/reminders.
type CreateReminderRequest struct {
	TargetID   string    `json:"target_id" validate:"required,max=128"`
	TargetKind string    `json:"target_kind" validate:"omitempty,oneof=note task"`
	DueAt      time.Time `json:"due_at" validate:"required"`
	Channel    string    `json:"channel" validate:"required,channel_type"`
	Message    string    `json:"message" validate:"max=2000"`
}

// RescheduleRequest is the body of POST /v1/reminders/{id}/reschedule.
type RescheduleRequest struct {
	DueAt time.Time `json:"due_at" validate:"required"`
}

// ReminderHandler exposes reminder scheduling and delivery over HTTP.
type ReminderHandler struct {
	svc       ReminderService
	validator *core.Validator
	logger    *slog.Logger
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(svc ReminderService, v *core.Validator, logger *slog.Logger) *ReminderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{
		svc:       svc,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the reminder endpoints on the given router.
func (h *ReminderHandler) RegisterRoutes(r chi.Router) {
	r.Route("/reminders", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/deliver", h.Deliver)
			r.Post("/reschedule", h.Reschedule)
			r.Post("/snooze", h.Snooze)
		})
	})
}

// Create handles POST /v1/reminders.
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateReminderRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	channel, err := types.ParseChannelType(req.Channel)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	kind := types.TargetTask
	if req.TargetKind != "" {
		kind = types.TargetKind(req.TargetKind)
	}

	rem := types.NewReminder(req.TargetID, kind, req.DueAt, channel, req.Message)
	if err := h.svc.ScheduleReminder(r.Context(), rem); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "reminder created via api",
		"reminder_id", rem.ID,
		"channel", rem.Channel,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rem})
}

// Get handles GET /v1/reminders/{id}.
func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}

	rem, err := h.svc.GetReminder(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rem})
}

// Delete handles DELETE /v1/reminders/{id}. The reminder is removed outright.
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}

	if err := h.svc.CancelReminder(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}
	core.NoContent(w)
}

// Deliver handles POST /v1/reminders/{id}/deliver, sending the reminder now
// regardless of its due time. A second call yields 409.
func (h *ReminderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}

	rem, err := h.svc.GetReminder(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.svc.DeliverNotification(r.Context(), rem); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rem})
}

// Reschedule handles POST /v1/reminders/{id}/reschedule.
func (h *ReminderHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	rem, err := h.svc.RescheduleReminder(r.Context(), id, req.DueAt)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rem})
}

// Snooze handles POST /v1/reminders/{id}/snooze. The reminder keeps its due
// time and becomes eligible for the next tick.
func (h *ReminderHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	id, ok := reminderID(w, r)
	if !ok {
		return
	}

	rem, err := h.svc.SnoozeReminder(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rem})
}

func reminderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"Reminder ID is required",
			nil,
		))
		return "", false
	}
	return id, true
}
