// Package ui exposes a postplan engine as a JSON http.Handler that an
// embedding application can mount next to its own routes.
//
// Usage:
//
//	mux.Handle("/schedule/", http.StripPrefix("/schedule", ui.Handler(eng)))
package ui

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/postplanner/postplan/pkg/calendar"
	"github.com/postplanner/postplan/pkg/core"
	"github.com/postplanner/postplan/pkg/engine"
	"github.com/postplanner/postplan/pkg/lifecycle"
	"github.com/postplanner/postplan/pkg/registry"
)

// Handler creates an http.Handler serving the scheduling API for one
// engine. Authentication and tenancy are the embedding application's
// concern; mount one handler per workspace engine.
func Handler(eng *engine.Engine) http.Handler {
	s := &service{eng: eng}

	r := chi.NewRouter()
	r.Route("/slots", func(r chi.Router) {
		r.Get("/", s.listSlots)
		r.Post("/", s.addSlot)
		r.Put("/preset", s.applyPreset)
		r.Patch("/{slotID}", s.updateSlot)
		r.Delete("/{slotID}", s.removeSlot)
		r.Get("/{slotID}/assignments", s.listBySlot)
	})
	r.Route("/assignments", func(r chi.Router) {
		r.Post("/", s.schedule)
		r.Get("/{assignmentID}", s.getAssignment)
		r.Patch("/{assignmentID}", s.reschedule)
		r.Delete("/{assignmentID}", s.cancel)
		r.Post("/{assignmentID}/clone", s.clone)
		r.Post("/{assignmentID}/outcome", s.outcome)
		r.Post("/{assignmentID}/retry", s.retry)
	})
	r.Get("/calendar", s.calendarView)
	return r
}

type service struct {
	eng *engine.Engine
}

type slotRequest struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

type slotResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Time string `json:"time"`
}

func toSlotResponse(s *core.TimeSlot) slotResponse {
	return slotResponse{ID: s.ID, Name: s.Name, Time: s.At.Format()}
}

func (s *service) listSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.eng.ListSlots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]slotResponse, len(slots))
	for i := range slots {
		out[i] = toSlotResponse(&slots[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *service) addSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if !decode(w, r, &req) {
		return
	}
	at, err := core.ParseTimeOfDay(req.Time)
	if err != nil {
		writeError(w, err)
		return
	}
	slot, err := s.eng.AddSlot(r.Context(), req.Name, at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSlotResponse(slot))
}

func (s *service) updateSlot(w http.ResponseWriter, r *http.Request) {
	slotID := chi.URLParam(r, "slotID")
	var req struct {
		Name *string `json:"name"`
		Time *string `json:"time"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Name != nil {
		if err := s.eng.RenameSlot(r.Context(), slotID, *req.Name); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Time != nil {
		at, err := core.ParseTimeOfDay(*req.Time)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.eng.RescheduleSlot(r.Context(), slotID, at); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) removeSlot(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.RemoveSlot(r.Context(), chi.URLParam(r, "slotID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) applyPreset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slots []slotRequest `json:"slots"`
	}
	if !decode(w, r, &req) {
		return
	}
	preset := make([]registry.PresetSlot, 0, len(req.Slots))
	for _, p := range req.Slots {
		at, err := core.ParseTimeOfDay(p.Time)
		if err != nil {
			writeError(w, err)
			return
		}
		preset = append(preset, registry.PresetSlot{Name: p.Name, At: at})
	}
	if err := s.eng.ApplyPreset(r.Context(), preset); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) listBySlot(w http.ResponseWriter, r *http.Request) {
	assignments, err := s.eng.ListBySlot(r.Context(), chi.URLParam(r, "slotID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

type scheduleRequest struct {
	Item core.ContentItem `json:"item"`
	Date string           `json:"date"`
}

func (s *service) schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decode(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.eng.ScheduleItem(r.Context(), &req.Item, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *service) getAssignment(w http.ResponseWriter, r *http.Request) {
	a, err := s.eng.GetAssignment(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *service) reschedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if !decode(w, r, &req) {
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := s.eng.Reschedule(r.Context(), chi.URLParam(r, "assignmentID"), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *service) cancel(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.CancelSchedule(r.Context(), chi.URLParam(r, "assignmentID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) clone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item core.ContentItem `json:"item"`
	}
	if !decode(w, r, &req) {
		return
	}
	a, err := s.eng.CloneSchedule(r.Context(), chi.URLParam(r, "assignmentID"), &req.Item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *service) outcome(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	outcome := lifecycle.Success()
	if !req.Success {
		outcome = lifecycle.Failure(req.Reason)
	}
	a, err := s.eng.ReportPublishOutcome(r.Context(), chi.URLParam(r, "assignmentID"), outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *service) retry(w http.ResponseWriter, r *http.Request) {
	a, err := s.eng.Retry(r.Context(), chi.URLParam(r, "assignmentID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *service) calendarView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	mode := calendar.ViewMode(q.Get("mode"))
	switch mode {
	case calendar.ViewMonth, calendar.ViewWeek, calendar.ViewDay:
	case "":
		mode = calendar.ViewMonth
	default:
		http.Error(w, "unknown view mode", http.StatusBadRequest)
		return
	}

	anchor, err := core.ParseDate(q.Get("anchor"))
	if err != nil {
		writeError(w, err)
		return
	}

	filter := calendar.Filter{
		Platform: q.Get("platform"),
		Type:     core.ContentType(q.Get("type")),
		Campaign: q.Get("campaign"),
		Status:   core.PublishStatus(q.Get("status")),
	}

	buckets, err := s.eng.GetCalendarView(r.Context(), mode, anchor, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses: not-found to 404,
// conflicts and illegal transitions to 409, validation to 422.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrSlotNotFound),
		errors.Is(err, core.ErrAssignmentNotFound),
		errors.Is(err, core.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateSlotTime),
		errors.Is(err, core.ErrAlreadyPublished),
		errors.Is(err, core.ErrNotFailed),
		errors.Is(err, core.ErrNoSlotsConfigured):
		status = http.StatusConflict
	case errors.Is(err, core.ErrMalformedTime),
		errors.Is(err, core.ErrMalformedDate),
		errors.Is(err, core.ErrEmptySlotName),
		errors.Is(err, core.ErrSlotNameTooLong),
		errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrInvalidPlatform),
		errors.Is(err, core.ErrInvalidContent):
		status = http.StatusUnprocessableEntity
	default:
		var te *core.TransitionError
		if errors.As(err, &te) {
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
