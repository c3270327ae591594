package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/dukerupert/tasklist/internal/service"
)

type taskBody struct {
	Success bool        `json:"success"`
	Data    *model.Task `json:"data"`
}

type taskListBody struct {
	Success    bool             `json:"success"`
	Data       []model.Task     `json:"data"`
	Pagination model.Pagination `json:"pagination"`
}

// TaskHandler serves /api/tasks. Every route must sit behind RequireAuth;
// the owner is always the authenticated caller.
type TaskHandler struct {
	svc *service.TaskService
	responder
}

func NewTaskHandler(svc *service.TaskService, logger *slog.Logger, production bool) *TaskHandler {
	return &TaskHandler{
		svc:       svc,
		responder: responder{logger: logger, production: production},
	}
}

func (h *TaskHandler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		WriteError(w, http.StatusUnauthorized, "Not authorized")
		return "", false
	}
	return userID, true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	// Unparseable numbers fall back to the defaults.
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	result, err := h.svc.List(r.Context(), ownerID,
		model.TaskQuery{Status: model.TaskStatus(q.Get("status")), Search: q.Get("search")},
		model.NewPageRequest(page, limit),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListBody{Success: true, Data: result.Tasks, Pagination: result.Pagination})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), ownerID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskBody{Success: true, Data: t})
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var in model.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.svc.Create(r.Context(), ownerID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskBody{Success: true, Data: t})
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.svc.Update(r.Context(), ownerID, r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, taskBody{Success: true, Data: t})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), ownerID, r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Success: true, Message: "Task deleted"})
}
