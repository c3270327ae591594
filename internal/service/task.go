package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/tasklist/internal/apperr"
	"github.com/dukerupert/tasklist/internal/model"
	"github.com/dukerupert/tasklist/internal/store"
)

type TaskRepository interface {
	Insert(ctx context.Context, t *model.Task) (*model.Task, error)
	GetOwnedByID(ctx context.Context, id, ownerID string) (*model.Task, error)
	Save(ctx context.Context, t *model.Task) (*model.Task, error)
	DeleteOwnedByID(ctx context.Context, id, ownerID string) (bool, error)
	CountMatching(ctx context.Context, f store.Filter) (int, error)
	FindMatching(ctx context.Context, f store.Filter, p model.PageRequest) ([]model.Task, error)
}

var errTaskNotFound = apperr.Missing("Task not found")

// TaskService applies validation and ownership rules on top of the task
// store. A task owned by someone else is reported exactly like a missing one.
type TaskService struct {
	tasks  TaskRepository
	logger *slog.Logger
}

func NewTaskService(tasks TaskRepository, logger *slog.Logger) *TaskService {
	return &TaskService{tasks: tasks, logger: logger}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in model.TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Invalid("Title is required")
	}
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	desc := strings.TrimSpace(in.Description)
	if err := checkDescription(desc); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = model.TaskStatusPending
	}
	if !status.Valid() {
		return nil, apperr.Invalid("Invalid status")
	}

	t, err := s.tasks.Insert(ctx, &model.Task{
		UserID:      ownerID,
		Title:       title,
		Description: desc,
		Status:      status,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create task", err)
	}
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*model.Task, error) {
	t, err := s.tasks.GetOwnedByID(ctx, taskID, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get task", err)
	}
	if t == nil {
		return nil, errTaskNotFound
	}
	return t, nil
}

// List returns one page of the owner's tasks, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string, q model.TaskQuery, p model.PageRequest) (*model.TaskPage, error) {
	f, err := store.BuildFilter(ownerID, q)
	if errors.Is(err, store.ErrInvalidStatus) {
		return nil, apperr.Invalid("Invalid status")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "build filter", err)
	}

	total, err := s.tasks.CountMatching(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "count tasks", err)
	}
	pagination := model.NewPagination(p, total)
	if p.Page > pagination.TotalPages {
		return &model.TaskPage{Tasks: []model.Task{}, Pagination: pagination}, nil
	}

	tasks, err := s.tasks.FindMatching(ctx, f, p)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list tasks", err)
	}

	return &model.TaskPage{Tasks: tasks, Pagination: pagination}, nil
}

// Update applies the set fields of patch. Concurrent updates are not
// detected; the last write wins.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	patch, err := normalizePatch(patch)
	if err != nil {
		return nil, err
	}

	t, err := s.tasks.GetOwnedByID(ctx, taskID, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get task", err)
	}
	if t == nil {
		return nil, errTaskNotFound
	}

	patch.Apply(t)
	saved, err := s.tasks.Save(ctx, t)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "save task", err)
	}
	if saved == nil {
		// deleted between load and save
		return nil, errTaskNotFound
	}
	return saved, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	ok, err := s.tasks.DeleteOwnedByID(ctx, taskID, ownerID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete task", err)
	}
	if !ok {
		return errTaskNotFound
	}
	s.logger.Debug("task deleted", "task_id", taskID, "user_id", ownerID)
	return nil
}

func normalizePatch(p model.TaskPatch) (model.TaskPatch, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return p, apperr.Invalid("Title cannot be empty")
		}
		if err := checkTitle(title); err != nil {
			return p, err
		}
		p.Title = &title
	}
	if p.Description != nil {
		desc := strings.TrimSpace(*p.Description)
		if err := checkDescription(desc); err != nil {
			return p, err
		}
		p.Description = &desc
	}
	if p.Status != nil && !p.Status.Valid() {
		return p, apperr.Invalid("Invalid status")
	}
	return p, nil
}

func checkTitle(title string) error {
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return apperr.Invalid(fmt.Sprintf("Title cannot exceed %d characters", model.MaxTitleLength))
	}
	return nil
}

func checkDescription(desc string) error {
	if utf8.RuneCountInString(desc) > model.MaxDescriptionLength {
		return apperr.Invalid(fmt.Sprintf("Description cannot exceed %d characters", model.MaxDescriptionLength))
	}
	return nil
}
