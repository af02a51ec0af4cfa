package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KarpovAlexandrGo/task-tracker/internal/entity"
	"github.com/KarpovAlexandrGo/task-tracker/internal/usecase"
	"github.com/KarpovAlexandrGo/task-tracker/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// CreateTaskRequest: тело POST-запроса. Приоритет и категория
// необязательны: пустые значения заменяются значениями по умолчанию.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Status      bool    `json:"status"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Category    string  `json:"category" validate:"omitempty,oneof=Personal Work Shopping Others"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// UpdateTaskRequest: тело PUT-запроса. nil означает "не менять поле",
// пустая строка в dueDate снимает срок.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitnil,min=1"`
	Description *string `json:"description,omitempty"`
	Status      *bool   `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty" validate:"omitnil,oneof=Low Medium High"`
	Category    *string `json:"category,omitempty" validate:"omitnil,oneof=Personal Work Shopping Others"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// MessageResponse: формат ответа с ошибкой или подтверждением.
type MessageResponse struct {
	Message string `json:"message"`
}

// TaskHandler обрабатывает HTTP-запросы для работы с задачами.
type TaskHandler struct {
	taskUseCase usecase.TaskUseCase
	validate    *validator.Validate
}

// NewTaskHandler создает новый экземпляр TaskHandler.
func NewTaskHandler(taskUseCase usecase.TaskUseCase) *TaskHandler {
	return &TaskHandler{
		taskUseCase: taskUseCase,
		validate:    newValidator(),
	}
}

// RegisterRoutes регистрирует маршруты для обработки задач.
func (h *TaskHandler) RegisterRoutes(r chi.Router, basePath string) {
	r.Route(basePath, func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Put("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
		})
	})
}

// ListTasks обрабатывает получение списка задач.
// @Summary      Список задач
// @Description  Возвращает все задачи в порядке хранилища
// @Tags         tasks
// @Produce      json
// @Success      200  {array}   entity.Task
// @Failure      500  {object}  MessageResponse
// @Router       / [get]
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskUseCase.List(r.Context())
	if err != nil {
		h.respondWithUseCaseError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

// CreateTask обрабатывает создание новой задачи.
// @Summary      Создать задачу
// @Description  Создает новую задачу; priority по умолчанию Medium, category: Others
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task body      CreateTaskRequest true "Данные задачи"
// @Success      201  {object}  entity.Task
// @Failure      400  {object}  MessageResponse
// @Failure      500  {object}  MessageResponse
// @Router       / [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := h.validate.Struct(req); err != nil {
		logger.Log.WithError(err).Warn("Task validation failed")
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	task := entity.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    entity.Priority(req.Priority),
		Category:    entity.Category(req.Category),
	}
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		due, err := entity.ParseDate(*req.DueDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		task.DueDate = &due
	}

	createdTask, err := h.taskUseCase.Create(r.Context(), task)
	if err != nil {
		h.respondWithUseCaseError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, createdTask)
}

// GetTask обрабатывает получение задачи по ID.
// @Summary      Получить задачу
// @Tags         tasks
// @Produce      json
// @Param        id   path      string true "ID задачи"
// @Success      200  {object}  entity.Task
// @Failure      404  {object}  MessageResponse
// @Router       /{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUseCase.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithUseCaseError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// UpdateTask обрабатывает частичное обновление задачи.
// @Summary      Обновить задачу
// @Description  Обновляет только переданные поля и обновляет updatedAt
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id   path      string            true "ID задачи"
// @Param        task body      UpdateTaskRequest true "Изменяемые поля"
// @Success      200  {object}  entity.Task
// @Failure      400  {object}  MessageResponse
// @Failure      404  {object}  MessageResponse
// @Router       /{id} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if err := h.validate.Struct(req); err != nil {
		logger.Log.WithError(err).WithField("task_id", id).Warn("Task validation failed")
		respondWithError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	updatedTask, err := h.taskUseCase.Update(r.Context(), id, patch)
	if err != nil {
		h.respondWithUseCaseError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updatedTask)
}

// DeleteTask обрабатывает удаление задачи.
// @Summary      Удалить задачу
// @Tags         tasks
// @Produce      json
// @Param        id   path      string true "ID задачи"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  MessageResponse
// @Router       /{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.taskUseCase.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondWithUseCaseError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Task deleted"})
}

func (req UpdateTaskRequest) toPatch() (entity.TaskPatch, error) {
	patch := entity.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.Priority != nil {
		p := entity.Priority(*req.Priority)
		patch.Priority = &p
	}
	if req.Category != nil {
		c := entity.Category(*req.Category)
		patch.Category = &c
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			patch.ClearDueDate = true
		} else {
			due, err := entity.ParseDate(*req.DueDate)
			if err != nil {
				return entity.TaskPatch{}, err
			}
			patch.DueDate = &due
		}
	}
	return patch, nil
}

// decode читает JSON-тело; при ошибке сам отвечает 400.
func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// respondWithUseCaseError переводит ошибки use case в HTTP-коды.
// Детали неожиданных ошибок остаются только в логе.
func (h *TaskHandler) respondWithUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, usecase.ErrTaskNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, usecase.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).WithError(err).Error("Unhandled error")
		respondWithError(w, http.StatusInternalServerError, internalErrorMessage)
	}
}
