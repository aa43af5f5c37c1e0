package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

// maxBodyBytes — ограничение тела запроса.
const maxBodyBytes = 1 << 20

// decode читает JSON тело и проверяет его по тегам validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			BadRequest(w, fmt.Sprintf("field %s failed %q check", fe.Field(), fe.Tag()))
			return false
		}
		BadRequest(w, err.Error())
		return false
	}
	return true
}

// pathID разбирает UUID из сегмента пути.
func pathID(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		BadRequest(w, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// loadGraph читает снимок function и строит по нему редактируемый граф.
func (h *Handler) loadGraph(w http.ResponseWriter, r *http.Request) (*engine.Graph, bool) {
	functionID, ok := pathID(w, r, "id", "function")
	if !ok {
		return nil, false
	}

	snapshot, err := h.functions.LoadSnapshot(r.Context(), functionID)
	if HandleRepoError(w, h.logger, err, "function not found") {
		return nil, false
	}

	return engine.NewGraph(snapshot, h.registry), true
}

// ListBrickTypes возвращает зарегистрированные типы bricks.
// GET /api/v1/brick-types
func (h *Handler) ListBrickTypes(w http.ResponseWriter, r *http.Request) {
	schemas := h.registry.Schemas()

	result := make([]BrickTypeResponse, len(schemas))
	for i, s := range schemas {
		result[i] = BrickTypeFromSchema(s)
	}

	List(w, result, len(result))
}

// CreateFunction создаёт пустую function.
// POST /api/v1/functions
func (h *Handler) CreateFunction(w http.ResponseWriter, r *http.Request) {
	var req CreateFunctionRequest
	if !h.decode(w, r, &req) {
		return
	}

	fn := &domain.Function{
		ID:        uuid.New(),
		ProjectID: req.ProjectID,
		Name:      req.Name,
	}

	if err := h.functions.Create(r.Context(), fn); err != nil {
		HandleRepoError(w, h.logger, err, "")
		return
	}

	Created(w, FunctionFromDomain(*fn))
}

// GetFunction возвращает function с графом.
// GET /api/v1/functions/{id}
func (h *Handler) GetFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "function")
	if !ok {
		return
	}

	snapshot, err := h.functions.LoadSnapshot(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "function not found") {
		return
	}

	Success(w, SnapshotFromDomain(snapshot))
}

// DeleteFunction удаляет function вместе с графом.
// DELETE /api/v1/functions/{id}
func (h *Handler) DeleteFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "function")
	if !ok {
		return
	}

	if err := h.functions.Delete(r.Context(), id); err != nil {
		HandleRepoError(w, h.logger, err, "function not found")
		return
	}

	NoContent(w)
}

// ListProjectFunctions возвращает functions проекта.
// GET /api/v1/projects/{id}/functions
func (h *Handler) ListProjectFunctions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id", "project")
	if !ok {
		return
	}

	fns, err := h.functions.ListByProject(r.Context(), projectID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]FunctionResponse, len(fns))
	for i, f := range fns {
		result[i] = FunctionFromDomain(f)
	}

	List(w, result, len(result))
}

// ValidateFunction проверяет граф без выполнения.
// POST /api/v1/functions/{id}/validate
func (h *Handler) ValidateFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "function")
	if !ok {
		return
	}

	snapshot, err := h.functions.LoadSnapshot(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "function not found") {
		return
	}

	report := ValidationReport{Valid: true, Errors: []GraphErrorResponse{}}

	err = engine.Validate(snapshot, h.registry)
	var verrs *engine.ValidationErrors
	switch {
	case err == nil:
	case errors.As(err, &verrs):
		report.Valid = false
		report.Errors = GraphErrorsFromValidation(verrs)
	default:
		InternalError(w, h.logger, err)
		return
	}

	Success(w, report)
}
