package api

import (
	"errors"
	"net/http"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

// AddBrick добавляет brick в function.
// POST /api/v1/functions/{id}/bricks
func (h *Handler) AddBrick(w http.ResponseWriter, r *http.Request) {
	var req AddBrickRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}

	brick, err := g.AddBrick(req.Type, req.Config, domain.Position{X: req.Position.X, Y: req.Position.Y})
	if HandleGraphError(w, h.logger, err) {
		return
	}

	if !h.checkDatabaseReference(w, r, g.Function(), req.Config) {
		return
	}
	if !checkTemplate(w, req.Config) {
		return
	}

	if err := h.functions.InsertBrick(r.Context(), g.Function().ID, brick); err != nil {
		HandleRepoError(w, h.logger, err, "function not found")
		return
	}

	Created(w, BrickFromDomain(brick))
}

// UpdateBrickPosition перемещает brick на холсте.
// PATCH /api/v1/functions/{id}/bricks/{brickId}/position
func (h *Handler) UpdateBrickPosition(w http.ResponseWriter, r *http.Request) {
	var req UpdatePositionRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}
	brickID, ok := pathID(w, r, "brickId", "brick")
	if !ok {
		return
	}

	brick, err := g.UpdatePosition(brickID, domain.Position{X: *req.X, Y: *req.Y})
	if HandleGraphError(w, h.logger, err) {
		return
	}

	if err := h.functions.UpdateBrickPosition(r.Context(), g.Function().ID, brickID, brick.Position); err != nil {
		HandleRepoError(w, h.logger, err, "brick not found")
		return
	}

	Success(w, BrickFromDomain(brick))
}

// UpdateBrickConfiguration частично обновляет конфигурацию brick.
// PATCH /api/v1/functions/{id}/bricks/{brickId}/configuration
func (h *Handler) UpdateBrickConfiguration(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigurationRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}
	brickID, ok := pathID(w, r, "brickId", "brick")
	if !ok {
		return
	}

	brick, err := g.UpdateConfiguration(brickID, req.Config)
	if HandleGraphError(w, h.logger, err) {
		return
	}

	if !h.checkDatabaseReference(w, r, g.Function(), req.Config) {
		return
	}
	if !checkTemplate(w, req.Config) {
		return
	}

	if err := h.functions.UpdateBrickConfig(r.Context(), g.Function().ID, brickID, brick.Config); err != nil {
		HandleRepoError(w, h.logger, err, "brick not found")
		return
	}

	Success(w, BrickFromDomain(brick))
}

// RemoveBrick удаляет brick вместе с его connections.
// DELETE /api/v1/functions/{id}/bricks/{brickId}
func (h *Handler) RemoveBrick(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}
	brickID, ok := pathID(w, r, "brickId", "brick")
	if !ok {
		return
	}

	removed, err := g.RemoveBrick(brickID)
	if HandleGraphError(w, h.logger, err) {
		return
	}

	if err := h.functions.DeleteBrick(r.Context(), g.Function().ID, brickID); err != nil {
		HandleRepoError(w, h.logger, err, "brick not found")
		return
	}

	resp := RemoveBrickResponse{RemovedConnections: make([]ConnectionResponse, len(removed))}
	for i, c := range removed {
		resp.RemovedConnections[i] = ConnectionFromDomain(c)
	}
	Success(w, resp)
}

// checkDatabaseReference проверяет, что база из конфигурации существует в проекте.
//
// Проверяется только момент сохранения: переименование базы позже
// обнаружится при выполнении.
func (h *Handler) checkDatabaseReference(w http.ResponseWriter, r *http.Request, fn domain.Function, config map[string]any) bool {
	name, ok := config[bricks.ConfigDatabaseName].(string)
	if !ok || name == "" || h.databases == nil {
		return true
	}

	_, err := h.databases.GetDatabase(r.Context(), fn.ProjectID, name)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrDatabaseNotFound):
		InvalidState(w, err.Error())
	default:
		InternalError(w, h.logger, err)
	}
	return false
}

// checkTemplate разбирает шаблон format_instance до сохранения.
func checkTemplate(w http.ResponseWriter, config map[string]any) bool {
	tmpl, ok := config[bricks.ConfigTemplate].(string)
	if !ok || tmpl == "" {
		return true
	}
	if _, err := engine.ParseTemplate(tmpl); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	return true
}

// Connect соединяет выход одного brick со входом другого.
// POST /api/v1/functions/{id}/connections
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !h.decode(w, r, &req) {
		return
	}

	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}

	conn, err := g.Connect(req.FromBrickID, req.FromPort, req.ToBrickID, req.ToPort)
	if HandleGraphError(w, h.logger, err) {
		return
	}

	if err := h.functions.InsertConnection(r.Context(), g.Function().ID, conn); err != nil {
		// Параллельное подключение к тому же входу
		HandleGraphError(w, h.logger, err)
		return
	}

	Created(w, ConnectionFromDomain(conn))
}

// Disconnect удаляет connection.
// DELETE /api/v1/functions/{id}/connections/{connId}
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	g, ok := h.loadGraph(w, r)
	if !ok {
		return
	}
	connID, ok := pathID(w, r, "connId", "connection")
	if !ok {
		return
	}

	if err := g.Disconnect(connID); HandleGraphError(w, h.logger, err) {
		return
	}

	if err := h.functions.DeleteConnection(r.Context(), g.Function().ID, connID); err != nil {
		HandleRepoError(w, h.logger, err, "connection not found")
		return
	}

	NoContent(w)
}
