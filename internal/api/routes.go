package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)

	// Brick types
	mux.Handle("GET /api/v1/brick-types", chain(http.HandlerFunc(h.ListBrickTypes)))

	// Functions
	mux.Handle("POST /api/v1/functions", chain(http.HandlerFunc(h.CreateFunction)))
	mux.Handle("GET /api/v1/functions/{id}", chain(http.HandlerFunc(h.GetFunction)))
	mux.Handle("DELETE /api/v1/functions/{id}", chain(http.HandlerFunc(h.DeleteFunction)))
	mux.Handle("POST /api/v1/functions/{id}/validate", chain(http.HandlerFunc(h.ValidateFunction)))

	// Bricks
	mux.Handle("POST /api/v1/functions/{id}/bricks", chain(http.HandlerFunc(h.AddBrick)))
	mux.Handle("PATCH /api/v1/functions/{id}/bricks/{brickId}/position", chain(http.HandlerFunc(h.UpdateBrickPosition)))
	mux.Handle("PATCH /api/v1/functions/{id}/bricks/{brickId}/configuration", chain(http.HandlerFunc(h.UpdateBrickConfiguration)))
	mux.Handle("DELETE /api/v1/functions/{id}/bricks/{brickId}", chain(http.HandlerFunc(h.RemoveBrick)))

	// Connections
	mux.Handle("POST /api/v1/functions/{id}/connections", chain(http.HandlerFunc(h.Connect)))
	mux.Handle("DELETE /api/v1/functions/{id}/connections/{connId}", chain(http.HandlerFunc(h.Disconnect)))

	// Runs
	mux.Handle("POST /api/v1/functions/{id}/run", chain(http.HandlerFunc(h.RunFunction)))
	mux.Handle("POST /api/v1/functions/{id}/runs", chain(http.HandlerFunc(h.RequestRun)))

	// Projects
	mux.Handle("GET /api/v1/projects/{id}/functions", chain(http.HandlerFunc(h.ListProjectFunctions)))
	mux.Handle("GET /api/v1/projects/{id}/databases", chain(http.HandlerFunc(h.ListDatabases)))
}
