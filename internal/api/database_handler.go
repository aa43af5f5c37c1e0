package api

import (
	"net/http"
)

// ListDatabases возвращает базы проекта для выбора в конфигурации brick.
// GET /api/v1/projects/{id}/databases
func (h *Handler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "id", "project")
	if !ok {
		return
	}

	dbs, err := h.databases.ListDatabases(r.Context(), projectID)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]DatabaseResponse, len(dbs))
	for i, db := range dbs {
		result[i] = DatabaseFromDomain(db)
	}

	List(w, result, len(result))
}
