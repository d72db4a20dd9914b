package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/scenariolist/pkg/scenariolist"
	"github.com/mesh-intelligence/scenariolist/pkg/types"
)

// errorEnvelope is the JSON body for failed requests.
type errorEnvelope struct {
	Error string `json:"error"`
}

// respondError writes a structured error body.
func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, errorEnvelope{Error: err.Error()})
}

// listID parses the :id path parameter.
func listID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, errors.New("invalid list id"))
		return 0, false
	}
	return id, true
}

// store resolves the :id parameter to a per-list store, translating a
// missing list into 404.
func (s *Server) store(c *gin.Context) (types.Store, int64, bool) {
	id, ok := listID(c)
	if !ok {
		return nil, 0, false
	}
	store, err := s.backend.List(id)
	if err != nil {
		if errors.Is(err, types.ErrListNotFound) {
			respondError(c, http.StatusNotFound, err)
		} else {
			respondError(c, http.StatusInternalServerError, err)
		}
		return nil, 0, false
	}
	return store, id, true
}

// createList creates a new list, optionally seeded with scenarios.
// POST /lists {"scenarios": [...]} -> {list_id, version, length}
func (s *Server) createList(c *gin.Context) {
	var body struct {
		Scenarios []types.Scenario `json:"scenarios"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}

	id, err := s.backend.CreateList()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	store, err := s.backend.List(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	list := scenariolist.New(store)
	for _, sc := range body.Scenarios {
		if err := list.Append(sc); err != nil {
			respondError(c, http.StatusBadRequest, err)
			return
		}
	}
	version, err := store.Version()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list_id": id,
		"version": version,
		"length":  len(body.Scenarios),
	})
}

// getList returns the materialized state, optionally at a past version.
// GET /lists/:id?version= -> {list_id, version, scenarios, meta}
func (s *Server) getList(c *gin.Context) {
	store, id, ok := s.store(c)
	if !ok {
		return
	}
	version, err := store.Version()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if raw := c.Query("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, errors.New("invalid version"))
			return
		}
		version = v
	}

	// Serve a cached snapshot when one captures exactly this version.
	scenarios, hit, err := s.backend.Snapshot(id, version)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if !hit {
		scenarios, err = store.GetMaterializedList(version)
		if err != nil {
			respondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	meta, err := store.GetMeta(version)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if scenarios == nil {
		scenarios = []types.Scenario{}
	}
	c.JSON(http.StatusOK, gin.H{
		"list_id":   id,
		"version":   version,
		"scenarios": scenarios,
		"meta":      meta,
	})
}

// getInfo returns the list's version and length.
// GET /lists/:id/info -> {list_id, version, length}
func (s *Server) getInfo(c *gin.Context) {
	store, id, ok := s.store(c)
	if !ok {
		return
	}
	version, err := store.Version()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	length, err := store.GetLength(types.Latest)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list_id": id, "version": version, "length": length})
}

// getHistory returns history entries after from_version (default 0).
// GET /lists/:id/history?from_version= -> {list_id, history}
func (s *Server) getHistory(c *gin.Context) {
	store, id, ok := s.store(c)
	if !ok {
		return
	}
	from := 0
	if raw := c.Query("from_version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, errors.New("invalid from_version"))
			return
		}
		from = v
	}
	history, err := store.GetHistory(from)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if history == nil {
		history = []types.HistoryEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"list_id": id, "history": history})
}

// pull exports the delta from the client's version to the server head.
// GET /lists/:id/pull?from_version= -> {status, version, delta|null}
func (s *Server) pull(c *gin.Context) {
	store, _, ok := s.store(c)
	if !ok {
		return
	}
	from := 0
	if raw := c.Query("from_version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, errors.New("invalid from_version"))
			return
		}
		from = v
	}
	version, err := store.Version()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if from >= version {
		c.JSON(http.StatusOK, gin.H{
			"status":  scenariolist.StatusUpToDate,
			"version": version,
			"delta":   nil,
		})
		return
	}
	delta, err := store.GetDelta(from, version)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  scenariolist.StatusHasChanges,
		"version": version,
		"delta":   delta,
	})
}

// push applies a client delta. A version mismatch is reported as a
// structured conflict status with HTTP 200, not an error code; the client
// must pull and push again.
// POST /lists/:id/push -> {status, new_version?|message}
func (s *Server) push(c *gin.Context) {
	store, _, ok := s.store(c)
	if !ok {
		return
	}
	var delta types.Delta
	if err := c.ShouldBindJSON(&delta); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := store.ApplyDelta(&delta); err != nil {
		if errors.Is(err, types.ErrVersionConflict) {
			c.JSON(http.StatusOK, gin.H{
				"status":  scenariolist.StatusConflict,
				"message": err.Error(),
			})
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      scenariolist.StatusSuccess,
		"new_version": delta.ToVersion,
	})
}

// snapshot caches the materialized state for faster future loads.
// POST /lists/:id/snapshot -> {snapshot_id, version}
func (s *Server) snapshot(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	snapshotID, version, err := s.backend.CreateSnapshot(id)
	if err != nil {
		if errors.Is(err, types.ErrListNotFound) {
			respondError(c, http.StatusNotFound, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot_id": snapshotID, "version": version})
}

// deleteList hard-deletes all rows for the list.
// DELETE /lists/:id -> {status}
func (s *Server) deleteList(c *gin.Context) {
	id, ok := listID(c)
	if !ok {
		return
	}
	if err := s.backend.DeleteList(id); err != nil {
		if errors.Is(err, types.ErrListNotFound) {
			respondError(c, http.StatusNotFound, err)
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// sqlQuery runs a read-only statement through the explorer allow-list.
// POST /sql {"query": "..."} -> {columns, rows} or {error}
func (s *Server) sqlQuery(c *gin.Context) {
	var body struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	columns, rows, err := s.backend.Query(body.Query)
	if err != nil {
		respondError(c, http.StatusBadRequest, err)
		return
	}
	if rows == nil {
		rows = [][]any{}
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns, "rows": rows})
}
