package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rogersnm/todos/internal/model"
	"github.com/rogersnm/todos/internal/store"
)

type createItemRequest struct {
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

type updateItemRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

func (s *Server) collection(w http.ResponseWriter, r *http.Request) (*collection, bool) {
	coll, err := s.colls.get(userID(r.Context()))
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	return coll, true
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}
	tasks, err := coll.store.ListTasks(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, tasks)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}
	t, err := coll.store.GetTask(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, t)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation", "title is required")
		return
	}
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()
	t, err := coll.store.CreateTask(r.Context(), store.TaskCreate{
		Title:     req.Title,
		Completed: req.Completed,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.broadcast(r, store.ChangeAdded, *t)
	writeData(w, http.StatusCreated, t)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation", "title cannot be empty")
		return
	}
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}
	taskID := mux.Vars(r)["id"]

	coll.mu.Lock()
	defer coll.mu.Unlock()
	upd := store.TaskUpdate{Title: req.Title, Completed: req.Completed}
	if err := coll.store.UpdateTask(r.Context(), taskID, upd); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	t, err := coll.store.GetTask(r.Context(), taskID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.broadcast(r, store.ChangeModified, *t)
	writeData(w, http.StatusOK, t)
}

// deleteItem succeeds for an unknown id, like a document delete.
func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}
	taskID := mux.Vars(r)["id"]

	coll.mu.Lock()
	defer coll.mu.Unlock()
	t, err := coll.store.GetTask(r.Context(), taskID)
	if store.IsNotFound(err) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := coll.store.DeleteTask(r.Context(), taskID); err != nil && !store.IsNotFound(err) {
		s.writeStoreError(w, r, err)
		return
	}
	s.broadcast(r, store.ChangeRemoved, *t)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkSetCompleted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Completed *bool `json:"completed"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Completed == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation", "completed is required")
		return
	}
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()
	before, err := coll.store.ListTasks(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if err := coll.store.SetCompletedAll(r.Context(), *req.Completed); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var changed []model.Task
	for _, t := range before {
		if t.Completed != *req.Completed {
			t.Completed = *req.Completed
			changed = append(changed, t)
		}
	}
	s.broadcast(r, store.ChangeModified, changed...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	want := make(map[string]bool, len(req.IDs))
	for _, id := range req.IDs {
		want[id] = true
	}
	coll, ok := s.collection(w, r)
	if !ok {
		return
	}

	coll.mu.Lock()
	defer coll.mu.Unlock()
	before, err := coll.store.ListTasks(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	match := func(t model.Task) bool { return want[t.ID] }
	if err := coll.store.DeleteTasksWhere(r.Context(), match); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	var removed []model.Task
	for _, t := range before {
		if match(t) {
			removed = append(removed, t)
		}
	}
	s.broadcast(r, store.ChangeRemoved, removed...)
	w.WriteHeader(http.StatusNoContent)
}
