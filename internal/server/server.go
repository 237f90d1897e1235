// Package server exposes the state store to a local UI over HTTP and pushes
// change notifications over a websocket. It also owns the save policy the
// store itself deliberately does not implement: a short debounce after every
// mutation, plus an unconditional flush on request and at shutdown.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parcel-notes/parcel/internal/export"
	"github.com/parcel-notes/parcel/internal/model"
	"github.com/parcel-notes/parcel/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serializes all access to the store behind one mutex; the store
// itself is single-threaded by contract.
type Server struct {
	mu       sync.Mutex
	store    *store.Store
	hub      *Hub
	renderer *export.Renderer
	log      zerolog.Logger

	saveDelay time.Duration
	saveTimer *time.Timer

	// DataDir, when set, is reported by GET /api/datadir.
	DataDir string
}

// New creates a server around a hydrated store.
func New(st *store.Store, hub *Hub, saveDelay time.Duration, logger zerolog.Logger) *Server {
	return &Server{
		store:     st,
		hub:       hub,
		renderer:  export.NewRenderer(),
		log:       logger.With().Str("component", "server").Logger(),
		saveDelay: saveDelay,
	}
}

// Register installs all routes on the mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/notes", s.handleNotes)
	mux.HandleFunc("/api/notes/", s.handleNoteByID)
	mux.HandleFunc("/api/folders", s.handleFolders)
	mux.HandleFunc("/api/folders/", s.handleFolderByID)
	mux.HandleFunc("/api/undo", s.handleUndo)
	mux.HandleFunc("/api/redo", s.handleRedo)
	mux.HandleFunc("/api/view", s.handleView)
	mux.HandleFunc("/api/save", s.handleSave)
	mux.HandleFunc("/api/export/json", s.handleExportJSON)
	mux.HandleFunc("/api/export/markdown", s.handleExportMarkdown)
	mux.HandleFunc("/api/export/html", s.handleExportHTML)
	mux.HandleFunc("/api/datadir", s.handleDataDir)
	mux.HandleFunc("/ws", s.handleWebSocket)
}

// scheduleSave (re)arms the debounce timer. Called with s.mu held.
func (s *Server) scheduleSave() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.saveDelay, func() {
		s.Flush(context.Background())
	})
}

// Flush saves immediately, cancelling any pending debounce. Used by the
// debounce timer, POST /api/save, and shutdown.
func (s *Server) Flush(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	s.store.Save(ctx)
}

// stateResponse is the full UI-facing view of the store.
type stateResponse struct {
	Notes          []model.Note   `json:"notes"`
	Folders        []model.Folder `json:"folders"`
	SelectedNoteID string         `json:"selectedNoteId"`
	Search         string         `json:"search"`
	ActiveFolderID string         `json:"activeFolderId"`
	SortBy         string         `json:"sortBy"`
	CanUndo        bool           `json:"canUndo"`
	CanRedo        bool           `json:"canRedo"`
	Hydrated       bool           `json:"hydrated"`
	Error          string         `json:"error,omitempty"`
}

func (s *Server) stateLocked() stateResponse {
	return stateResponse{
		Notes:          s.store.VisibleNotes(),
		Folders:        s.store.Folders(),
		SelectedNoteID: s.store.SelectedNoteID(),
		Search:         s.store.Search(),
		ActiveFolderID: s.store.ActiveFolderID(),
		SortBy:         string(s.store.Sort()),
		CanUndo:        s.store.CanUndo(),
		CanRedo:        s.store.CanRedo(),
		Hydrated:       s.store.Hydrated(),
		Error:          s.store.LastError(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	state := s.stateLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		FolderID string      `json:"folderId"`
		Color    model.Color `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	note := s.store.CreateNote(req.FolderID, req.Color)
	s.scheduleSave()
	s.mu.Unlock()

	s.hub.Broadcast(EventNoteCreated, &note)
	writeJSON(w, http.StatusCreated, note)
}

// notePatchRequest mirrors store.NotePatch. A "folderId" of "" clears the
// folder assignment; an absent field leaves it untouched.
type notePatchRequest struct {
	Title    *string      `json:"title"`
	Body     *string      `json:"body"`
	FolderID *string      `json:"folderId"`
	Pinned   *bool        `json:"pinned"`
	Color    *model.Color `json:"color"`
}

func (s *Server) handleNoteByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/notes/")
	if id == "" {
		http.Error(w, "Note ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req notePatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.store.UpdateNote(id, store.NotePatch{
			Title:    req.Title,
			Body:     req.Body,
			FolderID: req.FolderID,
			Pinned:   req.Pinned,
			Color:    req.Color,
		})
		note := s.noteByIDLocked(id)
		s.scheduleSave()
		s.mu.Unlock()

		if note == nil {
			http.Error(w, "Note not found", http.StatusNotFound)
			return
		}
		s.hub.Broadcast(EventNoteUpdated, note)
		writeJSON(w, http.StatusOK, note)

	case http.MethodDelete:
		s.mu.Lock()
		note := s.noteByIDLocked(id)
		s.store.DeleteNote(id)
		s.scheduleSave()
		s.mu.Unlock()

		if note == nil {
			http.Error(w, "Note not found", http.StatusNotFound)
			return
		}
		s.hub.Broadcast(EventNoteDeleted, note)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// noteByIDLocked returns a copy of the note, or nil. Called with s.mu held.
func (s *Server) noteByIDLocked(id string) *model.Note {
	for _, n := range s.store.Notes() {
		if n.ID == id {
			return &n
		}
	}
	return nil
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		http.Error(w, "Folder name required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	folder := s.store.CreateFolder(name)
	s.scheduleSave()
	s.mu.Unlock()

	s.hub.Broadcast(EventFoldersChanged, nil)
	writeJSON(w, http.StatusCreated, folder)
}

func (s *Server) handleFolderByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/folders/")
	if id == "" {
		http.Error(w, "Folder ID required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			http.Error(w, "Folder name required", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.store.RenameFolder(id, name)
		s.scheduleSave()
		s.mu.Unlock()

		s.hub.Broadcast(EventFoldersChanged, nil)
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		s.mu.Lock()
		s.store.DeleteFolder(id)
		s.scheduleSave()
		s.mu.Unlock()

		s.hub.Broadcast(EventFoldersChanged, nil)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.historyOp(w, r, (*store.Store).Undo)
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.historyOp(w, r, (*store.Store).Redo)
}

func (s *Server) historyOp(w http.ResponseWriter, r *http.Request, op func(*store.Store)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	op(s.store)
	state := s.stateLocked()
	s.scheduleSave()
	s.mu.Unlock()

	s.hub.Broadcast(EventHistoryChanged, nil)
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Search         *string `json:"search"`
		ActiveFolderID *string `json:"activeFolderId"`
		SortBy         *string `json:"sortBy"`
		SelectedNoteID *string `json:"selectedNoteId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	if req.Search != nil {
		s.store.SetSearch(*req.Search)
	}
	if req.ActiveFolderID != nil {
		s.store.SetActiveFolder(*req.ActiveFolderID)
	}
	if req.SortBy != nil {
		s.store.SetSortKey(store.SortKey(*req.SortBy))
	}
	if req.SelectedNoteID != nil {
		s.store.SelectNote(*req.SelectedNoteID)
	}
	state := s.stateLocked()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.Flush(r.Context())

	s.mu.Lock()
	errMsg := s.store.LastError()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"error": errMsg})
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.store.Document()
	s.mu.Unlock()

	out, err := export.JSON(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(out))
}

func (s *Server) handleExportMarkdown(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.store.Document()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(export.Markdown(doc)))
}

func (s *Server) handleExportHTML(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	doc := s.store.Document()
	s.mu.Unlock()

	out, err := s.renderer.HTML(doc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(out))
}

func (s *Server) handleDataDir(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"dataDir": s.DataDir})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.hub.Register(conn)
	go s.hub.HandleConnection(conn)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
