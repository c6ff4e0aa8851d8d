// Package apitest provides an in-memory Respeecher backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/nadzzz/respeecher/pkg/api"
)

// APIKey is the only key the fake backend accepts.
const APIKey = "test-api-key"

// Server is a scripted fake of the gateway endpoints used by the library.
// Conversions walk through States one GET at a time and then stay on the last one.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	User     api.User
	Voices   []api.Voice
	Projects []api.Project
	Folders  []api.Folder

	// States is the sequence reported for every converted recording.
	States []api.RecordingState
	// ConversionError is reported when the state is error.
	ConversionError string
	// OmitURL reports done conversions without a URL.
	OmitURL bool
	// Audio is served from the converted recording's URL.
	Audio []byte
	// Fail forces a status code on a route pattern, e.g. "POST /api/v2/orders".
	Fail map[string]int

	calls      map[string]int
	recordings map[string]*api.Recording
	polls      map[string]int
	orders     []orderBody
	originals  []originalBody
	nextID     int
}

type orderBody struct {
	OriginalID  string           `json:"original_id"`
	Conversions []api.Conversion `json:"conversions"`
}

type originalBody struct {
	ParentFolderID string `json:"parent_folder_id"`
	Text           string `json:"text"`
	TextLanguage   string `json:"text_language"`
}

// NewServer starts a fake backend. It is closed when the test ends.
func NewServer(t interface {
	Cleanup(func())
}) *Server {
	s := &Server{
		User: api.User{
			ID:       "user-1",
			Email:    "dev@example.com",
			Username: "dev",
			Verified: true,
			Roles:    []string{"user"},
		},
		States:     []api.RecordingState{api.StateDone},
		Fail:       make(map[string]int),
		calls:      make(map[string]int),
		recordings: make(map[string]*api.Recording),
		polls:      make(map[string]int),
	}

	mux := http.NewServeMux()
	s.handle(mux, "POST /api/auth", s.auth)
	s.handle(mux, "GET /api/v2/voices", s.listVoices)
	s.handle(mux, "GET /api/projects", s.listProjects)
	s.handle(mux, "POST /api/projects", s.createProject)
	s.handle(mux, "GET /api/folders", s.listFolders)
	s.handle(mux, "POST /api/folders", s.createFolder)
	s.handle(mux, "POST /api/v2/recordings/tts", s.createOriginal)
	s.handle(mux, "GET /api/recordings/{id}", s.getRecording)
	s.handle(mux, "GET /media/{id}", s.download)
	s.handle(mux, "POST /api/v2/orders", s.order)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Calls returns how many requests hit a route pattern such as "GET /api/projects".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Polls returns how many times a recording was fetched.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls[id]
}

// LastOrder returns the original id and conversions of the most recent order.
func (s *Server) LastOrder() (string, []api.Conversion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.orders) == 0 {
		return "", nil
	}
	o := s.orders[len(s.orders)-1]
	return o.OriginalID, o.Conversions
}

// LastOriginal returns the folder, text and language of the most recent submission.
func (s *Server) LastOriginal() (folderID, text, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.originals) == 0 {
		return "", "", ""
	}
	o := s.originals[len(s.originals)-1]
	return o.ParentFolderID, o.Text, o.TextLanguage
}

// AddProjects appends n owned projects named prefix-0..prefix-(n-1).
func (s *Server) AddProjects(prefix string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.Projects = append(s.Projects, api.Project{
			ID:        s.newID("project"),
			Name:      fmt.Sprintf("%s-%d", prefix, i),
			Owner:     s.User.ID,
			Slug:      fmt.Sprintf("%s-%d", prefix, i),
			CreatedAt: now(),
		})
	}
}

func (s *Server) handle(mux *http.ServeMux, route string, h http.HandlerFunc) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		code := s.Fail[route]
		s.mu.Unlock()

		if r.Header.Get("api-key") != APIKey {
			http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
			return
		}
		if code != 0 {
			http.Error(w, `{"detail":"forced failure"}`, code)
			return
		}
		h(w, r)
	})
}

func (s *Server) auth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.User)
}

func (s *Server) listVoices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit, offset := paging(r)
	writeJSON(w, api.VoiceList{
		List:       window(normalizeVoices(s.Voices), limit, offset),
		Pagination: api.Pagination{Count: len(s.Voices), Limit: limit, Offset: offset},
	})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner := r.URL.Query().Get("owner")
	var owned []api.Project
	for _, p := range s.Projects {
		if owner == "" || p.Owner == owner {
			owned = append(owned, p)
		}
	}
	limit, offset := paging(r)
	writeJSON(w, api.ProjectList{
		List:       window(owned, limit, offset),
		Pagination: api.Pagination{Count: len(owned), Limit: limit, Offset: offset},
	})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Owner  string         `json:"owner"`
		Name   string         `json:"name"`
		Models map[string]any `json:"models"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := api.Project{ID: s.newID("project"), Name: body.Name, Owner: body.Owner, Slug: body.Name, CreatedAt: now()}
	s.Projects = append(s.Projects, p)
	writeJSON(w, p)
}

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	projectID := r.URL.Query().Get("project_id")
	var scoped []api.Folder
	for _, f := range s.Folders {
		if f.ProjectID == projectID {
			scoped = append(scoped, f)
		}
	}
	limit, offset := paging(r)
	writeJSON(w, api.FolderList{
		List:       window(scoped, limit, offset),
		Pagination: api.Pagination{Count: len(scoped), Limit: limit, Offset: offset},
	})
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID string `json:"project_id"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := api.Folder{ID: s.newID("folder"), Name: body.Name, ProjectID: body.ProjectID, CreatedAt: now()}
	s.Folders = append(s.Folders, f)
	writeJSON(w, f)
}

func (s *Server) createOriginal(w http.ResponseWriter, r *http.Request) {
	var body originalBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originals = append(s.originals, body)
	text := body.Text
	rec := &api.Recording{
		ID:             s.newID("original"),
		ParentFolderID: body.ParentFolderID,
		ProjectID:      s.projectOf(body.ParentFolderID),
		Type:           api.TypeOriginal,
		State:          api.StateDone,
		Text:           &text,
		CreatedAt:      now(),
	}
	s.recordings[rec.ID] = rec
	writeJSON(w, rec)
}

func (s *Server) order(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	original, ok := s.recordings[body.OriginalID]
	if !ok {
		http.Error(w, `{"detail":"original not found"}`, http.StatusNotFound)
		return
	}
	s.orders = append(s.orders, body)

	orders := make([]api.Order, 0, len(body.Conversions))
	for range body.Conversions {
		conv := &api.Recording{
			ID:             s.newID("conversion"),
			ProjectID:      original.ProjectID,
			ParentFolderID: original.ParentFolderID,
			Type:           api.TypeConverted,
			State:          api.StateProcessing,
			CreatedAt:      now(),
		}
		s.recordings[conv.ID] = conv
		orders = append(orders, api.Order{
			ID:           s.newID("order"),
			OriginalID:   original.ID,
			ConversionID: conv.ID,
			CreatedAt:    now(),
		})
	}
	writeJSON(w, orders)
}

func (s *Server) getRecording(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recordings[id]
	if !ok {
		http.Error(w, `{"detail":"recording not found"}`, http.StatusNotFound)
		return
	}
	if rec.Type == api.TypeConverted {
		n := s.polls[id]
		s.polls[id] = n + 1
		if len(s.States) > 0 {
			if n >= len(s.States) {
				n = len(s.States) - 1
			}
			rec.State = s.States[n]
		}
		rec.URL, rec.Error = nil, nil
		switch rec.State {
		case api.StateDone:
			if !s.OmitURL {
				u := "/media/" + id
				rec.URL = &u
			}
		case api.StateError:
			msg := s.ConversionError
			rec.Error = &msg
		}
	}
	writeJSON(w, rec)
}

func (s *Server) download(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "audio/wav")
	_, _ = w.Write(s.Audio)
}

// normalizeVoices replaces nil slices so they encode as [] rather than null.
func normalizeVoices(voices []api.Voice) []api.Voice {
	out := make([]api.Voice, len(voices))
	for i, v := range voices {
		styles := make([]api.NarrationStyle, len(v.NarrationStyles))
		for j, ns := range v.NarrationStyles {
			if ns.Tags == nil {
				ns.Tags = []api.NarrationStyleTag{}
			}
			styles[j] = ns
		}
		v.NarrationStyles = styles
		out[i] = v
	}
	return out
}

func (s *Server) projectOf(folderID string) string {
	for _, f := range s.Folders {
		if f.ID == folderID {
			return f.ProjectID
		}
	}
	return ""
}

func (s *Server) newID(kind string) string {
	s.nextID++
	return kind + "-" + strconv.Itoa(s.nextID)
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = api.PaginationLimit
	}
	return limit, offset
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func now() api.Timestamp {
	return api.Timestamp{Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
