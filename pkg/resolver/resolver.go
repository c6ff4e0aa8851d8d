// Package resolver maps human-facing names to Respeecher identifiers.
//
// Projects and folders are found by exact name through paginated listings and
// created when absent. Voices and narration styles are looked up in the voice
// catalogue and never created. Every result is memoized per input for the
// lifetime of the Resolver; Reset drops all of it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/nadzzz/respeecher/pkg/api"
)

// DefaultProject and DefaultFolder are used when no name is given.
const (
	DefaultProject = "respeecher-tts"
	DefaultFolder  = "respeecher-tts"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a voice or narration style that does not exist.
type NotFoundError struct {
	Kind  string // "voice" or "narration style"
	Name  string
	Voice string // set for narration styles
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Voice != "" {
		if e.Name == "" {
			return fmt.Sprintf("default %s for voice %q not found", e.Kind, e.Voice)
		}
		return fmt.Sprintf("%s %q for voice %q not found", e.Kind, e.Name, e.Voice)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Backend is the part of *api.Client the resolver needs.
type Backend interface {
	PageSize() int
	ListVoices(ctx context.Context, offset int) (*api.VoiceList, error)
	ListProjects(ctx context.Context, offset int, owner string) (*api.ProjectList, error)
	CreateProject(ctx context.Context, userID, name string) (*api.Project, error)
	ListFolders(ctx context.Context, projectID string, offset int) (*api.FolderList, error)
	CreateFolder(ctx context.Context, projectID, name string) (*api.Folder, error)
}

// VoiceSelection is a resolved voice and narration style pair.
type VoiceSelection struct {
	VoiceID          string
	NarrationStyleID string
	NarrationStyle   api.NarrationStyle
}

// Resolver resolves and memoizes names for one authenticated user.
type Resolver struct {
	backend Backend
	user    api.User
	logger  *slog.Logger

	projects   *gocache.Cache // name -> *api.Project
	folders    *gocache.Cache // projectID + "\x00" + name -> *api.Folder
	selections *gocache.Cache // voice + "\x00" + style -> VoiceSelection
	catalogue  *gocache.Cache // catalogueKey -> []api.Voice

	group singleflight.Group
}

const catalogueKey = "voices"

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver acting on behalf of user.
func New(backend Backend, user api.User, opts ...Option) *Resolver {
	r := &Resolver{
		backend:    backend,
		user:       user,
		logger:     slog.Default(),
		projects:   newCache(),
		folders:    newCache(),
		selections: newCache(),
		catalogue:  newCache(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func newCache() *gocache.Cache {
	return gocache.New(gocache.NoExpiration, 0)
}

// Reset forgets every memoized project, folder, selection and the voice catalogue.
func (r *Resolver) Reset() {
	r.projects.Flush()
	r.folders.Flush()
	r.selections.Flush()
	r.catalogue.Flush()
}

// Project returns the user's project with the given name, creating it if absent.
// An empty name selects DefaultProject.
func (r *Resolver) Project(ctx context.Context, name string) (*api.Project, error) {
	if name == "" {
		name = DefaultProject
	}
	if p, ok := r.projects.Get(name); ok {
		return p.(*api.Project), nil
	}

	v, err := r.shared(ctx, "project\x00"+name, func(ctx context.Context) (any, error) {
		if p, ok := r.projects.Get(name); ok {
			return p, nil
		}
		p, err := findOrCreate(ctx, r.backend.PageSize(),
			func(offset int) ([]api.Project, api.Pagination, error) {
				pl, err := r.backend.ListProjects(ctx, offset, r.user.ID)
				if err != nil {
					return nil, api.Pagination{}, err
				}
				return pl.List, pl.Pagination, nil
			},
			func(p api.Project) bool { return p.Name == name },
			func() (*api.Project, error) {
				r.logger.Info("creating project", "name", name)
				return r.backend.CreateProject(ctx, r.user.ID, name)
			},
		)
		if err != nil {
			return nil, err
		}
		r.projects.Set(name, p, gocache.NoExpiration)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolving project %q: %w", name, err)
	}
	return v.(*api.Project), nil
}

// Folder returns the folder with the given name inside a project, creating it if
// absent. An empty name selects DefaultFolder.
func (r *Resolver) Folder(ctx context.Context, projectID, name string) (*api.Folder, error) {
	if name == "" {
		name = DefaultFolder
	}
	key := projectID + "\x00" + name
	if f, ok := r.folders.Get(key); ok {
		return f.(*api.Folder), nil
	}

	v, err := r.shared(ctx, "folder\x00"+key, func(ctx context.Context) (any, error) {
		if f, ok := r.folders.Get(key); ok {
			return f, nil
		}
		f, err := findOrCreate(ctx, r.backend.PageSize(),
			func(offset int) ([]api.Folder, api.Pagination, error) {
				fl, err := r.backend.ListFolders(ctx, projectID, offset)
				if err != nil {
					return nil, api.Pagination{}, err
				}
				return fl.List, fl.Pagination, nil
			},
			func(f api.Folder) bool { return f.Name == name },
			func() (*api.Folder, error) {
				r.logger.Info("creating folder", "project_id", projectID, "name", name)
				return r.backend.CreateFolder(ctx, projectID, name)
			},
		)
		if err != nil {
			return nil, err
		}
		r.folders.Set(key, f, gocache.NoExpiration)
		return f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolving folder %q: %w", name, err)
	}
	return v.(*api.Folder), nil
}

// shared runs fn once per key for all concurrent callers. fn gets a context
// that outlives any single caller, so one caller giving up does not fail the
// others; each caller still returns as soon as its own ctx is done.
func (r *Resolver) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) { return fn(detached) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// findOrCreate walks pages until match succeeds or a page is shorter than its
// reported limit, then falls back to create. The reported total is ignored so
// that concurrent server-side changes cannot end the walk early.
func findOrCreate[T any](
	ctx context.Context,
	pageSize int,
	list func(offset int) ([]T, api.Pagination, error),
	match func(T) bool,
	create func() (*T, error),
) (*T, error) {
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, page, err := list(offset)
		if err != nil {
			return nil, err
		}
		for i := range items {
			if match(items[i]) {
				found := items[i]
				return &found, nil
			}
		}
		if lastPage(len(items), page, pageSize) {
			break
		}
	}
	return create()
}

// lastPage reports whether a page of n items ends the listing. A missing or
// oversized reported limit falls back to the requested page size.
func lastPage(n int, page api.Pagination, pageSize int) bool {
	limit := page.Limit
	if limit <= 0 || limit > pageSize {
		limit = pageSize
	}
	return n == 0 || n < limit
}
