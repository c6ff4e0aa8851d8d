package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/respeecher/pkg/api"
	"github.com/nadzzz/respeecher/pkg/api/apitest"
	"github.com/nadzzz/respeecher/pkg/resolver"
)

const pageSize = 2

func setup(t *testing.T) (*apitest.Server, *resolver.Resolver) {
	t.Helper()
	srv := apitest.NewServer(t)
	client := api.New(srv.URL, apitest.APIKey, api.WithPaginationLimit(pageSize))
	return srv, resolver.New(client, srv.User)
}

func TestProject_FoundOnLaterPage(t *testing.T) {
	srv, r := setup(t)
	srv.AddProjects("p", 5)

	p, err := r.Project(context.Background(), "p-3")
	require.NoError(t, err)
	assert.Equal(t, "p-3", p.Name)
	assert.Equal(t, 2, srv.Calls("GET /api/projects"))
	assert.Equal(t, 0, srv.Calls("POST /api/projects"))
}

func TestProject_CreatedWhenAbsent(t *testing.T) {
	tests := []struct {
		existing  int
		wantPages int
	}{
		{existing: 0, wantPages: 1},
		{existing: 3, wantPages: 2},
		{existing: 4, wantPages: 3}, // full last page needs one empty page to confirm the end
		{existing: 5, wantPages: 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d existing", tt.existing), func(t *testing.T) {
			srv, r := setup(t)
			srv.AddProjects("other", tt.existing)

			p, err := r.Project(context.Background(), "mine")
			require.NoError(t, err)
			assert.Equal(t, "mine", p.Name)
			assert.Equal(t, srv.User.ID, p.Owner)

			pages := srv.Calls("GET /api/projects")
			assert.Equal(t, tt.wantPages, pages)
			maxPages := (tt.existing+pageSize-1)/pageSize + 1
			assert.LessOrEqual(t, pages, maxPages)
			assert.Equal(t, 1, srv.Calls("POST /api/projects"))
		})
	}
}

func TestProject_DefaultNameAndCache(t *testing.T) {
	srv, r := setup(t)
	ctx := context.Background()

	first, err := r.Project(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, resolver.DefaultProject, first.Name)

	second, err := r.Project(ctx, resolver.DefaultProject)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	again, err := r.Project(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, 1, srv.Calls("POST /api/projects"))
	assert.Equal(t, 1, srv.Calls("GET /api/projects"))
}

func TestProject_ExactCaseSensitiveMatch(t *testing.T) {
	srv, r := setup(t)
	srv.AddProjects("Demo", 1) // "Demo-0"

	p, err := r.Project(context.Background(), "demo-0")
	require.NoError(t, err)
	assert.Equal(t, "demo-0", p.Name)
	assert.Equal(t, 1, srv.Calls("POST /api/projects"))
}

func TestProject_ListErrorIsPropagated(t *testing.T) {
	srv, r := setup(t)
	srv.Fail["GET /api/projects"] = 500

	_, err := r.Project(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrHTTPStatus)
	assert.Equal(t, 0, srv.Calls("POST /api/projects"))
}

func TestFolder_ScopedToProject(t *testing.T) {
	srv, r := setup(t)
	ctx := context.Background()

	a, err := r.Project(ctx, "a")
	require.NoError(t, err)
	b, err := r.Project(ctx, "b")
	require.NoError(t, err)

	fa, err := r.Folder(ctx, a.ID, "")
	require.NoError(t, err)
	assert.Equal(t, resolver.DefaultFolder, fa.Name)
	assert.Equal(t, a.ID, fa.ProjectID)

	fb, err := r.Folder(ctx, b.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, fa.ID, fb.ID)
	assert.Equal(t, 2, srv.Calls("POST /api/folders"))

	cached, err := r.Folder(ctx, a.ID, resolver.DefaultFolder)
	require.NoError(t, err)
	assert.Equal(t, fa.ID, cached.ID)
	assert.Equal(t, 2, srv.Calls("POST /api/folders"))
}

func TestFolder_FindsExisting(t *testing.T) {
	srv, r := setup(t)
	srv.Folders = []api.Folder{
		{ID: "f1", Name: "one", ProjectID: "p1"},
		{ID: "f2", Name: "two", ProjectID: "p1"},
		{ID: "f3", Name: "three", ProjectID: "p1"},
		{ID: "f4", Name: "three", ProjectID: "p2"},
	}

	f, err := r.Folder(context.Background(), "p1", "three")
	require.NoError(t, err)
	assert.Equal(t, "f3", f.ID)
	assert.Equal(t, 2, srv.Calls("GET /api/folders"))
	assert.Equal(t, 0, srv.Calls("POST /api/folders"))
}

func catalogue() []api.Voice {
	tag := func(names ...string) []api.NarrationStyleTag {
		tags := make([]api.NarrationStyleTag, len(names))
		for i, n := range names {
			tags[i] = api.NarrationStyleTag{Name: n}
		}
		return tags
	}
	return []api.Voice{
		{ID: "v-alice", Name: "Alice", NarrationStyles: []api.NarrationStyle{
			{ID: "ns-calm", Tags: tag("calm")},
			{ID: "ns-neutral", IsDefault: true, Tags: tag("neutral")},
			{ID: "ns-neutral-2", IsDefault: true, Tags: tag("neutral", "loud")},
		}},
		{ID: "v-bob", Name: "Bob", NarrationStyles: []api.NarrationStyle{
			{ID: "ns-angry", Tags: tag("angry")},
		}},
		{ID: "v-ghost", Name: "Ghost"},
		{ID: "v-zed", Name: "Zed", NarrationStyles: []api.NarrationStyle{
			{ID: "ns-z", IsDefault: true, Tags: tag("whisper")},
		}},
	}
}

func TestVoiceAndStyle_DefaultStyle(t *testing.T) {
	srv, r := setup(t)
	srv.Voices = catalogue()

	sel, err := r.VoiceAndStyle(context.Background(), "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, "v-alice", sel.VoiceID)
	assert.Equal(t, "ns-neutral", sel.NarrationStyleID)
}

func TestVoiceAndStyle_NamedStyle(t *testing.T) {
	srv, r := setup(t)
	srv.Voices = catalogue()

	sel, err := r.VoiceAndStyle(context.Background(), "Alice", "neutral, loud")
	require.NoError(t, err)
	assert.Equal(t, "ns-neutral-2", sel.NarrationStyleID)
	assert.Equal(t, "neutral, loud", sel.NarrationStyle.Name)
}

func TestVoiceAndStyle_NotFound(t *testing.T) {
	tests := []struct {
		name  string
		voice string
		style string
		kind  string
	}{
		{"unknown voice", "Nobody", "", "voice"},
		{"wrong case", "alice", "", "voice"},
		{"voice without styles", "Ghost", "", "voice"},
		{"unknown style", "Alice", "shouting", "narration style"},
		{"no default style", "Bob", "", "narration style"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, r := setup(t)
			srv.Voices = catalogue()

			_, err := r.VoiceAndStyle(context.Background(), tt.voice, tt.style)
			require.Error(t, err)
			assert.True(t, errors.Is(err, resolver.ErrNotFound))

			var nf *resolver.NotFoundError
			require.ErrorAs(t, err, &nf)
			assert.Equal(t, tt.kind, nf.Kind)
		})
	}
}

func TestVoices_ExcludesVoicesWithoutStyles(t *testing.T) {
	srv, r := setup(t)
	srv.Voices = catalogue()

	voices, err := r.Voices(context.Background())
	require.NoError(t, err)
	names := make([]string, len(voices))
	for i, v := range voices {
		names[i] = v.Name
		assert.NotEmpty(t, v.NarrationStyles)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Zed"}, names)
	// 4 voices at page size 2: two full pages and one empty page.
	assert.Equal(t, 3, srv.Calls("GET /api/v2/voices"))
}

func TestVoices_FetchedOnceAndReset(t *testing.T) {
	srv, r := setup(t)
	srv.Voices = catalogue()
	ctx := context.Background()

	_, err := r.VoiceAndStyle(ctx, "Alice", "")
	require.NoError(t, err)
	_, err = r.VoiceAndStyle(ctx, "Zed", "")
	require.NoError(t, err)
	_, err = r.VoiceAndStyle(ctx, "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, 3, srv.Calls("GET /api/v2/voices"))

	r.Reset()
	_, err = r.VoiceAndStyle(ctx, "Alice", "")
	require.NoError(t, err)
	assert.Equal(t, 6, srv.Calls("GET /api/v2/voices"))
}

func TestVoices_ConcurrentFirstAccess(t *testing.T) {
	srv, r := setup(t)
	srv.Voices = catalogue()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Voices(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every caller either joined the single in-flight fetch or hit the cache.
	assert.Equal(t, 3, srv.Calls("GET /api/v2/voices"))
}

func TestReset_ForgetsProjects(t *testing.T) {
	srv, r := setup(t)
	ctx := context.Background()

	_, err := r.Project(ctx, "keep")
	require.NoError(t, err)
	r.Reset()
	_, err = r.Project(ctx, "keep")
	require.NoError(t, err)

	// The second lookup lists again but finds the project it created.
	assert.Equal(t, 2, srv.Calls("GET /api/projects"))
	assert.Equal(t, 1, srv.Calls("POST /api/projects"))
}

func TestProject_ConcurrentFirstAccess(t *testing.T) {
	srv, r := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Project(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, srv.Calls("POST /api/projects"))
	assert.Len(t, srv.Projects, 1)
}

func TestFolder_ConcurrentFirstAccess(t *testing.T) {
	srv, r := setup(t)
	p, err := r.Project(context.Background(), "books")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Folder(context.Background(), p.ID, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, srv.Calls("POST /api/folders"))
	assert.Len(t, srv.Folders, 1)
}

// gatedBackend serves a fixed voice list. ListVoices signals started and then
// blocks until gate is closed. Pages report the limit given in reportedLimit.
type gatedBackend struct {
	voices        []api.Voice
	projects      []api.Project
	reportedLimit int
	started       chan struct{}
	gate          chan struct{}

	mu          sync.Mutex
	voiceCalls  int
	projectList int
}

func (b *gatedBackend) PageSize() int { return pageSize }

func (b *gatedBackend) ListVoices(ctx context.Context, offset int) (*api.VoiceList, error) {
	b.mu.Lock()
	b.voiceCalls++
	first := b.voiceCalls == 1
	b.mu.Unlock()
	if first && b.started != nil {
		close(b.started)
	}
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &api.VoiceList{
		List:       pageOf(b.voices, offset),
		Pagination: api.Pagination{Count: len(b.voices), Limit: b.reportedLimit, Offset: offset},
	}, nil
}

func (b *gatedBackend) ListProjects(_ context.Context, offset int, _ string) (*api.ProjectList, error) {
	b.mu.Lock()
	b.projectList++
	b.mu.Unlock()
	return &api.ProjectList{
		List:       pageOf(b.projects, offset),
		Pagination: api.Pagination{Count: len(b.projects), Limit: b.reportedLimit, Offset: offset},
	}, nil
}

func (b *gatedBackend) CreateProject(_ context.Context, userID, name string) (*api.Project, error) {
	return &api.Project{ID: "new", Name: name, Owner: userID}, nil
}

func (b *gatedBackend) ListFolders(context.Context, string, int) (*api.FolderList, error) {
	return &api.FolderList{}, nil
}

func (b *gatedBackend) CreateFolder(_ context.Context, projectID, name string) (*api.Folder, error) {
	return &api.Folder{ID: "new", Name: name, ProjectID: projectID}, nil
}

func pageOf[T any](items []T, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+pageSize, len(items))]
}

func TestVoices_CancelledCallerDoesNotFailOthers(t *testing.T) {
	b := &gatedBackend{
		voices:        catalogue(),
		reportedLimit: pageSize,
		started:       make(chan struct{}),
		gate:          make(chan struct{}),
	}
	r := resolver.New(b, api.User{ID: "user-1"})

	ctx1, cancel1 := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Voices(ctx1)
		firstErr <- err
	}()
	<-b.started

	type result struct {
		voices []api.Voice
		err    error
	}
	second := make(chan result, 1)
	go func() {
		v, err := r.Voices(context.Background())
		second <- result{v, err}
	}()

	cancel1()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(b.gate)
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.voices, 3)
}

func TestPagination_ZeroReportedLimit(t *testing.T) {
	b := &gatedBackend{reportedLimit: 0, voices: catalogue()}
	for i := 0; i < 5; i++ {
		b.projects = append(b.projects, api.Project{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("p-%d", i)})
	}
	r := resolver.New(b, api.User{ID: "user-1"})

	p, err := r.Project(context.Background(), "absent")
	require.NoError(t, err)
	assert.Equal(t, "absent", p.Name)
	// 5 projects at page size 2: pages of 2, 2 and 1.
	assert.Equal(t, 3, b.projectList)

	voices, err := r.Voices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 3)
	assert.Equal(t, 3, b.voiceCalls)
}
