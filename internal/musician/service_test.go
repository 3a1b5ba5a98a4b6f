package musician

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Aidin1998/visitante_sonoro/internal/cache"
	"github.com/Aidin1998/visitante_sonoro/internal/media"
	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	adminA = "11111111-1111-1111-1111-111111111111"
	adminB = "22222222-2222-2222-2222-222222222222"
)

type stubUploader struct {
	mu    sync.Mutex
	calls []string
	opts  []media.Options
	url   string
	err   error
}

func (u *stubUploader) Upload(_ context.Context, path string, opts media.Options) (*media.Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, path)
	u.opts = append(u.opts, opts)
	if u.err != nil {
		return nil, u.err
	}
	return &media.Result{PublicID: "id", SecureURL: u.url}, nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return b, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, NewGormRepository(db).Migrate())
	return db
}

func newTestService(t *testing.T, opts ...Option) (*Service, *GormRepository, *stubUploader) {
	t.Helper()
	repo := NewGormRepository(newTestDB(t))
	up := &stubUploader{url: "https://res.cloudinary.com/demo/image/upload/v1/visitantesonoro/pic.png"}
	return NewService(zap.NewNop(), repo, up, opts...), repo, up
}

func countByURL(t *testing.T, repo *GormRepository, url string) int64 {
	var n int64
	require.NoError(t, repo.db.Model(&Musician{}).Where("url = ?", url).Count(&n).Error)
	return n
}

func ptr(s string) *string { return &s }

func TestCreateRequiresNameAndURL(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{URL: "https://a.example"}, adminA, nil)
	assert.True(t, errors.Is(err, errors.Invalid))

	_, err = svc.Create(ctx, CreateInput{Name: "Ana"}, adminA, nil)
	assert.True(t, errors.Is(err, errors.Invalid))

	_, err = svc.Create(ctx, CreateInput{Name: "<b></b>", URL: "https://a.example"}, adminA, nil)
	assert.True(t, errors.Is(err, errors.Invalid), "markup only name is empty after sanitising")

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateWithoutImage(t *testing.T) {
	svc, _, up := newTestService(t)

	m, err := svc.Create(context.Background(), CreateInput{
		Name:        "Ana Tijoux",
		Age:         "46",
		URL:         "https://ana.example",
		Description: "rapper <script>alert(1)</script>& singer",
	}, adminA, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, adminA, m.Admin)
	assert.Equal(t, "rapper & singer", m.Description)
	assert.True(t, m.Image.IsEmpty())
	assert.Empty(t, up.calls)
}

func TestCreateWithImage(t *testing.T) {
	svc, _, up := newTestService(t)

	file := &media.File{OriginalName: "pic.png", Path: "/tmp/123-pic.png", MimeType: "image/png", Size: 1536}
	m, err := svc.Create(context.Background(), CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, file)
	require.NoError(t, err)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "/tmp/123-pic.png", up.calls[0])
	assert.Equal(t, media.Options{Folder: DefaultFolder, ResourceType: "image"}, up.opts[0])
	assert.Equal(t, Image{
		FileName: "pic.png",
		FilePath: up.url,
		FileType: "image/png",
		FileSize: "1.54 KB",
	}, m.Image)
}

func TestCreateDuplicateURL(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "One", URL: "https://dup.example"}, adminA, nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Two", URL: "https://dup.example"}, adminB, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Conflict))

	assert.Equal(t, int64(1), countByURL(t, repo, "https://dup.example"))
}

func TestUniqueIndexBacksURLCheck(t *testing.T) {
	_, repo, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Musician{Admin: adminA, Name: "One", URL: "https://race.example"}))
	err := repo.Create(ctx, &Musician{Admin: adminB, Name: "Two", URL: "https://race.example"})

	assert.True(t, errors.Is(conflictOnDuplicate(err), errors.Conflict))
	assert.Equal(t, int64(1), countByURL(t, repo, "https://race.example"))
}

func TestCreateUploadFailure(t *testing.T) {
	svc, repo, up := newTestService(t)
	up.err = stderrors.New("503 from media host")

	file := &media.File{OriginalName: "pic.png", Path: "/tmp/pic.png", MimeType: "image/png", Size: 10}
	_, err := svc.Create(context.Background(), CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, file)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.Upload))

	assert.Equal(t, int64(0), countByURL(t, repo, "https://ana.example"))
}

func TestUpdateByNonOwner(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, m.ID, UpdateInput{Name: ptr("Hijacked")}, adminB, nil)
	assert.True(t, errors.Is(err, errors.Unauthorized))

	stored, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Name)
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "missing", UpdateInput{Name: ptr("x")}, adminA, nil)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestUpdateKeepsURLAndImage(t *testing.T) {
	svc, _, up := newTestService(t)
	ctx := context.Background()

	file := &media.File{OriginalName: "pic.png", Path: "/tmp/pic.png", MimeType: "image/png", Size: 2_500_000}
	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, file)
	require.NoError(t, err)

	// same url as stored: the lookup finds this very record
	updated, err := svc.Update(ctx, m.ID, UpdateInput{
		Name: ptr("Ana T."),
		Age:  ptr("47"),
		URL:  ptr("https://ana.example"),
	}, adminA, nil)
	require.NoError(t, err)

	assert.Equal(t, "Ana T.", updated.Name)
	assert.Equal(t, "47", updated.Age)
	assert.Equal(t, m.Image, updated.Image)
	assert.Len(t, up.calls, 1)
}

func TestUpdateToFreeURL(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://old.example"}, adminA, nil)
	require.NoError(t, err)

	// no record holds the new url
	updated, err := svc.Update(ctx, m.ID, UpdateInput{URL: ptr("https://new.example")}, adminA, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example", updated.URL)
	assert.Equal(t, "Ana", updated.Name)
}

func TestUpdateReplacesWholeImage(t *testing.T) {
	svc, _, up := newTestService(t)
	ctx := context.Background()

	first := &media.File{OriginalName: "old.png", Path: "/tmp/old.png", MimeType: "image/png", Size: 1000}
	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, first)
	require.NoError(t, err)

	up.url = "https://res.cloudinary.com/demo/image/upload/v2/visitantesonoro/new.jpg"
	second := &media.File{OriginalName: "new.jpg", Path: "/tmp/new.jpg", MimeType: "image/jpeg", Size: 2_000_000}
	updated, err := svc.Update(ctx, m.ID, UpdateInput{}, adminA, second)
	require.NoError(t, err)

	assert.Equal(t, Image{
		FileName: "new.jpg",
		FilePath: up.url,
		FileType: "image/jpeg",
		FileSize: "2 MB",
	}, updated.Image)
}

func TestUpdateUploadFailureLeavesRecord(t *testing.T) {
	svc, repo, up := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	up.err = stderrors.New("timeout")
	file := &media.File{OriginalName: "new.png", Path: "/tmp/new.png", MimeType: "image/png", Size: 10}
	_, err = svc.Update(ctx, m.ID, UpdateInput{Name: ptr("Changed")}, adminA, file)
	assert.True(t, errors.Is(err, errors.Upload))

	stored, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stored.Name)
	assert.True(t, stored.Image.IsEmpty())
}

func TestUpdateURLTakenByOther(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "One", URL: "https://one.example"}, adminA, nil)
	require.NoError(t, err)
	two, err := svc.Create(ctx, CreateInput{Name: "Two", URL: "https://two.example"}, adminA, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, two.ID, UpdateInput{URL: ptr("https://one.example")}, adminA, nil)
	assert.True(t, errors.Is(err, errors.Conflict))
}

func TestUpdateClearingRequiredField(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, m.ID, UpdateInput{Name: ptr("  ")}, adminA, nil)
	assert.True(t, errors.Is(err, errors.Invalid))
}

func TestListNewestFirst(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"t1", "t2", "t3"} {
		require.NoError(t, repo.Create(ctx, &Musician{
			Admin:     adminA,
			Name:      name,
			URL:       "https://" + name + ".example",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"t3", "t2", "t1"}, []string{all[0].Name, all[1].Name, all[2].Name})
}

func TestGet(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)

	_, err = svc.Get(ctx, "does-not-exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestDeleteMixedOwnership(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, CreateInput{Name: "Mine", URL: "https://mine.example"}, adminA, nil)
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, CreateInput{Name: "Theirs", URL: "https://theirs.example"}, adminB, nil)
	require.NoError(t, err)

	outcomes := svc.Delete(ctx, mine.ID+","+theirs.ID+",ghost", adminA)
	require.Len(t, outcomes, 3)
	assert.Equal(t, DeleteStatusDeleted, outcomes[0].Status)
	assert.Equal(t, DeleteStatusUnauthorized, outcomes[1].Status)
	assert.Equal(t, DeleteStatusNotFound, outcomes[2].Status)

	_, err = repo.FindByID(ctx, mine.ID)
	assert.True(t, errors.Is(err, errors.NotFound))
	_, err = repo.FindByID(ctx, theirs.ID)
	assert.NoError(t, err)
}

func TestDeleteManyOwned(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	var ids string
	for i := 0; i < 20; i++ {
		m, err := svc.Create(ctx, CreateInput{Name: "m", URL: fmt.Sprintf("https://m%d.example", i)}, adminA, nil)
		require.NoError(t, err)
		if i > 0 {
			ids += ","
		}
		ids += m.ID
	}

	for _, o := range svc.Delete(ctx, ids, adminA) {
		assert.Equal(t, DeleteStatusDeleted, o.Status, o.ID)
	}
	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitIDs(" a, ,b,"))
	assert.Empty(t, splitIDs(""))
}

func TestCacheInvalidatedOnWrite(t *testing.T) {
	c := newMemoryCache()
	svc, _, _ := newTestService(t, WithCache(c, time.Minute))
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	_, err = svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Contains(t, c.entries, listCacheKey)
	assert.Contains(t, c.entries, itemCachePrefix+m.ID)

	_, err = svc.Update(ctx, m.ID, UpdateInput{Name: ptr("Ana T.")}, adminA, nil)
	require.NoError(t, err)
	assert.NotContains(t, c.entries, listCacheKey)
	assert.NotContains(t, c.entries, itemCachePrefix+m.ID)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana T.", got.Name)

	svc.Delete(ctx, m.ID, adminA)
	all, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSanitizeDecodedMarkup(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input string
	}{
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"double encoded tag", "&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt;"},
		{"encoded image", `&lt;img src=x onerror="alert(1)"&gt;`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean := svc.sanitize(tt.input)
			assert.NotContains(t, clean, "<")
			assert.NotContains(t, clean, "&lt;")
		})
	}

	assert.Equal(t, "Rock & Roll", svc.sanitize("Rock &amp; Roll"))
	assert.Equal(t, "Rock & Roll", svc.sanitize("Rock & Roll"))

	m, err := svc.Create(ctx, CreateInput{
		Name:        "Ana",
		URL:         "https://ana.example",
		Description: "&lt;script&gt;alert(1)&lt;/script&gt;",
	}, adminA, nil)
	require.NoError(t, err)

	stored, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.NotContains(t, stored.Description, "<script")

	updated, err := svc.Update(ctx, m.ID, UpdateInput{Name: ptr("&lt;b&gt;Ana&lt;/b&gt;")}, adminA, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
}

// hookRepo runs afterRead once, after a FindByID or List has read the store
type hookRepo struct {
	Repository
	afterRead func()
}

func (r *hookRepo) fire() {
	if fn := r.afterRead; fn != nil {
		r.afterRead = nil
		fn()
	}
}

func (r *hookRepo) FindByID(ctx context.Context, id string) (*Musician, error) {
	m, err := r.Repository.FindByID(ctx, id)
	r.fire()
	return m, err
}

func (r *hookRepo) List(ctx context.Context) ([]Musician, error) {
	list, err := r.Repository.List(ctx)
	r.fire()
	return list, err
}

func TestCacheFillSkippedAfterConcurrentWrite(t *testing.T) {
	c := newMemoryCache()
	repo := &hookRepo{Repository: NewGormRepository(newTestDB(t))}
	svc := NewService(zap.NewNop(), repo, &stubUploader{}, WithCache(c, time.Minute))
	ctx := context.Background()

	m, err := svc.Create(ctx, CreateInput{Name: "Ana", URL: "https://ana.example"}, adminA, nil)
	require.NoError(t, err)

	// the update lands between the read of the old row and the cache fill
	repo.afterRead = func() {
		_, err := svc.Update(ctx, m.ID, UpdateInput{Name: ptr("Ana T.")}, adminA, nil)
		require.NoError(t, err)
	}
	stale, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", stale.Name)
	assert.NotContains(t, c.entries, itemCachePrefix+m.ID)

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana T.", got.Name)
	assert.Contains(t, c.entries, itemCachePrefix+m.ID)

	repo.afterRead = func() {
		_, err := svc.Create(ctx, CreateInput{Name: "Bea", URL: "https://bea.example"}, adminA, nil)
		require.NoError(t, err)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NotContains(t, c.entries, listCacheKey)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
