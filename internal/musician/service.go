package musician

import (
	"context"
	"encoding/json"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aidin1998/visitante_sonoro/common/apiutil"
	"github.com/Aidin1998/visitante_sonoro/internal/cache"
	"github.com/Aidin1998/visitante_sonoro/internal/media"
	"github.com/Aidin1998/visitante_sonoro/pkg/errors"
	"github.com/Aidin1998/visitante_sonoro/pkg/metrics"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFolder = "visitantesonoro"

	listCacheKey    = "musicians:all"
	itemCachePrefix = "musicians:"

	// bulk deletes run at most this many store calls at once
	deleteConcurrency = 8

	maxSanitizePasses = 4
)

// Error messages returned to clients
const (
	MsgMissingFields = "Please fill all required fields"
	MsgURLTaken      = "url has already been registered"
	MsgNotFound      = "Musician not found"
	MsgNotAuthorized = "User not authorized"
	MsgUploadFailed  = "Image could not be uploaded"
	MsgDeleted       = "Musicians deleted."
)

// Delete outcome statuses
const (
	DeleteStatusDeleted      = "deleted"
	DeleteStatusNotFound     = "not_found"
	DeleteStatusUnauthorized = "unauthorized"
	DeleteStatusFailed       = "failed"
)

// DeleteOutcome is the result of deleting a single id of a bulk request
type DeleteOutcome struct {
	ID     string
	Status string
	Err    error
}

type Service struct {
	repo      Repository
	uploader  media.Uploader
	cache     cache.Cache
	cacheTTL  time.Duration
	folder    string
	validator *apiutil.Validator
	policy    *bluemonday.Policy
	logger    *zap.Logger

	// generation is bumped by every write; a read only fills the cache if
	// no write happened since it started. fillMu orders fills against
	// invalidations.
	generation atomic.Uint64
	fillMu     sync.Mutex
}

type Option func(*Service)

// WithCache enables read caching of List and Get
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithFolder overrides the media host folder
func WithFolder(folder string) Option {
	return func(s *Service) {
		if folder != "" {
			s.folder = folder
		}
	}
}

func NewService(logger *zap.Logger, repo Repository, uploader media.Uploader, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		uploader:  uploader,
		cache:     cache.Noop{},
		folder:    DefaultFolder,
		validator: apiutil.NewValidator(),
		policy:    bluemonday.StrictPolicy(),
		logger:    logger.Named("musician"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new musician owned by adminID. file may be nil.
func (s *Service) Create(ctx context.Context, in CreateInput, adminID string, file *media.File) (m *Musician, err error) {
	defer func() { metrics.MusicianOperations.WithLabelValues("create", metrics.Result(err)).Inc() }()

	in.Name = s.sanitize(in.Name)
	in.Age = s.sanitize(in.Age)
	in.URL = s.sanitize(in.URL)
	in.Description = s.sanitize(in.Description)

	if err := s.validator.Validate(in, MsgMissingFields); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByURL(ctx, in.URL)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.Conflict.Explain(MsgURLTaken)
	}

	image, err := s.uploadImage(ctx, file)
	if err != nil {
		return nil, err
	}

	m = &Musician{
		Admin:       adminID,
		Name:        in.Name,
		Age:         in.Age,
		URL:         in.URL,
		Description: in.Description,
		Image:       image,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, conflictOnDuplicate(err)
	}

	s.invalidate(ctx)
	s.logger.Info("Musician created", zap.String("id", m.ID), zap.String("admin", adminID))
	return m, nil
}

// Update changes a musician owned by adminID. A nil file keeps the stored image.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput, adminID string, file *media.File) (m *Musician, err error) {
	defer func() { metrics.MusicianOperations.WithLabelValues("update", metrics.Result(err)).Inc() }()

	current, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.OwnedBy(adminID) {
		return nil, errors.Unauthorized.Explain(MsgNotAuthorized)
	}

	in = UpdateInput{
		Name:        s.sanitizeOptional(in.Name),
		Age:         s.sanitizeOptional(in.Age),
		URL:         s.sanitizeOptional(in.URL),
		Description: s.sanitizeOptional(in.Description),
	}
	next := *current
	in.apply(&next)

	if err := s.validator.Validate(CreateInput{Name: next.Name, URL: next.URL}, MsgMissingFields); err != nil {
		return nil, err
	}

	holder, err := s.repo.FindByURL(ctx, next.URL)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != id {
		return nil, errors.Conflict.Explain(MsgURLTaken)
	}

	if file != nil {
		image, err := s.uploadImage(ctx, file)
		if err != nil {
			return nil, err
		}
		next.Image = image
	}

	m, err = s.repo.Update(ctx, &next)
	if err != nil {
		return nil, conflictOnDuplicate(err)
	}

	s.invalidate(ctx, id)
	s.logger.Info("Musician updated", zap.String("id", id), zap.String("admin", adminID))
	return m, nil
}

// Delete removes every id in the comma separated list that adminID owns.
// Failures on one id never stop the others; the outcomes are returned in
// list order for the caller to inspect or ignore.
func (s *Service) Delete(ctx context.Context, idList string, adminID string) []DeleteOutcome {
	ids := splitIDs(idList)
	outcomes := make([]DeleteOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(deleteConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = s.deleteOne(ctx, id, adminID)
			return nil
		})
	}
	_ = g.Wait()

	deleted := make([]string, 0, len(ids))
	for _, o := range outcomes {
		if o.Status == DeleteStatusDeleted {
			deleted = append(deleted, o.ID)
		}
	}
	s.invalidate(ctx, deleted...)

	return outcomes
}

func (s *Service) deleteOne(ctx context.Context, id, adminID string) DeleteOutcome {
	outcome := DeleteOutcome{ID: id}

	m, err := s.findOne(ctx, id)
	switch {
	case errors.Is(err, errors.NotFound):
		outcome.Status = DeleteStatusNotFound
		outcome.Err = errors.NotFound.Explain("some musicians on the list were not found, please refresh the page")
	case err != nil:
		outcome.Status = DeleteStatusFailed
		outcome.Err = err
	case !m.OwnedBy(adminID):
		outcome.Status = DeleteStatusUnauthorized
		outcome.Err = errors.Unauthorized.Explain(MsgNotAuthorized)
	default:
		if err := s.repo.Delete(ctx, id); err != nil {
			outcome.Status = DeleteStatusFailed
			outcome.Err = err
		} else {
			outcome.Status = DeleteStatusDeleted
		}
	}

	if outcome.Err != nil {
		s.logger.Warn("Musician not deleted",
			zap.String("id", id),
			zap.String("admin", adminID),
			zap.String("status", outcome.Status),
			zap.Error(outcome.Err))
	}
	metrics.MusicianOperations.WithLabelValues("delete", metrics.Result(outcome.Err)).Inc()
	return outcome
}

// List returns every musician, newest first
func (s *Service) List(ctx context.Context) ([]Musician, error) {
	var musicians []Musician
	if s.cached(ctx, listCacheKey, &musicians) {
		return musicians, nil
	}

	gen := s.generation.Load()
	musicians, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, gen, listCacheKey, musicians)
	return musicians, nil
}

// Get returns a single musician. Anyone may read any record.
func (s *Service) Get(ctx context.Context, id string) (*Musician, error) {
	var m Musician
	if s.cached(ctx, itemCachePrefix+id, &m) {
		return &m, nil
	}

	gen := s.generation.Load()
	found, err := s.findOne(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, gen, itemCachePrefix+id, found)
	return found, nil
}

func (s *Service) findOne(ctx context.Context, id string) (*Musician, error) {
	m, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, errors.NotFound) {
		return nil, errors.NotFound.Explain(MsgNotFound)
	}
	return m, err
}

func (s *Service) uploadImage(ctx context.Context, file *media.File) (Image, error) {
	if file == nil {
		return Image{}, nil
	}

	res, err := s.uploader.Upload(ctx, file.Path, media.Options{
		Folder:       s.folder,
		ResourceType: media.ResourceImage,
	})
	metrics.ImageUploads.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		s.logger.Error("Image upload failed", zap.String("file", file.OriginalName), zap.Error(err))
		return Image{}, errors.Upload.Explain(MsgUploadFailed).Wrap(err)
	}

	return Image{
		FileName: file.OriginalName,
		FilePath: res.SecureURL,
		FileType: file.MimeType,
		FileSize: media.FormatFileSize(file.Size, 2),
	}, nil
}

// sanitize strips markup and decodes entities so plain text round-trips.
// Decoding can expose markup that was entity encoded, so the policy runs
// again until the value is stable. A value that never settles is stored
// in its encoded form.
func (s *Service) sanitize(v string) string {
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(v))
		if next == v {
			return strings.TrimSpace(next)
		}
		v = next
	}
	return strings.TrimSpace(s.policy.Sanitize(v))
}

func (s *Service) sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	clean := s.sanitize(*v)
	return &clean
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		s.logger.Warn("Cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// store fills key unless a write happened after gen was read
func (s *Service) store(ctx context.Context, gen uint64, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.generation.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) invalidate(ctx context.Context, ids ...string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.generation.Add(1)

	keys := []string{listCacheKey}
	for _, id := range ids {
		keys = append(keys, itemCachePrefix+id)
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// conflictOnDuplicate reports a unique index violation as a taken url
func conflictOnDuplicate(err error) error {
	if errors.Is(err, errors.Conflict) {
		return errors.Conflict.Explain(MsgURLTaken).Wrap(err)
	}
	return err
}

func splitIDs(list string) []string {
	parts := strings.Split(list, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
