package plant

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/internal/infrastructure/imagestore"
	"github.com/fastygo/plantcare/internal/registry"
	"github.com/fastygo/plantcare/repository/jsonfile"
	"github.com/fastygo/plantcare/usecase"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, days)
}

type memJournal struct {
	mu     sync.Mutex
	events []domain.CareEvent
	purged []string
}

func (j *memJournal) Record(event domain.CareEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	return nil
}

func (j *memJournal) List(plantID string) ([]domain.CareEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []domain.CareEvent{}
	for _, e := range j.events {
		if e.PlantID == plantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (j *memJournal) Purge(plantID string) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.purged = append(j.purged, plantID)
	return 0, nil
}

// hookedImages wraps the disk store so tests can interfere with writes and removals.
type hookedImages struct {
	*imagestore.Store
	beforeWrite func(src io.Reader) io.Reader
	afterWrite  func()
	removeErr   error
}

func (h *hookedImages) Write(plantID, filename string, src io.Reader) (int64, error) {
	if h.beforeWrite != nil {
		src = h.beforeWrite(src)
	}
	n, err := h.Store.Write(plantID, filename, src)
	if h.afterWrite != nil {
		h.afterWrite()
	}
	return n, err
}

func (h *hookedImages) RemovePlant(plantID string) (bool, error) {
	if h.removeErr != nil {
		return false, h.removeErr
	}
	return h.Store.RemovePlant(plantID)
}

// brokenReader yields limit bytes of src and then fails.
type brokenReader struct {
	src   io.Reader
	limit int
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if r.limit <= 0 {
		return 0, errors.New("connection reset")
	}
	if len(p) > r.limit {
		p = p[:r.limit]
	}
	n, err := r.src.Read(p)
	r.limit -= n
	return n, err
}

type purgeFailingJournal struct {
	memJournal
}

func (j *purgeFailingJournal) Purge(plantID string) (int, error) {
	return 0, errors.New("journal closed")
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context) ([]domain.Plant, error) { return nil, nil }
func (failingStore) Save(ctx context.Context, plants []domain.Plant) error {
	return errors.New("disk full")
}

type fixture struct {
	uc       *UseCase
	reg      *registry.Registry
	images   *imagestore.Store
	journal  *memJournal
	clock    *fixedClock
	dataFile string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	dataFile := filepath.Join(dir, "data", "plants.json")

	reg, err := registry.Open(context.Background(), jsonfile.NewPlantRepository(dataFile))
	require.NoError(t, err)
	images, err := imagestore.Open(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	clock := &fixedClock{now: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)}
	journal := &memJournal{}
	return &fixture{
		uc:       New(reg, images, journal, clock.Now, nil),
		reg:      reg,
		images:   images,
		journal:  journal,
		clock:    clock,
		dataFile: dataFile,
	}
}

func (f *fixture) persisted(t *testing.T) []domain.Plant {
	t.Helper()
	plants, err := jsonfile.NewPlantRepository(f.dataFile).Load(context.Background())
	require.NoError(t, err)
	return plants
}

type formPart struct {
	field    string
	filename string
	body     string
}

func multipartForm(t *testing.T, parts ...formPart) *multipart.Reader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		var (
			dst io.Writer
			err error
		)
		if p.filename == "" {
			dst, err = w.CreateFormField(p.field)
		} else {
			dst, err = w.CreateFormFile(p.field, p.filename)
		}
		require.NoError(t, err)
		_, err = io.WriteString(dst, p.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return multipart.NewReader(&buf, w.Boundary())
}

func TestAddPlant(t *testing.T) {
	f := newFixture(t)

	p, err := f.uc.AddPlant(context.Background(), Input{Name: "  Monstera ", WateringFrequencyDays: 7, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Monstera", p.Name)
	assert.Equal(t, "2024-04-01", p.CreatedAt.String())
	assert.Nil(t, p.LastWatered)
	assert.Nil(t, p.LastFertilized)
	assert.NotNil(t, p.ImageFilenames)
	assert.Empty(t, p.ImageFilenames)

	saved := f.persisted(t)
	require.Len(t, saved, 1)
	assert.Equal(t, p.ID, saved[0].ID)
}

func TestAddPlant_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []Input{
		{Name: "", WateringFrequencyDays: 1, FertilizingFrequencyDays: 1},
		{Name: "   ", WateringFrequencyDays: 1, FertilizingFrequencyDays: 1},
		{Name: "Fern", WateringFrequencyDays: 0, FertilizingFrequencyDays: 1},
		{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: -2},
	}
	for _, in := range cases {
		_, err := f.uc.AddPlant(context.Background(), in)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), "input %+v", in)
	}
	assert.Empty(t, f.uc.ListPlants(context.Background()))
}

func TestAddPlant_ConcurrentCallsAreAllPersisted(t *testing.T) {
	f := newFixture(t)

	const n = 20
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.uc.AddPlant(context.Background(), Input{Name: "Pothos", WateringFrequencyDays: 5, FertilizingFrequencyDays: 20})
			if assert.NoError(t, err) {
				ids <- p.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, n)

	saved := f.persisted(t)
	require.Len(t, saved, n)
	for _, p := range saved {
		assert.True(t, unique[p.ID])
	}
}

func TestAddPlant_PersistFailureKeepsMemoryState(t *testing.T) {
	reg := registry.New(failingStore{}, nil)
	images, err := imagestore.Open(t.TempDir())
	require.NoError(t, err)
	uc := New(reg, images, nil, nil, nil)

	_, err = uc.AddPlant(context.Background(), Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))
	assert.Equal(t, 1, reg.Len(), "no rollback on persist failure")
}

func TestGetPlant_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.GetPlant(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)
}

func TestUpdatePlant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)
	_, err = f.uc.MarkWatered(ctx, p.ID)
	require.NoError(t, err)

	updated, err := f.uc.UpdatePlant(ctx, p.ID, Input{Name: "Boston fern", WateringFrequencyDays: 4, FertilizingFrequencyDays: 28})
	require.NoError(t, err)
	assert.Equal(t, "Boston fern", updated.Name)
	assert.Equal(t, 4, updated.WateringFrequencyDays)
	assert.Equal(t, 28, updated.FertilizingFrequencyDays)
	require.NotNil(t, updated.LastWatered, "dates are untouched")
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)

	assert.Equal(t, "Boston fern", f.persisted(t)[0].Name)

	_, err = f.uc.UpdatePlant(ctx, "missing", Input{Name: "x", WateringFrequencyDays: 1, FertilizingFrequencyDays: 1})
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)
}

func TestMarkWatered_IdempotentPerDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)
	f.clock.advance(2)

	first, err := f.uc.MarkWatered(ctx, p.ID)
	require.NoError(t, err)
	second, err := f.uc.MarkWatered(ctx, p.ID)
	require.NoError(t, err)

	require.NotNil(t, first.LastWatered)
	assert.Equal(t, "2024-04-03", first.LastWatered.String())
	assert.Equal(t, *first.LastWatered, *second.LastWatered)
	assert.Nil(t, second.LastFertilized)
	assert.Equal(t, "2024-04-06", second.NextWateringDue().String())

	events, err := f.uc.History(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.CareWatering, events[0].Kind)
}

func TestMarkFertilized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	updated, err := f.uc.MarkFertilized(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastFertilized)
	assert.Nil(t, updated.LastWatered)

	saved := f.persisted(t)
	require.NotNil(t, saved[0].LastFertilized)

	_, err = f.uc.MarkFertilized(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)
}

func TestDeletePlant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)
	_, err = f.uc.AttachImage(ctx, p.ID, multipartForm(t, formPart{field: ImageField, filename: "leaf.png", body: "png"}))
	require.NoError(t, err)

	require.NoError(t, f.uc.DeletePlant(ctx, p.ID))

	assert.Empty(t, f.uc.ListPlants(ctx))
	assert.Empty(t, f.persisted(t))
	_, statErr := os.Stat(f.images.PlantDir(p.ID))
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []string{p.ID}, f.journal.purged)

	err = f.uc.DeletePlant(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)
}

func TestDeletePlant_CleanupFailuresAreLoggedOnly(t *testing.T) {
	cases := []struct {
		name    string
		images  func(f *fixture) usecase.ImageStore
		journal func(f *fixture) usecase.CareJournal
	}{
		{
			name: "image directory",
			images: func(f *fixture) usecase.ImageStore {
				return &hookedImages{Store: f.images, removeErr: os.ErrPermission}
			},
			journal: func(f *fixture) usecase.CareJournal { return f.journal },
		},
		{
			name:    "care journal",
			images:  func(f *fixture) usecase.ImageStore { return f.images },
			journal: func(f *fixture) usecase.CareJournal { return &purgeFailingJournal{} },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			core, logs := observer.New(zapcore.DebugLevel)
			f.uc = New(f.reg, tc.images(f), tc.journal(f), f.clock.Now, zap.New(core))
			ctx := context.Background()

			p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
			require.NoError(t, err)

			require.NoError(t, f.uc.DeletePlant(ctx, p.ID))
			assert.Empty(t, f.persisted(t))
			assert.False(t, f.reg.Exists(p.ID))
			assert.Len(t, logs.FilterLevelExact(zapcore.ErrorLevel).All(), 1)
		})
	}
}

func TestDeletePlant_WithoutImagesSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	assert.NoError(t, f.uc.DeletePlant(ctx, p.ID))
}

func TestAttachImage_StoresFirstValidFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	form := multipartForm(t,
		formPart{field: "caption", body: "sunny window"},
		formPart{field: "other", filename: "ignored.gif", body: "gif"},
		formPart{field: ImageField, filename: "../../etc/leaf.JPG", body: "first"},
		formPart{field: ImageField, filename: "second.png", body: "second"},
	)
	updated, err := f.uc.AttachImage(ctx, p.ID, form)
	require.NoError(t, err)

	require.Len(t, updated.ImageFilenames, 1)
	name := updated.ImageFilenames[0]
	assert.True(t, strings.HasSuffix(name, ".JPG"))
	assert.NotContains(t, name, "leaf")

	data, err := os.ReadFile(filepath.Join(f.images.PlantDir(p.ID), name))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	entries, err := os.ReadDir(f.images.PlantDir(p.ID))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Equal(t, []string{name}, f.persisted(t)[0].ImageFilenames)

	again, err := f.uc.AttachImage(ctx, p.ID, multipartForm(t, formPart{field: ImageField, filename: "noext", body: "x"}))
	require.NoError(t, err)
	require.Len(t, again.ImageFilenames, 2)
	assert.Equal(t, name, again.ImageFilenames[0], "upload order is kept")
	assert.True(t, strings.HasSuffix(again.ImageFilenames[1], ".bin"))
}

func TestAttachImage_FieldWithoutFilenameIsBadRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	_, err = f.uc.AttachImage(ctx, p.ID, multipartForm(t, formPart{field: ImageField, body: "not a file"}))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	entries, err := os.ReadDir(f.images.PlantDir(p.ID))
	require.NoError(t, err)
	assert.Empty(t, entries)

	got, err := f.uc.GetPlant(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageFilenames)
}

func TestAttachImage_PlantDeletedDuringUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	images := &hookedImages{Store: f.images}
	images.afterWrite = func() { f.reg.Remove(p.ID) }
	f.uc = New(f.reg, images, f.journal, f.clock.Now, nil)

	_, err = f.uc.AttachImage(ctx, p.ID, multipartForm(t, formPart{field: ImageField, filename: "leaf.png", body: "png"}))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))

	_, statErr := os.Stat(f.images.PlantDir(p.ID))
	assert.True(t, os.IsNotExist(statErr), "no file or directory is left for the deleted plant")
	require.Len(t, f.persisted(t), 1)
	assert.Empty(t, f.persisted(t)[0].ImageFilenames)
	assert.Empty(t, f.journal.events)
}

func TestAttachImage_WriteFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.uc.AddPlant(ctx, Input{Name: "Fern", WateringFrequencyDays: 3, FertilizingFrequencyDays: 30})
	require.NoError(t, err)

	images := &hookedImages{Store: f.images}
	images.beforeWrite = func(src io.Reader) io.Reader { return &brokenReader{src: src, limit: 4} }
	f.uc = New(f.reg, images, f.journal, f.clock.Now, nil)

	body := strings.Repeat("leaf", 1024)
	_, err = f.uc.AttachImage(ctx, p.ID, multipartForm(t, formPart{field: ImageField, filename: "leaf.png", body: body}))
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInternal))

	entries, err := os.ReadDir(f.images.PlantDir(p.ID))
	require.NoError(t, err)
	assert.Empty(t, entries)

	got, err := f.uc.GetPlant(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImageFilenames)
	assert.Empty(t, f.persisted(t)[0].ImageFilenames)
	assert.Empty(t, f.journal.events)
}

func TestAttachImage_UnknownPlantTouchesNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.AttachImage(context.Background(), "ghost", multipartForm(t, formPart{field: ImageField, filename: "a.png", body: "x"}))
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)

	_, statErr := os.Stat(f.images.PlantDir("ghost"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "png", extensionOf("photo.png"))
	assert.Equal(t, "gz", extensionOf("archive.tar.gz"))
	assert.Equal(t, "bin", extensionOf("README"))
	assert.Equal(t, "bin", extensionOf("trailing."))
	assert.Equal(t, "bin", extensionOf("odd.p-g"))
}

func TestHistory_UnknownPlant(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.History(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrPlantNotFound)
}
