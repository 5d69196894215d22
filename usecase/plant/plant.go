package plant

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/internal/registry"
	"github.com/fastygo/plantcare/pkg/logger"
	"github.com/fastygo/plantcare/usecase"
)

const (
	// ImageField is the multipart field carrying an uploaded photo.
	ImageField       = "plantImage"
	defaultExtension = "bin"
)

// Input carries the mutable attributes of a plant.
type Input struct {
	Name                     string
	WateringFrequencyDays    int
	FertilizingFrequencyDays int
}

type UseCase struct {
	registry *registry.Registry
	images   usecase.ImageStore
	journal  usecase.CareJournal
	clock    usecase.Clock
	logger   *zap.Logger
}

// New wires the plant use case. journal may be nil.
func New(reg *registry.Registry, images usecase.ImageStore, journal usecase.CareJournal, clock usecase.Clock, logger *zap.Logger) *UseCase {
	if clock == nil {
		clock = usecase.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		registry: reg,
		images:   images,
		journal:  journal,
		clock:    clock,
		logger:   logger,
	}
}

func (uc *UseCase) ListPlants(ctx context.Context) []domain.Plant {
	return uc.registry.Snapshot()
}

func (uc *UseCase) GetPlant(ctx context.Context, id string) (*domain.Plant, error) {
	p, ok := uc.registry.Get(id)
	if !ok {
		return nil, domain.ErrPlantNotFound
	}
	return &p, nil
}

func (uc *UseCase) AddPlant(ctx context.Context, in Input) (*domain.Plant, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	p := domain.Plant{
		ID:                       uuid.NewString(),
		Name:                     in.Name,
		WateringFrequencyDays:    in.WateringFrequencyDays,
		FertilizingFrequencyDays: in.FertilizingFrequencyDays,
		ImageFilenames:           []string{},
		CreatedAt:                uc.clock.Today(),
	}
	uc.registry.Append(p)

	if err := uc.persist(ctx); err != nil {
		return nil, err
	}
	uc.log(ctx).Info("added plant", zap.String("plant_id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

func (uc *UseCase) UpdatePlant(ctx context.Context, id string, in Input) (*domain.Plant, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	updated, ok := uc.registry.Update(id, func(p *domain.Plant) {
		p.Name = in.Name
		p.WateringFrequencyDays = in.WateringFrequencyDays
		p.FertilizingFrequencyDays = in.FertilizingFrequencyDays
	})
	if !ok {
		return nil, domain.ErrPlantNotFound
	}

	if err := uc.persist(ctx); err != nil {
		return nil, err
	}
	uc.log(ctx).Info("updated plant", zap.String("plant_id", id), zap.String("name", updated.Name))
	return &updated, nil
}

// DeletePlant removes the record first; image and journal cleanup afterwards is best-effort.
func (uc *UseCase) DeletePlant(ctx context.Context, id string) error {
	removed, ok := uc.registry.Remove(id)
	if !ok {
		uc.log(ctx).Info("plant not found for deletion", zap.String("plant_id", id))
		return domain.ErrPlantNotFound
	}
	log := uc.log(ctx).With(zap.String("plant_id", id))
	log.Info("deleting plant", zap.String("name", removed.Name))

	if err := uc.persist(ctx); err != nil {
		return err
	}

	existed, err := uc.images.RemovePlant(id)
	switch {
	case err != nil:
		log.Error("failed to remove image directory, plant data already deleted", zap.Error(err))
	case existed:
		log.Info("removed image directory")
	default:
		log.Debug("no image directory to remove")
	}

	if uc.journal != nil {
		if n, err := uc.journal.Purge(id); err != nil {
			log.Error("failed to purge care journal", zap.Error(err))
		} else {
			log.Debug("purged care journal", zap.Int("events", n))
		}
	}

	log.Info("deleted plant")
	return nil
}

func (uc *UseCase) MarkWatered(ctx context.Context, id string) (*domain.Plant, error) {
	return uc.markCare(ctx, id, domain.CareWatering)
}

func (uc *UseCase) MarkFertilized(ctx context.Context, id string) (*domain.Plant, error) {
	return uc.markCare(ctx, id, domain.CareFertilizing)
}

func (uc *UseCase) markCare(ctx context.Context, id string, kind domain.CareEventKind) (*domain.Plant, error) {
	today := uc.clock.Today()
	updated, ok := uc.registry.Update(id, func(p *domain.Plant) {
		d := today
		if kind == domain.CareWatering {
			p.LastWatered = &d
		} else {
			p.LastFertilized = &d
		}
	})
	if !ok {
		return nil, domain.ErrPlantNotFound
	}

	if err := uc.persist(ctx); err != nil {
		return nil, err
	}
	uc.record(ctx, domain.CareEvent{PlantID: id, Kind: kind, Date: today})
	uc.log(ctx).Info("recorded plant care",
		zap.String("plant_id", id),
		zap.String("name", updated.Name),
		zap.String("kind", string(kind)))
	return &updated, nil
}

// AttachImage stores the first file found in the plantImage field of form
// and appends its generated name to the plant.
func (uc *UseCase) AttachImage(ctx context.Context, id string, form *multipart.Reader) (*domain.Plant, error) {
	log := uc.log(ctx).With(zap.String("plant_id", id))
	if !uc.registry.Exists(id) {
		log.Info("image upload for unknown plant")
		return nil, domain.ErrPlantNotFound
	}

	if err := uc.images.EnsurePlantDir(id); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to prepare image directory", err)
	}

	filename, err := uc.receiveImage(log, id, form)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		log.Info("no valid image file in upload", zap.String("field", ImageField))
		return nil, domain.ErrNoImageFile
	}

	updated, ok := uc.registry.Update(id, func(p *domain.Plant) {
		p.ImageFilenames = append(p.ImageFilenames, filename)
	})
	if !ok {
		log.Error("plant disappeared during image upload", zap.String("filename", filename))
		if err := uc.images.Remove(id, filename); err != nil {
			log.Warn("failed to remove orphaned image", zap.String("filename", filename), zap.Error(err))
		}
		if _, err := uc.images.RemovePlant(id); err != nil {
			log.Warn("failed to remove orphaned image directory", zap.Error(err))
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "plant removed during upload", domain.ErrPlantNotFound)
	}

	if err := uc.persist(ctx); err != nil {
		return nil, err
	}
	uc.record(ctx, domain.CareEvent{PlantID: id, Kind: domain.CareImage, Date: uc.clock.Today(), Detail: filename})
	log.Info("added image to plant", zap.String("filename", filename), zap.String("name", updated.Name))
	return &updated, nil
}

// receiveImage scans parts until the first usable file and streams it to disk.
// It returns an empty name when the form held no such file.
func (uc *UseCase) receiveImage(log *zap.Logger, id string, form *multipart.Reader) (string, error) {
	if form == nil {
		return "", nil
	}
	for {
		part, err := form.NextPart()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("stopped reading multipart form", zap.Error(err))
			}
			return "", nil
		}

		if part.FormName() != ImageField {
			log.Debug("ignoring form field", zap.String("field", part.FormName()))
			drain(part)
			continue
		}
		original := part.FileName()
		if original == "" {
			log.Info("image field without filename, skipping")
			drain(part)
			continue
		}

		filename := uuid.NewString() + "." + extensionOf(original)
		size, err := uc.images.Write(id, filename, part)
		part.Close()
		if err != nil {
			log.Error("failed to store uploaded image", zap.String("filename", filename), zap.Error(err))
			return "", domain.WrapError(domain.ErrCodeInternal, "failed to store uploaded image", err)
		}
		log.Info("saved uploaded image",
			zap.String("original", original),
			zap.String("filename", filename),
			zap.Int64("bytes", size))
		return filename, nil
	}
}

// History lists the journaled care events of a plant.
func (uc *UseCase) History(ctx context.Context, id string) ([]domain.CareEvent, error) {
	if !uc.registry.Exists(id) {
		return nil, domain.ErrPlantNotFound
	}
	if uc.journal == nil {
		return []domain.CareEvent{}, nil
	}
	events, err := uc.journal.List(id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to read care journal", err)
	}
	return events, nil
}

func (uc *UseCase) persist(ctx context.Context) error {
	if err := uc.registry.Persist(ctx); err != nil {
		uc.log(ctx).Error("failed to save plant data", zap.Error(err))
		return domain.WrapError(domain.ErrCodeInternal, "failed to save plant data", err)
	}
	return nil
}

func (uc *UseCase) record(ctx context.Context, event domain.CareEvent) {
	if uc.journal == nil {
		return
	}
	event.RecordedAt = uc.clock().UTC()
	if err := uc.journal.Record(event); err != nil {
		uc.log(ctx).Warn("failed to journal care event",
			zap.String("plant_id", event.PlantID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
	}
}

func (uc *UseCase) log(ctx context.Context) *zap.Logger {
	return logger.WithRequestID(ctx, uc.logger)
}

func normalize(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, domain.NewError(domain.ErrCodeInvalid, "name is required")
	}
	if in.WateringFrequencyDays < 1 || in.FertilizingFrequencyDays < 1 {
		return in, domain.NewError(domain.ErrCodeInvalid, "frequencies must be positive")
	}
	return in, nil
}

func extensionOf(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return defaultExtension
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return defaultExtension
		}
	}
	return ext
}

func drain(part *multipart.Part) {
	_, _ = io.Copy(io.Discard, part)
	part.Close()
}
