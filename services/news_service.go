package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ssclub/club-system/models"
	"github.com/ssclub/club-system/repositories"
	"github.com/ssclub/club-system/storage"
)

type AchievementInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        models.Date `json:"date"`
	ImageURLs   []string    `json:"image_urls"`
}

// NewsService — новости и достижения клуба, включая загрузку изображений.
type NewsService interface {
	List(ctx context.Context, page, pageSize int) ([]models.Achievement, error)
	Create(ctx context.Context, input AchievementInput) (*models.Achievement, error)
	Update(ctx context.Context, id int, input AchievementInput) (*models.Achievement, error)
	Delete(ctx context.Context, id int) error
	UploadImage(ctx context.Context, filename, contentType string, reader io.Reader) (string, error)
}

type newsService struct {
	repo      repositories.AchievementRepository
	uploader  storage.FileUploader
	publisher EventPublisher
	logger    *slog.Logger
}

func NewNewsService(repo repositories.AchievementRepository, uploader storage.FileUploader, publisher EventPublisher, logger *slog.Logger) NewsService {
	return &newsService{repo: repo, uploader: uploader, publisher: publisher, logger: logger}
}

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

func (s *newsService) List(ctx context.Context, page, pageSize int) ([]models.Achievement, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.List(ctx, (page-1)*pageSize, pageSize)
}

func (s *newsService) Create(ctx context.Context, input AchievementInput) (*models.Achievement, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}

	achievement := &models.Achievement{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Date:        input.Date,
		ImageURLs:   input.ImageURLs,
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, err
	}

	s.publish(EventNewsPublished, achievement)
	return achievement, nil
}

func (s *newsService) Update(ctx context.Context, id int, input AchievementInput) (*models.Achievement, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidationFailed)
	}

	achievement := &models.Achievement{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Date:        input.Date,
		ImageURLs:   input.ImageURLs,
	}
	if err := s.repo.Update(ctx, achievement); err != nil {
		if errors.Is(err, repositories.ErrAchievementNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, err
	}
	return achievement, nil
}

func (s *newsService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAchievementNotFound) {
			return ErrAchievementNotFound
		}
		return err
	}
	return nil
}

func (s *newsService) UploadImage(ctx context.Context, filename, contentType string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrUploadUnsupportedType, ext)
	}

	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return result.Location, nil
}

func (s *newsService) publish(eventType string, payload interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}
