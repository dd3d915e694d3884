package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gifttech/academy-api/internal/dto"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
)

// ActivityEntry is the write-side shape of an audit record.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder is the narrow write interface other services depend on.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (models.ActivityLog, error)
}

// ActivityService records and lists audit events for admin review.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResult, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (models.ActivityLog, error) {
	log := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}

	if len(entry.Metadata) > 0 {
		log.Metadata = entry.Metadata
	}

	if err := s.repo.Create(ctx, &log); err != nil {
		return models.ActivityLog{}, err
	}

	return log, nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResult, error) {
	page := normalizePage(req.Page)
	pageSize := clampPageSize(req.PageSize)

	filter := repository.ActivityLogFilter{
		Action:     req.Action,
		EntityType: req.EntityType,
		ActorID:    req.ActorID,
		Page:       page,
		PageSize:   pageSize,
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResult{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(logs))
	for _, log := range logs {
		items = append(items, dto.NewActivityResponse(log))
	}

	return dto.ActivityListResult{
		Items: items,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: calculateTotalPages(total, pageSize),
		},
	}, nil
}
