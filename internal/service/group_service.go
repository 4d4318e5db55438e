package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

type groupPreferenceRepo interface {
	FindByID(ctx context.Context, groupID string) (*models.Group, error)
	ListApprovedMemberIDs(ctx context.Context, groupID string) ([]string, error)
	EnsurePreference(ctx context.Context, groupID string, defaultHours float64) (*models.GroupPreference, error)
	UpdatePreference(ctx context.Context, pref *models.GroupPreference, changedBy string) error
}

// GroupService manages group meeting preferences.
type GroupService struct {
	groups       groupPreferenceRepo
	validate     *validator.Validate
	defaultHours float64
	logger       *zap.Logger
}

// NewGroupService wires the service.
func NewGroupService(groups groupPreferenceRepo, validate *validator.Validate, defaultHours float64, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{groups: groups, validate: validate, defaultHours: defaultHours, logger: logger}
}

// GetPreference returns the group's preference row, creating it with the
// default weekly target when the group has never been planned.
func (s *GroupService) GetPreference(ctx context.Context, groupID string) (*models.GroupPreference, error) {
	if _, err := s.groups.FindByID(ctx, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, err
	}
	return s.groups.EnsurePreference(ctx, groupID, s.defaultHours)
}

// UpdatePreference replaces the group's preference content. The structured
// summary is stored as JSON next to the free text and the edit is appended to
// the change log.
func (s *GroupService) UpdatePreference(ctx context.Context, groupID string, req dto.UpdateGroupPreferenceRequest) (*models.GroupPreference, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preference payload")
	}
	memberIDs, err := s.groups.ListApprovedMemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs, req.UserID) {
		return nil, appErrors.ErrNotMember
	}

	pref, err := s.GetPreference(ctx, groupID)
	if err != nil {
		return nil, err
	}
	pref.PreferredHoursPerWeek = req.PreferredHoursPerWeek
	pref.PreferenceText = req.PreferenceText
	if req.Preferences != nil {
		encoded, err := json.Marshal(req.Preferences)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid structured preferences")
		}
		pref.PreferenceSummary = types.JSONText(encoded)
	}
	if err := s.groups.UpdatePreference(ctx, pref, req.UserID); err != nil {
		return nil, err
	}
	return pref, nil
}
