package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/study-planner-api/internal/dto"
	"github.com/noah-isme/study-planner-api/internal/models"
	appErrors "github.com/noah-isme/study-planner-api/pkg/errors"
)

// Change request resolutions stored alongside the terminal status.
const (
	ResolutionApplied  = "applied"
	ResolutionRejected = "rejected-by-member"
	ResolutionExpired  = "expired"
	ResolutionConflict = "conflicts-with-member-schedule"
)

type requestStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, request *models.ChangeRequest) error
	FindByID(ctx context.Context, id string) (*models.ChangeRequest, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.ChangeRequest, error)
	MarkResolved(ctx context.Context, exec sqlx.ExtContext, id, status, resolution string) (bool, error)
	UpsertVote(ctx context.Context, exec sqlx.ExtContext, requestID, userID string, approved bool) error
	ListVotes(ctx context.Context, requestID string) ([]models.Approval, error)
}

type canonicalBlockStore interface {
	FindByID(ctx context.Context, id string) (*models.GroupPlanBlock, error)
	UpdateInterval(ctx context.Context, exec sqlx.ExtContext, id string, day int, startTime, endTime string) error
}

type memberConstraintReader interface {
	ListForUsersWeek(ctx context.Context, userIDs []string, weekStart time.Time) (map[string][]models.Constraint, error)
}

type memberBlockReader interface {
	ListByUserWeek(ctx context.Context, userID string, weekStart time.Time) ([]models.PlanBlock, error)
}

// ChangeRequestService runs the group change-request workflow: one pending
// proposal per vote cycle, unanimous approval applies the change, a single
// rejection or the expiry window kills it. Resolution happens exactly once;
// concurrent votes are serialized per request and the final state flip is
// guarded in SQL as well.
type ChangeRequestService struct {
	db          txProvider
	requests    requestStore
	canonical   canonicalBlockStore
	members     groupMemberReader
	constraints memberConstraintReader
	blocks      memberBlockReader
	sync        *PlanSynchronizer
	validator   *Validator
	validate    *validator.Validate
	notifier    Notifier
	ttl         time.Duration
	logger      *zap.Logger
	now         func() time.Time

	locks sync.Map
}

// NewChangeRequestService wires the workflow.
func NewChangeRequestService(
	db txProvider,
	requests requestStore,
	canonical canonicalBlockStore,
	members groupMemberReader,
	constraints memberConstraintReader,
	blocks memberBlockReader,
	planSync *PlanSynchronizer,
	placement *Validator,
	validate *validator.Validate,
	notifier Notifier,
	ttl time.Duration,
	logger *zap.Logger,
) *ChangeRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeRequestService{
		db:          db,
		requests:    requests,
		canonical:   canonical,
		members:     members,
		constraints: constraints,
		blocks:      blocks,
		sync:        planSync,
		validator:   placement,
		validate:    validate,
		notifier:    notifier,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// Create opens a change request against a canonical group block. The
// requester's approval is recorded implicitly, so a single-member group
// resolves immediately.
func (s *ChangeRequestService) Create(ctx context.Context, req dto.CreateChangeRequestRequest) (*models.ChangeRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change request payload")
	}
	block, err := s.canonical.FindByID(ctx, req.GroupBlockID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group block not found")
		}
		return nil, err
	}

	memberIDs, err := s.members.ListApprovedMemberIDs(ctx, block.GroupID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs, req.UserID) {
		return nil, appErrors.ErrNotMember
	}

	proposed, err := parseInterval(req.ProposedStart, req.ProposedEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposed interval")
	}
	original, err := parseInterval(block.StartTime, block.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored block interval is invalid")
	}

	if rejection := s.validateProposal(ctx, block, req.ProposedDay, proposed, memberIDs); rejection != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, rejection.Message)
	}

	requestType := models.RequestTypeMove
	if proposed.Duration() != original.Duration() {
		requestType = models.RequestTypeResize
	}

	request := &models.ChangeRequest{
		GroupID:       block.GroupID,
		GroupBlockID:  block.ID,
		WeekStart:     block.WeekStart,
		Type:          requestType,
		OriginalDay:   block.DayOfWeek,
		OriginalStart: block.StartTime,
		OriginalEnd:   block.EndTime,
		ProposedDay:   req.ProposedDay,
		ProposedStart: req.ProposedStart,
		ProposedEnd:   req.ProposedEnd,
		RequesterID:   req.UserID,
		Reason:        req.Reason,
		Status:        models.RequestStatusPending,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.requests.Create(ctx, tx, request); err != nil {
		return nil, err
	}
	if err := s.requests.UpsertVote(ctx, tx, request.ID, req.UserID, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit change request")
	}

	s.notifier.Publish(ctx, models.Event{
		Type:       models.EventChangeRequested,
		Recipients: without(memberIDs, req.UserID),
		Payload: map[string]any{
			"request_id": request.ID,
			"group_id":   request.GroupID,
			"requester":  request.RequesterID,
		},
	})

	// The implicit approval may already be unanimous.
	if _, err := s.settle(ctx, request, memberIDs); err != nil && err != appErrors.ErrRequestResolved {
		return nil, err
	}
	refreshed, err := s.requests.FindByID(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// Vote records one member's decision and resolves the request when the vote
// settles it. Votes on the same request are serialized; a resubmitted vote
// overwrites the previous one while the request is still pending.
func (s *ChangeRequestService) Vote(ctx context.Context, requestID string, req dto.VoteRequest) (*dto.VoteResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vote payload")
	}
	mu := s.lockFor(requestID)
	mu.Lock()
	defer mu.Unlock()

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
		}
		return nil, err
	}
	if request.Terminal() {
		return nil, appErrors.ErrRequestResolved
	}
	if request.ExpiredAt(s.now(), s.ttl) {
		s.expire(ctx, request)
		return nil, appErrors.ErrRequestExpired
	}

	memberIDs, err := s.members.ListApprovedMemberIDs(ctx, request.GroupID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs, req.UserID) {
		return nil, appErrors.ErrNotMember
	}

	approve := req.Approve != nil && *req.Approve
	if err := s.requests.UpsertVote(ctx, nil, requestID, req.UserID, approve); err != nil {
		return nil, err
	}

	if !approve {
		resolved, err := s.reject(ctx, request, ResolutionRejected, memberIDs)
		if err != nil {
			return nil, err
		}
		if !resolved {
			return nil, appErrors.ErrRequestResolved
		}
		return s.voteResponse(ctx, requestID, models.RequestStatusRejected, ResolutionRejected, memberIDs)
	}

	status, err := s.settle(ctx, request, memberIDs)
	if err != nil {
		return nil, err
	}
	resolution := ""
	if status == models.RequestStatusApproved {
		resolution = ResolutionApplied
	} else if status == models.RequestStatusRejected {
		resolution = ResolutionConflict
	}
	return s.voteResponse(ctx, requestID, status, resolution, memberIDs)
}

// ListByGroup returns a group's change requests, resolving any that expired
// since last access.
func (s *ChangeRequestService) ListByGroup(ctx context.Context, groupID string) ([]models.ChangeRequest, error) {
	requests, err := s.requests.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range requests {
		if requests[i].ExpiredAt(now, s.ttl) {
			s.expire(ctx, &requests[i])
			requests[i].Status = models.RequestStatusRejected
			resolution := ResolutionExpired
			requests[i].Resolution = &resolution
		}
	}
	return requests, nil
}

// settle checks unanimity and, when reached, re-validates and applies the
// change. Returns the request status after the check.
func (s *ChangeRequestService) settle(ctx context.Context, request *models.ChangeRequest, memberIDs []string) (string, error) {
	votes, err := s.requests.ListVotes(ctx, request.ID)
	if err != nil {
		return "", err
	}
	approvals := make(map[string]bool, len(votes))
	for _, vote := range votes {
		approvals[vote.UserID] = vote.Approved
	}
	for _, userID := range memberIDs {
		approved, voted := approvals[userID]
		if !voted || !approved {
			return models.RequestStatusPending, nil
		}
	}

	block, err := s.canonical.FindByID(ctx, request.GroupBlockID)
	if err != nil {
		// The canonical block can vanish when the group is replanned while
		// the request is pending; that rejects the request, not the vote.
		if errors.Is(err, sql.ErrNoRows) {
			resolved, rejectErr := s.reject(ctx, request, ResolutionConflict, memberIDs)
			if rejectErr != nil {
				return "", rejectErr
			}
			if !resolved {
				return "", appErrors.ErrRequestResolved
			}
			return models.RequestStatusRejected, nil
		}
		return "", err
	}

	proposed, err := parseInterval(request.ProposedStart, request.ProposedEnd)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored proposal is invalid")
	}

	// Member schedules may have changed since the request was opened, so the
	// proposal is re-validated right before it applies.
	if rejection := s.validateProposal(ctx, block, request.ProposedDay, proposed, memberIDs); rejection != nil {
		resolved, err := s.reject(ctx, request, ResolutionConflict, memberIDs)
		if err != nil {
			return "", err
		}
		if !resolved {
			return "", appErrors.ErrRequestResolved
		}
		return models.RequestStatusRejected, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer tx.Rollback()

	resolved, err := s.requests.MarkResolved(ctx, tx, request.ID, models.RequestStatusApproved, ResolutionApplied)
	if err != nil {
		return "", err
	}
	if !resolved {
		return "", appErrors.ErrRequestResolved
	}
	if err := s.canonical.UpdateInterval(ctx, tx, block.ID, request.ProposedDay, request.ProposedStart, request.ProposedEnd); err != nil {
		return "", err
	}
	block.DayOfWeek = request.ProposedDay
	block.StartTime = request.ProposedStart
	block.EndTime = request.ProposedEnd
	if err := s.sync.ResyncBlock(ctx, tx, block, memberIDs); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit approved change")
	}

	s.notifier.Publish(ctx, models.Event{
		Type:       models.EventChangeApproved,
		Recipients: memberIDs,
		Payload: map[string]any{
			"request_id":     request.ID,
			"group_id":       request.GroupID,
			"group_block_id": block.ID,
		},
	})
	return models.RequestStatusApproved, nil
}

// reject flips the request to rejected exactly once and notifies members.
func (s *ChangeRequestService) reject(ctx context.Context, request *models.ChangeRequest, resolution string, memberIDs []string) (bool, error) {
	resolved, err := s.requests.MarkResolved(ctx, nil, request.ID, models.RequestStatusRejected, resolution)
	if err != nil {
		return false, err
	}
	if !resolved {
		return false, nil
	}
	s.notifier.Publish(ctx, models.Event{
		Type:       models.EventChangeRejected,
		Recipients: memberIDs,
		Payload: map[string]any{
			"request_id": request.ID,
			"group_id":   request.GroupID,
			"resolution": resolution,
		},
	})
	return true, nil
}

func (s *ChangeRequestService) expire(ctx context.Context, request *models.ChangeRequest) {
	memberIDs, err := s.members.ListApprovedMemberIDs(ctx, request.GroupID)
	if err != nil {
		s.logger.Sugar().Warnw("failed to list members while expiring request", "request_id", request.ID, "error", err)
		memberIDs = nil
	}
	if _, err := s.reject(ctx, request, ResolutionExpired, memberIDs); err != nil {
		s.logger.Sugar().Warnw("failed to expire change request", "request_id", request.ID, "error", err)
	}
}

// validateProposal checks the proposed interval against every approved
// member's hard constraints and committed blocks, ignoring their copies of
// the block being changed.
func (s *ChangeRequestService) validateProposal(ctx context.Context, block *models.GroupPlanBlock, day int, proposed Interval, memberIDs []string) *Rejection {
	candidate := BlockCandidate{
		CourseID: block.CourseID,
		Kind:     models.BlockKindGroup,
		Day:      day,
		Interval: proposed,
	}

	constraintsByUser, err := s.constraints.ListForUsersWeek(ctx, memberIDs, block.WeekStart)
	if err != nil {
		return &Rejection{Code: RejectHardConstraint, Message: "failed to load member constraints"}
	}
	for _, userID := range memberIDs {
		memberBlocks, err := s.blocks.ListByUserWeek(ctx, userID, block.WeekStart)
		if err != nil {
			return &Rejection{Code: RejectBlockOverlap, Message: "failed to load member blocks"}
		}
		others := memberBlocks[:0:0]
		for _, memberBlock := range memberBlocks {
			if memberBlock.GroupBlockID != nil && *memberBlock.GroupBlockID == block.ID {
				continue
			}
			others = append(others, memberBlock)
		}
		if rejection := s.validator.Check(candidate, constraintsByUser[userID], candidatesFromBlocks(others)); rejection != nil {
			return &Rejection{
				Code:    rejection.Code,
				Message: fmt.Sprintf("member %s: %s", userID, rejection.Message),
			}
		}
	}
	return nil
}

func (s *ChangeRequestService) voteResponse(ctx context.Context, requestID, status, resolution string, memberIDs []string) (*dto.VoteResponse, error) {
	votes, err := s.requests.ListVotes(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &dto.VoteResponse{
		RequestID:  requestID,
		Status:     status,
		Resolution: resolution,
		Votes:      len(votes),
		Eligible:   len(memberIDs),
	}, nil
}

func (s *ChangeRequestService) lockFor(requestID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(requestID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func without(items []string, target string) []string {
	result := make([]string, 0, len(items))
	for _, item := range items {
		if item != target {
			result = append(result, item)
		}
	}
	return result
}
