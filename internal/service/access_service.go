package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/quizmaster-api/internal/dto"
	"github.com/noah-isme/quizmaster-api/internal/models"
	"github.com/noah-isme/quizmaster-api/internal/observability"
	"github.com/noah-isme/quizmaster-api/internal/repository"
)

// NotificationPublisher delivers a notification to a single user.
type NotificationPublisher interface {
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
}

// StatsInvalidator drops cached dashboard figures after writes.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// AccessChecker decides whether a user may start a quiz.
type AccessChecker interface {
	CanStart(ctx context.Context, userID, quizID uint) (bool, error)
}

// AccessService owns quiz assignments and the access request workflow.
type AccessService interface {
	AccessChecker
	QuizAccess(ctx context.Context, userID, quizID uint) (dto.QuizAccessResponse, error)
	AccessibleQuizzes(ctx context.Context, userID uint) ([]dto.QuizAccessResponse, error)
	AssignmentsForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error)
	AllAssignments(ctx context.Context) ([]dto.AssignmentResponse, error)
	SetAssignment(ctx context.Context, payload dto.SetAssignmentRequest, actor ActivityActor) (dto.AssignmentResponse, error)
	BulkSetAssignments(ctx context.Context, payload dto.BulkAssignmentRequest, actor ActivityActor) ([]dto.AssignmentResponse, error)
	RequestAccess(ctx context.Context, userID uint, payload dto.AccessRequestCreateRequest) (dto.AccessRequestResponse, error)
	AccessRequests(ctx context.Context, req dto.AccessRequestListRequest) ([]dto.AccessRequestResponse, error)
	ResolveAccessRequest(ctx context.Context, requestID uint, payload dto.ResolveAccessRequestRequest, actor ActivityActor) (dto.AccessRequestResponse, error)
}

// AccessRepositories groups the stores the access service reads and writes.
type AccessRepositories struct {
	Users       repository.UserRepository
	Quizzes     repository.QuizRepository
	Assignments repository.QuizAssignmentRepository
	Requests    repository.AccessRequestRepository
}

type accessService struct {
	repos     AccessRepositories
	validator *validator.Validate
	activity  ActivityRecorder
	notifier  NotificationPublisher
	stats     StatsInvalidator
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewAccessService constructs the assignment and access request engine.
// activity, notifier and stats are optional.
func NewAccessService(repos AccessRepositories, validate *validator.Validate, activity ActivityRecorder, notifier NotificationPublisher, stats StatsInvalidator, logger zerolog.Logger) AccessService {
	return &accessService{
		repos:     repos,
		validator: validate,
		activity:  activity,
		notifier:  notifier,
		stats:     stats,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "access_service").Logger(),
		tracer:    observability.Tracer("service/access"),
		now:       time.Now,
	}
}

func (s *accessService) CanStart(ctx context.Context, userID, quizID uint) (bool, error) {
	quiz, err := s.quiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	return s.canStart(ctx, userID, quiz)
}

func (s *accessService) canStart(ctx context.Context, userID uint, quiz models.Quiz) (bool, error) {
	if quiz.IsPublic {
		return true, nil
	}

	assignment, err := s.repos.Assignments.Get(ctx, userID, quiz.ID)
	switch {
	case err == nil:
		if assignment.State().GrantsAccess() {
			return true, nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, storageError(err)
	}

	approved, err := s.repos.Requests.HasApproved(ctx, userID, quiz.ID)
	if err != nil {
		return false, storageError(err)
	}
	return approved, nil
}

func (s *accessService) QuizAccess(ctx context.Context, userID, quizID uint) (dto.QuizAccessResponse, error) {
	quiz, err := s.quiz(ctx, quizID)
	if err != nil {
		return dto.QuizAccessResponse{}, err
	}

	var assignment models.QuizAssignment
	found, err := s.repos.Assignments.Get(ctx, userID, quizID)
	switch {
	case err == nil:
		assignment = found
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.QuizAccessResponse{}, storageError(err)
	}

	requests, err := s.repos.Requests.List(ctx, repository.AccessRequestFilter{UserID: &userID, QuizID: &quizID})
	if err != nil {
		return dto.QuizAccessResponse{}, storageError(err)
	}

	return describeAccess(quiz, assignment, requests), nil
}

func (s *accessService) AccessibleQuizzes(ctx context.Context, userID uint) ([]dto.QuizAccessResponse, error) {
	quizzes, _, err := s.repos.Quizzes.List(ctx, repository.QuizFilter{})
	if err != nil {
		return nil, storageError(err)
	}

	assignments, err := s.repos.Assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	byQuiz := make(map[uint]models.QuizAssignment, len(assignments))
	for _, view := range assignments {
		byQuiz[view.QuizID] = view.QuizAssignment
	}

	requests, err := s.repos.Requests.List(ctx, repository.AccessRequestFilter{UserID: &userID})
	if err != nil {
		return nil, storageError(err)
	}
	requestsByQuiz := make(map[uint][]models.AccessRequestView)
	for _, request := range requests {
		requestsByQuiz[request.QuizID] = append(requestsByQuiz[request.QuizID], request)
	}

	out := make([]dto.QuizAccessResponse, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, describeAccess(quiz, byQuiz[quiz.ID], requestsByQuiz[quiz.ID]))
	}
	return out, nil
}

func (s *accessService) AssignmentsForUser(ctx context.Context, userID uint) ([]dto.AssignmentResponse, error) {
	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}

	views, err := s.repos.Assignments.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.NewAssignmentResponseSlice(views), nil
}

func (s *accessService) AllAssignments(ctx context.Context) ([]dto.AssignmentResponse, error) {
	views, err := s.repos.Assignments.List(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.NewAssignmentResponseSlice(views), nil
}

func (s *accessService) SetAssignment(ctx context.Context, payload dto.SetAssignmentRequest, actor ActivityActor) (dto.AssignmentResponse, error) {
	if !actor.IsAdmin() {
		return dto.AssignmentResponse{}, ErrAdminRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	state, err := models.AssignmentStateFromFlags(payload.Flags())
	if err != nil {
		return dto.AssignmentResponse{}, ErrAccessFlagsInvalid
	}

	if _, err := s.user(ctx, payload.UserID); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if _, err := s.quiz(ctx, payload.QuizID); err != nil {
		return dto.AssignmentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "access.set_assignment", trace.WithAttributes(
		attribute.Int64("access.user_id", int64(payload.UserID)),
		attribute.Int64("access.quiz_id", int64(payload.QuizID)),
		attribute.String("access.state", string(state)),
	))
	defer span.End()

	assignment := models.NewQuizAssignment(payload.UserID, payload.QuizID, state, actor.ID, s.now())
	if err := s.repos.Assignments.Upsert(ctx, &assignment); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_assignment_failed")
		return dto.AssignmentResponse{}, storageError(err)
	}

	view, err := s.repos.Assignments.GetView(ctx, payload.UserID, payload.QuizID)
	if err != nil {
		return dto.AssignmentResponse{}, storageError(err)
	}

	observability.AccessEvents().WithLabelValues("assignment_set").Inc()
	s.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "assignment.updated",
		EntityType: "quiz_assignment",
		EntityID:   &assignment.QuizID,
		Metadata: map[string]interface{}{
			"user_id":     assignment.UserID,
			"quiz_id":     assignment.QuizID,
			"is_assigned": assignment.IsAssigned,
			"has_access":  assignment.HasAccess,
		},
	})
	s.invalidateStats(ctx)

	s.logger.Info().
		Uint("user_id", assignment.UserID).
		Uint("quiz_id", assignment.QuizID).
		Str("state", string(state)).
		Msg("assignment updated")

	return dto.NewAssignmentResponse(view), nil
}

func (s *accessService) BulkSetAssignments(ctx context.Context, payload dto.BulkAssignmentRequest, actor ActivityActor) ([]dto.AssignmentResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}
	if _, err := s.user(ctx, payload.UserID); err != nil {
		return nil, err
	}

	now := s.now()
	items := make([]models.QuizAssignment, 0, len(payload.Assignments))
	positions := make(map[uint]int, len(payload.Assignments))
	for _, entry := range payload.Assignments {
		state, err := models.AssignmentStateFromFlags(entry.IsAssigned, entry.HasAccess)
		if err != nil {
			return nil, fmt.Errorf("quiz %d: %w", entry.QuizID, ErrAccessFlagsInvalid)
		}

		assignment := models.NewQuizAssignment(payload.UserID, entry.QuizID, state, actor.ID, now)
		if i, ok := positions[entry.QuizID]; ok {
			items[i] = assignment
			continue
		}
		positions[entry.QuizID] = len(items)
		items = append(items, assignment)
	}

	ctx, span := s.tracer.Start(ctx, "access.bulk_set_assignments", trace.WithAttributes(
		attribute.Int64("access.user_id", int64(payload.UserID)),
		attribute.Int("access.entries", len(items)),
	))
	defer span.End()

	if err := s.repos.Assignments.UpsertBatch(ctx, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk_upsert_failed")
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrQuizNotFound, err)
		}
		return nil, storageError(err)
	}

	views, err := s.repos.Assignments.ListByUser(ctx, payload.UserID)
	if err != nil {
		return nil, storageError(err)
	}

	quizIDs := make([]uint, 0, len(items))
	for _, item := range items {
		quizIDs = append(quizIDs, item.QuizID)
	}

	observability.AccessEvents().WithLabelValues("assignment_bulk_set").Inc()
	s.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "assignment.bulk_updated",
		EntityType: "user",
		EntityID:   &payload.UserID,
		Metadata: map[string]interface{}{
			"user_id":  payload.UserID,
			"quiz_ids": quizIDs,
			"count":    len(items),
		},
	})
	s.invalidateStats(ctx)

	s.logger.Info().Uint("user_id", payload.UserID).Int("count", len(items)).Msg("assignments bulk updated")

	return dto.NewAssignmentResponseSlice(views), nil
}

func (s *accessService) RequestAccess(ctx context.Context, userID uint, payload dto.AccessRequestCreateRequest) (dto.AccessRequestResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AccessRequestResponse{}, err
	}

	user, err := s.user(ctx, userID)
	if err != nil {
		return dto.AccessRequestResponse{}, err
	}
	quiz, err := s.quiz(ctx, payload.QuizID)
	if err != nil {
		return dto.AccessRequestResponse{}, err
	}
	if quiz.IsPublic {
		return dto.AccessRequestResponse{}, ErrPublicQuizRequest
	}

	granted, err := s.canStart(ctx, userID, quiz)
	if err != nil {
		return dto.AccessRequestResponse{}, err
	}
	if granted {
		return dto.AccessRequestResponse{}, ErrAccessAlreadyGranted
	}

	if _, err := s.repos.Requests.FindPending(ctx, userID, quiz.ID); err == nil {
		return dto.AccessRequestResponse{}, ErrPendingRequestExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AccessRequestResponse{}, storageError(err)
	}

	request := models.AccessRequest{
		UserID:      userID,
		QuizID:      quiz.ID,
		Message:     s.clean(payload.Message),
		Status:      models.AccessRequestPending,
		RequestedAt: s.now(),
	}
	if err := s.repos.Requests.Create(ctx, &request); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.AccessRequestResponse{}, ErrPendingRequestExists
		}
		return dto.AccessRequestResponse{}, storageError(err)
	}

	observability.AccessEvents().WithLabelValues("request_created").Inc()
	s.invalidateStats(ctx)

	s.logger.Info().
		Uint("request_id", request.ID).
		Uint("user_id", userID).
		Uint("quiz_id", quiz.ID).
		Msg("access requested")

	return dto.NewAccessRequestResponse(models.AccessRequestView{
		AccessRequest: request,
		Username:      user.Username,
		QuizTitle:     quiz.Title,
	}), nil
}

func (s *accessService) AccessRequests(ctx context.Context, req dto.AccessRequestListRequest) ([]dto.AccessRequestResponse, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	filter := repository.AccessRequestFilter{Status: req.Status}
	if req.UserID > 0 {
		filter.UserID = &req.UserID
	}
	if req.QuizID > 0 {
		filter.QuizID = &req.QuizID
	}

	views, err := s.repos.Requests.List(ctx, filter)
	if err != nil {
		return nil, storageError(err)
	}
	return dto.NewAccessRequestResponseSlice(views), nil
}

func (s *accessService) ResolveAccessRequest(ctx context.Context, requestID uint, payload dto.ResolveAccessRequestRequest, actor ActivityActor) (dto.AccessRequestResponse, error) {
	if !actor.IsAdmin() {
		return dto.AccessRequestResponse{}, ErrAdminRequired
	}
	payload.Status = strings.ToLower(strings.TrimSpace(payload.Status))
	if err := s.validator.Struct(payload); err != nil {
		return dto.AccessRequestResponse{}, err
	}

	now := s.now()
	resolution := repository.AccessResolution{
		Status:          payload.Status,
		ReviewedBy:      actor.ID,
		ReviewedAt:      now,
		ResponseMessage: s.clean(payload.ResponseMessage),
	}

	var grant *models.QuizAssignment
	if payload.Status == models.AccessRequestApproved {
		assignment := models.NewQuizAssignment(0, 0, models.AssignmentAssignedWithAccess, actor.ID, now)
		grant = &assignment
	}

	ctx, span := s.tracer.Start(ctx, "access.resolve_request", trace.WithAttributes(
		attribute.Int64("access.request_id", int64(requestID)),
		attribute.String("access.decision", payload.Status),
	))
	defer span.End()

	resolved, err := s.repos.Requests.Resolve(ctx, requestID, resolution, grant)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return dto.AccessRequestResponse{}, ErrAccessRequestNotFound
		case errors.Is(err, repository.ErrAccessRequestNotPending):
			return dto.AccessRequestResponse{}, ErrRequestNotPending
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "resolve_request_failed")
			return dto.AccessRequestResponse{}, storageError(err)
		}
	}

	view := models.AccessRequestView{AccessRequest: resolved}
	if user, err := s.repos.Users.GetByID(ctx, resolved.UserID); err == nil {
		view.Username = user.Username
	}
	if quiz, err := s.repos.Quizzes.GetByID(ctx, resolved.QuizID); err == nil {
		view.QuizTitle = quiz.Title
	}

	observability.AccessEvents().WithLabelValues("request_" + resolved.Status).Inc()
	s.record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "access_request." + resolved.Status,
		EntityType: "access_request",
		EntityID:   &resolved.ID,
		Metadata: map[string]interface{}{
			"user_id": resolved.UserID,
			"quiz_id": resolved.QuizID,
		},
	})
	s.notifyResolution(ctx, view)
	s.invalidateStats(ctx)

	s.logger.Info().
		Uint("request_id", resolved.ID).
		Str("status", resolved.Status).
		Uint("reviewed_by", actor.ID).
		Msg("access request resolved")

	return dto.NewAccessRequestResponse(view), nil
}

func describeAccess(quiz models.Quiz, assignment models.QuizAssignment, requests []models.AccessRequestView) dto.QuizAccessResponse {
	state := assignment.State()
	response := dto.QuizAccessResponse{
		QuizID:      quiz.ID,
		Title:       quiz.Title,
		Description: quiz.Description,
		IsPublic:    quiz.IsPublic,
		TimeLimit:   quiz.TimeLimit,
		IsAssigned:  assignment.IsAssigned,
		HasAccess:   assignment.HasAccess && assignment.IsAssigned,
		State:       string(state),
	}

	approved := false
	for _, request := range requests {
		if request.IsApproved() {
			approved = true
			break
		}
	}

	latestStatus := ""
	if len(requests) > 0 {
		latest := requests[0]
		id := latest.ID
		response.LatestRequestID = &id
		response.RequestStatus = latest.Status
		latestStatus = latest.Status
	}

	switch {
	case quiz.IsPublic:
		response.AccessStatus = dto.AccessStatusPublic
	case state.GrantsAccess() || approved:
		response.AccessStatus = dto.AccessStatusGranted
	case state == models.AssignmentAssignedNoAccess:
		response.AccessStatus = dto.AccessStatusAssignedNoAccess
	case latestStatus == models.AccessRequestPending:
		response.AccessStatus = dto.AccessStatusRequestPending
	case latestStatus == models.AccessRequestRejected:
		response.AccessStatus = dto.AccessStatusRequestRejected
	default:
		response.AccessStatus = dto.AccessStatusNotAssigned
	}
	response.CanStart = response.AccessStatus == dto.AccessStatusPublic || response.AccessStatus == dto.AccessStatusGranted

	return response
}

func (s *accessService) user(ctx context.Context, id uint) (models.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, storageError(err)
	}
	return user, nil
}

func (s *accessService) quiz(ctx context.Context, id uint) (models.Quiz, error) {
	quiz, err := s.repos.Quizzes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Quiz{}, ErrQuizNotFound
		}
		return models.Quiz{}, storageError(err)
	}
	return quiz, nil
}

func (s *accessService) clean(message string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(strings.TrimSpace(message)))
}

func (s *accessService) record(ctx context.Context, entry ActivityEntry) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

func (s *accessService) invalidateStats(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}

func (s *accessService) notifyResolution(ctx context.Context, request models.AccessRequestView) {
	if s.notifier == nil {
		return
	}

	title := request.QuizTitle
	if title == "" {
		title = fmt.Sprintf("quiz #%d", request.QuizID)
	}

	notificationType := models.NotificationAccessRejected
	message := fmt.Sprintf("Your access request for %s was rejected.", title)
	if request.IsApproved() {
		notificationType = models.NotificationAccessApproved
		message = fmt.Sprintf("Your access request for %s was approved. You can start the quiz now.", title)
	}
	if request.ResponseMessage != "" {
		message += " " + request.ResponseMessage
	}

	if _, err := s.notifier.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  request.UserID,
		Type:    notificationType,
		Message: message,
	}); err != nil {
		s.logger.Warn().Err(err).Uint("request_id", request.ID).Msg("failed to notify requester")
	}
}
