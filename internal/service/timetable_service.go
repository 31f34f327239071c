package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/loader"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/timetable"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
)

type blockReader interface {
	ListByTerm(ctx context.Context, termID string) ([]string, error)
}

type courseReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Course, error)
}

type studentReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Student, error)
	ListRequestsByTerm(ctx context.Context, termID string) ([]models.CourseRequest, error)
	Create(ctx context.Context, student *models.Student) error
	CreateRequests(ctx context.Context, tx *sqlx.Tx, requests []models.CourseRequest) error
	DeleteRequestsByTerm(ctx context.Context, termID string) error
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
}

type lecturerReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Lecturer, error)
	ListQualifications(ctx context.Context, termID string) ([]models.LecturerQualification, error)
}

type roomReader interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Room, error)
}

// TimetableService orchestrates loading persisted inputs, running the
// scheduling engine, caching the result as a reviewable proposal, and
// committing an approved proposal to storage.
type TimetableService struct {
	blocks    blockReader
	courses   courseReader
	students  studentReader
	lecturers lecturerReader
	rooms     roomReader
	runs      runStore
	engine    *timetable.Engine
	validator *validator.Validate
	logger    *zap.Logger
	store     *proposalStore
}

// runStore narrows *repository.RunRepository to what this service needs,
// matching its method signatures exactly (sqlx.ExtContext/*sqlx.Tx) so the
// concrete repository satisfies it without adapter code.
type runStore interface {
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	Create(ctx context.Context, exec sqlx.ExtContext, run *models.Run) error
	CreateSections(ctx context.Context, exec sqlx.ExtContext, sections []models.RunSection) error
	CreateStudentAssignments(ctx context.Context, exec sqlx.ExtContext, assignments []models.RunStudentAssignment) error
	ListByTerm(ctx context.Context, termID string) ([]models.Run, error)
	Get(ctx context.Context, id string) (*models.Run, error)
	ListSections(ctx context.Context, runID string) ([]models.RunSection, error)
}

// TimetableServiceConfig governs proposal lifetime and caching backend.
type TimetableServiceConfig struct {
	ProposalTTL time.Duration
	// Cache backs the proposal store with Redis when enabled; a nil or
	// disabled CacheService falls back to the in-process TTL map.
	Cache *CacheService
}

// NewTimetableService wires the scheduling orchestration layer.
func NewTimetableService(
	blocks blockReader,
	courses courseReader,
	students studentReader,
	lecturers lecturerReader,
	rooms roomReader,
	runs runStore,
	engine *timetable.Engine,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = timetable.NewEngine()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &TimetableService{
		blocks:    blocks,
		courses:   courses,
		students:  students,
		lecturers: lecturers,
		rooms:     rooms,
		runs:      runs,
		engine:    engine,
		validator: validate,
		logger:    logger,
		store:     newProposalStore(cfg.ProposalTTL, cfg.Cache),
	}
}

// --- Proposal cache ---

type scheduleProposal struct {
	ProposalID  string
	TermID      string
	Result      *timetable.Result
	RequestedAt time.Time
}

const proposalCacheKeyPrefix = "schedule:proposal:"

// proposalStore caches not-yet-committed schedule proposals. When backed
// by a CacheService with caching enabled it writes through to Redis with
// a TTL; otherwise it falls back to an in-process map guarded by a mutex,
// checking expiry lazily on Get.
type proposalStore struct {
	ttl   time.Duration
	cache *CacheService
	mu    sync.RWMutex
	items map[string]scheduleProposal
}

func newProposalStore(ttl time.Duration, cache *CacheService) *proposalStore {
	return &proposalStore{ttl: ttl, cache: cache, items: make(map[string]scheduleProposal)}
}

func (s *proposalStore) Save(ctx context.Context, p scheduleProposal) {
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, proposalCacheKeyPrefix+p.ProposalID, p, s.ttl); err == nil {
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ProposalID] = p
}

func (s *proposalStore) Get(ctx context.Context, id string) (scheduleProposal, bool) {
	if s.cache.Enabled() {
		var p scheduleProposal
		hit, err := s.cache.Get(ctx, proposalCacheKeyPrefix+id, &p)
		if err == nil && hit {
			return p, true
		}
		return scheduleProposal{}, false
	}
	s.mu.RLock()
	p, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return scheduleProposal{}, false
	}
	if time.Since(p.RequestedAt) > s.ttl {
		s.Delete(ctx, id)
		return scheduleProposal{}, false
	}
	return p, true
}

func (s *proposalStore) Delete(ctx context.Context, id string) {
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, proposalCacheKeyPrefix+id)
		return
	}
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Generate loads a term's persisted catalog/roster/requests, runs the
// scheduling engine, caches the outcome as a proposal, and returns it.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateRunRequest) (*dto.GenerateRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	model, err := s.loadInputModel(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Schedule(ctx, *model)
	if err != nil {
		var engineErr *timetable.Error
		if errors.As(err, &engineErr) {
			switch engineErr.Kind {
			case timetable.KindInputInvariantViolation:
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, engineErr.Message)
			default:
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, engineErr.Message)
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduling engine failed")
	}

	proposal := scheduleProposal{
		ProposalID:  uuid.NewString(),
		TermID:      req.TermID,
		Result:      result,
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(ctx, proposal)

	return proposalResponse(proposal), nil
}

// GetProposal fetches a cached (not yet committed) proposal.
func (s *TimetableService) GetProposal(ctx context.Context, proposalID string) (*dto.GenerateRunResponse, error) {
	proposal, ok := s.store.Get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return proposalResponse(proposal), nil
}

// Commit persists a cached proposal's schedule as a COMMITTED run.
func (s *TimetableService) Commit(ctx context.Context, req dto.CommitRunRequest) (*dto.CommitRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commit payload")
	}
	proposal, ok := s.store.Get(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}

	metaPayload := map[string]any{
		"status":      proposal.Result.Status,
		"warnings":    proposal.Result.Warnings,
		"generatedAt": proposal.RequestedAt,
	}
	metaBytes, err := json.Marshal(metaPayload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run metadata")
	}

	run := &models.Run{
		TermID:       proposal.TermID,
		Status:       models.RunStatusCommitted,
		EngineStatus: string(proposal.Result.Status),
		Objective:    proposal.Result.Objective,
		Meta:         types.JSONText(metaBytes),
	}

	tx, err := s.runs.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.runs.Create(ctx, tx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create run")
	}

	sections := make([]models.RunSection, 0)
	for code, blocks := range proposal.Result.Schedule.CourseBlocks {
		for _, block := range blocks {
			room := proposal.Result.Schedule.CourseRooms[code][block]
			sections = append(sections, models.RunSection{
				RunID:      run.ID,
				CourseCode: code,
				Block:      string(block),
				RoomNumber: room,
			})
		}
	}
	if err = s.runs.CreateSections(ctx, tx, sections); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist run sections")
	}

	assignments := make([]models.RunStudentAssignment, 0)
	for studentID, blocks := range proposal.Result.Schedule.StudentSchedules {
		for block, code := range blocks {
			assignments = append(assignments, models.RunStudentAssignment{
				RunID:      run.ID,
				StudentID:  studentID,
				Block:      string(block),
				CourseCode: code,
			})
		}
	}
	if err = s.runs.CreateStudentAssignments(ctx, tx, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist run student assignments")
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit run transaction")
	}

	s.store.Delete(ctx, req.ProposalID)
	return &dto.CommitRunResponse{RunID: run.ID}, nil
}

// List returns runs in a term, most recent first.
func (s *TimetableService) List(ctx context.Context, query dto.RunQuery) ([]models.Run, error) {
	if query.TermID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	runs, err := s.runs.ListByTerm(ctx, query.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list runs")
	}
	return runs, nil
}

// Analysis recomputes resolution statistics for a persisted run by
// re-hydrating its term's students/requests and the committed sections.
func (s *TimetableService) Analysis(ctx context.Context, runID string) (*dto.RunAnalysisResponse, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run")
	}

	model, err := s.loadInputModel(ctx, run.TermID)
	if err != nil {
		return nil, err
	}
	demand := timetable.BuildDemandIndex(*model)

	sections, err := s.runs.ListSections(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run sections")
	}
	schedule := timetable.NewSchedule()
	for _, sec := range sections {
		block := timetable.Block(sec.Block)
		schedule.CourseBlocks[sec.CourseCode] = append(schedule.CourseBlocks[sec.CourseCode], block)
		if schedule.CourseRooms[sec.CourseCode] == nil {
			schedule.CourseRooms[sec.CourseCode] = map[timetable.Block]string{}
		}
		schedule.CourseRooms[sec.CourseCode][block] = sec.RoomNumber
	}

	analysis := timetable.Analyze(*model, schedule, demand.UnknownCodes)
	return analysisResponse(runID, analysis), nil
}

// Sections returns a run's persisted (course, block, room) placements, for
// export rendering.
func (s *TimetableService) Sections(ctx context.Context, runID string) ([]models.RunSection, error) {
	sections, err := s.runs.ListSections(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load run sections")
	}
	return sections, nil
}

// Import bulk-replaces a term's student course requests from a CSV feed.
// Rows referencing a course code absent from the term's catalog are
// skipped and reported rather than failing the whole import; students not
// already on roster are created from the row's year column.
func (s *TimetableService) Import(ctx context.Context, termID string, r io.Reader) (*dto.ImportRequestsResponse, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	blocks, err := s.blocks.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term blocks")
	}
	if len(blocks) == 0 {
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "term has no configured blocks")
	}

	rows, skipped, err := loader.ParseStudentRequests(r)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to parse student requests")
	}
	rowsRead := len(rows) + len(skipped)

	courses, err := s.courses.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	knownCourses := make(map[string]struct{}, len(courses))
	for _, c := range courses {
		knownCourses[c.Code] = struct{}{}
	}

	existing, err := s.students.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	onRoster := make(map[string]bool, len(existing))
	for _, st := range existing {
		onRoster[st.ID] = true
	}

	requests := make([]models.CourseRequest, 0, len(rows))
	seenNew := make(map[string]bool)
	for _, row := range rows {
		if _, ok := knownCourses[row.CourseCode]; !ok {
			skipped = append(skipped, fmt.Sprintf("student %s: unknown course %s", row.StudentID, row.CourseCode))
			continue
		}
		if !onRoster[row.StudentID] && !seenNew[row.StudentID] {
			seenNew[row.StudentID] = true
			if err := s.students.Create(ctx, &models.Student{ID: row.StudentID, TermID: termID, Year: row.Year, Active: true}); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student from import")
			}
			onRoster[row.StudentID] = true
		}
		requests = append(requests, models.CourseRequest{
			TermID:     termID,
			StudentID:  row.StudentID,
			CourseCode: row.CourseCode,
			Priority:   row.Priority,
		})
	}

	if err := s.students.DeleteRequestsByTerm(ctx, termID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear existing requests")
	}

	tx, err := s.students.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.students.CreateRequests(ctx, tx, requests); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import course requests")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit import transaction")
	}

	return &dto.ImportRequestsResponse{
		RowsRead:     rowsRead,
		RowsImported: len(requests),
		SkippedRows:  skipped,
	}, nil
}

func analysisResponse(runID string, a *timetable.Analysis) *dto.RunAnalysisResponse {
	byPriority := make(map[string]dto.PriorityStatsDTO, len(a.ByPriority))
	for k, v := range a.ByPriority {
		byPriority[k] = dto.PriorityStatsDTO{Total: v.Total, Resolved: v.Resolved, Percentage: v.Percentage}
	}
	byCourse := make([]dto.CourseStatsDTO, 0, len(a.CoursesByRateDescending))
	for _, code := range a.CoursesByRateDescending {
		cs := a.ByCourse[code]
		byCourse = append(byCourse, dto.CourseStatsDTO{
			Code: code, Total: cs.Total, Resolved: cs.Resolved, Unresolved: cs.Unresolved, Rate: cs.Rate,
		})
	}
	return &dto.RunAnalysisResponse{
		RunID:            runID,
		TotalRequests:    a.TotalRequests,
		ResolvedRequests: a.ResolvedRequests,
		UnresolvedCount:  a.UnresolvedRequests,
		ByPriority:       byPriority,
		ByCourse:         byCourse,
	}
}

func proposalResponse(p scheduleProposal) *dto.GenerateRunResponse {
	sections := make([]dto.ProposalSection, 0)
	for code, blocks := range p.Result.Schedule.CourseBlocks {
		for _, block := range blocks {
			sections = append(sections, dto.ProposalSection{
				CourseCode: code,
				Block:      string(block),
				RoomNumber: p.Result.Schedule.CourseRooms[code][block],
			})
		}
	}
	warnings := make([]dto.ProposalWarning, 0, len(p.Result.Warnings))
	for _, w := range p.Result.Warnings {
		warnings = append(warnings, dto.ProposalWarning{Kind: string(w.Kind), Message: w.Message})
	}
	studentLoad := 0
	for _, blocks := range p.Result.Schedule.StudentSchedules {
		studentLoad += len(blocks)
	}
	return &dto.GenerateRunResponse{
		ProposalID:  p.ProposalID,
		TermID:      p.TermID,
		Status:      string(p.Result.Status),
		Objective:   p.Result.Objective,
		Warnings:    warnings,
		Sections:    sections,
		StudentLoad: studentLoad,
	}
}

// loadInputModel hydrates a pure timetable.InputModel from the repository
// layer for one term.
func (s *TimetableService) loadInputModel(ctx context.Context, termID string) (*timetable.InputModel, error) {
	blocks, err := s.blocks.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term blocks")
	}
	courses, err := s.courses.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	students, err := s.students.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	requests, err := s.students.ListRequestsByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course requests")
	}
	lecturers, err := s.lecturers.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturers")
	}
	qualifications, err := s.lecturers.ListQualifications(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer qualifications")
	}
	rooms, err := s.rooms.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}

	blockTags := make([]timetable.Block, 0, len(blocks))
	for _, b := range blocks {
		blockTags = append(blockTags, timetable.Block(b))
	}

	engineCourses := make([]timetable.Course, 0, len(courses))
	for _, c := range courses {
		engineCourses = append(engineCourses, timetable.Course{
			Code:            c.Code,
			Title:           c.Title,
			Credits:         c.Credits,
			Department:      c.Department,
			Length:          c.Length,
			MinSize:         c.MinSize,
			TargetSize:      c.TargetSize,
			MaxSize:         c.MaxSize,
			Sections:        c.Sections,
			AvailableBlocks: toBlocks(c.AvailableBlocks),
			ForbiddenBlocks: toBlocks(c.ForbiddenBlocks),
		})
	}

	byStudent := make(map[string]*timetable.Student, len(students))
	engineStudents := make([]timetable.Student, len(students))
	for i, st := range students {
		engineStudents[i] = timetable.Student{ID: st.ID, Year: st.Year}
		byStudent[st.ID] = &engineStudents[i]
	}
	for _, req := range requests {
		st, ok := byStudent[req.StudentID]
		if !ok {
			continue
		}
		switch timetable.NormalizePriority(req.Priority) {
		case "required":
			st.Required = append(st.Required, req.CourseCode)
		case "requested":
			st.Requested = append(st.Requested, req.CourseCode)
		case "recommended":
			st.Recommended = append(st.Recommended, req.CourseCode)
		}
	}

	qualificationsByLecturer := make(map[string][]string, len(lecturers))
	for _, q := range qualifications {
		qualificationsByLecturer[q.LecturerID] = append(qualificationsByLecturer[q.LecturerID], q.CourseCode)
	}
	engineLecturers := make([]timetable.Lecturer, 0, len(lecturers))
	for _, l := range lecturers {
		engineLecturers = append(engineLecturers, timetable.Lecturer{
			ID: l.ID, Name: l.FullName, Department: l.Department,
			Courses: qualificationsByLecturer[l.ID],
		})
	}

	engineRooms := make([]timetable.Room, 0, len(rooms))
	for _, r := range rooms {
		engineRooms = append(engineRooms, timetable.Room{
			Number: r.Number, Capacity: r.Capacity, Type: r.Type, Building: r.Building,
		})
	}

	return &timetable.InputModel{
		Blocks:    blockTags,
		Courses:   engineCourses,
		Students:  engineStudents,
		Lecturers: engineLecturers,
		Rooms:     engineRooms,
	}, nil
}

func toBlocks(raw []string) []timetable.Block {
	if len(raw) == 0 {
		return nil
	}
	out := make([]timetable.Block, 0, len(raw))
	for _, b := range raw {
		out = append(out, timetable.Block(b))
	}
	return out
}
