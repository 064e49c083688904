package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
	"github.com/contacthub/contacthub-api/internal/repository/ports"
)

var (
	ErrSessionNotFound   = errors.New("import session not found")
	ErrInvalidUpload     = errors.New("invalid upload")
	ErrIllegalTransition = errors.New("illegal step transition")
	ErrNotAnalyzed       = errors.New("session has no mappings yet")
)

// ImportSession is the ephemeral per-upload state driving the stepper flow.
// Sessions live in memory for the lifetime of one import.
type ImportSession struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Step      domain.ImportStep
	File      *domain.ParsedFile
	FileKey   string
	Mappings  *MappingSet
	Outcome   *domain.ImportOutcome
	LastError string
	Processed int
	Total     int
	CreatedAt time.Time
}

type ImportSessionConfig struct {
	Bucket    string
	ParseOpts ParseOptions
}

// ImportSessionService owns the session map and enforces the legal step
// transitions: upload -> detection -> mapping -> smart_mapping ->
// processing -> summary, with backward navigation to any earlier step
// except out of summary.
type ImportSessionService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*ImportSession

	fields   *FieldService
	users    ports.UserRepository
	importer *ContactImportService
	storage  ports.ObjectStorage
	bucket   string
	opts     ParseOptions
	now      func() time.Time
}

func NewImportSessionService(fields *FieldService, users ports.UserRepository, importer *ContactImportService, storage ports.ObjectStorage, cfg ImportSessionConfig) *ImportSessionService {
	opts := cfg.ParseOpts
	if opts.MaxRows <= 0 {
		opts = DefaultParseOptions()
	}
	return &ImportSessionService{
		sessions: make(map[uuid.UUID]*ImportSession),
		fields:   fields,
		users:    users,
		importer: importer,
		storage:  storage,
		bucket:   cfg.Bucket,
		opts:     opts,
		now:      time.Now,
	}
}

// Upload validates and parses the file, retains the original bytes in object
// storage when configured, and opens a session at the detection step.
func (s *ImportSessionService) Upload(ctx context.Context, ownerID uuid.UUID, fileName string, contents []byte) (*ImportSession, error) {
	if v := ValidateUpload(fileName, int64(len(contents))); !v.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUpload, v.Error)
	}
	parsed, err := ParseTable(fileName, contents, s.opts)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	objectName := buildObjectName(id, fileName)
	if s.storage != nil && s.bucket != "" {
		if _, err := s.storage.Upload(ctx, s.bucket, objectName, "application/octet-stream", bytes.NewReader(contents), int64(len(contents))); err != nil {
			log.Printf("import %s: retain upload: %v", id, err)
			objectName = ""
		}
	} else {
		objectName = ""
	}

	session := &ImportSession{
		ID:        id,
		OwnerID:   ownerID,
		Step:      domain.ImportStepDetection,
		File:      parsed,
		FileKey:   objectName,
		Total:     len(parsed.Table.Rows),
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.sessions[id] = session
	snap := snapshotLocked(session)
	s.mu.Unlock()
	return snap, nil
}

// Get returns a point-in-time copy of the session. Handlers render the copy
// while a concurrent Run keeps mutating the live state under s.mu.
func (s *ImportSessionService) Get(id uuid.UUID) (*ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshotLocked(session), nil
}

// get returns the live session; mutating callers only.
func (s *ImportSessionService) get(id uuid.UUID) (*ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// snapshotLocked copies the mutable session fields. File and Outcome are
// shared: both are immutable once assigned. Caller holds s.mu.
func snapshotLocked(session *ImportSession) *ImportSession {
	snap := *session
	if session.Mappings != nil {
		snap.Mappings = session.Mappings.Clone()
	}
	return &snap
}

// Analyze runs the inference engine over the session's table and moves the
// session to the mapping step. If the field/user snapshot cannot be loaded
// the simplified keyword matcher takes over; inference never blocks the
// import flow.
func (s *ImportSessionService) Analyze(ctx context.Context, id uuid.UUID) (*ImportSession, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}

	var mappings []domain.ColumnMapping
	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		log.Printf("import %s: inference snapshot unavailable, using keyword fallback: %v", id, err)
		mappings = FallbackAnalyze(session.File.Table.Headers, session.File.Table.Rows)
	} else {
		mappings = AnalyzeColumns(session.File.Table.Headers, session.File.Table.Rows, *snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session.Mappings = NewMappingSet(mappings)
	if session.Step == domain.ImportStepDetection {
		session.Step = domain.ImportStepMapping
	}
	return snapshotLocked(session), nil
}

func (s *ImportSessionService) SetMapping(id uuid.UUID, columnName, fieldName string) error {
	session, err := s.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Mappings == nil {
		return ErrNotAnalyzed
	}
	return session.Mappings.SetField(columnName, fieldName)
}

func (s *ImportSessionService) ResetMapping(id uuid.UUID, columnName string) error {
	session, err := s.get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Mappings == nil {
		return ErrNotAnalyzed
	}
	return session.Mappings.Reset(columnName)
}

func (s *ImportSessionService) CreateCustomField(ctx context.Context, id uuid.UUID, columnName string, draft domain.FieldDefinition) (*domain.FieldDefinition, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.Mappings == nil {
		return nil, ErrNotAnalyzed
	}
	return session.Mappings.CreateCustomField(ctx, s.fields, columnName, draft)
}

// Advance moves one step forward. Processing additionally requires a parsed
// table and at least one resolved mapping; summary is only reachable through
// Run.
func (s *ImportSessionService) Advance(id uuid.UUID) (*ImportSession, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.NextStep(session.Step)
	if next == session.Step || !domain.CanAdvance(session.Step, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.Step, next)
	}
	if next == domain.ImportStepSummary {
		return nil, fmt.Errorf("%w: summary is reached by running the import", ErrIllegalTransition)
	}
	if next == domain.ImportStepProcessing {
		if session.File == nil || session.File.Table.IsEmpty() {
			return nil, fmt.Errorf("%w: no table parsed", ErrIllegalTransition)
		}
		if session.Mappings == nil || !session.Mappings.CanAdvance() {
			return nil, ErrNoResolvedMapping
		}
	}
	session.Step = next
	return snapshotLocked(session), nil
}

// Back navigates to an earlier step. Leaving summary is not allowed.
func (s *ImportSessionService) Back(id uuid.UUID, to domain.ImportStep) (*ImportSession, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.CanGoBack(session.Step, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.Step, to)
	}
	session.Step = to
	return snapshotLocked(session), nil
}

// Run executes the reconciliation pipeline. On success the session lands at
// summary; a pipeline failure records the error and holds the session at
// processing for a retry.
func (s *ImportSessionService) Run(ctx context.Context, id uuid.UUID) (*ImportSession, error) {
	session, err := s.get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if session.Step != domain.ImportStepProcessing {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: run requires the processing step", ErrIllegalTransition)
	}
	if session.Mappings == nil || !session.Mappings.CanAdvance() {
		s.mu.Unlock()
		return nil, ErrNoResolvedMapping
	}
	table := session.File.Table
	mappings := session.Mappings.Mappings()
	s.mu.Unlock()

	users, err := s.users.List(ctx)
	if err != nil {
		log.Printf("import %s: user snapshot unavailable, agent columns stay unresolved: %v", id, err)
		users = nil
	}

	outcome, runErr := s.importer.Run(ctx, table, mappings, users, func(processed, total int) {
		s.mu.Lock()
		session.Processed = processed
		session.Total = total
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	session.Outcome = outcome
	if runErr != nil {
		session.LastError = runErr.Error()
		return snapshotLocked(session), runErr
	}
	session.LastError = ""
	session.Step = domain.ImportStepSummary
	return snapshotLocked(session), nil
}

func (s *ImportSessionService) loadSnapshot(ctx context.Context) (*InferenceSnapshot, error) {
	fields, err := s.fields.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return &InferenceSnapshot{Fields: fields, Users: users}, nil
}

func buildObjectName(sessionID uuid.UUID, fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "upload"
	}
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	return fmt.Sprintf("contacts/imports/%s/%s", sessionID.String(), name)
}
