package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/contacthub/contacthub-api/internal/domain"
)

const sessionCSV = "First Name,Last Name,Email,Phone\n" +
	"Jane,Doe,jane@example.com,555-010-0100\n" +
	"Bob,Lee,bob@example.com,555-010-0101\n"

type sessionFixture struct {
	svc      *ImportSessionService
	contacts *memoryContactRepo
	fields   *memoryFieldRepo
	users    *memoryUserRepo
	storage  *memoryStorage
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	contacts := newMemoryContactRepo()
	fieldsRepo := newMemoryFieldRepo()
	fieldService := NewFieldService(fieldsRepo)
	if err := fieldService.EnsureCoreFields(context.Background()); err != nil {
		t.Fatalf("seed core fields: %v", err)
	}
	users := &memoryUserRepo{}
	importer := NewContactImportService(contacts, NewDuplicateResolver(contacts))
	storage := &memoryStorage{}

	svc := NewImportSessionService(fieldService, users, importer, storage, ImportSessionConfig{
		Bucket: "contacthub-imports",
	})
	return &sessionFixture{svc: svc, contacts: contacts, fields: fieldsRepo, users: users, storage: storage}
}

func (f *sessionFixture) uploadAndAnalyze(t *testing.T) *ImportSession {
	t.Helper()
	ctx := context.Background()
	session, err := f.svc.Upload(ctx, uuid.New(), "contacts.csv", []byte(sessionCSV))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	analyzed, err := f.svc.Analyze(ctx, session.ID)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	return analyzed
}

func TestUploadOpensSessionAtDetection(t *testing.T) {
	f := newSessionFixture(t)
	session, err := f.svc.Upload(context.Background(), uuid.New(), "contacts.csv", []byte(sessionCSV))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if session.Step != domain.ImportStepDetection {
		t.Fatalf("expected detection step, got %s", session.Step)
	}
	if session.Total != 2 {
		t.Fatalf("expected 2 rows, got %d", session.Total)
	}
	if session.FileKey == "" || !strings.HasPrefix(session.FileKey, "contacts/imports/") {
		t.Fatalf("expected upload retained in object storage, got %q", session.FileKey)
	}
	if len(f.storage.uploads) != 1 {
		t.Fatalf("expected one retained object, got %d", len(f.storage.uploads))
	}
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Upload(context.Background(), uuid.New(), "contacts.txt", []byte("x"))
	if !errors.Is(err, ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
}

func TestUploadSurvivesStorageOutage(t *testing.T) {
	f := newSessionFixture(t)
	f.storage.err = errors.New("minio down")

	session, err := f.svc.Upload(context.Background(), uuid.New(), "contacts.csv", []byte(sessionCSV))
	if err != nil {
		t.Fatalf("expected upload to proceed without retention, got %v", err)
	}
	if session.FileKey != "" {
		t.Fatalf("expected empty file key after retention failure, got %q", session.FileKey)
	}
}

func TestAnalyzeMovesToMapping(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	got, err := f.svc.Get(session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Step != domain.ImportStepMapping {
		t.Fatalf("expected mapping step, got %s", got.Step)
	}
	if got.Mappings == nil || len(got.Mappings.Mappings()) != 4 {
		t.Fatalf("expected 4 mappings")
	}
}

func TestAnalyzeFallsBackWhenSnapshotUnavailable(t *testing.T) {
	f := newSessionFixture(t)
	session, err := f.svc.Upload(context.Background(), uuid.New(), "contacts.csv", []byte(sessionCSV))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	f.fields.listErr = errors.New("db down")
	analyzed, err := f.svc.Analyze(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Analyze must not fail on snapshot outage, got %v", err)
	}

	for _, m := range analyzed.Mappings.Mappings() {
		if m.ColumnName == "First Name" {
			if m.SuggestedField != domain.FieldNameFirstName || m.Confidence != 60 {
				t.Fatalf("expected keyword fallback at 60, got %q at %d", m.SuggestedField, m.Confidence)
			}
			return
		}
	}
	t.Fatalf("no mapping for First Name")
}

func TestStepperFlowThroughSummary(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)
	ctx := context.Background()

	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("mapping -> smart_mapping: %v", err)
	}
	advanced, err := f.svc.Advance(session.ID)
	if err != nil {
		t.Fatalf("smart_mapping -> processing: %v", err)
	}
	if advanced.Step != domain.ImportStepProcessing {
		t.Fatalf("expected processing step, got %s", advanced.Step)
	}

	// Summary is only reachable through Run.
	if _, err := f.svc.Advance(session.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected advance into summary rejected, got %v", err)
	}

	got, runErr := f.svc.Run(ctx, session.ID)
	if runErr != nil {
		t.Fatalf("Run returned error: %v", runErr)
	}
	if got.Step != domain.ImportStepSummary {
		t.Fatalf("expected summary step, got %s", got.Step)
	}
	if got.Outcome == nil || got.Outcome.Imported != 2 {
		t.Fatalf("expected 2 imports, got %+v", got.Outcome)
	}
	if got.Processed != 2 || got.Total != 2 {
		t.Fatalf("expected progress 2/2, got %d/%d", got.Processed, got.Total)
	}

	// Summary is terminal.
	if _, err := f.svc.Back(session.ID, domain.ImportStepMapping); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected back out of summary rejected, got %v", err)
	}
}

func TestBackNavigation(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	got, err := f.svc.Back(session.ID, domain.ImportStepMapping)
	if err != nil {
		t.Fatalf("Back returned error: %v", err)
	}
	if got.Step != domain.ImportStepMapping {
		t.Fatalf("expected mapping step, got %s", got.Step)
	}

	// Forward jumps through Back are not allowed.
	if _, err := f.svc.Back(session.ID, domain.ImportStepProcessing); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected forward jump rejected, got %v", err)
	}
}

func TestRunRequiresProcessingStep(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	if _, err := f.svc.Run(context.Background(), session.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected run rejected outside processing, got %v", err)
	}
}

func TestAdvanceToProcessingRequiresResolvedMapping(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	// Unmap every column, leaving nothing resolved.
	for _, m := range session.Mappings.Mappings() {
		if err := f.svc.SetMapping(session.ID, m.ColumnName, ""); err != nil {
			t.Fatalf("SetMapping returned error: %v", err)
		}
	}

	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("mapping -> smart_mapping: %v", err)
	}
	if _, err := f.svc.Advance(session.ID); !errors.Is(err, ErrNoResolvedMapping) {
		t.Fatalf("expected ErrNoResolvedMapping, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	f := newSessionFixture(t)
	if _, err := f.svc.Get(uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	snap, err := f.svc.Get(session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	snap.Step = domain.ImportStepSummary
	if err := snap.Mappings.SetField("First Name", domain.FieldNameEmail); err != nil {
		t.Fatalf("SetField returned error: %v", err)
	}

	got, err := f.svc.Get(session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Step != domain.ImportStepMapping {
		t.Fatalf("expected live session untouched by snapshot edits, got step %s", got.Step)
	}
	for _, m := range got.Mappings.Mappings() {
		if m.ColumnName == "First Name" && m.SuggestedField != domain.FieldNameFirstName {
			t.Fatalf("expected live mapping untouched, got %q", m.SuggestedField)
		}
	}
}

func TestGetIsSafeDuringRun(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	var b strings.Builder
	b.WriteString("First Name,Last Name,Email,Phone\n")
	for i := 0; i < 250; i++ {
		fmt.Fprintf(&b, "Jane%d,Doe,jane%d@example.com,555-010-%04d\n", i, i, i)
	}
	session, err := f.svc.Upload(ctx, uuid.New(), "contacts.csv", []byte(b.String()))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if _, err := f.svc.Analyze(ctx, session.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	// Poll the session the way a progress endpoint would while the
	// pipeline mutates it.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap, err := f.svc.Get(session.ID)
			if err != nil {
				t.Errorf("Get returned error mid-run: %v", err)
				return
			}
			if snap.Processed > snap.Total {
				t.Errorf("processed %d exceeds total %d", snap.Processed, snap.Total)
				return
			}
		}
	}()

	got, err := f.svc.Run(ctx, session.ID)
	close(stop)
	<-done
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got.Step != domain.ImportStepSummary || got.Processed != 250 {
		t.Fatalf("expected completed run, got step %s processed %d", got.Step, got.Processed)
	}
}

func TestRunSurvivesUserSnapshotOutage(t *testing.T) {
	f := newSessionFixture(t)
	session := f.uploadAndAnalyze(t)

	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if _, err := f.svc.Advance(session.ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}

	f.users.listErr = errors.New("db down")
	got, err := f.svc.Run(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("expected run to proceed without agent resolution, got %v", err)
	}
	if got.Step != domain.ImportStepSummary || got.Outcome == nil || got.Outcome.Imported != 2 {
		t.Fatalf("expected 2 imports at summary, got %+v", got.Outcome)
	}
}

func TestSessionCustomFieldCreation(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	csvData := "First Name,Last Name,Email,Phone,Favorite Pizza\n" +
		"Jane,Doe,jane@example.com,555-010-0100,margherita\n"
	session, err := f.svc.Upload(ctx, uuid.New(), "contacts.csv", []byte(csvData))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if _, err := f.svc.Analyze(ctx, session.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	created, err := f.svc.CreateCustomField(ctx, session.ID, "Favorite Pizza", domain.FieldDefinition{
		FieldName: "favoritepizza",
		Label:     "Favorite Pizza",
		Type:      domain.FieldTypeText,
	})
	if err != nil {
		t.Fatalf("CreateCustomField returned error: %v", err)
	}
	if created.FieldName != "favoritepizza" {
		t.Fatalf("unexpected field %+v", created)
	}

	got, err := f.svc.Get(session.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	for _, m := range got.Mappings.Mappings() {
		if m.ColumnName == "Favorite Pizza" {
			if m.SuggestedField != "favoritepizza" {
				t.Fatalf("expected column bound to new field, got %q", m.SuggestedField)
			}
			return
		}
	}
	t.Fatalf("no mapping for Favorite Pizza")
}
