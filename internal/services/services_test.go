package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// ---------- shared test fixtures ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// sentMessage is one recorded outbound delivery.
type sentMessage struct {
	ChatID         int64
	Text           string
	MessageID      int
	ConsultationID uint
	Edited         bool
}

// fakeMessenger records every delivery and can be told to fail.
type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	Sent    []sentMessage
	Edits   []sentMessage
	FailFor map[int64]error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{FailFor: map[int64]error{}}
}

func (f *fakeMessenger) SendText(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[chatID]; ok {
		return 0, err
	}
	f.nextID++
	f.Sent = append(f.Sent, sentMessage{ChatID: chatID, Text: text, MessageID: f.nextID})
	return f.nextID, nil
}

func (f *fakeMessenger) SendClaimPrompt(_ context.Context, chatID int64, text string, consultationID uint) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[chatID]; ok {
		return 0, err
	}
	f.nextID++
	f.Sent = append(f.Sent, sentMessage{ChatID: chatID, Text: text, MessageID: f.nextID, ConsultationID: consultationID})
	return f.nextID, nil
}

func (f *fakeMessenger) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[chatID]; ok {
		return err
	}
	f.Edits = append(f.Edits, sentMessage{ChatID: chatID, Text: text, MessageID: messageID, Edited: true})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, chatID int64, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailFor[chatID]; ok {
		return err
	}
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.Sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// fakeAdvisor returns a canned answer or a canned error.
type fakeAdvisor struct {
	Answer string
	Err    error
	Calls  int
}

func (f *fakeAdvisor) GetAdvice(_ context.Context, _, _ string) (string, error) {
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	return f.Answer, nil
}

func mustDoctor(t *testing.T, db *gorm.DB, chatID int64, approved, active bool) *domain.Doctor {
	t.Helper()
	d, err := repo.CreateDoctor(context.Background(), db, chatID, "doc", fmt.Sprintf("Doctor %d", chatID), "")
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if approved {
		if err := repo.SetDoctorApproval(context.Background(), db, d.ID, true); err != nil {
			t.Fatalf("approve doctor: %v", err)
		}
	}
	if !active {
		if err := repo.SetDoctorActive(context.Background(), db, d.ID, false); err != nil {
			t.Fatalf("deactivate doctor: %v", err)
		}
	}
	d.IsApproved = approved
	d.IsActive = active
	return d
}

func newCoordinator(db *gorm.DB) (*Coordinator, *fakeMessenger, *fakeMessenger) {
	clientCh := newFakeMessenger()
	doctorCh := newFakeMessenger()
	return NewCoordinator(db, clientCh, doctorCh), clientCh, doctorCh
}
