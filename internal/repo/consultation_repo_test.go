package repo

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
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustDoctor(t *testing.T, db *gorm.DB, chatID int64, approved, active bool) *domain.Doctor {
	t.Helper()
	d, err := CreateDoctor(context.Background(), db, chatID, "doc", fmt.Sprintf("Doctor %d", chatID), "")
	if err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if approved {
		if err := SetDoctorApproval(context.Background(), db, d.ID, true); err != nil {
			t.Fatalf("approve doctor: %v", err)
		}
	}
	if !active {
		if err := SetDoctorActive(context.Background(), db, d.ID, false); err != nil {
			t.Fatalf("deactivate doctor: %v", err)
		}
	}
	return d
}

func mustWaiting(t *testing.T, db *gorm.DB, clientID int64) *domain.ActiveConsultation {
	t.Helper()
	ac, err := CreateActiveConsultation(context.Background(), db, clientID, "alice", "Alice", "my cat has diarrhea for 2 days", nil)
	if err != nil {
		t.Fatalf("create active consultation: %v", err)
	}
	return ac
}

// ---------- claim ----------

func TestClaimActiveConsultation_FirstWins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d1 := mustDoctor(t, db, 100, true, true)
	d2 := mustDoctor(t, db, 101, true, true)
	ac := mustWaiting(t, db, 1)

	claimed, err := ClaimActiveConsultation(ctx, db, ac.ID, d1.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	claimed, err = ClaimActiveConsultation(ctx, db, ac.ID, d2.ID)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if claimed {
		t.Fatal("second claim must lose")
	}

	got, err := GetActiveConsultation(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ActiveStatusAssigned {
		t.Fatalf("status = %q, want assigned", got.Status)
	}
	if got.DoctorID == nil || *got.DoctorID != d1.ID {
		t.Fatalf("doctor_id = %v, want %d", got.DoctorID, d1.ID)
	}
}

func TestClaimActiveConsultation_DoctorHoldsOpenThread(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := mustDoctor(t, db, 100, true, true)
	first := mustWaiting(t, db, 1)
	second := mustWaiting(t, db, 2)

	claimed, err := ClaimActiveConsultation(ctx, db, first.ID, d.ID)
	if err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	// The second row is still waiting, but the update itself must refuse
	// a doctor who already holds a non-terminal thread.
	claimed, err = ClaimActiveConsultation(ctx, db, second.ID, d.ID)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if claimed {
		t.Fatal("busy doctor must not win a second thread")
	}

	got, err := GetActiveConsultation(ctx, db, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.ActiveStatusWaiting || got.DoctorID != nil {
		t.Fatalf("second thread must stay waiting and unassigned, got status=%q doctor=%v", got.Status, got.DoctorID)
	}

	// After the first thread completes the same doctor can claim again.
	if err := CompleteActiveConsultation(ctx, db, first.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	claimed, err = ClaimActiveConsultation(ctx, db, second.ID, d.ID)
	if err != nil || !claimed {
		t.Fatalf("claim after completion: claimed=%v err=%v", claimed, err)
	}
}

func TestClaimActiveConsultation_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ac := mustWaiting(t, db, 2)

	const n = 8
	doctors := make([]*domain.Doctor, n)
	for i := range doctors {
		doctors[i] = mustDoctor(t, db, int64(200+i), true, true)
	}

	var wg sync.WaitGroup
	wins := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i], errs[i] = ClaimActiveConsultation(ctx, db, ac.ID, doctors[i].ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	winner := -1
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("claim %d errored: %v", i, errs[i])
		}
		if wins[i] {
			winners++
			winner = i
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}

	got, err := GetActiveConsultation(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DoctorID == nil || *got.DoctorID != doctors[winner].ID {
		t.Fatalf("doctor_id = %v, want winner %d", got.DoctorID, doctors[winner].ID)
	}
}

func TestClaimActiveConsultation_NonWaiting(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := mustDoctor(t, db, 300, true, true)

	for _, status := range []string{domain.ActiveStatusAssigned, domain.ActiveStatusActive, domain.ActiveStatusCompleted} {
		ac := mustWaiting(t, db, 3)
		if err := db.Model(&domain.ActiveConsultation{}).Where("id = ?", ac.ID).Update("status", status).Error; err != nil {
			t.Fatalf("seed status %q: %v", status, err)
		}
		claimed, err := ClaimActiveConsultation(ctx, db, ac.ID, d.ID)
		if err != nil {
			t.Fatalf("claim on %q errored: %v", status, err)
		}
		if claimed {
			t.Fatalf("claim on %q must fail", status)
		}
	}
}

func TestClaimActiveConsultation_Missing(t *testing.T) {
	db := newTestDB(t)
	claimed, err := ClaimActiveConsultation(context.Background(), db, 9999, 1)
	if err != nil {
		t.Fatalf("claim errored: %v", err)
	}
	if claimed {
		t.Fatal("claim on missing row must fail")
	}
}

// ---------- lifecycle ----------

func TestPromoteAndComplete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := mustDoctor(t, db, 400, true, true)
	ac := mustWaiting(t, db, 4)

	if _, err := ClaimActiveConsultation(ctx, db, ac.ID, d.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := PromoteActiveConsultation(ctx, db, ac.ID); err != nil {
		t.Fatalf("promote: %v", err)
	}
	got, _ := GetActiveConsultation(ctx, db, ac.ID)
	if got.Status != domain.ActiveStatusActive {
		t.Fatalf("status = %q, want active", got.Status)
	}

	// Promoting again matches nothing and stays silent.
	if err := PromoteActiveConsultation(ctx, db, ac.ID); err != nil {
		t.Fatalf("re-promote: %v", err)
	}

	if err := CompleteActiveConsultation(ctx, db, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, _ = GetActiveConsultation(ctx, db, ac.ID)
	if got.Status != domain.ActiveStatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}

	// Completing a terminal thread reports ErrNotFound.
	if err := CompleteActiveConsultation(ctx, db, ac.ID); err != ErrNotFound {
		t.Fatalf("re-complete err = %v, want ErrNotFound", err)
	}
}

func TestFindOpenActiveByClient(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := FindOpenActiveByClient(ctx, db, 5); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	ac := mustWaiting(t, db, 5)
	got, err := FindOpenActiveByClient(ctx, db, 5)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != ac.ID {
		t.Fatalf("id = %d, want %d", got.ID, ac.ID)
	}

	if err := CompleteActiveConsultation(ctx, db, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := FindOpenActiveByClient(ctx, db, 5); err != ErrNotFound {
		t.Fatalf("after complete err = %v, want ErrNotFound", err)
	}
}

func TestFindCurrentByDoctor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d := mustDoctor(t, db, 500, true, true)

	if _, err := FindCurrentByDoctor(ctx, db, d.ID); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	ac := mustWaiting(t, db, 6)
	if _, err := ClaimActiveConsultation(ctx, db, ac.ID, d.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	got, err := FindCurrentByDoctor(ctx, db, d.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != ac.ID {
		t.Fatalf("id = %d, want %d", got.ID, ac.ID)
	}
}

func TestReassignActiveDoctor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d1 := mustDoctor(t, db, 600, true, true)
	d2 := mustDoctor(t, db, 601, true, true)
	ac := mustWaiting(t, db, 7)

	if _, err := ClaimActiveConsultation(ctx, db, ac.ID, d1.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := ReassignActiveDoctor(ctx, db, ac.ID, d2.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	got, _ := GetActiveConsultation(ctx, db, ac.ID)
	if got.DoctorID == nil || *got.DoctorID != d2.ID {
		t.Fatalf("doctor_id = %v, want %d", got.DoctorID, d2.ID)
	}
	if got.Status != domain.ActiveStatusAssigned {
		t.Fatalf("status = %q, reassignment must not change status", got.Status)
	}

	if err := ReassignActiveDoctor(ctx, db, 9999, d2.ID); err != ErrNotFound {
		t.Fatalf("reassign missing err = %v, want ErrNotFound", err)
	}
}
