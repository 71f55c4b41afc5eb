package repo

import (
	"context"
	"testing"
	"time"

	"github.com/vetsupport/go-vet-backend/internal/domain"
)

func TestUpsertUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u1, err := UpsertUser(ctx, db, 42, "alice", "Alice", "")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if u1.ID == 0 {
		t.Fatal("expected assigned id")
	}

	u2, err := UpsertUser(ctx, db, 42, "alice_renamed", "Alice", "Smith")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if u2.ID != u1.ID {
		t.Fatalf("id changed: %d -> %d", u1.ID, u2.ID)
	}
	if u2.Username != "alice_renamed" || u2.LastName != "Smith" {
		t.Fatalf("profile not refreshed: %+v", u2)
	}

	total, err := CountUsers(ctx, db)
	if err != nil || total != 1 {
		t.Fatalf("count = %d err = %v, want 1", total, err)
	}
}

func TestListEligibleDoctors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	d1 := mustDoctor(t, db, 10, true, true)   // approved + active
	_ = mustDoctor(t, db, 11, true, false)    // approved + inactive
	_ = mustDoctor(t, db, 12, false, true)    // unapproved + active

	docs, err := ListEligibleDoctors(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != d1.ID {
		t.Fatalf("eligible = %v, want only doctor %d", docs, d1.ID)
	}
}

func TestCreateDoctor_DuplicateChat(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateDoctor(ctx, db, 77, "d", "Dr. One", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := CreateDoctor(ctx, db, 77, "d", "Dr. Two", ""); err != ErrDuplicate {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestRegistrationSessionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := GetRegistrationSession(ctx, db, 9); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if err := SaveRegistrationSession(ctx, db, 9, domain.RegistrationStepName, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := SaveRegistrationSession(ctx, db, 9, domain.RegistrationStepPhoto, "Dr. House"); err != nil {
		t.Fatalf("advance: %v", err)
	}

	s, err := GetRegistrationSession(ctx, db, 9)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if s.Step != domain.RegistrationStepPhoto || s.FullName != "Dr. House" {
		t.Fatalf("session = %+v", s)
	}

	if err := DeleteRegistrationSession(ctx, db, 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetRegistrationSession(ctx, db, 9); err != ErrNotFound {
		t.Fatalf("after delete err = %v, want ErrNotFound", err)
	}
}

func TestNotificationClaimFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	d1 := mustDoctor(t, db, 20, true, true)
	d2 := mustDoctor(t, db, 21, true, true)
	ac := mustWaiting(t, db, 8)

	if _, err := CreateDoctorNotification(ctx, db, ac.ID, d1.ID, 1001); err != nil {
		t.Fatalf("notify d1: %v", err)
	}
	if _, err := CreateDoctorNotification(ctx, db, ac.ID, d2.ID, 1002); err != nil {
		t.Fatalf("notify d2: %v", err)
	}

	if err := MarkNotificationResponded(ctx, db, ac.ID, d1.ID); err != nil {
		t.Fatalf("mark d1: %v", err)
	}
	open, err := ListOpenNotifications(ctx, db, ac.ID, d1.ID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 || open[0].DoctorID != d2.ID {
		t.Fatalf("open = %v, want only d2", open)
	}

	if err := MarkAllNotificationsResponded(ctx, db, ac.ID); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	open, _ = ListOpenNotifications(ctx, db, ac.ID, 0)
	if len(open) != 0 {
		t.Fatalf("open after mirror = %v, want none", open)
	}
}

func TestConsultationMessageOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	ac := mustWaiting(t, db, 9)

	texts := []string{"first", "second", "third", "fourth"}
	for _, txt := range texts {
		if _, err := AppendConsultationMessage(ctx, db, ac.ID, domain.SenderClient, 9, "Alice", txt, 0); err != nil {
			t.Fatalf("append %q: %v", txt, err)
		}
	}

	msgs, err := ListConsultationMessages(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(texts) {
		t.Fatalf("len = %d, want %d", len(msgs), len(texts))
	}
	for i, m := range msgs {
		if m.MessageText != texts[i] {
			t.Fatalf("msgs[%d] = %q, want %q", i, m.MessageText, texts[i])
		}
		if i > 0 && m.SentAt.Before(msgs[i-1].SentAt) {
			t.Fatalf("sent_at not monotonic at index %d", i)
		}
	}

	total, err := CountConsultationMessages(ctx, db, ac.ID)
	if err != nil || total != int64(len(texts)) {
		t.Fatalf("count = %d err = %v", total, err)
	}
}

func TestVetCallWorkflow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	call, err := CreateVetCall(ctx, db, &domain.VetCall{
		Name:    "Bob",
		Phone:   "+7-999-123-45-67",
		Address: "Main st. 1",
		PetType: "cat",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if call.Status != domain.VetCallStatusPending {
		t.Fatalf("status = %q, want pending", call.Status)
	}

	if err := UpdateVetCallStatus(ctx, db, call.ID, domain.VetCallStatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, _ := GetVetCall(ctx, db, call.ID)
	if got.Status != domain.VetCallStatusApproved {
		t.Fatalf("status = %q, want approved", got.Status)
	}

	if err := UpdateVetCallStatus(ctx, db, 9999, domain.VetCallStatusCancelled); err != ErrNotFound {
		t.Fatalf("missing err = %v, want ErrNotFound", err)
	}
}

func TestIdempotencyKeyRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := GetIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k1", now); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	if _, err := CreateIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k1", 5, 201, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec, err := GetIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.RecordID != 5 || rec.Status != 201 {
		t.Fatalf("rec = %+v", rec)
	}

	if _, err := CreateIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k1", 6, 201, time.Hour); err != ErrDuplicate {
		t.Fatalf("dup err = %v, want ErrDuplicate", err)
	}

	// Expired keys are invisible.
	if _, err := CreateIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k2", 7, 201, -time.Minute); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	if _, err := GetIdempotencyKey(ctx, db, "vetcall", "1.2.3.4", "k2", now); err != ErrNotFound {
		t.Fatalf("expired err = %v, want ErrNotFound", err)
	}
}

func TestCollectDashboardStats(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := UpsertUser(ctx, db, 1, "a", "A", ""); err != nil {
		t.Fatal(err)
	}
	mustDoctor(t, db, 2, true, true)
	mustDoctor(t, db, 3, false, true)
	mustWaiting(t, db, 1)
	if _, err := CreateConsultation(ctx, db, 1, "q", "a", domain.ConsultationStatusAI); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateVetCall(ctx, db, &domain.VetCall{Name: "n", Phone: "p", Address: "a"}); err != nil {
		t.Fatal(err)
	}

	s, err := CollectDashboardStats(ctx, db)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if s.Users != 1 || s.Doctors != 2 || s.DoctorsPending != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.Consultations != 1 || s.WaitingConsultations != 1 || s.OpenConsultations != 1 || s.PendingVetCalls != 1 {
		t.Fatalf("stats = %+v", s)
	}
}
