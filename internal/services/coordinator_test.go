package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/vetsupport/go-vet-backend/internal/domain"
	"github.com/vetsupport/go-vet-backend/internal/repo"
)

// ---------- request creation ----------

func TestCreateRequest_Dedupes(t *testing.T) {
	db := newTestDB(t)
	coord, _, _ := newCoordinator(db)
	ctx := context.Background()

	first, created, err := coord.CreateRequest(ctx, 500, "alice", "Alice", "cat sneezing", nil)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if !created {
		t.Fatal("first request should report created=true")
	}

	second, created, err := coord.CreateRequest(ctx, 500, "alice", "Alice", "still sneezing", nil)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if created {
		t.Fatal("second request should not create a new thread")
	}
	if second.ID != first.ID {
		t.Fatalf("expected thread %d, got %d", first.ID, second.ID)
	}
}

// ---------- fan-out ----------

func TestNotifyDoctors_EligibleOnly(t *testing.T) {
	db := newTestDB(t)
	coord, _, doctorCh := newCoordinator(db)
	ctx := context.Background()

	eligible := mustDoctor(t, db, 100, true, true)
	mustDoctor(t, db, 101, false, true) // pending approval
	mustDoctor(t, db, 102, true, false) // paused

	ac, _, err := coord.CreateRequest(ctx, 500, "alice", "Alice", "dog limping", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	n, err := coord.NotifyDoctors(ctx, ac.ID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 notified doctor, got %d", n)
	}
	if got := doctorCh.sentTo(100); len(got) != 1 || got[0].ConsultationID != ac.ID {
		t.Fatalf("eligible doctor did not receive the claim prompt: %+v", got)
	}
	if len(doctorCh.sentTo(101)) != 0 || len(doctorCh.sentTo(102)) != 0 {
		t.Fatal("ineligible doctors must not be notified")
	}

	total, err := repo.CountNotifications(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 notification row, got %d", total)
	}
	if _, err := repo.GetDoctor(ctx, db, eligible.ID); err != nil {
		t.Fatalf("doctor lookup: %v", err)
	}
}

func TestNotifyDoctors_DeliveryFailureSkipped(t *testing.T) {
	db := newTestDB(t)
	coord, _, doctorCh := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	mustDoctor(t, db, 101, true, true)
	doctorCh.FailFor[100] = errors.New("blocked the bot")

	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "parrot plucking feathers", nil)
	n, err := coord.NotifyDoctors(ctx, ac.ID)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 successful delivery, got %d", n)
	}
	total, _ := repo.CountNotifications(ctx, db, ac.ID)
	if total != 1 {
		t.Fatalf("only delivered notices get a row, got %d", total)
	}
}

func TestNotifyDoctors_LongMultiByteQuestion(t *testing.T) {
	db := newTestDB(t)
	coord, _, doctorCh := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)

	// One ASCII byte up front misaligns every following two-byte rune, so
	// a byte-indexed cut would split a character.
	question := "a" + strings.Repeat("у", 300)
	ac, _, err := coord.CreateRequest(ctx, 500, "alice", "Alice", question, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	n, err := coord.NotifyDoctors(ctx, ac.ID)
	if err != nil || n != 1 {
		t.Fatalf("notify: n=%d err=%v", n, err)
	}
	got := doctorCh.sentTo(100)
	if len(got) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(got))
	}
	if !utf8.ValidString(got[0].Text) {
		t.Fatalf("fan-out text is not valid UTF-8: %q", got[0].Text)
	}
	if !strings.Contains(got[0].Text, "у...") {
		t.Fatalf("long question should be cut after a whole character: %q", got[0].Text)
	}
	if strings.Contains(got[0].Text, question) {
		t.Fatal("question should have been truncated")
	}
}

// ---------- claim ----------

func TestClaimConsultation_WinnerAndLoser(t *testing.T) {
	db := newTestDB(t)
	coord, clientCh, doctorCh := newCoordinator(db)
	ctx := context.Background()

	d1 := mustDoctor(t, db, 100, true, true)
	mustDoctor(t, db, 101, true, true)

	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "cat refuses food", nil)
	if _, err := coord.NotifyDoctors(ctx, ac.ID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	win, err := coord.ClaimConsultation(ctx, ac.ID, 100)
	if err != nil {
		t.Fatalf("winner claim: %v", err)
	}
	if !win.Assigned || win.Reason != ClaimAssigned {
		t.Fatalf("expected assigned, got %+v", win)
	}
	if win.Doctor == nil || win.Doctor.ID != d1.ID {
		t.Fatalf("winner doctor mismatch: %+v", win.Doctor)
	}

	lose, err := coord.ClaimConsultation(ctx, ac.ID, 101)
	if err != nil {
		t.Fatalf("loser claim: %v", err)
	}
	if lose.Assigned || lose.Reason != ClaimAlreadyTaken {
		t.Fatalf("expected already_taken, got %+v", lose)
	}
	if lose.TakenBy != d1.FullName {
		t.Fatalf("loser should learn the winner's name, got %q", lose.TakenBy)
	}

	// Client is told a named doctor joined.
	clientMsgs := clientCh.sentTo(500)
	if len(clientMsgs) == 0 || !strings.Contains(clientMsgs[0].Text, d1.FullName) {
		t.Fatalf("client join notice missing or anonymous: %+v", clientMsgs)
	}

	// The loser's stale broadcast was edited in place.
	foundEdit := false
	for _, e := range doctorCh.Edits {
		if e.ChatID == 101 && strings.Contains(e.Text, d1.FullName) {
			foundEdit = true
		}
	}
	if !foundEdit {
		t.Fatalf("sibling broadcast not suppressed: %+v", doctorCh.Edits)
	}

	// Winner received the history flush.
	winnerMsgs := doctorCh.sentTo(100)
	gotHistory := false
	for _, m := range winnerMsgs {
		if strings.Contains(m.Text, "cat refuses food") && m.ConsultationID == 0 {
			gotHistory = true
		}
	}
	if !gotHistory {
		t.Fatalf("winner never got the history flush: %+v", winnerMsgs)
	}

	// All notification rows are now responded.
	open, err := repo.ListOpenNotifications(ctx, db, ac.ID, 0)
	if err != nil {
		t.Fatalf("open notifications: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open notifications, got %d", len(open))
	}
}

func TestClaimConsultation_Concurrent(t *testing.T) {
	db := newTestDB(t)
	coord, _, _ := newCoordinator(db)
	ctx := context.Background()

	const doctors = 6
	for i := 0; i < doctors; i++ {
		mustDoctor(t, db, int64(100+i), true, true)
	}
	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "hamster not moving", nil)
	if _, err := coord.NotifyDoctors(ctx, ac.ID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*ClaimResult, doctors)
	errs := make([]error, doctors)
	for i := 0; i < doctors; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.ClaimConsultation(ctx, ac.ID, int64(100+i))
		}(i)
	}
	wg.Wait()

	winners := 0
	var winnerChat int64
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("claim %d errored: %v", i, errs[i])
		}
		if r.Assigned {
			winners++
			winnerChat = int64(100 + i)
		} else if r.Reason != ClaimAlreadyTaken {
			t.Fatalf("loser %d got unexpected reason %q", i, r.Reason)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly 1 winner, got %d", winners)
	}

	got, err := repo.GetActiveConsultation(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	winner, err := repo.GetDoctorByChatID(ctx, db, winnerChat)
	if err != nil {
		t.Fatalf("winner lookup: %v", err)
	}
	if got.DoctorID == nil || *got.DoctorID != winner.ID {
		t.Fatalf("assigned doctor %v does not match winner %d", got.DoctorID, winner.ID)
	}
	if got.Status != domain.ActiveStatusAssigned {
		t.Fatalf("expected assigned status, got %s", got.Status)
	}
}

func TestClaimConsultation_Rejections(t *testing.T) {
	db := newTestDB(t)
	coord, _, _ := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	mustDoctor(t, db, 101, false, true)

	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "question", nil)

	if r, err := coord.ClaimConsultation(ctx, ac.ID, 999); err != nil || r.Reason != ClaimNotFound {
		t.Fatalf("unknown doctor: %+v %v", r, err)
	}
	if r, err := coord.ClaimConsultation(ctx, ac.ID, 101); err != nil || r.Reason != ClaimNotEligible {
		t.Fatalf("unapproved doctor: %+v %v", r, err)
	}
	if r, err := coord.ClaimConsultation(ctx, 4242, 100); err != nil || r.Reason != ClaimNotFound {
		t.Fatalf("unknown consultation: %+v %v", r, err)
	}

	// A doctor holding an open thread cannot take a second one.
	if r, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil || !r.Assigned {
		t.Fatalf("first claim: %+v %v", r, err)
	}
	ac2, _, _ := coord.CreateRequest(ctx, 501, "bob", "Bob", "another question", nil)
	if r, err := coord.ClaimConsultation(ctx, ac2.ID, 100); err != nil || r.Reason != ClaimBusy {
		t.Fatalf("busy doctor: %+v %v", r, err)
	}
}

func TestClaimConsultation_SameDoctorTwoClaims(t *testing.T) {
	db := newTestDB(t)
	coord, _, _ := newCoordinator(db)
	ctx := context.Background()

	d := mustDoctor(t, db, 100, true, true)
	first, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "cat shivering", nil)
	second, _, _ := coord.CreateRequest(ctx, 501, "bob", "Bob", "dog scratching", nil)
	ids := []uint{first.ID, second.ID}

	var wg sync.WaitGroup
	results := make([]*ClaimResult, len(ids))
	errs := make([]error, len(ids))
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.ClaimConsultation(ctx, ids[i], 100)
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, r := range results {
		if errs[i] != nil {
			t.Fatalf("claim %d errored: %v", i, errs[i])
		}
		if r.Assigned {
			wins++
		} else if r.Reason != ClaimBusy {
			t.Fatalf("loser got unexpected reason %q", r.Reason)
		}
	}
	if wins != 1 {
		t.Fatalf("one doctor pressing two buttons must win exactly once, got %d", wins)
	}

	held, err := repo.FindCurrentByDoctor(ctx, db, d.ID)
	if err != nil {
		t.Fatalf("current thread: %v", err)
	}
	other := first.ID
	if held.ID == first.ID {
		other = second.ID
	}
	got, err := repo.GetActiveConsultation(ctx, db, other)
	if err != nil {
		t.Fatalf("reload loser thread: %v", err)
	}
	if got.Status != domain.ActiveStatusWaiting || got.DoctorID != nil {
		t.Fatalf("second thread must stay waiting and unassigned, got status=%q doctor=%v", got.Status, got.DoctorID)
	}
}

// ---------- relay ----------

func TestRelay_PersistThenDeliver(t *testing.T) {
	db := newTestDB(t)
	coord, clientCh, doctorCh := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)
	if _, err := coord.NotifyDoctors(ctx, ac.ID); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if _, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := coord.RelayClientMessage(ctx, ac.ID, "she also vomited"); err != nil {
		t.Fatalf("client relay: %v", err)
	}
	if err := coord.RelayDoctorMessage(ctx, ac.ID, "withhold food for 12 hours"); err != nil {
		t.Fatalf("doctor relay: %v", err)
	}

	// First doctor traffic promotes assigned to active.
	got, _ := repo.GetActiveConsultation(ctx, db, ac.ID)
	if got.Status != domain.ActiveStatusActive {
		t.Fatalf("expected active after doctor message, got %s", got.Status)
	}

	msgs, err := repo.ListConsultationMessages(ctx, db, ac.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var senders []string
	for _, m := range msgs {
		senders = append(senders, m.SenderType)
	}
	wantClient, wantDoctor := false, false
	for _, s := range senders {
		if s == domain.SenderClient {
			wantClient = true
		}
		if s == domain.SenderDoctor {
			wantDoctor = true
		}
	}
	if !wantClient || !wantDoctor {
		t.Fatalf("history missing relayed rows: %v", senders)
	}

	// Delivery reached both sides with sender labels.
	if msgs := doctorCh.sentTo(100); len(msgs) < 2 {
		t.Fatalf("doctor deliveries: %+v", msgs)
	}
	var clientGotAnswer bool
	for _, m := range clientCh.sentTo(500) {
		if strings.Contains(m.Text, "withhold food") {
			clientGotAnswer = true
		}
	}
	if !clientGotAnswer {
		t.Fatal("client never received the doctor's reply")
	}
}

func TestRelay_PersistsDespiteTransportFailure(t *testing.T) {
	db := newTestDB(t)
	coord, _, doctorCh := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)
	if _, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil {
		t.Fatalf("claim: %v", err)
	}
	before, _ := repo.CountConsultationMessages(ctx, db, ac.ID)

	doctorCh.FailFor[100] = errors.New("network down")
	if err := coord.RelayClientMessage(ctx, ac.ID, "are you there?"); err == nil {
		t.Fatal("expected transport error")
	}

	after, _ := repo.CountConsultationMessages(ctx, db, ac.ID)
	if after != before+1 {
		t.Fatalf("history row must survive delivery failure: before=%d after=%d", before, after)
	}
}

func TestRelay_StateGuards(t *testing.T) {
	db := newTestDB(t)
	coord, _, _ := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)

	if err := coord.RelayClientMessage(ctx, ac.ID, "hello?"); !errors.Is(err, ErrNotAssigned) {
		t.Fatalf("waiting thread should reject relay, got %v", err)
	}
	if err := coord.RelayClientMessage(ctx, ac.ID, "  "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("blank message: %v", err)
	}
	if err := coord.RelayClientMessage(ctx, 4242, "x"); !errors.Is(err, ErrConsultationNotFound) {
		t.Fatalf("missing thread: %v", err)
	}

	if _, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := coord.Complete(ctx, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := coord.RelayClientMessage(ctx, ac.ID, "one more thing"); !errors.Is(err, ErrConsultationClosed) {
		t.Fatalf("completed thread should reject relay, got %v", err)
	}
	if err := coord.RelayDoctorMessage(ctx, ac.ID, "follow-up"); !errors.Is(err, ErrConsultationClosed) {
		t.Fatalf("completed thread should reject doctor relay, got %v", err)
	}
}

// ---------- reassign / complete / admin ----------

func TestReassign_Validation(t *testing.T) {
	db := newTestDB(t)
	coord, clientCh, _ := newCoordinator(db)
	ctx := context.Background()

	d1 := mustDoctor(t, db, 100, true, true)
	d2 := mustDoctor(t, db, 101, true, true)
	pending := mustDoctor(t, db, 102, false, true)

	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)
	if _, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := coord.Reassign(ctx, ac.ID, d1.ID); !errors.Is(err, ErrSameDoctor) {
		t.Fatalf("same doctor: %v", err)
	}
	if err := coord.Reassign(ctx, ac.ID, pending.ID); !errors.Is(err, ErrDoctorNotEligible) {
		t.Fatalf("pending doctor: %v", err)
	}
	if err := coord.Reassign(ctx, ac.ID, 9999); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("unknown doctor: %v", err)
	}

	if err := coord.Reassign(ctx, ac.ID, d2.ID); err != nil {
		t.Fatalf("valid reassign: %v", err)
	}
	got, _ := repo.GetActiveConsultation(ctx, db, ac.ID)
	if got.DoctorID == nil || *got.DoctorID != d2.ID {
		t.Fatalf("doctor not rebound: %+v", got.DoctorID)
	}
	if got.Status != domain.ActiveStatusAssigned {
		t.Fatalf("reassign must not change status, got %s", got.Status)
	}

	var notified bool
	for _, m := range clientCh.sentTo(500) {
		if strings.Contains(m.Text, d2.FullName) {
			notified = true
		}
	}
	if !notified {
		t.Fatal("client not told about the handover")
	}

	if err := coord.Complete(ctx, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := coord.Reassign(ctx, ac.ID, d1.ID); !errors.Is(err, ErrConsultationClosed) {
		t.Fatalf("reassign after completion: %v", err)
	}
}

func TestComplete_NotifiesBothSides(t *testing.T) {
	db := newTestDB(t)
	coord, clientCh, doctorCh := newCoordinator(db)
	ctx := context.Background()

	mustDoctor(t, db, 100, true, true)
	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)
	if _, err := coord.ClaimConsultation(ctx, ac.ID, 100); err != nil {
		t.Fatalf("claim: %v", err)
	}

	clientBefore := len(clientCh.sentTo(500))
	doctorBefore := len(doctorCh.sentTo(100))
	if err := coord.Complete(ctx, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(clientCh.sentTo(500)) != clientBefore+1 {
		t.Fatal("client not notified about completion")
	}
	if len(doctorCh.sentTo(100)) != doctorBefore+1 {
		t.Fatal("doctor not notified about completion")
	}

	if err := coord.Complete(ctx, ac.ID); !errors.Is(err, ErrConsultationClosed) {
		t.Fatalf("double completion: %v", err)
	}
	got, _ := repo.GetActiveConsultation(ctx, db, ac.ID)
	if got.Status != domain.ActiveStatusCompleted {
		t.Fatalf("status: %s", got.Status)
	}
}

func TestInjectAdminMessage(t *testing.T) {
	db := newTestDB(t)
	coord, clientCh, _ := newCoordinator(db)
	ctx := context.Background()

	ac, _, _ := coord.CreateRequest(ctx, 500, "alice", "Alice", "initial", nil)
	if err := coord.InjectAdminMessage(ctx, ac.ID, "reception", "a doctor will join within 10 minutes"); err != nil {
		t.Fatalf("inject: %v", err)
	}

	msgs, _ := repo.ListConsultationMessages(ctx, db, ac.ID)
	var adminRow bool
	for _, m := range msgs {
		if m.SenderType == domain.SenderAdmin && m.SenderName == "reception" {
			adminRow = true
		}
	}
	if !adminRow {
		t.Fatal("admin history row missing")
	}
	if got := clientCh.sentTo(500); len(got) != 1 || !strings.Contains(got[0].Text, "reception") {
		t.Fatalf("client delivery: %+v", got)
	}

	if err := coord.Complete(ctx, ac.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := coord.InjectAdminMessage(ctx, ac.ID, "reception", "late note"); !errors.Is(err, ErrConsultationClosed) {
		t.Fatalf("closed thread: %v", err)
	}
}
