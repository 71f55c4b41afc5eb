// Package domain defines the persistence models for users, doctors,
// consultations, and the escalation protocol around them. These types are
// mapped with GORM and form the core data layer of the veterinary
// consultation service.
package domain

import (
	"time"
)

// Consultation status values. A Consultation records one question/answer
// pair; its status tracks how far the question travelled beyond the AI.
const (
	ConsultationStatusAI            = "ai"
	ConsultationStatusWaitingDoctor = "waiting_doctor"
	ConsultationStatusWithDoctor    = "with_doctor"
	ConsultationStatusCompleted     = "completed"
)

// ActiveConsultation status values. The lifecycle only moves forward:
// waiting -> assigned -> active -> completed.
const (
	ActiveStatusWaiting   = "waiting"
	ActiveStatusAssigned  = "assigned"
	ActiveStatusActive    = "active"
	ActiveStatusCompleted = "completed"
)

// Sender types recorded on consultation history rows.
const (
	SenderClient = "client"
	SenderDoctor = "doctor"
	SenderAdmin  = "admin"
	SenderAI     = "ai"
	SenderSystem = "system"
)

// VetCall status values for the home-visit request workflow.
const (
	VetCallStatusPending   = "pending"
	VetCallStatusApproved  = "approved"
	VetCallStatusCompleted = "completed"
	VetCallStatusCancelled = "cancelled"
)

// Doctor registration steps persisted between bot restarts.
const (
	RegistrationStepName  = "name"
	RegistrationStepPhoto = "photo"
)

// activeStatusRank orders the forward-only lifecycle. Unknown statuses rank
// below waiting so they can never be promoted into.
var activeStatusRank = map[string]int{
	ActiveStatusWaiting:   1,
	ActiveStatusAssigned:  2,
	ActiveStatusActive:    3,
	ActiveStatusCompleted: 4,
}

// CanTransitionActive reports whether an ActiveConsultation may move from
// one status to another. Only strictly forward transitions are allowed.
func CanTransitionActive(from, to string) bool {
	f, okF := activeStatusRank[from]
	t, okT := activeStatusRank[to]
	return okF && okT && t > f
}

// IsRelayableStatus reports whether messages may still be relayed through a
// consultation in the given status.
func IsRelayableStatus(status string) bool {
	return status == ActiveStatusAssigned || status == ActiveStatusActive
}

// IsTerminalStatus reports whether the consultation thread is closed.
func IsTerminalStatus(status string) bool { return status == ActiveStatusCompleted }

// User is a pet owner identified by their Telegram chat. Rows are created on
// first contact and never deleted.
type User struct {
	ID        uint      `json:"id"         gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id"    gorm:"not null;uniqueIndex:ux_users_chat_id"`
	Username  string    `json:"username"   gorm:"type:varchar(64)"`
	FirstName string    `json:"first_name" gorm:"type:varchar(128)"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(128)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Doctor is a registered veterinarian on the doctor-facing bot.
//
// IsApproved flips only through an admin action: unapproved doctors never
// receive consultation fan-out. IsActive is the doctor's own availability
// toggle for new assignments.
type Doctor struct {
	ID           uint      `json:"id"            gorm:"primaryKey"`
	ChatID       int64     `json:"chat_id"       gorm:"not null;uniqueIndex:ux_doctors_chat_id"`
	Username     string    `json:"username"      gorm:"type:varchar(64)"`
	FullName     string    `json:"full_name"     gorm:"type:varchar(255);not null"`
	PhotoFileID  string    `json:"-"             gorm:"type:varchar(255)"`
	IsApproved   bool      `json:"is_approved"   gorm:"not null;default:false"`
	IsActive     bool      `json:"is_active"     gorm:"not null;default:true"`
	RegisteredAt time.Time `json:"registered_at"`
	LastActivity time.Time `json:"last_activity"`
}

// TableName returns the database table name for Doctor.
func (Doctor) TableName() string { return "doctors" }

// Consultation is one inbound question together with the AI answer given for
// it. Question and AIResponse are immutable once written; only Status and the
// admin fields may change afterwards.
type Consultation struct {
	ID            uint      `json:"id"             gorm:"primaryKey"`
	UserID        uint      `json:"user_id"        gorm:"not null;index:idx_consultations_user"`
	Question      string    `json:"question"       gorm:"type:text;not null"`
	AIResponse    string    `json:"ai_response"    gorm:"type:text"`
	AdminResponse string    `json:"admin_response" gorm:"type:text"`
	AdminUsername string    `json:"admin_username" gorm:"type:varchar(64)"`
	Status        string    `json:"status"         gorm:"type:varchar(16);not null;default:'ai';check:status IN ('ai','waiting_doctor','with_doctor','completed')"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for Consultation.
func (Consultation) TableName() string { return "consultations" }

// ActiveConsultation is the live escalation thread that may bind a human
// doctor to a client. At most one non-terminal row exists per client; the
// repository enforces this at creation time.
//
// Fields:
//   - ClientID: Telegram chat id of the pet owner.
//   - DoctorID: assigned doctor, nil while waiting.
//   - ConsultationID: optional backlink to the AI-answered Consultation.
//   - Status: waiting | assigned | active | completed (forward-only).
type ActiveConsultation struct {
	ID             uint      `json:"id"              gorm:"primaryKey"`
	ClientID       int64     `json:"client_id"       gorm:"not null;index:idx_active_client"`
	DoctorID       *uint     `json:"doctor_id"       gorm:"index:idx_active_doctor"`
	ConsultationID *uint     `json:"consultation_id"`
	StartedAt      time.Time `json:"started_at"`
	Status         string    `json:"status"          gorm:"type:varchar(16);not null;default:'waiting';check:status IN ('waiting','assigned','active','completed')"`
	ClientUsername string    `json:"client_username" gorm:"type:varchar(64)"`
	ClientName     string    `json:"client_name"     gorm:"type:varchar(255)"`
	InitialMessage string    `json:"initial_message" gorm:"type:text"`
}

// TableName returns the database table name for ActiveConsultation.
func (ActiveConsultation) TableName() string { return "active_consultations" }

// ConsultationMessage is one entry in the append-only history of an
// escalation thread. Rows are written before (or alongside) transport
// delivery so history survives delivery failures.
type ConsultationMessage struct {
	ID                uint      `json:"id"              gorm:"primaryKey"`
	ConsultationID    uint      `json:"consultation_id" gorm:"not null;index:idx_consmsg_consultation,priority:1"`
	SenderType        string    `json:"sender_type"     gorm:"type:varchar(16);not null;check:sender_type IN ('client','doctor','admin','ai','system')"`
	SenderID          int64     `json:"sender_id"`
	SenderName        string    `json:"sender_name"     gorm:"type:varchar(255)"`
	MessageText       string    `json:"message_text"    gorm:"type:text;not null"`
	SentAt            time.Time `json:"sent_at"         gorm:"index:idx_consmsg_consultation,priority:2"`
	TelegramMessageID int       `json:"-"`

	Consultation ActiveConsultation `json:"-" gorm:"foreignKey:ConsultationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ConsultationMessage.
func (ConsultationMessage) TableName() string { return "consultation_messages" }

// DoctorNotification records one "new client waiting" broadcast delivered to
// one doctor. IsResponded transitions false -> true exactly once, when any
// doctor claims the parent consultation; sibling rows are mirrored at the
// same moment to suppress stale claim buttons.
type DoctorNotification struct {
	ID             uint      `json:"id"              gorm:"primaryKey"`
	ConsultationID uint      `json:"consultation_id" gorm:"not null;index:idx_notif_consultation"`
	DoctorID       uint      `json:"doctor_id"       gorm:"not null;index:idx_notif_doctor"`
	MessageID      int       `json:"message_id"`
	IsResponded    bool      `json:"is_responded"    gorm:"not null;default:false"`
	SentAt         time.Time `json:"sent_at"`
}

// TableName returns the database table name for DoctorNotification.
func (DoctorNotification) TableName() string { return "doctor_notifications" }

// VetCall is a "call a vet to my home" request submitted through the public
// web form. Entirely independent of the consultation coordinator.
type VetCall struct {
	ID            uint      `json:"id"             gorm:"primaryKey"`
	UserID        *uint     `json:"user_id"`
	Name          string    `json:"name"           gorm:"type:varchar(255);not null"`
	Phone         string    `json:"phone"          gorm:"type:varchar(32);not null"`
	Address       string    `json:"address"        gorm:"type:varchar(512);not null"`
	PetType       string    `json:"pet_type"       gorm:"type:varchar(64)"`
	PetName       string    `json:"pet_name"       gorm:"type:varchar(128)"`
	PetAge        string    `json:"pet_age"        gorm:"type:varchar(32)"`
	Problem       string    `json:"problem"        gorm:"type:text"`
	Urgency       string    `json:"urgency"        gorm:"type:varchar(32)"`
	PreferredTime string    `json:"preferred_time" gorm:"type:varchar(64)"`
	Comments      string    `json:"comments"       gorm:"type:text"`
	Status        string    `json:"status"         gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','approved','completed','cancelled')"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for VetCall.
func (VetCall) TableName() string { return "vet_calls" }

// RegistrationSession is the persisted state of an in-progress doctor
// registration (name collected first, then a photo). Keeping it in the
// database means a bot restart does not drop half-finished registrations.
type RegistrationSession struct {
	ID        uint      `json:"id"        gorm:"primaryKey"`
	ChatID    int64     `json:"chat_id"   gorm:"not null;uniqueIndex:ux_regsessions_chat_id"`
	Step      string    `json:"step"      gorm:"type:varchar(16);not null;check:step IN ('name','photo')"`
	FullName  string    `json:"full_name" gorm:"type:varchar(255)"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for RegistrationSession.
func (RegistrationSession) TableName() string { return "registration_sessions" }
