package internal

import "time"

// Record types stored in the records table
const (
	RecordSMS  = 1
	RecordMMS  = 2
	RecordCall = 3
)

type Message struct {
	ID          int64     `json:"id"`
	Address     string    `json:"address"`
	Body        string    `json:"body"`
	Type        int       `json:"type"` // 1 = received, 2 = sent, 3 = draft, 4 = outbox, 5 = failed, 6 = queued
	Date        time.Time `json:"date"`
	Read        bool      `json:"read"`
	ThreadID    int       `json:"thread_id"`
	Subject     string    `json:"subject,omitempty"`
	ContactName string    `json:"contact_name,omitempty"`
	Sender      string    `json:"sender,omitempty"`       // Sender phone number for received MMS
	ContentType string    `json:"content_type,omitempty"` // set for MMS only
	Addresses   []string  `json:"addresses,omitempty"`    // All participants of a group MMS
	ImportID    string    `json:"import_id,omitempty"`
}

type CallLog struct {
	ID             int64     `json:"id"`
	Number         string    `json:"number"`
	Duration       int       `json:"duration"` // in seconds
	Date           time.Time `json:"date"`
	Type           int       `json:"type"`                   // 1 = incoming, 2 = outgoing, 3 = missed, 4 = voicemail, 5 = rejected, 6 = refused
	Presentation   int       `json:"presentation,omitempty"` // 1 = allowed, 2 = restricted, 3 = unknown, 4 = payphone
	SubscriptionID string    `json:"subscription_id,omitempty"`
	ContactName    string    `json:"contact_name,omitempty"`
	ImportID       string    `json:"import_id,omitempty"`
}

// Conversation summarizes all activity with one party. When equivalent
// numbers are merged, Addresses lists every spelling seen in the backups.
type Conversation struct {
	Address        string    `json:"address"`
	DisplayAddress string    `json:"display_address,omitempty"`
	Addresses      []string  `json:"addresses,omitempty"`
	ContactName    string    `json:"contact_name,omitempty"`
	LastMessage    string    `json:"last_message"`
	LastDate       time.Time `json:"last_date"`
	MessageCount   int       `json:"message_count"`
	Type           string    `json:"type"`
}

type UploadResponse struct {
	Success      bool   `json:"success"`
	ImportID     string `json:"import_id,omitempty"`
	MessageCount int    `json:"message_count"`
	CallLogCount int    `json:"call_log_count"`
	Processing   bool   `json:"processing,omitempty"`
	Error        string `json:"error,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	Success bool     `json:"success"`
	User    *User    `json:"user,omitempty"`
	Session *Session `json:"session,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// CompareRequest asks whether two numbers dial the same party
type CompareRequest struct {
	A string `json:"a" validate:"max=256"`
	B string `json:"b" validate:"max=256"`
}

type CompareResponse struct {
	Equal bool `json:"equal"`
}

// NormalizeRequest asks for the reversed dialable form of a number. A missing
// capacity means room for the whole number.
type NormalizeRequest struct {
	Number   string `json:"number" validate:"max=256"`
	Capacity *int   `json:"capacity" validate:"omitempty,gte=0,lte=256"`
}

type NormalizeResponse struct {
	Reversed string `json:"reversed"`
	Length   int    `json:"length"`
	MinMatch string `json:"min_match"`
}
