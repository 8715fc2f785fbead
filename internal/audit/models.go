package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"cadastro/pkg/domain"
)

// Action names a registry change worth recording.
type Action string

const (
	ActionUserCreated     Action = "user_created"
	ActionUserUpdated     Action = "user_updated"
	ActionUserActivated   Action = "user_activated"
	ActionUserDeactivated Action = "user_deactivated"
	ActionUserDeleted     Action = "user_deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Action    Action
	// SubjectHash is the SHA-256 of the subject's CPF digits. Raw CPFs never
	// enter the trail.
	SubjectHash string
	Detail      string
	// RunID correlates events emitted during one CLI run.
	RunID string
}

// SubjectHash hashes the digits of cpf for use as Event.SubjectHash.
// Differently punctuated spellings of one number hash alike.
func SubjectHash(cpf string) string {
	sum := sha256.Sum256([]byte(domain.CPFDigits(cpf)))
	return hex.EncodeToString(sum[:])
}
