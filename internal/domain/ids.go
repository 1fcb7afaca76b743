package domain

import "github.com/google/uuid"

// UserID is assigned by the users table (auto-increment). Chat ids are
// derived from pairs of these, so they stay integers end to end.
type UserID = int64

type SessionID = uuid.UUID
