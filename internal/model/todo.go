package model

import "time"

// Todo is a single task owned by exactly one user.
//
// UserID and CreatedAt never change after insert. JSON field names follow the
// column names so existing clients of the API keep working.
type Todo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoPatch is a partial update. A nil field is left untouched; JSON null is
// treated the same as an absent field.
type TodoPatch struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}
