package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User is the single identity type for students and teachers; Role says
// which one a row is. StudentNumber is only set for students.
type User struct {
	ID            int64     `json:"id"`
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	StudentNumber string    `json:"student_number,omitempty"`
	PasswordHash  []byte    `json:"-"`
	Placeholder   bool      `json:"placeholder"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
