package identity

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("بيانات الدخول غير صحيحة. يرجى التأكد من اسم المستخدم وكلمة المرور.")
	ErrIdentifierTaken    = errors.New("اسم المستخدم أو البريد الإلكتروني مسجل بالفعل.")
	ErrAdminRegistration  = errors.New("admin accounts cannot be self-registered")
)

const (
	// EmailDomain completes identifiers registered without an email.
	EmailDomain = "unismart.edu"
	// DefaultPassword is assigned to accounts created by an administrator.
	DefaultPassword = "123"
)

// User is a roster entry. Password is stored in plaintext; this roster is a mock.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	Role      Role   `json:"role"`
	BatchID   string `json:"batchId,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// Profile is the public view of a User.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	RoleLabel string `json:"roleLabel"`
	BatchID   string `json:"batchId,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		RoleLabel: u.Role.Label(),
		BatchID:   u.BatchID,
		Specialty: u.Specialty,
	}
}

// Profiles maps users to their public view.
func Profiles(users []User) []Profile {
	out := make([]Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out
}

// Initial is the first rune of the name, used for avatars.
func (u User) Initial() string {
	for _, r := range u.Name {
		return string(r)
	}
	return ""
}

func (u User) matchesIdentifier(identifier string) bool {
	return u.Username == identifier || strings.EqualFold(u.Email, identifier)
}

// NewUser contains information needed to create a roster entry.
type NewUser struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password"`
	Role      Role   `json:"role" validate:"omitempty,role"`
	BatchID   string `json:"batchId"`
	Specialty string `json:"specialty"`
}

// RegisterInput is a self-service registration.
type RegisterInput struct {
	Name       string `json:"name" validate:"required"`
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	Role       Role   `json:"role" validate:"omitempty,role"`
}

// Filter narrows roster listings.
type Filter struct {
	Search string
	Role   Role
}

func (f Filter) match(u User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	return strings.Contains(strings.ToLower(u.Name), term) ||
		strings.Contains(strings.ToLower(u.Username), term)
}

// Counts summarises the roster.
type Counts struct {
	Total  int          `json:"total"`
	ByRole map[Role]int `json:"byRole"`
}

// DeriveEmail returns identifier when it already is an email, else identifier@EmailDomain.
func DeriveEmail(identifier string) string {
	if strings.Contains(identifier, "@") {
		return identifier
	}
	return identifier + "@" + EmailDomain
}
