package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service manages the roster. All mutations load, modify and replace the
// whole list under one lock.
type Service struct {
	mu       sync.Mutex
	repo     Repository
	validate *validator.Validate
	newID    func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: NewValidator(),
		newID:    uuid.NewString,
	}
}

// NewValidator returns a validator that understands the "role" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).Valid()
	})
	return v
}

// Login checks identifier (username or email) and password against the roster.
func (s *Service) Login(ctx context.Context, identifier, password string) (User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	identifier = strings.TrimSpace(identifier)
	for _, u := range users {
		if !u.matchesIdentifier(identifier) {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
			return u, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

// Register appends a self-registered user. Administrators cannot register.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	in.Identifier = strings.TrimSpace(in.Identifier)
	in.Name = strings.TrimSpace(in.Name)
	in.Role = Role(strings.ToUpper(strings.TrimSpace(string(in.Role))))
	if in.Role == "" {
		in.Role = RoleStudent
	}
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("invalid registration: %w", err)
	}
	if in.Role == RoleAdmin {
		return User{}, ErrAdminRegistration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	email := DeriveEmail(in.Identifier)
	for _, u := range users {
		if u.matchesIdentifier(in.Identifier) || strings.EqualFold(u.Email, email) {
			return User{}, ErrIdentifierTaken
		}
	}
	u := User{
		ID:       s.newID(),
		Name:     in.Name,
		Email:    email,
		Username: in.Identifier,
		Password: in.Password,
		Role:     in.Role,
	}
	if err := s.repo.Replace(ctx, append(users, u)); err != nil {
		return User{}, err
	}
	return u, nil
}

// Create is the administrator's manual add. The user is prepended.
func (s *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu = normalize(nu)
	if err := s.validate.Struct(nu); err != nil {
		return User{}, fmt.Errorf("invalid user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	if taken(users, nu) {
		return User{}, ErrIdentifierTaken
	}
	u := s.fromNew(nu)
	if err := s.repo.Replace(ctx, append([]User{u}, users...)); err != nil {
		return User{}, err
	}
	return u, nil
}

// ImportResult reports a bulk add.
type ImportResult struct {
	Added   []User   `json:"added"`
	Skipped []string `json:"skipped"`
}

// Import adds records in order, skipping invalid ones and those colliding
// with existing usernames or emails. Unknown roles become STUDENT.
func (s *Service) Import(ctx context.Context, records []NewUser) (ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Added: []User{}, Skipped: []string{}}
	for _, nu := range records {
		if r, err := ParseRole(string(nu.Role)); err == nil {
			nu.Role = r
		} else {
			nu.Role = RoleStudent
		}
		nu = normalize(nu)
		if err := s.validate.Struct(nu); err != nil || taken(users, nu) {
			res.Skipped = append(res.Skipped, nu.Username)
			continue
		}
		u := s.fromNew(nu)
		users = append(users, u)
		res.Added = append(res.Added, u)
	}
	if len(res.Added) == 0 {
		return res, nil
	}
	return res, s.repo.Replace(ctx, users)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	for i, u := range users {
		if u.ID == id {
			return s.repo.Replace(ctx, append(users[:i:i], users[i+1:]...))
		}
	}
	return ErrNotFound
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *Service) List(ctx context.Context, f Filter) ([]User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(users))
	for _, u := range users {
		if f.match(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) Counts(ctx context.Context) (Counts, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return Counts{}, err
	}
	c := Counts{Total: len(users), ByRole: make(map[Role]int, len(Roles))}
	for _, r := range Roles {
		c.ByRole[r] = 0
	}
	for _, u := range users {
		c.ByRole[u.Role]++
	}
	return c, nil
}

// Instructors lists doctors and TAs.
func (s *Service) Instructors(ctx context.Context) ([]User, error) {
	users, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []User
	for _, u := range users {
		if u.Role.IsInstructor() {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Service) fromNew(nu NewUser) User {
	return User{
		ID:        s.newID(),
		Name:      nu.Name,
		Email:     nu.Email,
		Username:  nu.Username,
		Password:  nu.Password,
		Role:      nu.Role,
		BatchID:   nu.BatchID,
		Specialty: nu.Specialty,
	}
}

func normalize(nu NewUser) NewUser {
	nu.Name = strings.TrimSpace(nu.Name)
	nu.Email = strings.TrimSpace(nu.Email)
	nu.Username = strings.TrimSpace(nu.Username)
	nu.Role = Role(strings.ToUpper(strings.TrimSpace(string(nu.Role))))
	if nu.Password == "" {
		nu.Password = DefaultPassword
	}
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
	return nu
}

func taken(users []User, nu NewUser) bool {
	for _, u := range users {
		if u.Username == nu.Username || strings.EqualFold(u.Email, nu.Email) {
			return true
		}
	}
	return false
}
