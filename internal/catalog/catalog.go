// Package catalog holds the static subject reference data.
package catalog

import "errors"

var ErrNotFound = errors.New("subject not found")

type Subject struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	TotalHours int    `json:"totalHours"`
}

// Catalog is a read-only subject list.
type Catalog struct {
	subjects []Subject
}

// New returns a catalog over subjects. A nil slice uses the default set.
func New(subjects []Subject) *Catalog {
	if subjects == nil {
		subjects = Seed()
	}
	return &Catalog{subjects: subjects}
}

func Seed() []Subject {
	return []Subject{
		{ID: "s1", Name: "Computer Architecture", Code: "CS301", TotalHours: 40},
		{ID: "s2", Name: "Machine Learning", Code: "AI202", TotalHours: 45},
		{ID: "s3", Name: "Mobile Computing", Code: "CS405", TotalHours: 35},
	}
}

func (c *Catalog) List() []Subject {
	out := make([]Subject, len(c.subjects))
	copy(out, c.subjects)
	return out
}

func (c *Catalog) Get(id string) (Subject, error) {
	for _, s := range c.subjects {
		if s.ID == id {
			return s, nil
		}
	}
	return Subject{}, ErrNotFound
}
