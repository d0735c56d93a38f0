package scholarship

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lead is a captured applicant contact bundled with their profile and results.
type Lead struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Profile   Profile
	Results   MatchResult
	CreatedAt time.Time
}

// NewLead validates the contact fields and returns an immutable lead value.
func NewLead(name, email, phone string, profile Profile, results MatchResult) (Lead, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return Lead{}, errors.New("name is required")
	}
	if phone == "" {
		return Lead{}, errors.New("phone is required")
	}

	addr, err := ParseEmail(email)
	if err != nil {
		return Lead{}, err
	}

	return Lead{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     addr,
		Phone:     phone,
		Profile:   profile,
		Results:   results,
		CreatedAt: time.Now(),
	}, nil
}

// ParseEmail accepts a bare address ("user@example.com") and returns it trimmed.
func ParseEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address %q", email)
	}

	if !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", fmt.Errorf("invalid email address %q", email)
	}

	return email, nil
}
