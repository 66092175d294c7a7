package entity

import "strings"

type IdentityKind string

const (
	IdentityJobSeeker IdentityKind = "jobseeker"
	IdentityEmployer  IdentityKind = "employer"
	IdentityUnknown   IdentityKind = "unknown"
)

const (
	UnknownDisplayName = "User"
	UnknownInitials    = "U"
)

// Identity is the resolved display identity of a participant. Exactly one of
// JobSeeker and Employer is set, matching Kind; both are nil for Unknown.
type Identity struct {
	Kind        IdentityKind      `json:"kind"`
	UserID      string            `json:"user_id"`
	DisplayName string            `json:"display_name"`
	AvatarURL   string            `json:"avatar_url,omitempty"`
	Initials    string            `json:"initials"`
	JobSeeker   *JobSeekerProfile `json:"jobseeker,omitempty"`
	Employer    *EmployerProfile  `json:"employer,omitempty"`
}

func JobSeekerIdentity(userID string, p *JobSeekerProfile, avatarURL string) Identity {
	name := displayNameOr(p.Name)
	return Identity{
		Kind:        IdentityJobSeeker,
		UserID:      userID,
		DisplayName: name,
		AvatarURL:   avatarURL,
		Initials:    Initials(name),
		JobSeeker:   p,
	}
}

func EmployerIdentity(userID string, p *EmployerProfile, avatarURL string) Identity {
	name := displayNameOr(p.CompanyName)
	return Identity{
		Kind:        IdentityEmployer,
		UserID:      userID,
		DisplayName: name,
		AvatarURL:   avatarURL,
		Initials:    Initials(name),
		Employer:    p,
	}
}

// UnknownIdentity is the sentinel used when no profile can be found.
func UnknownIdentity(userID string) Identity {
	return Identity{
		Kind:        IdentityUnknown,
		UserID:      userID,
		DisplayName: UnknownDisplayName,
		Initials:    UnknownInitials,
	}
}

func (i Identity) IsUnknown() bool {
	return i.Kind == IdentityUnknown || i.Kind == ""
}

func displayNameOr(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownDisplayName
	}
	return name
}

// Initials takes the first letter of each whitespace separated word,
// upper-cased, keeping at most two. Empty names give "U".
func Initials(name string) string {
	var b []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b = append(b, []rune(strings.ToUpper(string(r)))...)
		if len(b) >= 2 {
			break
		}
	}
	if len(b) == 0 {
		return UnknownInitials
	}
	if len(b) > 2 {
		b = b[:2]
	}
	return string(b)
}
