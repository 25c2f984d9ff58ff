package judicial

import (
	"fmt"
	"strings"
)

// Judge identifies one of the three fixed judicial personas.
type Judge string

const (
	Prosecutor Judge = "Prosecutor"
	Defense    Judge = "Defense"
	TechLead   Judge = "TechLead"
)

// Judges returns the personas in their canonical order.
func Judges() []Judge {
	return []Judge{Prosecutor, Defense, TechLead}
}

// Role is the evaluative stance of a persona.
func (j Judge) Role() string {
	switch j {
	case Prosecutor:
		return "adversarial"
	case Defense:
		return "advocacy"
	case TechLead:
		return "technical"
	default:
		return "unknown"
	}
}

// DisplayName is the human label used in reports.
func (j Judge) DisplayName() string {
	if j == TechLead {
		return "Tech Lead"
	}
	return string(j)
}

func (j Judge) Valid() bool {
	switch j {
	case Prosecutor, Defense, TechLead:
		return true
	}
	return false
}

// ParseJudge accepts the canonical name, the display name or the role.
func ParseJudge(s string) (Judge, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "prosecutor", "adversarial":
		return Prosecutor, nil
	case "defense", "defence", "advocacy":
		return Defense, nil
	case "techlead", "technical":
		return TechLead, nil
	}
	return "", fmt.Errorf("unknown judge %q", s)
}
