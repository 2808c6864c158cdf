package enums

import "fmt"

// ActorType identifies who caused an application status change.
type ActorType string

const (
	ActorTypeSystem    ActorType = "SYSTEM"
	ActorTypeAdmin     ActorType = "ADMIN"
	ActorTypeApplicant ActorType = "APPLICANT"
)

var validActorTypes = []ActorType{
	ActorTypeSystem,
	ActorTypeAdmin,
	ActorTypeApplicant,
}

// IsValid reports whether the value is a known ActorType.
func (a ActorType) IsValid() bool {
	for _, candidate := range validActorTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseActorType converts raw input into an ActorType.
func ParseActorType(value string) (ActorType, error) {
	for _, candidate := range validActorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor type %q", value)
}
