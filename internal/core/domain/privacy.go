package domain

import "go.trai.ch/zerr"

// Privacy controls how far a node is reachable as a dependency.
// Public nodes are visible globally, protected nodes to siblings and their
// descendants, private nodes only from themselves and their own descendants;
// a private node is not visible from its parent or its siblings.
type Privacy int

const (
	Public Privacy = iota
	Protected
	Private
)

// String returns the keyword used for the privacy in Bubfiles.
func (p Privacy) String() string {
	switch p {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	}
	return "invalid"
}

// ParsePrivacy converts a Bubfile privacy keyword.
func ParsePrivacy(s string) (Privacy, error) {
	switch s {
	case "public":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	}
	return Public, zerr.With(ErrConfig, "privacy", s)
}
