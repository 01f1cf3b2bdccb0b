package domain

import (
	"fmt"

	"go.trai.ch/zerr"
)

// Origin identifies the file and line a statement was declared at. It is
// attached to every planning error so failures print as
// "<path>|<line>| ERROR: ...".
type Origin struct {
	Path string
	Line int
}

// String formats the origin as "path|line".
func (o Origin) String() string {
	return fmt.Sprintf("%s|%d", o.Path, o.Line)
}

// WithOrigin attaches the origin to err as metadata.
func WithOrigin(err error, o Origin) error {
	if o.Path == "" {
		return err
	}
	return zerr.With(err, "origin", o.String())
}
