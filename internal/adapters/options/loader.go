package options

// Loader reads the options file from the build directory (the working
// directory bub runs in).
type Loader struct {
	Filename string
}

// NewLoader returns a loader for the default options file.
func NewLoader() *Loader {
	return &Loader{Filename: FileName}
}

// Load parses the configured options file.
func (l *Loader) Load() (*Options, error) {
	return Load(l.Filename)
}
