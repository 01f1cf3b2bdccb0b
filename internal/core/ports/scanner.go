package ports

// IncludeScanner extracts in-project includes from a source file. The
// returned paths are as written in the source, e.g. "p/lo/lo.h"; resolution
// against the project is the caller's job.
//
//go:generate go run go.uber.org/mock/mockgen -source=scanner.go -destination=mocks/mock_scanner.go -package=mocks
type IncludeScanner interface {
	Scan(path string) ([]string, error)
}
