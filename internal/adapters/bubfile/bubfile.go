// Package bubfile parses the declarative build file each package carries.
package bubfile

import (
	"os"
	"strings"
	"unicode"

	"github.com/GrahamStJack/bottom-up-build/internal/adapters/options"
	"github.com/GrahamStJack/bottom-up-build/internal/core/domain"
	"go.trai.ch/zerr"
)

// FileName is the build file present in every package directory.
const FileName = "Bubfile"

// Statement is one parsed rule: `rule targets : arg1 : arg2 : arg3 ;`.
// Targets and Args hold expanded tokens; Args has one slice per ':' field
// after the targets, up to three.
type Statement struct {
	Origin  domain.Origin
	Rule    string
	Targets []string
	Args    [][]string
}

// Arg returns the i-th optional field, or nil.
func (s *Statement) Arg(i int) []string {
	if i < len(s.Args) {
		return s.Args[i]
	}
	return nil
}

// Parser tokenises Bubfiles, expanding ${NAME} variables from the options
// and honouring [tag]( ... ) conditional regions.
type Parser struct {
	opts         *options.Options
	conditionals map[string]bool
}

// New creates a parser over the given options and enabled condition tags.
func New(opts *options.Options, conditionals []string) *Parser {
	set := make(map[string]bool, len(conditionals))
	for _, c := range conditionals {
		set[c] = true
	}
	return &Parser{opts: opts, conditionals: set}
}

// ParseFile reads and parses the Bubfile at path.
func (p *Parser) ParseFile(path string) ([]Statement, error) {
	data, err := os.ReadFile(path) //nolint:gosec // build-dir file
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read Bubfile")
	}
	return p.Parse(path, string(data))
}

type token struct {
	text string
	line int
}

// Parse parses Bubfile content, attributing errors to path.
func (p *Parser) Parse(path, content string) ([]Statement, error) {
	tokens, err := p.lex(path, content)
	if err != nil {
		return nil, err
	}
	return p.assemble(path, tokens)
}

// lex splits the content into tokens. ':' and ';' are always their own
// tokens; '#' comments run to end of line; conditional regions are resolved
// here so the assembler never sees them.
func (p *Parser) lex(path, content string) ([]token, error) {
	var raw []token
	line := 1
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			raw = append(raw, token{text: cur.String(), line: line})
			cur.Reset()
		}
	}
	inComment := false
	for _, r := range content {
		if r == '\n' {
			flush()
			inComment = false
			line++
			continue
		}
		if inComment {
			continue
		}
		switch {
		case r == '#':
			flush()
			inComment = true
		case unicode.IsSpace(r):
			flush()
		case r == ':' || r == ';' || r == '(' || r == ')':
			flush()
			raw = append(raw, token{text: string(r), line: line})
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return p.filterConditionals(path, raw)
}

// filterConditionals resolves [tag]( ... ) regions. Regions do not nest and
// only whitespace may separate the ']' from the '('.
func (p *Parser) filterConditionals(path string, raw []token) ([]token, error) {
	var out []token
	for i := 0; i < len(raw); i++ {
		t := raw[i]
		if !strings.HasPrefix(t.text, "[") || !strings.HasSuffix(t.text, "]") {
			out = append(out, t)
			continue
		}
		tag := t.text[1 : len(t.text)-1]
		origin := domain.Origin{Path: path, Line: t.line}
		if i+1 >= len(raw) || raw[i+1].text != "(" {
			return nil, domain.WithOrigin(zerr.With(zerr.With(domain.ErrConfig,
				"reason", "conditional tag not followed by '('"), "tag", tag), origin)
		}
		i++ // consume '('
		keep := p.conditionals[tag]
		closed := false
		for i+1 <= len(raw)-1 {
			i++
			inner := raw[i]
			if inner.text == "(" {
				return nil, domain.WithOrigin(zerr.With(zerr.With(domain.ErrConfig,
					"reason", "nested conditional region"), "tag", tag), origin)
			}
			if inner.text == ")" {
				closed = true
				break
			}
			if keep {
				out = append(out, inner)
			}
		}
		if !closed {
			return nil, domain.WithOrigin(zerr.With(zerr.With(domain.ErrConfig,
				"reason", "unterminated conditional region"), "tag", tag), origin)
		}
	}
	return out, nil
}

// assemble groups tokens into statements, expanding variables.
func (p *Parser) assemble(path string, tokens []token) ([]Statement, error) {
	var stmts []Statement
	fields := [][]token{nil}
	start := 0
	for _, t := range tokens {
		switch t.text {
		case ":":
			fields = append(fields, nil)
		case ";":
			stmt, err := p.buildStatement(path, start, fields)
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				stmts = append(stmts, *stmt)
			}
			fields = [][]token{nil}
			start = 0
		default:
			if start == 0 {
				start = t.line
			}
			fields[len(fields)-1] = append(fields[len(fields)-1], t)
		}
	}
	if len(fields) > 1 || len(fields[0]) > 0 {
		origin := domain.Origin{Path: path, Line: start}
		return nil, domain.WithOrigin(zerr.With(domain.ErrConfig,
			"reason", "unterminated statement"), origin)
	}
	return stmts, nil
}

func (p *Parser) buildStatement(path string, line int, fields [][]token) (*Statement, error) {
	origin := domain.Origin{Path: path, Line: line}
	if len(fields) == 1 && len(fields[0]) == 0 {
		return nil, nil
	}
	if len(fields) > 4 {
		return nil, domain.WithOrigin(zerr.With(domain.ErrConfig,
			"reason", "statement has too many fields"), origin)
	}
	head := fields[0]
	if len(head) < 2 {
		return nil, domain.WithOrigin(zerr.With(domain.ErrConfig,
			"reason", "statement needs a rule and targets"), origin)
	}
	stmt := &Statement{
		Origin:  domain.Origin{Path: path, Line: head[0].line},
		Rule:    head[0].text,
		Targets: p.expand(head[1:]),
	}
	for _, f := range fields[1:] {
		stmt.Args = append(stmt.Args, p.expand(f))
	}
	return stmt, nil
}

// expand substitutes ${NAME} tokens from the options variables; each value
// becomes a separate token. Names not defined as variables pass through
// untouched so that builtins like ${INPUT} in generate commands survive
// until issue-time resolution.
func (p *Parser) expand(toks []token) []string {
	var out []string
	for _, t := range toks {
		if strings.HasPrefix(t.text, "${") && strings.HasSuffix(t.text, "}") {
			if values, ok := p.opts.Vars[t.text[2:len(t.text)-1]]; ok {
				out = append(out, values...)
				continue
			}
		}
		out = append(out, t.text)
	}
	if out == nil {
		return []string{}
	}
	return out
}
