package options

import "strings"

// Builtin variable names provided by the caller at resolution time.
const (
	VarInput  = "INPUT"
	VarOutput = "OUTPUT"
	VarDeps   = "DEPS"
	VarLibs   = "LIBS"
)

// Resolve expands a command template. The command is tokenised on
// whitespace; each ${NAME} occurrence with prefix P and suffix S emits
// "P<value>S" for every value in the list, space separated. NAME is looked
// up in builtins first, then the options variables; undefined names expand
// to nothing, and an empty value list drops the token.
func (o *Options) Resolve(command string, builtins map[string][]string) string {
	var out []string
	for _, token := range strings.Fields(command) {
		out = append(out, o.resolveToken(token, builtins)...)
	}
	return strings.Join(out, " ")
}

func (o *Options) resolveToken(token string, builtins map[string][]string) []string {
	start := strings.Index(token, "${")
	if start < 0 {
		return []string{token}
	}
	end := strings.Index(token[start:], "}")
	if end < 0 {
		return []string{token}
	}
	end += start

	prefix := token[:start]
	name := token[start+2 : end]
	suffix := token[end+1:]

	values, ok := builtins[name]
	if !ok {
		values = o.Vars[name]
	}

	var out []string
	for _, v := range values {
		// The suffix may itself contain a further fence.
		out = append(out, o.resolveToken(prefix+v+suffix, builtins)...)
	}
	return out
}
