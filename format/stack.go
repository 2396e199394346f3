package format

import (
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Stack is the list of suffixes of a file name, innermost first:
// "brain.nii.gz" has the stack [nii gz].
type Stack []string

func foldSuffix(s string) string {
	return cases.Fold().String(strings.TrimPrefix(s, "."))
}

// StackOf returns the folded suffixes of the base name of path.
func StackOf(path string) Stack {
	parts := strings.Split(filepath.Base(path), ".")
	if len(parts) < 2 {
		return Stack{}
	}
	out := make(Stack, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p != "" {
			out = append(out, foldSuffix(p))
		}
	}
	return out
}

// ParseStack splits a dotted suffix list such as "tar.gz".
func ParseStack(suffixes string) Stack {
	return StackOf("x." + strings.TrimPrefix(suffixes, "."))
}

// Pop removes the outermost suffix.
func (s Stack) Pop() Stack {
	if len(s) == 0 {
		return s
	}
	return slices.Clone(s[:len(s)-1])
}

// Last returns the outermost suffix or "".
func (s Stack) Last() string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// Candidates returns the joined tails of s, longest first: [tar gz] gives
// "tar.gz" then "gz".
func (s Stack) Candidates() []string {
	out := make([]string, 0, len(s))
	for i := range s {
		out = append(out, strings.Join(s[i:], "."))
	}
	return out
}

// Equal reports whether s and o hold the same suffixes.
func (s Stack) Equal(o Stack) bool { return slices.Equal(s, o) }

func (s Stack) String() string { return strings.Join(s, ".") }
