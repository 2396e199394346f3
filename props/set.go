package props

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/robert-malhotra/go-volume/errs"
)

// Separator delimits the components of a path.
const Separator = "/"

// SplitPath breaks a path into its components, dropping empty ones, so
// "/a//b/" yields ["a", "b"].
func SplitPath(path string) []string {
	parts := strings.Split(path, Separator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinPath joins components into a path.
func JoinPath(parts ...string) string {
	return strings.Join(parts, Separator)
}

// fold returns the comparison key of a path component.
func fold(s string) string {
	return cases.Fold().String(s)
}

// FoldPath returns the case-folded form of path used to compare paths.
func FoldPath(path string) string {
	return fold(JoinPath(SplitPath(path)...))
}

type entry struct {
	name   string
	key    string
	value  *Value
	branch *Set
}

// Set is an ordered tree of properties. Leaves hold a Value, inner nodes
// are branches. Paths are slash-delimited and compared case-insensitively;
// insertion order is kept for display but never affects equality.
//
// The zero Set is empty and ready to use.
type Set struct {
	entries []*entry
}

// New returns an empty Set.
func New() *Set { return &Set{} }

func (s *Set) find(name string) *entry {
	key := fold(name)
	for _, e := range s.entries {
		if e.key == key {
			return e
		}
	}
	return nil
}

func (s *Set) add(name string) *entry {
	e := &entry{name: name, key: fold(name)}
	s.entries = append(s.entries, e)
	return e
}

// walk descends to the parent of the last component of path, creating
// branches when create is set.
func (s *Set) walk(op string, parts []string, create bool) (*Set, error) {
	cur := s
	for i, p := range parts {
		e := cur.find(p)
		switch {
		case e == nil && !create:
			return nil, nil
		case e == nil:
			e = cur.add(p)
			e.branch = &Set{}
		case e.branch == nil:
			return nil, errs.Coded(errs.ErrNotABranch, op, "%q holds a value", JoinPath(parts[:i+1]...))
		}
		cur = e.branch
	}
	return cur, nil
}

func (s *Set) leaf(path string) *entry {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return nil
	}
	parent, err := s.walk("", parts[:len(parts)-1], false)
	if err != nil || parent == nil {
		return nil
	}
	return parent.find(parts[len(parts)-1])
}

// Get returns the value at path. The returned pointer aliases the stored
// value.
func (s *Set) Get(path string) (*Value, bool) {
	e := s.leaf(path)
	if e == nil || e.value == nil {
		return nil, false
	}
	return e.value, true
}

// Has reports whether path holds a value.
func (s *Set) Has(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// HasBranch reports whether path is a branch.
func (s *Set) HasBranch(path string) bool {
	e := s.leaf(path)
	return e != nil && e.branch != nil
}

// Set stores a copy of v at path, creating branches along the way.
func (s *Set) Set(path string, v Value) error {
	p, err := s.Touch(path)
	if err != nil {
		return err
	}
	*p = v.Clone()
	return nil
}

// MustSet is Set for paths known not to collide with branches.
func (s *Set) MustSet(path string, v Value) *Set {
	if err := s.Set(path, v); err != nil {
		panic(err)
	}
	return s
}

// Touch returns the value at path, inserting an empty one if there is none.
func (s *Set) Touch(path string) (*Value, error) {
	const op = "props.Touch"
	parts := SplitPath(path)
	if len(parts) == 0 {
		return nil, errs.New(errs.KindRange, op, "empty path")
	}
	parent, err := s.walk(op, parts[:len(parts)-1], true)
	if err != nil {
		return nil, err
	}
	name := parts[len(parts)-1]
	e := parent.find(name)
	if e == nil {
		e = parent.add(name)
	}
	if e.branch != nil {
		return nil, errs.New(errs.KindStructural, op, "%q is a branch", JoinPath(parts...))
	}
	if e.value == nil {
		e.value = &Value{}
	}
	return e.value, nil
}

// Branch returns the nested Set at path, creating it if needed. It fails
// with NotABranch if a value is stored on the way.
func (s *Set) Branch(path string) (*Set, error) {
	return s.walk("props.Branch", SplitPath(path), true)
}

// Remove deletes the value or branch at path and reports whether anything
// was removed.
func (s *Set) Remove(path string) bool {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return false
	}
	parent, err := s.walk("", parts[:len(parts)-1], false)
	if err != nil || parent == nil {
		return false
	}
	key := fold(parts[len(parts)-1])
	for i, e := range parent.entries {
		if e.key == key {
			parent.entries = slices.Delete(parent.entries, i, i+1)
			return true
		}
	}
	return false
}

// Rename moves the value or branch at from to to and reports whether from
// existed. An existing entry at to is replaced.
func (s *Set) Rename(from, to string) (bool, error) {
	e := s.leaf(from)
	if e == nil {
		return false, nil
	}
	if FoldPath(from) == FoldPath(to) {
		return true, nil
	}
	parts := SplitPath(to)
	if len(parts) == 0 {
		return false, errs.New(errs.KindRange, "props.Rename", "empty destination path")
	}
	parent, err := s.walk("props.Rename", parts[:len(parts)-1], true)
	if err != nil {
		return false, err
	}
	s.Remove(from)
	name := parts[len(parts)-1]
	if old := parent.find(name); old != nil {
		parent.Remove(name)
	}
	moved := parent.add(name)
	moved.value, moved.branch = e.value, e.branch
	return true, nil
}

// Walk calls fn for every leaf in insertion order, depth first.
func (s *Set) Walk(fn func(path string, v *Value)) {
	s.walkPrefix("", fn)
}

func (s *Set) walkPrefix(prefix string, fn func(string, *Value)) {
	for _, e := range s.entries {
		path := e.name
		if prefix != "" {
			path = prefix + Separator + e.name
		}
		if e.branch != nil {
			e.branch.walkPrefix(path, fn)
			continue
		}
		fn(path, e.value)
	}
}

// Paths returns every leaf path in insertion order.
func (s *Set) Paths() []string {
	var out []string
	s.Walk(func(p string, _ *Value) { out = append(out, p) })
	return out
}

// Len returns the number of leaves.
func (s *Set) Len() int {
	n := 0
	s.Walk(func(string, *Value) { n++ })
	return n
}

// IsEmpty reports whether s has no leaves.
func (s *Set) IsEmpty() bool { return s.Len() == 0 }

// Clone returns a deep copy of s.
func (s *Set) Clone() *Set {
	out := &Set{entries: make([]*entry, 0, len(s.entries))}
	for _, e := range s.entries {
		c := &entry{name: e.name, key: e.key}
		if e.branch != nil {
			c.branch = e.branch.Clone()
		} else {
			v := e.value.Clone()
			c.value = &v
		}
		out.entries = append(out.entries, c)
	}
	return out
}

// DiffEntry is one differing path. Left or Right is nil when the path is
// absent on that side.
type DiffEntry struct {
	Left, Right *Value
}

// Diff returns every path whose value differs between s and other or that
// exists on one side only. Keys are folded paths, so a.Diff(b) and
// b.Diff(a) report the same keys.
func (s *Set) Diff(other *Set) map[string]DiffEntry {
	out := make(map[string]DiffEntry)
	mine := s.flatten()
	theirs := other.flatten()
	for k, v := range mine {
		o, ok := theirs[k]
		if !ok || !v.Equal(o) {
			out[k] = DiffEntry{Left: v, Right: o}
		}
	}
	for k, o := range theirs {
		if _, ok := mine[k]; !ok {
			out[k] = DiffEntry{Right: o}
		}
	}
	return out
}

// Equal reports whether s and other hold the same paths and values.
func (s *Set) Equal(other *Set) bool {
	return len(s.Diff(other)) == 0
}

func (s *Set) flatten() map[string]*Value {
	out := make(map[string]*Value)
	if s == nil {
		return out
	}
	s.Walk(func(p string, v *Value) { out[FoldPath(p)] = v })
	return out
}

// Join merges other into s. Paths missing from s are copied. A path whose
// value differs is replaced when overwrite is set and reported in rejected
// otherwise.
func (s *Set) Join(other *Set, overwrite bool) (rejected []string) {
	other.Walk(func(p string, v *Value) {
		cur, ok := s.Get(p)
		if ok && cur.Equal(v) {
			return
		}
		if ok && !overwrite {
			rejected = append(rejected, p)
			return
		}
		if err := s.Set(p, *v); err != nil {
			rejected = append(rejected, p)
		}
	})
	return rejected
}

// IsSufficient reports whether every path in required holds a non-empty
// value.
func (s *Set) IsSufficient(required []string) bool {
	return len(s.Missing(required)) == 0
}

// Missing returns the required paths that are absent or empty.
func (s *Set) Missing(required []string) []string {
	var out []string
	for _, p := range required {
		if v, ok := s.Get(p); !ok || v.IsEmpty() {
			out = append(out, p)
		}
	}
	return out
}

// SetNeeded flags the values at paths as needed, creating empty values for
// absent paths.
func (s *Set) SetNeeded(paths ...string) error {
	for _, p := range paths {
		v, err := s.Touch(p)
		if err != nil {
			return err
		}
		v.Needed = true
	}
	return nil
}

// NeededPaths returns the paths flagged as needed.
func (s *Set) NeededPaths() []string {
	var out []string
	s.Walk(func(p string, v *Value) {
		if v.Needed {
			out = append(out, p)
		}
	})
	return out
}

// Splice returns n copies of s. List values of exactly n items are
// distributed one item per copy; everything else is copied whole.
func (s *Set) Splice(n int) []*Set {
	out := make([]*Set, n)
	for i := range out {
		out[i] = s.Clone()
	}
	if n < 2 {
		return out
	}
	s.Walk(func(p string, v *Value) {
		if v.Len() != n {
			return
		}
		for i, c := range out {
			c.Set(p, v.At(i))
		}
	})
	return out
}

// Common returns the properties present with equal values in s and all of
// others.
func (s *Set) Common(others ...*Set) *Set {
	out := New()
	s.Walk(func(p string, v *Value) {
		for _, o := range others {
			ov, ok := o.Get(p)
			if !ok || !ov.Equal(v) {
				return
			}
		}
		out.Set(p, *v)
	})
	return out
}

// Subtract removes every path of other from s.
func (s *Set) Subtract(other *Set) {
	other.Walk(func(p string, _ *Value) { s.Remove(p) })
}

// Filter returns the subset of s whose paths match keep.
func (s *Set) Filter(keep func(path string) bool) *Set {
	out := New()
	s.Walk(func(p string, v *Value) {
		if keep(p) {
			out.Set(p, *v)
		}
	})
	return out
}

func (s *Set) String() string {
	var b strings.Builder
	s.Walk(func(p string, v *Value) {
		b.WriteString(p)
		b.WriteString(": ")
		b.WriteString(v.String())
		b.WriteByte('\n')
	})
	return b.String()
}
