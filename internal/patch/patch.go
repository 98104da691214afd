// Package patch turns a sparse update payload into a single field-level
// mutation.
//
// A Builder is declared once per record kind with the columns that may be
// mutated. Each request starts an Update, adds only the fields the caller
// explicitly provided, and finishes with Build, which always stamps
// updated_at and refuses to produce a mutation that changes nothing else.
package patch

import (
	"errors"
	"fmt"
	"time"
)

// UpdatedAtColumn is rewritten on every successful patch.
const UpdatedAtColumn = "updated_at"

// ErrNoFields is returned by Build when no whitelisted field was provided.
var ErrNoFields = errors.New("no fields to update")

// Assignment is one column = value pair of a Changeset.
type Assignment struct {
	Column string
	Value  any
}

// Changeset is an ordered set of column assignments ready to be applied as
// one atomic mutation.
type Changeset struct {
	assignments []Assignment
}

func (c Changeset) Assignments() []Assignment {
	out := make([]Assignment, len(c.assignments))
	copy(out, c.assignments)
	return out
}

func (c Changeset) Len() int {
	return len(c.assignments)
}

func (c Changeset) Value(column string) (any, bool) {
	for _, a := range c.assignments {
		if a.Column == column {
			return a.Value, true
		}
	}
	return nil, false
}

func (c Changeset) Has(column string) bool {
	_, ok := c.Value(column)
	return ok
}

// Builder describes the mutable columns of one record kind.
type Builder struct {
	fields    map[string]struct{}
	blobField string
	now       func() time.Time
}

type Option func(*Builder)

// WithBlobField marks the column holding a derived blob reference. It is the
// only column written through SetBlob and the only one compared against its
// stored value before being added.
func WithBlobField(column string) Option {
	return func(b *Builder) {
		b.blobField = column
		b.fields[column] = struct{}{}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

func NewBuilder(fields []string, opts ...Option) *Builder {
	b := &Builder{
		fields: make(map[string]struct{}, len(fields)),
		now:    time.Now,
	}
	for _, f := range fields {
		b.fields[f] = struct{}{}
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Allows reports whether column is in the whitelist.
func (b *Builder) Allows(column string) bool {
	_, ok := b.fields[column]
	return ok
}

// Start begins a new update against this record kind.
func (b *Builder) Start() *Update {
	return &Update{b: b}
}

// Update accumulates the assignments of a single patch request.
type Update struct {
	b   *Builder
	cs  Changeset
	err error
}

// Set adds column = *value when value is non-nil. A nil pointer means the
// field was absent from the payload; a pointer to a zero value is a real
// update (e.g. isActive=false).
func Set[T any](u *Update, column string, value *T) {
	if value == nil {
		return
	}
	u.SetValue(column, *value)
}

// SetFunc is Set with a conversion applied to the provided value, for columns
// whose storage representation differs from the payload type.
func SetFunc[T any](u *Update, column string, value *T, convert func(T) any) {
	if value == nil {
		return
	}
	u.SetValue(column, convert(*value))
}

// SetValue unconditionally adds column = value. Supplied fields are written
// even when equal to the stored value.
func (u *Update) SetValue(column string, value any) {
	if u.err != nil {
		return
	}
	if column == UpdatedAtColumn {
		u.err = fmt.Errorf("patch: %s is managed by the builder", UpdatedAtColumn)
		return
	}
	if column == u.b.blobField {
		u.err = fmt.Errorf("patch: %s must be set with SetBlob", column)
		return
	}
	if !u.b.Allows(column) {
		u.err = fmt.Errorf("patch: field %q is not mutable", column)
		return
	}
	u.put(column, value)
}

// SetBlob adds the blob reference column only when next is non-nil and differs
// from current.
func (u *Update) SetBlob(current, next *string) {
	if u.err != nil {
		return
	}
	if u.b.blobField == "" {
		u.err = errors.New("patch: builder has no blob field")
		return
	}
	if next == nil {
		return
	}
	if current != nil && *current == *next {
		return
	}
	u.put(u.b.blobField, *next)
}

func (u *Update) put(column string, value any) {
	for i := range u.cs.assignments {
		if u.cs.assignments[i].Column == column {
			u.cs.assignments[i].Value = value
			return
		}
	}
	u.cs.assignments = append(u.cs.assignments, Assignment{Column: column, Value: value})
}

// Build appends updated_at and returns the changeset, or ErrNoFields when it
// would contain nothing else.
func (u *Update) Build() (Changeset, error) {
	if u.err != nil {
		return Changeset{}, u.err
	}
	if len(u.cs.assignments) == 0 {
		return Changeset{}, ErrNoFields
	}
	out := Changeset{assignments: make([]Assignment, 0, len(u.cs.assignments)+1)}
	out.assignments = append(out.assignments, u.cs.assignments...)
	out.assignments = append(out.assignments, Assignment{Column: UpdatedAtColumn, Value: u.b.now().UTC()})
	return out, nil
}
