package query

import (
	sq "github.com/Masterminds/squirrel"
)

// Fragment is the predicate contributed by one filter field
type Fragment struct {
	Field string
	sq.Sqlizer
}

// Predicate is the AND composition of the fragments of a filter set.
// It implements squirrel.Sqlizer so it can be handed to any squirrel
// builder, e.g. a SELECT over the projects table.
type Predicate struct {
	fragments []Fragment
}

// Fragments returns the fragments in filter insertion order
func (p *Predicate) Fragments() []Fragment {
	return p.fragments
}

// Empty reports whether no filter contributed a fragment
func (p *Predicate) Empty() bool {
	return len(p.fragments) == 0
}

// ToSql renders the predicate. An empty predicate renders the
// squirrel tautology "(1=1)".
func (p *Predicate) ToSql() (string, []interface{}, error) {
	and := make(sq.And, 0, len(p.fragments))
	for _, f := range p.fragments {
		and = append(and, f.Sqlizer)
	}
	return and.ToSql()
}

func (p *Predicate) add(field string, s sq.Sqlizer) {
	p.fragments = append(p.fragments, Fragment{Field: field, Sqlizer: s})
}
