package types

import (
	"strconv"
	"strings"
)

// SourceKind tags the entity a field or column was synthesized from
type SourceKind int

const (
	SourceStatic SourceKind = iota
	SourceRole
	SourceFunction
	SourceTrackerDate
)

// sourcePrefixes holds the id prefix of each synthesized kind.
// Longer prefixes come first so that matching is unambiguous.
var sourcePrefixes = []struct {
	kind   SourceKind
	prefix string
}{
	{SourceTrackerDate, "last_issue_date_for_tracker_"},
	{SourceFunction, "function_"},
	{SourceRole, "role_"},
}

func (k SourceKind) String() string {
	switch k {
	case SourceStatic:
		return "static"
	case SourceRole:
		return "role"
	case SourceFunction:
		return "function"
	case SourceTrackerDate:
		return "tracker_date"
	default:
		return "unknown"
	}
}

// Prefix returns the id prefix of synthesized ids of this kind
func (k SourceKind) Prefix() string {
	for _, p := range sourcePrefixes {
		if p.kind == k {
			return p.prefix
		}
	}
	return ""
}

// Source is a back-reference to the entity a field or column was generated
// from. Name is only used for captions.
type Source struct {
	Kind SourceKind
	ID   int64
	Name string
}

// IsStatic reports whether the source is a statically declared field
func (s Source) IsStatic() bool {
	return s.Kind == SourceStatic
}

// FieldID returns the synthesized id of the source
func (s Source) FieldID() string {
	return FormatSourceID(s.Kind, s.ID)
}

// FormatSourceID builds the synthesized id for an entity
func FormatSourceID(kind SourceKind, id int64) string {
	return kind.Prefix() + strconv.FormatInt(id, 10)
}

// ParseSourceID resolves a synthesized id back to its source entity.
//
// Ids that do not carry a dynamic prefix return matched == false and no
// error. Ids with a dynamic prefix but a suffix that is not the canonical
// decimal form of a positive id fail with *UnknownDynamicFieldError.
func ParseSourceID(fieldID string) (src Source, matched bool, err error) {
	for _, p := range sourcePrefixes {
		if !strings.HasPrefix(fieldID, p.prefix) {
			continue
		}
		suffix := strings.TrimPrefix(fieldID, p.prefix)
		id, parseErr := strconv.ParseInt(suffix, 10, 64)
		if parseErr != nil || id <= 0 || strconv.FormatInt(id, 10) != suffix {
			return Source{}, true, &UnknownDynamicFieldError{Field: fieldID}
		}
		return Source{Kind: p.kind, ID: id}, true, nil
	}
	return Source{Kind: SourceStatic}, false, nil
}
