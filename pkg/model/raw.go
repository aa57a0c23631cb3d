package model

import "time"

// RawFields is the loosely-structured output of a whois parse: field name to
// value, where a value may be a string, an already-parsed timestamp, or a
// list of either. The union never travels past the normalizer.
type RawFields map[string]FieldValue

type valueKind int

const (
	kindAbsent valueKind = iota
	kindString
	kindTime
	kindList
)

// FieldValue is a closed scalar-or-timestamp-or-list union. The zero value
// means the field was absent from the lookup.
type FieldValue struct {
	kind valueKind
	str  string
	ts   time.Time
	list []FieldValue
}

func StringValue(s string) FieldValue {
	return FieldValue{kind: kindString, str: s}
}

func TimeValue(t time.Time) FieldValue {
	return FieldValue{kind: kindTime, ts: t}
}

func ListValue(vs ...FieldValue) FieldValue {
	return FieldValue{kind: kindList, list: vs}
}

func StringListValue(ss ...string) FieldValue {
	vs := make([]FieldValue, 0, len(ss))
	for _, s := range ss {
		vs = append(vs, StringValue(s))
	}
	return FieldValue{kind: kindList, list: vs}
}

func (v FieldValue) IsAbsent() bool {
	return v.kind == kindAbsent
}

func (v FieldValue) IsList() bool {
	return v.kind == kindList
}

// AsTime reports the value as a timestamp, if it is one.
func (v FieldValue) AsTime() (time.Time, bool) {
	return v.ts, v.kind == kindTime
}

// AsString reports the value as a scalar string, if it is one.
func (v FieldValue) AsString() (string, bool) {
	return v.str, v.kind == kindString
}

// Items flattens the value to a slice: lists yield their elements, scalars
// yield themselves, absent values yield nothing.
func (v FieldValue) Items() []FieldValue {
	switch v.kind {
	case kindAbsent:
		return nil
	case kindList:
		return v.list
	default:
		return []FieldValue{v}
	}
}
