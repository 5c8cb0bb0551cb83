// Package dbrow converts backend query rows into typed JSON values.
//
// The backend reports each column as a SQLite type tag plus raw bytes.
// Values are marshalled untagged: a number, a string or null. Consumers
// cannot tell a TEXT column from a base64 BLOB by shape alone; they are
// expected to know their schema.
package dbrow

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	None Kind = iota
	Int
	Float
	Utf8String
	Base64String
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Utf8String:
		return "utf8"
	case Base64String:
		return "base64"
	default:
		return "none"
	}
}

// Value is one typed field. The zero Value is None.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// IntValue returns an Int value.
func IntValue(v int64) Value { return Value{kind: Int, i: v} }

// FloatValue returns a Float value.
func FloatValue(v float64) Value { return Value{kind: Float, f: v} }

// StringValue returns a Utf8String value.
func StringValue(v string) Value { return Value{kind: Utf8String, s: v} }

// Base64Value returns a Base64String value holding the encoding of raw.
func Base64Value(raw []byte) Value {
	return Value{kind: Base64String, s: base64.StdEncoding.EncodeToString(raw)}
}

// Kind returns the variant.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer and whether v is an Int.
func (v Value) Int() (int64, bool) { return v.i, v.kind == Int }

// Float returns the float and whether v is a Float.
func (v Value) Float() (float64, bool) { return v.f, v.kind == Float }

// String returns the string held by a Utf8String or Base64String value,
// and "" otherwise.
func (v Value) String() string { return v.s }

// MarshalJSON renders the bare scalar. Non-finite floats, which JSON cannot
// represent, become null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Int:
		return strconv.AppendInt(nil, v.i, 10), nil
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.f)
	case Utf8String, Base64String:
		return json.Marshal(v.s)
	default:
		return []byte("null"), nil
	}
}

// Convert maps one backend field to its typed value. It is total: unknown
// tags and unparseable numbers yield None.
func Convert(tag int32, raw []byte) Value {
	switch tag {
	case wcf.FieldInteger:
		n, err := strconv.ParseInt(utf8Text(raw), 10, 64)
		if err != nil {
			return Value{}
		}
		return IntValue(n)
	case wcf.FieldFloat:
		f, err := strconv.ParseFloat(utf8Text(raw), 64)
		if err != nil {
			return Value{}
		}
		return FloatValue(f)
	case wcf.FieldText:
		return StringValue(utf8Text(raw))
	case wcf.FieldBlob:
		return Base64Value(raw)
	default:
		return Value{}
	}
}

// utf8Text returns raw as a string, or "" if it is not valid UTF-8.
func utf8Text(raw []byte) string {
	if !utf8.Valid(raw) {
		return ""
	}
	return string(raw)
}

// Field is one named column of a Row.
type Field struct {
	Column string
	Value  Value
}

// Row is a query row. Columns are unique; order is first appearance.
type Row struct {
	fields []Field
	index  map[string]int
}

// Set stores value under column. Setting an existing column replaces its
// value and keeps its position.
func (r *Row) Set(column string, value Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[column]; ok {
		r.fields[i].Value = value
		return
	}
	r.index[column] = len(r.fields)
	r.fields = append(r.fields, Field{Column: column, Value: value})
}

// Get returns the value of column.
func (r *Row) Get(column string) (Value, bool) {
	i, ok := r.index[column]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.fields) }

// Fields returns the columns in order.
func (r *Row) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

// MarshalJSON renders the row as an object keyed by column.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromDbRow converts one backend row. Duplicate columns keep the last value.
func FromDbRow(row wcf.DbRow) Row {
	var r Row
	for _, f := range row.Fields {
		r.Set(f.Column, Convert(f.Type, f.Content))
	}
	return r
}

// FromDbRows converts a query result, preserving row order. The result is
// never nil so an empty result marshals as [].
func FromDbRows(rows []wcf.DbRow) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDbRow(row))
	}
	return out
}
