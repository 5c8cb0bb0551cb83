package dbrow

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		tag  int32
		raw  []byte
		want string
		kind Kind
	}{
		{"integer", wcf.FieldInteger, []byte("42"), `42`, Int},
		{"negative integer", wcf.FieldInteger, []byte("-7"), `-7`, Int},
		{"integer not a number", wcf.FieldInteger, []byte("abc"), `null`, None},
		{"integer empty", wcf.FieldInteger, nil, `null`, None},
		{"integer overflow", wcf.FieldInteger, []byte("99999999999999999999"), `null`, None},
		{"float", wcf.FieldFloat, []byte("3.14"), `3.14`, Float},
		{"float not a number", wcf.FieldFloat, []byte("x"), `null`, None},
		{"float NaN", wcf.FieldFloat, []byte("NaN"), `null`, Float},
		{"text", wcf.FieldText, []byte("hello"), `"hello"`, Utf8String},
		{"text chinese", wcf.FieldText, []byte("文件传输助手"), `"文件传输助手"`, Utf8String},
		{"text invalid utf8", wcf.FieldText, []byte{0xff, 0xfe}, `""`, Utf8String},
		{"blob", wcf.FieldBlob, []byte{0, 1, 2}, `"AAEC"`, Base64String},
		{"blob empty", wcf.FieldBlob, []byte{}, `""`, Base64String},
		{"null", wcf.FieldNull, nil, `null`, None},
		{"unknown tag", 99, []byte("42"), `null`, None},
		{"zero tag", 0, []byte("42"), `null`, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Convert(tt.tag, tt.raw)
			if v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tt.kind)
			}
			got, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if n, ok := Convert(wcf.FieldInteger, []byte("42")).Int(); !ok || n != 42 {
		t.Errorf("Int() = (%d, %v)", n, ok)
	}
	if f, ok := Convert(wcf.FieldFloat, []byte("3.14")).Float(); !ok || f != 3.14 {
		t.Errorf("Float() = (%v, %v)", f, ok)
	}
	if _, ok := Convert(wcf.FieldText, []byte("1")).Int(); ok {
		t.Error("text value reported as Int")
	}
	if s := Convert(wcf.FieldBlob, []byte{0, 1, 2}).String(); s != "AAEC" {
		t.Errorf("String() = %q", s)
	}
	if v := FloatValue(math.Inf(1)); v.Kind() != Float {
		t.Errorf("Kind() = %v", v.Kind())
	}
}

func TestRow_OrderAndLastWriteWins(t *testing.T) {
	row := FromDbRow(wcf.DbRow{Fields: []wcf.DbField{
		{Type: wcf.FieldText, Column: "UserName", Content: []byte("wxid_a")},
		{Type: wcf.FieldInteger, Column: "Type", Content: []byte("1")},
		{Type: wcf.FieldText, Column: "Remark", Content: []byte("old")},
		{Type: wcf.FieldInteger, Column: "Type", Content: []byte("3")},
	}})

	if row.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", row.Len())
	}
	got, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"UserName":"wxid_a","Type":3,"Remark":"old"}`
	if string(got) != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	if v, ok := row.Get("Type"); !ok || v.Kind() != Int {
		t.Errorf("Get(Type) = (%v, %v)", v, ok)
	}
	if _, ok := row.Get("Missing"); ok {
		t.Error("Get(Missing) reported present")
	}
}

func TestFromDbRows(t *testing.T) {
	rows := FromDbRows([]wcf.DbRow{
		{Fields: []wcf.DbField{{Type: wcf.FieldInteger, Column: "n", Content: []byte("1")}}},
		{Fields: []wcf.DbField{{Type: wcf.FieldInteger, Column: "n", Content: []byte("2")}}},
		{},
	})

	got, err := json.Marshal(rows)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != `[{"n":1},{"n":2},{}]` {
		t.Errorf("Marshal() = %s", got)
	}

	empty, _ := json.Marshal(FromDbRows(nil))
	if string(empty) != `[]` {
		t.Errorf("empty result = %s, want []", empty)
	}
}

func TestRow_EscapesColumnNames(t *testing.T) {
	var row Row
	row.Set(`a"b`, StringValue("x"))
	got, _ := json.Marshal(row)
	if string(got) != `{"a\"b":"x"}` {
		t.Errorf("Marshal() = %s", got)
	}
}
