package value

import (
	"encoding/json"
	"math"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	cases := []Value{
		Null(),
		Bool(true),
		Bool(false),
		Number(3.25),
		Int(-42),
		String(""),
		String("hello world"),
		Array(),
		Array(Int(1), String("two"), Null()),
		Object(map[string]Value{}),
		Object(map[string]Value{
			"debug": Bool(true),
			"port":  Int(8080),
			"tags":  Array(String("a"), String("b")),
			"meta":  Object(map[string]Value{"nested": Null()}),
		}),
	}

	for _, v := range cases {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Errorf("Marshal(%s) failed: %v", v, err)
			continue
		}

		var back Value
		if err := json.Unmarshal(raw, &back); err != nil {
			t.Errorf("Unmarshal(%s) failed: %v", raw, err)
			continue
		}

		if !v.Equal(back) {
			t.Errorf("round-trip changed value: %s -> %s -> %s", v, raw, back)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		literal string
		want    Value
	}{
		{"42", Int(42)},
		{"-3.5", Number(-3.5)},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"null", Null()},
		{`"quoted"`, String("quoted")},
		{`{"debug": true, "port": 8080}`, Object(map[string]Value{"debug": Bool(true), "port": Int(8080)})},
		{`[1, 2, 3]`, Array(Int(1), Int(2), Int(3))},
		// anything that is not valid JSON is a plain string
		{"plain text", String("plain text")},
		{"active", String("active")},
		{"user:1", String("user:1")},
		{"{broken json", String("{broken json")},
	}

	for _, c := range cases {
		got := Parse(c.literal)
		if !got.Equal(c.want) {
			t.Errorf("Parse(%q) = %s, want %s", c.literal, got, c.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []Value{
		Null(),
		Number(1e308),
		Array(Int(1), Object(map[string]Value{"k": Number(0)})),
	}
	for _, v := range valid {
		if err := v.Validate(); err != nil {
			t.Errorf("Validate(%s) failed: %v", v, err)
		}
	}

	invalid := []Value{
		Number(math.NaN()),
		Number(math.Inf(1)),
		Number(math.Inf(-1)),
		Array(Int(1), Number(math.NaN())),
		Object(map[string]Value{"bad": Number(math.Inf(1))}),
	}
	for _, v := range invalid {
		if err := v.Validate(); err == nil {
			t.Errorf("Validate accepted a non-serializable number")
		}
	}
}

func TestEqual(t *testing.T) {
	if !Int(1).Equal(Number(1)) {
		t.Errorf("Int(1) and Number(1) must compare equal")
	}
	if Int(1).Equal(String("1")) {
		t.Errorf("values of different kinds must not compare equal")
	}
	if Array(Int(1)).Equal(Array(Int(1), Int(2))) {
		t.Errorf("arrays of different length must not compare equal")
	}
	if Object(map[string]Value{"a": Int(1)}).Equal(Object(map[string]Value{"b": Int(1)})) {
		t.Errorf("objects with different keys must not compare equal")
	}
}

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() {
		t.Errorf("the zero Value must be null")
	}
	if v.Kind() != KindNull {
		t.Errorf("Kind of zero Value = %v, want null", v.Kind())
	}
}

func TestString(t *testing.T) {
	v := Object(map[string]Value{"b": Int(2), "a": Int(1)})
	// object keys are sorted for stable display
	if got := v.String(); got != `{"a":1,"b":2}` {
		t.Errorf("String() = %s", got)
	}
	if got := String("x").String(); got != `"x"` {
		t.Errorf("String() of a string = %s", got)
	}
}
