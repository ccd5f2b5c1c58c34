package schema

import "testing"

func TestAccepts(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		want     string
		expected bool
	}{
		{"exact match", "cspx.error/v1", "cspx.error/v1", true},
		{"minor version", "cspx.error/v1.1", "cspx.error/v1", true},
		{"patch version", "cspx.result/v1.0.1", "cspx.result/v1", true},
		{"major mismatch", "cspx.error/v2", "cspx.error/v1", false},
		{"different schema", "cspx.summary/v1", "cspx.error/v1", false},
		{"missing version", "cspx.error", "cspx.error/v1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Accepts(tt.got, tt.want); got != tt.expected {
				t.Errorf("Accepts(%q, %q) = %v, want %v", tt.got, tt.want, got, tt.expected)
			}
		})
	}
}

func TestMarshalDeterministic(t *testing.T) {
	data := map[string]interface{}{
		"zebra":  "last",
		"alpha":  "first",
		"middle": "middle",
	}

	result, err := MarshalDeterministic(data)
	if err != nil {
		t.Fatalf("MarshalDeterministic failed: %v", err)
	}

	expected := `{"alpha":"first","middle":"middle","zebra":"last"}`
	if string(result) != expected {
		t.Errorf("got %s, want %s", string(result), expected)
	}
}

func TestMarshalDeterministic_Nested(t *testing.T) {
	data := map[string]interface{}{
		"outer2": map[string]interface{}{
			"inner2": 2,
			"inner1": 1,
		},
		"outer1": "value",
	}

	result, err := MarshalDeterministic(data)
	if err != nil {
		t.Fatalf("MarshalDeterministic failed: %v", err)
	}

	expected := `{"outer1":"value","outer2":{"inner1":1,"inner2":2}}`
	if string(result) != expected {
		t.Errorf("got %s, want %s", string(result), expected)
	}
}

func TestMarshalDeterministic_Repeatable(t *testing.T) {
	data := map[string]interface{}{
		"c": 3, "b": 2, "a": 1,
	}
	first, err := MarshalDeterministic(data)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := MarshalDeterministic(data)
		if err != nil {
			t.Fatal(err)
		}
		if string(again) != string(first) {
			t.Fatalf("non-deterministic marshal across repeated calls")
		}
	}
}
