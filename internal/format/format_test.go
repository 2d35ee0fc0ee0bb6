package format

import (
	"encoding/json"
	"testing"
)

func TestJSONScalar(t *testing.T) {
	f := NewJSON()
	f.SetValue(42)
	got, err := f.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if got != "42" {
		t.Errorf("got %q, want 42", got)
	}
}

func TestJSONObjectOrderPreserved(t *testing.T) {
	f := NewJSON()
	f.BeginObject()
	f.SetMemberName("code")
	f.SetValue(0)
	f.SetMemberName("description")
	f.SetStringValue("success")
	f.SetMemberName("response")
	f.SetNullValue()
	f.EndObject()

	got, err := f.Generate()
	if err != nil {
		t.Fatal(err)
	}

	want := "{\n    \"code\": 0,\n    \"description\": \"success\",\n    \"response\": null\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJSONNestedArrayAndObject(t *testing.T) {
	f := NewJSON()
	f.BeginObject()
	f.SetMemberName("name")
	f.SetStringValue("pipeline0")
	f.SetMemberName("elements")
	f.BeginArray()
	f.SetStringValue("src")
	f.SetStringValue("sink")
	f.EndArray()
	f.EndObject()

	got, err := f.Generate()
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("generated output is not valid JSON: %v", err)
	}
	if decoded["name"] != "pipeline0" {
		t.Errorf("name = %v", decoded["name"])
	}
	elems, ok := decoded["elements"].([]any)
	if !ok || len(elems) != 2 {
		t.Fatalf("elements = %v", decoded["elements"])
	}
}

func TestJSONUnclosedFrameIsError(t *testing.T) {
	f := NewJSON()
	f.BeginObject()
	if _, err := f.Generate(); err == nil {
		t.Error("expected error for unclosed object frame")
	}
}
