package catalog

import "testing"

func TestFunctionLookups(t *testing.T) {
	if len(Functions) != 20 {
		t.Fatalf("built-in effect count = %d, want 20", len(Functions))
	}

	for _, f := range Functions {
		id, ok := FunctionID(f.Name)
		if !ok || id != f.ID {
			t.Errorf("FunctionID(%q) = 0x%02x, %v; want 0x%02x", f.Name, id, ok, f.ID)
		}
		name, ok := FunctionName(f.ID)
		if !ok || name != f.Name {
			t.Errorf("FunctionName(0x%02x) = %q, %v; want %q", f.ID, name, ok, f.Name)
		}
	}

	if _, ok := FunctionID("sparkle"); ok {
		t.Error("unknown name resolved to an id")
	}
	if _, ok := FunctionName(0x99); ok {
		t.Error("unknown id resolved to a name")
	}
}

func TestFunctionNamesOrder(t *testing.T) {
	names := FunctionNames()
	if len(names) != len(Functions) {
		t.Fatalf("names length = %d, want %d", len(names), len(Functions))
	}
	for i, f := range Functions {
		if names[i] != f.Name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], f.Name)
		}
	}
}

func TestLookupCommand(t *testing.T) {
	spec, ok := LookupCommand("hello")
	if !ok {
		t.Fatal("hello spec missing")
	}
	if !spec.Literal || spec.Template != DefaultHello {
		t.Errorf("hello spec = %+v", spec)
	}

	spec, ok = LookupCommand("network_params")
	if !ok {
		t.Fatal("network_params spec missing")
	}
	if spec.Literal {
		t.Error("network_params must be framed, not literal")
	}
	if spec.GetParse != ParseArray {
		t.Errorf("network_params get parse = %v, want array", spec.GetParse)
	}

	if _, ok := LookupCommand("bogus"); ok {
		t.Error("unknown command resolved")
	}
}
