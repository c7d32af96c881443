package bytecode

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleFunction() Function {
	return Function{
		LocalVars: 1,
		Instructions: []Instruction{
			{Kind: Push, Operands: []int{41}},
			{Kind: Push, Operands: []int{1}},
			{Kind: Add},
			{Kind: StLocal, Operands: []int{0}},
			{Kind: LdLocal, Operands: []int{0}},
			{Kind: Ret},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	fn := sampleFunction()

	data, err := Encode(fn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.LocalVars != fn.LocalVars {
		t.Fatalf("LocalVars = %d, want %d", got.LocalVars, fn.LocalVars)
	}

	if len(got.Instructions) != len(fn.Instructions) {
		t.Fatalf("len(Instructions) = %d, want %d", len(got.Instructions), len(fn.Instructions))
	}

	for i, ins := range fn.Instructions {
		if got.Instructions[i].Kind != ins.Kind {
			t.Errorf("instruction %d: kind = %s, want %s", i, got.Instructions[i].Kind, ins.Kind)
		}

		if len(got.Instructions[i].Operands) != len(ins.Operands) {
			t.Errorf("instruction %d: operands = %v, want %v", i, got.Instructions[i].Operands, ins.Operands)
		}
	}
}

func TestLoadRoundTripThroughFile(t *testing.T) {
	fn := sampleFunction()

	data, err := Encode(fn)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	path := filepath.Join(t.TempDir(), "prog.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.LocalVars != fn.LocalVars {
		t.Fatalf("LocalVars = %d, want %d", got.LocalVars, fn.LocalVars)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Load of a missing file: want error, got nil")
	}
}

func TestDecodeRejectsMissingFormatVersion(t *testing.T) {
	_, err := Decode([]byte(`{"local_vars": 0, "instructions": []}`))
	if err == nil {
		t.Fatal("Decode with no format_version: want error, got nil")
	}
}

func TestDecodeRejectsIncompatibleFormatVersion(t *testing.T) {
	_, err := Decode([]byte(`{"format_version": "2.0.0", "local_vars": 0, "instructions": []}`))
	if err == nil {
		t.Fatal("Decode with an incompatible major version: want error, got nil")
	}
}

func TestDecodeRejectsMalformedFormatVersion(t *testing.T) {
	_, err := Decode([]byte(`{"format_version": "not-a-version", "local_vars": 0, "instructions": []}`))
	if err == nil {
		t.Fatal("Decode with an unparseable format_version: want error, got nil")
	}
}

func TestDecodeAcceptsCompatiblePatchVersion(t *testing.T) {
	_, err := Decode([]byte(`{"format_version": "1.0.1", "local_vars": 0, "instructions": []}`))
	if err != nil {
		t.Fatalf("Decode with a compatible patch version: %v", err)
	}
}

func TestDecodeRejectsUnknownInstructionKind(t *testing.T) {
	_, err := Decode([]byte(`{"format_version": "1.0.0", "local_vars": 0, "instructions": [{"kind": "Nope", "operands": []}]}`))
	if err == nil {
		t.Fatal("Decode with an unknown instruction kind: want error, got nil")
	}
}

func TestParseInstrKind(t *testing.T) {
	for _, k := range []InstrKind{LdLocal, StLocal, Push, Pop, Add, Sub, Mul, Div, Eq, Jmp, Branch, Ret} {
		got, ok := ParseInstrKind(k.String())
		if !ok {
			t.Errorf("ParseInstrKind(%q): not ok", k.String())
		}

		if got != k {
			t.Errorf("ParseInstrKind(%q) = %v, want %v", k.String(), got, k)
		}
	}

	if _, ok := ParseInstrKind("Bogus"); ok {
		t.Error(`ParseInstrKind("Bogus"): want not ok`)
	}
}
