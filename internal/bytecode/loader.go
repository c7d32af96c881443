package bytecode

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the format_version this loader emits and the baseline
// it checks loaded files against.
const FormatVersion = "1.0.0"

// SupportedConstraint is the range of bytecode format versions this
// package can load. Bumped only on a breaking change to the JSON shape,
// the same way the teacher's package manager pins a semver range for
// dependency compatibility rather than an exact version.
const SupportedConstraint = "^1.0.0"

type jsonInstruction struct {
	Kind     string `json:"kind"`
	Operands []int  `json:"operands"`
}

type jsonFunction struct {
	FormatVersion string            `json:"format_version"`
	LocalVars     int               `json:"local_vars"`
	Instructions  []jsonInstruction `json:"instructions"`
}

// Load reads and decodes a bytecode.Function from a JSON file, rejecting
// any file whose format_version doesn't satisfy SupportedConstraint.
func Load(path string) (Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Function{}, fmt.Errorf("bytecode: read %s: %w", path, err)
	}

	return Decode(data)
}

// Decode parses a JSON-encoded bytecode.Function from data.
func Decode(data []byte) (Function, error) {
	var jf jsonFunction
	if err := json.Unmarshal(data, &jf); err != nil {
		return Function{}, fmt.Errorf("bytecode: decode: %w", err)
	}

	if err := checkFormatVersion(jf.FormatVersion); err != nil {
		return Function{}, err
	}

	fn := Function{LocalVars: jf.LocalVars, Instructions: make([]Instruction, len(jf.Instructions))}

	for i, ji := range jf.Instructions {
		kind, ok := ParseInstrKind(ji.Kind)
		if !ok {
			return Function{}, fmt.Errorf("bytecode: instruction %d: unknown kind %q", i, ji.Kind)
		}

		fn.Instructions[i] = Instruction{Kind: kind, Operands: ji.Operands}
	}

	return fn, nil
}

// Encode serializes fn as JSON, stamped with FormatVersion.
func Encode(fn Function) ([]byte, error) {
	jf := jsonFunction{
		FormatVersion: FormatVersion,
		LocalVars:     fn.LocalVars,
		Instructions:  make([]jsonInstruction, len(fn.Instructions)),
	}

	for i, ins := range fn.Instructions {
		jf.Instructions[i] = jsonInstruction{Kind: ins.Kind.String(), Operands: ins.Operands}
	}

	return json.MarshalIndent(jf, "", "  ")
}

func checkFormatVersion(v string) error {
	if v == "" {
		return fmt.Errorf("bytecode: missing format_version field")
	}

	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("bytecode: invalid format_version %q: %w", v, err)
	}

	constraint, err := semver.NewConstraint(SupportedConstraint)
	if err != nil {
		// SupportedConstraint is a package-level constant; a parse
		// failure here is a programming error, not a loader failure.
		panic(fmt.Sprintf("bytecode: invalid SupportedConstraint %q: %v", SupportedConstraint, err))
	}

	if !constraint.Check(sv) {
		return fmt.Errorf("bytecode: format_version %s does not satisfy %s", v, SupportedConstraint)
	}

	return nil
}
