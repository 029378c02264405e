package main

import (
	"encoding/json"
	"fmt"

	"pyretro/pkg/pyc"
)

// fixtureFile is the JSON shape cmd/pyretro reads in place of a real
// bytecode container reader (out of scope, per SPEC_FULL.md §2): enough of
// a Code/Module pair, spelled by mnemonic instead of raw bytes, to drive
// pkg/decompiler end to end.
type fixtureFile struct {
	Major int `json:"major"`
	Minor int `json:"minor"`

	Instructions []fixtureInstr    `json:"instructions"`
	Names        []string          `json:"names"`
	VarNames     []string          `json:"varNames"`
	Consts       []json.RawMessage `json:"consts"`
	ArgCount     int               `json:"argCount"`
	StackSize    int               `json:"stackSize"`
	Encoding     string            `json:"encoding"`

	StrictComprehensions bool `json:"strictComprehensions"`
}

type fixtureInstr struct {
	Op  string `json:"op"`
	Arg int    `json:"arg"`
}

// bytesConst is the one non-native const shape: a run of raw byte values,
// for exercising pkg/textenc's legacy-codec path from a plain-ASCII JSON
// fixture file. Bytes is []int rather than []byte since encoding/json
// treats a []byte field as base64 text, not an array of small integers.
type bytesConst struct {
	Bytes []int `json:"bytes"`
}

func loadFixture(data []byte) (*pyc.FixtureCode, pyc.FixtureModule, error) {
	var f fixtureFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, pyc.FixtureModule{}, fmt.Errorf("parsing fixture: %w", err)
	}

	instrs, err := resolveInstructions(f.Instructions)
	if err != nil {
		return nil, pyc.FixtureModule{}, err
	}

	consts := make([]any, len(f.Consts))
	for i, raw := range f.Consts {
		v, err := decodeConst(raw)
		if err != nil {
			return nil, pyc.FixtureModule{}, fmt.Errorf("const %d: %w", i, err)
		}
		consts[i] = v
	}

	code := &pyc.FixtureCode{
		Instructions: pyc.Assemble(instrs),
		NStackSize:   f.StackSize,
		NArgCount:    f.ArgCount,
		Names:        f.Names,
		VarNames:     f.VarNames,
		Consts:       consts,
		Codec:        f.Encoding,
	}
	mod := pyc.FixtureModule{Major: f.Major, Minor: f.Minor}
	return code, mod, nil
}

func decodeConst(raw json.RawMessage) (any, error) {
	var bc bytesConst
	if err := json.Unmarshal(raw, &bc); err == nil && bc.Bytes != nil {
		out := make([]byte, len(bc.Bytes))
		for i, v := range bc.Bytes {
			out[i] = byte(v)
		}
		return out, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func resolveInstructions(in []fixtureInstr) ([]pyc.Instr, error) {
	out := make([]pyc.Instr, len(in))
	for i, fi := range in {
		op, ok := opcodeByName[fi.Op]
		if !ok {
			return nil, fmt.Errorf("instruction %d: unknown opcode %q", i, fi.Op)
		}
		out[i] = pyc.Instr{Op: op, Arg: fi.Arg}
	}
	return out, nil
}

// opcodeByName is the inverse of pyc.Opcode.String(), built once from the
// same enum range the FixtureModule already trusts as canonical.
var opcodeByName = func() map[string]pyc.Opcode {
	m := make(map[string]pyc.Opcode)
	for raw := 0; raw < 256; raw++ {
		op := pyc.Opcode(raw)
		name := op.String()
		if name == "OpInvalid" {
			continue
		}
		m[name] = op
	}
	return m
}()
