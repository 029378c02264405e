// Package textenc decodes the 8-bit string constants an early-era
// scripting language's 2.x line stores in its constant pool, tagged with a
// source encoding cookie (`# -*- coding: latin-1 -*-`-style) rather than
// carried as UTF-8. The constant pool reader itself is out of scope; this
// package only turns a raw byte string plus a codec name into text once
// pkg/decompiler has one in hand.
package textenc

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// byName mirrors the handful of single-byte codecs old bytecode actually
// declares in practice; an unlisted name is reported rather than guessed.
var byName = map[string]*charmap.Charmap{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-15":  charmap.ISO8859_15,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"cp437":        charmap.CodePage437,
	"koi8-r":       charmap.KOI8R,
}

// Decode converts raw into text using the named codec. An empty name means
// the caller already knows raw is plain ASCII or UTF-8 and Decode returns
// it unchanged. An unrecognized name is an error rather than a silent
// ASCII fallback, since a mismatched codec would corrupt every non-ASCII
// byte in the string.
func Decode(raw []byte, name string) (string, error) {
	if name == "" {
		return string(raw), nil
	}
	cm, ok := byName[name]
	if !ok {
		return "", fmt.Errorf("textenc: unknown codec %q", name)
	}
	out, err := cm.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("textenc: decoding %q constant: %w", name, err)
	}
	return string(out), nil
}
