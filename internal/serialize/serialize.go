// Package serialize is the external serializer spec §4.5 and §6 describe:
// it turns the in-memory model.Report into the wire JSON document, without
// the core itself knowing anything about JSON.
package serialize

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/quay/pkgscan/model"
)

// Write encodes r as the spec §6 output document: a single JSON object with
// headers, files, packages, and dependencies arrays, snake_case field names
// throughout (carried by the model's own json tags).
func Write(w io.Writer, r *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("pkgscan/serialize: encode report: %w", err)
	}
	return nil
}

// Read decodes a previously-written report, used by round-trip tests (spec
// §8 "Serializing and re-deserializing the output schema is identity on
// the in-memory model").
func Read(r io.Reader) (*model.Report, error) {
	var rep model.Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return nil, fmt.Errorf("pkgscan/serialize: decode report: %w", err)
	}
	return &rep, nil
}
