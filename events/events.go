// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events carries typed event records from emission inside a
// contract to the transaction receipt. Schemas are declared in contract
// source and resolved at validation time; this package checks payloads
// against them at emission time and keeps the per-transaction log.
package events

import (
	"errors"
	"fmt"

	"github.com/convm/contractingvm/lang"
	"github.com/convm/contractingvm/types"
)

// ErrSchema reports a payload that does not match the declared event.
var ErrSchema = errors.New("event payload does not match schema")

// Field is one emitted value, in schema order.
type Field struct {
	Name    string
	Value   types.Value
	Indexed bool
}

// Record is one emitted event.
type Record struct {
	Contract string
	Name     string
	Fields   []Field
}

// Payload returns the emitted values keyed by field name.
func (r Record) Payload() types.Dict {
	out := make(types.Dict, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.Value
	}
	return out
}

// IndexedFields returns the fields marked indexable, in schema order.
func (r Record) IndexedFields() []Field {
	var out []Field
	for _, f := range r.Fields {
		if f.Indexed {
			out = append(out, f)
		}
	}
	return out
}

// Build checks payload against the declared schema and shapes it into a
// record. Every declared field must be present with a matching type and
// no extra keys are tolerated.
func Build(contract string, def *lang.EventDef, payload types.Dict) (Record, error) {
	if len(payload) != len(def.Params) {
		return Record{}, fmt.Errorf("%w: %s takes %d fields, got %d",
			ErrSchema, def.Name, len(def.Params), len(payload))
	}
	fields := make([]Field, 0, len(def.Params))
	for i := range def.Params {
		param := &def.Params[i]
		value, present := payload[param.Name]
		if !present {
			return Record{}, fmt.Errorf("%w: %s is missing field %q", ErrSchema, def.Name, param.Name)
		}
		if !param.Accepts(value) {
			return Record{}, fmt.Errorf("%w: %s field %q rejects a %s",
				ErrSchema, def.Name, param.Name, types.KindOf(value))
		}
		fields = append(fields, Field{
			Name:    param.Name,
			Value:   value,
			Indexed: param.Indexed,
		})
	}
	return Record{Contract: contract, Name: def.Name, Fields: fields}, nil
}

// Log accumulates the records emitted during one transaction, in
// emission order across every nested call.
type Log struct {
	records []Record
}

// Emit appends rec to the log.
func (l *Log) Emit(rec Record) {
	l.records = append(l.records, rec)
}

// Records returns the emission-ordered log.
func (l *Log) Records() []Record {
	return l.records
}

// Len returns how many events have been emitted.
func (l *Log) Len() int {
	return len(l.records)
}
