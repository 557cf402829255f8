// Package form decodes a job descriptor's JSON body into a typed shape the
// rest of internal/translator dispatches on, per spec.md §4.1 and §9. The
// shape is one Form struct, not a tagged sum type.
//
// A descriptor is a flat JSON object. Which fields matter depends on which
// of the four paths (Direct-A, Composed-A, CLI-P, GUI-P) the dispatcher
// picks; Form exposes all of them through one decode so the dispatcher in
// internal/translator can inspect Filename/InvokeMethod and hand the rest
// off to aoptions.FromForm or pform.Build without re-parsing.
package form

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlagEntry is one "--k" or "--k=v" CLI-P flag, in descriptor JSON key
// order. Go map iteration is randomized, so CLI-P's form.flags object is
// decoded token-by-token instead of into a map, per SPEC_FULL.md
// supplemented feature #5 (byte-stable flag ordering).
type FlagEntry struct {
	Key    string
	IsBool bool
	Bool   bool
	Value  string
}

// Form is every field any of the four descriptor shapes may carry. Fields
// is present/absent exactly as the descriptor JSON had it (CGI-form
// semantics: "key in form" means "key present in Fields", regardless of
// value), matching the original's `"key" in form` checks throughout
// utils.py/apbs_runner.py/weboptions.py.
type Form struct {
	Filename     string
	SupportFiles []string
	InvokeMethod string
	PdbName      string
	PqrName      string
	Flags        []FlagEntry
	Fields       map[string]string
}

// Has reports whether key was present in the descriptor at all.
func (f Form) Has(key string) bool {
	_, ok := f.Fields[key]
	return ok
}

// Get returns the string value of key, or "" if absent.
func (f Form) Get(key string) string {
	return f.Fields[key]
}

// Parse decodes raw descriptor JSON into a Form. Per spec.md §3, "top-level
// key `form` carries a flat mapping": the descriptor itself is
// `{"form": {...}}`, confirmed by both original_source copies of
// job_service.py doing `get_job_info(...)["form"]`. Everything below
// operates on that unwrapped payload, not on raw.
func Parse(raw []byte) (Form, error) {
	var envelope struct {
		Form json.RawMessage `json:"form"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Form{}, fmt.Errorf("form: decoding descriptor: %w", err)
	}
	payload := envelope.Form
	if len(payload) == 0 {
		return Form{}, fmt.Errorf("form: descriptor has no top-level \"form\" key")
	}

	var top struct {
		Filename     string          `json:"filename"`
		SupportFiles []string        `json:"support_files"`
		InvokeMethod string          `json:"invoke_method"`
		PdbName      string          `json:"pdb_name"`
		PqrName      string          `json:"pqr_name"`
		Flags        json.RawMessage `json:"flags"`
	}
	if err := json.Unmarshal(payload, &top); err != nil {
		return Form{}, fmt.Errorf("form: decoding descriptor form: %w", err)
	}

	fields, err := decodeStringFields(payload)
	if err != nil {
		return Form{}, err
	}

	flags, err := decodeOrderedFlags(top.Flags)
	if err != nil {
		return Form{}, err
	}

	return Form{
		Filename:     top.Filename,
		SupportFiles: top.SupportFiles,
		InvokeMethod: top.InvokeMethod,
		PdbName:      top.PdbName,
		PqrName:      top.PqrName,
		Flags:        flags,
		Fields:       fields,
	}, nil
}

// decodeStringFields flattens every top-level scalar field to a string, so
// aoptions.FromForm and pform.Build can treat the descriptor uniformly with
// the CGI-style "form[key]" string access the original Python used. Nested
// objects/arrays (support_files, flags) are decoded separately and are not
// present in the returned map.
func decodeStringFields(raw []byte) (map[string]string, error) {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("form: decoding descriptor fields: %w", err)
	}

	fields := make(map[string]string, len(generic))
	for key, v := range generic {
		s, ok := scalarToString(v)
		if ok {
			fields[key] = s
		}
	}
	return fields, nil
}

func scalarToString(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		if b {
			return "on", true
		}
		return "", true
	}
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return string(v), true
	}
	return "", false
}

// decodeOrderedFlags walks the "flags" object token-by-token to preserve
// descriptor JSON key order, rather than unmarshaling into a map.
func decodeOrderedFlags(raw json.RawMessage) ([]FlagEntry, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("form: decoding flags: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("form: flags must be a JSON object")
	}

	var entries []FlagEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("form: decoding flags: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("form: decoding flags[%q]: %w", key, err)
		}

		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			entries = append(entries, FlagEntry{Key: key, IsBool: true, Bool: b})
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			entries = append(entries, FlagEntry{Key: key, Value: s})
			continue
		}
		entries = append(entries, FlagEntry{Key: key, Value: string(raw)})
	}
	return entries, nil
}
