package pform

import (
	"strings"
	"testing"
)

type fakeForm map[string]string

func (f fakeForm) Has(key string) bool   { _, ok := f[key]; return ok }
func (f fakeForm) Get(key string) string { return f[key] }

func TestBuildUploadedPDB(t *testing.T) {
	f := fakeForm{
		"DEBUMP": "", "OPT": "",
		"FF":         "parse",
		"PDBSOURCE":  "UPLOAD",
		"PDBFILE":    "my protein.pdb",
		"CHAIN":      "",
		"DROPWATER": "",
	}

	r, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !r.UserDidUpload {
		t.Error("expected UserDidUpload = true")
	}
	if r.PDBFilename != "my_protein.pdb" {
		t.Errorf("PDBFilename = %q, want sanitized", r.PDBFilename)
	}
	if r.PQRFilename != "my_protein.pqr" {
		t.Errorf("PQRFilename = %q", r.PQRFilename)
	}
	if !contains(r.CommandLine, "--nodebump") || !contains(r.CommandLine, "--noopt") {
		t.Errorf("CommandLine = %v, want --nodebump and --noopt", r.CommandLine)
	}
	if !contains(r.CommandLine, "--ff=parse") {
		t.Errorf("CommandLine = %v, want --ff=parse", r.CommandLine)
	}
	if !contains(r.CommandLine, "--verbose") {
		t.Errorf("CommandLine = %v, want --verbose always set", r.CommandLine)
	}
	if r.CommandLine[len(r.CommandLine)-2] != r.PDBFilename || r.CommandLine[len(r.CommandLine)-1] != r.PQRFilename {
		t.Errorf("CommandLine tail = %v, want pdb then pqr", r.CommandLine[len(r.CommandLine)-2:])
	}
}

func TestBuildPDBIDPath(t *testing.T) {
	f := fakeForm{
		"FF": "amber", "PDBID": "1abc", "PDBSOURCE": "ID",
		"DEBUMP": "on", "OPT": "on",
	}
	r, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.UserDidUpload {
		t.Error("expected UserDidUpload = false")
	}
	if r.PDBFilename != "1abc" {
		t.Errorf("PDBFilename = %q", r.PDBFilename)
	}
	if contains(r.CommandLine, "--nodebump") || contains(r.CommandLine, "--noopt") {
		t.Errorf("CommandLine = %v, should not contain nodebump/noopt when both set", r.CommandLine)
	}
}

func TestBuildMissingForceField(t *testing.T) {
	f := fakeForm{"PDBID": "1abc", "PDBSOURCE": "ID"}
	if _, err := Build(f); err == nil {
		t.Fatal("expected error for missing FF")
	}
}

func TestBuildUserForceFieldRequiresFiles(t *testing.T) {
	f := fakeForm{
		"FF": "user", "PDBID": "1abc", "PDBSOURCE": "ID",
	}
	if _, err := Build(f); err == nil {
		t.Fatal("expected error for missing USERFFFILE/NAMESFILE")
	}

	f["USERFFFILE"] = "ff.dat"
	f["NAMESFILE"] = "names.dat"
	r, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(r.CommandLine, "--userff=ff.dat") || !contains(r.CommandLine, "--usernames=names.dat") {
		t.Errorf("CommandLine = %v, want userff/usernames flags", r.CommandLine)
	}
	if contains(r.CommandLine, "--ff=user") {
		t.Errorf("CommandLine = %v, should not contain --ff=user when userff is set", r.CommandLine)
	}
}

func TestBuildPHValidation(t *testing.T) {
	f := fakeForm{
		"FF": "parse", "PDBID": "1abc", "PDBSOURCE": "ID",
		"PKACALCMETHOD": "propka", "PH": "20",
	}
	if _, err := Build(f); err == nil {
		t.Fatal("expected error for out-of-range pH")
	}

	f["PH"] = "7.0"
	r, err := Build(f)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(r.CommandLine, "--with-ph=7") {
		t.Errorf("CommandLine = %v, want --with-ph=7", r.CommandLine)
	}
	if !contains(r.CommandLine, "--ph-calc-method=propka") {
		t.Errorf("CommandLine = %v, want --ph-calc-method=propka", r.CommandLine)
	}
}

func TestBuildNeutralRequiresParse(t *testing.T) {
	f := fakeForm{
		"FF": "amber", "PDBID": "1abc", "PDBSOURCE": "ID",
		"NEUTRALN": "on",
	}
	if _, err := Build(f); err == nil {
		t.Fatal("expected error requiring PARSE forcefield")
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.HasPrefix(s, needle) || s == needle {
			return true
		}
	}
	return false
}
