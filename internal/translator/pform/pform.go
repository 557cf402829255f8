// Package pform implements the GUI-P web-form-to-CLI-flags contract of
// spec.md §4.1's GUI-P path: the closed set of recognized CGI-style keys a
// preparer-P web submission carries, translated into the same ordered flag
// list the CLI-P path produces.
//
// Grounded on
// original_source/.../launcher/weboptions.py's WebOptions.__init__ and
// getCommandLine.
package pform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Electrostatics/apbs-aws/internal/util/sanitize"
)

// Error reports a GUI-P form validation failure — the Go analogue of the
// original's WebOptionsError.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// fieldReader is the minimal lookup contract Build needs; satisfied by
// form.Form.
type fieldReader interface {
	Has(key string) bool
	Get(key string) string
}

// Result is the parsed GUI-P submission: the flag list getCommandLine
// would have produced, plus the filenames the caller (internal/translator)
// needs to resolve into input_files.
type Result struct {
	CommandLine []string

	PDBFilename       string
	UserDidUpload     bool
	PQRFilename       string
	LigandFilename    string
	HasLigand         bool
	UserFFFilename    string
	UserNamesFilename string
	HasUserFF         bool
}

// Build parses a GUI-P descriptor's fields and produces the flag list and
// filenames, per weboptions.py's WebOptions constructor and getCommandLine.
func Build(f fieldReader) (Result, error) {
	var r Result

	debump := f.Has("DEBUMP")
	opt := f.Has("OPT")

	ff := strings.ToLower(f.Get("FF"))
	if !f.Has("FF") {
		return Result{}, &Error{Message: "Force field type missing from form."}
	}

	switch {
	case f.Has("PDBID") && f.Get("PDBID") != "" && f.Get("PDBSOURCE") == "ID":
		r.UserDidUpload = false
		r.PDBFilename = f.Get("PDBID")
	case f.Get("PDBSOURCE") == "UPLOAD" && f.Get("PDBFILE") != "":
		r.UserDidUpload = true
		r.PDBFilename = sanitize.SanitizeFileName(f.Get("PDBFILE"))
	default:
		return Result{}, &Error{Message: "You need to specify a pdb ID or upload a pdb file."}
	}

	var ph float64
	var phCalcMethod string
	hasPh := false
	if f.Has("PKACALCMETHOD") && f.Get("PKACALCMETHOD") != "none" {
		if !f.Has("PH") {
			return Result{}, &Error{Message: "Please provide a pH value."}
		}
		const phHelp = "Please choose a pH between 0.0 and 14.0."
		v, err := strconv.ParseFloat(f.Get("PH"), 64)
		if err != nil {
			return Result{}, &Error{Message: "The pH value provided must be a number!  " + phHelp}
		}
		if v < 0.0 || v > 14.0 {
			return Result{}, &Error{Message: fmt.Sprintf("The entered pH of %.2f is invalid!  %s", v, phHelp)}
		}
		ph = v
		hasPh = true
		switch f.Get("PKACALCMETHOD") {
		case "propka":
			phCalcMethod = "propka"
		case "pdb2pka":
			phCalcMethod = "pdb2pka"
		}
	}

	apbsInput := f.Has("INPUT")
	whitespace := f.Has("WHITESPACE")

	if ff == "user" {
		if f.Get("USERFFFILE") == "" {
			return Result{}, &Error{Message: "A force field file must be provided if using a user created force field."}
		}
		r.UserFFFilename = sanitize.SanitizeFileName(f.Get("USERFFFILE"))
		r.HasUserFF = true

		if f.Get("NAMESFILE") == "" {
			return Result{}, &Error{Message: "A names file must be provided if using a user created force field."}
		}
		r.UserNamesFilename = sanitize.SanitizeFileName(f.Get("NAMESFILE"))
	}

	ffout := f.Get("FFOUT")
	hasFfout := f.Has("FFOUT") && ffout != "internal"

	chain := f.Has("CHAIN")
	typemap := f.Has("TYPEMAP")
	neutraln := f.Has("NEUTRALN")
	neutralc := f.Has("NEUTRALC")
	dropWater := f.Has("DROPWATER")

	if (neutraln || neutralc) && ff != "parse" {
		return Result{}, &Error{Message: "Neutral N-terminus and C-terminus require the PARSE forcefield."}
	}

	if f.Get("LIGANDFILE") != "" {
		r.LigandFilename = sanitize.SanitizeFileName(f.Get("LIGANDFILE"))
		r.HasLigand = true
	}

	if strings.HasSuffix(r.PDBFilename, ".pdb") {
		r.PQRFilename = r.PDBFilename[:len(r.PDBFilename)-4] + ".pqr"
	} else {
		r.PQRFilename = r.PDBFilename + ".pqr"
	}

	var cmd []string
	if !debump {
		cmd = append(cmd, "--nodebump")
	}
	if !opt {
		cmd = append(cmd, "--noopt")
	}
	if hasPh {
		cmd = append(cmd, fmt.Sprintf("--with-ph=%s", strconv.FormatFloat(ph, 'g', -1, 64)))
	}
	if phCalcMethod != "" {
		cmd = append(cmd, fmt.Sprintf("--ph-calc-method=%s", phCalcMethod))
	}
	if dropWater {
		cmd = append(cmd, "--drop-water")
	}
	if apbsInput {
		cmd = append(cmd, "--apbs-input")
	}
	if whitespace {
		cmd = append(cmd, "--whitespace")
	}
	if r.HasUserFF && ff == "user" {
		cmd = append(cmd, fmt.Sprintf("--userff=%s", r.UserFFFilename))
		cmd = append(cmd, fmt.Sprintf("--usernames=%s", r.UserNamesFilename))
	} else {
		cmd = append(cmd, fmt.Sprintf("--ff=%s", ff))
	}
	if hasFfout {
		cmd = append(cmd, fmt.Sprintf("--ffout=%s", ffout))
	}
	for _, pair := range []struct {
		name string
		on   bool
	}{
		{"chain", chain},
		{"typemap", typemap},
		{"neutraln", neutraln},
		{"neutralc", neutralc},
		{"verbose", true},
	} {
		if pair.on {
			cmd = append(cmd, "--"+pair.name)
		}
	}
	if r.HasLigand {
		cmd = append(cmd, fmt.Sprintf("--ligand=%s", r.LigandFilename))
	}
	// selectedExtensions is always exactly ['summary'] in the original;
	// internal/translator's guiP strips --summary per spec.md §4.1's GUI-P path.
	cmd = append(cmd, "--summary")

	cmd = append(cmd, r.PDBFilename, r.PQRFilename)
	r.CommandLine = cmd

	return r, nil
}
