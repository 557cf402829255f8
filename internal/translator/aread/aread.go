// Package aread implements the READ-section parser and the A-input
// renderer described in spec.md §4.1, grounded on
// original_source/.../utils.py's apbs_extract_input_files and
// apbs_infile_creator.
package aread

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/Electrostatics/apbs-aws/internal/translator/aoptions"
)

// ExtractInputFiles scans an A input file's READ section and returns the
// ordered list of files it references. Lines are tokenized on whitespace;
// a line's first two tokens (the read kind and format) are skipped, every
// token from the third onward is collected, and collection on a given line
// stops early at a token beginning with "#". Duplicates are preserved.
func ExtractInputFiles(infile string) []string {
	var (
		readStart, readEnd bool
		files              []string
	)

	scanner := bufio.NewScanner(strings.NewReader(infile))
	for scanner.Scan() {
		if readStart && readEnd {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch {
		case !readStart:
			if strings.ToUpper(fields[0]) == "READ" {
				readStart = true
			}

		case readStart && !readEnd:
			if strings.ToUpper(fields[0]) == "END" {
				readEnd = true
				continue
			}
			if len(fields) <= 2 {
				continue
			}
			for _, tok := range fields[2:] {
				if strings.HasPrefix(tok, "#") {
					break
				}
				files = append(files, tok)
			}
		}
	}

	return files
}

// Render emits the A input file text for opts, byte-exact per spec.md
// §4.1: downstream parses this file and rejects reordering.
func Render(opts aoptions.Options) string {
	var b strings.Builder
	const tab = "    "

	b.WriteString("read\n")
	fmt.Fprintf(&b, "%s%s %s %s%s", tab, opts.ReadType, opts.ReadFormat, opts.PQRPath, opts.PQRFileName)
	b.WriteString("\nend\n")

	b.WriteString("elec\n")
	fmt.Fprintf(&b, "%s%s\n", tab, opts.CalcType)
	if opts.CalcType != "fe-manual" {
		fmt.Fprintf(&b, "%sdime %d %d %d\n", tab, opts.DimeNX, opts.DimeNY, opts.DimeNZ)
	}

	if opts.CalcType == "mg-para" {
		fmt.Fprintf(&b, "%spdime %d %d %d\n", tab, int(opts.PdimeNX), int(opts.PdimeNY), int(opts.PdimeNZ))
		fmt.Fprintf(&b, "%sofrac %g\n", tab, opts.Ofrac)
		if opts.AsyncFlag {
			fmt.Fprintf(&b, "%sasync %d\n", tab, opts.Async)
		}
	}

	if opts.CalcType == "mg-manual" {
		fmt.Fprintf(&b, "%sglen %g %g %g\n", tab, opts.GlenX, opts.GlenY, opts.GlenZ)
	}
	if opts.CalcType == "mg-auto" || opts.CalcType == "mg-para" || opts.CalcType == "mg-dummy" {
		fmt.Fprintf(&b, "%scglen %g %g %g\n", tab, opts.CglenX, opts.CglenY, opts.CglenZ)
	}
	if opts.CalcType == "mg-auto" || opts.CalcType == "mg-para" {
		fmt.Fprintf(&b, "%sfglen %g %g %g\n", tab, opts.FglenX, opts.FglenY, opts.FglenZ)

		switch opts.CoarseGridCenterMethod {
		case aoptions.GridCenterMolecule:
			fmt.Fprintf(&b, "%scgcent mol %d\n", tab, opts.CoarseGridCenterMoleculeID)
		case aoptions.GridCenterCoordinate:
			c := opts.CoarseGridCenterCoord
			fmt.Fprintf(&b, "%scgcent %d %d %d\n", tab, c.X, c.Y, c.Z)
		}

		switch opts.FineGridCenterMethod {
		case aoptions.GridCenterMolecule:
			fmt.Fprintf(&b, "%sfgcent mol %d\n", tab, opts.FineGridCenterMoleculeID)
		case aoptions.GridCenterCoordinate:
			c := opts.FineGridCenterCoord
			fmt.Fprintf(&b, "%sfgcent %d %d %d\n", tab, c.X, c.Y, c.Z)
		}
	}

	if opts.CalcType == "mg-manual" || opts.CalcType == "mg-dummy" {
		switch opts.GridCenterMethod {
		case aoptions.GridCenterMolecule:
			fmt.Fprintf(&b, "%sgcent mol %d\n", tab, opts.GridCenterMoleculeID)
		case aoptions.GridCenterCoordinate:
			c := opts.GridCenterCoord
			fmt.Fprintf(&b, "%sgcent %d %d %d\n", tab, c.X, c.Y, c.Z)
		}
	}

	fmt.Fprintf(&b, "%smol %d\n", tab, opts.Mol)
	fmt.Fprintf(&b, "%s%s\n", tab, opts.SolveType)
	fmt.Fprintf(&b, "%sbcfl %s\n", tab, opts.BoundaryConditions)
	fmt.Fprintf(&b, "%spdie %g\n", tab, opts.BiomolecularDielectricConstant)
	fmt.Fprintf(&b, "%ssdie %g\n", tab, opts.DielectricSolventConstant)
	fmt.Fprintf(&b, "%ssrfm %s\n", tab, opts.DielectricIonAccessibilityModel)
	fmt.Fprintf(&b, "%schgm %s\n", tab, opts.BiomolecularPointChargeMapMethod)
	fmt.Fprintf(&b, "%ssdens %g\n", tab, opts.SurfaceConstructionResolution)
	fmt.Fprintf(&b, "%ssrad %g\n", tab, opts.SolventRadius)
	fmt.Fprintf(&b, "%sswin %g\n", tab, opts.SurfaceDefSupportSize)
	fmt.Fprintf(&b, "%stemp %g\n", tab, opts.Temperature)
	fmt.Fprintf(&b, "%scalcenergy %s\n", tab, opts.CalcEnergy)
	fmt.Fprintf(&b, "%scalcforce %s\n", tab, opts.CalcForce)

	for i := 0; i < 3; i++ {
		if !opts.IonSlotComplete(i) {
			continue
		}
		slot := opts.Ions[i]
		fmt.Fprintf(&b, "%sion charge %d conc %g radius %g\n", tab, *slot.Charge, *slot.Conc, *slot.Radius)
	}

	writeLine := func(enabled bool, kind, suffix string) {
		if enabled {
			fmt.Fprintf(&b, "%swrite %s %s %s-%s\n", tab, kind, opts.WriteFormat, opts.WriteStem, suffix)
		}
	}
	writeLine(opts.WriteCharge, "charge", "charge")
	writeLine(opts.WritePot, "pot", "pot")
	writeLine(opts.WriteSmol, "smol", "smol")
	writeLine(opts.WriteSspl, "sspl", "sspl")
	writeLine(opts.WriteVdw, "vdw", "vdw")
	writeLine(opts.WriteIvdw, "ivdw", "ivdw")
	writeLine(opts.WriteLap, "lap", "lap")
	writeLine(opts.WriteEdens, "edens", "edens")
	writeLine(opts.WriteNdens, "ndens", "ndens")
	writeLine(opts.WriteQdens, "qdens", "qdens")
	writeLine(opts.WriteDielx, "dielx", "dielx")
	writeLine(opts.WriteDiely, "diely", "diely")
	writeLine(opts.WriteDielz, "dielz", "dielz")
	writeLine(opts.WriteKappa, "kappa", "kappa")

	b.WriteString("end\n")
	b.WriteString("quit")

	return b.String()
}
