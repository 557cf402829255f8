// Package aoptions implements the A-options field table: the deterministic,
// field-by-field translation from a composed-A job's form values to typed
// options consumed by the A-input renderer (internal/translator/aread), per
// spec.md §4.1.
//
// Grounded on apbs_runner.py's Runner.field_storage_to_dict.
package aoptions

import (
	"fmt"
	"strconv"
)

// GridCenterMolecule and GridCenterCoordinate are the two ways a grid's
// center may be specified.
const (
	GridCenterMolecule   = "molecule"
	GridCenterCoordinate = "coordinate"
)

// Coordinate is an integer triplet for a coordinate-specified grid center.
type Coordinate struct {
	X, Y, Z int
}

// IonSlot is one of the three ion charge/conc/radius entries. A nil
// pointer field means that part of the slot was absent; the A-input
// renderer emits the "ion" line only when all three of a slot are present,
// per spec.md §4.1's A-input renderer rule (see aread.Render and the
// DESIGN.md note on the original's apparent `'chStr' in apbsOptions`
// dead-code check, which this implementation does not reproduce).
type IonSlot struct {
	Charge *int
	Conc   *float64
	Radius *float64
}

func (s IonSlot) complete() bool {
	return s.Charge != nil && s.Conc != nil && s.Radius != nil
}

// IonSlotComplete reports whether slot i (0..2) has all three fields present.
func (o Options) IonSlotComplete(i int) bool {
	return o.Ions[i].complete()
}

// Options is the typed result of FromForm: every field apbs_infile_creator
// reads off apbsOptions, grouped by ELEC-block section.
type Options struct {
	WriteCharge, WritePot, WriteSmol, WriteSspl bool
	WriteVdw, WriteIvdw, WriteLap               bool
	WriteEdens, WriteNdens, WriteQdens          bool
	WriteDielx, WriteDiely, WriteDielz          bool
	WriteKappa                                  bool
	WriteCheck                                  int
	WriteFormat                                 string
	WriteStem                                   string

	AsyncFlag bool
	Async     int

	ReadType, ReadFormat, PQRPath, PQRFileName string

	CalcType string

	Ofrac                     float64
	DimeNX, DimeNY, DimeNZ    int
	CglenX, CglenY, CglenZ    float64
	FglenX, FglenY, FglenZ    float64
	GlenX, GlenY, GlenZ       float64
	PdimeNX, PdimeNY, PdimeNZ float64

	CoarseGridCenterMethod     string
	CoarseGridCenterMoleculeID int
	CoarseGridCenterCoord      Coordinate

	FineGridCenterMethod     string
	FineGridCenterMoleculeID int
	FineGridCenterCoord      Coordinate

	GridCenterMethod     string
	GridCenterMoleculeID int
	GridCenterCoord      Coordinate

	Mol                              int
	SolveType                        string
	BoundaryConditions               string
	BiomolecularDielectricConstant   float64
	DielectricSolventConstant        float64
	DielectricIonAccessibilityModel  string
	BiomolecularPointChargeMapMethod string
	SurfaceConstructionResolution    float64
	SolventRadius                    float64
	SurfaceDefSupportSize            float64
	Temperature                      float64
	CalcEnergy                       string
	CalcForce                        string

	Ions [3]IonSlot
}

// fieldReader is the minimal field-lookup contract FromForm needs; satisfied by
// form.Form.
type fieldReader interface {
	Has(key string) bool
	Get(key string) string
}

// FromForm builds Options from a composed-A job's form fields, applying
// every rule in spec.md §4.1's "A-options table" section. It returns any
// non-fatal warnings (the writeCheck > 4 legacy warning) alongside the
// parsed options; a field missing or unparsable where the table requires
// it is a hard error.
func FromForm(f fieldReader) (Options, []string, error) {
	o := Options{}
	var warnings []string

	writeFlag := func(present bool, dst *bool) {
		if present {
			*dst = true
			o.WriteCheck++
		}
	}

	// writecharge/writepot trigger on "present and non-empty", everything
	// else on "present and == on" — reproduced exactly from
	// field_storage_to_dict, which does not apply one rule uniformly.
	writeFlag(f.Has("writecharge") && f.Get("writecharge") != "", &o.WriteCharge)
	writeFlag(f.Has("writepot") && f.Get("writepot") != "", &o.WritePot)
	writeFlag(f.Get("writesmol") == "on", &o.WriteSmol)
	writeFlag(f.Get("writesspl") == "on", &o.WriteSspl)
	writeFlag(f.Get("writevdw") == "on", &o.WriteVdw)
	writeFlag(f.Get("writeivdw") == "on", &o.WriteIvdw)
	writeFlag(f.Get("writelap") == "on", &o.WriteLap)
	writeFlag(f.Get("writeedens") == "on", &o.WriteEdens)
	writeFlag(f.Get("writendens") == "on", &o.WriteNdens)
	writeFlag(f.Get("writeqdens") == "on", &o.WriteQdens)
	writeFlag(f.Get("writedielx") == "on", &o.WriteDielx)
	writeFlag(f.Get("writediely") == "on", &o.WriteDiely)
	writeFlag(f.Get("writedielz") == "on", &o.WriteDielz)
	writeFlag(f.Get("writekappa") == "on", &o.WriteKappa)

	if f.Get("asyncflag") == "on" {
		o.AsyncFlag = true
		v, err := atoi(f.Get("async"))
		if err != nil {
			return Options{}, nil, fmt.Errorf("aoptions: async: %w", err)
		}
		o.Async = v
	}

	if o.WriteCheck > 4 {
		warnings = append(warnings, "more than four write statements selected; legacy behavior continues without failing the job")
	}

	// READ-section constants for the renderer.
	o.ReadType = "mol"
	o.ReadFormat = "pqr"
	o.PQRPath = ""

	o.CalcType = f.Get("type")

	var err error
	if o.Ofrac, err = atof(f.Get("ofrac")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: ofrac: %w", err)
	}

	if o.DimeNX, err = atoi(f.Get("dimenx")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: dimenx: %w", err)
	}
	if o.DimeNY, err = atoi(f.Get("dimeny")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: dimeny: %w", err)
	}
	if o.DimeNZ, err = atoi(f.Get("dimenz")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: dimenz: %w", err)
	}

	if o.CglenX, err = atof(f.Get("cglenx")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: cglenx: %w", err)
	}
	if o.CglenY, err = atof(f.Get("cgleny")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: cgleny: %w", err)
	}
	if o.CglenZ, err = atof(f.Get("cglenz")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: cglenz: %w", err)
	}

	if o.FglenX, err = atof(f.Get("fglenx")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: fglenx: %w", err)
	}
	if o.FglenY, err = atof(f.Get("fgleny")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: fgleny: %w", err)
	}
	if o.FglenZ, err = atof(f.Get("fglenz")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: fglenz: %w", err)
	}

	if o.GlenX, err = atof(f.Get("glenx")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: glenx: %w", err)
	}
	if o.GlenY, err = atof(f.Get("gleny")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: gleny: %w", err)
	}
	if o.GlenZ, err = atof(f.Get("glenz")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: glenz: %w", err)
	}

	if o.PdimeNX, err = atof(f.Get("pdimex")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: pdimex: %w", err)
	}
	if o.PdimeNY, err = atof(f.Get("pdimey")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: pdimey: %w", err)
	}
	if o.PdimeNZ, err = atof(f.Get("pdimez")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: pdimez: %w", err)
	}

	switch f.Get("cgcent") {
	case "mol":
		o.CoarseGridCenterMethod = GridCenterMolecule
		if o.CoarseGridCenterMoleculeID, err = atoi(f.Get("cgcentid")); err != nil {
			return Options{}, nil, fmt.Errorf("aoptions: cgcentid: %w", err)
		}
	case "coord":
		o.CoarseGridCenterMethod = GridCenterCoordinate
		if o.CoarseGridCenterCoord, err = coord(f, "cgxcent", "cgycent", "cgzcent"); err != nil {
			return Options{}, nil, err
		}
	}

	switch f.Get("fgcent") {
	case "mol":
		o.FineGridCenterMethod = GridCenterMolecule
		if o.FineGridCenterMoleculeID, err = atoi(f.Get("fgcentid")); err != nil {
			return Options{}, nil, fmt.Errorf("aoptions: fgcentid: %w", err)
		}
	case "coord":
		o.FineGridCenterMethod = GridCenterCoordinate
		if o.FineGridCenterCoord, err = coord(f, "fgxcent", "fgycent", "fgzcent"); err != nil {
			return Options{}, nil, err
		}
	}

	// grid centering only applies to mg-manual/mg-dummy calc types, per
	// the original's "added conditional to avoid checking 'gcent' for
	// incompatible methods".
	if o.CalcType == "mg-manual" || o.CalcType == "mg-dummy" {
		switch f.Get("gcent") {
		case "mol":
			o.GridCenterMethod = GridCenterMolecule
			if o.GridCenterMoleculeID, err = atoi(f.Get("gcentid")); err != nil {
				return Options{}, nil, fmt.Errorf("aoptions: gcentid: %w", err)
			}
		case "coord":
			o.GridCenterMethod = GridCenterCoordinate
			if o.GridCenterCoord, err = coord(f, "gxcent", "gycent", "gzcent"); err != nil {
				return Options{}, nil, err
			}
		}
	}

	if o.Mol, err = atoi(f.Get("mol")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: mol: %w", err)
	}
	o.SolveType = f.Get("solvetype")
	o.BoundaryConditions = f.Get("bcfl")
	if o.BiomolecularDielectricConstant, err = atof(f.Get("pdie")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: pdie: %w", err)
	}
	if o.DielectricSolventConstant, err = atof(f.Get("sdie")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: sdie: %w", err)
	}
	o.DielectricIonAccessibilityModel = f.Get("srfm")
	o.BiomolecularPointChargeMapMethod = f.Get("chgm")
	if o.SurfaceConstructionResolution, err = atof(f.Get("sdens")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: sdens: %w", err)
	}
	if o.SolventRadius, err = atof(f.Get("srad")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: srad: %w", err)
	}
	if o.SurfaceDefSupportSize, err = atof(f.Get("swin")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: swin: %w", err)
	}
	if o.Temperature, err = atof(f.Get("temp")); err != nil {
		return Options{}, nil, fmt.Errorf("aoptions: temp: %w", err)
	}
	o.CalcEnergy = f.Get("calcenergy")
	o.CalcForce = f.Get("calcforce")

	for i := 0; i < 3; i++ {
		chKey := fmt.Sprintf("charge%d", i)
		concKey := fmt.Sprintf("conc%d", i)
		radKey := fmt.Sprintf("radius%d", i)

		if f.Get(chKey) != "" {
			v, err := atoi(f.Get(chKey))
			if err != nil {
				return Options{}, nil, fmt.Errorf("aoptions: %s: %w", chKey, err)
			}
			o.Ions[i].Charge = &v
		}
		if f.Get(concKey) != "" {
			v, err := atof(f.Get(concKey))
			if err != nil {
				return Options{}, nil, fmt.Errorf("aoptions: %s: %w", concKey, err)
			}
			o.Ions[i].Conc = &v
		}
		if f.Get(radKey) != "" {
			v, err := atof(f.Get(radKey))
			if err != nil {
				return Options{}, nil, fmt.Errorf("aoptions: %s: %w", radKey, err)
			}
			o.Ions[i].Radius = &v
		}
	}

	o.WriteFormat = f.Get("writeformat")
	o.WriteStem = f.Get("pdb2pqrid")

	return o, warnings, nil
}

func coord(f fieldReader, xKey, yKey, zKey string) (Coordinate, error) {
	x, err := atoi(f.Get(xKey))
	if err != nil {
		return Coordinate{}, fmt.Errorf("aoptions: %s: %w", xKey, err)
	}
	y, err := atoi(f.Get(yKey))
	if err != nil {
		return Coordinate{}, fmt.Errorf("aoptions: %s: %w", yKey, err)
	}
	z, err := atoi(f.Get(zKey))
	if err != nil {
		return Coordinate{}, fmt.Errorf("aoptions: %s: %w", zKey, err)
	}
	return Coordinate{X: x, Y: y, Z: z}, nil
}

// atoi and atof parse form strings the way Python's locale.atoi/atof did in
// the original — except Go's strconv is always locale-independent, so there
// is no locale state to strip; this is a direct, simpler substitute rather
// than a faithful port of locale handling that has no Go analogue worth
// keeping.
func atoi(s string) (int, error) {
	return strconv.Atoi(s)
}

func atof(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
