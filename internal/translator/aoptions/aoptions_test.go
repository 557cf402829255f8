package aoptions

import "testing"

type fakeForm map[string]string

func (f fakeForm) Has(key string) bool   { _, ok := f[key]; return ok }
func (f fakeForm) Get(key string) string { return f[key] }

func baseForm() fakeForm {
	return fakeForm{
		"type": "mg-auto", "ofrac": "0.1",
		"dimenx": "65", "dimeny": "65", "dimenz": "65",
		"cglenx": "100", "cgleny": "100", "cglenz": "100",
		"fglenx": "40", "fgleny": "40", "fglenz": "40",
		"glenx": "0", "gleny": "0", "glenz": "0",
		"pdimex": "1", "pdimey": "1", "pdimez": "1",
		"cgcent": "mol", "cgcentid": "1",
		"fgcent": "mol", "fgcentid": "1",
		"gcent": "mol", "gcentid": "1",
		"mol": "1", "solvetype": "lpbe", "bcfl": "sdh",
		"pdie": "2.0", "sdie": "78.54",
		"srfm": "smol", "chgm": "spl2",
		"sdens": "10.0", "srad": "1.4", "swin": "0.3", "temp": "298.15",
		"calcenergy": "total", "calcforce": "no",
		"charge0": "", "conc0": "", "radius0": "",
		"charge1": "", "conc1": "", "radius1": "",
		"charge2": "", "conc2": "", "radius2": "",
		"writeformat": "dx", "pdb2pqrid": "myjob",
	}
}

func TestFromFormBasics(t *testing.T) {
	f := baseForm()
	opts, warnings, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if opts.CalcType != "mg-auto" {
		t.Errorf("CalcType = %q", opts.CalcType)
	}
	if opts.CoarseGridCenterMethod != GridCenterMolecule || opts.CoarseGridCenterMoleculeID != 1 {
		t.Errorf("coarse grid centering wrong: %+v", opts)
	}
	if opts.WriteStem != "myjob" {
		t.Errorf("WriteStem = %q", opts.WriteStem)
	}
}

func TestFromFormWriteFlagTriggers(t *testing.T) {
	f := baseForm()
	f["writecharge"] = "anything"
	f["writepot"] = ""
	f["writesmol"] = "on"
	f["writevdw"] = "off"

	opts, _, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if !opts.WriteCharge {
		t.Error("writecharge should trigger on any non-empty value")
	}
	if opts.WritePot {
		t.Error("writepot should not trigger on empty value")
	}
	if !opts.WriteSmol {
		t.Error("writesmol should trigger on \"on\"")
	}
	if opts.WriteVdw {
		t.Error("writevdw should not trigger on \"off\"")
	}
	if opts.WriteCheck != 2 {
		t.Errorf("WriteCheck = %d, want 2", opts.WriteCheck)
	}
}

func TestFromFormWriteCheckWarning(t *testing.T) {
	f := baseForm()
	f["writecharge"] = "x"
	f["writepot"] = "x"
	f["writesmol"] = "on"
	f["writesspl"] = "on"
	f["writevdw"] = "on"

	_, warnings, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", warnings)
	}
}

func TestFromFormGridCenteringSkippedForIncompatibleCalcType(t *testing.T) {
	f := baseForm()
	f["type"] = "mg-auto"
	f["gcent"] = "mol"

	opts, _, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if opts.GridCenterMethod != "" {
		t.Errorf("GridCenterMethod = %q, want empty for mg-auto", opts.GridCenterMethod)
	}
}

func TestFromFormIonSlots(t *testing.T) {
	f := baseForm()
	f["charge0"] = "1"
	f["conc0"] = "0.15"
	f["radius0"] = "2.0"

	opts, _, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if !opts.IonSlotComplete(0) {
		t.Fatal("expected ion slot 0 complete")
	}
	if *opts.Ions[0].Charge != 1 || *opts.Ions[0].Conc != 0.15 || *opts.Ions[0].Radius != 2.0 {
		t.Errorf("ion slot 0 = %+v", opts.Ions[0])
	}
	if opts.IonSlotComplete(1) {
		t.Error("expected ion slot 1 incomplete")
	}
}

func TestFromFormAsyncFlag(t *testing.T) {
	f := baseForm()
	f["type"] = "mg-para"
	f["asyncflag"] = "on"
	f["async"] = "3"

	opts, _, err := FromForm(f)
	if err != nil {
		t.Fatalf("FromForm: %v", err)
	}
	if !opts.AsyncFlag || opts.Async != 3 {
		t.Errorf("async options wrong: %+v", opts)
	}
}

func TestFromFormBadIntegerIsError(t *testing.T) {
	f := baseForm()
	f["dimenx"] = "not-a-number"
	if _, _, err := FromForm(f); err == nil {
		t.Fatal("expected error for unparsable dimenx")
	}
}
