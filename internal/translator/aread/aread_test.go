package aread

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Electrostatics/apbs-aws/internal/translator/aoptions"
)

func TestExtractInputFiles(t *testing.T) {
	infile := `read
    mol pqr ./protein.pqr
end
elec
    mg-auto
end
quit`
	got := ExtractInputFiles(infile)
	want := []string{"./protein.pqr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractInputFiles() = %v, want %v", got, want)
	}
}

func TestExtractInputFilesMultipleAndComments(t *testing.T) {
	infile := `# leading comment
read
    mol pqr first.pqr second.pqr #trailing junk ignored
    mol pqr third.pqr
end
quit`
	got := ExtractInputFiles(infile)
	want := []string{"first.pqr", "second.pqr", "third.pqr"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractInputFiles() = %v, want %v", got, want)
	}
}

func TestExtractInputFilesNoReadSection(t *testing.T) {
	got := ExtractInputFiles("elec\n    mg-auto\nend\nquit")
	if len(got) != 0 {
		t.Errorf("ExtractInputFiles() = %v, want empty", got)
	}
}

func TestRenderMgAuto(t *testing.T) {
	opts := aoptions.Options{
		ReadType: "mol", ReadFormat: "pqr", PQRFileName: "job.pqr",
		CalcType: "mg-auto",
		DimeNX:   65, DimeNY: 65, DimeNZ: 65,
		CglenX: 100, CglenY: 100, CglenZ: 100,
		FglenX: 40, FglenY: 40, FglenZ: 40,
		CoarseGridCenterMethod:     aoptions.GridCenterMolecule,
		CoarseGridCenterMoleculeID: 1,
		FineGridCenterMethod:       aoptions.GridCenterMolecule,
		FineGridCenterMoleculeID:   1,
		Mol:                        1,
		SolveType:                  "lpbe",
		BoundaryConditions:         "sdh",
		DielectricIonAccessibilityModel:  "smol",
		BiomolecularPointChargeMapMethod: "spl2",
		CalcEnergy:                       "total",
		CalcForce:                        "no",
		WriteFormat:                      "dx",
		WriteStem:                        "job",
		WriteCharge:                      true,
	}

	got := Render(opts)
	if got[:5] != "read\n" {
		t.Errorf("Render() does not start with read block: %q", got)
	}
	if !strings.Contains(got, "mol pqr job.pqr") {
		t.Errorf("Render() missing read line: %q", got)
	}
	if !strings.Contains(got, "cglen 100 100 100") {
		t.Errorf("Render() missing cglen line: %q", got)
	}
	if !strings.Contains(got, "fglen 40 40 40") {
		t.Errorf("Render() missing fglen line: %q", got)
	}
	if !strings.Contains(got, "cgcent mol 1") {
		t.Errorf("Render() missing cgcent line: %q", got)
	}
	if !strings.Contains(got, "write charge dx job-charge") {
		t.Errorf("Render() missing write line: %q", got)
	}
	if got[len(got)-4:] != "quit" {
		t.Errorf("Render() does not end with quit: %q", got)
	}
}

func TestRenderFeManualSkipsDime(t *testing.T) {
	opts := aoptions.Options{CalcType: "fe-manual", SolveType: "lpbe", Mol: 1}
	got := Render(opts)
	if strings.Contains(got, "dime ") {
		t.Errorf("Render() should not emit dime for fe-manual: %q", got)
	}
}

func TestRenderIonSlotOnlyWhenComplete(t *testing.T) {
	charge := 1
	opts := aoptions.Options{CalcType: "mg-auto", SolveType: "lpbe", Mol: 1}
	opts.Ions[0] = aoptions.IonSlot{Charge: &charge}
	got := Render(opts)
	if strings.Contains(got, "ion charge") {
		t.Errorf("Render() should not emit an incomplete ion slot: %q", got)
	}
}
