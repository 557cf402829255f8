// Package translator implements the Descriptor Translator (C4): given a
// job descriptor, it dispatches to one of four paths (Direct-A, Composed-A,
// CLI-P, GUI-P) and produces a PreparedJob or a MissingFiles/
// InvalidDescriptor failure, per spec.md §4.1.
package translator

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/Electrostatics/apbs-aws/internal/models"
	"github.com/Electrostatics/apbs-aws/internal/objectstore"
	"github.com/Electrostatics/apbs-aws/internal/translator/aoptions"
	"github.com/Electrostatics/apbs-aws/internal/translator/aread"
	"github.com/Electrostatics/apbs-aws/internal/translator/form"
	"github.com/Electrostatics/apbs-aws/internal/translator/pform"
)

const (
	composedAEstimatedMaxRuntime = 7200
	cliPEstimatedMaxRuntime      = 2700
)

// Translate dispatches a raw descriptor JSON body to the appropriate
// translation path, per spec.md §4.1's dispatch rules.
func Translate(ctx context.Context, gw objectstore.Gateway, inputBucket, outputBucket, jobTag string, descriptor []byte) (models.PreparedJob, error) {
	f, err := form.Parse(descriptor)
	if err != nil {
		return models.PreparedJob{}, &models.InvalidDescriptor{Reason: err.Error()}
	}

	switch {
	case f.Filename != "":
		return directA(ctx, gw, inputBucket, jobTag, f)
	case f.InvokeMethod == "v2" || f.InvokeMethod == "cli":
		return cliP(f)
	case f.InvokeMethod == "" || f.InvokeMethod == "v1" || f.InvokeMethod == "gui":
		return guiP(jobIDFromTag(jobTag), f)
	default:
		return composedA(ctx, gw, inputBucket, outputBucket, jobTag, f)
	}
}

// directA implements spec.md §4.1's Direct-A path.
func directA(ctx context.Context, gw objectstore.Gateway, inputBucket, jobTag string, f form.Form) (models.PreparedJob, error) {
	names := append([]string{f.Filename}, f.SupportFiles...)

	var inputFiles, missing []string
	for _, name := range names {
		key := jobTag + "/" + name
		exists, _, err := gw.Head(ctx, inputBucket, key)
		if err != nil {
			return models.PreparedJob{}, fmt.Errorf("translator: checking %s: %w", key, err)
		}
		if exists {
			inputFiles = append(inputFiles, name)
		} else {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return models.PreparedJob{}, &models.MissingFiles{Files: missing}
	}

	return models.PreparedJob{
		CLIArgs:    f.Filename,
		InputFiles: inputFiles,
	}, nil
}

// composedA implements spec.md §4.1's Composed-A path: translating a
// preparer-P run's output into an A-input file.
func composedA(ctx context.Context, gw objectstore.Gateway, inputBucket, outputBucket, jobTag string, f form.Form) (models.PreparedJob, error) {
	if !f.Has("pdb2pqrid") || f.Get("pdb2pqrid") == "" {
		// Supplemented feature #4 / Open Question decision #1: a
		// composed-A job with no pdb2pqrid cannot derive writeStem, so it
		// fails the same way any other missing input does.
		return models.PreparedJob{}, &models.MissingFiles{Files: []string{"pdb2pqrid"}}
	}

	jobID := jobIDFromTag(jobTag)
	infileName := jobID + ".in"
	infileKey := jobTag + "/" + infileName

	infileBytes, err := gw.GetBytes(ctx, outputBucket, infileKey)
	if err != nil {
		return models.PreparedJob{}, fmt.Errorf("translator: fetching %s: %w", infileKey, err)
	}

	refs := aread.ExtractInputFiles(string(infileBytes))
	if len(refs) == 0 {
		return models.PreparedJob{}, &models.MissingFiles{Files: []string{infileName}}
	}
	pqrFileName := refs[0]

	opts, _, err := aoptions.FromForm(f)
	if err != nil {
		return models.PreparedJob{}, fmt.Errorf("translator: parsing A-options: %w", err)
	}
	opts.PQRFileName = pqrFileName

	newInfileContents := aread.Render(opts)

	pqrKey := jobTag + "/" + pqrFileName
	pqrBytes, err := gw.GetBytes(ctx, outputBucket, pqrKey)
	if err != nil {
		return models.PreparedJob{}, fmt.Errorf("translator: fetching %s: %w", pqrKey, err)
	}
	pqrText := string(pqrBytes)

	var outputFiles []string
	if f.Get("removewater") == "on" {
		ext := path.Ext(pqrFileName)
		stem := strings.TrimSuffix(pqrFileName, ext)
		waterName := stem + "-water" + ext

		if err := gw.PutBytes(ctx, outputBucket, jobTag+"/"+waterName, pqrBytes); err != nil {
			return models.PreparedJob{}, fmt.Errorf("translator: preserving %s: %w", waterName, err)
		}
		outputFiles = append(outputFiles, waterName)

		pqrText = removeWaterLines(pqrText)
	}

	tempFile := "apbsinput.in"
	if err := gw.PutBytes(ctx, inputBucket, jobTag+"/"+tempFile, []byte(newInfileContents)); err != nil {
		return models.PreparedJob{}, fmt.Errorf("translator: uploading %s: %w", tempFile, err)
	}
	if err := gw.PutBytes(ctx, inputBucket, jobTag+"/"+pqrFileName, []byte(pqrText)); err != nil {
		return models.PreparedJob{}, fmt.Errorf("translator: uploading %s: %w", pqrFileName, err)
	}

	return models.PreparedJob{
		CLIArgs:             tempFile,
		InputFiles:          []string{pqrFileName, tempFile},
		OutputFiles:         outputFiles,
		EstimatedMaxRuntime: composedAEstimatedMaxRuntime,
	}, nil
}

// removeWaterLines drops every line containing "WAT" or "HOH", per
// spec.md §4.1's Composed-A path.
func removeWaterLines(text string) string {
	lines := strings.SplitAfter(text, "\n")
	var b strings.Builder
	for _, line := range lines {
		if strings.Contains(line, "WAT") || strings.Contains(line, "HOH") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

// jobIDFromTag recovers the job_id component of a "<date>/<job_id>" tag.
func jobIDFromTag(jobTag string) string {
	_, id, found := strings.Cut(jobTag, "/")
	if !found {
		return jobTag
	}
	return id
}

// cliP implements spec.md §4.1's CLI-P path.
func cliP(f form.Form) (models.PreparedJob, error) {
	inputFiles := []string{f.PdbName}

	var b strings.Builder
	for _, flag := range f.Flags {
		if flag.IsBool {
			if flag.Bool {
				fmt.Fprintf(&b, " --%s", flag.Key)
			}
		} else {
			fmt.Fprintf(&b, " --%s=%s", flag.Key, flag.Value)
		}

		if flag.Key == "userff" || flag.Key == "usernames" || flag.Key == "ligand" {
			if flag.IsBool {
				if flag.Bool {
					inputFiles = append(inputFiles, flag.Key)
				}
			} else if flag.Value != "" {
				inputFiles = append(inputFiles, flag.Value)
			}
		}
	}

	cliArgs := strings.TrimSpace(fmt.Sprintf("%s %s %s", b.String(), f.PdbName, f.PqrName))

	return models.PreparedJob{
		CLIArgs:             cliArgs,
		InputFiles:          inputFiles,
		EstimatedMaxRuntime: cliPEstimatedMaxRuntime,
	}, nil
}

// guiP implements spec.md §4.1's GUI-P path.
func guiP(jobID string, f form.Form) (models.PreparedJob, error) {
	result, err := pform.Build(f)
	if err != nil {
		return models.PreparedJob{}, &models.InvalidDescriptor{Reason: err.Error()}
	}

	var inputFiles []string
	pdbFilename := result.PDBFilename
	if result.UserDidUpload {
		inputFiles = append(inputFiles, pdbFilename)
	} else {
		if path.Ext(pdbFilename) != ".pdb" {
			pdbFilename += ".pdb"
		}
		inputFiles = append(inputFiles, fmt.Sprintf("https://files.rcsb.org/download/%s", pdbFilename))
	}

	if result.HasLigand {
		inputFiles = append(inputFiles, result.LigandFilename)
	}
	if result.HasUserFF {
		inputFiles = append(inputFiles, result.UserFFFilename, result.UserNamesFilename)
	}

	// Force pqr_name = "<job_id>.pqr", per spec.md §4.1's GUI-P path,
	// overriding whatever pform.Build derived from the PDB filename.
	pqrFilename := jobID + ".pqr"

	// result.CommandLine's last two entries are pform's own
	// (pdbFilename, pqrFilename) positional tail; drop them and rebuild
	// with the forced pqr_name and any ".pdb"-extension fixup above.
	flags := result.CommandLine[:len(result.CommandLine)-2]
	cliArgs := strings.Join(stripSummary(flags), " ")
	cliArgs = strings.TrimSpace(fmt.Sprintf("%s %s %s", cliArgs, pdbFilename, pqrFilename))

	return models.PreparedJob{
		CLIArgs:             cliArgs,
		InputFiles:          inputFiles,
		EstimatedMaxRuntime: cliPEstimatedMaxRuntime,
	}, nil
}

func stripSummary(flags []string) []string {
	out := make([]string, 0, len(flags))
	for _, flag := range flags {
		if flag == "--summary" {
			continue
		}
		out = append(out, flag)
	}
	return out
}
