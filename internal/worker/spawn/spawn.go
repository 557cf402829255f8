// Package spawn implements the per-job subprocess lifecycle the worker
// drives once a WorkMessage has been leased: materializing input_files
// into the job's working directory, running the chosen binary, and
// uploading whatever the run produced. Grounded on
// original_source/src/docker/job_control.py's run_job, split into three
// steps (Materialize, Run, Upload) so internal/worker can interleave its
// own status writes and metrics snapshots between them per spec.md §4.3.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/Electrostatics/apbs-aws/internal/objectstore"
)

const (
	defaultAPBSBinPath = "apbs"
	defaultAPBSLibPath = "/app/APBS-3.0.0.Linux/lib"
	defaultPDB2PQRPath = "pdb2pqr30"
)

// Job groups the leased WorkMessage fields spawn's three steps need.
type Job struct {
	JobTag      string
	JobType     string // "A" or "P", per jobtag.Kind
	InputBucket string
	CLIArgs     string
	InputFiles  []string
}

func isURL(entry string) bool {
	return strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://")
}

// Materialize fetches every entry in job.InputFiles into dir, per
// spec.md §4.3 step 4: a URL is HTTP GET'd to "<dir>/<basename>"; anything
// else is an object-store key relative-to-job, GET'd from
// "<job.JobTag>/<entry>" in job.InputBucket to "<dir>/<entry>". The first
// failing entry aborts the rest; the caller is responsible for the
// failed-status/cleanup path spec.md §4.3 step 4 describes.
func Materialize(ctx context.Context, gw objectstore.Gateway, httpClient *http.Client, dir string, job Job) error {
	for _, entry := range job.InputFiles {
		if isURL(entry) {
			dest := filepath.Join(dir, path.Base(entry))
			if err := fetchURL(ctx, httpClient, entry, dest); err != nil {
				return fmt.Errorf("spawn: downloading %s: %w", entry, err)
			}
			continue
		}

		key := job.JobTag + "/" + entry
		dest := filepath.Join(dir, entry)
		if err := fetchObject(ctx, gw, job.InputBucket, key, dest); err != nil {
			return fmt.Errorf("spawn: downloading %s: %w", key, err)
		}
	}
	return nil
}

func fetchURL(ctx context.Context, httpClient *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, resp.Body)
	return err
}

func fetchObject(ctx context.Context, gw objectstore.Gateway, bucket, key, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	return gw.DownloadFile(ctx, bucket, key, f)
}

// binaryPath resolves the executable and any extra environment
// (LD_LIBRARY_PATH for apbs) per spec.md §4.3 step 6: "A" -> apbs, "P" ->
// pdb2pqr30. Overridable via APBS_BIN_PATH/APBS_LIB_PATH/PDB2PQR_BIN_PATH
// for test and deployment-path flexibility; job_control.py hardcodes
// these paths directly.
func binaryPath(jobType string) (binPath string, extraEnv []string, err error) {
	switch jobType {
	case "A":
		bin := envOr("APBS_BIN_PATH", defaultAPBSBinPath)
		lib := envOr("APBS_LIB_PATH", defaultAPBSLibPath)
		return bin, []string{"LD_LIBRARY_PATH=" + lib}, nil
	case "P":
		return envOr("PDB2PQR_BIN_PATH", defaultPDB2PQRPath), nil, nil
	default:
		return "", nil, fmt.Errorf("spawn: invalid job type %q", jobType)
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// Run spawns job's binary inside dir with job.CLIArgs split on whitespace,
// capturing stdout/stderr into "<kind>.stdout.txt"/"<kind>.stderr.txt".
// Per spec.md §4.3's failure semantics, a non-zero exit is reported, not
// treated as an error here; only a failure to start the process (missing
// binary, bad working directory) is returned as err.
func Run(ctx context.Context, dir, kind string, job Job) (exitCode int, err error) {
	binPath, extraEnv, err := binaryPath(job.JobType)
	if err != nil {
		return 0, err
	}

	stdoutFile, err := os.Create(filepath.Join(dir, kind+".stdout.txt"))
	if err != nil {
		return 0, err
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(filepath.Join(dir, kind+".stderr.txt"))
	if err != nil {
		return 0, err
	}
	defer stderrFile.Close()

	cmd := exec.CommandContext(ctx, binPath, strings.Fields(job.CLIArgs)...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), extraEnv...)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile

	runErr := cmd.Run()
	if runErr == nil {
		return cmd.ProcessState.ExitCode(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("spawn: running %s: %w", binPath, runErr)
}

// UploadResult is Upload's return value.
type UploadResult struct {
	// OutputFiles is the subset of uploaded names whose basenames do not
	// appear (basename-compared) among originalInputFiles, per spec.md
	// §4.3 step 8.
	OutputFiles []string
	// Errs holds one entry per file that failed to upload; per spec.md's
	// failure semantics these do not abort the batch.
	Errs []error
}

// Upload uploads every regular file directly inside dir (job_control.py's
// listdir(".") is not recursive; this matches) to "<jobTag>/<name>" in
// outputBucket.
func Upload(ctx context.Context, gw objectstore.Gateway, outputBucket, jobTag, dir string, originalInputFiles []string) (UploadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return UploadResult{}, err
	}

	seen := make(map[string]bool, len(originalInputFiles))
	for _, f := range originalInputFiles {
		seen[path.Base(f)] = true
	}

	var result UploadResult
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			result.Errs = append(result.Errs, fmt.Errorf("reading %s: %w", name, err))
			continue
		}
		if err := gw.PutBytes(ctx, outputBucket, jobTag+"/"+name, data); err != nil {
			result.Errs = append(result.Errs, fmt.Errorf("uploading %s: %w", name, err))
			continue
		}
		if !seen[name] {
			result.OutputFiles = append(result.OutputFiles, name)
		}
	}
	return result, nil
}
