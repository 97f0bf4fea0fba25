package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/world-engine/integration/runner"
)

const casesDir = "cases"

func discoverTestFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		ext := filepath.Ext(path)
		if !info.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// loadAllJobs loads every case file. Sequence files are skipped because
// they only re-run cases that are discovered on their own.
func loadAllJobs(dir string) ([]runner.TestJob, []error) {
	files, err := discoverTestFiles(dir)
	if err != nil {
		return nil, []error{err}
	}

	var (
		jobs []runner.TestJob
		errs []error
	)
	for _, file := range files {
		suite, err := runner.LoadTestSuite(file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if suite.IsSequence() {
			continue
		}
		jobs = append(jobs, runner.TestJob{Name: suite.Name, Suite: suite, CaseFile: file})
	}
	return jobs, errs
}

// caseFile turns a -case name into a path under the cases directory.
func caseFile(name string) string {
	path := filepath.Join(casesDir, name)
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		path += ".yaml"
	}
	return path
}

func getIntEnv(name string, defaultValue int) int {
	str := os.Getenv(name)
	if str == "" {
		return defaultValue
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}

	return val
}

// runJob runs one case and folds a runner error into its result.
func runJob(ctx context.Context, r *runner.Runner, job runner.TestJob) runner.TestRunResult {
	result, err := r.RunSuite(ctx, job.Suite)
	if err != nil && result.Error == nil {
		result.Error = err
	}
	result.Job = job
	return result
}

func requireSuitePassed(t *testing.T, result runner.TestRunResult) {
	t.Helper()
	for _, step := range result.Results {
		assert.True(t, step.Success, "step %q: %v", step.StepName, step.Error)
	}
	require.NoError(t, result.Error)
}

type stepFailure struct {
	caseName string
	stepName string
	run      int
	err      error
}

// tally counts case outcomes across runs and remembers which steps failed.
type tally struct {
	cases  []string
	passes map[string]int
	fails  map[string]int
	steps  []stepFailure
}

func newTally() *tally {
	return &tally{
		passes: make(map[string]int),
		fails:  make(map[string]int),
	}
}

func (tl *tally) add(result runner.TestRunResult, run int) {
	name := result.Job.Name
	if tl.passes[name]+tl.fails[name] == 0 {
		tl.cases = append(tl.cases, name)
	}
	if result.Error == nil {
		tl.passes[name]++
		return
	}
	tl.fails[name]++
	for _, step := range result.Results {
		if !step.Success {
			tl.steps = append(tl.steps, stepFailure{caseName: name, stepName: step.StepName, run: run, err: step.Error})
		}
	}
}

func (tl *tally) failures() int {
	n := 0
	for _, f := range tl.fails {
		n += f
	}
	return n
}

// summary prints one line per case in first-seen order. A case that both
// passed and failed is marked flaky.
func (tl *tally) summary() string {
	var sb strings.Builder
	sb.WriteString("Integration summary:\n")
	for _, name := range tl.cases {
		p, f := tl.passes[name], tl.fails[name]
		fmt.Fprintf(&sb, "   %s: %d/%d passed", name, p, p+f)
		if p > 0 && f > 0 {
			sb.WriteString(" (flaky)")
		}
		sb.WriteString("\n")
	}
	for _, s := range tl.steps {
		fmt.Fprintf(&sb, "   ✗ %s / %s (run %d): %v\n", s.caseName, s.stepName, s.run, s.err)
	}
	return sb.String()
}
