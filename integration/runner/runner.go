package runner

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/world-engine/internal/services"
	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running world-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	// AreaSuffix is appended to every area a case names, so repeated runs
	// against one world do not collide.
	AreaSuffix string
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite executes a complete test suite. Suites share the world, so a
// suite must only make claims about locations it created.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
		Refs:    make(map[string]world.LocationID),
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.Refs, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, refs map[string]world.LocationID, step TestStep) TestResult {
	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	start := time.Now()
	err := r.executeStep(stepCtx, refs, step)
	return TestResult{
		StepName: step.Name,
		Success:  err == nil,
		Error:    err,
		Duration: time.Since(start),
	}
}

func (r *Runner) executeStep(ctx context.Context, refs map[string]world.LocationID, step TestStep) error {
	var (
		change *services.LocationChange
		status int
		body   []byte
		err    error
	)

	switch step.Action {
	case ActionCreate:
		in, err := r.buildInput(step.Location, refs, 0)
		if err != nil {
			return err
		}
		status, body, err = r.call(ctx, http.MethodPost, "/v1/locations", step.Actor, in)
		if err != nil {
			return err
		}
		if err := expectStatus(step.Expect, status, http.StatusCreated, body); err != nil {
			return err
		}
		if status == http.StatusCreated {
			if change, err = decodeChange(body); err != nil {
				return err
			}
			if step.Ref != "" {
				refs[step.Ref] = change.Location.ID
			}
		}

	case ActionUpdate:
		id, err := resolve(refs, step.Ref)
		if err != nil {
			return err
		}
		version := int64(0)
		if step.Location != nil && step.Location.StaleVersion {
			version = -1
		}
		in, err := r.buildInput(step.Location, refs, version)
		if err != nil {
			return err
		}
		status, body, err = r.call(ctx, http.MethodPut, "/v1/locations/"+id.String(), step.Actor, in)
		if err != nil {
			return err
		}
		if err := expectStatus(step.Expect, status, http.StatusOK, body); err != nil {
			return err
		}
		if status == http.StatusOK {
			if change, err = decodeChange(body); err != nil {
				return err
			}
		}

	case ActionDelete:
		id, err := resolve(refs, step.Ref)
		if err != nil {
			return err
		}
		status, body, err = r.call(ctx, http.MethodDelete, "/v1/locations/"+id.String(), step.Actor, nil)
		if err != nil {
			return err
		}
		if err := expectStatus(step.Expect, status, http.StatusNoContent, body); err != nil {
			return err
		}

	case ActionValidateExit:
		source, err := resolve(refs, step.Ref)
		if err != nil {
			return err
		}
		target, err := resolve(refs, step.Target)
		if err != nil {
			return err
		}
		status, body, err = r.call(ctx, http.MethodGet,
			"/v1/locations/"+source.String()+"/exits/validate?target="+target.String(), step.Actor, nil)
		if err != nil {
			return err
		}
		if err := expectStatus(step.Expect, status, http.StatusOK, body); err != nil {
			return err
		}
		if err := checkValidation(step.Expect, body); err != nil {
			return err
		}

	case ActionDiagnose:
		status, body, err = r.call(ctx, http.MethodGet, "/v1/world/diagnostics", step.Actor, nil)
		if err != nil {
			return err
		}
		if err := expectStatus(step.Expect, status, http.StatusOK, body); err != nil {
			return err
		}
		if err := checkReport(step.Expect, body); err != nil {
			return err
		}

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	if err := checkChange(step.Expect, refs, change); err != nil {
		return err
	}
	return r.checkWorld(ctx, step.Expect, refs)
}

func (r *Runner) buildInput(spec *LocationSpec, refs map[string]world.LocationID, version int64) (services.LocationInput, error) {
	if spec == nil {
		return services.LocationInput{}, fmt.Errorf("step has no location")
	}
	in := services.LocationInput{
		Name:        spec.Name,
		Description: spec.Description,
		LockedBy:    spec.LockedBy,
		Version:     version,
	}
	if spec.Coordinates != nil {
		c := r.area(*spec.Coordinates)
		in.Coordinates = &c
	}
	for _, e := range spec.Exits {
		id, err := resolve(refs, e.To)
		if err != nil {
			return in, err
		}
		in.Exits = append(in.Exits, services.ExitInput{Direction: e.Direction, TargetID: id})
	}
	return in, nil
}

// area applies AreaSuffix to a named area; the default area is left alone.
func (r *Runner) area(c world.Coordinates) world.Coordinates {
	if c.Area == "" {
		c.Area = world.DefaultArea
		return c
	}
	c.Area += r.AreaSuffix
	return c
}

func resolve(refs map[string]world.LocationID, ref string) (world.LocationID, error) {
	if ref == "" {
		return uuid.Nil, fmt.Errorf("step needs a ref")
	}
	id, ok := refs[ref]
	if !ok {
		return uuid.Nil, fmt.Errorf("unknown ref %q", ref)
	}
	return id, nil
}

func expectStatus(exp Expectations, got, success int, body []byte) error {
	want := success
	if exp.Status != nil {
		want = *exp.Status
	}
	if got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, strings.TrimSpace(string(body)))
	}
	return nil
}

func checkChange(exp Expectations, refs map[string]world.LocationID, change *services.LocationChange) error {
	if exp.Wilderness == nil && len(exp.Placed) == 0 {
		return nil
	}
	if change == nil {
		return fmt.Errorf("expected a location change in the response")
	}
	if exp.Wilderness != nil && len(change.Wilderness) != *exp.Wilderness {
		return fmt.Errorf("expected %d wilderness locations, got %d", *exp.Wilderness, len(change.Wilderness))
	}
	if len(exp.Placed) > 0 {
		var want []world.LocationID
		for _, ref := range exp.Placed {
			id, err := resolve(refs, ref)
			if err != nil {
				return err
			}
			want = append(want, id)
		}
		got := slices.Clone(change.Placed)
		slices.SortFunc(want, compareIDs)
		slices.SortFunc(got, compareIDs)
		if !slices.Equal(want, got) {
			return fmt.Errorf("expected placed %v, got %v", exp.Placed, change.Placed)
		}
	}
	return nil
}

func compareIDs(a, b world.LocationID) int {
	return strings.Compare(a.String(), b.String())
}

// checkWorld verifies the stored world after a step.
func (r *Runner) checkWorld(ctx context.Context, exp Expectations, refs map[string]world.LocationID) error {
	if len(exp.Positions) == 0 && len(exp.Unplaced) == 0 && len(exp.Exits) == 0 &&
		len(exp.NoExitsTo) == 0 && len(exp.Missing) == 0 {
		return nil
	}
	all, err := r.loadWorld(ctx)
	if err != nil {
		return err
	}
	get := func(ref string) (*world.Location, error) {
		id, err := resolve(refs, ref)
		if err != nil {
			return nil, err
		}
		loc := all[id]
		if loc == nil {
			return nil, fmt.Errorf("location %q no longer exists", ref)
		}
		return loc, nil
	}

	for ref, want := range exp.Positions {
		loc, err := get(ref)
		if err != nil {
			return err
		}
		want = r.area(want)
		if !loc.HasCoordinates() || *loc.Coordinates != want {
			return fmt.Errorf("expected %q at %s, got %v", ref, want, loc.Coordinates)
		}
	}
	for _, ref := range exp.Unplaced {
		loc, err := get(ref)
		if err != nil {
			return err
		}
		if loc.HasCoordinates() {
			return fmt.Errorf("expected %q to be unplaced, got %s", ref, loc.Coordinates)
		}
	}
	for ref, exits := range exp.Exits {
		loc, err := get(ref)
		if err != nil {
			return err
		}
		for _, e := range exits {
			d, _ := world.ParseDirection(e.Direction)
			target, err := resolve(refs, e.To)
			if err != nil {
				return err
			}
			got, ok := loc.ExitIn(d)
			if !ok || got.TargetID != target {
				return fmt.Errorf("expected %q to have a %s exit to %q", ref, e.Direction, e.To)
			}
		}
	}
	for ref, targets := range exp.NoExitsTo {
		loc, err := get(ref)
		if err != nil {
			return err
		}
		for _, t := range targets {
			target, err := resolve(refs, t)
			if err != nil {
				return err
			}
			if _, ok := loc.ExitTo(target); ok {
				return fmt.Errorf("expected %q to have no exit to %q", ref, t)
			}
		}
	}
	for _, ref := range exp.Missing {
		id, err := resolve(refs, ref)
		if err != nil {
			return err
		}
		if _, ok := all[id]; ok {
			return fmt.Errorf("expected %q to be deleted", ref)
		}
	}
	return nil
}

func checkValidation(exp Expectations, body []byte) error {
	v, err := decodeValidation(body)
	if err != nil {
		return err
	}
	if exp.CanCreateExit != nil && v.CanCreateExit != *exp.CanCreateExit {
		return fmt.Errorf("expected can_create_exit=%v, got %v (%s)", *exp.CanCreateExit, v.CanCreateExit, v.ErrorMessage)
	}
	if exp.ValidDirections != nil {
		var got []string
		for _, o := range v.ValidDirections {
			got = append(got, o.Direction.String())
		}
		want := slices.Clone(exp.ValidDirections)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return fmt.Errorf("expected directions %v, got %v", exp.ValidDirections, got)
		}
	}
	return nil
}

func checkReport(exp Expectations, body []byte) error {
	report, err := decodeReport(body)
	if err != nil {
		return err
	}
	if exp.LocationCount != nil && report.LocationCount != *exp.LocationCount {
		return fmt.Errorf("expected %d locations, got %d", *exp.LocationCount, report.LocationCount)
	}
	for kind, want := range exp.Warnings {
		if got := report.Count(spatial.WarningKind(kind)); got != want {
			return fmt.Errorf("expected %d %s warnings, got %d", want, kind, got)
		}
	}
	return nil
}
