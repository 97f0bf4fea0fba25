package runner

import (
	"time"

	"github.com/jwebster45206/world-engine/pkg/world"
)

// Action is what a step asks the API to do.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionValidateExit Action = "validate_exit"
	ActionDiagnose     Action = "diagnose"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `yaml:"name"`
	Steps []TestStep `yaml:"steps,omitempty"` // Used for regular tests
	Cases []string   `yaml:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single API call and its expected outcomes.
// Locations are named by ref, a suite-local alias bound when a create step
// succeeds.
type TestStep struct {
	Name     string        `yaml:"name,omitempty"`
	Action   Action        `yaml:"action"`
	Ref      string        `yaml:"ref,omitempty"`
	Actor    string        `yaml:"actor,omitempty"`
	Location *LocationSpec `yaml:"location,omitempty"` // create and update
	Target   string        `yaml:"target,omitempty"`   // validate_exit
	Expect   Expectations  `yaml:"expect"`
}

type ExitSpec struct {
	Direction string `yaml:"direction"`
	To        string `yaml:"to"` // ref
}

type LocationSpec struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Exits       []ExitSpec         `yaml:"exits,omitempty"`
	Coordinates *world.Coordinates `yaml:"coordinates,omitempty"`
	LockedBy    *string            `yaml:"locked_by,omitempty"`
	// StaleVersion sends a version that cannot match the stored one.
	StaleVersion bool `yaml:"stale_version,omitempty"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// HTTP status; defaults to the action's success status.
	Status *int `yaml:"status,omitempty"`

	// Outcome of a create or update
	Wilderness *int     `yaml:"wilderness,omitempty"` // number of generated fillers
	Placed     []string `yaml:"placed,omitempty"`     // refs placed by the cascade (order independent)

	// World state after the step, by ref
	Positions map[string]world.Coordinates `yaml:"positions,omitempty"`
	Unplaced  []string                     `yaml:"unplaced,omitempty"`
	Exits     map[string][]ExitSpec        `yaml:"exits,omitempty"` // exits each ref must have
	NoExitsTo map[string][]string          `yaml:"no_exits_to,omitempty"`
	Missing   []string                     `yaml:"missing,omitempty"`

	// validate_exit
	CanCreateExit   *bool    `yaml:"can_create_exit,omitempty"`
	ValidDirections []string `yaml:"valid_directions,omitempty"` // exact set

	// diagnose
	LocationCount *int           `yaml:"location_count,omitempty"`
	Warnings      map[string]int `yaml:"warnings,omitempty"` // kind -> count
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Refs     map[string]world.LocationID
	Duration time.Duration
	Error    error
}
