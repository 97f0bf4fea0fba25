package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwebster45206/world-engine/internal/config"
	"github.com/jwebster45206/world-engine/internal/storage"
	"github.com/jwebster45206/world-engine/pkg/spatial"
	"github.com/jwebster45206/world-engine/pkg/world"
)

const usage = `Usage:
  %[1]s <world.json>        check a world dump (a JSON array of locations)
  %[1]s <rules.yaml>        check a wilderness rules file
  %[1]s --redis             check the world stored in REDIS_URL / KEY_PREFIX
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	validator := &WorldValidator{}
	var err error
	switch arg := os.Args[1]; {
	case arg == "--redis":
		err = validator.validateRedis()
	case strings.HasSuffix(arg, ".yaml") || strings.HasSuffix(arg, ".yml"):
		err = validator.validateRules(arg)
	default:
		err = validator.validateFile(arg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("World is consistent!")
}

type WorldValidator struct {
	errors []string
}

func (v *WorldValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if filepath.Ext(filename) != ".json" {
		return fmt.Errorf("world dump must have .json extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var locs []*world.Location
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&locs); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	return v.validateWorld(filename, locs)
}

func (v *WorldValidator) validateRedis() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Printf("Validating world %q at %s...\n", cfg.KeyPrefix, cfg.RedisURL)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.KeyPrefix, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	locs, err := store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load world: %w", err)
	}
	return v.validateWorld(cfg.KeyPrefix, locs)
}

func (v *WorldValidator) validateRules(filename string) error {
	fmt.Printf("Validating %s...\n", filename)
	rules, err := spatial.LoadWildernessRules(filename)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rules.Generic) == "" {
		v.addError("generic sentence is empty")
	}
	for i, r := range rules.Rules {
		if len(r.Keywords) == 0 {
			v.addError(fmt.Sprintf("rule %d has no keywords", i))
		}
		if strings.TrimSpace(r.Sentence) == "" {
			v.addError(fmt.Sprintf("rule %d has no sentence", i))
		}
	}
	return v.result(filename)
}

// validateWorld checks each record on its own, then runs the whole-world
// diagnostics the API exposes.
func (v *WorldValidator) validateWorld(source string, locs []*world.Location) error {
	v.errors = nil
	for _, loc := range locs {
		v.validateLocation(loc)
	}

	report := spatial.Diagnose(world.NewSnapshot(locs))
	for _, w := range report.Warnings {
		v.addError(fmt.Sprintf("%s: %s", w.Kind, w.Message))
	}

	fmt.Printf("%d locations, %d with coordinates\n", report.LocationCount, report.CoordinatedCount)
	return v.result(source)
}

func (v *WorldValidator) validateLocation(loc *world.Location) {
	if strings.TrimSpace(loc.Name) == "" {
		v.addError(fmt.Sprintf("location %s has no name", loc.ID))
	}
	seen := make(map[world.Direction]bool)
	for _, e := range loc.Exits {
		if !e.Direction.IsValid() {
			v.addError(fmt.Sprintf("location %s has an exit with unknown direction %q", loc.ID, e.Direction))
			continue
		}
		if seen[e.Direction] {
			v.addError(fmt.Sprintf("location %s has more than one %s exit", loc.ID, e.Direction))
		}
		seen[e.Direction] = true
		if e.TargetID == loc.ID {
			v.addError(fmt.Sprintf("location %s has an exit to itself", loc.ID))
		}
	}
}

func (v *WorldValidator) result(source string) error {
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", source, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}
