package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/jwebster45206/page-engine/internal/storage"
	"github.com/jwebster45206/page-engine/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <world.json|world.yaml|dir>...\n", os.Args[0])
		os.Exit(1)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run validates every file named or found under a named directory and
// returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	files, err := expandArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Validation failed: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, "Validation failed: no world files found")
		return 1
	}

	failed := false
	names := make(map[string]string) // world name -> first file using it
	for _, filename := range files {
		validator := &WorldValidator{out: stdout}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		if first, dup := names[validator.name]; dup {
			fmt.Fprintf(stderr, "Validation failed: %s reuses world name %q from %s\n", filename, validator.name, first)
			failed = true
			continue
		}
		names[validator.name] = filename
		for _, w := range validator.warnings {
			fmt.Fprintln(stdout, w)
		}
		fmt.Fprintf(stdout, "%s is valid!\n", filename)
	}
	if failed {
		return 1
	}
	return 0
}

// expandArgs replaces directories with every world file found beneath them.
func expandArgs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := storage.FindWorldFiles(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

type WorldValidator struct {
	out      io.Writer
	name     string
	errors   []string
	warnings []string
}

func (v *WorldValidator) validateFile(filename string) error {
	if v.out != nil {
		fmt.Fprintf(v.out, "Validating %s...\n", filename)
	}
	v.errors, v.warnings = nil, nil

	def, err := world.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("file %s failed strict unmarshaling: %w", filename, err)
	}
	v.name = storage.WorldName(def, filename)

	g, err := world.Load(def)
	if err != nil {
		var loadErr *world.LoadError
		if !errors.As(err, &loadErr) {
			return err
		}
		for _, e := range loadErr.Errs {
			v.addError(e.Error())
		}
	}

	v.validateStyle(def)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	for _, w := range g.Warnings() {
		v.addWarning(w.String())
	}
	return nil
}

// validateStyle reports naming that loads fine but breaks content conventions.
func (v *WorldValidator) validateStyle(def world.Definition) {
	for _, loc := range def.Locations {
		v.validateIDFormat("location ID", loc.ID)
		if loc.Title == "" && loc.ID != "" {
			v.addWarning(fmt.Sprintf("location '%s' has no title", loc.ID))
		}
		for _, t := range loc.Transitions {
			for flag := range t.SetFlags {
				v.validateFlagName(flag, loc.ID, t.Label)
			}
		}
	}
}

func (v *WorldValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addWarning(fmt.Sprintf("%s '%s' should be lowercase kebab-case or snake_case", fieldName, id))
	}
}

func (v *WorldValidator) validateFlagName(flag, locationID, label string) {
	if !isValidFlagName(flag) {
		v.addWarning(fmt.Sprintf("flag '%s' set by '%s' in %s should be lowercase snake_case", flag, label, locationID))
	}
}

func (v *WorldValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *WorldValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, "  warning: "+msg)
}

var (
	validIDRegex   = regexp.MustCompile(`^[a-z][a-z0-9_-]*[a-z0-9]$|^[a-z]$`)
	validFlagRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidFlagName(name string) bool {
	return validFlagRegex.MatchString(name)
}
