package distro

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Distro is a loaded distribution.
type Distro struct {
	Dir       string
	Specs     []BundleSpec // sorted by ID
	FileCount int
	Value     cue.Value
}

// Spec returns the bundle declared with id.
func (d *Distro) Spec(id string) (BundleSpec, bool) {
	i := slices.IndexFunc(d.Specs, func(s BundleSpec) bool { return s.ID == id })
	if i < 0 {
		return BundleSpec{}, false
	}
	return d.Specs[i], true
}

// Load reads every .cue file of dir as one CUE instance and compiles the
// bundle declarations. decode may be nil.
func Load(dir string, mode LoadMode, decode DecodeFunc) (*Distro, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("distribution directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing distribution directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	d := &Distro{Dir: dir, FileCount: len(cueFiles), Value: value}
	var errs []error

	bundlesVal := value.LookupPath(cue.ParsePath("bundle"))
	if bundlesVal.Exists() {
		iter, iterErr := bundlesVal.Fields()
		if iterErr != nil {
			return d, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating bundles: %v", iterErr)}}
		}
		for iter.Next() {
			spec, compileErr := CompileBundle(iter.Label(), iter.Value(), decode)
			if compileErr != nil {
				errs = append(errs, convertFieldError(compileErr, "bundle."+iter.Label()))
				if mode == LoadModeFailFast {
					return d, errs
				}
				continue
			}
			d.Specs = append(d.Specs, *spec)
		}
	}

	if len(d.Specs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoBundles, Message: "no bundles declared"})
	}
	slices.SortFunc(d.Specs, func(a, b BundleSpec) int { return strings.Compare(a.ID, b.ID) })
	return d, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func convertFieldError(err error, context string) *LoadError {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return &LoadError{
			Code:    fieldCode(fieldErr.Field),
			Message: context + ": " + fieldErr.Message,
			Pos:     fieldErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", context, err)}
}
