package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed shopfloor.cue
var shopfloorCUE []byte

// DefaultFilename is the name the embedded model reports in positions.
const DefaultFilename = "shopfloor.cue"

var (
	defaultOnce  sync.Once
	defaultModel *Model
	defaultErr   error
)

// Default returns the built-in shop-floor model. It is compiled once;
// callers must not modify the result.
func Default() (*Model, error) {
	defaultOnce.Do(func() {
		defaultModel, defaultErr = Parse(shopfloorCUE, DefaultFilename)
	})
	return defaultModel, defaultErr
}

// DefaultSource returns the CUE text of the built-in model.
func DefaultSource() []byte {
	return shopfloorCUE
}

// Parse compiles a model from CUE source.
func Parse(src []byte, filename string) (*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return Compile(v)
}

// Load compiles the CUE package in dir.
func Load(dir string) (*Model, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("schema directory not found: %s", dir)
	}
	if err != nil {
		return nil, fmt.Errorf("accessing schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(value)
}
