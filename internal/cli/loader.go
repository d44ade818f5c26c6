package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/shopfloor/internal/schema"
)

// LoadError represents an error that occurred while loading an entity
// model.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads the entity model from a CUE package directory. An
// empty dir selects the built-in shop-floor model.
func LoadModel(dir string) (*schema.Model, error) {
	if dir == "" {
		model, err := schema.Default()
		if err != nil {
			return nil, convertCompileError(err, "built-in model")
		}
		return model, nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	model, err := schema.Load(dir)
	if err != nil {
		return nil, convertCompileError(err, dir)
	}
	return model, nil
}

// FindCUEFiles returns the .cue files directly inside dir. CUE packages
// do not span subdirectories, so nested files are not counted.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

// convertCompileError converts a model error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeLoadFailed,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants for model loading. Request failures use the
// engine's codes instead.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE evaluation failed
	ErrCodeOpenFailed  = "E007" // Database could not be opened
	ErrCodeReadFailed  = "E008" // Input file could not be read
	ErrCodeBadFilter   = "E009" // Malformed filter document
	ErrCodeBadFlag     = "E010" // Malformed flag value
	ErrCodeBadRow      = "E011" // Malformed row document

	// Model consistency errors
	ErrCodeNoEntitySets  = "E101" // No entity sets declared
	ErrCodeInvalidKey    = "E102" // Missing or invalid key
	ErrCodeInvalidProp   = "E103" // Missing or duplicate property
	ErrCodeInvalidKind   = "E104" // Unknown value kind
	ErrCodeInvalidNav    = "E105" // Invalid navigation
	ErrCodeInvalidTable  = "E106" // Missing or shared table
	ErrCodeMissingString = "E107" // Required string field missing
)

// MapFieldToErrorCode maps a model error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "entity_set":
		return ErrCodeNoEntitySets
	case "key":
		return ErrCodeInvalidKey
	case "properties":
		return ErrCodeInvalidProp
	case "kind":
		return ErrCodeInvalidKind
	case "navigation":
		return ErrCodeInvalidNav
	case "table":
		return ErrCodeInvalidTable
	case "type":
		return ErrCodeMissingString
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
