package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/shopfloor/internal/engine"
	"github.com/roach88/shopfloor/internal/schema"
	"github.com/roach88/shopfloor/internal/store"
)

// session is the model, store and engine one command works with.
type session struct {
	model  *schema.Model
	store  *store.Store
	engine *engine.Engine
}

// openSession loads the configured model and opens the configured
// database. Failures are reported through f and come back as an
// ExitError.
func openSession(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*session, error) {
	cfg := opts.Config

	model, err := LoadModel(cfg.Schema)
	if err != nil {
		return nil, outputLoadError(f, err)
	}

	st, err := store.Open(cfg.DB, model)
	if err != nil {
		_ = f.Error(ErrCodeOpenFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}
	f.VerboseLog("Opened %s (%d entity sets)", cfg.DB, len(model.Sets))

	eng := engine.New(st, engine.UUIDv7Generator{},
		engine.WithLogger(newLogger(opts, cmd.ErrOrStderr())),
		engine.WithExpandDepth(cfg.ExpandDepth),
		engine.WithDefaultLimit(cfg.DefaultLimit),
		engine.WithUser(cfg.User),
	)
	return &session{model: model, store: st, engine: eng}, nil
}

func (s *session) Close() error {
	return s.store.Close()
}

// outputLoadError reports a model loading failure. Invalid models are
// exit code 1, unreadable ones exit code 2.
func outputLoadError(f *OutputFormatter, err error) error {
	loadErr, ok := err.(*LoadError)
	if !ok {
		loadErr = &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	var details interface{}
	if loadErr.Pos.IsValid() {
		details = map[string]interface{}{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	_ = f.Error(loadErr.Code, loadErr.Message, details)

	switch loadErr.Code {
	case ErrCodeNotFound, ErrCodeScanError, ErrCodeNoFiles:
		return WrapExitError(ExitCommandError, loadErr.Code, err)
	default:
		return WrapExitError(ExitFailure, loadErr.Code, err)
	}
}
