package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
	"github.com/bobmcallan/toolgate/internal/executor"
)

// ExecuteTool validates, preprocesses and runs the tool called name. It
// always returns an envelope: unknown tools, invalid arguments, execution
// failures and panics are all reported as error results.
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (res executor.Result) {
	cc, ok := common.GetCallContext(ctx)
	if !ok || cc.CorrelationID == "" {
		cc.CorrelationID = uuid.NewString()
	}
	cc.Tool = name
	cc.Logger = r.logger.WithCorrelationId(cc.CorrelationID)
	ctx = common.WithCallContext(ctx, cc)
	logger := cc.Logger

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Str("tool", name).Str("panic", fmtPanic(rec)).Msg("tool execution panicked")
			res = executor.ErrorResultf("internal error executing tool '%s': %s", name, fmtPanic(rec))
		}
	}()

	tool, found := r.Get(name)
	if !found {
		err := apperrors.Newf(apperrors.CodeUnknownTool, "Unknown tool '%s'", name)
		logger.Warn().Str("tool", name).Str("code", string(apperrors.CodeOf(err))).Msg("unknown tool")
		return executor.ErrorResult(err)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Executor.ValidateArguments(args); err != nil {
		logger.Warn().Str("tool", name).Str("error", err.Error()).Msg("argument validation failed")
		return executor.ValidationErrorResult(err)
	}

	if r.opts.Preprocessor != nil {
		args = r.opts.Preprocessor(args)
	}

	start := time.Now()
	res = tool.Executor.Execute(ctx, args)
	logger.Info().
		Str("tool", name).
		Bool("is_error", res.IsError).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("tool executed")
	return res
}

func fmtPanic(rec any) string {
	if err, ok := rec.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(rec)
}
