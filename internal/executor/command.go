package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/bobmcallan/toolgate/internal/backend"
	"github.com/bobmcallan/toolgate/internal/common"
	apperrors "github.com/bobmcallan/toolgate/internal/errors"
	"github.com/bobmcallan/toolgate/internal/tooldef"
	"github.com/bobmcallan/toolgate/internal/validate"
)

// CommandExecutor renders a command template from call arguments and runs it
// on a backend target.
type CommandExecutor struct {
	def        tooldef.ToolDefinition
	backend    backend.Backend
	rules      []validate.Rule
	disallowed map[string]bool
	schema     *jsonschema.Schema
	shell      string
	shellFlag  string
	logger     *common.Logger
}

// NewCommandExecutor builds an executor for a command definition. It fails
// when the template is missing, a static value contains shell syntax, a
// validation rule does not compile or the input schema is invalid.
func NewCommandExecutor(def tooldef.ToolDefinition, be backend.Backend, logger *common.Logger) (*CommandExecutor, error) {
	if def.CommandTemplate == "" {
		return nil, apperrors.Newf(apperrors.CodeConfig, "tool %q has no command_template", def.Name)
	}
	if be == nil {
		return nil, apperrors.Newf(apperrors.CodeConfig, "tool %q has no backend", def.Name)
	}

	shell, flag := def.Shell, def.ShellFlag
	if shell == "" {
		shell = "sh"
	}
	if flag == "" {
		flag = "-c"
	}
	if err := validate.CheckStaticSafety(shell, flag, def.User, def.WorkingDir); err != nil {
		return nil, err
	}

	rules := make([]validate.Rule, 0, len(def.ValidationRules))
	for _, r := range def.ValidationRules {
		rule, err := validate.CompileRule(r.Pattern, r.Message)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	schema, err := compileSchema(def.InputSchema)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "tool "+def.Name, err)
	}

	disallowed := make(map[string]bool, len(def.DisallowedCommands))
	for _, c := range def.DisallowedCommands {
		if c = strings.TrimSpace(c); c != "" {
			disallowed[c] = true
		}
	}

	return &CommandExecutor{
		def:        def,
		backend:    be,
		rules:      rules,
		disallowed: disallowed,
		schema:     schema,
		shell:      shell,
		shellFlag:  flag,
		logger:     logger,
	}, nil
}

// MissingArguments lists template placeholders that neither the defaults nor
// args provide, in template order.
func (e *CommandExecutor) MissingArguments(args map[string]any) []string {
	var missing []string
	for _, name := range validate.Placeholders(e.def.CommandTemplate) {
		if _, ok := args[name]; ok {
			continue
		}
		if _, ok := e.def.DefaultArgs[name]; ok {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// ValidateArguments checks the serialized arguments against the rules, then
// checks placeholder coverage and the input schema.
func (e *CommandExecutor) ValidateArguments(args map[string]any) error {
	if len(e.rules) > 0 {
		raw, err := serializeArgs(args)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeValidation, "arguments are not serializable", err)
		}
		if err := validate.CheckRules(raw, e.rules); err != nil {
			return err
		}
	}

	if missing := e.MissingArguments(args); len(missing) > 0 {
		return apperrors.Newf(apperrors.CodeMissingArgument,
			"missing required arguments: %s", strings.Join(missing, ", "))
	}

	if err := validateSchema(e.schema, mergeArgs(e.def.DefaultArgs, args)); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, "invalid arguments", err)
	}
	return nil
}

// Execute renders the command and runs it on the backend.
func (e *CommandExecutor) Execute(ctx context.Context, args map[string]any) Result {
	logger := common.LoggerFrom(ctx, e.logger)
	merged := mergeArgs(e.def.DefaultArgs, args)

	if err := e.checkDisallowed(merged); err != nil {
		logger.Warn().Str("tool", e.def.Name).Str("error", err.Error()).Msg("disallowed command rejected")
		return ErrorResult(err)
	}

	var transform func(string) string
	if e.def.QuoteArguments {
		transform = backend.QuoteArg
	}
	rendered, err := validate.SubstituteFunc(e.def.CommandTemplate, merged, transform)
	if err != nil {
		return ErrorResult(err)
	}

	if err := validate.CheckRules(rendered, e.rules); err != nil {
		logger.Warn().Str("tool", e.def.Name).Str("error", err.Error()).Msg("rendered command rejected")
		return ErrorResult(err)
	}

	req := backend.Request{
		Target:     e.def.Target,
		Command:    rendered,
		User:       e.def.User,
		Shell:      e.shell,
		ShellFlag:  e.shellFlag,
		WorkingDir: e.def.WorkingDir,
		Project:    e.def.Project,
		Timeout:    e.def.Timeout(0),
	}

	out, err := e.backend.Execute(ctx, req)
	if err != nil {
		logger.Error().
			Str("tool", e.def.Name).
			Str("backend", e.backend.Name()).
			Str("target", e.def.Target).
			Str("code", string(apperrors.CodeOf(err))).
			Err(err).
			Msg("command failed")
		return ErrorResult(err)
	}

	return TextResult(strings.TrimSpace(out))
}

// checkDisallowed rejects a "command" argument whose rendered value, or its
// first word, is on the disallowed list.
func (e *CommandExecutor) checkDisallowed(merged map[string]any) error {
	if len(e.disallowed) == 0 {
		return nil
	}
	raw, ok := merged["command"]
	if !ok {
		return nil
	}
	cmd := validate.Stringify(raw)
	if rendered, err := validate.Substitute(cmd, merged); err == nil {
		cmd = rendered
	}
	cmd = strings.TrimSpace(cmd)
	if e.disallowed[cmd] || e.disallowed[firstWord(cmd)] {
		return apperrors.Newf(apperrors.CodeDisallowedCommand, "command '%s' is not allowed", firstWord(cmd))
	}
	return nil
}

// serializeArgs renders args as compact JSON without HTML escaping, so rules
// see <, > and & as written.
func serializeArgs(args map[string]any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
