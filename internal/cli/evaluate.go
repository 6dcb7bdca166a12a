package cli

import (
	"os"

	"github.com/cmdvet/cmdvet/internal/engine"
	"github.com/cmdvet/cmdvet/internal/logger"
	"github.com/cmdvet/cmdvet/internal/policy"
)

// evaluate runs one command through policy loading, the engine, and the
// audit log. Policy load failures surface as errors so a broken config
// never silently weakens protection.
func evaluate(command, cwd, source string) (engine.Decision, error) {
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	cfg, err := policy.Load(cwd)
	if err != nil {
		return engine.Decision{}, err
	}

	decision := engine.Analyze(command, cfg, cwd)

	audit(logger.AuditEvent{
		Source:   source,
		Command:  command,
		Cwd:      cwd,
		Decision: decision.Action.String(),
		Reason:   decision.Reason,
	})

	return decision, nil
}

// audit appends one event, logging failures instead of failing the
// evaluation: a broken audit disk must not block the editor.
func audit(event logger.AuditEvent) {
	path := auditPath
	if path == "" {
		path = logger.DefaultPath()
	}
	if path == "" {
		return
	}
	al, err := logger.New(path)
	if err != nil {
		log.Warn().Err(err).Msg("audit log unavailable")
		return
	}
	defer al.Close()
	if err := al.Log(event); err != nil {
		log.Warn().Err(err).Msg("audit write failed")
	}
}
