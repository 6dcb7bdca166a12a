package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmdvet/cmdvet/internal/engine"
)

// hookInput is the JSON an editor sends on stdin. Two shapes are
// auto-detected:
//
//	agent host: {"hook_event_name": "PreToolUse", "tool_name": "Bash", "tool_input": {"command": "..."}}
//	Cursor:     {"command": "...", "cwd": "..."}
type hookInput struct {
	HookEventName string        `json:"hook_event_name"`
	ToolName      string        `json:"tool_name"`
	ToolInput     hookToolInput `json:"tool_input"`

	Command string `json:"command"`
	Cwd     string `json:"cwd"`
}

type hookToolInput struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd"`
}

// hookOutput is the PreToolUse response: the permission decision rides in
// hookSpecificOutput.
type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

type cursorOutput struct {
	Continue   bool   `json:"continue"`
	Permission string `json:"permission"`
	Message    string `json:"user_message,omitempty"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "evaluate an editor PreToolUse hook payload from stdin",
	Long: `Reads a hook JSON payload from stdin, evaluates the proposed command,
and answers in the caller's format with a permission decision of allow,
ask, or deny. Malformed payloads and internal errors fail open: the hook
emits no opinion and the editor falls back to its own confirmation flow.`,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return respondHook(data, os.Stdout)
}

// respondHook evaluates one hook payload and writes the answer in the
// caller's format. Writing nothing is the "no opinion" outcome.
func respondHook(payload []byte, out io.Writer) error {
	var input hookInput
	if err := json.Unmarshal(payload, &input); err != nil {
		log.Warn().Err(err).Msg("unparseable hook input")
		return nil
	}

	if input.HookEventName != "" {
		return respondAgentHook(input, out)
	}
	if input.Command != "" {
		return respondCursorHook(input, out)
	}
	// unsupported hook event, no opinion
	return nil
}

func respondAgentHook(input hookInput, out io.Writer) error {
	if input.HookEventName != "PreToolUse" || (input.ToolName != "" && input.ToolName != "Bash") {
		return nil
	}
	command := input.ToolInput.Command
	if command == "" {
		return nil
	}

	decision, err := evaluate(command, input.ToolInput.Cwd, "hook")
	if err != nil {
		log.Warn().Err(err).Msg("evaluation failed")
		return nil
	}

	return json.NewEncoder(out).Encode(hookOutput{hookSpecificOutput{
		HookEventName:            "PreToolUse",
		PermissionDecision:       decision.Action.String(),
		PermissionDecisionReason: decision.Reason,
	}})
}

func respondCursorHook(input hookInput, out io.Writer) error {
	decision, err := evaluate(input.Command, input.Cwd, "hook")
	if err != nil {
		log.Warn().Err(err).Msg("evaluation failed")
		return json.NewEncoder(out).Encode(cursorOutput{Continue: true, Permission: "ask"})
	}

	answer := cursorOutput{Continue: true, Permission: decision.Action.String()}
	if decision.Action != engine.ActionAllow {
		answer.Message = decision.Reason
	}
	return json.NewEncoder(out).Encode(answer)
}
