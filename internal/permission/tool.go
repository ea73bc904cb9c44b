package permission

// Tool is the closed enumeration of known tool names. Unknown names map to
// ToolUnknown, which matches no allow rule and therefore queues for
// approval.
type Tool string

const (
	ToolBash         Tool = "Bash"
	ToolRead         Tool = "Read"
	ToolGlob         Tool = "Glob"
	ToolGrep         Tool = "Grep"
	ToolEdit         Tool = "Edit"
	ToolWrite        Tool = "Write"
	ToolMultiEdit    Tool = "MultiEdit"
	ToolNotebookEdit Tool = "NotebookEdit"
	ToolWebFetch     Tool = "WebFetch"
	ToolWebSearch    Tool = "WebSearch"
	ToolTask         Tool = "Task"
	ToolTodoWrite    Tool = "TodoWrite"
	ToolExitPlanMode Tool = "ExitPlanMode"
	ToolUnknown      Tool = ""
)

var knownTools = map[string]Tool{
	"Bash":         ToolBash,
	"Read":         ToolRead,
	"Glob":         ToolGlob,
	"Grep":         ToolGrep,
	"Edit":         ToolEdit,
	"Write":        ToolWrite,
	"MultiEdit":    ToolMultiEdit,
	"NotebookEdit": ToolNotebookEdit,
	"WebFetch":     ToolWebFetch,
	"WebSearch":    ToolWebSearch,
	"Task":         ToolTask,
	"TodoWrite":    ToolTodoWrite,
	"ExitPlanMode": ToolExitPlanMode,
}

// ParseTool maps a provider tool name to the enumeration.
func ParseTool(name string) Tool {
	if t, ok := knownTools[name]; ok {
		return t
	}
	return ToolUnknown
}

// IsEdit reports whether the tool modifies files (the AcceptEdits class).
func (t Tool) IsEdit() bool {
	switch t {
	case ToolEdit, ToolWrite, ToolMultiEdit, ToolNotebookEdit:
		return true
	}
	return false
}

// alwaysAllowed are tools that never require approval: mode transitions and
// the todo scratchpad.
var alwaysAllowed = map[Tool]bool{
	ToolExitPlanMode: true,
	ToolTodoWrite:    true,
}

// planBlocked are write-capable tools denied in plan mode (outside the plan
// scratch directory).
var planBlocked = map[Tool]bool{
	ToolEdit:         true,
	ToolWrite:        true,
	ToolMultiEdit:    true,
	ToolNotebookEdit: true,
	ToolBash:         true,
}
