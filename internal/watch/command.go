package watch

import "strings"

// CommandKind identifies an operator command.
type CommandKind int

const (
	SetMode CommandKind = iota + 1
	Rerun
	Exit
)

func (k CommandKind) String() string {
	switch k {
	case SetMode:
		return "set_mode"
	case Rerun:
		return "rerun"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Command is one parsed line of operator input.
type Command struct {
	Kind CommandKind
	Mode string // canonical mode name for SetMode
}

// ParseCommand maps an input line to a command. modes maps every accepted
// spelling of a mode to its canonical name. Lines that match nothing are
// rejected.
func ParseCommand(line string, modes map[string]string) (Command, bool) {
	line = strings.TrimSpace(line)
	if mode, ok := modes[line]; ok {
		return Command{Kind: SetMode, Mode: mode}, true
	}
	switch line {
	case "q", "Q":
		return Command{Kind: Exit}, true
	case "x", "X":
		return Command{Kind: Rerun}, true
	}
	return Command{}, false
}
