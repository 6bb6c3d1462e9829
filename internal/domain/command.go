package domain

// CommandType classifies what the user wants to do.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandNext
	CommandPrevious
	CommandJump
	CommandPlay
	CommandStop
	CommandContinuous
	CommandLanguage
	CommandStatus
	CommandRepeat
	CommandFruit
	CommandHighlight
	CommandReset
	CommandQuit
	CommandHelp
	CommandAsk
)

var commandNames = map[CommandType]string{
	CommandUnknown:    "unknown",
	CommandNext:       "next",
	CommandPrevious:   "previous",
	CommandJump:       "jump",
	CommandPlay:       "play",
	CommandStop:       "stop",
	CommandContinuous: "continuous",
	CommandLanguage:   "language",
	CommandStatus:     "status",
	CommandRepeat:     "repeat",
	CommandFruit:      "fruit",
	CommandHighlight:  "highlight",
	CommandReset:      "reset",
	CommandQuit:       "quit",
	CommandHelp:       "help",
	CommandAsk:        "ask",
}

// String returns a human-readable command type.
func (c CommandType) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// CommandFromString converts a command name to a CommandType.
// Returns CommandUnknown for unrecognized names.
func CommandFromString(name string) CommandType {
	for t, n := range commandNames {
		if n == name {
			return t
		}
	}
	return CommandUnknown
}

// Command represents a parsed user action.
type Command struct {
	Type    CommandType
	Payload string // optional argument: step number, language tag, question
}
