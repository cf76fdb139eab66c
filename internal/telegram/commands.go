package telegram

import "strings"

// Bot commands.
const (
	CommandTeam  = "team"
	CommandLeave = "leave"
	CommandHelp  = "help"
	CommandStart = "start"
)

// Command is a parsed "/name arg" message.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand parses text starting with '/'. A "@botname" suffix on the command
// is dropped so commands addressed to the bot in groups work too.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	name, arg, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}
