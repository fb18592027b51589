package conversation

import (
	"strings"

	"github.com/pot-code/lessonrelay/internal/domain"
)

// Input what an action asks for, the column of the transition table
type Input string

// recognized inputs
const (
	InputStart            Input = "start"
	InputPickRole         Input = "pick_role"
	InputNewLesson        Input = "new_lesson"
	InputListLessons      Input = "list_lessons"
	InputRemind           Input = "remind"
	InputGetLesson        Input = "get_lesson"
	InputSubmitReport     Input = "submit_report"
	InputNotifySupervisor Input = "notify_supervisor"
	InputCheckStatus      Input = "check_status"
	InputReview           Input = "review"
	InputCancel           Input = "cancel"
	InputReset            Input = "reset"
	InputText             Input = "text"
	InputPhoto            Input = "photo"
	InputVideo            Input = "video"
	InputUnknown          Input = "unknown"
)

// slash commands
const (
	CommandStart     = "/start"
	CommandNewLesson = "/new_lesson"
	CommandLessons   = "/lessons"
	CommandRemind    = "/remind"
	CommandGetLesson = "/get_lesson"
	CommandReport    = "/report"
	CommandStatus    = "/status"
	CommandCancel    = "/cancel"
	CommandReset     = "/reset"
)

var commandInputs = map[string]Input{
	CommandStart:     InputStart,
	CommandNewLesson: InputNewLesson,
	CommandLessons:   InputListLessons,
	CommandRemind:    InputRemind,
	CommandGetLesson: InputGetLesson,
	CommandReport:    InputSubmitReport,
	CommandStatus:    InputCheckStatus,
	CommandCancel:    InputCancel,
	CommandReset:     InputReset,
}

var menuInputs = map[string]Input{
	domain.MenuNewLesson:    InputNewLesson,
	domain.MenuListLessons:  InputListLessons,
	domain.MenuRemind:       InputRemind,
	domain.MenuGetLesson:    InputGetLesson,
	domain.MenuSubmitReport: InputSubmitReport,
}

var controlInputs = map[string]Input{
	domain.ControlCancel:           InputCancel,
	domain.ControlNotifySupervisor: InputNotifySupervisor,
	domain.ControlCheckStatus:      InputCheckStatus,
	domain.ControlSubmitReport:     InputSubmitReport,
}

// Classify map an action onto its table input
func Classify(action *domain.Action) Input {
	switch action.Kind {
	case domain.ActionPhoto:
		return InputPhoto
	case domain.ActionVideo:
		return InputVideo
	case domain.ActionControl:
		data := strings.TrimSpace(action.Data)
		if in, ok := controlInputs[data]; ok {
			return in
		}
		if strings.HasPrefix(data, domain.ControlRolePrefix) {
			return InputPickRole
		}
		if domain.IsReviewToken(data) {
			return InputReview
		}
		return InputUnknown
	case domain.ActionText:
		text := strings.TrimSpace(action.Text)
		if in, ok := menuInputs[text]; ok {
			return in
		}
		if command, _ := splitCommand(text); command != "" {
			if in, ok := commandInputs[command]; ok {
				return in
			}
			return InputUnknown
		}
		return InputText
	}
	return InputUnknown
}

// splitCommand "/reset secret" -> ("/reset", "secret"), command is empty for plain text
func splitCommand(text string) (command, arg string) {
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	fields := strings.SplitN(text, " ", 2)
	command = fields[0]
	if at := strings.IndexByte(command, '@'); at > 0 {
		command = command[:at]
	}
	if len(fields) == 2 {
		arg = strings.TrimSpace(fields[1])
	}
	return strings.ToLower(command), arg
}
