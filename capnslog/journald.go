package capnslog

import (
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournaldFormatter writes log entries to the systemd journal via
// sd_journal_send, mapping capnslog's LogLevel onto syslog priority so that
// journalctl's -p filtering lines up with SetLogLevel.
type JournaldFormatter struct{}

// NewJournaldFormatter returns a Formatter suitable for SetFormatter when
// the process is running under systemd. Callers should check
// journal.Enabled() first and fall back to NewStringFormatter otherwise.
func NewJournaldFormatter() *JournaldFormatter {
	return &JournaldFormatter{}
}

func (j *JournaldFormatter) Format(pkg string, level LogLevel, _ int, entries ...LogEntry) {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.LogString())
	}
	journal.Send(b.String(), levelToPriority(level), map[string]string{
		"SYSLOG_IDENTIFIER": pkg,
		"PRIORITY":          strconv.Itoa(int(levelToPriority(level))),
	})
}

func levelToPriority(l LogLevel) journal.Priority {
	switch l {
	case CRITICAL:
		return journal.PriCrit
	case ERROR:
		return journal.PriErr
	case WARNING:
		return journal.PriWarning
	case NOTICE:
		return journal.PriNotice
	case INFO:
		return journal.PriInfo
	case DEBUG, TRACE:
		return journal.PriDebug
	default:
		return journal.PriInfo
	}
}
