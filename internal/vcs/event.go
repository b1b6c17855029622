package vcs

import (
	"fmt"
	"regexp"
	"strings"
)

// Action is the kind of filesystem change reported during a sync.
type Action string

const (
	ActionAdded     Action = "added"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
	ActionConflict  Action = "conflict"
	ActionMerged    Action = "merged"
	ActionReplaced  Action = "replaced"
	ActionExisted   Action = "existed"
	ActionRestored  Action = "restored"
	ActionSkipped   Action = "skipped"
	ActionExternal  Action = "external"
	ActionCleanedUp Action = "cleaned up"
	ActionRevision  Action = "revision"
)

// Event is a single filesystem change observed while syncing.
type Event struct {
	Action   Action
	Path     string
	Revision string
}

// Description renders the event as a human readable line.
func (e Event) Description() string {
	switch e.Action {
	case ActionRevision:
		return "At revision " + e.Revision
	case ActionExternal:
		return "Fetching external item into " + e.Path
	case ActionConflict:
		return "Conflict in " + e.Path
	default:
		return fmt.Sprintf("%s %s", capitalize(string(e.Action)), e.Path)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// svnActions maps the first status column of svn checkout/update output.
var svnActions = map[byte]Action{
	'A': ActionAdded,
	'U': ActionUpdated,
	'D': ActionDeleted,
	'C': ActionConflict,
	'G': ActionMerged,
	'R': ActionReplaced,
	'E': ActionExisted,
}

var (
	svnRevisionRegex = regexp.MustCompile(`^(?:Checked out|Updated to|At) revision (\d+)\.$`)
	svnExternalRegex = regexp.MustCompile(`^Fetching external item into '(.+)':?$`)
	svnRestoredRegex = regexp.MustCompile(`^Restored '(.+)'$`)
	svnSkippedRegex  = regexp.MustCompile(`^Skipped(?: missing target)?:? '(.+)'`)
)

// parseSVNLine converts one line of svn checkout/update output into an Event.
// ok is false for lines that describe no change.
func parseSVNLine(line string) (ev Event, ok bool) {
	line = strings.TrimRight(line, "\r")
	if m := svnRevisionRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionRevision, Revision: m[1]}, true
	}
	if m := svnExternalRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionExternal, Path: m[1]}, true
	}
	if m := svnRestoredRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionRestored, Path: m[1]}, true
	}
	if m := svnSkippedRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionSkipped, Path: m[1]}, true
	}

	// Status lines carry four status columns, a space, then the path.
	if len(line) < 6 || line[4] != ' ' {
		return Event{}, false
	}
	for i := 0; i < 4; i++ {
		c := line[i]
		if c == ' ' {
			continue
		}
		action, known := svnActions[c]
		if !known {
			if c == 'B' {
				continue
			}
			return Event{}, false
		}
		return Event{Action: action, Path: strings.TrimSpace(line[5:])}, true
	}
	return Event{}, false
}

var (
	gitCreateRegex = regexp.MustCompile(`^\s*create mode \d+ (.+)$`)
	gitDeleteRegex = regexp.MustCompile(`^\s*delete mode \d+ (.+)$`)
	gitStatRegex   = regexp.MustCompile(`^\s*(\S.*?)\s+\|\s+(?:\d+|Bin)`)
	gitSubmodRegex = regexp.MustCompile(`^Submodule path '(.+)': checked out`)
)

// parseGitLine converts one line of git pull/clone output into an Event.
func parseGitLine(line string) (ev Event, ok bool) {
	line = strings.TrimRight(line, "\r")
	if m := gitCreateRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionAdded, Path: m[1]}, true
	}
	if m := gitDeleteRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionDeleted, Path: m[1]}, true
	}
	if m := gitSubmodRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionExternal, Path: m[1]}, true
	}
	if m := gitStatRegex.FindStringSubmatch(line); m != nil {
		return Event{Action: ActionUpdated, Path: m[1]}, true
	}
	if strings.HasPrefix(line, "CONFLICT") {
		return Event{Action: ActionConflict, Path: strings.TrimSpace(line[strings.LastIndex(line, " ")+1:])}, true
	}
	return Event{}, false
}
