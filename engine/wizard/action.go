package wizard

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/compozy/groupops/engine/flow"
	"github.com/compozy/groupops/engine/group"
)

// ErrUnknownAction is returned for callback data this wizard never produced.
var ErrUnknownAction = errors.New("unknown wizard action")

// maxCallbackData is the Telegram limit for callback data, in bytes.
const maxCallbackData = 64

// ActionKind is the closed set of operator actions.
type ActionKind int

const (
	ActionMenu ActionKind = iota + 1
	ActionStartAddPromote
	ActionStartDemoteAll
	ActionToggleGroup
	ActionToggleBase
	ActionSelectPage
	ActionSearch
	ActionResetSearch
	ActionBack
	ActionFinishSelection
	ActionConfirm
	ActionCancel
)

var actionNames = map[ActionKind]string{
	ActionMenu:            "menu",
	ActionStartAddPromote: "start_add_promote",
	ActionStartDemoteAll:  "start_demote_all",
	ActionToggleGroup:     "toggle_group",
	ActionToggleBase:      "toggle_base",
	ActionSelectPage:      "select_page",
	ActionSearch:          "search",
	ActionResetSearch:     "reset_search",
	ActionBack:            "back",
	ActionFinishSelection: "finish_selection",
	ActionConfirm:         "confirm",
	ActionCancel:          "cancel",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}
	return "unknown"
}

// bare actions carry no parameters.
var bareCodes = map[string]ActionKind{
	"mn": ActionMenu,
	"ap": ActionStartAddPromote,
	"da": ActionStartDemoteAll,
	"sr": ActionSearch,
	"rs": ActionResetSearch,
	"bk": ActionBack,
	"fs": ActionFinishSelection,
	"ok": ActionConfirm,
	"cx": ActionCancel,
}

const (
	prefixToggleGroup    = "tg"
	prefixToggleBase     = "tb"
	prefixToggleBaseHash = "tbh"
	prefixPage           = "pg"
)

// Action is a parsed operator action.
type Action struct {
	Kind     ActionKind
	GroupID  string
	BaseName string
	BaseHash string
	Step     flow.Step
	Page     int
}

// Encode renders the action as callback data.
func (a Action) Encode() string {
	switch a.Kind {
	case ActionToggleGroup:
		return prefixToggleGroup + ":" + a.GroupID
	case ActionToggleBase:
		data := prefixToggleBase + ":" + a.BaseName
		if len(data) > maxCallbackData {
			return prefixToggleBaseHash + ":" + hashBase(a.BaseName)
		}
		return data
	case ActionSelectPage:
		return fmt.Sprintf("%s:%s:%d", prefixPage, a.Step, a.Page)
	}
	for code, kind := range bareCodes {
		if kind == a.Kind {
			return code
		}
	}
	return ""
}

// ParseAction decodes callback data produced by Encode.
func ParseAction(data string) (Action, error) {
	if kind, ok := bareCodes[data]; ok {
		return Action{Kind: kind}, nil
	}
	prefix, rest, found := strings.Cut(data, ":")
	if !found || rest == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
	}
	switch prefix {
	case prefixToggleGroup:
		return Action{Kind: ActionToggleGroup, GroupID: rest}, nil
	case prefixToggleBase:
		return Action{Kind: ActionToggleBase, BaseName: rest}, nil
	case prefixToggleBaseHash:
		return Action{Kind: ActionToggleBase, BaseHash: rest}, nil
	case prefixPage:
		stepName, pageText, ok := strings.Cut(rest, ":")
		if !ok {
			break
		}
		step, ok := flow.ParseStep(stepName)
		if !ok || !flow.IsListStep(step) {
			break
		}
		page, err := strconv.Atoi(pageText)
		if err != nil || page < 0 {
			break
		}
		return Action{Kind: ActionSelectPage, Step: step, Page: page}, nil
	}
	return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}

func hashBase(name string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return strconv.FormatUint(h.Sum64(), 36)
}

// resolveBase finds the base name an action refers to.
func resolveBase(a Action, bases map[string][]group.Group) (string, bool) {
	if a.BaseHash == "" {
		_, ok := bases[a.BaseName]
		return a.BaseName, ok
	}
	for name := range bases {
		if hashBase(name) == a.BaseHash {
			return name, true
		}
	}
	return "", false
}
