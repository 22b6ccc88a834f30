package schemas

import (
	"fmt"
	"sort"
)

// ActionKind identifies one variant of the Action tagged union.
type ActionKind string

// Web (browser) action kinds.
const (
	KindOpen                 ActionKind = "Open"
	KindClick                ActionKind = "Click"
	KindSendKeys             ActionKind = "SendKeys"
	KindSendKeysToActive     ActionKind = "SendKeysToActive"
	KindFindElement          ActionKind = "FindElement"
	KindGetElementValue      ActionKind = "GetElementValue"
	KindGetElementAttribute  ActionKind = "GetElementAttribute"
	KindGetElementInnerHtml  ActionKind = "GetElementInnerHtml"
	KindGetElementScreenshot ActionKind = "GetElementScreenshot"
	KindGetScreenshot        ActionKind = "GetScreenshot"
	KindScrollDivUntil       ActionKind = "ScrollDivUntil"
	KindSwitchWindow         ActionKind = "SwitchWindow"
	KindWait                 ActionKind = "Wait"
	KindWaitForElement       ActionKind = "WaitForElement"
	KindSelectFrame          ActionKind = "SelectFrame"
	KindExecuteJS            ActionKind = "ExecuteJS"
	KindExecuteJSElement     ActionKind = "ExecuteJSElement"
	KindInclude              ActionKind = "Include"
)

// Desktop (windows) action kinds.
const (
	KindWinOpen                 ActionKind = "WinOpen"
	KindWinClick                ActionKind = "WinClick"
	KindWinSendText             ActionKind = "WinSendText"
	KindWinGetActiveWindow      ActionKind = "WinGetActiveWindow"
	KindWinGetWindow            ActionKind = "WinGetWindow"
	KindWinGetElementAttribute  ActionKind = "WinGetElementAttribute"
	KindWinWait                 ActionKind = "WinWait"
	KindWinToggleCheckBox       ActionKind = "WinToggleCheckBox"
	KindWinClickContextMenu     ActionKind = "WinClickContextMenu"
	KindWinCheckElement         ActionKind = "WinCheckElement"
	KindWinSearchElement        ActionKind = "WinSearchElement"
	KindWinWaitForAttribute     ActionKind = "WinWaitForAttribute"
	KindWinScrollUsingText      ActionKind = "WinScrollUsingText"
	KindWinGetDataFromClipboard ActionKind = "WinGetDataFromClipboard"
	KindWinColorsCollector      ActionKind = "WinColorsCollector"
	KindWinDragAndDrop          ActionKind = "WinDragAndDrop"
	KindWinGetElementColor      ActionKind = "WinGetElementColor"
	KindWinGetScreenshot        ActionKind = "WinGetScreenshot"
	KindWinMaximizeMainWindow   ActionKind = "WinMaximizeMainWindow"
	KindWinRestartDriver        ActionKind = "WinRestartDriver"
	KindWinScrollToElement      ActionKind = "WinScrollToElement"
	KindWinTableSearch          ActionKind = "WinTableSearch"
	KindWinWaitForElement       ActionKind = "WinWaitForElement"
	KindWinTakeScreenshot       ActionKind = "WinTakeScreenshot"
)

// Action is one UI automation command. Each kind is a distinct struct
// implemented on a pointer receiver.
type Action interface {
	Kind() ActionKind
}

// Locator names the strategy a matcher is interpreted with.
type Locator string

const (
	LocatorCSSSelector Locator = "cssSelector"
	LocatorTagName     Locator = "tagName"
	LocatorID          Locator = "id"
	LocatorXPath       Locator = "xpath"
)

var actionFactories = map[ActionKind]func() Action{
	KindOpen:                 func() Action { return &Open{} },
	KindClick:                func() Action { return &Click{} },
	KindSendKeys:             func() Action { return &SendKeys{} },
	KindSendKeysToActive:     func() Action { return &SendKeysToActive{} },
	KindFindElement:          func() Action { return &FindElement{} },
	KindGetElementValue:      func() Action { return &GetElementValue{} },
	KindGetElementAttribute:  func() Action { return &GetElementAttribute{} },
	KindGetElementInnerHtml:  func() Action { return &GetElementInnerHtml{} },
	KindGetElementScreenshot: func() Action { return &GetElementScreenshot{} },
	KindGetScreenshot:        func() Action { return &GetScreenshot{} },
	KindScrollDivUntil:       func() Action { return &ScrollDivUntil{} },
	KindSwitchWindow:         func() Action { return &SwitchWindow{} },
	KindWait:                 func() Action { return &Wait{} },
	KindWaitForElement:       func() Action { return &WaitForElement{} },
	KindSelectFrame:          func() Action { return &SelectFrame{} },
	KindExecuteJS:            func() Action { return &ExecuteJS{} },
	KindExecuteJSElement:     func() Action { return &ExecuteJSElement{} },
	KindInclude:              func() Action { return &Include{} },

	KindWinOpen:                 func() Action { return &WinOpen{} },
	KindWinClick:                func() Action { return &WinClick{} },
	KindWinSendText:             func() Action { return &WinSendText{} },
	KindWinGetActiveWindow:      func() Action { return &WinGetActiveWindow{} },
	KindWinGetWindow:            func() Action { return &WinGetWindow{} },
	KindWinGetElementAttribute:  func() Action { return &WinGetElementAttribute{} },
	KindWinWait:                 func() Action { return &WinWait{} },
	KindWinToggleCheckBox:       func() Action { return &WinToggleCheckBox{} },
	KindWinClickContextMenu:     func() Action { return &WinClickContextMenu{} },
	KindWinCheckElement:         func() Action { return &WinCheckElement{} },
	KindWinSearchElement:        func() Action { return &WinSearchElement{} },
	KindWinWaitForAttribute:     func() Action { return &WinWaitForAttribute{} },
	KindWinScrollUsingText:      func() Action { return &WinScrollUsingText{} },
	KindWinGetDataFromClipboard: func() Action { return &WinGetDataFromClipboard{} },
	KindWinColorsCollector:      func() Action { return &WinColorsCollector{} },
	KindWinDragAndDrop:          func() Action { return &WinDragAndDrop{} },
	KindWinGetElementColor:      func() Action { return &WinGetElementColor{} },
	KindWinGetScreenshot:        func() Action { return &WinGetScreenshot{} },
	KindWinMaximizeMainWindow:   func() Action { return &WinMaximizeMainWindow{} },
	KindWinRestartDriver:        func() Action { return &WinRestartDriver{} },
	KindWinScrollToElement:      func() Action { return &WinScrollToElement{} },
	KindWinTableSearch:          func() Action { return &WinTableSearch{} },
	KindWinWaitForElement:       func() Action { return &WinWaitForElement{} },
	KindWinTakeScreenshot:       func() Action { return &WinTakeScreenshot{} },
}

// NewAction returns a zero value action of the given kind.
func NewAction(kind ActionKind) (Action, error) {
	factory, ok := actionFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
	return factory(), nil
}

// DecodeAction builds an action of the given kind and fills it using decode,
// which is typically a yaml.Node or json decoder bound to the parameters.
func DecodeAction(kind ActionKind, decode func(any) error) (Action, error) {
	action, err := NewAction(kind)
	if err != nil {
		return nil, err
	}
	if decode != nil {
		if err := decode(action); err != nil {
			return nil, fmt.Errorf("decoding %s parameters: %w", kind, err)
		}
	}
	return action, nil
}

// KnownKinds lists every registered action kind in sorted order.
func KnownKinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(actionFactories))
	for k := range actionFactories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// IsWindowsKind reports whether kind targets the desktop driver.
func IsWindowsKind(kind ActionKind) bool {
	return len(kind) > 3 && kind[:3] == "Win"
}
