package schemas

// WinLocator is one step of a desktop element search. Chains of locators are
// resolved in order, each relative to the previous match.
type WinLocator struct {
	Locator string `json:"locator" yaml:"locator"`
	Matcher string `json:"matcher" yaml:"matcher"`
	// MatcherIndex picks one of several elements the matcher finds.
	MatcherIndex *int `json:"matcherIndex,omitempty" yaml:"matcherIndex,omitempty"`
}

// WinBase carries the parameters every desktop action accepts.
type WinBase struct {
	// ID names the action in the engine output so results can be correlated.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Execute is an engine side condition; empty means always.
	Execute  string `json:"execute,omitempty" yaml:"execute,omitempty"`
	FromRoot bool   `json:"fromRoot,omitempty" yaml:"fromRoot,omitempty"`
	// ExperimentalDriver routes the action to the engine's experimental
	// desktop driver.
	ExperimentalDriver bool `json:"experimentalDriver,omitempty" yaml:"experimentalDriver,omitempty"`
}

// WinElement is the common shape of actions addressing one element.
type WinElement struct {
	WinBase  `json:",inline" yaml:",inline"`
	Locators []WinLocator `json:"locators" yaml:"locators"`
}

type WinOpen struct {
	WinBase  `json:",inline" yaml:",inline"`
	WorkDir  string `json:"workDir" yaml:"workDir"`
	ExecFile string `json:"execFile" yaml:"execFile"`
}

type WinClick struct {
	WinElement `json:",inline" yaml:",inline"`
	Button     string   `json:"button,omitempty" yaml:"button,omitempty"`
	XOffset    *int     `json:"xOffset,omitempty" yaml:"xOffset,omitempty"`
	YOffset    *int     `json:"yOffset,omitempty" yaml:"yOffset,omitempty"`
	Modifiers  []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

type WinSendText struct {
	WinElement  `json:",inline" yaml:",inline"`
	Text        string `json:"text" yaml:"text"`
	ClearBefore bool   `json:"clearBefore,omitempty" yaml:"clearBefore,omitempty"`
	DirectSend  bool   `json:"directSend,omitempty" yaml:"directSend,omitempty"`
}

type WinGetActiveWindow struct {
	WinBase    `json:",inline" yaml:",inline"`
	WindowName string `json:"windowName" yaml:"windowName"`
	MaxTimeout *int   `json:"maxTimeout,omitempty" yaml:"maxTimeout,omitempty"`
}

type WinGetWindow struct {
	WinBase    `json:",inline" yaml:",inline"`
	WindowName string `json:"windowName" yaml:"windowName"`
}

type WinGetElementAttribute struct {
	WinElement    `json:",inline" yaml:",inline"`
	AttributeName string `json:"attributeName" yaml:"attributeName"`
}

type WinWait struct {
	WinBase `json:",inline" yaml:",inline"`
	Millis  int `json:"millis" yaml:"millis"`
}

type WinToggleCheckBox struct {
	WinElement    `json:",inline" yaml:",inline"`
	ExpectedState bool `json:"expectedState" yaml:"expectedState"`
}

type WinClickContextMenu struct {
	WinElement `json:",inline" yaml:",inline"`
}

type WinCheckElement struct {
	WinElement  `json:",inline" yaml:",inline"`
	SaveElement bool `json:"saveElement" yaml:"saveElement"`
}

type WinSearchElement struct {
	WinElement `json:",inline" yaml:",inline"`
}

type WinWaitForAttribute struct {
	WinElement    `json:",inline" yaml:",inline"`
	AttributeName string `json:"attributeName" yaml:"attributeName"`
	ExpectedValue string `json:"expectedValue" yaml:"expectedValue"`
	MaxTimeout    *int   `json:"maxTimeout,omitempty" yaml:"maxTimeout,omitempty"`
	CheckInterval *int   `json:"checkInterval,omitempty" yaml:"checkInterval,omitempty"`
}

type WinScrollUsingText struct {
	WinElement    `json:",inline" yaml:",inline"`
	TextToSend    string       `json:"textToSend" yaml:"textToSend"`
	TextLocators  []WinLocator `json:"textLocators,omitempty" yaml:"textLocators,omitempty"`
	MaxIterations *int         `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
}

type WinGetDataFromClipboard struct {
	WinBase `json:",inline" yaml:",inline"`
}

type WinColorsCollector struct {
	WinElement   `json:",inline" yaml:",inline"`
	StartXOffset int `json:"startXOffset" yaml:"startXOffset"`
	StartYOffset int `json:"startYOffset" yaml:"startYOffset"`
	EndXOffset   int `json:"endXOffset" yaml:"endXOffset"`
	EndYOffset   int `json:"endYOffset" yaml:"endYOffset"`
}

type WinDragAndDrop struct {
	WinBase      `json:",inline" yaml:",inline"`
	FromLocators []WinLocator `json:"fromLocators" yaml:"fromLocators"`
	ToLocators   []WinLocator `json:"toLocators" yaml:"toLocators"`
	FromOffsetX  *int         `json:"fromOffsetX,omitempty" yaml:"fromOffsetX,omitempty"`
	FromOffsetY  *int         `json:"fromOffsetY,omitempty" yaml:"fromOffsetY,omitempty"`
	ToOffsetX    *int         `json:"toOffsetX,omitempty" yaml:"toOffsetX,omitempty"`
	ToOffsetY    *int         `json:"toOffsetY,omitempty" yaml:"toOffsetY,omitempty"`
}

type WinGetElementColor struct {
	WinElement `json:",inline" yaml:",inline"`
	XOffset    int `json:"xOffset" yaml:"xOffset"`
	YOffset    int `json:"yOffset" yaml:"yOffset"`
}

type WinGetScreenshot struct {
	WinElement `json:",inline" yaml:",inline"`
}

type WinMaximizeMainWindow struct {
	WinBase `json:",inline" yaml:",inline"`
}

type WinRestartDriver struct {
	WinBase `json:",inline" yaml:",inline"`
}

// WinScrollToElement scrolls the element addressed by ActionLocators (by
// clicking or by sending text) until Locators becomes reachable.
type WinScrollToElement struct {
	WinElement        `json:",inline" yaml:",inline"`
	ActionLocators    []WinLocator `json:"actionLocators" yaml:"actionLocators"`
	ClickOffsetX      *int         `json:"clickOffsetX,omitempty" yaml:"clickOffsetX,omitempty"`
	ClickOffsetY      *int         `json:"clickOffsetY,omitempty" yaml:"clickOffsetY,omitempty"`
	ScrollType        string       `json:"scrollType" yaml:"scrollType"`
	MaxIterations     *int         `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	ShouldBeDisplayed bool         `json:"shouldBeDisplayed,omitempty" yaml:"shouldBeDisplayed,omitempty"`
	ElementInDOM      bool         `json:"elementInDom,omitempty" yaml:"elementInDom,omitempty"`
	TextValue         string       `json:"textValue,omitempty" yaml:"textValue,omitempty"`
}

type WinTableSearch struct {
	WinElement            `json:",inline" yaml:",inline"`
	Filter                string `json:"filter" yaml:"filter"`
	Column                string `json:"column,omitempty" yaml:"column,omitempty"`
	FirstRowIndex         *int   `json:"firstRowIndex,omitempty" yaml:"firstRowIndex,omitempty"`
	Index                 *int   `json:"index,omitempty" yaml:"index,omitempty"`
	RowNameFormat         string `json:"rowNameFormat,omitempty" yaml:"rowNameFormat,omitempty"`
	RowElementNameFormat  string `json:"rowElementNameFormat,omitempty" yaml:"rowElementNameFormat,omitempty"`
	RowElementValueFormat string `json:"rowElementValueFormat,omitempty" yaml:"rowElementValueFormat,omitempty"`
	SaveResult            bool   `json:"saveResult,omitempty" yaml:"saveResult,omitempty"`
}

type WinWaitForElement struct {
	WinElement `json:",inline" yaml:",inline"`
	Timeout    int `json:"timeout" yaml:"timeout"`
}

type WinTakeScreenshot struct {
	WinBase `json:",inline" yaml:",inline"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
}

func (*WinOpen) Kind() ActionKind                 { return KindWinOpen }
func (*WinClick) Kind() ActionKind                { return KindWinClick }
func (*WinSendText) Kind() ActionKind             { return KindWinSendText }
func (*WinGetActiveWindow) Kind() ActionKind      { return KindWinGetActiveWindow }
func (*WinGetWindow) Kind() ActionKind            { return KindWinGetWindow }
func (*WinGetElementAttribute) Kind() ActionKind  { return KindWinGetElementAttribute }
func (*WinWait) Kind() ActionKind                 { return KindWinWait }
func (*WinToggleCheckBox) Kind() ActionKind       { return KindWinToggleCheckBox }
func (*WinClickContextMenu) Kind() ActionKind     { return KindWinClickContextMenu }
func (*WinCheckElement) Kind() ActionKind         { return KindWinCheckElement }
func (*WinSearchElement) Kind() ActionKind        { return KindWinSearchElement }
func (*WinWaitForAttribute) Kind() ActionKind     { return KindWinWaitForAttribute }
func (*WinScrollUsingText) Kind() ActionKind      { return KindWinScrollUsingText }
func (*WinGetDataFromClipboard) Kind() ActionKind { return KindWinGetDataFromClipboard }
func (*WinColorsCollector) Kind() ActionKind      { return KindWinColorsCollector }
func (*WinDragAndDrop) Kind() ActionKind          { return KindWinDragAndDrop }
func (*WinGetElementColor) Kind() ActionKind      { return KindWinGetElementColor }
func (*WinGetScreenshot) Kind() ActionKind        { return KindWinGetScreenshot }
func (*WinMaximizeMainWindow) Kind() ActionKind   { return KindWinMaximizeMainWindow }
func (*WinRestartDriver) Kind() ActionKind        { return KindWinRestartDriver }
func (*WinScrollToElement) Kind() ActionKind      { return KindWinScrollToElement }
func (*WinTableSearch) Kind() ActionKind          { return KindWinTableSearch }
func (*WinWaitForElement) Kind() ActionKind       { return KindWinWaitForElement }
func (*WinTakeScreenshot) Kind() ActionKind       { return KindWinTakeScreenshot }
