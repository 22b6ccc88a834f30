package schemas

// Target addresses a single element of a web page.
type Target struct {
	Wait    int     `json:"wait,omitempty" yaml:"wait,omitempty"`
	Locator Locator `json:"locator" yaml:"locator"`
	Matcher string  `json:"matcher" yaml:"matcher"`
}

// Open navigates the browser to URL.
type Open struct {
	URL string `json:"url" yaml:"url"`
}

// Click clicks an element. Button defaults to "left".
type Click struct {
	Target    `json:",inline" yaml:",inline"`
	Button    string   `json:"button,omitempty" yaml:"button,omitempty"`
	XOffset   int      `json:"xOffset,omitempty" yaml:"xOffset,omitempty"`
	YOffset   int      `json:"yOffset,omitempty" yaml:"yOffset,omitempty"`
	Modifiers []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// SendKeys types Text into an element, optionally followed by Text2 into a
// second element.
type SendKeys struct {
	Target        `json:",inline" yaml:",inline"`
	Text          string  `json:"text" yaml:"text"`
	Wait2         int     `json:"wait2,omitempty" yaml:"wait2,omitempty"`
	Locator2      Locator `json:"locator2,omitempty" yaml:"locator2,omitempty"`
	Matcher2      string  `json:"matcher2,omitempty" yaml:"matcher2,omitempty"`
	Text2         string  `json:"text2,omitempty" yaml:"text2,omitempty"`
	CanBeDisabled bool    `json:"canBeDisabled,omitempty" yaml:"canBeDisabled,omitempty"`
	Clear         bool    `json:"clear,omitempty" yaml:"clear,omitempty"`
	CheckInput    bool    `json:"checkInput,omitempty" yaml:"checkInput,omitempty"`
	NeedClick     bool    `json:"needClick,omitempty" yaml:"needClick,omitempty"`
}

// SendKeysToActive types into whatever element currently has focus.
type SendKeysToActive struct {
	Text  string `json:"text" yaml:"text"`
	Text2 string `json:"text2,omitempty" yaml:"text2,omitempty"`
}

// FindElement stores a reference to an element under ID.
type FindElement struct {
	Target `json:",inline" yaml:",inline"`
	ID     string `json:"id" yaml:"id"`
}

type GetElementValue struct {
	Target `json:",inline" yaml:",inline"`
}

type GetElementAttribute struct {
	Target    `json:",inline" yaml:",inline"`
	Attribute string `json:"attribute" yaml:"attribute"`
}

type GetElementInnerHtml struct {
	Target `json:",inline" yaml:",inline"`
}

// GetElementScreenshot captures a single element.
type GetElementScreenshot struct {
	Target `json:",inline" yaml:",inline"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// GetScreenshot captures the whole window.
type GetScreenshot struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ScrollDivUntil scrolls a container until the second target shows up.
type ScrollDivUntil struct {
	Target       `json:",inline" yaml:",inline"`
	Wait2        int     `json:"wait2,omitempty" yaml:"wait2,omitempty"`
	Locator2     Locator `json:"locator2" yaml:"locator2"`
	Matcher2     string  `json:"matcher2" yaml:"matcher2"`
	SearchDir    string  `json:"searchDir,omitempty" yaml:"searchDir,omitempty"`
	SearchOffset int     `json:"searchOffset,omitempty" yaml:"searchOffset,omitempty"`
	DoScrollTo   bool    `json:"doScrollTo,omitempty" yaml:"doScrollTo,omitempty"`
	YOffset      int     `json:"yOffset,omitempty" yaml:"yOffset,omitempty"`
}

// SwitchWindow focuses the browser window with the given index.
type SwitchWindow struct {
	Window int `json:"window" yaml:"window"`
}

type Wait struct {
	Seconds int `json:"seconds" yaml:"seconds"`
}

type WaitForElement struct {
	Locator Locator `json:"locator" yaml:"locator"`
	Matcher string  `json:"matcher" yaml:"matcher"`
	Seconds int     `json:"seconds" yaml:"seconds"`
}

type SelectFrame struct {
	Target `json:",inline" yaml:",inline"`
}

type ExecuteJS struct {
	Commands string `json:"commands" yaml:"commands"`
}

type ExecuteJSElement struct {
	Target   `json:",inline" yaml:",inline"`
	Commands string `json:"commands" yaml:"commands"`
}

// Include splices a stored script template into the batch. Params are
// substituted into the template's %name% markers.
type Include struct {
	File   string            `json:"file" yaml:"file"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

func (*Open) Kind() ActionKind                 { return KindOpen }
func (*Click) Kind() ActionKind                { return KindClick }
func (*SendKeys) Kind() ActionKind             { return KindSendKeys }
func (*SendKeysToActive) Kind() ActionKind     { return KindSendKeysToActive }
func (*FindElement) Kind() ActionKind          { return KindFindElement }
func (*GetElementValue) Kind() ActionKind      { return KindGetElementValue }
func (*GetElementAttribute) Kind() ActionKind  { return KindGetElementAttribute }
func (*GetElementInnerHtml) Kind() ActionKind  { return KindGetElementInnerHtml }
func (*GetElementScreenshot) Kind() ActionKind { return KindGetElementScreenshot }
func (*GetScreenshot) Kind() ActionKind        { return KindGetScreenshot }
func (*ScrollDivUntil) Kind() ActionKind       { return KindScrollDivUntil }
func (*SwitchWindow) Kind() ActionKind         { return KindSwitchWindow }
func (*Wait) Kind() ActionKind                 { return KindWait }
func (*WaitForElement) Kind() ActionKind       { return KindWaitForElement }
func (*SelectFrame) Kind() ActionKind          { return KindSelectFrame }
func (*ExecuteJS) Kind() ActionKind            { return KindExecuteJS }
func (*ExecuteJSElement) Kind() ActionKind     { return KindExecuteJSElement }
func (*Include) Kind() ActionKind              { return KindInclude }
