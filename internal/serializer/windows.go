package serializer

import (
	"strconv"
	"strings"

	"github.com/xkilldash9x/handbridge/api/schemas"
)

const defaultScrollType = "Click"

func windowsBuilders() map[schemas.ActionKind]Builder {
	return map[schemas.ActionKind]Builder{
		schemas.KindWinOpen: typed(func(a *schemas.WinOpen) Record {
			return winBase(newRow("Open"), a.WinBase).
				add("#workdir", a.WorkDir).
				add("#execfile", a.ExecFile).
				record()
		}),
		schemas.KindWinClick: typed(func(a *schemas.WinClick) Record {
			return winElement(newRow("Click"), a.WinElement).
				addIfNotEmpty("#button", strings.ToLower(a.Button)).
				addIntIfSet("#xOffset", a.XOffset).
				addIntIfSet("#yOffset", a.YOffset).
				addIfNotEmpty("#modifiers", modifiers(a.Modifiers)).
				record()
		}),
		schemas.KindWinSendText: typed(func(a *schemas.WinSendText) Record {
			return winElement(newRow("SendText"), a.WinElement).
				add("#text", a.Text).
				addBool("#clearBefore", a.ClearBefore).
				addBool("#directSend", a.DirectSend).
				record()
		}),
		schemas.KindWinGetActiveWindow: typed(func(a *schemas.WinGetActiveWindow) Record {
			return winBase(newRow("GetActiveWindow"), a.WinBase).
				add("#windowname", a.WindowName).
				addIntIfSet("#maxtimeout", a.MaxTimeout).
				record()
		}),
		schemas.KindWinGetWindow: typed(func(a *schemas.WinGetWindow) Record {
			return winBase(newRow("GetWindow"), a.WinBase).add("#windowname", a.WindowName).record()
		}),
		schemas.KindWinGetElementAttribute: typed(func(a *schemas.WinGetElementAttribute) Record {
			return winElement(newRow("GetElementAttribute"), a.WinElement).
				add("#attributeName", a.AttributeName).
				record()
		}),
		schemas.KindWinWait: typed(func(a *schemas.WinWait) Record {
			return winBase(newRow("Wait"), a.WinBase).addInt("#millis", a.Millis).record()
		}),
		schemas.KindWinToggleCheckBox: typed(func(a *schemas.WinToggleCheckBox) Record {
			return winElement(newRow("ToggleCheckBox"), a.WinElement).
				addBool("#expectedState", a.ExpectedState).
				record()
		}),
		schemas.KindWinClickContextMenu: typed(func(a *schemas.WinClickContextMenu) Record {
			return winElement(newRow("ClickContextMenu"), a.WinElement).record()
		}),
		schemas.KindWinCheckElement: typed(func(a *schemas.WinCheckElement) Record {
			return winElement(newRow("CheckElement"), a.WinElement).
				addBool("#saveElement", a.SaveElement).
				record()
		}),
		schemas.KindWinSearchElement: typed(func(a *schemas.WinSearchElement) Record {
			return winElement(newRow("SearchElement"), a.WinElement).record()
		}),
		schemas.KindWinWaitForAttribute: typed(func(a *schemas.WinWaitForAttribute) Record {
			return winElement(newRow("WaitForAttribute"), a.WinElement).
				add("#attributeName", a.AttributeName).
				add("#expectedValue", a.ExpectedValue).
				addIntIfSet("#maxTimeout", a.MaxTimeout).
				addIntIfSet("#checkInterval", a.CheckInterval).
				record()
		}),
		schemas.KindWinScrollUsingText: typed(func(a *schemas.WinScrollUsingText) Record {
			r := winElement(newRow("ScrollUsingText"), a.WinElement)
			return locators(r, textLocatorKeys, a.TextLocators).
				add("#textToSend", a.TextToSend).
				addIntIfSet("#maxIterations", a.MaxIterations).
				record()
		}),
		schemas.KindWinGetDataFromClipboard: typed(func(a *schemas.WinGetDataFromClipboard) Record {
			return winBase(newRow("GetDataFromClipboard"), a.WinBase).record()
		}),
		schemas.KindWinColorsCollector: typed(func(a *schemas.WinColorsCollector) Record {
			return winElement(newRow("ColorsCollector"), a.WinElement).
				addInt("#startxoffset", a.StartXOffset).
				addInt("#startyoffset", a.StartYOffset).
				addInt("#endxoffset", a.EndXOffset).
				addInt("#endyoffset", a.EndYOffset).
				record()
		}),
		schemas.KindWinDragAndDrop: typed(func(a *schemas.WinDragAndDrop) Record {
			r := winBase(newRow("DragAndDropElement"), a.WinBase)
			r = locators(r, elementLocatorKeys, a.FromLocators)
			r = locators(r, toLocatorKeys, a.ToLocators)
			return r.addIntIfSet("#fromoffsetx", a.FromOffsetX).
				addIntIfSet("#fromoffsety", a.FromOffsetY).
				addIntIfSet("#tooffsetx", a.ToOffsetX).
				addIntIfSet("#tooffsety", a.ToOffsetY).
				record()
		}),
		schemas.KindWinGetElementColor: typed(func(a *schemas.WinGetElementColor) Record {
			return winElement(newRow("GetElementColor"), a.WinElement).
				addInt("#xOffset", a.XOffset).
				addInt("#yOffset", a.YOffset).
				record()
		}),
		schemas.KindWinGetScreenshot: typed(func(a *schemas.WinGetScreenshot) Record {
			return winElement(newRow("GetScreenshot"), a.WinElement).record()
		}),
		schemas.KindWinMaximizeMainWindow: typed(func(a *schemas.WinMaximizeMainWindow) Record {
			return winBase(newRow("MaximizeMainWindow"), a.WinBase).record()
		}),
		schemas.KindWinRestartDriver: typed(func(a *schemas.WinRestartDriver) Record {
			return winBase(newRow("RestartDriver"), a.WinBase).record()
		}),
		schemas.KindWinScrollToElement: typed(func(a *schemas.WinScrollToElement) Record {
			scrollType := a.ScrollType
			if scrollType == "" {
				scrollType = defaultScrollType
			}
			r := winElement(newRow("ScrollToElement"), a.WinElement)
			return locators(r, actionLocatorKeys, a.ActionLocators).
				addIntIfSet("#clickoffsetx", a.ClickOffsetX).
				addIntIfSet("#clickoffsety", a.ClickOffsetY).
				add("#scrolltype", scrollType).
				addIntIfSet("#maxiterations", a.MaxIterations).
				addIfTrue("#shouldbedisplayed", a.ShouldBeDisplayed).
				addIfTrue("#elementindom", a.ElementInDOM).
				addIfNotEmpty("#textvalue", a.TextValue).
				record()
		}),
		schemas.KindWinTableSearch: typed(func(a *schemas.WinTableSearch) Record {
			return winElement(newRow("TableSearch"), a.WinElement).
				add("#filter", a.Filter).
				addIfNotEmpty("#column", a.Column).
				addIntIfSet("#firstrowindex", a.FirstRowIndex).
				addIntIfSet("#index", a.Index).
				addIfNotEmpty("#rownameformat", a.RowNameFormat).
				addIfNotEmpty("#rowelementnameformat", a.RowElementNameFormat).
				addIfNotEmpty("#rowelementvalueformat", a.RowElementValueFormat).
				addIfTrue("#saveresult", a.SaveResult).
				record()
		}),
		schemas.KindWinWaitForElement: typed(func(a *schemas.WinWaitForElement) Record {
			return winElement(newRow("WaitForElement"), a.WinElement).addInt("#timeout", a.Timeout).record()
		}),
		schemas.KindWinTakeScreenshot: typed(func(a *schemas.WinTakeScreenshot) Record {
			return winBase(newRow("TakeScreenshot"), a.WinBase).addIfNotEmpty("#name", a.Name).record()
		}),
	}
}

// locatorKeys names the columns of one locator chain.
type locatorKeys struct {
	locator string
	matcher string
	index   string
}

// The engine spells these column names inconsistently; they must be sent as is.
var (
	elementLocatorKeys = locatorKeys{"#locator", "#matcher", "#matcherindex"}
	textLocatorKeys    = locatorKeys{"#textLocator", "#textmatcher", "#textmatcherindex"}
	toLocatorKeys      = locatorKeys{"#tolocator", "#tomatcher", "#tomatcherindex"}
	actionLocatorKeys  = locatorKeys{"#actionlocator", "#actionmatcher", "#actionmatcherindex"}
)

// winBase always sends the two driver flags, even when false.
func winBase(r *row, b schemas.WinBase) *row {
	return r.addIfNotEmpty("#id", b.ID).
		addIfNotEmpty("#execute", b.Execute).
		addBool("#fromRoot", b.FromRoot).
		addBool("#isExperimental", b.ExperimentalDriver)
}

func winElement(r *row, e schemas.WinElement) *row {
	return locators(winBase(r, e.WinBase), elementLocatorKeys, e.Locators)
}

// locators emits the columns of each chain step: #locator,#matcher for the
// first, #locator2,#matcher2 for the second and so on. A step with a matcher
// index adds the matching index column.
func locators(r *row, keys locatorKeys, chain []schemas.WinLocator) *row {
	for i, l := range chain {
		suffix := ""
		if i > 0 {
			suffix = strconv.Itoa(i + 1)
		}
		r.add(keys.locator+suffix, l.Locator).add(keys.matcher+suffix, l.Matcher)
		r.addIntIfSet(keys.index+suffix, l.MatcherIndex)
	}
	return r
}
