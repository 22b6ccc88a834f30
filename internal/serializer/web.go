package serializer

import (
	"sort"
	"strings"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/script"
)

const defaultButton = "left"

func webBuilders() map[schemas.ActionKind]Builder {
	return map[schemas.ActionKind]Builder{
		schemas.KindOpen: typed(func(a *schemas.Open) Record {
			return newRow("Open").add("#url", a.URL).record()
		}),
		schemas.KindClick: typed(func(a *schemas.Click) Record {
			button := strings.ToLower(a.Button)
			if button == "" {
				button = defaultButton
			}
			return target(newRow("Click"), a.Target).
				add("#button", button).
				addInt("#xOffset", a.XOffset).
				addInt("#yOffset", a.YOffset).
				addIfNotEmpty("#modifiers", modifiers(a.Modifiers)).
				record()
		}),
		schemas.KindSendKeys: typed(func(a *schemas.SendKeys) Record {
			r := target(newRow("SendKeys"), a.Target).add("#text", a.Text)
			if a.Locator2 != "" {
				r.addInt("#wait2", a.Wait2).
					add("#locator2", string(a.Locator2)).
					add("#matcher2", a.Matcher2).
					add("#text2", a.Text2)
			}
			return r.addBool("#canBeDisabled", a.CanBeDisabled).
				addBool("#clear", a.Clear).
				addBool("#checkInput", a.CheckInput).
				addBool("#needClick", a.NeedClick).
				record()
		}),
		schemas.KindSendKeysToActive: typed(func(a *schemas.SendKeysToActive) Record {
			return newRow("SendKeysToActive").add("#text", a.Text).addIfNotEmpty("#text2", a.Text2).record()
		}),
		schemas.KindFindElement: typed(func(a *schemas.FindElement) Record {
			return target(newRow("FindElement"), a.Target).add("#id", a.ID).record()
		}),
		schemas.KindGetElementValue: typed(func(a *schemas.GetElementValue) Record {
			return target(newRow("GetElementValue"), a.Target).record()
		}),
		schemas.KindGetElementAttribute: typed(func(a *schemas.GetElementAttribute) Record {
			return target(newRow("GetElementAttribute").add("#attribute", a.Attribute), a.Target).record()
		}),
		schemas.KindGetElementInnerHtml: typed(func(a *schemas.GetElementInnerHtml) Record {
			return target(newRow("GetElementInnerHtml"), a.Target).record()
		}),
		schemas.KindGetElementScreenshot: typed(func(a *schemas.GetElementScreenshot) Record {
			return target(newRow("GetElementScreenshot"), a.Target).addIfNotEmpty("#name", a.Name).record()
		}),
		schemas.KindGetScreenshot: typed(func(a *schemas.GetScreenshot) Record {
			return newRow("GetScreenshot").addIfNotEmpty("#name", a.Name).record()
		}),
		schemas.KindScrollDivUntil: typed(func(a *schemas.ScrollDivUntil) Record {
			return target(newRow("ScrollDivUntil"), a.Target).
				addInt("#wait2", a.Wait2).
				add("#locator2", string(a.Locator2)).
				add("#matcher2", a.Matcher2).
				addIfNotEmpty("#searchdir", a.SearchDir).
				addInt("#searchoffset", a.SearchOffset).
				addBool("#doscrollto", a.DoScrollTo).
				addInt("#yoffset", a.YOffset).
				record()
		}),
		schemas.KindSwitchWindow: typed(func(a *schemas.SwitchWindow) Record {
			return newRow("SwitchWindow").addInt("#window", a.Window).record()
		}),
		schemas.KindWait: typed(func(a *schemas.Wait) Record {
			return newRow("Wait").addInt("#seconds", a.Seconds).record()
		}),
		schemas.KindWaitForElement: typed(func(a *schemas.WaitForElement) Record {
			return newRow("WaitForElement").
				add("#locator", string(a.Locator)).
				add("#matcher", a.Matcher).
				addInt("#seconds", a.Seconds).
				record()
		}),
		schemas.KindSelectFrame: typed(func(a *schemas.SelectFrame) Record {
			return target(newRow("SelectFrame"), a.Target).record()
		}),
		schemas.KindExecuteJS: typed(func(a *schemas.ExecuteJS) Record {
			return newRow("ExecuteJS").add("#commands", a.Commands).record()
		}),
		schemas.KindExecuteJSElement: typed(func(a *schemas.ExecuteJSElement) Record {
			return target(newRow("ExecuteJSElement"), a.Target).add("#commands", a.Commands).record()
		}),
		schemas.KindInclude: typed(func(a *schemas.Include) Record {
			return Record{Raw: includeDirective(a)}
		}),
	}
}

func target(r *row, t schemas.Target) *row {
	return r.addInt("#wait", t.Wait).
		add("#locator", string(t.Locator)).
		add("#matcher", t.Matcher)
}

func modifiers(mods []string) string {
	lowered := make([]string, 0, len(mods))
	for _, m := range mods {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return strings.Join(lowered, ",")
}

// includeDirective renders the include line with parameters in key order so
// the output stays deterministic.
func includeDirective(a *schemas.Include) string {
	keys := make([]string, 0, len(a.Params))
	for k := range a.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{script.IncludeKeyword, script.IncludeFileKey + "=" + quoteParam(a.File)}
	for _, k := range keys {
		parts = append(parts, k+"="+quoteParam(a.Params[k]))
	}
	return strings.Join(parts, ",")
}

func quoteParam(v string) string {
	if strings.ContainsAny(v, `, `) {
		return `"` + v + `"`
	}
	return v
}
