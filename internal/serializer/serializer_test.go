package serializer

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/handbridge/api/schemas"
	"github.com/xkilldash9x/handbridge/internal/script"
)

type teleport struct{}

func (*teleport) Kind() schemas.ActionKind { return "Teleport" }

func intPtr(v int) *int { return &v }

func rows(s *Script) []string {
	return strings.Split(strings.TrimSuffix(s.String(), script.LineSeparator), script.LineSeparator)
}

func TestSerializer_WebActions(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	t.Run("should render a click with default button", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.Click{Target: schemas.Target{Wait: 5, Locator: schemas.LocatorID, Matcher: "btn1"}},
		})
		require.Equal(t, 1, sc.Len())
		assert.Equal(t, []string{
			"#action,#wait,#locator,#matcher,#button,#xOffset,#yOffset",
			"Click,5,id,btn1,left,0,0",
		}, rows(sc))
	})

	t.Run("should lowercase buttons and modifiers", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.Click{
				Target:    schemas.Target{Locator: schemas.LocatorXPath, Matcher: "//a"},
				Button:    "RIGHT",
				XOffset:   3,
				Modifiers: []string{"Ctrl", " SHIFT "},
			},
		})
		rec := sc.Records[0]
		assert.Equal(t, "right", rec.Values[4])
		assert.Equal(t, "#modifiers", rec.Header[7])
		assert.Equal(t, "ctrl,shift", rec.Values[7])
		assert.Equal(t, `Click,0,xpath,//a,right,3,0,"ctrl,shift"`, rows(sc)[1])
	})

	t.Run("should omit optional columns pairwise", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.SendKeysToActive{Text: "hello"},
			&schemas.SendKeysToActive{Text: "hello", Text2: "again"},
		})
		require.Equal(t, 2, sc.Len())
		assert.Equal(t, []string{"#action", "#text"}, sc.Records[0].Header)
		assert.Equal(t, []string{"SendKeysToActive", "hello"}, sc.Records[0].Values)
		assert.Equal(t, []string{"#action", "#text", "#text2"}, sc.Records[1].Header)
		for _, rec := range sc.Records {
			assert.Len(t, rec.Values, len(rec.Header))
		}
	})

	t.Run("should put the attribute before the target", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.GetElementAttribute{
				Target:    schemas.Target{Wait: 1, Locator: schemas.LocatorCSSSelector, Matcher: "#name"},
				Attribute: "value",
			},
		})
		assert.Equal(t, []string{"#action", "#attribute", "#wait", "#locator", "#matcher"}, sc.Records[0].Header)
	})

	t.Run("should emit include directives verbatim with sorted params", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.Include{File: "login", Params: map[string]string{"user": "bob", "greeting": "hi there"}},
		})
		assert.Equal(t, []string{`#include,file=login,greeting="hi there",user=bob`}, rows(sc))
	})
}

func TestSerializer_WindowsActions(t *testing.T) {
	s := New(zaptest.NewLogger(t))

	t.Run("should number chained locators", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.WinClick{
				WinElement: schemas.WinElement{
					WinBase: schemas.WinBase{ID: "c1"},
					Locators: []schemas.WinLocator{
						{Locator: "accessibilityId", Matcher: "MainForm"},
						{Locator: "name", Matcher: "OK", MatcherIndex: intPtr(2)},
					},
				},
				XOffset: intPtr(10),
			},
		})
		rec := sc.Records[0]
		assert.Equal(t, []string{
			"#action", "#id", "#fromRoot", "#isExperimental",
			"#locator", "#matcher", "#locator2", "#matcher2", "#matcherindex2", "#xOffset",
		}, rec.Header)
		assert.Equal(t, []string{"Click", "c1", "false", "false", "accessibilityId", "MainForm", "name", "OK", "2", "10"}, rec.Values)
	})

	t.Run("should use the element columns for the drag source", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.WinDragAndDrop{
				FromLocators: []schemas.WinLocator{{Locator: "name", Matcher: "file.txt", MatcherIndex: intPtr(0)}},
				ToLocators:   []schemas.WinLocator{{Locator: "name", Matcher: "Trash"}, {Locator: "name", Matcher: "Bin", MatcherIndex: intPtr(1)}},
				ToOffsetY:    intPtr(-4),
			},
		})
		rec := sc.Records[0]
		assert.Equal(t, "DragAndDropElement", rec.Values[0])
		assert.Equal(t, []string{
			"#action", "#fromRoot", "#isExperimental",
			"#locator", "#matcher", "#matcherindex",
			"#tolocator", "#tomatcher", "#tolocator2", "#tomatcher2", "#tomatcherindex2",
			"#tooffsety",
		}, rec.Header)
		assert.Equal(t, "-4", rec.Values[len(rec.Values)-1])
	})

	t.Run("should default the scroll type", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.WinScrollToElement{
				WinElement:     schemas.WinElement{Locators: []schemas.WinLocator{{Locator: "name", Matcher: "row 40"}}},
				ActionLocators: []schemas.WinLocator{{Locator: "name", Matcher: "scrollbar"}},
				ElementInDOM:   true,
			},
		})
		rec := sc.Records[0]
		assert.Equal(t, "ScrollToElement", rec.Values[0])
		assert.Contains(t, rec.Header, "#actionlocator")
		assert.Contains(t, rec.Header, "#actionmatcher")
		assert.Contains(t, rec.Values, defaultScrollType)
		assert.Contains(t, rec.Header, "#elementindom")
		assert.NotContains(t, rec.Header, "#shouldbedisplayed")
	})

	t.Run("should put text locators before the text to send", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.WinScrollUsingText{
				WinElement:   schemas.WinElement{Locators: []schemas.WinLocator{{Locator: "name", Matcher: "list"}}},
				TextLocators: []schemas.WinLocator{{Locator: "name", Matcher: "item"}},
				TextToSend:   "{DOWN}",
			},
		})
		assert.Equal(t, []string{
			"#action", "#fromRoot", "#isExperimental",
			"#locator", "#matcher", "#textLocator", "#textmatcher", "#textToSend",
		}, sc.Records[0].Header)
	})

	t.Run("should render base params", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{
			&schemas.WinOpen{
				WinBase:  schemas.WinBase{ID: "app", Execute: "false", FromRoot: true, ExperimentalDriver: true},
				WorkDir:  `C:\app`,
				ExecFile: "app.exe",
			},
		})
		assert.Equal(t, []string{"#action", "#id", "#execute", "#fromRoot", "#isExperimental", "#workdir", "#execfile"}, sc.Records[0].Header)
		assert.Equal(t, []string{"Open", "app", "false", "true", "true", `C:\app`, "app.exe"}, sc.Records[0].Values)
	})

	t.Run("should send driver flags even when false", func(t *testing.T) {
		sc := s.Serialize([]schemas.Action{&schemas.WinMaximizeMainWindow{}})
		assert.Equal(t, []string{"#action", "#fromRoot", "#isExperimental"}, sc.Records[0].Header)
		assert.Equal(t, []string{"MaximizeMainWindow", "false", "false"}, sc.Records[0].Values)
	})
}

func TestSerializer_SkipsUnknownAndNil(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := New(zap.New(core))

	sc := s.Serialize([]schemas.Action{
		&schemas.Open{URL: "http://a"},
		nil,
		&teleport{},
		&schemas.Wait{Seconds: 2},
	})

	require.Equal(t, 2, sc.Len())
	assert.Equal(t, "Open", sc.Records[0].Values[0])
	assert.Equal(t, "Wait", sc.Records[1].Values[0])

	warnings := logs.FilterMessage("Unknown action kind, skipping.").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Teleport", warnings[0].ContextMap()["kind"])
}

func TestSerializer_Registry(t *testing.T) {
	t.Run("should cover every known action kind", func(t *testing.T) {
		s := New(nil)
		for _, kind := range schemas.KnownKinds() {
			assert.True(t, s.Supports(kind), "no builder for %s", kind)
			action, err := schemas.NewAction(kind)
			require.NoError(t, err)
			assert.Equal(t, 1, s.Serialize([]schemas.Action{action}).Len(), "kind %s", kind)
		}
	})

	t.Run("should let options override a builder", func(t *testing.T) {
		custom := BuilderFunc(func(schemas.Action) ([]Record, error) {
			return []Record{{Raw: "custom"}}, nil
		})
		s := New(nil, WithBuilder(schemas.KindOpen, func() Builder { return custom }))
		assert.Equal(t, "custom"+script.LineSeparator, s.Serialize([]schemas.Action{&schemas.Open{}}).String())
	})

	t.Run("should serialize deterministically across goroutines", func(t *testing.T) {
		s := New(nil)
		actions := []schemas.Action{
			&schemas.Open{URL: "http://x"},
			&schemas.Include{File: "t", Params: map[string]string{"b": "2", "a": "1", "c": "3"}},
			&schemas.WinTableSearch{Filter: "Name=Bob", SaveResult: true},
		}
		want := s.Serialize(actions).String()

		var wg sync.WaitGroup
		results := make([]string, 16)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = s.Serialize(actions).String()
			}(i)
		}
		wg.Wait()
		for _, got := range results {
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("serialization differs (-want +got):\n%s", diff)
			}
		}
	})
}
