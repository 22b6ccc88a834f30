package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// writeTemplates creates each named file under a fresh directory.
func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return dir
}

func records(script string) []string {
	return strings.Split(strings.TrimSuffix(script, LineSeparator), LineSeparator)
}

func TestLoadWithTemplates(t *testing.T) {
	t.Run("should splice templates with their own parameters", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"main.csv":  "#action,#url\nOpen,http://app\n#include,file=login,user=\"bob\",pass=pw\nClick,%target%\n",
			"login.csv": "#action,#text\nSendKeys,%user%\nSendKeys,%pass%\n",
		})
		loader := NewTemplateLoader(dir, zaptest.NewLogger(t))

		out, err := loader.LoadWithTemplates(filepath.Join(dir, "main.csv"))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"#action,#url",
			"Open,http://app",
			"#action,#text",
			"SendKeys,bob",
			"SendKeys,pw",
			"Click,%target%",
		}, records(out))
		assert.True(t, strings.HasSuffix(out, LineSeparator))
	})

	t.Run("should pass parameters through nested includes", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"main.csv":  "#include,file=outer,name=carol",
			"outer.csv": "Outer,%name%\n#include,file=inner.csv,who=%name%",
			"inner.csv": "Inner,%who%,%name%",
		})
		loader := NewTemplateLoader(dir, nil)

		out, err := loader.LoadWithTemplates(filepath.Join(dir, "main.csv"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Outer,carol", "Inner,carol,%name%"}, records(out))
	})

	t.Run("should allow the same template twice in sequence", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"main.csv": "#include,file=ok\n#include,file=ok",
			"ok.csv":   "Click,ok",
		})
		out, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "main.csv"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Click,ok", "Click,ok"}, records(out))
	})

	t.Run("should detect a two step cycle", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"a.csv": "A\n#include,file=b",
			"b.csv": "B\n#include,file=a",
		})
		_, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "a.csv"))

		var cycleErr *InclusionCycleError
		require.True(t, errors.As(err, &cycleErr))
		assert.Equal(t, filepath.Join(dir, "a.csv"), cycleErr.File)
		assert.Len(t, cycleErr.Chain, 3)
	})

	t.Run("should detect a self include", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"self.csv": "#include,file=self"})
		_, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "self.csv"))
		var cycleErr *InclusionCycleError
		assert.ErrorAs(t, err, &cycleErr)
	})

	t.Run("should reject an include without a file", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"main.csv": "#include,user=bob"})
		_, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "main.csv"))
		assert.ErrorIs(t, err, ErrMissingTemplateFile)
	})

	t.Run("should accept single quoted include parameters", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{
			"login.csv": "SendKeys,%user%",
			"main.csv":  "#include,file='login',user='bob'",
		})
		out, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "main.csv"))
		require.NoError(t, err)
		assert.Equal(t, []string{"SendKeys,bob"}, records(out))
	})

	t.Run("should report a missing template", func(t *testing.T) {
		dir := writeTemplates(t, map[string]string{"main.csv": "#include,file=ghost"})
		_, err := NewTemplateLoader(dir, nil).LoadWithTemplates(filepath.Join(dir, "main.csv"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestExpand(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"login.csv": "SendKeys,%user%"})
	loader := NewTemplateLoader(dir, nil)

	t.Run("should leave scripts without includes untouched", func(t *testing.T) {
		in := "#action,#url" + LineSeparator + "Open,x" + LineSeparator
		out, err := loader.Expand(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("should expand includes in a rendered script", func(t *testing.T) {
		in := "Open,x" + LineSeparator + "#include,file=login,user=dan" + LineSeparator
		out, err := loader.Expand(in)
		require.NoError(t, err)
		assert.Equal(t, "Open,x"+LineSeparator+"SendKeys,dan"+LineSeparator, out)
	})

	t.Run("should not mistake similar keywords for includes", func(t *testing.T) {
		in := "#includes,file=login\n#include,file=login,user=eve"
		out, err := loader.Expand(in)
		require.NoError(t, err)
		assert.Equal(t, []string{"#includes,file=login", "SendKeys,eve"}, records(out))
	})
}

func TestParseInclude(t *testing.T) {
	t.Run("should honor double quotes around values", func(t *testing.T) {
		file, params, err := parseInclude(`#include, file = "checkout" , note="a,b", flag`)
		require.NoError(t, err)
		assert.Equal(t, "checkout", file)
		assert.Equal(t, []includeParam{{Key: "note", Value: "a,b"}}, params)
	})

	t.Run("should drop single quotes from keys and values", func(t *testing.T) {
		file, params, err := parseInclude(`#include,file='login','user'='bob'`)
		require.NoError(t, err)
		assert.Equal(t, "login", file)
		assert.Equal(t, []includeParam{{Key: "user", Value: "bob"}}, params)
	})

	t.Run("should keep declaration order", func(t *testing.T) {
		_, params, err := parseInclude(`#include,file=x,z=1,a=2,m=3,a=4`)
		require.NoError(t, err)
		assert.Equal(t, []includeParam{{Key: "z", Value: "1"}, {Key: "a", Value: "4"}, {Key: "m", Value: "3"}}, params)
	})
}

func TestAddIncludeParameters(t *testing.T) {
	t.Run("should substitute in declaration order every time", func(t *testing.T) {
		params := []includeParam{
			{Key: "a", Value: "%b%"},
			{Key: "b", Value: "x"},
			{Key: "c", Value: "1"},
			{Key: "d", Value: "2"},
			{Key: "e", Value: "3"},
		}
		for i := 0; i < 200; i++ {
			require.Equal(t, "x,1", addIncludeParameters("%a%,%c%", params))
		}
	})

	t.Run("should not resolve markers of earlier parameters", func(t *testing.T) {
		params := []includeParam{{Key: "b", Value: "x"}, {Key: "a", Value: "%b%"}}
		assert.Equal(t, "%b%", addIncludeParameters("%a%", params))
	})

	t.Run("should leave unknown markers alone", func(t *testing.T) {
		assert.Equal(t, "%user%,v", addIncludeParameters("%user%,%k%", []includeParam{{Key: "k", Value: "v"}}))
	})
}
