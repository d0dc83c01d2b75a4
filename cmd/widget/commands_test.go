package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/config"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("WIDGET_CONFIG", "")
	t.Setenv("WIDGET_LOGGING_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestFormatCommandTerminal(t *testing.T) {
	out, err := runCmd(t, "### KitKat\n1. **Wafer**: crisp layers", "format")
	require.NoError(t, err)
	assert.Equal(t, "KitKat\n\n1. Wafer: crisp layers\n", out)
}

func TestFormatCommandHTML(t *testing.T) {
	out, err := runCmd(t, "## Title\nBody", "format", "--html")
	require.NoError(t, err)
	assert.Contains(t, out, `<h2 class="response-heading">Title</h2>`)
	assert.Contains(t, out, `class="response-paragraph"`)
}

func TestFormatCommandEscapes(t *testing.T) {
	out, err := runCmd(t, "<script>alert(1)</script>", "format", "--html")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestNormalizeCommand(t *testing.T) {
	out, err := runCmd(t, "", "normalize",
		"www.madewithnestle.ca/recipes/chocolate-cake",
		"https://www.nestle.ca/en/brands/kitkat",
		"www.madewithnestle.ca/recipes/chocolate-cake",
	)
	require.NoError(t, err)
	assert.Equal(t,
		"Made with Nestlé - Chocolate Cake <https://www.madewithnestle.ca/recipes/chocolate-cake>\n"+
			"Nestlé Official - Kitkat <https://www.nestle.ca/en/brands/kitkat>\n",
		out)
}

func TestNormalizeCommandJSON(t *testing.T) {
	out, err := runCmd(t, "", "normalize", "--json", "https://example.com/about")
	require.NoError(t, err)

	var list []sources.Source
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Equal(t, []sources.Source{{CanonicalURL: "https://example.com/about", DisplayLabel: "example.com - About"}}, list)
}

func TestNormalizeCommandBrandsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("brands:\n  - match: purina\n    label: Purina\n"), 0o644))

	out, err := runCmd(t, "", "normalize", "--brands-file", path, "https://www.purina.ca/dogs")
	require.NoError(t, err)
	assert.Equal(t, "Purina - Dogs <https://www.purina.ca/dogs>\n", out)
}

func TestNormalizeCommandRequiresArgs(t *testing.T) {
	_, err := runCmd(t, "", "normalize")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	srv := fakeBackend(t)

	out, err := runCmd(t, "", "ask", "--backend-url", srv.URL, "Tell", "me", "about", "KitKat")
	require.NoError(t, err)
	assert.Contains(t, out, "Nestlé Assistant:\nKitKat\n\n1. Wafer: crisp layers")
	assert.Contains(t, out, "References (1)")
	assert.Contains(t, out, "[1] Nestlé Official - Kitkat https://www.nestle.ca/en/brands/kitkat")
}

func TestAskCommandBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := runCmd(t, "", "ask", "--backend-url", srv.URL, "hi")
	require.Error(t, err)
	assert.Contains(t, out, "Nestlé Assistant: "+render.ErrorMessage)
}

func TestConfigFileFlag(t *testing.T) {
	srv := fakeBackend(t)
	path := filepath.Join(t.TempDir(), "widget.yaml")
	cfg := "backend:\n  url: " + srv.URL + "\nwidget:\n  assistant_name: Helper\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	out, err := runCmd(t, "", "ask", "--config", path, "KitKat?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Helper:\n"), out)
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := runCmd(t, "", "normalize", "--log-format", "xml", "https://a.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		_, err := newLogger(config.LoggingConfig{Level: "debug", Format: format})
		assert.NoError(t, err, format)
	}
	_, err := newLogger(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}
