package shttp

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, s)
	})
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestStartServers(t *testing.T) {
	ast := assert.New(t)
	sh := New(Config{Port: 0, HealthPort: -1})
	ast.NoError(sh.StartServers(text("api"), text("health")))

	addrs := sh.Addrs()
	require.Len(t, addrs, 1)
	base := fmt.Sprintf("http://%s", addrs[0].String())
	ast.Equal("api", get(t, base+"/view"))
	ast.Equal("health", get(t, base+"/health/livez"))

	sh.ShutdownServers()
	ast.Empty(sh.Addrs())
	_, err := http.Get(base + "/view")
	ast.Error(err)
}

func TestStartTwoServers(t *testing.T) {
	ast := assert.New(t)
	sh := New(Config{})
	ast.NoError(sh.start("api", 0, text("api")))
	ast.NoError(sh.start("health", 0, text("health")))
	defer sh.ShutdownServers()

	addrs := sh.Addrs()
	require.Len(t, addrs, 2)
	ast.Equal("api", get(t, fmt.Sprintf("http://%s/", addrs[0].String())))
	ast.Equal("health", get(t, fmt.Sprintf("http://%s/", addrs[1].String())))
}

func TestPortInUse(t *testing.T) {
	ast := assert.New(t)
	first := New(Config{})
	ast.NoError(first.start("api", 0, text("api")))
	defer first.ShutdownServers()

	port := first.Addrs()[0].(*net.TCPAddr).Port
	second := New(Config{Port: port})
	ast.Error(second.StartServers(text("api"), nil))
	ast.Empty(second.Addrs())
}
