package di

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cfpicker.dev/cli/internal/application/ports"
	"cfpicker.dev/cli/internal/application/services"
	"cfpicker.dev/cli/internal/core/block"
	"cfpicker.dev/cli/internal/interfaces/cli"
)

// isolate points HOME at a temp dir and clears the variables the config reads
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"CONFIG_FILE", "CONFIG_URL", "PROFILE", "BLOCK", "FRAGMENT_PATH",
		"FRAGMENT_FIELD", "REQUEST_TIMEOUT", "RETRY_ATTEMPTS", "RETRY_DELAY", "LOG_LEVEL", "DEBUG"} {
		t.Setenv("CFPICKER_"+key, "")
		os.Unsetenv("CFPICKER_" + key)
	}
	return home
}

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	c, err := NewContainer()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })
	return c
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides cli.ConfigOverrides
		check     func(t *testing.T, cfg *ports.Configuration, c *Container)
		wantErr   string
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *ports.Configuration, c *Container) {
				assert.Equal(t, block.KeyIdentifier, cfg.Block)
				assert.Equal(t, ports.LogLevelInfo, c.Logger.GetLogLevel())
			},
		},
		{
			name: "flags override the file",
			overrides: cli.ConfigOverrides{
				ConfigURL: "https://configs.test/configs.json",
				Profile:   "stage",
				Block:     block.KeyProductCarousel,
				Field:     "products",
			},
			check: func(t *testing.T, cfg *ports.Configuration, c *Container) {
				assert.Equal(t, "https://configs.test/configs.json", cfg.ConfigURL)
				assert.Equal(t, "stage", cfg.Profile)
				assert.Equal(t, block.KeyProductCarousel, cfg.Block)
				assert.Equal(t, "products", cfg.FragmentField)
			},
		},
		{
			name:      "debug raises the log level",
			overrides: cli.ConfigOverrides{Debug: true},
			check: func(t *testing.T, cfg *ports.Configuration, c *Container) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, ports.LogLevelDebug, c.Logger.GetLogLevel())
			},
		},
		{
			name:      "unknown block",
			overrides: cli.ConfigOverrides{Block: "category-carousel"},
			wantErr:   "invalid override",
		},
		{
			name:      "malformed config url",
			overrides: cli.ConfigOverrides{ConfigURL: "not a url"},
			wantErr:   "invalid override",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolate(t)
			c := newTestContainer(t)

			o := tt.overrides
			o.ConfigFile = filepath.Join(home, "config.json")
			err := c.ApplyOverrides(&o)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			wired := c.GetCLIContainer()
			assert.Same(t, c.Config, wired.Config)
			assert.NotNil(t, wired.PickerService)
			assert.NotNil(t, wired.Catalog)
			assert.Equal(t, filepath.Join(home, "config.json"), wired.ConfigRepo.GetConfigPath())
			tt.check(t, c.Config, c)
		})
	}
}

func TestContainer_HealthCheck(t *testing.T) {
	home := isolate(t)
	c := newTestContainer(t)

	assert.ErrorContains(t, c.HealthCheck(context.Background()), "not wired")

	require.NoError(t, c.ApplyOverrides(&cli.ConfigOverrides{ConfigFile: filepath.Join(home, "config.json")}))
	assert.ErrorIs(t, c.HealthCheck(context.Background()), services.ErrNoConfigURL)
}

// catalogServer serves a configs file and a GraphQL endpoint with one
// category and two products
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/configs.json":
			_, _ = w.Write([]byte(`{
				"prod": {"data": [
					{"key": "commerce-endpoint", "value": "` + srv.URL + `/graphql"},
					{"key": "commerce-root-category-id", "value": "1"}
				]},
				":names": ["prod"],
				":version": 3
			}`))
		case "/graphql":
			query := r.URL.Query().Get("query")
			switch {
			case strings.Contains(query, "categories("):
				_, _ = w.Write([]byte(`{"data": {"categories": [
					{"id": "2", "name": "Men", "path": "1/2", "parentId": "1", "children": []}
				]}}`))
			case strings.Contains(query, "productSearch"):
				_, _ = w.Write([]byte(`{"data": {"productSearch": {
					"items": [
						{"productView": {"sku": "MH01", "name": "Chaz Hoodie", "images": [{"url": "/media/mh01.jpg"}]}},
						{"productView": {"sku": "MH02", "name": "Teton Hoodie"}}
					],
					"page_info": {"current_page": 1, "page_size": 20, "total_pages": 1},
					"total_count": 2
				}}}`))
			default:
				http.Error(w, "unknown query", http.StatusBadRequest)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestContainer_HeadlessPickEndToEnd(t *testing.T) {
	home := isolate(t)
	srv := catalogServer(t)
	c := newTestContainer(t)

	var out bytes.Buffer
	cmd := cli.NewRootCommand(c.GetCLIContainer())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{
		"--config", filepath.Join(home, "config.json"),
		"--config-url", srv.URL + "/configs.json",
		"--block", block.KeyProductTeaser,
		"--field", "teaser",
		"pick", "--headless", "--select", "MH01",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `Wrote field "teaser"`)

	value, err := c.Fragment.Value("teaser")
	require.NoError(t, err)
	assert.Contains(t, value, "Product Teaser")
	assert.Contains(t, value, "MH01")
	assert.Equal(t, filepath.Join(home, ".config", "cfpicker", "fragment.json"), c.Fragment.Path())

	require.NoError(t, c.HealthCheck(context.Background()))

	stats, err := c.Catalog.GetUsageStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.SuccessfulRequests, int64(3))
	assert.Equal(t, int64(2), stats.TotalItems)

	require.NoError(t, c.Shutdown(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))
}
