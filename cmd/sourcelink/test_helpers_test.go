package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"sourcelink/internal/config"
	"sourcelink/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	searches   *atomic.Int32
	narutoGone *atomic.Bool
}

const narutoMedia = `{"id":20,"idMal":20,"type":"ANIME","format":"TV",
	"title":{"romaji":"NARUTO","english":"Naruto","native":"ナルト","userPreferred":"NARUTO"},
	"synonyms":[],"seasonYear":2002,"startDate":{"year":2002,"month":10,"day":3}}`

const onePunchMedia = `{"id":21087,"idMal":30276,"type":"ANIME","format":"TV",
	"title":{"romaji":"One Punch Man","english":"One-Punch Man","userPreferred":"One Punch Man"},
	"synonyms":["OPM"],"seasonYear":2015,"startDate":{"year":2015}}`

func newAniListServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if id, ok := req.Variables["id"]; ok {
			if id == float64(20) {
				fmt.Fprintf(w, `{"data":{"Media":%s}}`, narutoMedia)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[{"message":"Not Found.","status":404}],"data":{"Media":null}}`)
			return
		}
		search, _ := req.Variables["search"].(string)
		if strings.Contains(strings.ToLower(search), "naruto") {
			fmt.Fprintf(w, `{"data":{"Page":{"media":[%s,%s]}}}`, onePunchMedia, narutoMedia)
			return
		}
		fmt.Fprint(w, `{"data":{"Page":{"media":[]}}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newContentServer(t *testing.T, env *cliTestEnv) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/anime/search", func(w http.ResponseWriter, r *http.Request) {
		env.searches.Add(1)
		fmt.Fprint(w, `{"results":[
			{"id":"naruto-shippuden","title":"Naruto Shippuden","year":2007,"type":"TV"},
			{"id":"naruto","title":"Naruto","year":2002,"type":"TV"}
		]}`)
	})
	mux.HandleFunc("/anime/list/naruto", func(w http.ResponseWriter, r *http.Request) {
		if env.narutoGone.Load() {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"episodes":[
			{"id":"naruto-1","title":"Enter: Naruto Uzumaki!","number":1},
			{"id":"naruto-2","title":"My Name is Konohamaru!","number":2}
		]}`)
	})
	mux.HandleFunc("/anime/list/naruto-shippuden", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"episodes":[{"id":"shippuden-1","title":"Homecoming","number":1}]}`)
	})
	mux.HandleFunc("/anime/detail/naruto-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"streams":[{"url":"https://cdn.example/naruto-1.m3u8","quality":"1080p","type":"hls"}]}`)
	})
	mux.HandleFunc("/empty/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		searches:   new(atomic.Int32),
		narutoGone: new(atomic.Bool),
	}
	anilistSrv := newAniListServer(t)
	contentSrv := newContentServer(t, env)

	cfg := testsupport.NewConfig(t,
		testsupport.WithAniList(anilistSrv.URL),
		testsupport.WithSource("animeindex", "anime", contentSrv.URL+"/anime"),
		testsupport.WithSource("emptysite", "anime", contentSrv.URL+"/empty"),
	)
	cfg.Logging.Level = "error"

	env.cfg = cfg
	env.configPath = filepath.Join(base, "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", needle, haystack)
	}
}
