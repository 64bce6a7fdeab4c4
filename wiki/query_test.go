package wiki

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/olgasafonova/mediawiki-gateway/internal/fakewiki"
)

func TestSearch(t *testing.T) {
	all := []string{"Foopage", "Level/Level/Index", "Main 2", "Main Page"}

	tests := []struct {
		name string
		opts SearchOptions
		key  string
		want []string
	}{
		{"single request", SearchOptions{}, "Content", all},
		{"paged", SearchOptions{Limit: 1}, "Content", all},
		{"capped", SearchOptions{Limit: 1, MaxResults: 2}, "Content", all[:2]},
		{"namespace", SearchOptions{Namespaces: []string{"Book"}}, "Content", []string{"Book:Italy"}},
		{"no hits", SearchOptions{}, "xyzzy", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _ := newTestGateway(t, nil)
			got, err := g.Search(context.Background(), tt.key, tt.opts)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestSearchSendsOffsets(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	if _, err := g.Search(context.Background(), "Content", SearchOptions{Limit: 3, MaxResults: 4}); err != nil {
		t.Fatal(err)
	}
	reqs := srv.Requests()
	if len(reqs) != 2 {
		t.Fatalf("sent %d requests, want 2", len(reqs))
	}
	if reqs[0].Form.Get("sroffset") != "0" || reqs[0].Form.Get("srlimit") != "3" {
		t.Errorf("first request = %v", reqs[0].Form)
	}
	if reqs[1].Form.Get("sroffset") != "3" || reqs[1].Form.Get("srlimit") != "1" {
		t.Errorf("second request = %v", reqs[1].Form)
	}
}

func TestSemanticQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("not installed", func(t *testing.T) {
		g, _, _ := newTestGateway(t, nil)
		_, err := g.SemanticQuery(ctx, "[[Category:Foo]]", nil)
		if !errors.Is(err, ErrSemanticMediaWikiMissing) {
			t.Errorf("error = %v, want ErrSemanticMediaWikiMissing", err)
		}
	})

	t.Run("parser", func(t *testing.T) {
		g, srv, _ := newTestGateway(t, nil)
		srv.SetExtension(SemanticMediaWiki, "1.5.6")
		got, err := g.SemanticQuery(ctx, "[[Category:Foo]]", []string{"?Population"})
		if err != nil {
			t.Fatalf("SemanticQuery() error = %v", err)
		}
		if got != "<p>Foopage</p>" {
			t.Errorf("SemanticQuery() = %q", got)
		}
		reqs := srv.Requests()
		text := reqs[len(reqs)-1].Form.Get("text")
		if text != "{{#ask:[[Category:Foo]]|format=list|?Population}}" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("ask api", func(t *testing.T) {
		g, srv, _ := newTestGateway(t, nil)
		srv.SetExtension(SemanticMediaWiki, "1.8.0.5")
		got, err := g.SemanticQuery(ctx, "[[Category:Foo]]", nil)
		if err != nil {
			t.Fatalf("SemanticQuery() error = %v", err)
		}
		if !strings.HasPrefix(got, "<api>") || !strings.Contains(got, `fulltext="Foopage"`) {
			t.Errorf("SemanticQuery() = %q", got)
		}
	})
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.7", true},
		{"1.8.0.5", true},
		{"1.10", true},
		{"2.0", true},
		{"1.6.2", false},
		{"1.7-alpha", true},
		{"0.9", false},
		{"", false},
		{"unknown", false},
	}
	for _, tt := range tests {
		if got := versionAtLeast(tt.version, 1, 7); got != tt.want {
			t.Errorf("versionAtLeast(%q, 1, 7) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestCustomQuery(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	query, err := g.CustomQuery(context.Background(), NewParams("meta", "siteinfo"))
	if err != nil {
		t.Fatalf("CustomQuery() error = %v", err)
	}
	if query.Name != "query" {
		t.Errorf("Name = %q, want query", query.Name)
	}
	if got := query.Child("general").AttrValue("sitename"); got != "FakeWiki" {
		t.Errorf("sitename = %q", got)
	}
}

func TestIterateStopsEarly(t *testing.T) {
	g, srv, _ := newTestGateway(t, func(c *Config) { c.Limit = 1 })

	var seen []string
	err := g.Iterate(context.Background(), "allpages", "p", "title", "apfrom", NewParams("apprefix", "Main"), func(_ *Element, title string) bool {
		seen = append(seen, title)
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(seen, []string{"Main 2"}) {
		t.Errorf("seen = %v", seen)
	}
	if n := len(srv.Requests()); n != 1 {
		t.Errorf("sent %d requests, want 1", n)
	}
}

func TestIterateFollowsContinuation(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	pages := map[string]struct {
		titles []string
		next   string
	}{
		"":   {[]string{"Alpha", "Beta"}, "c1"},
		"c1": {[]string{"Gamma"}, "c2"},
		"c2": {[]string{"Delta", "Epsilon"}, ""},
	}
	srv.Handle("query", func(w http.ResponseWriter, r *http.Request) {
		page := pages[r.Form.Get("apfrom")]
		list := fakewiki.El("allpages")
		for _, title := range page.titles {
			list.Add(fakewiki.El("p", "ns", "0", "title", title))
		}
		root := fakewiki.El("api")
		if page.next != "" {
			root.Add(fakewiki.El("query-continue").Add(fakewiki.El("allpages", "apfrom", page.next)))
		}
		fakewiki.WriteXML(w, root.Add(fakewiki.El("query").Add(list)))
	})

	var seen []string
	err := g.Iterate(context.Background(), "allpages", "p", "title", "apfrom", nil, func(_ *Element, title string) bool {
		seen = append(seen, title)
		return true
	})
	if err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}
	want := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}

	var sent []string
	for _, r := range srv.Requests() {
		sent = append(sent, r.Form.Get("apfrom"))
	}
	if !reflect.DeepEqual(sent, []string{"", "c1", "c2"}) {
		t.Errorf("apfrom values = %q, want [\"\" c1 c2]", sent)
	}
}

func TestIterateWrapsErrors(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	srv.Handle("query", func(w http.ResponseWriter, r *http.Request) {
		fakewiki.WriteError(w, "apunknown", "Unrecognized value for parameter 'list'")
	})

	err := g.Iterate(context.Background(), "allpages", "p", "title", "apfrom", nil, func(*Element, string) bool { return true })
	if !IsAPIError(err, "apunknown") {
		t.Fatalf("error = %v, want apunknown", err)
	}
	if !strings.HasPrefix(err.Error(), "failed to list allpages: ") {
		t.Errorf("error = %q", err.Error())
	}
}
