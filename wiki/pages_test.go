package wiki

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/olgasafonova/mediawiki-gateway/internal/fakewiki"
)

func TestGet(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	tests := []struct {
		title  string
		want   string
		wantOK bool
	}{
		{"Main Page", "Content", true},
		{"Empty", "", true},
		{"Nonexistent", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got, ok, err := g.Get(ctx, tt.title, nil)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Get(%q) = %q, %v, want %q, %v", tt.title, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	t.Run("special page", func(t *testing.T) {
		g, srv, _ := newTestGateway(t, nil)
		srv.Handle("query", func(w http.ResponseWriter, r *http.Request) {
			fakewiki.WriteXML(w, fakewiki.El("api").Add(
				fakewiki.El("query").Add(
					fakewiki.El("pages").Add(
						fakewiki.El("page", "ns", "-1", "title", "Special:Version", "special", "")))))
		})
		got, ok, err := g.Get(ctx, "Special:Version", nil)
		if err != nil || ok || got != "" {
			t.Errorf("Get(Special:Version) = %q, %v, %v, want \"\", false, nil", got, ok, err)
		}
		if _, ok, err := g.Revision(ctx, "Special:Version", nil); err != nil || ok {
			t.Errorf("Revision(Special:Version) = %v, %v, want false, nil", ok, err)
		}
	})
}

func TestGetExtraParams(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)

	got, ok, err := g.Get(context.Background(), "Main Page", NewParams("rvsection", "0"))
	if err != nil || !ok || got != "Content" {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	reqs := srv.Requests()
	form := reqs[len(reqs)-1].Form
	if form.Get("rvsection") != "0" || form.Get("rvprop") != "content" {
		t.Errorf("form = %v, want rvsection=0 and rvprop=content", form)
	}

	if _, _, err := g.Revision(context.Background(), "Main Page", NewParams("rvlimit", "2")); err != nil {
		t.Fatal(err)
	}
	reqs = srv.Requests()
	if got := reqs[len(reqs)-1].Form.Get("rvlimit"); got != "2" {
		t.Errorf("rvlimit = %q, want 2", got)
	}
}

func TestGetInvalidTitle(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	_, _, err := g.Get(context.Background(), "[[Bad]]", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "warning" {
		t.Fatalf("error = %v, want warning", err)
	}
	if apiErr.Info != "Invalid title '[[Bad]]'" {
		t.Errorf("Info = %q", apiErr.Info)
	}

	g, _, _ = newTestGateway(t, func(c *Config) { c.IgnoreWarnings = true })
	_, ok, err := g.Get(context.Background(), "[[Bad]]", nil)
	if err != nil || ok {
		t.Errorf("Get() with ignored warnings = %v, %v, want false, nil", ok, err)
	}
}

func TestRevision(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	page, _ := srv.Page("Main Page")

	revid, ok, err := g.Revision(context.Background(), "Main Page", nil)
	if err != nil || !ok {
		t.Fatalf("Revision() = %q, %v, %v", revid, ok, err)
	}
	if revid != strconv.Itoa(page.RevID) {
		t.Errorf("Revision() = %q, want %d", revid, page.RevID)
	}

	if _, ok, _ := g.Revision(context.Background(), "Nonexistent", nil); ok {
		t.Error("Revision() of a missing page reported ok")
	}
}

func TestRender(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	html, ok, err := g.Render(ctx, "Foopage", RenderOptions{})
	if err != nil || !ok {
		t.Fatalf("Render() = %v, %v", ok, err)
	}
	if strings.Contains(html, "<!--") {
		t.Error("HTML comments were not removed")
	}
	for _, want := range []string{`href="/wiki/Main_Page"`, `class="editsection"`, "<img"} {
		if !strings.Contains(html, want) {
			t.Errorf("plain render lacks %s:\n%s", want, html)
		}
	}

	html, _, err = g.Render(ctx, "Foopage", RenderOptions{
		LinkBase:       "http://mirror.example.org",
		NoEditSections: true,
		NoImages:       true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, `href="http://mirror.example.org/wiki/Main_Page"`) {
		t.Errorf("links not rebased:\n%s", html)
	}
	if strings.Contains(html, "editsection") {
		t.Errorf("edit sections not removed:\n%s", html)
	}
	if strings.Contains(html, "<img") {
		t.Errorf("images not removed:\n%s", html)
	}

	if _, ok, err := g.Render(ctx, "Nonexistent", RenderOptions{}); err != nil || ok {
		t.Errorf("Render() of a missing page = %v, %v", ok, err)
	}

	g, srv, _ := newTestGateway(t, nil)
	srv.Handle("parse", func(w http.ResponseWriter, r *http.Request) {
		fakewiki.WriteXML(w, fakewiki.El("api").Add(fakewiki.El("parse", "title", "Foopage", "revid", "5")))
	})
	if html, ok, err := g.Render(ctx, "Foopage", RenderOptions{}); err != nil || ok || html != "" {
		t.Errorf("Render() without text = %q, %v, %v, want \"\", false, nil", html, ok, err)
	}
}

func TestCreate(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	doc, err := g.Create(ctx, "Brand New", "Hello", CreateOptions{Summary: "first", Minor: MinorYes})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got := doc.Child("edit").AttrValue("result"); got != "Success" {
		t.Errorf("result = %q, want Success", got)
	}
	if content, _, _ := g.Get(ctx, "Brand New", nil); content != "Hello" {
		t.Errorf("content = %q, want Hello", content)
	}

	var edit *fakewiki.Request
	for _, r := range srv.Requests() {
		if r.Form.Get("action") == "edit" {
			r := r
			edit = &r
		}
	}
	if edit == nil {
		t.Fatal("no edit request sent")
	}
	if !edit.Form.Has("createonly") {
		t.Error("createonly not sent")
	}
	if edit.Form.Get("minor") != "1" || edit.Form.Get("summary") != "first" {
		t.Errorf("form = %v", edit.Form)
	}
	if edit.Form.Get("token") != fakewiki.AnonToken {
		t.Errorf("token = %q, want anonymous token", edit.Form.Get("token"))
	}

	_, err = g.Create(ctx, "Main Page", "Overwritten", CreateOptions{})
	if !IsAPIError(err, "articleexists") {
		t.Errorf("Create() of existing page error = %v, want articleexists", err)
	}
}

func TestEditOverwrites(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Edit(ctx, "Main Page", "Changed", CreateOptions{}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if content, _, _ := g.Get(ctx, "Main Page", nil); content != "Changed" {
		t.Errorf("content = %q, want Changed", content)
	}
}

func TestCreateAsBot(t *testing.T) {
	g, _, _ := newTestGateway(t, func(c *Config) { c.Bot = true })
	ctx := context.Background()

	_, err := g.Create(ctx, "Bot Page", "x", CreateOptions{})
	if !IsAPIError(err, "assertbotfailed") {
		t.Errorf("anonymous bot edit error = %v, want assertbotfailed", err)
	}

	loginAs(t, g, "atlasmw", "wombat")
	if _, err := g.Create(ctx, "Bot Page", "x", CreateOptions{}); err != nil {
		t.Errorf("bot edit error = %v", err)
	}
}

func TestProtect(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Protect(ctx, "Main Page", nil, ProtectOptions{}); err == nil {
		t.Error("Protect() without protections succeeded")
	}
	_, err := g.Protect(ctx, "Main Page", []Protection{{Action: "edit"}}, ProtectOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "protections[0].group" {
		t.Errorf("error = %v, want missing group", err)
	}

	_, err = g.Protect(ctx, "Main Page", []Protection{{Action: "edit", Group: "sysop"}}, ProtectOptions{})
	if !IsAuthError(err) {
		t.Errorf("anonymous Protect() error = %v, want AuthError", err)
	}

	loginAs(t, g, "atlasmw", "wombat")
	_, err = g.Protect(ctx, "Main Page", []Protection{
		{Action: "edit", Group: "sysop"},
		{Action: "move", Group: "sysop", Expiry: "1 week"},
	}, ProtectOptions{Cascade: true, Reason: "vandalism"})
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	page, _ := srv.Page("Main Page")
	if page.Protection["edit"] != "sysop" || page.Protection["move"] != "sysop" {
		t.Errorf("Protection = %v", page.Protection)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1].Form
	if last.Get("expiry") != "never|1 week" {
		t.Errorf("expiry = %q", last.Get("expiry"))
	}
	if !last.Has("cascade") {
		t.Error("cascade not sent")
	}
}

func TestMove(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Move(ctx, "Main 2", "Main 3", MoveOptions{}); !IsAuthError(err) {
		t.Errorf("anonymous Move() error = %v, want AuthError", err)
	}

	loginAs(t, g, "nonadmin", "sekrit")
	if _, err := g.Move(ctx, "Main 2", "Main 3", MoveOptions{NoRedirect: true, Reason: "rename"}); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if _, ok := srv.Page("Main 3"); !ok {
		t.Error("target page missing")
	}
	if _, ok := srv.Page("Main 2"); ok {
		t.Error("redirect left behind despite NoRedirect")
	}
}

func TestDeleteAndUndelete(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Delete(ctx, "Main 2", DeleteOptions{}); !IsAuthError(err) {
		t.Errorf("anonymous Delete() error = %v, want AuthError", err)
	}

	loginAs(t, g, "atlasmw", "wombat")
	if _, err := g.Delete(ctx, "Main 2", DeleteOptions{Reason: "cleanup"}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := srv.Page("Main 2"); ok {
		t.Fatal("page still exists")
	}
	if _, err := g.Delete(ctx, "Main 2", DeleteOptions{}); !IsAPIError(err, "missingtitle") {
		t.Errorf("second Delete() error = %v, want missingtitle", err)
	}

	n, err := g.Undelete(ctx, "Main 2", UndeleteOptions{})
	if err != nil {
		t.Fatalf("Undelete() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Undelete() = %d, want 1", n)
	}
	if _, ok := srv.Page("Main 2"); !ok {
		t.Error("page not restored")
	}

	n, err = g.Undelete(ctx, "Never Deleted", UndeleteOptions{})
	if err != nil || n != 0 {
		t.Errorf("Undelete() of live page = %d, %v, want 0, nil", n, err)
	}
}

func TestList(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		key   string
		want  []string
	}{
		{"prefix", 500, "Main", []string{"Main 2", "Main Page"}},
		{"paged", 1, "Main", []string{"Main 2", "Main Page"}},
		{"namespace", 500, "Book:It", []string{"Book:Italy"}},
		{"custom namespace", 500, "Sandbox:", []string{"Sandbox:Test"}},
		{"no match", 500, "Zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, _ := newTestGateway(t, func(c *Config) { c.Limit = tt.limit })
			got, err := g.List(context.Background(), tt.key, nil)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("List(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestCategoryMembersAndBacklinks(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	members, err := g.CategoryMembers(ctx, "Category:Foo", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(members, []string{"Foopage"}) {
		t.Errorf("CategoryMembers() = %v", members)
	}

	tests := []struct {
		title  string
		filter BacklinkFilter
		want   []string
	}{
		{"Main Page", "", []string{"Foopage"}},
		{"Foopage", BacklinksAll, []string{"Redirect"}},
		{"Foopage", BacklinksRedirects, []string{"Redirect"}},
		{"Foopage", BacklinksNonRedirects, nil},
	}
	for _, tt := range tests {
		got, err := g.Backlinks(ctx, tt.title, tt.filter, nil)
		if err != nil {
			t.Fatalf("Backlinks() error = %v", err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Backlinks(%q, %q) = %v, want %v", tt.title, tt.filter, got, tt.want)
		}
	}
}

func TestIsRedirect(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	tests := map[string]bool{"Redirect": true, "Main Page": false, "Nonexistent": false}
	for title, want := range tests {
		got, err := g.IsRedirect(ctx, title)
		if err != nil {
			t.Fatalf("IsRedirect(%q) error = %v", title, err)
		}
		if got != want {
			t.Errorf("IsRedirect(%q) = %v, want %v", title, got, want)
		}
	}
}

func TestLanglinks(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()
	want := map[string]string{"en": "Foopage", "fi": "Foosivu"}

	for _, title := range []string{"Foopage", "Redirect"} {
		got, ok, err := g.Langlinks(ctx, ByTitle(title), 0)
		if err != nil || !ok {
			t.Fatalf("Langlinks(%q) = %v, %v", title, ok, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Langlinks(%q) = %v, want %v", title, got, want)
		}
	}

	got, ok, err := g.Langlinks(ctx, ByTitle("Main Page"), 0)
	if err != nil || !ok || len(got) != 0 {
		t.Errorf("Langlinks(Main Page) = %v, %v, %v, want empty", got, ok, err)
	}
	if _, ok, _ := g.Langlinks(ctx, ByTitle("Nonexistent"), 0); ok {
		t.Error("Langlinks() of missing page reported ok")
	}

	title, ok, err := g.LanglinkForLang(ctx, ByTitle("Foopage"), "fi")
	if err != nil || !ok || title != "Foosivu" {
		t.Errorf("LanglinkForLang(fi) = %q, %v, %v", title, ok, err)
	}
	if _, ok, _ := g.LanglinkForLang(ctx, ByTitle("Foopage"), "sv"); ok {
		t.Error("LanglinkForLang(sv) reported ok")
	}
}

func TestReview(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Review(ctx, "Nonexistent", nil, ""); !IsAPIError(err, "missingtitle") {
		t.Errorf("Review() of missing page error = %v", err)
	}

	doc, err := g.Review(ctx, "Main Page", map[string]string{"accuracy": "2", "depth": "1"}, "")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if doc.Child("review").AttrValue("result") != "Success" {
		t.Errorf("review = %s", doc.XML())
	}
	reqs := srv.Requests()
	form := reqs[len(reqs)-1].Form
	if form.Get("comment") != DefaultReviewComment {
		t.Errorf("comment = %q", form.Get("comment"))
	}
	if form.Get("flag_accuracy") != "2" || form.Get("flag_depth") != "1" {
		t.Errorf("flags = %v", form)
	}
}
