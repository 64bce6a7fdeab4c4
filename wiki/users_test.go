package wiki

import (
	"context"
	"reflect"
	"testing"
)

func TestUsers(t *testing.T) {
	g, _, _ := newTestGateway(t, func(c *Config) { c.Limit = 2 })
	users, err := g.Users(context.Background(), nil)
	if err != nil {
		t.Fatalf("Users() error = %v", err)
	}
	want := []string{"atlasmw", "ldapuser", "nonadmin"}
	if !reflect.DeepEqual(users, want) {
		t.Errorf("Users() = %v, want %v", users, want)
	}
}

func TestContributions(t *testing.T) {
	g, _, _ := newTestGateway(t, func(c *Config) { c.Limit = 1 })
	ctx := context.Background()
	loginAs(t, g, "atlasmw", "wombat")

	for _, title := range []string{"First", "Second", "Third"} {
		if _, err := g.Create(ctx, title, "text", CreateOptions{Summary: "add " + title}); err != nil {
			t.Fatalf("Create(%q) error = %v", title, err)
		}
	}

	all, err := g.Contributions(ctx, "atlasmw", 0, nil)
	if err != nil {
		t.Fatalf("Contributions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d contributions, want 3", len(all))
	}
	if all[0]["title"] != "First" || all[2]["comment"] != "add Third" {
		t.Errorf("contributions = %v", all)
	}

	some, err := g.Contributions(ctx, "atlasmw", 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(some) != 2 {
		t.Errorf("got %d contributions, want 2", len(some))
	}

	none, err := g.Contributions(ctx, "nonadmin", 0, nil)
	if err != nil || len(none) != 0 {
		t.Errorf("Contributions(nonadmin) = %v, %v", none, err)
	}
}

func TestEmailUser(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.EmailUser(ctx, "atlasmw", "Hi", "Hello"); !IsAuthError(err) {
		t.Errorf("anonymous EmailUser() error = %v, want AuthError", err)
	}

	loginAs(t, g, "nonadmin", "sekrit")
	sent, err := g.EmailUser(ctx, "atlasmw", "Hi", "Hello")
	if err != nil || !sent {
		t.Errorf("EmailUser() = %v, %v", sent, err)
	}
	if _, err := g.EmailUser(ctx, "ldapuser", "Hi", "Hello"); !IsAPIError(err, "noemail") {
		t.Errorf("EmailUser() without address error = %v, want noemail", err)
	}
}

func TestCreateAccount(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	doc, err := g.CreateAccount(ctx, NewParams("name", "Newbie", "password", "s3cret", "email", "newbie@example.org"))
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if got := doc.Child("createaccount").AttrValue("username"); got != "Newbie" {
		t.Errorf("username = %q", got)
	}
	if u, ok := srv.User("Newbie"); !ok || u.Email != "newbie@example.org" {
		t.Errorf("user = %+v, %v", u, ok)
	}

	_, err = g.CreateAccount(ctx, NewParams("name", "atlasmw", "password", "x"))
	if !IsAPIError(err, "userexists") {
		t.Errorf("duplicate CreateAccount() error = %v, want userexists", err)
	}
}

func TestOptions(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	if _, err := g.Options(ctx, OptionsChange{OptionName: "skin", OptionValue: "vector"}); !IsAuthError(err) {
		t.Errorf("anonymous Options() error = %v, want AuthError", err)
	}

	loginAs(t, g, "nonadmin", "sekrit")
	doc, err := g.Options(ctx, OptionsChange{
		Changes:     map[string]string{"skin": "monobook", "language": "fi"},
		OptionName:  "nickname",
		OptionValue: "Nony",
	})
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	if doc.AttrValue("options") != "success" {
		t.Errorf("response = %s", doc.XML())
	}
	u, _ := srv.User("nonadmin")
	want := map[string]string{"skin": "monobook", "language": "fi", "nickname": "Nony"}
	if !reflect.DeepEqual(u.Options, want) {
		t.Errorf("Options = %v, want %v", u.Options, want)
	}

	reqs := srv.Requests()
	if got := reqs[len(reqs)-1].Form.Get("change"); got != "language=fi|skin=monobook" {
		t.Errorf("change = %q", got)
	}
}

func TestSetGroups(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	loginAs(t, g, "nonadmin", "sekrit")
	if _, err := g.SetGroups(ctx, "ldapuser", []string{"sysop"}, nil, ""); !IsAuthError(err) {
		t.Errorf("SetGroups() by non-admin error = %v, want AuthError", err)
	}

	g2 := New(srv.Endpoint())
	loginAs(t, g2, "atlasmw", "wombat")

	if _, err := g2.SetGroups(ctx, "Ghost", []string{"sysop"}, nil, ""); !IsAPIError(err, "invaliduser") {
		t.Errorf("SetGroups() for missing user error = %v, want invaliduser", err)
	}

	doc, err := g2.SetGroups(ctx, "nonadmin", []string{"bureaucrat", "sysop"}, nil, "promotion")
	if err != nil {
		t.Fatalf("SetGroups() error = %v", err)
	}
	if len(doc.PathAll("userrights/added/group")) != 2 {
		t.Errorf("response = %s", doc.XML())
	}
	u, _ := srv.User("nonadmin")
	if !reflect.DeepEqual(u.Groups, []string{"bureaucrat", "sysop"}) {
		t.Errorf("Groups = %v", u.Groups)
	}

	if _, err := g2.SetGroups(ctx, "nonadmin", nil, []string{"bureaucrat"}, ""); err != nil {
		t.Fatal(err)
	}
	u, _ = srv.User("nonadmin")
	if !reflect.DeepEqual(u.Groups, []string{"sysop"}) {
		t.Errorf("Groups after removal = %v", u.Groups)
	}
}
