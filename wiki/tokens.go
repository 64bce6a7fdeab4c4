package wiki

import (
	"context"
	"fmt"
)

// Token kinds accepted by intoken.
const (
	TokenEdit    = "edit"
	TokenDelete  = "delete"
	TokenProtect = "protect"
	TokenMove    = "move"
	TokenImport  = "import"
	TokenEmail   = "email"
)

// GetToken fetches a token of the given kind for titles. The session must be
// allowed to perform the action, otherwise an AuthError is returned.
func (g *Gateway) GetToken(ctx context.Context, kind, titles string) (string, error) {
	params := NewParams(
		"action", "query",
		"prop", "info",
		"intoken", kind,
		"titles", titles,
	)
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return "", err
	}
	token, ok := doc.Path("query/pages/page").Attr(kind + "token")
	if !ok {
		return "", &AuthError{Action: kind, Reason: fmt.Sprintf("User is not permitted to perform this operation: %s", kind)}
	}
	return token, nil
}

// getUndeleteToken returns the undelete token for title. The second result
// is false when the title has no deleted revisions.
func (g *Gateway) getUndeleteToken(ctx context.Context, title string) (string, bool, error) {
	params := NewParams(
		"action", "query",
		"list", "deletedrevs",
		"prop", "info",
		"drprop", "token",
		"titles", title,
	)
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return "", false, err
	}
	page := doc.Path("query/deletedrevs/page")
	if page == nil {
		return "", false, nil
	}
	token, ok := page.Attr("token")
	if !ok {
		return "", false, &AuthError{Action: "undelete", Reason: "User is not permitted to perform this operation: undelete"}
	}
	return token, true, nil
}

// getUserrightsToken fetches the token needed to change the groups of user.
func (g *Gateway) getUserrightsToken(ctx context.Context, user string) (string, error) {
	params := NewParams(
		"action", "query",
		"list", "users",
		"ustoken", "userrights",
		"ususers", user,
	)
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return "", err
	}
	u := doc.Path("query/users/user")
	if u == nil || u.HasAttr("missing") {
		return "", &APIError{Code: "invaliduser", Info: fmt.Sprintf("User '%s' was not found.", user)}
	}
	token, ok := u.Attr("userrightstoken")
	if !ok {
		return "", &AuthError{Action: "userrights", Reason: "User is not permitted to perform this operation: userrights"}
	}
	return token, nil
}

// getOptionsToken fetches the token for changing preferences.
func (g *Gateway) getOptionsToken(ctx context.Context) (string, error) {
	doc, err := g.SendRequest(ctx, NewParams("action", "tokens", "type", "options"))
	if err != nil {
		return "", err
	}
	token, ok := doc.Child("tokens").Attr("optionstoken")
	if !ok {
		return "", &AuthError{Action: "options", Reason: "User is not permitted to perform this operation: options"}
	}
	return token, nil
}
