package wiki

import (
	"context"
	"fmt"
)

// Login authenticates the session. An empty domain means "local". The
// cookies set by the wiki are kept for every following request.
func (g *Gateway) Login(ctx context.Context, username, password, domain string) error {
	if domain == "" {
		domain = DefaultLoginDomain
	}
	_, err := g.SendRequest(ctx, NewParams(
		"action", "login",
		"lgname", username,
		"lgpassword", password,
		"lgdomain", domain,
	))
	if err != nil {
		return err
	}
	g.logger.Info("Logged in to wiki", "user", username, "url", g.config.BaseURL)
	return nil
}

// Users returns the names of all registered users.
func (g *Gateway) Users(ctx context.Context, extra *Params) ([]string, error) {
	params := extra.Clone().SetInt("aulimit", g.config.Limit)
	return g.collect(ctx, "allusers", "u", "name", "aufrom", params)
}

// Contributions returns the edits of user as attribute maps (revid, title,
// timestamp...). A count above zero stops after that many.
func (g *Gateway) Contributions(ctx context.Context, user string, count int, extra *Params) ([]map[string]string, error) {
	params := extra.Clone().
		Set("ucuser", user).
		SetInt("uclimit", g.config.Limit)

	var result []map[string]string
	err := g.Iterate(ctx, "usercontribs", "item", "", "uccontinue", params, func(el *Element, _ string) bool {
		result = append(result, el.Attributes())
		return count <= 0 || len(result) < count
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EmailUser sends an email through the wiki and reports whether it was accepted.
func (g *Gateway) EmailUser(ctx context.Context, user, subject, text string) (bool, error) {
	token, err := g.GetToken(ctx, TokenEmail, "User:"+user)
	if err != nil {
		return false, err
	}
	doc, err := g.SendRequest(ctx, NewParams(
		"action", "emailuser",
		"target", user,
		"subject", subject,
		"text", text,
		"token", token,
	))
	if err != nil {
		return false, err
	}
	return doc.Child("emailuser").AttrValue("result") == "Success", nil
}

// CreateAccount registers a new account. params carries name, password,
// email and similar fields; the token handshake is done by the gateway.
func (g *Gateway) CreateAccount(ctx context.Context, params *Params) (*Element, error) {
	return g.SendRequest(ctx, params.Clone().Set("action", "createaccount"))
}

// Options changes user preferences.
func (g *Gateway) Options(ctx context.Context, change OptionsChange) (*Element, error) {
	token, err := g.getOptionsToken(ctx)
	if err != nil {
		return nil, err
	}
	params := NewParams("action", "options", "token", token)
	if len(change.Changes) > 0 {
		var pairs []string
		for _, k := range sortedKeys(change.Changes) {
			pairs = append(pairs, k+"="+change.Changes[k])
		}
		params.SetList("change", pairs)
	}
	if change.OptionName != "" {
		params.Set("optionname", change.OptionName)
		params.Set("optionvalue", change.OptionValue)
	}
	if change.Reset {
		params.SetFlag("reset")
	}
	return g.SendRequest(ctx, params)
}

// SetGroups adds user to and removes user from groups.
func (g *Gateway) SetGroups(ctx context.Context, user string, add, remove []string, reason string) (*Element, error) {
	token, err := g.getUserrightsToken(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("cannot change groups of %s: %w", user, err)
	}
	params := NewParams(
		"action", "userrights",
		"user", user,
		"token", token,
	).SetList("add", add).SetList("remove", remove).Set("reason", reason)
	return g.SendRequest(ctx, params)
}
