package wiki

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	wikiLinkRe    = regexp.MustCompile(`\shref="/wiki/([\w()\-.%:,]*)"`)
	editSectionRe = regexp.MustCompile(`<span class="editsection">\[.+\]</span>`)
	imageTagRe    = regexp.MustCompile(`<img.*/>`)
)

// Get returns the wikitext of a page. ok is false when the page does not
// exist or has no revisions (special pages). extra is merged into the
// request, e.g. rvsection.
func (g *Gateway) Get(ctx context.Context, title string, extra *Params) (content string, ok bool, err error) {
	doc, err := g.SendRequest(ctx, NewParams(
		"action", "query",
		"prop", "revisions",
		"rvprop", "content",
		"titles", title,
	).Merge(extra))
	if err != nil {
		return "", false, err
	}
	page := doc.Path("query/pages/page")
	if valid, err := g.validPage(page); !valid {
		return "", false, err
	}
	rev := page.Path("revisions/rev")
	if rev == nil {
		return "", false, nil
	}
	return rev.Text, true, nil
}

// Revision returns the latest revision id of a page.
func (g *Gateway) Revision(ctx context.Context, title string, extra *Params) (string, bool, error) {
	doc, err := g.SendRequest(ctx, NewParams(
		"action", "query",
		"prop", "revisions",
		"rvprop", "ids",
		"rvlimit", "1",
		"titles", title,
	).Merge(extra))
	if err != nil {
		return "", false, err
	}
	page := doc.Path("query/pages/page")
	if valid, err := g.validPage(page); !valid {
		return "", false, err
	}
	revid, ok := page.Path("revisions/rev").Attr("revid")
	return revid, ok, nil
}

// Render returns the page as HTML. ok is false when the page has no revision.
func (g *Gateway) Render(ctx context.Context, title string, opts RenderOptions) (string, bool, error) {
	params := NewParams("action", "parse", "page", title).Merge(opts.Extra)
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return "", false, err
	}
	parsed := doc.Child("parse")
	if parsed == nil || parsed.AttrValue("revid") == "0" {
		return "", false, nil
	}
	text := parsed.Child("text")
	if text == nil {
		return "", false, nil
	}

	rendered := htmlCommentRe.ReplaceAllString(text.Text, "")
	if opts.LinkBase != "" {
		base := strings.ReplaceAll(opts.LinkBase, "$", "$$")
		rendered = wikiLinkRe.ReplaceAllString(rendered, ` href="`+base+`/wiki/${1}"`)
	}
	if opts.NoEditSections {
		rendered = editSectionRe.ReplaceAllString(rendered, "")
	}
	if opts.NoImages {
		rendered = imageTagRe.ReplaceAllString(rendered, "")
	}
	return rendered, true, nil
}

// Create creates a page. Unless opts.Overwrite is set the edit fails with
// the API error articleexists when the page is already there.
func (g *Gateway) Create(ctx context.Context, title, content string, opts CreateOptions) (*Element, error) {
	token := opts.Token
	if token == "" {
		var err error
		if token, err = g.GetToken(ctx, TokenEdit, title); err != nil {
			return nil, err
		}
	}

	params := NewParams(
		"action", "edit",
		"title", title,
		"text", content,
		"summary", opts.Summary,
		"token", token,
	)
	if g.config.Bot || opts.Bot {
		params.Set("bot", "1").Set("assert", "bot")
	}
	switch opts.Minor {
	case MinorYes:
		params.Set("minor", "1")
	case MinorNo:
		params.Set("notminor", "1")
	}
	if !opts.Overwrite {
		params.SetFlag("createonly")
	}
	if opts.Section != "" {
		params.Set("section", opts.Section)
	}
	params.Merge(opts.Extra)

	return g.SendRequest(ctx, params)
}

// Edit creates or replaces a page.
func (g *Gateway) Edit(ctx context.Context, title, content string, opts CreateOptions) (*Element, error) {
	opts.Overwrite = true
	return g.Create(ctx, title, content, opts)
}

// Protect applies protections to a page.
func (g *Gateway) Protect(ctx context.Context, title string, protections []Protection, opts ProtectOptions) (*Element, error) {
	if len(protections) == 0 {
		return nil, &ValidationError{Field: "protections", Message: "at least one protection is required"}
	}
	var prots, expiries []string
	for i, p := range protections {
		if p.Action == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("protections[%d].action", i), Message: "missing required option"}
		}
		if p.Group == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("protections[%d].group", i), Message: "missing required option"}
		}
		expiry := p.Expiry
		if expiry == "" {
			expiry = DefaultExpiry
		}
		prots = append(prots, p.Action+"="+p.Group)
		expiries = append(expiries, expiry)
	}

	token, err := g.GetToken(ctx, TokenProtect, title)
	if err != nil {
		return nil, err
	}

	params := NewParams(
		"action", "protect",
		"title", title,
		"token", token,
	).SetList("protections", prots).SetList("expiry", expiries)
	if opts.Cascade {
		params.SetFlag("cascade")
	}
	if opts.Reason != "" {
		params.Set("reason", opts.Reason)
	}
	return g.SendRequest(ctx, params)
}

// Move renames a page.
func (g *Gateway) Move(ctx context.Context, from, to string, opts MoveOptions) (*Element, error) {
	token, err := g.GetToken(ctx, TokenMove, from)
	if err != nil {
		return nil, err
	}
	params := NewParams(
		"action", "move",
		"from", from,
		"to", to,
		"token", token,
	)
	flags := []struct {
		on   bool
		name string
	}{
		{opts.MoveSubpages, "movesubpages"},
		{opts.MoveTalk, "movetalk"},
		{opts.NoRedirect, "noredirect"},
		{opts.Watch, "watch"},
		{opts.Unwatch, "unwatch"},
	}
	for _, f := range flags {
		if f.on {
			params.SetFlag(f.name)
		}
	}
	if opts.Reason != "" {
		params.Set("reason", opts.Reason)
	}
	return g.SendRequest(ctx, params)
}

// Delete deletes a page.
func (g *Gateway) Delete(ctx context.Context, title string, opts DeleteOptions) (*Element, error) {
	token, err := g.GetToken(ctx, TokenDelete, title)
	if err != nil {
		return nil, err
	}
	params := NewParams("action", "delete", "title", title, "token", token)
	if opts.Reason != "" {
		params.Set("reason", opts.Reason)
	}
	return g.SendRequest(ctx, params)
}

// Undelete restores the deleted revisions of a page and returns how many
// were restored. Pages without deleted revisions return 0.
func (g *Gateway) Undelete(ctx context.Context, title string, opts UndeleteOptions) (int, error) {
	token, ok, err := g.getUndeleteToken(ctx, title)
	if err != nil || !ok {
		return 0, err
	}
	params := NewParams("action", "undelete", "title", title, "token", token)
	if opts.Reason != "" {
		params.Set("reason", opts.Reason)
	}
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(doc.Child("undelete").AttrValue("revisions"))
	return n, nil
}

// List returns the titles starting with key. key may carry a namespace
// prefix, e.g. "Book:It".
func (g *Gateway) List(ctx context.Context, key string, extra *Params) ([]string, error) {
	namespace := 0
	if prefix, rest, found := strings.Cut(key, ":"); found {
		namespaces, err := g.NamespacesByPrefix(ctx)
		if err != nil {
			return nil, err
		}
		namespace = namespaces[prefix]
		key = rest
	}

	params := extra.Clone().
		Set("apprefix", key).
		SetInt("apnamespace", namespace).
		SetInt("aplimit", g.config.Limit)
	return g.collect(ctx, "allpages", "p", "title", "apfrom", params)
}

// CategoryMembers returns the titles in a category, e.g. "Category:Fruits".
func (g *Gateway) CategoryMembers(ctx context.Context, category string, extra *Params) ([]string, error) {
	params := extra.Clone().
		Set("cmtitle", category).
		SetInt("cmlimit", g.config.Limit)
	return g.collect(ctx, "categorymembers", "cm", "title", "cmcontinue", params)
}

// Backlinks returns the titles of pages linking to title.
func (g *Gateway) Backlinks(ctx context.Context, title string, filter BacklinkFilter, extra *Params) ([]string, error) {
	if filter == "" {
		filter = BacklinksAll
	}
	params := extra.Clone().
		Set("bltitle", title).
		Set("blfilterredir", string(filter)).
		SetInt("bllimit", g.config.Limit)
	return g.collect(ctx, "backlinks", "bl", "title", "blcontinue", params)
}

// IsRedirect reports whether title is a redirect.
func (g *Gateway) IsRedirect(ctx context.Context, title string) (bool, error) {
	doc, err := g.SendRequest(ctx, NewParams(
		"action", "query",
		"prop", "info",
		"titles", title,
	))
	if err != nil {
		return false, err
	}
	page := doc.Path("query/pages/page")
	valid, err := g.validPage(page)
	if !valid {
		return false, err
	}
	return page.HasAttr("redirect"), nil
}

// Langlinks maps language codes to the title of the page in that language.
// Redirects are followed. ok is false when the page does not exist.
func (g *Gateway) Langlinks(ctx context.Context, ref PageRef, limit int) (map[string]string, bool, error) {
	if limit <= 0 {
		limit = DefaultLanglinkLimit
	}
	params := NewParams(
		"action", "query",
		"prop", "langlinks",
		"redirects", "true",
	).SetInt("lllimit", limit)
	ref.apply(params)

	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return nil, false, err
	}
	page := doc.Path("query/pages/page")
	if valid, err := g.validPage(page); !valid {
		return nil, false, err
	}

	if doc.Path("query/redirects/r") != nil {
		id, err := redirectTarget(page, ref)
		if err != nil {
			return nil, false, err
		}
		return g.Langlinks(ctx, ByID(id), limit)
	}

	links := make(map[string]string)
	for _, ll := range page.PathAll("langlinks/ll") {
		links[ll.AttrValue("lang")] = ll.Text
	}
	return links, true, nil
}

// LanglinkForLang returns the title of the page in one language.
func (g *Gateway) LanglinkForLang(ctx context.Context, ref PageRef, lang string) (string, bool, error) {
	links, ok, err := g.Langlinks(ctx, ref, 0)
	if err != nil || !ok {
		return "", false, err
	}
	title, ok := links[lang]
	return title, ok, nil
}

// Review marks the latest revision of a page as reviewed (FlaggedRevs).
// flags maps flag names such as "accuracy" to levels.
func (g *Gateway) Review(ctx context.Context, title string, flags map[string]string, comment string) (*Element, error) {
	revid, ok, err := g.Revision(ctx, title, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &APIError{Code: "missingtitle", Info: fmt.Sprintf("Article %s not found", title)}
	}
	token, err := g.GetToken(ctx, TokenEdit, title)
	if err != nil {
		return nil, err
	}
	if comment == "" {
		comment = DefaultReviewComment
	}

	params := NewParams(
		"action", "review",
		"revid", revid,
		"token", token,
		"comment", comment,
	)
	for _, k := range sortedKeys(flags) {
		params.Set("flag_"+k, flags[k])
	}
	return g.SendRequest(ctx, params)
}
