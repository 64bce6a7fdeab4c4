package wiki

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// SemanticMediaWiki is the extension name reported by siteinfo.
const SemanticMediaWiki = "Semantic MediaWiki"

// ErrSemanticMediaWikiMissing is returned by SemanticQuery on wikis without
// the extension.
var ErrSemanticMediaWikiMissing = errors.New("semantic mediawiki extension not installed")

// Search returns the titles of pages whose text matches key, following
// sroffset until opts.MaxResults hits were collected.
func (g *Gateway) Search(ctx context.Context, key string, opts SearchOptions) ([]string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = g.config.Limit
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = g.config.MaxResults
	}

	params := NewParams(
		"action", "query",
		"list", "search",
		"srwhat", "text",
		"srsearch", key,
	)
	if len(opts.Namespaces) > 0 {
		namespaces, err := g.NamespacesByPrefix(ctx)
		if err != nil {
			return nil, err
		}
		var ids []string
		for _, ns := range opts.Namespaces {
			if id, ok := namespaces[ns]; ok {
				ids = append(ids, strconv.Itoa(id))
			}
		}
		params.SetList("srnamespace", ids)
	}

	sel := ContinueSelector{List: "search", Names: []string{"sroffset"}}
	var titles []string
	offset := 0
	for {
		params.SetInt("sroffset", offset)
		params.SetInt("srlimit", min(limit, maxResults-offset))

		doc, cont, err := g.makeAPIRequest(ctx, params, sel)
		if err != nil {
			return nil, err
		}
		for _, p := range doc.Path("query/search").FindAll("p") {
			titles = append(titles, p.AttrValue("title"))
		}

		if cont == "" {
			return titles, nil
		}
		next, err := strconv.Atoi(cont)
		if err != nil || next <= offset || next >= maxResults {
			return titles, nil
		}
		offset = next
	}
}

// SemanticQuery runs an #ask query through Semantic MediaWiki. From
// version 1.7 the ask API is used and the response is returned as XML;
// older versions render the query through the parser and return HTML.
func (g *Gateway) SemanticQuery(ctx context.Context, query string, printouts []string) (string, error) {
	extensions, err := g.Extensions(ctx)
	if err != nil {
		return "", err
	}
	version, ok := extensions[SemanticMediaWiki]
	if !ok {
		return "", ErrSemanticMediaWikiMissing
	}

	if versionAtLeast(version, 1, 7) {
		doc, err := g.SendRequest(ctx, NewParams("action", "ask").
			SetList("query", append([]string{query}, printouts...)))
		if err != nil {
			return "", err
		}
		return doc.XML(), nil
	}

	parts := append([]string{query, "format=list"}, printouts...)
	doc, err := g.SendRequest(ctx, NewParams(
		"action", "parse",
		"prop", "text",
		"text", "{{#ask:"+strings.Join(parts, "|")+"}}",
	))
	if err != nil {
		return "", err
	}
	return doc.Path("parse/text").Text, nil
}

// versionAtLeast compares the leading major.minor of an extension version
// such as "1.8.0.5" or "1.7-alpha".
func versionAtLeast(v string, major, minor int) bool {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r < '0' || r > '9' })
	if len(fields) == 0 {
		return false
	}
	gotMajor, _ := strconv.Atoi(fields[0])
	gotMinor := 0
	if len(fields) > 1 {
		gotMinor, _ = strconv.Atoi(fields[1])
	}
	if gotMajor != major {
		return gotMajor > major
	}
	return gotMinor >= minor
}

// CustomQuery sends action=query with arbitrary parameters and returns the
// query element.
func (g *Gateway) CustomQuery(ctx context.Context, params *Params) (*Element, error) {
	doc, err := g.SendRequest(ctx, params.Clone().Set("action", "query"))
	if err != nil {
		return nil, err
	}
	return doc.Child("query"), nil
}
