package wiki

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
)

// Import uploads a MediaWiki XML dump from a local file.
func (g *Gateway) Import(ctx context.Context, xmlPath string) (*Element, error) {
	// import tokens are not page specific; any title will do
	token, err := g.GetToken(ctx, TokenImport, "Main Page")
	if err != nil {
		return nil, err
	}
	file := FileFromPath(xmlPath)
	file.Name = filepath.Base(xmlPath)
	params := NewParams("action", "import", "token", token).SetFile("xml", file)
	return g.SendRequest(ctx, params)
}

// Export returns the XML dump of the given pages. The returned element is the
// mediawiki root of the dump.
func (g *Gateway) Export(ctx context.Context, titles []string) (*Element, error) {
	params := NewParams("action", "query").
		SetList("titles", titles).
		SetFlag("export").
		SetFlag("exportnowrap")
	return g.SendRequest(ctx, params)
}

// Siteinfo returns the general site information, e.g. sitename, generator
// and base.
func (g *Gateway) Siteinfo(ctx context.Context, extra *Params) (map[string]string, error) {
	params := extra.Clone().Set("action", "query").Set("meta", "siteinfo")
	doc, err := g.siteQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	return doc.Path("query/general").Attributes(), nil
}

// Version returns the MediaWiki version, e.g. "1.23.0" for a generator of
// "MediaWiki 1.23.0".
func (g *Gateway) Version(ctx context.Context) (string, error) {
	info, err := g.Siteinfo(ctx, nil)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(info["generator"])
	if len(fields) == 0 {
		return "", nil
	}
	return fields[len(fields)-1], nil
}

// NamespacesByPrefix maps canonical namespace names to their ids. The main
// namespace is "".
func (g *Gateway) NamespacesByPrefix(ctx context.Context) (map[string]int, error) {
	doc, err := g.siteQuery(ctx, NewParams(
		"action", "query",
		"meta", "siteinfo",
		"siprop", "namespaces",
	))
	if err != nil {
		return nil, err
	}
	namespaces := make(map[string]int)
	for _, ns := range doc.FindAll("ns") {
		id, err := strconv.Atoi(ns.AttrValue("id"))
		if err != nil {
			continue
		}
		namespaces[ns.AttrValue("canonical")] = id
	}
	return namespaces, nil
}

// Extensions maps installed extension names to their versions.
func (g *Gateway) Extensions(ctx context.Context) (map[string]string, error) {
	doc, err := g.siteQuery(ctx, NewParams(
		"action", "query",
		"meta", "siteinfo",
		"siprop", "extensions",
	))
	if err != nil {
		return nil, err
	}
	extensions := make(map[string]string)
	for _, ext := range doc.FindAll("ext") {
		extensions[ext.AttrValue("name")] = ext.AttrValue("version")
	}
	return extensions, nil
}

// siteQuery sends a siteinfo query, answering from the site cache when one
// is configured.
func (g *Gateway) siteQuery(ctx context.Context, params *Params) (*Element, error) {
	if g.siteCache == nil {
		return g.SendRequest(ctx, params)
	}
	key := g.config.BaseURL + "?" + params.Encode()
	if doc, ok := g.siteCache.Get(key); ok {
		return doc, nil
	}
	doc, err := g.SendRequest(ctx, params)
	if err != nil {
		return nil, err
	}
	g.siteCache.Set(key, doc, g.siteTTL)
	return doc, nil
}
