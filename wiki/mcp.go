package wiki

import (
	"context"
	"fmt"
	"strings"
)

// MCP tool wrapper methods
// These adapt the gateway operations to Args/Result types for MCP integration.

const defaultToolLimit = 50

// GetPageMCP is the MCP wrapper for Get and Render
func (g *Gateway) GetPageMCP(ctx context.Context, args GetPageArgs) (GetPageResult, error) {
	if strings.TrimSpace(args.Title) == "" {
		return GetPageResult{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	format := strings.ToLower(args.Format)
	if format == "" {
		format = "wikitext"
	}

	var (
		content string
		ok      bool
		err     error
	)
	switch format {
	case "wikitext":
		content, ok, err = g.Get(ctx, args.Title, nil)
	case "html":
		content, ok, err = g.Render(ctx, args.Title, RenderOptions{NoEditSections: true})
	default:
		return GetPageResult{}, &ValidationError{Field: "format", Value: args.Format, Message: "must be 'wikitext' or 'html'"}
	}
	if err != nil {
		return GetPageResult{}, err
	}
	return GetPageResult{Title: args.Title, Exists: ok, Format: format, Content: content}, nil
}

// ListPagesMCP is the MCP wrapper for List
func (g *Gateway) ListPagesMCP(ctx context.Context, args ListPagesArgs) (TitlesResult, error) {
	titles, err := g.List(ctx, args.Prefix, nil)
	if err != nil {
		return TitlesResult{}, err
	}
	return titlesResult(titles), nil
}

// SearchMCP is the MCP wrapper for Search
func (g *Gateway) SearchMCP(ctx context.Context, args SearchArgs) (TitlesResult, error) {
	if strings.TrimSpace(args.Query) == "" {
		return TitlesResult{}, &ValidationError{Field: "query", Message: "query is required"}
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}
	titles, err := g.Search(ctx, args.Query, SearchOptions{
		Namespaces: args.Namespaces,
		Limit:      limit,
		MaxResults: limit,
	})
	if err != nil {
		return TitlesResult{}, err
	}
	return titlesResult(titles), nil
}

// CategoryMembersMCP is the MCP wrapper for CategoryMembers
func (g *Gateway) CategoryMembersMCP(ctx context.Context, args CategoryMembersArgs) (TitlesResult, error) {
	category := args.Category
	if !strings.HasPrefix(category, "Category:") {
		category = "Category:" + category
	}
	titles, err := g.CategoryMembers(ctx, category, nil)
	if err != nil {
		return TitlesResult{}, err
	}
	return titlesResult(titles), nil
}

// BacklinksMCP is the MCP wrapper for Backlinks
func (g *Gateway) BacklinksMCP(ctx context.Context, args BacklinksArgs) (TitlesResult, error) {
	filter := BacklinkFilter(args.Filter)
	switch filter {
	case "", BacklinksAll, BacklinksRedirects, BacklinksNonRedirects:
	default:
		return TitlesResult{}, &ValidationError{Field: "filter", Value: args.Filter, Message: "must be all, redirects or nonredirects"}
	}
	titles, err := g.Backlinks(ctx, args.Title, filter, nil)
	if err != nil {
		return TitlesResult{}, err
	}
	return titlesResult(titles), nil
}

// LanglinksMCP is the MCP wrapper for Langlinks
func (g *Gateway) LanglinksMCP(ctx context.Context, args LanglinksArgs) (LanglinksResult, error) {
	links, ok, err := g.Langlinks(ctx, ByTitle(args.Title), 0)
	if err != nil {
		return LanglinksResult{}, err
	}
	return LanglinksResult{Title: args.Title, Exists: ok, Links: links}, nil
}

// SiteinfoMCP is the MCP wrapper for Siteinfo and Extensions
func (g *Gateway) SiteinfoMCP(ctx context.Context, _ SiteinfoArgs) (SiteinfoResult, error) {
	general, err := g.Siteinfo(ctx, nil)
	if err != nil {
		return SiteinfoResult{}, err
	}
	extensions, err := g.Extensions(ctx)
	if err != nil {
		return SiteinfoResult{}, err
	}
	result := SiteinfoResult{General: general, Extensions: extensions}
	if fields := strings.Fields(general["generator"]); len(fields) > 0 {
		result.Version = fields[len(fields)-1]
	}
	return result, nil
}

// EditPageMCP is the MCP wrapper for Create and Edit
func (g *Gateway) EditPageMCP(ctx context.Context, args EditPageArgs) (EditPageResult, error) {
	if strings.TrimSpace(args.Title) == "" {
		return EditPageResult{}, &ValidationError{Field: "title", Message: "title is required"}
	}
	opts := CreateOptions{Overwrite: !args.CreateOnly, Summary: args.Summary}
	if args.Minor {
		opts.Minor = MinorYes
	}

	doc, err := g.Create(ctx, args.Title, args.Content, opts)
	if err != nil {
		return EditPageResult{}, err
	}
	edit := doc.Child("edit")
	return EditPageResult{
		Title:    args.Title,
		Result:   edit.AttrValue("result"),
		PageID:   edit.AttrValue("pageid"),
		NewRevID: edit.AttrValue("newrevid"),
		New:      edit.HasAttr("new"),
		NoChange: edit.HasAttr("nochange"),
	}, nil
}

// DeletePageMCP is the MCP wrapper for Delete
func (g *Gateway) DeletePageMCP(ctx context.Context, args DeletePageArgs) (PageActionResult, error) {
	if _, err := g.Delete(ctx, args.Title, DeleteOptions{Reason: args.Reason}); err != nil {
		return PageActionResult{}, err
	}
	return PageActionResult{Title: args.Title, Success: true, Message: "deleted"}, nil
}

// MovePageMCP is the MCP wrapper for Move
func (g *Gateway) MovePageMCP(ctx context.Context, args MovePageArgs) (PageActionResult, error) {
	_, err := g.Move(ctx, args.From, args.To, MoveOptions{
		Reason:     args.Reason,
		NoRedirect: args.NoRedirect,
		MoveTalk:   args.MoveTalk,
	})
	if err != nil {
		return PageActionResult{}, err
	}
	return PageActionResult{Title: args.To, Success: true, Message: fmt.Sprintf("moved from %s", args.From)}, nil
}

// ContributionsMCP is the MCP wrapper for Contributions
func (g *Gateway) ContributionsMCP(ctx context.Context, args ContributionsArgs) (ContributionsResult, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}
	items, err := g.Contributions(ctx, args.User, limit, nil)
	if err != nil {
		return ContributionsResult{}, err
	}
	contribs := make([]Contribution, 0, len(items))
	for _, item := range items {
		contribs = append(contribs, Contribution{
			Title:     item["title"],
			RevID:     item["revid"],
			Timestamp: item["timestamp"],
			Comment:   item["comment"],
		})
	}
	return ContributionsResult{User: args.User, Contributions: contribs}, nil
}

// SemanticQueryMCP is the MCP wrapper for SemanticQuery
func (g *Gateway) SemanticQueryMCP(ctx context.Context, args SemanticQueryArgs) (SemanticQueryResult, error) {
	result, err := g.SemanticQuery(ctx, args.Query, args.Printouts)
	if err != nil {
		return SemanticQueryResult{}, err
	}
	return SemanticQueryResult{Result: result}, nil
}

func titlesResult(titles []string) TitlesResult {
	if titles == nil {
		titles = []string{}
	}
	return TitlesResult{Titles: titles, Count: len(titles)}
}
