package tools

// AllTools contains all tool specifications for the MediaWiki gateway.
// Tool descriptions follow a structured format for LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// READ TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_get_page",
		Method:   "GetPage",
		Title:    "Get Page",
		Category: "read",
		Description: `Read the current content of a wiki page.

USE WHEN: User asks "show me page X", "what does the X page say", "get the wikitext of X".

NOT FOR: Finding which page covers a topic (use mediawiki_search).

PARAMETERS:
- title: Page title (required)
- format: "wikitext" (default) or "html" for rendered output

RETURNS: Page content and whether the page exists. Missing pages are not an error.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_langlinks",
		Method:   "Langlinks",
		Title:    "Get Language Links",
		Category: "read",
		Description: `List the interlanguage links of a page.

USE WHEN: User asks "is X translated", "what is X called in Finnish", "which languages have page X".

PARAMETERS:
- title: Page title (required). Redirects are followed.

RETURNS: Map of language code to title in that language.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_wiki_info",
		Method:   "Siteinfo",
		Title:    "Get Wiki Info",
		Category: "read",
		Description: `Describe the wiki: name, MediaWiki version and installed extensions.

USE WHEN: User asks "which MediaWiki version is this", "is Semantic MediaWiki installed", "what wiki am I connected to".

PARAMETERS: None.

RETURNS: General site information, version and extension versions.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// SEARCH TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_search",
		Method:   "Search",
		Title:    "Search Wiki",
		Category: "search",
		Description: `Search ACROSS the wiki for pages whose text matches a query.

USE WHEN: User asks "find pages about X", "where is X documented", "search for X".

NOT FOR: Listing pages by title prefix (use mediawiki_list_pages).

PARAMETERS:
- query: Search text (required)
- namespaces: Namespace names to search (default: main namespace)
- limit: Max results (default 50)

RETURNS: Matching page titles.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_list_pages",
		Method:   "ListPages",
		Title:    "List Pages",
		Category: "search",
		Description: `List pages whose title starts with a prefix.

USE WHEN: User asks "list all pages starting with X", "what Help: pages exist", "show subpages of X/".

NOT FOR: Full text search (use mediawiki_search).

PARAMETERS:
- prefix: Title prefix, may include a namespace like "Help:Ed" (empty lists everything)

RETURNS: Page titles in title order.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_category_members",
		Method:   "CategoryMembers",
		Title:    "Get Category Members",
		Category: "search",
		Description: `List the pages in a category.

USE WHEN: User asks "what pages are in category X", "list everything tagged X".

PARAMETERS:
- category: Category name, with or without the "Category:" prefix (required)

RETURNS: Member page titles.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_get_backlinks",
		Method:   "Backlinks",
		Title:    "Get Backlinks",
		Category: "search",
		Description: `List pages that link to a page.

USE WHEN: User asks "what links here", "which pages reference X", "find redirects to X".

PARAMETERS:
- title: Target page (required)
- filter: "all" (default), "redirects" or "nonredirects"

RETURNS: Titles of the linking pages.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "mediawiki_semantic_query",
		Method:   "SemanticQuery",
		Title:    "Semantic Query",
		Category: "search",
		Description: `Run a Semantic MediaWiki #ask query.

USE WHEN: User asks structured questions such as "all cities in Finland with population over 100000" on a wiki with Semantic MediaWiki.

NOT FOR: Plain text search (use mediawiki_search). Fails when the extension is not installed; check with mediawiki_get_wiki_info.

PARAMETERS:
- query: Query conditions, e.g. "[[Category:City]][[Located in::Finland]]" (required)
- printouts: Properties to print, e.g. ["?Population"]

RETURNS: Raw query output (ask API XML on SMW 1.7+, rendered HTML before that).`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// USER TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_get_user_contributions",
		Method:   "Contributions",
		Title:    "Get User Contributions",
		Category: "users",
		Description: `List recent edits made by a user.

USE WHEN: User asks "what did X edit", "show contributions of X".

PARAMETERS:
- user: User name without "User:" (required)
- limit: Max edits (default 50)

RETURNS: Title, revision id, timestamp and comment of each edit.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// WRITE TOOLS
	// ==========================================================================
	{
		Name:     "mediawiki_edit_page",
		Method:   "EditPage",
		Title:    "Edit Page",
		Category: "write",
		Description: `Create a page or replace its content.

USE WHEN: User says "create page X", "replace the content of X", "save this text to X".

PARAMETERS:
- title: Page title (required)
- content: Full new wikitext (required)
- summary: Edit summary
- create_only: Fail if the page exists (default false)
- minor: Mark as minor edit

RETURNS: Edit result with new revision id. no_change is set when the content was identical.

NOTE: Replaces the whole page. Read it first with mediawiki_get_page when editing existing content.`,
		ReadOnly:    false,
		Destructive: true,
		Idempotent:  true,
		OpenWorld:   true,
	},
	{
		Name:     "mediawiki_move_page",
		Method:   "MovePage",
		Title:    "Move Page",
		Category: "write",
		Description: `Rename a page.

USE WHEN: User says "rename X to Y", "move page X".

PARAMETERS:
- from: Current title (required)
- to: New title (required)
- reason: Log reason
- no_redirect: Do not leave a redirect (default false)
- move_talk: Also move the talk page

RETURNS: Success status.

NOTE: Requires a logged-in account.`,
		ReadOnly:    false,
		Destructive: false,
		Idempotent:  false,
		OpenWorld:   true,
	},
	{
		Name:     "mediawiki_delete_page",
		Method:   "DeletePage",
		Title:    "Delete Page",
		Category: "write",
		Description: `Delete a page.

USE WHEN: User explicitly says "delete page X".

PARAMETERS:
- title: Page title (required)
- reason: Log reason

RETURNS: Success status.

NOTE: Requires an account with delete rights. Deleted pages can only be restored by an administrator.`,
		ReadOnly:    false,
		Destructive: true,
		Idempotent:  false,
		OpenWorld:   true,
	},
}
