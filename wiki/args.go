package wiki

// GetPageArgs contains parameters for reading a page
type GetPageArgs struct {
	Title  string `json:"title" jsonschema:"required" jsonschema_description:"Page title, e.g. 'Main Page'"`
	Format string `json:"format,omitempty" jsonschema_description:"'wikitext' (default) or 'html'"`
}

// GetPageResult is the result of reading a page
type GetPageResult struct {
	Title   string `json:"title"`
	Exists  bool   `json:"exists"`
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
}

// ListPagesArgs contains parameters for listing pages by prefix
type ListPagesArgs struct {
	Prefix string `json:"prefix" jsonschema_description:"Title prefix, optionally with a namespace such as 'Help:Ed'"`
}

// TitlesResult is a list of page titles
type TitlesResult struct {
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// SearchArgs contains parameters for full text search
type SearchArgs struct {
	Query      string   `json:"query" jsonschema:"required" jsonschema_description:"Text to search for"`
	Namespaces []string `json:"namespaces,omitempty" jsonschema_description:"Canonical namespace names to search, e.g. ['', 'Help']. Default: main namespace"`
	Limit      int      `json:"limit,omitempty" jsonschema_description:"Maximum number of hits (default 50)"`
}

// CategoryMembersArgs contains parameters for listing a category
type CategoryMembersArgs struct {
	Category string `json:"category" jsonschema:"required" jsonschema_description:"Category title including the prefix, e.g. 'Category:Fruits'"`
}

// BacklinksArgs contains parameters for listing backlinks
type BacklinksArgs struct {
	Title  string `json:"title" jsonschema:"required" jsonschema_description:"Page the links point to"`
	Filter string `json:"filter,omitempty" jsonschema_description:"'all' (default), 'redirects' or 'nonredirects'"`
}

// LanglinksArgs contains parameters for interlanguage links
type LanglinksArgs struct {
	Title string `json:"title" jsonschema:"required" jsonschema_description:"Page title; redirects are followed"`
}

// LanglinksResult maps language codes to titles
type LanglinksResult struct {
	Title  string            `json:"title"`
	Exists bool              `json:"exists"`
	Links  map[string]string `json:"links,omitempty"`
}

// SiteinfoArgs has no parameters
type SiteinfoArgs struct{}

// SiteinfoResult describes the wiki
type SiteinfoResult struct {
	General    map[string]string `json:"general"`
	Version    string            `json:"version,omitempty"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// EditPageArgs contains parameters for creating or replacing a page
type EditPageArgs struct {
	Title      string `json:"title" jsonschema:"required" jsonschema_description:"Page title"`
	Content    string `json:"content" jsonschema:"required" jsonschema_description:"New wikitext of the page"`
	Summary    string `json:"summary,omitempty" jsonschema_description:"Edit summary"`
	CreateOnly bool   `json:"create_only,omitempty" jsonschema_description:"Fail if the page already exists"`
	Minor      bool   `json:"minor,omitempty" jsonschema_description:"Mark as a minor edit"`
}

// EditPageResult is the outcome of an edit
type EditPageResult struct {
	Title    string `json:"title"`
	Result   string `json:"result"`
	PageID   string `json:"page_id,omitempty"`
	NewRevID string `json:"new_revision_id,omitempty"`
	New      bool   `json:"new,omitempty"`
	NoChange bool   `json:"no_change,omitempty"`
}

// DeletePageArgs contains parameters for deleting a page
type DeletePageArgs struct {
	Title  string `json:"title" jsonschema:"required" jsonschema_description:"Page to delete"`
	Reason string `json:"reason,omitempty" jsonschema_description:"Reason shown in the deletion log"`
}

// MovePageArgs contains parameters for renaming a page
type MovePageArgs struct {
	From       string `json:"from" jsonschema:"required" jsonschema_description:"Current title"`
	To         string `json:"to" jsonschema:"required" jsonschema_description:"New title"`
	Reason     string `json:"reason,omitempty" jsonschema_description:"Reason shown in the move log"`
	NoRedirect bool   `json:"no_redirect,omitempty" jsonschema_description:"Do not leave a redirect behind"`
	MoveTalk   bool   `json:"move_talk,omitempty" jsonschema_description:"Move the talk page as well"`
}

// PageActionResult reports a completed page action
type PageActionResult struct {
	Title   string `json:"title"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ContributionsArgs contains parameters for listing user edits
type ContributionsArgs struct {
	User  string `json:"user" jsonschema:"required" jsonschema_description:"User name without the 'User:' prefix"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of edits (default 50)"`
}

// ContributionsResult lists user edits
type ContributionsResult struct {
	User          string         `json:"user"`
	Contributions []Contribution `json:"contributions"`
}

// Contribution is one edit
type Contribution struct {
	Title     string `json:"title"`
	RevID     string `json:"revision_id"`
	Timestamp string `json:"timestamp,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// SemanticQueryArgs contains parameters for a Semantic MediaWiki query
type SemanticQueryArgs struct {
	Query     string   `json:"query" jsonschema:"required" jsonschema_description:"#ask conditions, e.g. '[[Category:City]][[Located in::Finland]]'"`
	Printouts []string `json:"printouts,omitempty" jsonschema_description:"Properties to print, e.g. ['?Population']"`
}

// SemanticQueryResult holds the raw query output
type SemanticQueryResult struct {
	Result string `json:"result"`
}
