package wiki

import "strconv"

// Defaults used when the caller leaves a field empty.
const (
	DefaultUploadComment = "Uploaded by mediawiki-gateway"
	DefaultReviewComment = "Reviewed by mediawiki-gateway"
	DefaultLoginDomain   = "local"
	DefaultExpiry        = "never"
	DefaultImagesLimit   = 200
	DefaultLanglinkLimit = 500
)

// PageRef identifies a page by title or by page id.
type PageRef struct {
	Title  string
	PageID int
}

// ByTitle refers to a page by its title.
func ByTitle(title string) PageRef { return PageRef{Title: title} }

// ByID refers to a page by its id.
func ByID(id int) PageRef { return PageRef{PageID: id} }

func (r PageRef) apply(p *Params) {
	if r.PageID > 0 {
		p.Set("pageids", strconv.Itoa(r.PageID))
	} else {
		p.Set("titles", r.Title)
	}
}

func (r PageRef) String() string {
	if r.PageID > 0 {
		return "#" + strconv.Itoa(r.PageID)
	}
	return r.Title
}

// ========== Page Types ==========

// RenderOptions post-process the HTML returned by Render.
type RenderOptions struct {
	// LinkBase is prefixed to every /wiki/ link.
	LinkBase string
	// NoEditSections removes the [edit] links.
	NoEditSections bool
	// NoImages removes <img> tags.
	NoImages bool
	Extra    *Params
}

// Minor is a tri-state for the minor edit flag.
type Minor int

const (
	MinorDefault Minor = iota // use the user preference
	MinorYes                  // minor=1
	MinorNo                   // notminor=1
)

// CreateOptions control Create and Edit.
type CreateOptions struct {
	// Overwrite allows replacing an existing page. Without it the edit is
	// sent with createonly and fails with articleexists.
	Overwrite bool
	Summary   string
	// Token reuses an edit token instead of fetching a new one.
	Token   string
	Minor   Minor
	Section string
	// Bot forces bot=1 and assert=bot for this edit.
	Bot   bool
	Extra *Params
}

// Protection is one restriction applied by Protect.
type Protection struct {
	Action string // edit, move, upload...
	Group  string // sysop, autoconfirmed...
	Expiry string // defaults to "never"
}

// ProtectOptions control Protect.
type ProtectOptions struct {
	Cascade bool
	Reason  string
}

// MoveOptions control Move.
type MoveOptions struct {
	MoveSubpages bool
	MoveTalk     bool
	NoRedirect   bool
	Reason       string
	Watch        bool
	Unwatch      bool
}

// DeleteOptions control Delete.
type DeleteOptions struct {
	Reason string
}

// UndeleteOptions control Undelete.
type UndeleteOptions struct {
	Reason string
}

// BacklinkFilter selects which backlinks are returned.
type BacklinkFilter string

const (
	BacklinksAll          BacklinkFilter = "all"
	BacklinksRedirects    BacklinkFilter = "redirects"
	BacklinksNonRedirects BacklinkFilter = "nonredirects"
)

// ========== Search Types ==========

// SearchOptions control Search.
type SearchOptions struct {
	// Namespaces are canonical namespace names; "" is the main namespace.
	Namespaces []string
	// Limit per request, defaults to Config.Limit.
	Limit int
	// MaxResults overall, defaults to Config.MaxResults.
	MaxResults int
}

// ========== File Types ==========

// UploadOptions control Upload. One of a local path, URL or SessionKey must
// be given.
type UploadOptions struct {
	Filename       string
	Comment        string
	Text           string
	URL            string
	SessionKey     string
	Watch          bool
	IgnoreWarnings bool
}

// ========== User Types ==========

// OptionsChange describes a preferences update.
type OptionsChange struct {
	Changes     map[string]string
	OptionName  string
	OptionValue string
	Reset       bool
}
