// Package fakewiki is an in-process MediaWiki API for tests. It answers the
// XML API with a small set of users, pages, tokens and namespaces and keeps
// every request it received.
package fakewiki

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionCookie is the name of the session cookie handed out on login.
const SessionCookie = "fakewiki_session"

// AnonToken is the edit token MediaWiki gives anonymous users.
const AnonToken = `+\`

// User is a wiki account.
type User struct {
	ID       int
	Name     string
	Password string
	Domain   string
	Email    string
	Groups   []string
	Options  map[string]string
}

func (u *User) inGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Page is a wiki page.
type Page struct {
	ID         int
	Title      string
	Namespace  int
	Content    string
	RevID      int
	Revisions  int
	Redirect   string
	Categories []string
	Links      []string
	Images     []string
	Langlinks  map[string]string
	Protection map[string]string
}

// Contribution is one edit made through the fake.
type Contribution struct {
	User      string
	Title     string
	RevID     int
	PageID    int
	Timestamp string
	Comment   string
}

// Request is a recorded API call.
type Request struct {
	Method string
	Form   url.Values
	Header http.Header
	Files  map[string][]byte
}

type session struct {
	user       string
	loginToken string
	csrf       string
}

// Server is the fake wiki.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[string]*User
	pages      map[string]*Page
	deleted    map[string]*Page
	files      map[string][]byte
	sessions   map[string]*session
	namespaces map[int]string
	extensions map[string]string
	contribs   []Contribution
	hooks      map[string]http.HandlerFunc
	requests   []Request
	nextPageID int
	nextRevID  int
	nextUserID int
	clock      int
}

// New starts a fake wiki seeded with the default users and pages. The API
// endpoint is URL + "/api.php".
func New() *Server {
	s := newServer()
	s.seed()
	s.Server = httptest.NewServer(s)
	return s
}

// NewEmpty starts a fake wiki without users or pages.
func NewEmpty() *Server {
	s := newServer()
	s.Server = httptest.NewServer(s)
	return s
}

func newServer() *Server {
	return &Server{
		users:    make(map[string]*User),
		pages:    make(map[string]*Page),
		deleted:  make(map[string]*Page),
		files:    make(map[string][]byte),
		sessions: make(map[string]*session),
		namespaces: map[int]string{
			-2: "Media", -1: "Special", 0: "", 1: "Talk", 2: "User", 3: "User talk",
			4: "Project", 6: "File", 10: "Template", 14: "Category",
			100: "Book", 200: "Sandbox",
		},
		extensions: make(map[string]string),
		hooks:      make(map[string]http.HandlerFunc),
		nextPageID: 1,
		nextRevID:  1,
		nextUserID: 1,
	}
}

func (s *Server) seed() {
	s.AddUser("atlasmw", "wombat", "", "sysop", "bot")
	s.AddUser("nonadmin", "sekrit", "")
	s.AddUser("ldapuser", "ldappass", "ldapdomain")
	s.users["atlasmw"].Email = "atlasmw@example.org"

	s.AddPage("Main Page", "Content")
	s.AddPage("Main 2", "Content")
	s.AddPage("Empty", "")
	s.AddPage("Level/Level/Index", "Content")
	s.AddPage("Book:Italy", "Content")
	s.AddPage("Sandbox:Test", "Content")
	s.AddPage("Foopage", "Content [[Category:Foo]] [[Main Page]] [[File:Sample.png]]")
	s.AddPage("Redirect", "#REDIRECT [[Foopage]]")
	s.pages["Foopage"].Langlinks = map[string]string{"en": "Foopage", "fi": "Foosivu"}
	s.AddFile("Sample.png", []byte("PNG"))

	s.extensions["FooExtension"] = "r1"
	s.extensions["BarExtension"] = "r2"
}

// Endpoint returns the API URL.
func (s *Server) Endpoint() string {
	return s.URL + "/api.php"
}

// Handle overrides one action. The handler sees the request after the form
// was parsed and recorded.
func (s *Server) Handle(action string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[action] = h
}

// Requests returns every API request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// AddUser creates an account in the given groups.
func (s *Server) AddUser(name, password, domain string, groups ...string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: s.nextUserID, Name: name, Password: password, Domain: domain, Groups: groups, Options: map[string]string{}}
	s.nextUserID++
	s.users[name] = u
	return u
}

// User returns a copy of an account.
func (s *Server) User(name string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[name]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// AddPage creates or replaces a page.
func (s *Server) AddPage(title, content string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePage(title, content)
}

// Page returns a copy of a page.
func (s *Server) Page(title string) (Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[title]
	if !ok {
		return Page{}, false
	}
	return *p, true
}

// AddFile stores an uploaded file and its description page.
func (s *Server) AddFile(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	if _, ok := s.pages["File:"+name]; !ok {
		s.savePage("File:"+name, "")
	}
}

// File returns the content of an uploaded file.
func (s *Server) File(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	return data, ok
}

// SetExtension registers an installed extension.
func (s *Server) SetExtension(name, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extensions[name] = version
}

// Contributions returns the edits recorded so far.
func (s *Server) Contributions() []Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Contribution(nil), s.contribs...)
}

var (
	linkRe     = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)
	redirectRe = regexp.MustCompile(`(?i)^#REDIRECT\s*\[\[([^\]|]+)`)
)

// savePage must be called with mu held.
func (s *Server) savePage(title, content string) *Page {
	p, ok := s.pages[title]
	if !ok {
		p = &Page{ID: s.nextPageID, Title: title, Namespace: s.namespaceOf(title)}
		s.nextPageID++
		s.pages[title] = p
	}
	p.Content = content
	p.RevID = s.nextRevID
	p.Revisions++
	s.nextRevID++

	p.Redirect = ""
	if m := redirectRe.FindStringSubmatch(content); m != nil {
		p.Redirect = strings.TrimSpace(m[1])
	}
	p.Categories, p.Links, p.Images = nil, nil, nil
	for _, m := range linkRe.FindAllStringSubmatch(content, -1) {
		target := strings.TrimSpace(m[1])
		switch {
		case strings.HasPrefix(target, "Category:"):
			p.Categories = append(p.Categories, target)
		case strings.HasPrefix(target, "File:"):
			p.Images = append(p.Images, target)
		default:
			p.Links = append(p.Links, target)
		}
	}
	return p
}

// namespaceOf returns the namespace id of a title.
func (s *Server) namespaceOf(title string) int {
	prefix, _, found := strings.Cut(title, ":")
	if !found {
		return 0
	}
	for id, name := range s.namespaces {
		if name != "" && name == prefix {
			return id
		}
	}
	return 0
}

// stripNamespace removes a known namespace prefix.
func (s *Server) stripNamespace(title string) string {
	if s.namespaceOf(title) == 0 {
		return title
	}
	_, rest, _ := strings.Cut(title, ":")
	return rest
}

func (s *Server) sortedTitles() []string {
	titles := make([]string, 0, len(s.pages))
	for t := range s.pages {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

func (s *Server) timestamp() string {
	s.clock++
	return "2024-01-01T00:00:" + pad2(s.clock%60) + "Z"
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
