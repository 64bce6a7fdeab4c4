package fakewiki

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// call is one parsed API request.
type call struct {
	w    http.ResponseWriter
	r    *http.Request
	form url.Values
	sess *session
	sid  string
}

func (c *call) get(key string) string { return c.form.Get(key) }

func (c *call) has(key string) bool {
	_, ok := c.form[key]
	return ok
}

func (c *call) list(key string) []string {
	v := c.get(key)
	if v == "" {
		return nil
	}
	return strings.Split(v, "|")
}

func (c *call) intValue(key string, def int) int {
	if n, err := strconv.Atoi(c.get(key)); err == nil {
		return n
	}
	return def
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/files/") {
		s.serveFile(w, r)
		return
	}

	files := map[string][]byte{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for key, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			f, err := headers[0].Open()
			if err != nil {
				continue
			}
			data, _ := io.ReadAll(f)
			_ = f.Close()
			files[key] = data
		}
	} else if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Form: r.Form, Header: r.Header.Clone(), Files: files})
	hook := s.hooks[r.Form.Get("action")]
	s.mu.Unlock()

	if hook != nil {
		hook(w, r)
		return
	}

	if lag, err := strconv.Atoi(r.Form.Get("maxlag")); err == nil && lag < 0 {
		w.Header().Set("Retry-After", "0")
		http.Error(w, "Maxlag exceeded", http.StatusServiceUnavailable)
		return
	}
	if r.Form.Get("format") != "xml" {
		http.Error(w, "only format=xml is supported", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := &call{w: w, r: r, form: r.Form}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		c.sid = cookie.Value
		c.sess = s.sessions[cookie.Value]
	}

	switch action := c.get("action"); action {
	case "login":
		s.login(c)
	case "createaccount":
		s.createAccount(c)
	case "query":
		s.query(c)
	case "edit":
		s.edit(c)
	case "delete":
		s.delete(c)
	case "undelete":
		s.undelete(c)
	case "move":
		s.move(c)
	case "protect":
		s.protect(c)
	case "upload":
		s.upload(c, files)
	case "import":
		s.importXML(c, files)
	case "emailuser":
		s.emailUser(c)
	case "tokens":
		s.tokens(c)
	case "options":
		s.options(c)
	case "userrights":
		s.userrights(c)
	case "parse":
		s.parse(c)
	case "ask":
		s.ask(c)
	case "review":
		s.review(c)
	default:
		WriteError(w, "unknown_action", fmt.Sprintf("Unrecognized value for parameter 'action': %s", action))
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/files/")
	s.mu.Lock()
	data, ok := s.files[name]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// user returns the logged in account, or nil for anonymous calls.
func (s *Server) user(c *call) *User {
	if c.sess == nil || c.sess.user == "" {
		return nil
	}
	return s.users[c.sess.user]
}

// tokenFor returns the token for kind, or "" when the caller may not perform it.
func (s *Server) tokenFor(c *call, kind string) string {
	u := s.user(c)
	if u == nil {
		if kind == "edit" {
			return AnonToken
		}
		return ""
	}
	switch kind {
	case "delete", "undelete", "protect", "import", "userrights":
		if !u.inGroup("sysop") {
			return ""
		}
	}
	return c.sess.csrf
}

// checkToken writes a badtoken error and returns false when the token is wrong.
func (s *Server) checkToken(c *call, kind string) bool {
	want := s.tokenFor(c, kind)
	if want == "" {
		WriteError(c.w, "permissiondenied", "You don't have permission to "+kind)
		return false
	}
	if c.get("token") != want {
		WriteError(c.w, "badtoken", "Invalid token")
		return false
	}
	return true
}

func (s *Server) startSession(c *call) *session {
	if c.sess != nil {
		return c.sess
	}
	c.sid = newToken()
	c.sess = &session{}
	s.sessions[c.sid] = c.sess
	http.SetCookie(c.w, &http.Cookie{Name: SessionCookie, Value: c.sid, Path: "/", HttpOnly: true})
	return c.sess
}

func (s *Server) login(c *call) {
	sess := s.startSession(c)
	if c.get("lgtoken") == "" {
		sess.loginToken = newToken()
		WriteXML(c.w, El("api").Add(El("login", "result", "NeedToken", "token", sess.loginToken, "cookieprefix", "fakewiki", "sessionid", c.sid)))
		return
	}
	if c.get("lgtoken") != sess.loginToken {
		WriteXML(c.w, El("api").Add(El("login", "result", "WrongToken")))
		return
	}

	u, ok := s.users[c.get("lgname")]
	switch {
	case !ok:
		WriteXML(c.w, El("api").Add(El("login", "result", "NotExists")))
		return
	case u.Password != c.get("lgpassword"):
		WriteXML(c.w, El("api").Add(El("login", "result", "WrongPass")))
		return
	}
	domain := u.Domain
	if domain == "" {
		domain = "local"
	}
	requested := c.get("lgdomain")
	if requested == "" {
		requested = "local"
	}
	if domain != requested {
		WriteXML(c.w, El("api").Add(El("login", "result", "WrongPass")))
		return
	}

	sess.user = u.Name
	sess.loginToken = ""
	sess.csrf = newToken() + AnonToken
	http.SetCookie(c.w, &http.Cookie{Name: "fakewikiUserName", Value: u.Name, Path: "/"})
	WriteXML(c.w, El("api").Add(El("login",
		"result", "Success",
		"lguserid", strconv.Itoa(u.ID),
		"lgusername", u.Name,
		"cookieprefix", "fakewiki",
		"sessionid", c.sid,
	)))
}

func (s *Server) createAccount(c *call) {
	sess := s.startSession(c)
	if c.get("token") == "" {
		sess.loginToken = newToken()
		WriteXML(c.w, El("api").Add(El("createaccount", "result", "NeedToken", "token", sess.loginToken)))
		return
	}
	if c.get("token") != sess.loginToken {
		WriteError(c.w, "sessionfailure", "Session failure")
		return
	}
	name := c.get("name")
	if name == "" || c.get("password") == "" {
		WriteError(c.w, "noname", "You didn't set a valid name or password")
		return
	}
	if _, exists := s.users[name]; exists {
		WriteError(c.w, "userexists", "Username entered already in use.")
		return
	}
	u := &User{ID: s.nextUserID, Name: name, Password: c.get("password"), Domain: c.get("domain"), Email: c.get("email"), Options: map[string]string{}}
	s.nextUserID++
	s.users[name] = u
	sess.loginToken = ""
	WriteXML(c.w, El("api").Add(El("createaccount", "result", "Success", "userid", strconv.Itoa(u.ID), "username", name)))
}

func (s *Server) query(c *call) {
	if c.has("export") {
		s.export(c)
		return
	}

	query := El("query")
	var cont *Node

	if titles := c.list("titles"); len(titles) > 0 || c.has("pageids") {
		s.queryPages(c, query, titles)
	}

	for _, meta := range c.list("meta") {
		if meta == "siteinfo" {
			s.siteinfo(c, query)
		}
	}

	switch c.get("list") {
	case "allpages":
		cont = s.listAllPages(c, query)
	case "search":
		cont = s.listSearch(c, query)
	case "categorymembers":
		cont = s.listCategoryMembers(c, query)
	case "backlinks":
		cont = s.listBacklinks(c, query)
	case "allusers":
		cont = s.listAllUsers(c, query)
	case "usercontribs":
		cont = s.listUserContribs(c, query)
	case "deletedrevs":
		s.listDeletedRevs(c, query)
	case "users":
		s.listUsers(c, query)
	}

	api := El("api")
	if cont != nil {
		api.Add(El("query-continue").Add(cont))
	}
	WriteXML(c.w, api.Add(query))
}

func invalidTitle(title string) bool {
	return title == "" || strings.ContainsAny(title, "[]{}<>|#")
}

func (s *Server) queryPages(c *call, query *Node, titles []string) {
	pages := El("pages")
	props := c.list("prop")
	follow := c.has("redirects")

	var redirects *Node
	for _, id := range c.list("pageids") {
		n, _ := strconv.Atoi(id)
		for _, p := range s.pages {
			if p.ID == n {
				titles = append(titles, p.Title)
			}
		}
	}

	for _, title := range titles {
		if invalidTitle(title) {
			pages.Add(El("page", "title", title, "invalid", ""))
			continue
		}
		p, ok := s.pages[title]
		if ok && follow && p.Redirect != "" {
			if redirects == nil {
				redirects = El("redirects")
			}
			redirects.Add(El("r", "from", title, "to", p.Redirect))
			title = p.Redirect
			p, ok = s.pages[title]
		}
		var el *Node
		if ok {
			el = El("page", "pageid", strconv.Itoa(p.ID), "ns", strconv.Itoa(p.Namespace), "title", p.Title)
		} else {
			el = El("page", "ns", strconv.Itoa(s.namespaceOf(title)), "title", title, "missing", "")
		}
		for _, prop := range props {
			s.pageProp(c, el, prop, p, title)
		}
		pages.Add(el)
	}
	if redirects != nil {
		query.Add(redirects)
	}
	query.Add(pages)
}

func (s *Server) pageProp(c *call, el *Node, prop string, p *Page, title string) {
	switch prop {
	case "info":
		if p != nil {
			el.Set("lastrevid", strconv.Itoa(p.RevID)).Set("length", strconv.Itoa(len(p.Content)))
			if p.Redirect != "" {
				el.Set("redirect", "")
			}
		}
		if kind := c.get("intoken"); kind != "" {
			if token := s.tokenFor(c, kind); token != "" {
				el.Set(kind+"token", token)
			}
		}
	case "revisions":
		if p == nil {
			return
		}
		rev := El("rev", "revid", strconv.Itoa(p.RevID))
		if strings.Contains(c.get("rvprop"), "content") {
			rev.Set("xml:space", "preserve").WithText(p.Content)
		}
		el.Add(El("revisions").Add(rev))
	case "langlinks":
		if p == nil || len(p.Langlinks) == 0 {
			return
		}
		ll := El("langlinks")
		for _, lang := range sortedKeys(p.Langlinks) {
			ll.Add(El("ll", "lang", lang, "xml:space", "preserve").WithText(p.Langlinks[lang]))
		}
		el.Add(ll)
	case "images":
		if p == nil || len(p.Images) == 0 {
			return
		}
		ims := El("images")
		for _, im := range p.Images {
			ims.Add(El("im", "ns", "6", "title", im))
		}
		el.Add(ims)
	case "imageinfo":
		name := strings.TrimPrefix(title, "File:")
		data, ok := s.files[name]
		if !ok {
			return
		}
		el.Set("imagerepository", "local")
		ii := El("ii", "timestamp", "2024-01-01T00:00:00Z", "user", "atlasmw")
		for _, prop := range strings.Split(c.get("iiprop"), "|") {
			switch prop {
			case "url":
				ii.Set("url", s.URL+"/files/"+name).Set("descriptionurl", s.URL+"/wiki/File:"+name)
			case "size":
				ii.Set("size", strconv.Itoa(len(data)))
			}
		}
		el.Add(El("imageinfo").Add(ii))
	}
}

func (s *Server) siteinfo(c *call, query *Node) {
	props := c.list("siprop")
	if len(props) == 0 {
		props = []string{"general"}
	}
	for _, prop := range props {
		switch prop {
		case "general":
			query.Add(El("general",
				"mainpage", "Main Page",
				"base", s.URL+"/wiki/Main_Page",
				"sitename", "FakeWiki",
				"generator", "MediaWiki 1.16.0",
				"case", "first-letter",
				"server", s.URL,
				"wikiid", "fakewiki",
			))
		case "namespaces":
			ids := make([]int, 0, len(s.namespaces))
			for id := range s.namespaces {
				ids = append(ids, id)
			}
			sort.Ints(ids)
			nss := El("namespaces")
			for _, id := range ids {
				ns := El("ns", "id", strconv.Itoa(id), "case", "first-letter")
				if name := s.namespaces[id]; name != "" {
					ns.Set("canonical", name).WithText(name)
				}
				nss.Add(ns)
			}
			query.Add(nss)
		case "extensions":
			exts := El("extensions")
			for _, name := range sortedKeys(s.extensions) {
				exts.Add(El("ext", "type", "other", "name", name, "version", s.extensions[name]))
			}
			query.Add(exts)
		}
	}
}

// paginate returns the items starting at from (inclusive) and the value to
// continue with, or "" when the end was reached.
func paginate(items []string, from string, limit int) ([]string, string) {
	start := sort.SearchStrings(items, from)
	if from == "" {
		start = 0
	}
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
		return items[start:end], items[end]
	}
	return items[start:end], ""
}

func (s *Server) listAllPages(c *call, query *Node) *Node {
	ns := c.intValue("apnamespace", 0)
	prefix := c.get("apprefix")
	var titles []string
	for _, t := range s.sortedTitles() {
		p := s.pages[t]
		if p.Namespace == ns && strings.HasPrefix(s.stripNamespace(t), prefix) {
			titles = append(titles, t)
		}
	}
	page, next := paginate(titles, c.get("apfrom"), c.intValue("aplimit", 10))
	list := El("allpages")
	for _, t := range page {
		p := s.pages[t]
		list.Add(El("p", "pageid", strconv.Itoa(p.ID), "ns", strconv.Itoa(p.Namespace), "title", t))
	}
	query.Add(list)
	if next == "" {
		return nil
	}
	return El("allpages", "apfrom", next)
}

func (s *Server) listSearch(c *call, query *Node) *Node {
	needle := strings.ToLower(c.get("srsearch"))
	var namespaces map[int]bool
	if nss := c.list("srnamespace"); len(nss) > 0 {
		namespaces = map[int]bool{}
		for _, ns := range nss {
			if id, err := strconv.Atoi(ns); err == nil {
				namespaces[id] = true
			}
		}
	}

	var hits []string
	for _, t := range s.sortedTitles() {
		p := s.pages[t]
		if namespaces == nil && p.Namespace != 0 {
			continue
		}
		if namespaces != nil && !namespaces[p.Namespace] {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(p.Content), needle) || strings.Contains(strings.ToLower(t), needle) {
			hits = append(hits, t)
		}
	}

	offset := c.intValue("sroffset", 0)
	limit := c.intValue("srlimit", 10)
	search := El("search")
	end := min(offset+limit, len(hits))
	for i := offset; i < end; i++ {
		p := s.pages[hits[i]]
		search.Add(El("p", "ns", strconv.Itoa(p.Namespace), "title", p.Title))
	}
	query.Add(El("searchinfo", "totalhits", strconv.Itoa(len(hits))), search)
	if end < len(hits) {
		return El("search", "sroffset", strconv.Itoa(end))
	}
	return nil
}

func (s *Server) listCategoryMembers(c *call, query *Node) *Node {
	category := c.get("cmtitle")
	var titles []string
	for _, t := range s.sortedTitles() {
		for _, cat := range s.pages[t].Categories {
			if cat == category {
				titles = append(titles, t)
				break
			}
		}
	}
	page, next := paginate(titles, c.get("cmcontinue"), c.intValue("cmlimit", 10))
	list := El("categorymembers")
	for _, t := range page {
		p := s.pages[t]
		list.Add(El("cm", "pageid", strconv.Itoa(p.ID), "ns", strconv.Itoa(p.Namespace), "title", t))
	}
	query.Add(list)
	if next == "" {
		return nil
	}
	return El("categorymembers", "cmcontinue", next)
}

func (s *Server) listBacklinks(c *call, query *Node) *Node {
	target := c.get("bltitle")
	filter := c.get("blfilterredir")
	var titles []string
	for _, t := range s.sortedTitles() {
		p := s.pages[t]
		linked := p.Redirect == target
		for _, l := range p.Links {
			if l == target {
				linked = true
			}
		}
		if !linked {
			continue
		}
		if (filter == "redirects" && p.Redirect == "") || (filter == "nonredirects" && p.Redirect != "") {
			continue
		}
		titles = append(titles, t)
	}
	page, next := paginate(titles, c.get("blcontinue"), c.intValue("bllimit", 10))
	list := El("backlinks")
	for _, t := range page {
		p := s.pages[t]
		bl := El("bl", "pageid", strconv.Itoa(p.ID), "ns", strconv.Itoa(p.Namespace), "title", t)
		if p.Redirect != "" {
			bl.Set("redirect", "")
		}
		list.Add(bl)
	}
	query.Add(list)
	if next == "" {
		return nil
	}
	return El("backlinks", "blcontinue", next)
}

func (s *Server) listAllUsers(c *call, query *Node) *Node {
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	page, next := paginate(names, c.get("aufrom"), c.intValue("aulimit", 10))
	list := El("allusers")
	for _, name := range page {
		list.Add(El("u", "userid", strconv.Itoa(s.users[name].ID), "name", name))
	}
	query.Add(list)
	if next == "" {
		return nil
	}
	return El("allusers", "aufrom", next)
}

func (s *Server) listUserContribs(c *call, query *Node) *Node {
	user := c.get("ucuser")
	var mine []Contribution
	for _, ct := range s.contribs {
		if ct.User == user {
			mine = append(mine, ct)
		}
	}
	start := c.intValue("uccontinue", 0)
	limit := c.intValue("uclimit", 10)
	end := min(start+limit, len(mine))
	list := El("usercontribs")
	for i := start; i < end; i++ {
		ct := mine[i]
		list.Add(El("item",
			"user", ct.User,
			"pageid", strconv.Itoa(ct.PageID),
			"revid", strconv.Itoa(ct.RevID),
			"title", ct.Title,
			"timestamp", ct.Timestamp,
			"comment", ct.Comment,
		))
	}
	query.Add(list)
	if end < len(mine) {
		return El("usercontribs", "uccontinue", strconv.Itoa(end))
	}
	return nil
}

func (s *Server) listDeletedRevs(c *call, query *Node) *Node {
	list := El("deletedrevs")
	for _, title := range c.list("titles") {
		p, ok := s.deleted[title]
		if !ok {
			continue
		}
		el := El("page", "title", title, "ns", strconv.Itoa(p.Namespace), "revisions", strconv.Itoa(p.Revisions))
		if token := s.tokenFor(c, "undelete"); token != "" {
			el.Set("token", token)
		}
		list.Add(el)
	}
	query.Add(list)
	return nil
}

func (s *Server) listUsers(c *call, query *Node) {
	list := El("users")
	for _, name := range c.list("ususers") {
		u, ok := s.users[name]
		if !ok {
			list.Add(El("user", "name", name, "missing", ""))
			continue
		}
		el := El("user", "userid", strconv.Itoa(u.ID), "name", name)
		if c.get("ustoken") == "userrights" {
			if token := s.tokenFor(c, "userrights"); token != "" {
				el.Set("userrightstoken", token)
			}
		}
		list.Add(el)
	}
	query.Add(list)
}

func (s *Server) export(c *call) {
	root := El("mediawiki", "xmlns", "http://www.mediawiki.org/xml/export-0.4/", "version", "0.4", "xml:lang", "en")
	root.Add(El("siteinfo").Add(El("sitename").WithText("FakeWiki"), El("generator").WithText("MediaWiki 1.16.0")))
	for _, title := range c.list("titles") {
		p, ok := s.pages[title]
		if !ok {
			continue
		}
		root.Add(El("page").Add(
			El("title").WithText(p.Title),
			El("id").WithText(strconv.Itoa(p.ID)),
			El("revision").Add(
				El("id").WithText(strconv.Itoa(p.RevID)),
				El("text", "xml:space", "preserve").WithText(p.Content),
			),
		))
	}
	if c.has("exportnowrap") {
		WriteXML(c.w, root)
		return
	}
	WriteXML(c.w, El("api").Add(El("query").Add(El("export").WithText(root.String()))))
}

func (s *Server) edit(c *call) {
	if !s.checkToken(c, "edit") {
		return
	}
	title := c.get("title")
	if invalidTitle(title) {
		WriteError(c.w, "invalidtitle", "Bad title \""+title+"\"")
		return
	}
	u := s.user(c)
	if c.get("assert") == "bot" && (u == nil || !u.inGroup("bot")) {
		WriteError(c.w, "assertbotfailed", "You do not have the bot right")
		return
	}
	existing, exists := s.pages[title]
	if exists && c.has("createonly") {
		WriteError(c.w, "articleexists", "The article you tried to create has been created already")
		return
	}
	if level := protectionOf(existing, "edit"); level != "" && (u == nil || !u.inGroup(level)) {
		WriteError(c.w, "protectedpage", "This page has been protected to prevent editing")
		return
	}

	text := c.get("text")
	result := El("edit", "result", "Success", "title", title)
	if exists && existing.Content == text {
		result.Set("pageid", strconv.Itoa(existing.ID)).Set("nochange", "")
		WriteXML(c.w, El("api").Add(result))
		return
	}
	oldRev := 0
	if exists {
		oldRev = existing.RevID
	} else {
		result.Set("new", "")
	}
	p := s.savePage(title, text)
	result.Set("pageid", strconv.Itoa(p.ID)).
		Set("oldrevid", strconv.Itoa(oldRev)).
		Set("newrevid", strconv.Itoa(p.RevID))
	s.recordContribution(c, p, c.get("summary"))
	WriteXML(c.w, El("api").Add(result))
}

func protectionOf(p *Page, action string) string {
	if p == nil || p.Protection == nil {
		return ""
	}
	return p.Protection[action]
}

func (s *Server) recordContribution(c *call, p *Page, comment string) {
	name := "127.0.0.1"
	if u := s.user(c); u != nil {
		name = u.Name
	}
	s.contribs = append(s.contribs, Contribution{
		User:      name,
		Title:     p.Title,
		RevID:     p.RevID,
		PageID:    p.ID,
		Timestamp: s.timestamp(),
		Comment:   comment,
	})
}

func (s *Server) delete(c *call) {
	if !s.checkToken(c, "delete") {
		return
	}
	title := c.get("title")
	p, ok := s.pages[title]
	if !ok {
		WriteError(c.w, "missingtitle", "The page you requested doesn't exist")
		return
	}
	delete(s.pages, title)
	if prev, ok := s.deleted[title]; ok {
		p.Revisions += prev.Revisions
	}
	s.deleted[title] = p
	WriteXML(c.w, El("api").Add(El("delete", "title", title, "reason", c.get("reason"))))
}

func (s *Server) undelete(c *call) {
	if !s.checkToken(c, "undelete") {
		return
	}
	title := c.get("title")
	p, ok := s.deleted[title]
	if !ok {
		WriteError(c.w, "cantundelete", "Couldn't undelete: the revisions may not exist")
		return
	}
	delete(s.deleted, title)
	s.pages[title] = p
	WriteXML(c.w, El("api").Add(El("undelete",
		"title", title,
		"revisions", strconv.Itoa(p.Revisions),
		"fileversions", "0",
		"reason", c.get("reason"),
	)))
}

func (s *Server) move(c *call) {
	if !s.checkToken(c, "move") {
		return
	}
	from, to := c.get("from"), c.get("to")
	p, ok := s.pages[from]
	if !ok {
		WriteError(c.w, "missingtitle", "The page you requested doesn't exist")
		return
	}
	if _, exists := s.pages[to]; exists {
		WriteError(c.w, "articleexists", "A page of that name already exists")
		return
	}
	delete(s.pages, from)
	p.Title = to
	p.Namespace = s.namespaceOf(to)
	s.pages[to] = p
	result := El("move", "from", from, "to", to, "reason", c.get("reason"))
	if !c.has("noredirect") {
		s.savePage(from, "#REDIRECT [["+to+"]]")
		result.Set("redirectcreated", "")
	}
	WriteXML(c.w, El("api").Add(result))
}

func (s *Server) protect(c *call) {
	if !s.checkToken(c, "protect") {
		return
	}
	title := c.get("title")
	p, ok := s.pages[title]
	if !ok {
		WriteError(c.w, "missingtitle", "The page you requested doesn't exist")
		return
	}
	protections := c.list("protections")
	expiries := c.list("expiry")
	if len(expiries) != 1 && len(expiries) != len(protections) {
		WriteError(c.w, "toofewexpiries", fmt.Sprintf("%d expiry timestamps were provided where %d were needed", len(expiries), len(protections)))
		return
	}
	if p.Protection == nil {
		p.Protection = map[string]string{}
	}
	list := El("protections")
	for i, prot := range protections {
		action, group, found := strings.Cut(prot, "=")
		if !found {
			WriteError(c.w, "protect-invalidaction", "Invalid protection \""+prot+"\"")
			return
		}
		expiry := expiries[0]
		if len(expiries) > 1 {
			expiry = expiries[i]
		}
		if expiry == "never" {
			expiry = "infinite"
		}
		p.Protection[action] = group
		list.Add(El("pr", action, group, "expiry", expiry))
	}
	result := El("protect", "title", title, "reason", c.get("reason"))
	if c.has("cascade") {
		result.Set("cascade", "")
	}
	WriteXML(c.w, El("api").Add(result.Add(list)))
}

func (s *Server) upload(c *call, files map[string][]byte) {
	if s.user(c) == nil {
		WriteError(c.w, "permissiondenied", "You don't have permission to upload this file")
		return
	}
	if !s.checkToken(c, "edit") {
		return
	}
	filename := c.get("filename")
	data, hasFile := files["file"]
	if !hasFile {
		switch {
		case c.get("url") != "":
			data = []byte("fetched from " + c.get("url"))
		case c.get("sessionkey") != "":
			data = []byte("stashed " + c.get("sessionkey"))
		default:
			WriteError(c.w, "missingparam", "One of the parameters file, url, sessionkey is required")
			return
		}
	}
	if filename == "" {
		WriteError(c.w, "missingparam", "The filename parameter must be set")
		return
	}
	if _, exists := s.files[filename]; exists && !c.has("ignorewarnings") {
		WriteXML(c.w, El("api").Add(El("upload", "result", "Warning").Add(El("warnings", "exists", filename))))
		return
	}
	s.files[filename] = data
	p := s.savePage("File:"+filename, c.get("text"))
	s.recordContribution(c, p, c.get("comment"))
	WriteXML(c.w, El("api").Add(El("upload", "result", "Success", "filename", filename).Add(
		El("imageinfo", "size", strconv.Itoa(len(data)), "url", s.URL+"/files/"+filename),
	)))
}

// dump is the part of an export document read by import.
type dump struct {
	Pages []struct {
		Title string `xml:"title"`
		Text  string `xml:"revision>text"`
	} `xml:"page"`
}

func (s *Server) importXML(c *call, files map[string][]byte) {
	if !s.checkToken(c, "import") {
		return
	}
	data, ok := files["xml"]
	if !ok {
		WriteError(c.w, "nofile", "You didn't upload a file")
		return
	}
	var d dump
	if err := xml.Unmarshal(data, &d); err != nil {
		WriteError(c.w, "import-failed", "Import failed: "+err.Error())
		return
	}
	result := El("import")
	for _, pg := range d.Pages {
		p := s.savePage(pg.Title, pg.Text)
		result.Add(El("page", "title", p.Title, "ns", strconv.Itoa(p.Namespace), "revisions", "1"))
	}
	WriteXML(c.w, El("api").Add(result))
}

func (s *Server) emailUser(c *call) {
	if !s.checkToken(c, "email") {
		return
	}
	target, ok := s.users[c.get("target")]
	if !ok || target.Email == "" {
		WriteError(c.w, "noemail", "This user has not specified a valid e-mail address")
		return
	}
	WriteXML(c.w, El("api").Add(El("emailuser", "result", "Success")))
}

func (s *Server) tokens(c *call) {
	el := El("tokens")
	for _, kind := range c.list("type") {
		if kind == "options" && s.user(c) != nil {
			el.Set("optionstoken", c.sess.csrf)
		} else if token := s.tokenFor(c, kind); token != "" && kind != "options" {
			el.Set(kind+"token", token)
		}
	}
	WriteXML(c.w, El("api").Add(el))
}

func (s *Server) options(c *call) {
	u := s.user(c)
	if u == nil {
		WriteError(c.w, "notloggedin", "Anonymous users cannot change preferences")
		return
	}
	if c.get("token") != c.sess.csrf {
		WriteError(c.w, "badtoken", "Invalid token")
		return
	}
	if c.has("reset") {
		u.Options = map[string]string{}
	}
	for _, change := range c.list("change") {
		k, v, _ := strings.Cut(change, "=")
		u.Options[k] = v
	}
	if name := c.get("optionname"); name != "" {
		u.Options[name] = c.get("optionvalue")
	}
	WriteXML(c.w, El("api", "options", "success"))
}

func (s *Server) userrights(c *call) {
	if !s.checkToken(c, "userrights") {
		return
	}
	u, ok := s.users[c.get("user")]
	if !ok {
		WriteError(c.w, "nosuchuser", "The user you specified doesn't exist")
		return
	}
	added, removed := El("added"), El("removed")
	for _, g := range c.list("add") {
		if !u.inGroup(g) {
			u.Groups = append(u.Groups, g)
			added.Add(El("group").WithText(g))
		}
	}
	for _, g := range c.list("remove") {
		for i, have := range u.Groups {
			if have == g {
				u.Groups = append(u.Groups[:i], u.Groups[i+1:]...)
				removed.Add(El("group").WithText(g))
				break
			}
		}
	}
	WriteXML(c.w, El("api").Add(El("userrights", "user", u.Name, "userid", strconv.Itoa(u.ID)).Add(added, removed)))
}

// render turns wikitext into the HTML shape MediaWiki produces, enough for
// link and edit section rewriting.
func (s *Server) render(title, text string) string {
	body := linkRe.ReplaceAllStringFunc(text, func(m string) string {
		target := strings.TrimSpace(linkRe.FindStringSubmatch(m)[1])
		if strings.HasPrefix(target, "File:") {
			return `<img alt="` + target + `" src="/images/` + strings.TrimPrefix(target, "File:") + `" />`
		}
		if strings.HasPrefix(target, "Category:") {
			return ""
		}
		return `<a href="/wiki/` + strings.ReplaceAll(target, " ", "_") + `" title="` + target + `">` + target + `</a>`
	})
	return `<h2><span class="editsection">[<a href="/index.php?title=` + strings.ReplaceAll(title, " ", "_") + `&amp;action=edit&amp;section=1" title="Edit section">edit</a>]</span> <span class="mw-headline">` + title + `</span></h2>` +
		"\n<p>" + strings.TrimSpace(body) + "</p>\n<!-- \nNewPP limit report\n-->\n"
}

func (s *Server) parse(c *call) {
	result := El("parse")
	switch {
	case c.has("page"):
		title := c.get("page")
		p, ok := s.pages[title]
		if !ok {
			// old wikis answer missing pages with an empty parse
			result.Set("title", title).Set("revid", "0").Add(El("text", "xml:space", "preserve"))
			break
		}
		result.Set("title", title).Set("revid", strconv.Itoa(p.RevID))
		result.Add(El("text", "xml:space", "preserve").WithText(s.render(title, p.Content)))
	default:
		result.Set("title", "API").Set("revid", "0")
		text := c.get("text")
		if strings.HasPrefix(text, "{{#ask:") {
			text = s.askList(strings.TrimSuffix(strings.TrimPrefix(text, "{{#ask:"), "}}"))
		}
		result.Add(El("text", "xml:space", "preserve").WithText("<p>" + text + "</p>"))
	}
	WriteXML(c.w, El("api").Add(result))
}

// askList answers an #ask query by listing the members of the category in
// the first condition.
func (s *Server) askList(query string) string {
	cond, _, _ := strings.Cut(query, "|")
	cond = strings.TrimSuffix(strings.TrimPrefix(cond, "[["), "]]")
	var titles []string
	for _, t := range s.sortedTitles() {
		for _, cat := range s.pages[t].Categories {
			if cat == cond {
				titles = append(titles, t)
			}
		}
	}
	return strings.Join(titles, ", ")
}

func (s *Server) ask(c *call) {
	if _, ok := s.extensions["Semantic MediaWiki"]; !ok {
		WriteError(c.w, "unknown_action", "Unrecognized value for parameter 'action': ask")
		return
	}
	results := El("results")
	for _, title := range strings.Split(s.askList(c.get("query")), ", ") {
		if title != "" {
			results.Add(El(strings.ReplaceAll(title, " ", "_"), "fulltext", title))
		}
	}
	WriteXML(c.w, El("api").Add(El("query").Add(results)))
}

func (s *Server) review(c *call) {
	if !s.checkToken(c, "edit") {
		return
	}
	WriteXML(c.w, El("api").Add(El("review", "revid", c.get("revid"), "result", "Success")))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
