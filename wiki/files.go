package wiki

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
)

// Upload uploads a file. filePath may be empty when opts.URL or
// opts.SessionKey is set. The target name defaults to the base name of the
// source.
func (g *Gateway) Upload(ctx context.Context, filePath string, opts UploadOptions) (*Element, error) {
	if filePath == "" && opts.URL == "" && opts.SessionKey == "" {
		return nil, &ValidationError{Field: "file", Message: "one of a file, url or sessionkey must be given"}
	}

	filename := opts.Filename
	switch {
	case filename != "":
	case filePath != "":
		filename = filepath.Base(filePath)
	case opts.URL != "":
		filename = path.Base(opts.URL)
	}
	comment := opts.Comment
	if comment == "" {
		comment = DefaultUploadComment
	}

	token, err := g.GetToken(ctx, TokenEdit, filename)
	if err != nil {
		return nil, err
	}

	params := NewParams("action", "upload", "comment", comment)
	if filename != "" {
		params.Set("filename", filename)
	}
	if opts.Text != "" {
		params.Set("text", opts.Text)
	}
	if filePath != "" {
		file := FileFromPath(filePath)
		file.Name = filename
		params.SetFile("file", file)
	}
	if opts.URL != "" {
		params.Set("url", opts.URL)
	}
	if opts.SessionKey != "" {
		params.Set("sessionkey", opts.SessionKey)
	}
	if opts.Watch {
		params.SetFlag("watch")
	}
	if opts.IgnoreWarnings {
		params.SetFlag("ignorewarnings")
	}
	params.Set("token", token)

	return g.SendRequest(ctx, params)
}

// Images returns the titles of the images used on a page.
func (g *Gateway) Images(ctx context.Context, ref PageRef, limit int) ([]string, bool, error) {
	if limit <= 0 {
		limit = DefaultImagesLimit
	}
	params := NewParams(
		"action", "query",
		"prop", "images",
		"redirects", "true",
	).SetInt("imlimit", limit)
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
		return g.Images(ctx, ByID(id), limit)
	}

	var titles []string
	for _, im := range page.PathAll("images/im") {
		titles = append(titles, im.AttrValue("title"))
	}
	return titles, true, nil
}

// ImageInfo returns the attributes of the latest revision of a file, e.g.
// url, size or sha1 depending on props. A title ref is looked up in the File
// namespace.
func (g *Gateway) ImageInfo(ctx context.Context, ref PageRef, props []string) (map[string]string, bool, error) {
	params := NewParams(
		"action", "query",
		"prop", "imageinfo",
		"redirects", "true",
	)
	if len(props) > 0 {
		params.SetList("iiprop", props)
	}
	if ref.PageID > 0 {
		params.SetInt("pageids", ref.PageID)
	} else {
		params.Set("titles", "File:"+ref.Title)
	}

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
		return g.ImageInfo(ctx, ByID(id), props)
	}

	ii := page.Path("imageinfo/ii")
	if ii == nil {
		return nil, false, nil
	}
	return ii.Attributes(), true, nil
}

// Download fetches the content of a file. ok is false when the file does
// not exist.
func (g *Gateway) Download(ctx context.Context, fileName string) ([]byte, bool, error) {
	info, ok, err := g.ImageInfo(ctx, ByTitle(fileName), []string{"url"})
	if err != nil || !ok {
		return nil, false, err
	}
	target := info["url"]
	if target == "" {
		return nil, false, nil
	}

	header := http.Header{}
	header.Set("User-Agent", g.headers.Get("User-Agent"))
	header.Set("Accept-Encoding", "gzip")
	resp, err := g.transport.get(ctx, target, header)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, &TransportError{Op: "download", StatusCode: resp.StatusCode, Body: string(resp.Body), Err: fmt.Errorf("cannot fetch %s", target)}
	}
	return resp.Body, true, nil
}

// redirectTarget returns the page id a redirect resolved to.
func redirectTarget(page *Element, ref PageRef) (int, error) {
	id, err := strconv.Atoi(page.AttrValue("pageid"))
	if err != nil {
		return 0, &TransportError{Op: "redirect", Err: fmt.Errorf("redirect target of %s has no page id", ref)}
	}
	if id == ref.PageID {
		return 0, &TransportError{Op: "redirect", Err: fmt.Errorf("redirect loop on page %d", id)}
	}
	return id, nil
}
