package wiki

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()
	path := writeTemp(t, "Kitten.png", "meow")

	_, err := g.Upload(ctx, path, UploadOptions{})
	if !IsAPIError(err, "permissiondenied") {
		t.Errorf("anonymous Upload() error = %v, want permissiondenied", err)
	}

	loginAs(t, g, "nonadmin", "sekrit")
	doc, err := g.Upload(ctx, path, UploadOptions{Text: "A kitten"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if got := doc.Child("upload").AttrValue("result"); got != "Success" {
		t.Errorf("result = %q, want Success", got)
	}
	if data, ok := srv.File("Kitten.png"); !ok || string(data) != "meow" {
		t.Errorf("stored file = %q, %v", data, ok)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Method != "POST" || string(last.Files["file"]) != "meow" {
		t.Errorf("upload request = %s with files %v", last.Method, last.Files)
	}
	if last.Form.Get("comment") != DefaultUploadComment {
		t.Errorf("comment = %q", last.Form.Get("comment"))
	}
	if last.Form.Get("filename") != "Kitten.png" {
		t.Errorf("filename = %q", last.Form.Get("filename"))
	}

	doc, err = g.Upload(ctx, path, UploadOptions{})
	if err != nil {
		t.Fatalf("second Upload() error = %v", err)
	}
	if got := doc.Child("upload").AttrValue("result"); got != "Warning" {
		t.Errorf("duplicate result = %q, want Warning", got)
	}

	if _, err := g.Upload(ctx, path, UploadOptions{IgnoreWarnings: true, Filename: "Kitten.png"}); err != nil {
		t.Errorf("forced Upload() error = %v", err)
	}
}

func TestUploadFromURL(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	loginAs(t, g, "nonadmin", "sekrit")

	if _, err := g.Upload(context.Background(), "", UploadOptions{URL: "http://example.org/images/Remote.jpg"}); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if _, ok := srv.File("Remote.jpg"); !ok {
		t.Error("file from URL not stored under its base name")
	}
}

func TestUploadValidation(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	_, err := g.Upload(context.Background(), "", UploadOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error = %v, want ValidationError", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("sent %d requests, want 0", n)
	}
}

func TestImages(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	for _, title := range []string{"Foopage", "Redirect"} {
		got, ok, err := g.Images(ctx, ByTitle(title), 0)
		if err != nil || !ok {
			t.Fatalf("Images(%q) = %v, %v", title, ok, err)
		}
		if !reflect.DeepEqual(got, []string{"File:Sample.png"}) {
			t.Errorf("Images(%q) = %v", title, got)
		}
	}

	if _, ok, err := g.Images(ctx, ByTitle("Nonexistent"), 0); err != nil || ok {
		t.Errorf("Images() of missing page = %v, %v", ok, err)
	}
}

func TestImageInfo(t *testing.T) {
	g, srv, _ := newTestGateway(t, nil)
	ctx := context.Background()

	info, ok, err := g.ImageInfo(ctx, ByTitle("Sample.png"), []string{"url", "size"})
	if err != nil || !ok {
		t.Fatalf("ImageInfo() = %v, %v", ok, err)
	}
	if info["size"] != "3" {
		t.Errorf("size = %q, want 3", info["size"])
	}
	if info["url"] != srv.URL+"/files/Sample.png" {
		t.Errorf("url = %q", info["url"])
	}

	if _, ok, err := g.ImageInfo(ctx, ByTitle("Missing.png"), nil); err != nil || ok {
		t.Errorf("ImageInfo() of missing file = %v, %v", ok, err)
	}
}

func TestDownload(t *testing.T) {
	g, _, _ := newTestGateway(t, nil)
	ctx := context.Background()

	data, ok, err := g.Download(ctx, "Sample.png")
	if err != nil || !ok {
		t.Fatalf("Download() = %v, %v", ok, err)
	}
	if string(data) != "PNG" {
		t.Errorf("Download() = %q, want PNG", data)
	}

	if _, ok, err := g.Download(ctx, "Missing.png"); err != nil || ok {
		t.Errorf("Download() of missing file = %v, %v", ok, err)
	}
}

func TestRedirectTarget(t *testing.T) {
	page := &Element{Name: "page", Attrs: []Attr{{Name: "pageid", Value: "7"}}}

	if id, err := redirectTarget(page, ByTitle("Redirect")); err != nil || id != 7 {
		t.Errorf("redirectTarget() = %d, %v, want 7", id, err)
	}
	if _, err := redirectTarget(page, ByID(7)); !IsTransportError(err) {
		t.Errorf("loop error = %v, want TransportError", err)
	}
	if _, err := redirectTarget(&Element{Name: "page"}, ByTitle("X")); err == nil {
		t.Error("page without id accepted")
	}
}
