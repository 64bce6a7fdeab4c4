package wiki

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValueKind distinguishes the three kinds of request parameters.
type ValueKind int

const (
	// TextValue is a plain string parameter.
	TextValue ValueKind = iota
	// FlagValue is a boolean parameter sent with an empty value; MediaWiki
	// only checks for its presence.
	FlagValue
	// FileValue is an upload. Its presence forces a multipart POST.
	FileValue
)

// File is an upload body. Open is called once per attempt so a request can
// be re-sent after a 503.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath returns a File reading from a local path.
func FileFromPath(path string) *File {
	return &File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes returns a File serving data from memory.
func FileFromBytes(name string, data []byte) *File {
	return &File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

type param struct {
	key  string
	kind ValueKind
	text string
	file *File
}

// Params is an ordered set of API parameters. Setting an existing key keeps
// its original position. All methods are safe on a nil receiver for reads.
type Params struct {
	entries []param
}

// NewParams builds Params from alternating key/value pairs.
func NewParams(kv ...string) *Params {
	p := &Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

func (p *Params) put(e param) *Params {
	for i := range p.entries {
		if p.entries[i].key == e.key {
			p.entries[i] = e
			return p
		}
	}
	p.entries = append(p.entries, e)
	return p
}

// Set stores a text value.
func (p *Params) Set(key, value string) *Params {
	return p.put(param{key: key, kind: TextValue, text: value})
}

// SetInt stores an integer as text.
func (p *Params) SetInt(key string, value int) *Params {
	return p.Set(key, strconv.Itoa(value))
}

// SetList stores values joined with "|", the MediaWiki multi-value separator.
func (p *Params) SetList(key string, values []string) *Params {
	return p.Set(key, strings.Join(values, "|"))
}

// SetFlag stores a presence-only parameter.
func (p *Params) SetFlag(key string) *Params {
	return p.put(param{key: key, kind: FlagValue})
}

// SetFile stores an upload.
func (p *Params) SetFile(key string, f *File) *Params {
	return p.put(param{key: key, kind: FileValue, file: f})
}

// Get returns the text of key. Flags report ok with an empty string.
func (p *Params) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, e := range p.entries {
		if e.key == key {
			if e.kind == FileValue {
				return e.file.Name, true
			}
			return e.text, true
		}
	}
	return "", false
}

// Value returns the text of key or "".
func (p *Params) Value(key string) string {
	v, _ := p.Get(key)
	return v
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}

// Kind returns the kind of key. The second result is false if absent.
func (p *Params) Kind(key string) (ValueKind, bool) {
	if p == nil {
		return 0, false
	}
	for _, e := range p.entries {
		if e.key == key {
			return e.kind, true
		}
	}
	return 0, false
}

// Del removes key.
func (p *Params) Del(key string) *Params {
	for i := range p.entries {
		if p.entries[i].key == key {
			p.entries = append(p.entries[:i], p.entries[i+1:]...)
			break
		}
	}
	return p
}

// Merge copies every entry of other into p, overriding existing keys.
func (p *Params) Merge(other *Params) *Params {
	if other == nil {
		return p
	}
	for _, e := range other.entries {
		p.put(e)
	}
	return p
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	c := &Params{}
	if p != nil {
		c.entries = append(c.entries, p.entries...)
	}
	return c
}

// Len returns the number of parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Keys returns the parameter names in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, len(p.entries))
	for _, e := range p.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// HasFile reports whether any parameter is an upload.
func (p *Params) HasFile() bool {
	if p == nil {
		return false
	}
	for _, e := range p.entries {
		if e.kind == FileValue {
			return true
		}
	}
	return false
}

// Encode renders text and flag values as an URL-encoded form in insertion
// order. Files are skipped.
func (p *Params) Encode() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	for _, e := range p.entries {
		if e.kind == FileValue {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(e.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(e.text))
	}
	return sb.String()
}

// Values converts text and flag values to url.Values.
func (p *Params) Values() url.Values {
	v := url.Values{}
	if p == nil {
		return v
	}
	for _, e := range p.entries {
		if e.kind != FileValue {
			v.Set(e.key, e.text)
		}
	}
	return v
}

// writeMultipart encodes every parameter into w, opening files as needed.
func (p *Params) writeMultipart(w *multipart.Writer) error {
	for _, e := range p.entries {
		if e.kind != FileValue {
			if err := w.WriteField(e.key, e.text); err != nil {
				return err
			}
			continue
		}
		if e.file == nil || e.file.Open == nil {
			return fmt.Errorf("file parameter %q has no content", e.key)
		}
		part, err := w.CreateFormFile(e.key, e.file.Name)
		if err != nil {
			return err
		}
		rc, err := e.file.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", e.file.Name, err)
		}
		_, err = io.Copy(part, rc)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", e.file.Name, err)
		}
	}
	return nil
}

// String is Encode, with file names shown for debugging.
func (p *Params) String() string {
	if p == nil {
		return ""
	}
	s := p.Encode()
	for _, e := range p.entries {
		if e.kind == FileValue {
			s += fmt.Sprintf(" [%s=@%s]", e.key, e.file.Name)
		}
	}
	return s
}
