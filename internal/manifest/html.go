package manifest

import (
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// MetaContent scans an HTML document for a <meta name=...> tag and returns
// its content attribute. The second return value reports whether the tag was
// found.
func MetaContent(r io.Reader, name string) (string, bool) {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "meta" {
				continue
			}
			var metaName, content string
			for _, attr := range token.Attr {
				switch attr.Key {
				case "name":
					metaName = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if strings.EqualFold(metaName, name) {
				return content, true
			}
		}
	}
}

// DocumentVersion reads the application version from meta tags in an HTML
// document: the version tag first, then build-time. It satisfies the update
// manager's version source contract.
type DocumentVersion struct {
	// Path is the HTML document, typically the site's index.html.
	Path string
}

// CurrentVersion returns the version meta content, the build-time meta
// content, or "" when the document is unreadable or carries neither tag.
func (d DocumentVersion) CurrentVersion() string {
	f, err := os.Open(d.Path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	if v, ok := MetaContent(f, "version"); ok && v != "" {
		return v
	}
	// Rewind for a second scan; meta order in the document is not fixed.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ""
	}
	if v, ok := MetaContent(f, "build-time"); ok && v != "" {
		return v
	}
	return ""
}
