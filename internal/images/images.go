// Package images resolves the image references attached to a claim into data URLs.
package images

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"claim-intake-service/internal/faults"
)

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".heic": "image/heic",
}

// MIMEType returns the image type for ref's extension.
func MIMEType(ref string) (string, bool) {
	mime, ok := mimeTypes[strings.ToLower(filepath.Ext(ref))]
	return mime, ok
}

type Image struct {
	Ref     string
	MIME    string
	DataURL string
}

// Resolver reads references as paths relative to Root.
type Resolver struct {
	Root string
}

func NewResolver(root string) *Resolver {
	return &Resolver{Root: root}
}

// Resolve loads ref. Every failure is a permanent UnsupportedImage error.
func (r *Resolver) Resolve(ref string) (Image, error) {
	mime, ok := MIMEType(ref)
	if !ok {
		return Image{}, unsupported(ref, fmt.Errorf("extension %q is not a supported image type", filepath.Ext(ref)))
	}
	if !filepath.IsLocal(ref) {
		return Image{}, unsupported(ref, fmt.Errorf("reference escapes the image root"))
	}
	data, err := os.ReadFile(filepath.Join(r.Root, ref))
	if err != nil {
		return Image{}, unsupported(ref, err)
	}
	return Image{
		Ref:     ref,
		MIME:    mime,
		DataURL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func (r *Resolver) ResolveAll(refs []string) ([]Image, error) {
	out := make([]Image, 0, len(refs))
	for _, ref := range refs {
		img, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

func unsupported(ref string, cause error) error {
	return faults.Permanent(faults.TypeUnsupportedImage, fmt.Sprintf("image %q cannot be used", ref), cause)
}
