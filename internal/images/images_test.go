package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claim-intake-service/internal/faults"
)

func TestMIMEType(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"front.png", "image/png", true},
		{"side.JPG", "image/jpeg", true},
		{"a/b/c.jpeg", "image/jpeg", true},
		{"x.webp", "image/webp", true},
		{"phone.HEIC", "image/heic", true},
		{"scan.gif", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, ok := MIMEType(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "claims"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "claims", "bike.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))

	img, err := NewResolver(root).Resolve("claims/bike.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, "data:image/png;base64,iVBORw==", img.DataURL)
}

func TestResolver_Failures(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.pdf"), []byte("%PDF"), 0o644))

	for _, ref := range []string{"doc.pdf", "missing.jpg", "../outside.png", "/etc/passwd.png"} {
		t.Run(ref, func(t *testing.T) {
			_, err := NewResolver(root).Resolve(ref)
			require.Error(t, err)
			assert.True(t, faults.IsPermanent(err))
			assert.Equal(t, faults.TypeUnsupportedImage, faults.Kind(err))
		})
	}
}

func TestResolver_ResolveAll(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.webp"), []byte("a"), 0o644))

	imgs, err := NewResolver(root).ResolveAll([]string{"a.webp"})
	require.NoError(t, err)
	assert.Len(t, imgs, 1)

	_, err = NewResolver(root).ResolveAll([]string{"a.webp", "b.webp"})
	assert.Error(t, err)
}
