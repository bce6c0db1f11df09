package upload

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildForm(t *testing.T, parts map[string][]string) *multipart.Form {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, names := range parts {
		for _, name := range names {
			fw, err := w.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = fw.Write([]byte("content of " + name))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm
}

func TestSaveSingleFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 0)
	require.NoError(t, err)

	files, err := store.Save(buildForm(t, map[string][]string{"files": {"Poster.PNG"}}))
	require.NoError(t, err)
	require.Len(t, files, 1)

	path := files[ImageKey]
	require.True(t, strings.HasPrefix(path, PublicPrefix), path)
	require.True(t, strings.HasSuffix(path, ".png"), path)

	local, ok := store.LocalPath(path)
	require.True(t, ok)
	require.Equal(t, dir, filepath.Dir(local))

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, "content of Poster.PNG", string(data))
}

func TestSaveMultipleFiles(t *testing.T) {
	store, err := NewStore(t.TempDir(), 10)
	require.NoError(t, err)

	files, err := store.Save(buildForm(t, map[string][]string{"files": {"a.png", "b.pdf", "c.txt"}}))
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Contains(t, files, ImageKey)
	require.Contains(t, files, "attachment_1")
	require.Contains(t, files, "attachment_2")
}

func TestSaveNoFiles(t *testing.T) {
	store, err := NewStore(t.TempDir(), 10)
	require.NoError(t, err)

	files, err := store.Save(nil)
	require.NoError(t, err)
	require.Empty(t, files)
}

func TestSaveTooManyFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 2)
	require.NoError(t, err)

	_, err = store.Save(buildForm(t, map[string][]string{"files": {"a", "b", "c"}}))
	require.ErrorIs(t, err, ErrTooManyFiles)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDiscard(t *testing.T) {
	store, err := NewStore(t.TempDir(), 10)
	require.NoError(t, err)

	files, err := store.Save(buildForm(t, map[string][]string{"image": {"a.jpg"}}))
	require.NoError(t, err)

	local, ok := store.LocalPath(files[ImageKey])
	require.True(t, ok)
	_, err = os.Stat(local)
	require.NoError(t, err)

	store.Discard(files)
	_, err = os.Stat(local)
	require.True(t, os.IsNotExist(err))

	// Second discard is a no-op.
	store.Discard(files)
}

func TestLocalPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 10)
	require.NoError(t, err)

	tests := []struct {
		stored string
		want   string
		ok     bool
	}{
		{PublicPrefix + "a.png", filepath.Join(dir, "a.png"), true},
		{"public/temp/a.png", "", false},
		{PublicPrefix, "", false},
		{PublicPrefix + "../etc/passwd", "", false},
		{PublicPrefix + `..\x`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			got, ok := store.LocalPath(tt.stored)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}
