package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDir_DecryptDir(t *testing.T) {
	svc, store := newTestService(t, false)
	ctx := context.Background()
	root := t.TempDir()

	files := map[string]string{
		"a.txt":          "alpha",
		"sub/b.md":       "bravo",
		"sub/deep/c.log": "charlie",
	}
	for rel, body := range files {
		writeFile(t, filepath.Join(root, rel), []byte(body))
	}
	writeFile(t, filepath.Join(root, ".git", "HEAD"), []byte("ref: main"))

	enc := svc.EncryptDir(ctx, root)
	require.NoError(t, enc.Err())
	assert.Len(t, enc.Succeeded, 3)
	assert.FileExists(t, filepath.Join(root, ".git", "HEAD"))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// a second pass finds only artifacts
	again := svc.EncryptDir(ctx, root)
	require.NoError(t, again.Err())
	assert.Empty(t, again.Succeeded)
	assert.Len(t, again.Skipped, 3)

	dec := svc.DecryptDir(ctx, root, "")
	require.NoError(t, dec.Err())
	assert.Len(t, dec.Succeeded, 3)

	for rel, body := range files {
		got, err := os.ReadFile(filepath.Join(root, rel))
		require.NoError(t, err)
		assert.Equal(t, body, string(got))
	}
}

func TestDecryptDir_MirrorsIntoOutput(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.txt"), []byte("top"))
	writeFile(t, filepath.Join(root, "x/y/leaf.txt"), []byte("leaf"))

	require.NoError(t, svc.EncryptDir(ctx, root).Err())

	out := filepath.Join(t.TempDir(), "restored")
	dec := svc.DecryptDir(ctx, root, out)
	require.NoError(t, dec.Err())

	got, err := os.ReadFile(filepath.Join(out, "x/y/leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(got))
	assert.FileExists(t, filepath.Join(out, "top.txt"))
}

func TestEncryptDir_ContinuesPastFailures(t *testing.T) {
	svc, _ := newTestService(t, true)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(root, "a.md"), []byte("b"))
	writeFile(t, filepath.Join(root, "z.txt"), []byte("z"))

	// a.md and a.txt share a.crypt; the second one to arrive is refused
	rep := svc.EncryptDir(ctx, root)
	assert.Len(t, rep.Succeeded, 2)
	require.Len(t, rep.Failed, 1)
	assert.ErrorIs(t, rep.Err(), common.ErrIO)
}

func TestDecryptDir_ReportsMissingRecords(t *testing.T) {
	svc, store := newTestService(t, false)
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.txt"), []byte("1"))
	writeFile(t, filepath.Join(root, "two.txt"), []byte("2"))

	require.NoError(t, svc.EncryptDir(ctx, root).Err())
	require.NoError(t, store.DeleteAll(ctx))

	rep := svc.DecryptDir(ctx, root, "")
	assert.Empty(t, rep.Succeeded)
	assert.Len(t, rep.Failed, 2)
	assert.ErrorIs(t, rep.Err(), common.ErrRecordNotFound)
}

func TestEncryptDir_StopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t, true)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := svc.EncryptDir(ctx, root)
	assert.Empty(t, rep.Succeeded)
	assert.ErrorIs(t, rep.Err(), context.Canceled)
}

func TestEncryptDecrypt_Dispatch(t *testing.T) {
	svc, _ := newTestService(t, false)
	ctx := context.Background()
	root := t.TempDir()
	src := filepath.Join(root, "single.txt")
	writeFile(t, src, []byte("one"))

	rep, err := svc.Encrypt(ctx, src)
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	require.Len(t, rep.Succeeded, 1)

	rep, err = svc.Decrypt(ctx, root, "")
	require.NoError(t, err)
	require.NoError(t, rep.Err())
	assert.FileExists(t, src)

	_, err = svc.Encrypt(ctx, filepath.Join(root, "nope"))
	assert.ErrorIs(t, err, common.ErrIO)
}

func TestScenario_DirectoryOfFive(t *testing.T) {
	svc, store := newTestService(t, false)
	ctx := context.Background()
	root := t.TempDir()

	originals := map[string][]byte{
		"one.txt":       []byte("first"),
		"two.bin":       {0x00, 0x01, 0x02},
		"three.md":      []byte("# third"),
		"nested/four.c": []byte("int main(){}"),
		"nested/five":   []byte("no extension"),
	}
	for rel, body := range originals {
		writeFile(t, filepath.Join(root, rel), body)
	}

	enc := svc.EncryptDir(ctx, root)
	require.NoError(t, enc.Err())
	require.Len(t, enc.Succeeded, 5)
	for _, o := range enc.Succeeded {
		assert.FileExists(t, o.Output)
	}

	recs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 5)

	dec := svc.DecryptDir(ctx, root, "")
	require.NoError(t, dec.Err())
	for rel, body := range originals {
		got, err := os.ReadFile(filepath.Join(root, rel))
		require.NoError(t, err)
		assert.Equal(t, body, got, rel)
	}
}
