package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree builds:
//
//	a.txt
//	z.log
//	sub/b.txt
//	sub/deep/c.txt
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("X"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "z.log"), []byte("log"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("Y"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "c.txt"), []byte("Z"), 0o644))
	return root
}

func collect(t *testing.T, w *Walker) []string {
	t.Helper()
	var names []string
	for {
		rec, err := w.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		names = append(names, rec.Name)
	}
	return names
}

func TestWalker_DepthSemantics(t *testing.T) {
	root := makeTree(t)

	tests := []struct {
		depth int
		want  []string
	}{
		{0, nil},
		{1, []string{"a.txt", "z.log"}},
		{2, []string{"a.txt", "sub/b.txt", "z.log"}},
		{3, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt", "z.log"}},
		{9999, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt", "z.log"}},
	}
	for _, tt := range tests {
		got := collect(t, NewWalker(root, tt.depth, nil))
		assert.Equal(t, tt.want, got, "depth %d", tt.depth)
	}
}

func TestWalker_TraversalOrderIsDeterministic(t *testing.T) {
	root := makeTree(t)

	first := collect(t, NewWalker(root, 9999, nil))
	second := collect(t, NewWalker(root, 9999, nil))
	assert.Equal(t, first, second)

	// Directory entries come sorted, so a subtree's files follow the
	// directory's position among its siblings.
	assert.Equal(t, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt", "z.log"}, first)
}

func TestWalker_IgnorePatterns(t *testing.T) {
	root := makeTree(t)

	tests := []struct {
		name   string
		ignore []string
		want   []string
	}{
		{"base name glob", []string{"*.log"}, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}},
		{"directory name", []string{"sub"}, []string{"a.txt", "z.log"}},
		{"slashed pattern", []string{"sub/*.txt"}, []string{"a.txt", "sub/deep/c.txt", "z.log"}},
		{"trailing components", []string{"deep/*.txt"}, []string{"a.txt", "sub/b.txt", "z.log"}},
		{"everything", []string{"*"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, NewWalker(root, 9999, tt.ignore))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalker_IgnoreSliceIsCopied(t *testing.T) {
	root := makeTree(t)

	ignore := []string{"*.log"}
	w := NewWalker(root, 1, ignore)
	ignore[0] = "*.txt" // must not affect the walker

	assert.Equal(t, []string{"a.txt"}, collect(t, w))
}

func TestWalker_SymlinksIgnored(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := makeTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "sublink")))

	got := collect(t, NewWalker(root, 9999, nil))
	assert.NotContains(t, got, "link.txt")
	assert.NotContains(t, got, "sublink")
	assert.Contains(t, got, "a.txt")
}

func TestWalker_RecordFields(t *testing.T) {
	root := makeTree(t)

	w := NewWalker(root, 1, []string{"*.log"})
	rec, err := w.Next()
	require.NoError(t, err)
	require.NotNil(t, rec)

	info, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)

	assert.Equal(t, "a.txt", rec.Name)
	assert.Equal(t, int64(1), rec.Size)
	assert.Equal(t, info.ModTime().UnixNano(), rec.Mtime)

	digest, err := rec.MD5()
	require.NoError(t, err)
	want, err := HashFile(filepath.Join(root, "a.txt"), 0)
	require.NoError(t, err)
	assert.Equal(t, want, digest)
}

func TestWalker_PooledMatchesInline(t *testing.T) {
	root := makeTree(t)

	inline := make(map[string]string)
	w := NewWalker(root, 9999, nil)
	for {
		rec, err := w.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		digest, err := rec.MD5()
		require.NoError(t, err)
		inline[rec.Name] = digest
	}

	pool := NewPool(4)
	defer pool.Close()
	pw := NewWalker(root, 9999, nil)
	pw.SetPool(pool)

	pooled := make(map[string]string)
	for {
		rec, err := pw.Next()
		require.NoError(t, err)
		if rec == nil {
			break
		}
		digest, err := rec.MD5()
		require.NoError(t, err)
		pooled[rec.Name] = digest
	}

	assert.Equal(t, inline, pooled)
}

func TestWalker_UnreadableRootIsFatal(t *testing.T) {
	// A root that cannot be enumerated must abort the walk instead of
	// yielding an empty sequence.
	w := NewWalker(filepath.Join(t.TempDir(), "missing"), 1, nil)
	_, err := w.Next()
	assert.Error(t, err)

	plain := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))
	w = NewWalker(plain, 1, nil)
	_, err = w.Next()
	assert.Error(t, err)
}

func TestWalker_ExhaustedStaysExhausted(t *testing.T) {
	root := makeTree(t)

	w := NewWalker(root, 1, nil)
	collect(t, w)

	rec, err := w.Next()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMatchAny(t *testing.T) {
	tests := []struct {
		pat  string
		name string
		rel  string
		want bool
	}{
		{"*.py", "x.py", "a/x.py", true},
		{"*.py", "x.txt", "a/x.txt", false},
		{"a/*.py", "x.py", "a/x.py", true},
		{"a/*.py", "x.py", "sub/a/x.py", true},
		{"a/*.py", "x.py", "b/x.py", false},
		{"a/*.py", "x.py", "x.py", false},
		{".git", ".git", "sub/.git", true},
	}
	for _, tt := range tests {
		got := MatchAny([]string{tt.pat}, tt.name, tt.rel)
		assert.Equal(t, tt.want, got, "pattern %q against %q", tt.pat, tt.rel)
	}
}
