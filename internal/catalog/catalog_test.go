package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

func TestPutGet(t *testing.T) {
	c := New()
	l := posting.New([]int{1, 2}, []int{3, 4})
	c.Put("film", l)

	got, err := c.Get("film")
	require.NoError(t, err)
	assert.Equal(t, l, got)

	_, err = c.Get("drama")
	assert.True(t, errors.Is(err, apperrors.ErrListNotFound))
	assert.Equal(t, 1, c.Len())
}

func TestNamesAndEntriesSorted(t *testing.T) {
	c := New()
	c.Put("zeta", posting.New([]int{1}, []int{1}))
	c.Put("alpha", posting.New([]int{1, 2, 3}, []int{1, 1, 1}))

	assert.Equal(t, []string{"alpha", "zeta"}, c.Names())
	assert.Equal(t, []Entry{{Name: "alpha", Size: 3}, {Name: "zeta", Size: 1}}, c.Entries())
}

func TestListName(t *testing.T) {
	assert.Equal(t, "film", ListName("/data/film.txt"))
	assert.Equal(t, "comedy", ListName("comedy.txt.gz"))
	assert.Equal(t, "raw", ListName("raw"))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loader.WriteFile(filepath.Join(dir, "film.txt"), posting.New([]int{10, 20}, []int{1, 2})))
	require.NoError(t, loader.WriteFile(filepath.Join(dir, "comedy.txt.gz"), posting.New([]int{20, 30}, []int{5, 6})))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	c := New()
	n, err := c.LoadDir(dir, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"comedy", "film"}, c.Names())

	film, err := c.Get("film")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 110, 120}, film.IDs)
}

func TestLoadDirMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("10 1\nnope\n"), 0o644))

	_, err := New().LoadDir(dir, 1, 0)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedLine))
}

func TestLoadDirMissing(t *testing.T) {
	_, err := New().LoadDir(filepath.Join(t.TempDir(), "nope"), 1, 0)
	assert.Error(t, err)
}

func TestLoadSegment(t *testing.T) {
	dir := t.TempDir()
	film := posting.New([]int{10, 20, 30}, []int{1, 2, 3})
	comedy := posting.New([]int{20, 30, 40}, []int{4, 5, 6})
	name, err := segment.NewWriter(dir).Write([]segment.Entry{
		{Name: "film", List: film},
		{Name: "comedy", List: comedy},
	})
	require.NoError(t, err)

	c := New()
	n, err := c.LoadSegment(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := c.Get("comedy")
	require.NoError(t, err)
	assert.Equal(t, comedy, got)
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Put(ListName("l"+string(rune('a'+i))+".txt"), posting.New([]int{i}, []int{i}))
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Names()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, c.Len())
}
