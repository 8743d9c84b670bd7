package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeScalar(t *testing.T) {
	assert.Equal(t, float32(0.15), NormalizeScalar(0.15442))
	assert.Equal(t, float32(1), NormalizeScalar(1))
	assert.Equal(t, float32(0), NormalizeScalar(0.009))
}

func TestAlmostEquals(t *testing.T) {
	assert.True(t, AlmostEquals(0.35, 0.3499))
	assert.True(t, AlmostEquals(0.35, 0.352))
	assert.False(t, AlmostEquals(0.35, 0.36))
}

func TestTruncateUTF16(t *testing.T) {
	assert.Equal(t, "Artist - Song", TruncateUTF16("Artist - Song", 127))
	assert.Equal(t, "Artist", TruncateUTF16("Artist - Song", 6))
	assert.Equal(t, "", TruncateUTF16("Song", 0))

	// limits count runes, not bytes, and never split one
	assert.Equal(t, "Sigur R", TruncateUTF16("Sigur Rós - Hoppípolla", 7))
	assert.Equal(t, "Sigur Ró", TruncateUTF16("Sigur Rós - Hoppípolla", 8))
	assert.Equal(t, "坂本", TruncateUTF16("坂本龍一", 2))

	// runes outside the basic plane take two units
	assert.Equal(t, "ab", TruncateUTF16("ab🎵c", 3))
	assert.Equal(t, "ab🎵", TruncateUTF16("ab🎵c", 4))

	long := strings.Repeat("é", 200)
	truncated := TruncateUTF16(long, 127)
	assert.True(t, utf8.ValidString(truncated))
	assert.Equal(t, 127, utf8.RuneCountInString(truncated))
}

func TestParseScalar(t *testing.T) {
	cases := map[string]float32{
		"0.35": 0.35,
		"35%":  0.35,
		" 1 ":  1,
		"0%":   0,
	}

	for input, expected := range cases {
		actual, err := ParseScalar(input)
		require.NoError(t, err, input)
		assert.InDelta(t, expected, actual, 0.0001, input)
	}

	for _, input := range []string{"", "loud", "1.5", "-0.1", "101%"} {
		_, err := ParseScalar(input)
		assert.Error(t, err, input)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")

	assert.False(t, FileExists(file))
	require.NoError(t, os.WriteFile(file, []byte("poll_interval: 1s\n"), 0o644))
	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
}

func TestEnsureDirExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "nested")

	require.NoError(t, EnsureDirExists(dir))
	require.NoError(t, EnsureDirExists(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
