package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	orig := now
	now = func() time.Time { return time.UnixMilli(1716200000000) }
	t.Cleanup(func() { now = orig })

	key := generateKey("Lunch.JPEG")
	assert.Regexp(t, regexp.MustCompile(`^1716200000000-[0-9a-f-]{36}\.jpeg$`), key)
	assert.NotEqual(t, key, generateKey("Lunch.JPEG"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".jpg", extension("a.jpg"))
	assert.Equal(t, ".png", extension("a.PNG"))
	assert.Equal(t, ".jpg", extension("noext"))
	assert.Equal(t, ".bin", extension("evil.sh"))
}

func TestCleanKey(t *testing.T) {
	cases := []struct{ in, want string }{
		{"food/a.jpg", "food/a.jpg"},
		{"/food/a.jpg", "food/a.jpg"},
		{"../../etc/passwd", "etc/passwd"},
		{"food/../../x.jpg", "x.jpg"},
		{`food\..\..\x.jpg`, "x.jpg"},
		{"   ", ""},
		{"/", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanKey(tc.in), tc.in)
	}
}
