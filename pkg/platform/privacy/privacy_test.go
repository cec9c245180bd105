package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "192.168.1.0", AnonymizeIP("192.168.1.47"))
	assert.Equal(t, "2001:db8:85a3::", AnonymizeIP("2001:db8:85a3::8a2e:370:7334"))
	assert.Equal(t, "10.0.0.0", AnonymizeIP("::ffff:10.0.0.9"))
	assert.Equal(t, "unknown", AnonymizeIP(""))
	assert.Equal(t, "invalid", AnonymizeIP("not-an-ip"))
}

func TestHashKey(t *testing.T) {
	a := HashKey("Finder@Campus.edu")
	assert.Len(t, a, 16)
	assert.Equal(t, a, HashKey(" finder@campus.edu "), "case and whitespace must not change the digest")
	assert.NotEqual(t, a, HashKey("other@campus.edu"))
	assert.Empty(t, HashKey(""))
}
