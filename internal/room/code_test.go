// internal/room/code_test.go
package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := GenerateCode()
		assert.Len(t, code, CodeLength)
		assert.True(t, ValidCode(code), code)
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC234", NormalizeCode("  abc234\n"))
	assert.True(t, ValidCode(NormalizeCode("xyz789")))
	assert.False(t, ValidCode("ABCDE"))
	assert.False(t, ValidCode("ABCDE1"), "1 is not in the alphabet")
	assert.False(t, ValidCode("ABCDEO"), "O is not in the alphabet")
}
