package utils

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOrderNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(fmt.Sprintf(`^LL-%d-\d{6}$`, time.Now().Year()))

	for i := 0; i < 50; i++ {
		number, err := GenerateOrderNumber()
		require.NoError(t, err)
		assert.Regexp(t, pattern, number)
	}
}
