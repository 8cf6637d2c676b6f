package version_test

import (
	"runtime"
	"testing"

	"github.com/4rdii/transaction-debugger-agent/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestVersionStrings(t *testing.T) {
	assert.Equal(t, "dev (unknown)", version.Short())
	assert.Equal(t, "dev (unknown) "+runtime.GOOS+"/"+runtime.GOARCH, version.Full())
}
