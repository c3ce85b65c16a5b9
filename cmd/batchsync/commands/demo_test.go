package commands_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimedWaitCmd_TimesOut(t *testing.T) {
	stdout, _, err := execute(t, "", "timedwait", "--deadline", "30ms", "--hold", "80ms")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Main: creating consumer")
	assert.Contains(t, stdout, "Consumer: waiting...")
	assert.Contains(t, stdout, "Consumer: timed out!")
	assert.NotContains(t, stdout, "signaled!")
}

func TestTimedWaitCmd_Signaled(t *testing.T) {
	stdout, _, err := execute(t, "", "timedwait",
		"--deadline", "2s", "--hold", "50ms", "--fill-after", "10ms")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Main: filling buffer")
	assert.Contains(t, stdout, "Consumer: signaled!")
	assert.Contains(t, stdout, "Consumer: total is 15")
}

func TestTimedLockCmd(t *testing.T) {
	stdout, _, err := execute(t, "", "timedlock", "--deadline", "20ms", "--hold", "60ms")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Worker: waiting for lock...")
	assert.Contains(t, stdout, "Worker: timed out!")

	stdout, _, err = execute(t, "", "timedlock", "--deadline", "2s", "--hold", "20ms")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Worker: grabbed lock!")
	assert.Contains(t, stdout, "Main: released lock")
}

func TestTurnstileCmd(t *testing.T) {
	stdout, _, err := execute(t, "", "turnstile", "--workers", "5")
	require.NoError(t, err)

	re := regexp.MustCompile(`Worker (\d): my turn!`)
	var order []string
	for _, m := range re.FindAllStringSubmatch(stdout, -1) {
		order = append(order, m[1])
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, order)
	assert.Equal(t, 4, strings.Count(stdout, "signaling worker"))
	assert.Contains(t, stdout, "5 workers done")

	_, _, err = execute(t, "", "turnstile", "--workers", "0")
	require.Error(t, err)
}
