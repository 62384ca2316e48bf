package check

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassed(t *testing.T) {
	assert.True(t, Pass("a", "").Passed())
	assert.True(t, Skip("a", "no credentials").Passed())
	assert.False(t, Fail("a", "boom").Passed())
}

func TestAllPassed(t *testing.T) {
	assert.True(t, AllPassed(nil))
	assert.True(t, AllPassed([]Result{Pass("a", ""), Skip("b", "")}))
	assert.False(t, AllPassed([]Result{Pass("a", ""), Fail("b", "")}))
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(Skip("kraken", "credentials not set"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"kraken","status":"skip","detail":"credentials not set","duration_ns":0}`, string(data))
}

func TestTimed(t *testing.T) {
	start := time.Now().Add(-time.Second)
	r := Pass("a", "").Timed(start)
	assert.GreaterOrEqual(t, r.Duration, time.Second)
}
