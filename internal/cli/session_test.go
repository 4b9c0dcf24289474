package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hashview/internal/config"
)

func decodeData(t *testing.T, out string, dst any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

func TestSession_IncrementFlow(t *testing.T) {
	env := newCLIEnv(t, config.DefaultWhitelist...)

	var created SessionResult
	decodeData(t, env.mustRun(t, "session", "new", "--format", "json"), &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "30m0s", created.MaxInactiveInterval)
	assert.Empty(t, created.Attributes)

	var inc IncrementResult
	decodeData(t, env.mustRun(t, "session", "increment", created.ID, "--format", "json"), &inc)
	assert.Equal(t, created.ID, inc.ID)
	assert.Equal(t, int64(1), inc.Increment)
	assert.NotEmpty(t, inc.UpdatedDate)

	decodeData(t, env.mustRun(t, "session", "increment", created.ID, "--format", "json"), &inc)
	assert.Equal(t, int64(2), inc.Increment)

	var shown SessionResult
	decodeData(t, env.mustRun(t, "session", "show", created.ID, "--format", "json"), &shown)
	assert.Equal(t, created.ID, shown.ID)
	assert.Contains(t, shown.Attributes, "increment")
	assert.Contains(t, shown.Attributes, "updatedDate")
	assert.NotContains(t, shown.Attributes, "uuid")
	assert.JSONEq(t, "2", string(shown.Attributes["increment"]))

	// The uuid attribute is written, just never loaded.
	key := "hashview:sessions:" + created.ID
	raw := env.mustRun(t, "hgetall", key, "--raw")
	assert.Contains(t, raw, "sessionAttr:uuid=")
	assert.NotContains(t, env.mustRun(t, "hgetall", key), "sessionAttr:uuid")
}

func TestSession_ShowText(t *testing.T) {
	env := newCLIEnv(t, config.DefaultWhitelist...)

	var created SessionResult
	decodeData(t, env.mustRun(t, "session", "new", "--format", "json"), &created)

	out := env.mustRun(t, "session", "show", created.ID)
	assert.Contains(t, out, "id:            "+created.ID+"\n")
	assert.Contains(t, out, "max inactive:  30m0s\n")
	assert.Contains(t, out, "attributes:    (none)\n")
}

func TestSession_ShowMissing(t *testing.T) {
	env := newCLIEnv(t, config.DefaultWhitelist...)

	res := env.run(t, "session", "show", "nope")
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "Error [E005]: failed to load session")
}

func TestSession_Delete(t *testing.T) {
	env := newCLIEnv(t, config.DefaultWhitelist...)

	var created SessionResult
	decodeData(t, env.mustRun(t, "session", "new", "--format", "json"), &created)

	assert.Equal(t, "deleted session "+created.ID+"\n", env.mustRun(t, "session", "delete", created.ID))
	res := env.run(t, "session", "increment", created.ID)
	assert.Equal(t, ExitFailure, res.code)
	assert.Contains(t, res.stderr, "E005")
}
