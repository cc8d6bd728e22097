package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	var s struct {
		Interval Duration `json:"interval"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"interval":"90s"}`), &s))
	assert.Equal(t, 90*time.Second, s.Interval.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"interval":5000000000}`), &s))
	assert.Equal(t, 5*time.Second, s.Interval.Duration)

	assert.Error(t, json.Unmarshal([]byte(`{"interval":"nonsense"}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`{"interval":true}`), &s))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"3s"`, string(b))
}
