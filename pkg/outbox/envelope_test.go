package outbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"evt-1","occurredAt":"2026-07-01T09:00:00Z","data":{"orderId":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", envelope.EventID)
	assert.JSONEq(t, `{"orderId":"x"}`, string(envelope.Data))

	cases := map[string]string{
		"not json":        `{"version":`,
		"future version":  `{"version":2,"eventId":"evt","data":{}}`,
		"missing version": `{"eventId":"evt","data":{}}`,
		"missing id":      `{"version":1,"data":{}}`,
		"null data":       `{"version":1,"eventId":"evt","data":null}`,
		"absent data":     `{"version":1,"eventId":"evt"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(raw))
			require.Error(t, err)
		})
	}
}
