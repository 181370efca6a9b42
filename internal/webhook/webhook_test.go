package webhook

import (
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("murmur-webhook-test-key"))

func TestVerify(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"type":"user.created","data":{"id":"user_abc"}}`)
	good, err := Sign(testSecret, "msg_1", now, body)
	require.NoError(t, err)

	otherSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("other"))

	tests := []struct {
		name    string
		secret  string
		headers Headers
		body    []byte
		now     time.Time
		wantErr error
	}{
		{name: "valid", secret: testSecret, headers: good, body: body, now: now},
		{name: "valid among several entries", secret: testSecret, headers: Headers{ID: good.ID, Timestamp: good.Timestamp, Signature: "v1,AAAA " + good.Signature}, body: body, now: now},
		{name: "within tolerance", secret: testSecret, headers: good, body: body, now: now.Add(4 * time.Minute)},
		{name: "tampered body", secret: testSecret, headers: good, body: []byte(`{}`), now: now, wantErr: ErrNoMatch},
		{name: "wrong secret", secret: otherSecret, headers: good, body: body, now: now, wantErr: ErrNoMatch},
		{name: "bad secret", secret: "whsec_%%%", headers: good, body: body, now: now, wantErr: ErrInvalidSecret},
		{name: "empty secret", secret: "", headers: good, body: body, now: now, wantErr: ErrInvalidSecret},
		{name: "stale", secret: testSecret, headers: good, body: body, now: now.Add(6 * time.Minute), wantErr: ErrStaleTimestamp},
		{name: "future", secret: testSecret, headers: good, body: body, now: now.Add(-6 * time.Minute), wantErr: ErrStaleTimestamp},
		{name: "junk timestamp", secret: testSecret, headers: Headers{ID: good.ID, Timestamp: "soon", Signature: good.Signature}, body: body, now: now, wantErr: ErrInvalidTimestamp},
		{name: "missing headers", secret: testSecret, headers: Headers{ID: good.ID}, body: body, now: now, wantErr: ErrMissingHeaders},
		{name: "unknown version", secret: testSecret, headers: Headers{ID: good.ID, Timestamp: good.Timestamp, Signature: "v2," + good.Signature[3:]}, body: body, now: now, wantErr: ErrNoMatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Verify(tt.secret, tt.headers, tt.body, tt.now, 5*time.Minute)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSign_AcceptedBySvix(t *testing.T) {
	t.Parallel()

	body := []byte(`{"type":"user.deleted","data":{"id":"user_abc","deleted":true}}`)
	h, err := Sign(testSecret, "msg_2", time.Now(), body)
	require.NoError(t, err)

	wh, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)
	header := http.Header{}
	h.Apply(header)
	assert.NoError(t, wh.Verify(body, header))
	assert.Error(t, wh.Verify([]byte(`{}`), header))
}

func TestHeadersRoundTrip(t *testing.T) {
	t.Parallel()
	h := Headers{ID: "msg", Timestamp: "1", Signature: "v1,x"}
	header := http.Header{}
	h.Apply(header)
	assert.Equal(t, h, HeadersFrom(header.Get))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type":"user.updated","data":{"id":"user_1","username":"ada","first_name":"Ada","last_name":" Lovelace "}}`))
	require.NoError(t, err)
	assert.Equal(t, EventUserUpdated, ev.Type)

	u, err := ev.User()
	require.NoError(t, err)
	assert.Equal(t, "user_1", u.ID)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	ev, err = Decode([]byte(`{"type":"user.created","data":{}}`))
	require.NoError(t, err)
	_, err = ev.User()
	assert.Error(t, err)
}
