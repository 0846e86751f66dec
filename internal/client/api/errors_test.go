package api

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenErrorBody_FieldMapIsJoined(t *testing.T) {
	body := []byte(`{"username":["This field is required."],"password":["Too short.","Too common."]}`)

	msg := flattenErrorBody(body)

	// fields sorted, messages joined with spaces
	assert.Equal(t, "Too short. Too common. This field is required.", msg)
}

func TestFlattenErrorBody_StringPassesThrough(t *testing.T) {
	assert.Equal(t, "service unavailable", flattenErrorBody([]byte(`"service unavailable"`)))
}

func TestFlattenErrorBody_OtherShapes_Empty(t *testing.T) {
	assert.Empty(t, flattenErrorBody([]byte(`[1,2,3]`)))
	assert.Empty(t, flattenErrorBody([]byte(`not json at all`)))
	assert.Empty(t, flattenErrorBody(nil))
}

func TestServiceError_KindSelection(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
		kind   error
	}{
		{name: "401 is unauthorized", status: 401, body: nil, kind: ErrUnauthorized},
		{name: "400 is validation", status: 400, body: []byte(`{"email":["invalid"]}`), kind: ErrValidation},
		{name: "500 is unknown", status: 500, body: nil, kind: ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := serviceError(tt.status, tt.body)
			require.True(t, errors.Is(err, tt.kind))
		})
	}
}

func TestServiceError_MessageFallbacks(t *testing.T) {
	err := serviceError(500, nil)
	assert.Equal(t, "an unknown error occurred", err.Message)

	err = serviceError(401, nil)
	assert.Equal(t, "unauthorized", err.Message)

	err = serviceError(400, []byte(`{"email":["invalid"]}`))
	assert.Equal(t, "invalid", err.Message)
}

func TestAuthError_UnwrapMatchesKind(t *testing.T) {
	err := newAuthError(ErrRefreshFailed, "the refresh token is gone")

	require.True(t, errors.Is(err, ErrRefreshFailed))
	require.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "the refresh token is gone", err.Error())
}
