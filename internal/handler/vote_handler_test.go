package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitializeVote_ValidationErrors(t *testing.T) {
	handler := &VoteHandler{}

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "empty body", body: nil},
		{
			name: "missing candidate",
			body: map[string]interface{}{"position_id": 1, "voter_email": "v@test.com", "vote_count": 1},
		},
		{
			name: "missing email",
			body: map[string]interface{}{"candidate_id": 1, "position_id": 1, "vote_count": 1},
		},
		{
			name: "invalid email",
			body: map[string]interface{}{"candidate_id": 1, "position_id": 1, "voter_email": "nope", "vote_count": 1},
		},
		{
			name: "zero vote count",
			body: map[string]interface{}{"candidate_id": 1, "position_id": 1, "voter_email": "v@test.com", "vote_count": 0},
		},
		{
			name: "negative vote count",
			body: map[string]interface{}{"candidate_id": 1, "position_id": 1, "voter_email": "v@test.com", "vote_count": -3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestGinContext(http.MethodPost, "/api/vote/initialize", tt.body)

			handler.InitializeVote(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Equal(t, "validation_error", resp["error_type"])
		})
	}
}

// The client never sends an amount; any attempt to smuggle one is ignored by
// binding and the server computes the charge itself.
func TestInitializeVote_IgnoresClientAmount(t *testing.T) {
	handler := &VoteHandler{}

	c, w := newTestGinContext(http.MethodPost, "/api/vote/initialize", map[string]interface{}{
		"amount": 1, // not a request field
	})

	handler.InitializeVote(c)

	// Still fails validation on the real required fields.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyVote_RequiresReference(t *testing.T) {
	handler := &VoteHandler{}

	c, w := newTestGinContext(http.MethodPost, "/api/vote/verify", nil)

	handler.VerifyVote(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "validation_error", resp["error_type"])
}
