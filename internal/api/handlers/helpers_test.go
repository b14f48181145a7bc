package handlers_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/utils/response"
	"github.com/stretchr/testify/require"
)

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) *response.APIResponse {
	t.Helper()

	var resp response.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	return &resp
}

// decodeData re-marshals the generic data field into dest.
func decodeData(t *testing.T, resp *response.APIResponse, dest any) {
	t.Helper()

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}
