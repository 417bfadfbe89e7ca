package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/uq/sdk"
)

func TestFromClientPassesSession(t *testing.T) {
	var gotAuth, gotPartner string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPartner = r.URL.Query().Get("partner_id")
		data, _ := json.Marshal([]*sdk.MessageInfo{{Id: msgId(1), SenderId: bob, RecipientId: alice, CreatedAt: 1000}})
		_ = json.NewEncoder(w).Encode(sdk.Response{Code: 0, Msg: "success", Data: data})
	}))
	defer srv.Close()

	backend := FromClient(sdk.MustNewClient(srv.URL, sdk.WithToken("someone-else")))
	msgs, err := backend.FetchMessages(context.Background(), aliceSession, &sdk.ListMessagesRequest{PartnerId: bob, Limit: 51})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bearer alice-token", gotAuth)
	assert.Equal(t, bob, gotPartner)
}
