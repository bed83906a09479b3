package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/boxoffice/pkg/errorbank"
	"github.com/Additional-Code/boxoffice/pkg/statuscode"
)

type fakeProbe struct {
	mu     sync.Mutex
	code   int
	userID int64
}

func (f *fakeProbe) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.code != statuscode.Success {
		w.WriteHeader(http.StatusUnauthorized)
		writeEnvelope(w, f.code, nil)
		return
	}
	writeEnvelope(w, statuscode.Success, Identity{UserID: f.userID})
}

func (f *fakeProbe) set(code int, userID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.code = code
	f.userID = userID
}

func newSessionFixture(t *testing.T, probe *fakeProbe) *Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(probe.serve))
	t.Cleanup(srv.Close)
	return NewSession(New(srv.URL, WithToken("tok")))
}

func TestProbeCachesIdentity(t *testing.T) {
	session := newSessionFixture(t, &fakeProbe{code: statuscode.Success, userID: 9})

	require.NoError(t, session.Probe(context.Background()))
	assert.True(t, session.Authenticated())
	require.NotNil(t, session.Identity())
	assert.Equal(t, int64(9), session.Identity().UserID)
}

func TestProbeSwallowsAuthFailure(t *testing.T) {
	probe := &fakeProbe{code: statuscode.Success, userID: 9}
	session := newSessionFixture(t, probe)
	require.NoError(t, session.Probe(context.Background()))

	// The token stops being accepted; a background probe must not surface
	// the failure, only downgrade the session.
	probe.set(statuscode.Unauthorized, 0)
	assert.NoError(t, session.Probe(context.Background()))
	assert.False(t, session.Authenticated())
}

func TestRequireSurfacesAuthFailure(t *testing.T) {
	session := newSessionFixture(t, &fakeProbe{code: statuscode.Unauthorized})

	_, err := session.Require(context.Background())
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnauthenticated, errorbank.From(err).Kind())
	assert.False(t, session.Authenticated())
}

func TestRequireForPreservesDestination(t *testing.T) {
	session := newSessionFixture(t, &fakeProbe{code: statuscode.Unauthorized})

	_, err := session.RequireFor(context.Background(), "/orders/42/pay")
	require.Error(t, err)
	appErr := errorbank.From(err)
	assert.Equal(t, errorbank.KindUnauthenticated, appErr.Kind())

	// The intended destination rides on the error so the flow can resume
	// there after a fresh login.
	assert.Equal(t, "/orders/42/pay", appErr.Details()["destination"])
}

func TestRequireUsesCachedIdentity(t *testing.T) {
	probe := &fakeProbe{code: statuscode.Success, userID: 9}
	session := newSessionFixture(t, probe)
	require.NoError(t, session.Probe(context.Background()))

	// Even if the backend starts failing, the cached identity is returned
	// without a round trip.
	probe.set(statuscode.Unauthorized, 0)
	identity, err := session.Require(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), identity.UserID)
}

func TestSetTokenResetsIdentity(t *testing.T) {
	probe := &fakeProbe{code: statuscode.Success, userID: 9}
	session := newSessionFixture(t, probe)
	require.NoError(t, session.Probe(context.Background()))
	require.True(t, session.Authenticated())

	session.SetToken("other")
	assert.False(t, session.Authenticated())
}
