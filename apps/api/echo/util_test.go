package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
	"github.com/trezcool/edutrack/services/identity"
	"github.com/trezcool/edutrack/tests"
)

type testServer struct {
	Server
	env *testutil.Env
	idp *identity.Authority
}

// setup returns a server over a fresh in-memory database; opts may alter its dependencies.
func setup(t *testing.T, opts ...func(deps *ServerDeps)) *testServer {
	t.Helper()

	env := testutil.NewEnv(t)
	idp := identity.NewAuthority(env.Users, identity.NewTokenIssuer(env.Conf))
	deps := ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		Identity:       idp,
		Users:          env.Users,
		Schools:        env.Schools,
		Academics:      env.Academics,
		Students:       env.Students,
		DisableReqLogs: true,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testServer{Server: NewServer(deps), env: env, idp: idp}
}

func (ts *testServer) token(t *testing.T, usr user.User) string {
	t.Helper()

	sess, err := ts.idp.SignIn(context.Background(), auth.Credentials{Email: usr.Email, Password: testutil.Password})
	if err != nil {
		t.Fatalf("token(): %v", err)
	}
	return sess.AccessToken
}

func (ts *testServer) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	ts.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decode unmarshals the response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
