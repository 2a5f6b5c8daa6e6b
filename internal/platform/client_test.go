package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/syncbridge/syncbridge/internal/awsiam"
	"github.com/syncbridge/syncbridge/internal/callspec"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, fn roundTripperFunc) *Client {
	t.Helper()
	c, err := New("https://platform.example.test", "platform-token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.HTTP.Transport = fn
	return c
}

func jsonResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func TestGetTokenByTokenID(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/tokens/tok-1" {
			t.Fatalf("path = %s", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "Bearer platform-token" {
			t.Fatal("missing bearer token")
		}
		return jsonResponse(req, http.StatusOK, `{"token":"resolved"}`), nil
	})

	token, err := c.GetTokenByTokenID(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetTokenByTokenID() error = %v", err)
	}
	if token != "resolved" {
		t.Fatalf("token = %q", token)
	}
}

func TestGetSecretByCredentialID_SendsSpecAndNormalizes(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/credentials/cred-1/secret" {
			t.Fatalf("path = %s", req.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["url"] != "https://api.example.test/items" {
			t.Fatalf("body url = %v", body["url"])
		}
		return jsonResponse(req, http.StatusOK, `{"headers":{"Authorization":"Bearer s"}}`), nil
	})

	secret, err := c.GetSecretByCredentialID(context.Background(), "cred-1", &callspec.Spec{
		Method: http.MethodGet,
		URL:    "https://api.example.test/items",
	})
	if err != nil {
		t.Fatalf("GetSecretByCredentialID() error = %v", err)
	}
	if secret.Headers["Authorization"] != "Bearer s" {
		t.Fatalf("Headers = %#v", secret.Headers)
	}
	if secret.Params == nil {
		t.Fatal("Params should be normalized to an empty map")
	}
}

func TestGetAWSSessionSecret(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		creds, _ := body["credentials"].(map[string]any)
		if creds["access_key_id"] != "AKIA1" {
			t.Fatalf("credentials = %#v", creds)
		}
		return jsonResponse(req, http.StatusOK, `{"headers":{"Authorization":"AWS4-HMAC-SHA256 ..."},"params":{}}`), nil
	})

	secret, err := c.GetAWSSessionSecret(context.Background(), &callspec.Spec{
		Method: http.MethodGet,
		URL:    "https://sts.example.test",
	}, awsiam.CredentialSet{AccessKeyID: "AKIA1", SecretAccessKey: "s", SessionToken: "t"})
	if err != nil {
		t.Fatalf("GetAWSSessionSecret() error = %v", err)
	}
	if !strings.HasPrefix(secret.Headers["Authorization"], "AWS4-HMAC-SHA256") {
		t.Fatalf("Headers = %#v", secret.Headers)
	}
}

func TestDo_FormatsAPIError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(req, http.StatusForbidden, `{"errors":["token expired"]}`), nil
	})

	err := c.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "token expired") {
		t.Fatalf("error = %v", err)
	}
}

func TestSendDelivery_EmptyRecordsStillPosted(t *testing.T) {
	var posted Delivery
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/portions/p1/records" {
			t.Fatalf("path = %s", req.URL.Path)
		}
		if err := json.NewDecoder(req.Body).Decode(&posted); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(req, http.StatusOK, `{}`), nil
	})

	err := c.SendDelivery(context.Background(), "p1", Delivery{Error: "boom", IsFatal: true})
	if err != nil {
		t.Fatalf("SendDelivery() error = %v", err)
	}
	if posted.Records == nil || len(posted.Records) != 0 {
		t.Fatalf("Records = %#v, want empty slice", posted.Records)
	}
	if posted.Error != "boom" || !posted.IsFatal {
		t.Fatalf("posted = %#v", posted)
	}
}

func TestCreateSyntheticPortions(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v3/portions/synthetic" {
			t.Fatalf("path = %s", req.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		bodies = append(bodies, body)
		return jsonResponse(req, http.StatusOK, `{}`), nil
	})

	if err := c.CreateSyntheticFinalizedFailedPortion(context.Background(), "c1", "p1", "trace", true, false); err != nil {
		t.Fatalf("failed portion error = %v", err)
	}
	if err := c.CreateSyntheticFinalizedEmptyPortion(context.Background(), "c1", "p2"); err != nil {
		t.Fatalf("empty portion error = %v", err)
	}

	if bodies[0]["status"] != "failed" || bodies[0]["error"] != "trace" || bodies[0]["is_fatal"] != true {
		t.Fatalf("failed body = %#v", bodies[0])
	}
	if bodies[1]["status"] != "empty" {
		t.Fatalf("empty body = %#v", bodies[1])
	}
}

func TestWithToken_DoesNotMutateOriginal(t *testing.T) {
	c := newTestClient(t, nil)
	scoped := c.WithToken("connector-token")
	if c.APIToken != "platform-token" {
		t.Fatalf("original token mutated: %q", c.APIToken)
	}
	if scoped.APIToken != "connector-token" {
		t.Fatalf("scoped token = %q", scoped.APIToken)
	}
}
