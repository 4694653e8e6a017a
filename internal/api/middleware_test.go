package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authProtectedServer(token string) *httptest.Server {
	handler := AuthMiddleware(token)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	return httptest.NewServer(handler)
}

func doGet(t *testing.T, url, authHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("создание запроса: %v", err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("выполнение запроса: %v", err)
	}
	return resp
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	srv := authProtectedServer("secret-token")
	defer srv.Close()

	resp := doGet(t, srv.URL, "Bearer secret-token")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ожидался 200, получен %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareWrongToken(t *testing.T) {
	srv := authProtectedServer("secret-token")
	defer srv.Close()

	resp := doGet(t, srv.URL, "Bearer wrong")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("ожидался 401, получен %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	srv := authProtectedServer("secret-token")
	defer srv.Close()

	resp := doGet(t, srv.URL, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("ожидался 401, получен %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareNotBearerScheme(t *testing.T) {
	srv := authProtectedServer("secret-token")
	defer srv.Close()

	resp := doGet(t, srv.URL, "Basic secret-token")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("ожидался 401, получен %d", resp.StatusCode)
	}
}

func TestAuthMiddlewareNoServerToken(t *testing.T) {
	srv := authProtectedServer("")
	defer srv.Close()

	resp := doGet(t, srv.URL, "Bearer anything")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ожидался 503, получен %d", resp.StatusCode)
	}
}
