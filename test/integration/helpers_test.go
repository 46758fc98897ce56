package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	neturl "net/url"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/teacherportal/marks-portal-service/internal/domain"
	"github.com/teacherportal/marks-portal-service/internal/health"
	"github.com/teacherportal/marks-portal-service/internal/http/handler"
	"github.com/teacherportal/marks-portal-service/internal/http/middleware"
	"github.com/teacherportal/marks-portal-service/internal/http/router"
	"github.com/teacherportal/marks-portal-service/internal/repository"
	"github.com/teacherportal/marks-portal-service/internal/security"
	"github.com/teacherportal/marks-portal-service/internal/service"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testUsername = "alice"
	testPassword = "correct-horse"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newPortalTestServer assembles the full stack on sqlite and miniredis and
// returns a server plus a cookie-jar client, so tests exercise the same
// wiring the binary runs.
func newPortalTestServer(t *testing.T) (string, *http.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=10000", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	hasher, err := security.NewPasswordHasher(security.MinHashIterations)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	salt, err := hasher.NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	teacher := &domain.Teacher{Username: testUsername, Salt: salt, PasswordHash: hasher.Hash(testPassword, salt)}
	if err := db.Create(teacher).Error; err != nil {
		t.Fatalf("seed teacher: %v", err)
	}

	redisServer := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	trail := service.NewAuditTrail(repository.NewAuditRepository(db), discard)
	auth := service.NewAuthService(
		repository.NewTeacherRepository(db),
		repository.NewSessionRepository(db),
		hasher, trail, discard, time.Hour,
	)
	roster := service.NewRosterService(repository.NewStudentRepository(db), trail)
	idem := service.NewRedisIdempotencyStore(redisClient, "marksportal:idem")

	h := router.NewRouter(router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(auth, false),
		StudentHandler: handler.NewStudentHandler(roster),
		AuditHandler:   handler.NewAuditHandler(trail),
		Sessions:       auth,
		CORSOrigins:    []string{"http://localhost"},
		BodyLimitBytes: 1 << 20,
		Idempotency:    middleware.Idempotency(idem, time.Minute),
		Readiness:      health.NewProbeRunner(time.Second, time.Second, health.NewDBChecker(db), health.NewRedisChecker(redisClient)),
	})

	server := httptest.NewServer(h)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("new cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	closeFn := func() {
		server.Close()
		_ = redisClient.Close()
	}
	return server.URL, client, closeFn
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, envelope) {
	t.Helper()
	return doRaw(t, client, method, url, body, headers, nil)
}

func doRaw(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string, cookies []*http.Cookie) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode envelope from %s: %v (%s)", url, err, raw)
		}
	}
	return resp, env
}

func cookieValue(t *testing.T, client *http.Client, baseURL, name string) string {
	t.Helper()
	u, err := neturl.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func login(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp, env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", map[string]string{
		"username": testUsername,
		"password": testPassword,
	}, nil)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("login failed: status=%d success=%v", resp.StatusCode, env.Success)
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode login data: %v", err)
	}
	if data.Token == "" {
		t.Fatal("expected a session token")
	}
	return data.Token
}
