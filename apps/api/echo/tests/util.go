package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-learn/apps/api/echo"
	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/cache"
	"github.com/trezcool/masomo-learn/core/certificate"
	"github.com/trezcool/masomo-learn/core/progress"
	"github.com/trezcool/masomo-learn/core/ratelimit"
	dummydb "github.com/trezcool/masomo-learn/storage/database/dummy"
	"github.com/trezcool/masomo-learn/testutil"
)

type testApp struct {
	conf   *core.Config
	server *echoapi.Server
	store  progress.Store
	cache  *cache.Cache
	signer *certificate.Signer
	logger *testutil.Logger
	tokens map[string]string
	t      *testing.T
}

func newTestConfig() *core.Config {
	conf := core.NewTestConfig()
	conf.Debug = false
	return conf
}

func setup(t *testing.T, confs ...*core.Config) *testApp {
	conf := newTestConfig()
	if len(confs) > 0 {
		conf = confs[0]
	}

	db, err := dummydb.Open()
	require.NoError(t, err)
	return setupWithStore(t, dummydb.NewProgressStore(db), conf)
}

func setupWithStore(t *testing.T, store progress.Store, conf *core.Config) *testApp {
	logger := testutil.NewLogger()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)

	summaries, err := cache.New(cache.Options{TTL: conf.Cache.TTL, MaxSize: conf.Cache.MaxSize})
	require.NoError(t, err)
	signer, err := certificate.NewSigner(conf.SecretKey)
	require.NoError(t, err)
	limiter, err := ratelimit.New(ratelimit.Options{PerSecond: conf.RateLimit.PerSecond, Burst: conf.RateLimit.Burst})
	require.NoError(t, err)

	svc := progress.NewService(store, logger, progress.Options{MaxRetries: conf.Progress.MaxRetries, BaseBackoff: conf.Progress.BaseBackoff})
	tracker := progress.NewTracker(svc, summaries, signer, validate, logger)

	server := echoapi.NewServer(conf, echoapi.Deps{
		Tracker:    tracker,
		Cache:      summaries,
		Signer:     signer,
		Limiter:    limiter,
		Validate:   validate,
		Translator: translator,
		Logger:     logger,
	})
	return &testApp{
		conf:   conf,
		server: server,
		store:  store,
		cache:  summaries,
		signer: signer,
		logger: logger,
		tokens: make(map[string]string),
		t:      t,
	}
}

func (app *testApp) token(userID string) string {
	if tok, ok := app.tokens[userID]; ok {
		return tok
	}
	tok, err := echoapi.GenerateToken(app.conf, echoapi.NewClaims(app.conf, userID))
	require.NoError(app.t, err)
	app.tokens[userID] = tok
	return tok
}

// do sends the request as `userID` (anonymous if empty) and returns the response.
func (app *testApp) do(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(app.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+app.token(userID))
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createProgress(userID, courseID, itemID string) progress.Progress {
	rec := app.do(http.MethodPost, "/v1/progress", userID, echoapi.CreateProgressRequest{CourseID: courseID, ItemID: itemID})
	require.Equal(app.t, http.StatusCreated, rec.Code, rec.Body.String())
	var prog progress.Progress
	decode(app.t, rec, &prog)
	return prog
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode() failed: %v; body %s", err, rec.Body.String())
	}
}

type httpErr struct {
	Error string `json:"error"`
}
