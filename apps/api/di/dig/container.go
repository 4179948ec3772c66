package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-learn/apps/api/echo"
	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/cache"
	"github.com/trezcool/masomo-learn/core/certificate"
	"github.com/trezcool/masomo-learn/core/progress"
	"github.com/trezcool/masomo-learn/core/ratelimit"
	logsvc "github.com/trezcool/masomo-learn/services/logger"
	"github.com/trezcool/masomo-learn/storage/database"
	dummydb "github.com/trezcool/masomo-learn/storage/database/dummy"
	sqlxdb "github.com/trezcool/masomo-learn/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// StoreCloser releases the connections of the document store.
	StoreCloser func() error

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Tracker    *progress.Tracker
		Cache      *cache.Cache
		Signer     *certificate.Signer
		Limiter    *ratelimit.Limiter
		Validate   *validator.Validate
		Translator ut.Translator
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStore(conf *core.Config, loggerParam DBLoggerParam) (progress.Store, StoreCloser) {
	if conf.Database.InMemory() {
		db, _ := dummydb.Open()
		return dummydb.NewProgressStore(db), func() error { return nil }
	}

	setUp := func() (progress.Store, StoreCloser, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlxdb.NewProgressStore(db), db.Close, nil
	}

	store, closer, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return store, closer
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newProgressService(conf *core.Config, store progress.Store, logger core.Logger) *progress.Service {
	return progress.NewService(store, logger, progress.Options{
		MaxRetries:  conf.Progress.MaxRetries,
		BaseBackoff: conf.Progress.BaseBackoff,
	})
}

func newCache(conf *core.Config) (*cache.Cache, error) {
	return cache.New(cache.Options{
		TTL:               conf.Cache.TTL,
		MaxSize:           conf.Cache.MaxSize,
		BackgroundCleanup: conf.Cache.BackgroundCleanup,
		CleanupInterval:   conf.Cache.CleanupInterval,
	})
}

func newSigner(conf *core.Config) (*certificate.Signer, error) {
	return certificate.NewSigner(conf.SecretKey)
}

func newLimiter(conf *core.Config) (*ratelimit.Limiter, error) {
	return ratelimit.New(ratelimit.Options{
		PerSecond: conf.RateLimit.PerSecond,
		Burst:     conf.RateLimit.Burst,
		IdleTTL:   conf.RateLimit.IdleTTL,
		MaxKeys:   conf.RateLimit.MaxKeys,
	})
}

func newTracker(svc *progress.Service, c *cache.Cache, signer *certificate.Signer, validate *validator.Validate, logger core.Logger) *progress.Tracker {
	return progress.NewTracker(svc, c, signer, validate, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, echoapi.Deps{
		Tracker:    p.Tracker,
		Cache:      p.Cache,
		Signer:     p.Signer,
		Limiter:    p.Limiter,
		Validate:   p.Validate,
		Translator: p.Translator,
		Logger:     p.Logger,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStore))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newProgressService))
	must(c.Provide(newCache))
	must(c.Provide(newSigner))
	must(c.Provide(newLimiter))
	must(c.Provide(newTracker))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
