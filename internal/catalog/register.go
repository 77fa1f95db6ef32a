package catalog

import (
	"time"

	"github.com/JonMunkholm/catalogimport/internal/imports"
	"github.com/JonMunkholm/catalogimport/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deps selects the backends the catalog kinds run on.
type Deps struct {
	// Pool backs the kinds with PostgreSQL tables. Nil selects empty
	// in-memory stores.
	Pool *pgxpool.Pool

	// Redis keeps preview sessions in redis. Nil keeps them in memory.
	Redis      redis.UniversalClient
	SessionTTL time.Duration

	Options imports.Options
}

// Register adds every catalog kind to reg.
func Register(reg *imports.Registry, deps Deps) {
	if deps.Options.Locks == nil {
		deps.Options.Locks = imports.NewTargetLocks()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = imports.DefaultSessionTTL
	}

	reg.Register(pipeline(FinishOptions(), FinishOptionMapping, deps))
	reg.Register(pipeline(StockItems(), StockItemMapping, deps))
	reg.Register(pipeline(Customers(), CustomerMapping, deps))
}

func pipeline[T any](def *imports.Definition[T], m store.Mapping[T], deps Deps) *imports.Pipeline[T] {
	var st imports.Store[T]
	if deps.Pool != nil {
		st = store.NewPostgres(deps.Pool, m)
	} else {
		st = store.NewMemory(def.Key)
	}

	var sessions imports.SessionStore[T]
	if deps.Redis != nil {
		sessions = imports.NewRedisSessions[T](deps.Redis, "import:"+def.Kind+":", deps.SessionTTL)
	} else {
		sessions = imports.NewMemorySessions[T](deps.SessionTTL)
	}

	return imports.NewPipeline(def, st, sessions, deps.Options)
}
