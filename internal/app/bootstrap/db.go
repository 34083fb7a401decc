// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/trackhub/internal/app/store/audit"
	"github.com/dalemusser/trackhub/internal/app/store/memory"
	"github.com/dalemusser/trackhub/internal/app/store/projects"
	"github.com/dalemusser/trackhub/internal/app/store/repo"
	"github.com/dalemusser/trackhub/internal/app/store/tasks"
	"github.com/dalemusser/trackhub/internal/app/store/users"
	"github.com/dalemusser/trackhub/internal/app/system/indexes"
	"github.com/dalemusser/trackhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the configured store backend.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.StoreBackend == BackendMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return DBDeps{Backend: BackendMemory, Stores: memory.New().Stores(), Services: &Services{}}, nil
	}

	opts := options.Client().ApplyURI(appCfg.MongoURI)
	if appCfg.MongoMaxPoolSize > 0 {
		opts.SetMaxPoolSize(appCfg.MongoMaxPoolSize)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))
	return DBDeps{
		Backend:       BackendMongo,
		MongoClient:   client,
		MongoDatabase: db,
		Stores: repo.Stores{
			Users:    users.New(db),
			Projects: projects.New(db),
			Tasks:    tasks.New(db),
		},
		Services: &Services{},
	}, nil
}

// EnsureSchema creates the unique and lookup indexes. The unique indexes on
// users.email and projects.key are what make duplicate checks atomic.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	if err := audit.New(deps.MongoDatabase).EnsureIndexes(ctx); err != nil {
		logger.Error("ensure audit indexes failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured")
	return nil
}
