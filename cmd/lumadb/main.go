/*
Copyright (C) 2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dc0d/onexit"
	"github.com/sirupsen/logrus"

	"github.com/launix-de/lumadb/internal/adminpush"
	"github.com/launix-de/lumadb/internal/bulkload"
	"github.com/launix-de/lumadb/internal/config"
	"github.com/launix-de/lumadb/internal/connmgr"
	"github.com/launix-de/lumadb/internal/executor"
	"github.com/launix-de/lumadb/internal/metrics"
	"github.com/launix-de/lumadb/internal/protocol/cassandra"
	"github.com/launix-de/lumadb/internal/protocol/mongodb"
	"github.com/launix-de/lumadb/internal/protocol/mysql"
	"github.com/launix-de/lumadb/internal/protocol/postgres"
	"github.com/launix-de/lumadb/internal/protocol/redis"
	"github.com/launix-de/lumadb/internal/shard"
	"github.com/launix-de/lumadb/internal/storage/objectstore"
)

func main() {
	fmt.Print(`lumadb Copyright (C) 2026   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	configPath := flag.String("config", "", "path to a TOML config file (defaults are used if omitted)")
	importPath := flag.String("import", "", "CSV or JSON file to bulk-load into --import-table at startup")
	importTable := flag.String("import-table", "", "table name for --import")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.General.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		log.WithError(err).Fatal("creating data directory")
	}

	backend, err := newBackend(cfg.General.DataDir, cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("configuring storage backend")
	}

	m := metrics.New()

	execCfg := executor.New(cfg.Shard.TimeColumn)
	colTypes := map[string]string{}
	coord, err := shard.NewCoordinator(shard.Config{
		Shards:       cfg.Shard.Count,
		DataDir:      cfg.General.DataDir,
		Backend:      backend,
		CacheBudget:  cfg.Shard.CacheBudget,
		MemtableRows: cfg.Shard.MemtableRows,
		ColTypes:     colTypes,
		TimeColumn:   cfg.Shard.TimeColumn,
		Logger:       log,
		Executor:     execCfg,
	})
	if err != nil {
		log.WithError(err).Fatal("initializing shards")
	}
	coord.Start()
	onexit.Register(func() {
		if err := coord.Shutdown(); err != nil {
			log.WithError(err).Warn("shard shutdown")
		}
	})

	engine := executor.NewEngine(coord, colTypes)

	if *importPath != "" {
		if *importTable == "" {
			log.Fatal("--import requires --import-table")
		}
		if err := bulkload.ImportFile(engine, *importPath, *importTable); err != nil {
			log.WithError(err).Fatal("bulk import")
		}
	}

	var listeners []net.Listener
	var mysqlHandler *mysql.Handler

	if cfg.Postgres.Enabled {
		srv := &postgres.Server{Engine: engine, Metrics: m, Log: log}
		listeners = append(listeners, startListener(log, m, "postgres", cfg.Postgres, srv.Serve))
	}
	if cfg.MongoDB.Enabled {
		srv := &mongodb.Server{Engine: engine, Metrics: m, Log: log}
		listeners = append(listeners, startListener(log, m, "mongodb", cfg.MongoDB, srv.Serve))
	}
	if cfg.Cassandra.Enabled {
		srv := &cassandra.Server{Engine: engine, Metrics: m, Log: log}
		listeners = append(listeners, startListener(log, m, "cassandra", cfg.Cassandra, srv.Serve))
	}
	if cfg.Redis.Enabled {
		srv := &redis.Server{Engine: engine, Hub: redis.NewHub(), Metrics: m, Log: log}
		listeners = append(listeners, startListener(log, m, "redis", cfg.Redis, srv.Serve))
	}
	if cfg.MySQL.Enabled {
		sem := connmgr.NewSemaphore("mysql", cfg.MySQL.MaxConnections, m)
		mysqlHandler = &mysql.Handler{Engine: engine, Metrics: m, Log: log, Sem: sem}
		addr := fmt.Sprintf("%s:%d", cfg.MySQL.Host, cfg.MySQL.Port)
		go func() {
			if err := mysqlHandler.ListenAndServe(addr); err != nil {
				log.WithError(err).Error("mysql listener stopped")
			}
		}()
	}

	if cfg.Metrics.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Metrics.Host, cfg.Metrics.Port)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, m.Handler())
		mux.Handle("/debug/shards", adminpush.ShardsHandler(coord))
		mux.Handle("/debug/push", adminpush.Upgrader(coord))
		httpServer := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics/admin listener stopped")
			}
		}()
		onexit.Register(func() { httpServer.Close() })
	}

	log.Info("lumadb ready")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	for _, l := range listeners {
		l.Close()
	}
	onexit.Exit(0)
}

// startListener binds addr and runs connmgr.Listen in a goroutine,
// returning the net.Listener so main can close it first during
// shutdown.
func startListener(log *logrus.Logger, m *metrics.Metrics, protocol string, p config.Protocol, handle func(net.Conn)) net.Listener {
	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatalf("%s: listen %s", protocol, addr)
	}
	sem := connmgr.NewSemaphore(protocol, p.MaxConnections, m)
	go connmgr.Listen(lis, sem, log, handle)
	return lis
}

func newBackend(dataDir string, cfg config.Storage) (objectstore.Backend, error) {
	switch cfg.Backend {
	case "", "filesystem":
		return objectstore.NewFilesystemBackend(dataDir), nil
	case "s3":
		return objectstore.NewS3Backend(objectstore.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Bucket:          cfg.S3Bucket,
			ForcePathStyle:  cfg.S3ForcePathStyle,
		}), nil
	case "ceph":
		return objectstore.NewCephBackend(objectstore.CephConfig{
			ClusterName: cfg.CephClusterName,
			UserName:    cfg.CephUserName,
			ConfFile:    cfg.CephConfFile,
			Pool:        cfg.CephPool,
		}), nil
	default:
		return nil, fmt.Errorf("config: unknown storage backend %q", cfg.Backend)
	}
}
