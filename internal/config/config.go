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

// Package config loads the gateway's TOML configuration file.
// memcp has no config file of its own (its one
// tunable, the data directory, is a literal path in main.go); this
// follows the rest of the wider codebase's convention of a single
// BurntSushi/toml-decoded struct loaded once at startup.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type General struct {
	DataDir  string `toml:"data_dir"`
	LogLevel string `toml:"log_level"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Path    string `toml:"path"`
}

// Protocol configures one wire protocol's listener.
type Protocol struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MaxConnections int    `toml:"max_connections"`
}

// Shard configures the shard-per-core execution substrate.
type Shard struct {
	Count        int    `toml:"count"`
	MemtableRows int    `toml:"memtable_rows"`
	CacheBudget  int64  `toml:"cache_budget_bytes"`
	TimeColumn   string `toml:"time_column"`
}

// Storage configures the object-store backend segments are durably
// flushed to.
type Storage struct {
	Backend string `toml:"backend"` // "filesystem", "s3" or "ceph"

	S3Bucket          string `toml:"s3_bucket"`
	S3Region          string `toml:"s3_region"`
	S3Endpoint        string `toml:"s3_endpoint"`
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`
	S3ForcePathStyle  bool   `toml:"s3_force_path_style"`

	CephClusterName string `toml:"ceph_cluster_name"`
	CephUserName    string `toml:"ceph_user_name"`
	CephConfFile    string `toml:"ceph_conf_file"`
	CephPool        string `toml:"ceph_pool"`
}

type Config struct {
	General  General             `toml:"general"`
	Metrics  Metrics             `toml:"metrics"`
	Shard    Shard               `toml:"shard"`
	Storage  Storage             `toml:"storage"`
	Postgres Protocol            `toml:"postgres"`
	MySQL    Protocol            `toml:"mysql"`
	MongoDB  Protocol            `toml:"mongodb"`
	Cassandra Protocol           `toml:"cassandra"`
	Redis    Protocol            `toml:"redis"`
}

// Default returns the configuration used when no file is supplied,
// matching the stated per-protocol defaults.
func Default() Config {
	return Config{
		General: General{DataDir: "./data", LogLevel: "info"},
		Metrics: Metrics{Enabled: true, Host: "0.0.0.0", Port: 9090, Path: "/metrics"},
		Shard:   Shard{Count: 4, MemtableRows: 8192, CacheBudget: 256 << 20, TimeColumn: "_ts"},
		Storage: Storage{Backend: "filesystem"},
		Postgres:  Protocol{Enabled: true, Host: "0.0.0.0", Port: 5432, MaxConnections: 100},
		MySQL:     Protocol{Enabled: true, Host: "0.0.0.0", Port: 3306, MaxConnections: 100},
		MongoDB:   Protocol{Enabled: true, Host: "0.0.0.0", Port: 27017, MaxConnections: 100},
		Cassandra: Protocol{Enabled: true, Host: "0.0.0.0", Port: 9042, MaxConnections: 100},
		Redis:     Protocol{Enabled: true, Host: "0.0.0.0", Port: 6379, MaxConnections: 100},
	}
}

// Load decodes path over Default(), so a config file only needs to
// override the settings it cares about.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return cfg, nil
}
