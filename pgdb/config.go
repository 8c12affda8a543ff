// Copyright 2026 Debtpipe Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pgdb

import (
	"net/url"
	"os"
	"strings"

	"github.com/stockparfait/errors"
)

// Environment variables read by FromEnv.
const (
	EnvHost     = "DB_HOST"
	EnvPort     = "DB_PORT"
	EnvName     = "DB_NAME"
	EnvUser     = "DB_USER"
	EnvPassword = "DB_PASSWORD"
	EnvSSLMode  = "SSL_MODE"
)

// Config holds the connection parameters of the destination database. Every
// field is required.
type Config struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
	SSLMode  string
}

// FromEnv builds a Config from the process environment. It fails fast,
// naming every missing variable, before any connection is attempted.
func FromEnv() (*Config, error) {
	var missing []string
	get := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	c := &Config{
		Host:     get(EnvHost),
		Port:     get(EnvPort),
		DBName:   get(EnvName),
		User:     get(EnvUser),
		Password: get(EnvPassword),
		SSLMode:  get(EnvSSLMode),
	}
	if len(missing) != 0 {
		return nil, errors.Reason("missing required environment variables: %s",
			strings.Join(missing, ", "))
	}
	return c, nil
}

// ConnString assembles the postgres:// connection URL. Credentials are
// URL-escaped.
func (c *Config) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
