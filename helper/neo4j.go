package helper

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Neo4jConfiguration holds the connection settings of the graph store.
type Neo4jConfiguration struct {
	URI      string `env:"GRAPHRAG_NEO4J_URI" envDefault:"bolt://localhost:7687"`
	Username string `env:"GRAPHRAG_NEO4J_USERNAME" envDefault:"neo4j"`
	Password string `env:"GRAPHRAG_NEO4J_PASSWORD"`
	Database string `env:"GRAPHRAG_NEO4J_DATABASE" envDefault:"neo4j"`

	MaxConnectionPoolSize   int           `env:"GRAPHRAG_NEO4J_POOL_SIZE" envDefault:"50"`
	ConnectionTimeout       time.Duration `env:"GRAPHRAG_NEO4J_CONNECTION_TIMEOUT" envDefault:"30s"`
	MaxTransactionRetryTime time.Duration `env:"GRAPHRAG_NEO4J_MAX_RETRY_TIME" envDefault:"15s"`
	QueryTimeout            time.Duration `env:"GRAPHRAG_NEO4J_QUERY_TIMEOUT" envDefault:"10s"`
}

// NewNeo4jConfiguration reads the graph store configuration from the environment.
func NewNeo4jConfiguration() (*Neo4jConfiguration, error) {
	_ = godotenv.Load()

	config := &Neo4jConfiguration{}
	if err := env.Parse(config); err != nil {
		return nil, NewError("parse neo4j configuration", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for obviously unusable values.
func (c *Neo4jConfiguration) Validate() error {
	if c.URI == "" {
		return NewValidationError("uri", "is required")
	}
	valid := false
	for _, scheme := range []string{"bolt://", "bolt+s://", "bolt+ssc://", "neo4j://", "neo4j+s://", "neo4j+ssc://"} {
		if strings.HasPrefix(c.URI, scheme) {
			valid = true
			break
		}
	}
	if !valid {
		return NewValidationError("uri", fmt.Sprintf("has unsupported scheme: %s", c.URI))
	}
	if c.MaxConnectionPoolSize <= 0 {
		return NewValidationError("max_connection_pool_size", "must be positive")
	}
	if c.ConnectionTimeout <= 0 {
		return NewValidationError("connection_timeout", "must be positive")
	}
	return nil
}
