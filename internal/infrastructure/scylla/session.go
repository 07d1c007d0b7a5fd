package scylla

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Config describes the Scylla cluster holding chat threads.
type Config struct {
	Hosts             []string
	Keyspace          string
	Username          string
	Password          string
	Consistency       string
	Timeout           time.Duration
	ReplicationFactor int
}

// NewSession creates the keyspace and tables if needed and returns a session
// bound to the keyspace.
func NewSession(ctx context.Context, cfg Config, logger zerolog.Logger) (*gocql.Session, error) {
	if !keyspacePattern.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("invalid keyspace name: %q", cfg.Keyspace)
	}
	consistency, err := parseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}

	base, err := cluster(cfg, consistency).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to scylla: %w", err)
	}
	err = ensureKeyspace(ctx, base, cfg)
	base.Close()
	if err != nil {
		return nil, err
	}

	c := cluster(cfg, consistency)
	c.Keyspace = cfg.Keyspace
	session, err := c.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}
	if err := ensureTables(ctx, session); err != nil {
		session.Close()
		return nil, err
	}
	logger.Info().Strs("hosts", cfg.Hosts).Str("keyspace", cfg.Keyspace).Msg("scylla connected")
	return session, nil
}

func cluster(cfg Config, consistency gocql.Consistency) *gocql.ClusterConfig {
	c := gocql.NewCluster(cfg.Hosts...)
	c.Consistency = consistency
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
		c.ConnectTimeout = cfg.Timeout
	}
	if cfg.Username != "" {
		c.Authenticator = gocql.PasswordAuthenticator{Username: cfg.Username, Password: cfg.Password}
	}
	return c
}

func parseConsistency(s string) (gocql.Consistency, error) {
	if strings.TrimSpace(s) == "" {
		return gocql.Quorum, nil
	}
	return gocql.ParseConsistencyWrapper(strings.ToUpper(strings.TrimSpace(s)))
}

func ensureKeyspace(ctx context.Context, session *gocql.Session, cfg Config) error {
	rf := cfg.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}
	cql := fmt.Sprintf(
		"CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
		cfg.Keyspace, rf,
	)
	if err := session.Query(cql).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("create keyspace: %w", err)
	}
	return nil
}

func ensureTables(ctx context.Context, session *gocql.Session) error {
	stmts := map[string]string{
		"chat_messages": `
CREATE TABLE IF NOT EXISTS chat_messages (
	exchange_id uuid,
	created_at timestamp,
	message_id uuid,
	sender_id uuid,
	kind text,
	text text,
	PRIMARY KEY (exchange_id, created_at, message_id)
) WITH CLUSTERING ORDER BY (created_at ASC, message_id ASC)`,
		"chat_reads": `
CREATE TABLE IF NOT EXISTS chat_reads (
	user_id uuid,
	exchange_id uuid,
	last_read_at timestamp,
	PRIMARY KEY (user_id, exchange_id)
)`,
	}
	for _, name := range []string{"chat_messages", "chat_reads"} {
		if err := session.Query(stmts[name]).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("create %s table: %w", name, err)
		}
	}
	return nil
}
