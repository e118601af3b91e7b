package feedback

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gocql/gocql"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// CassandraOptions configures the Cassandra feedback store.
type CassandraOptions struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

// CassandraStore persists feedback into a shared Cassandra cluster.
type CassandraStore struct {
	session  *gocql.Session
	keyspace string
}

// OpenCassandra connects to the cluster and ensures the keyspace and table
// exist.
func OpenCassandra(ctx context.Context, opts CassandraOptions) (*CassandraStore, error) {
	if len(opts.Hosts) == 0 {
		return nil, errors.New("cassandra hosts are required")
	}
	if !keyspacePattern.MatchString(opts.Keyspace) {
		return nil, fmt.Errorf("invalid cassandra keyspace %q", opts.Keyspace)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	cluster := gocql.NewCluster(opts.Hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = opts.Timeout
	cluster.ConnectTimeout = opts.Timeout

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra: %w", err)
	}

	// Identifiers cannot be bound; the keyspace is validated above.
	statements := []string{
		fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
            WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, opts.Keyspace),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.feedback_entries (
            id uuid PRIMARY KEY,
            source_text text,
            target_text text,
            was_correct boolean,
            request_id text,
            created_at timestamp
        )`, opts.Keyspace),
	}
	for _, stmt := range statements {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("prepare cassandra schema: %w", err)
		}
	}
	return &CassandraStore{session: session, keyspace: opts.Keyspace}, nil
}

// Record inserts entry.
func (s *CassandraStore) Record(ctx context.Context, entry Entry) error {
	entry, err := Prepare(entry)
	if err != nil {
		return err
	}
	id, err := gocql.ParseUUID(entry.ID)
	if err != nil {
		return fmt.Errorf("feedback id %q: %w", entry.ID, err)
	}
	query := fmt.Sprintf(`INSERT INTO %s.feedback_entries (
            id, source_text, target_text, was_correct, request_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`, s.keyspace)
	if err := s.session.Query(query,
		id, entry.SourceText, entry.TargetText, entry.WasCorrect, entry.RequestID, entry.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// List returns up to limit entries in partition order; Cassandra has no
// global ordering by time.
func (s *CassandraStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT id, source_text, target_text, was_correct, request_id, created_at
        FROM %s.feedback_entries LIMIT ?`, s.keyspace)
	iter := s.session.Query(query, limit).WithContext(ctx).Iter()

	var (
		entries []Entry
		id      gocql.UUID
		entry   Entry
	)
	for iter.Scan(&id, &entry.SourceText, &entry.TargetText, &entry.WasCorrect, &entry.RequestID, &entry.CreatedAt) {
		entry.ID = id.String()
		entries = append(entries, entry)
		entry = Entry{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return entries, nil
}

// Close releases the session.
func (s *CassandraStore) Close() error {
	s.session.Close()
	return nil
}
