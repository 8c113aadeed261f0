package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/emrahtokalak/supportflow/models"
)

const transcriptSchema = `
CREATE TABLE IF NOT EXISTS transcript_messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	console_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	sender     TEXT NOT NULL,
	text       TEXT NOT NULL,
	meta_json  TEXT NOT NULL DEFAULT '{}',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_console ON transcript_messages(console_id, seq);
`

// SQLiteTranscript keeps transcripts in a local sqlite file for single-node operators.
type SQLiteTranscript struct {
	db          *sql.DB
	maxMessages int
}

func OpenSQLiteTranscript(path string, maxMessages int) (*SQLiteTranscript, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY and keeps :memory: coherent
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(transcriptSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init transcript schema")
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &SQLiteTranscript{db: db, maxMessages: maxMessages}, nil
}

func (t *SQLiteTranscript) Close() error {
	return t.db.Close()
}

func (t *SQLiteTranscript) Load(ctx context.Context, consoleID string) ([]models.ChatMessage, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT message_id, sender, text, meta_json, created_at FROM transcript_messages
		 WHERE console_id = ? ORDER BY seq ASC`, consoleID)
	if err != nil {
		return nil, errors.Wrap(err, "query transcript")
	}
	defer rows.Close()

	history := []models.ChatMessage{}
	for rows.Next() {
		var (
			msg      models.ChatMessage
			metaJSON string
			created  int64
		)
		if err := rows.Scan(&msg.ID, &msg.Sender, &msg.Text, &metaJSON, &created); err != nil {
			return nil, errors.Wrap(err, "scan transcript row")
		}
		if err := json.Unmarshal([]byte(metaJSON), &msg.Meta); err != nil {
			return nil, errors.Wrap(err, "decode message meta")
		}
		msg.Time = time.Unix(0, created)
		history = append(history, msg)
	}
	return history, errors.Wrap(rows.Err(), "iterate transcript")
}

func (t *SQLiteTranscript) Append(ctx context.Context, consoleID string, msgs ...models.ChatMessage) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transcript tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, msg := range msgs {
		metaJSON, err := json.Marshal(msg.Meta)
		if err != nil {
			return errors.Wrap(err, "encode message meta")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_messages(console_id, message_id, sender, text, meta_json, created_at) VALUES(?,?,?,?,?,?)`,
			consoleID, msg.ID, msg.Sender, msg.Text, string(metaJSON), msg.Time.UnixNano()); err != nil {
			return errors.Wrap(err, "insert transcript message")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transcript_messages WHERE console_id = ? AND seq NOT IN (
			SELECT seq FROM transcript_messages WHERE console_id = ? ORDER BY seq DESC LIMIT ?)`,
		consoleID, consoleID, t.maxMessages); err != nil {
		return errors.Wrap(err, "trim transcript")
	}
	return errors.Wrap(tx.Commit(), "commit transcript")
}

func (t *SQLiteTranscript) Clear(ctx context.Context, consoleID string) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM transcript_messages WHERE console_id = ?`, consoleID)
	return errors.Wrap(err, "clear transcript")
}
