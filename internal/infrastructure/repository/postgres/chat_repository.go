package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

// ChatRepository persists answered queries and replays them as conversation
// context. Sources and metadata are stored as JSONB documents.
type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

var (
	_ ports.ChatStore          = (*ChatRepository)(nil)
	_ ports.ConversationMemory = (*ChatRepository)(nil)
)

func (r *ChatRepository) SaveChat(ctx context.Context, record domain.ChatRecord) error {
	sources, err := json.Marshal(record.Sources)
	if err != nil {
		return fmt.Errorf("marshal chat sources: %w", err)
	}
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal chat metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO chats (id, user_id, session_id, query, answer, sources, confidence, tokens_used, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		record.ID, record.UserID, record.SessionID, record.Query, record.Answer,
		sources, record.Confidence, record.TokensUsed, metadata, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListChats(ctx context.Context, userID string, limit int) ([]domain.ChatRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, session_id, query, answer, sources, confidence, tokens_used, metadata, created_at
FROM chats
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	records := []domain.ChatRecord{}
	for rows.Next() {
		var rec domain.ChatRecord
		var sources, metadata []byte
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.SessionID, &rec.Query, &rec.Answer,
			&sources, &rec.Confidence, &rec.TokensUsed, &metadata, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &rec.Sources); err != nil {
				return nil, fmt.Errorf("unmarshal chat sources: %w", err)
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chat metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	return records, nil
}

// RecentTurns maps stored chats to alternating user/assistant turns in
// chronological order. Rows are fetched newest-first then reversed so the
// most recent exchanges survive the limit.
func (r *ChatRepository) RecentTurns(ctx context.Context, userID, sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 6
	}
	// Each stored chat yields two turns.
	pairs := (limit + 1) / 2

	rows, err := r.db.QueryContext(ctx, `
SELECT query, answer
FROM chats
WHERE user_id = $1 AND session_id = $2
ORDER BY created_at DESC
LIMIT $3
`, userID, sessionID, pairs)
	if err != nil {
		return nil, fmt.Errorf("query conversation turns: %w", err)
	}
	defer rows.Close()

	type exchange struct {
		query  string
		answer string
	}
	newestFirst := []exchange{}
	for rows.Next() {
		var ex exchange
		if err := rows.Scan(&ex.query, &ex.answer); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		newestFirst = append(newestFirst, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation turns: %w", err)
	}

	turns := make([]domain.ConversationTurn, 0, len(newestFirst)*2)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		turns = append(turns,
			domain.ConversationTurn{Role: "user", Content: newestFirst[i].query},
			domain.ConversationTurn{Role: "assistant", Content: newestFirst[i].answer},
		)
	}
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}
