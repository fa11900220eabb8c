package neo4j

import (
	"context"
	"fmt"

	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const listNodesQuery = `
MATCH (n)
WHERE n.id IS NOT NULL
RETURN toString(n.id) AS id, coalesce(toString(n.name), '') AS name, labels(n) AS labels
ORDER BY id`

// Enumerator は Neo4j グラフから Embedding 対象のノードを列挙します
type Enumerator struct {
	client *Client
}

// NewEnumerator は新しい Enumerator を作成します
func NewEnumerator(client *Client) *Enumerator {
	return &Enumerator{client: client}
}

var _ embedding.Enumerator = (*Enumerator)(nil)

// Enumerate は id プロパティを持つ全ノードを読み取りトランザクションで取得します
func (e *Enumerator) Enumerate(ctx context.Context) ([]embedding.WorkItem, error) {
	session := e.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: e.client.Database,
	})
	defer session.Close(context.WithoutCancel(ctx))

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, listNodesQuery, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		items := make([]embedding.WorkItem, 0, len(records))
		for _, record := range records {
			item, err := recordToWorkItem(record)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate neo4j nodes: %w", err)
	}

	items := result.([]embedding.WorkItem)
	e.client.logger.Info("ノードを取得", "count", len(items))
	return items, nil
}

// recordToWorkItem はレコードを WorkItem に変換します（ラベルは先頭のものを使用）
func recordToWorkItem(record *neo4j.Record) (embedding.WorkItem, error) {
	rawID, _ := record.Get("id")
	id, ok := rawID.(string)
	if !ok || id == "" {
		return embedding.WorkItem{}, fmt.Errorf("unexpected node id: %v", rawID)
	}

	name, _ := record.Get("name")
	displayName, _ := name.(string)

	var label string
	if rawLabels, ok := record.Get("labels"); ok {
		if labels, ok := rawLabels.([]any); ok && len(labels) > 0 {
			label, _ = labels[0].(string)
		}
	}

	return embedding.WorkItem{ID: id, Label: label, DisplayName: displayName}, nil
}
