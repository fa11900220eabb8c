package age

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/marcosbolanos/pgvector-age/internal/core/embedding"
)

// DefaultGraphName は CSV ローダーが作成するグラフ名です
const DefaultGraphName = "from_csv"

const listVertexLabelsQuery = `
SELECT l.name::text
FROM ag_catalog.ag_label l
JOIN ag_catalog.ag_graph g ON l.graph = g.graphid
WHERE g.name = $1 AND l.kind = 'v' AND l.name <> '_ag_label_vertex'
ORDER BY l.name`

// Querier は *pgxpool.Pool などクエリを実行できる接続です
// セッションで LOAD 'age' と search_path の設定が済んでいる必要があります
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Enumerator は Apache AGE グラフから Embedding 対象の頂点を列挙します
type Enumerator struct {
	db     Querier
	graph  string
	logger *slog.Logger
}

// NewEnumerator は新しい Enumerator を作成します
func NewEnumerator(db Querier, graph string, logger *slog.Logger) (*Enumerator, error) {
	if graph == "" {
		graph = DefaultGraphName
	}
	if err := ValidateIdentifier("graph", graph); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enumerator{db: db, graph: graph, logger: logger}, nil
}

var _ embedding.Enumerator = (*Enumerator)(nil)

// Enumerate は全頂点ラベルのノードを列挙します
// 取得に失敗したラベルはログに残してスキップします
func (e *Enumerator) Enumerate(ctx context.Context) ([]embedding.WorkItem, error) {
	labels, err := e.vertexLabels(ctx)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		e.logger.Warn("頂点ラベルが見つかりません", "graph", e.graph)
		return nil, nil
	}
	e.logger.Info("頂点ラベルを取得", "graph", e.graph, "count", len(labels))

	var items []embedding.WorkItem
	for _, label := range labels {
		nodes, err := e.nodesForLabel(ctx, label)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Error("ラベルのノード取得に失敗", "label", label, "error", err)
			continue
		}
		e.logger.Info("ノードを取得", "label", label, "count", len(nodes))
		items = append(items, nodes...)
	}

	return items, nil
}

func (e *Enumerator) vertexLabels(ctx context.Context) ([]string, error) {
	rows, err := e.db.Query(ctx, listVertexLabelsQuery, e.graph)
	if err != nil {
		return nil, fmt.Errorf("failed to list vertex labels: %w", err)
	}
	labels, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan vertex labels: %w", err)
	}
	return labels, nil
}

func (e *Enumerator) nodesForLabel(ctx context.Context, label string) ([]embedding.WorkItem, error) {
	if err := ValidateIdentifier("label", label); err != nil {
		return nil, err
	}

	rows, err := e.db.Query(ctx, cypherQuery(e.graph, label))
	if err != nil {
		return nil, fmt.Errorf("failed to query label %s: %w", label, err)
	}
	defer rows.Close()

	var items []embedding.WorkItem
	for rows.Next() {
		var rawID, rawName *string
		if err := rows.Scan(&rawID, &rawName); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		items = append(items, embedding.WorkItem{
			ID:          parseAgtypeScalar(rawID),
			Label:       label,
			DisplayName: parseAgtypeScalar(rawName),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes for label %s: %w", label, err)
	}
	return items, nil
}
