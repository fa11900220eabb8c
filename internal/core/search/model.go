package search

// SearchResult はベクトル検索の結果を表す
type SearchResult struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
}

// SearchParams は検索パラメータを表す
// Query と NodeID のどちらか一方を指定する
type SearchParams struct {
	Query  string
	NodeID string
	Limit  int
}
