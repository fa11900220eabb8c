package age

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier はグラフ名・ラベル名が cypher 文字列に埋め込める形式か検証します
func ValidateIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid %s name: %q", kind, name)
	}
	return nil
}

// parseAgtypeScalar は agtype のテキスト表現をスカラー文字列に変換します
// "abc" → abc, 42 → 42, null → ""
// 型注釈（::numeric など）は取り除きます
func parseAgtypeScalar(raw *string) string {
	if raw == nil {
		return ""
	}

	s := strings.TrimSpace(*raw)
	if s == "" || s == "null" {
		return ""
	}

	if strings.HasPrefix(s, `"`) {
		var decoded string
		if err := json.Unmarshal([]byte(s), &decoded); err == nil {
			return decoded
		}
		return strings.Trim(s, `"`)
	}

	if idx := strings.Index(s, "::"); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func cypherQuery(graph, label string) string {
	return fmt.Sprintf(
		"SELECT * FROM cypher('%s', $$ MATCH (v:%s) RETURN v.id, v.name $$) AS (v_id agtype, v_name agtype)",
		graph, label,
	)
}
