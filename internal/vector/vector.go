// Package vector holds the embedding column type shared by the catalog and the
// LLM gateway, plus the distance math used when the database cannot compute it.
package vector

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Dimensions of the embedding model output (text-embedding-3-small).
const Dimensions = 1536

// Embedding is a fixed-length vector stored in a pgvector column. The wire
// encoding is a bracketed comma-separated list; reads are parsed as a JSON
// array, which accepts the same text.
type Embedding []float32

func (e Embedding) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func (e *Embedding) Scan(src any) error {
	if src == nil {
		*e = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("vector: cannot scan %T", src)
	}
	var out []float32
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("vector: decode: %w", err)
	}
	*e = out
	return nil
}

func (Embedding) GormDataType() string { return "vector" }

// GormDBDataType picks the pgvector column on postgres and plain text
// elsewhere (the sqlite test databases store the same literal).
func (Embedding) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("vector(%d)", Dimensions)
	}
	return "text"
}

// CosineDistance returns 1 - cosine similarity, matching the pgvector <=>
// operator. Mismatched or zero-magnitude vectors yield the maximum distance.
func CosineDistance(a, b Embedding) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
