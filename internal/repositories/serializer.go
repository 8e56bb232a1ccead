package repository

import (
	"github.com/bytedance/sonic"
	"gorm.io/gorm/clause"
)

// serialized encodes a json-serialized column for map-based updates, which
// bypass the field serializer.
func serialized(v any) clause.Expr {
	data, err := sonic.Marshal(v)
	if err != nil || string(data) == "null" {
		data = []byte("[]")
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{string(data)}}
}
