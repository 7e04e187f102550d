package columnar

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/errors"
	"github.com/Autonomous-Scientific-Agents/IQC-Dashboard/pkg/json"
)

// listArray is satisfied by list, large list and fixed size list arrays.
type listArray interface {
	arrow.Array
	ValueOffsets(i int) (start, end int64)
	ListValues() arrow.Array
}

// sqliteType maps an arrow type to the declared type of its engine column.
func sqliteType(dt arrow.DataType) (string, error) {
	switch dt.ID() {
	case arrow.BOOL, arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "INTEGER", nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return "REAL", nil
	case arrow.STRING, arrow.LARGE_STRING:
		return "TEXT", nil
	case arrow.BINARY, arrow.LARGE_BINARY:
		return "BLOB", nil
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return "TEXT", nil
	case arrow.DICTIONARY:
		return sqliteType(dt.(*arrow.DictionaryType).ValueType)
	default:
		return "", errors.Newf(errors.ErrorTypeData, "unsupported arrow type %s", dt)
	}
}

// sqlValue returns the value of row i in col in a form the sqlite driver
// binds directly. Lists are encoded as JSON arrays.
func sqlValue(col arrow.Array, i int) (any, error) {
	v, err := goValue(col, i)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		b, err := json.Marshal(list)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode list value")
		}
		return string(b), nil
	}
	return v, nil
}

func goValue(col arrow.Array, i int) (any, error) {
	if col.IsNull(i) {
		return nil, nil
	}

	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i), nil
	case *array.Int8:
		return int64(c.Value(i)), nil
	case *array.Int16:
		return int64(c.Value(i)), nil
	case *array.Int32:
		return int64(c.Value(i)), nil
	case *array.Int64:
		return c.Value(i), nil
	case *array.Uint8:
		return int64(c.Value(i)), nil
	case *array.Uint16:
		return int64(c.Value(i)), nil
	case *array.Uint32:
		return int64(c.Value(i)), nil
	case *array.Uint64:
		return int64(c.Value(i)), nil
	case *array.Float32:
		return float64(c.Value(i)), nil
	case *array.Float64:
		return c.Value(i), nil
	case *array.String:
		return c.Value(i), nil
	case *array.LargeString:
		return c.Value(i), nil
	case *array.Binary:
		return append([]byte(nil), c.Value(i)...), nil
	case *array.LargeBinary:
		return append([]byte(nil), c.Value(i)...), nil
	case *array.Dictionary:
		return goValue(c.Dictionary(), c.GetValueIndex(i))
	case listArray:
		start, end := c.ValueOffsets(i)
		values := c.ListValues()
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			v, err := goValue(values, int(j))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported arrow array %T", col)
	}
}

// QuoteIdent quotes name as an SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func tableName(seq int) string {
	return fmt.Sprintf("src_%d", seq)
}
