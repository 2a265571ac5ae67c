package history

import (
	"fmt"

	"chainlens/internal/rpc"
)

// Operation is one entry of an account's operation log, including
// chain-generated virtual events like reward payouts. Index is strictly
// increasing within one account's log, with no gaps.
type Operation struct {
	Index     uint64         `json:"index"`
	TrxID     string         `json:"trx_id"`
	Timestamp string         `json:"timestamp"`
	Type      string         `json:"op_type"`
	Body      map[string]any `json:"op"`
}

func operationFromItem(item rpc.HistoryItem) Operation {
	return Operation{
		Index:     item.Index,
		TrxID:     item.TrxID,
		Timestamp: item.Timestamp,
		Type:      item.OpType,
		Body:      item.OpBody,
	}
}

// FilterError reports a replay filter argument of an unsupported shape.
type FilterError struct {
	Value any
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("unsupported history filter type %T (want nil, string, []string or map[string]struct{})", e.Value)
}

// NormalizeFilter converts the accepted filter shapes to a set of operation
// type tags. nil means no filtering. Any other shape fails with *FilterError.
func NormalizeFilter(filter any) (map[string]struct{}, error) {
	switch f := filter.(type) {
	case nil:
		return nil, nil
	case string:
		return map[string]struct{}{f: {}}, nil
	case []string:
		set := make(map[string]struct{}, len(f))
		for _, tag := range f {
			set[tag] = struct{}{}
		}
		return set, nil
	case map[string]struct{}:
		return f, nil
	default:
		return nil, &FilterError{Value: filter}
	}
}
