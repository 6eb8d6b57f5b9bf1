package ckbrpc

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nervosnetwork/fnpilot/fnwire"
)

// ScriptType selects which script of a cell a search key matches.
type ScriptType string

const (
	// ScriptTypeLock matches the cell's lock script.
	ScriptTypeLock ScriptType = "lock"

	// ScriptTypeType matches the cell's type script.
	ScriptTypeType ScriptType = "type"
)

// SearchMode selects how the search key script is compared.
type SearchMode string

const (
	// SearchModePrefix matches scripts whose args start with the given
	// args.
	SearchModePrefix SearchMode = "prefix"

	// SearchModeExact matches the script exactly.
	SearchModeExact SearchMode = "exact"
)

// Order is the ordering of get_cells results.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Range is a half open [start, end) range of u64 values.
type Range [2]hexutil.Uint64

// NewRange returns the range [start, end).
func NewRange(start, end uint64) *Range {
	return &Range{hexutil.Uint64(start), hexutil.Uint64(end)}
}

// SearchKeyFilter narrows down the cells matched by a SearchKey.
type SearchKeyFilter struct {
	Script              *fnwire.Script `json:"script,omitempty"`
	ScriptLenRange      *Range         `json:"script_len_range,omitempty"`
	OutputDataLenRange  *Range         `json:"output_data_len_range,omitempty"`
	OutputCapacityRange *Range         `json:"output_capacity_range,omitempty"`
	BlockRange          *Range         `json:"block_range,omitempty"`
}

// SearchKey is the query of the indexer cell methods.
type SearchKey struct {
	Script           fnwire.Script    `json:"script"`
	ScriptType       ScriptType       `json:"script_type"`
	ScriptSearchMode SearchMode       `json:"script_search_mode,omitempty"`
	Filter           *SearchKeyFilter `json:"filter,omitempty"`
	WithData         *bool            `json:"with_data,omitempty"`
}

// CellsCapacity is the result of get_cells_capacity.
type CellsCapacity struct {
	Capacity    fnwire.Amount  `json:"capacity"`
	BlockHash   fnwire.Hash256 `json:"block_hash"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}

// CellOutput is the output part of a live cell.
type CellOutput struct {
	Capacity fnwire.Amount  `json:"capacity"`
	Lock     fnwire.Script  `json:"lock"`
	Type     *fnwire.Script `json:"type"`
}

// OutPoint references a transaction output.
type OutPoint struct {
	TxHash fnwire.Hash256 `json:"tx_hash"`
	Index  hexutil.Uint   `json:"index"`
}

// Cell is a live cell as returned by get_cells.
type Cell struct {
	Output      CellOutput     `json:"output"`
	OutputData  hexutil.Bytes  `json:"output_data"`
	OutPoint    OutPoint       `json:"out_point"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
	TxIndex     hexutil.Uint   `json:"tx_index"`
}

// CellsPage is one page of get_cells results.
type CellsPage struct {
	Objects    []Cell        `json:"objects"`
	LastCursor hexutil.Bytes `json:"last_cursor"`
}

// IndexerTip is the result of get_indexer_tip.
type IndexerTip struct {
	BlockHash   fnwire.Hash256 `json:"block_hash"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}
