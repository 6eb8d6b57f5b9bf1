package fnwire

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ScriptHashType tells the CKB VM how to interpret a script's code hash.
type ScriptHashType string

const (
	// HashTypeType matches the code hash against a cell's type script
	// hash.
	HashTypeType ScriptHashType = "type"

	// HashTypeData matches the code hash against cell data, running the
	// code on the original VM version.
	HashTypeData ScriptHashType = "data"

	// HashTypeData1 is HashTypeData on VM version 1.
	HashTypeData1 ScriptHashType = "data1"

	// HashTypeData2 is HashTypeData on VM version 2.
	HashTypeData2 ScriptHashType = "data2"
)

// Validate returns an error for unknown hash types.
func (h ScriptHashType) Validate() error {
	switch h {
	case HashTypeType, HashTypeData, HashTypeData1, HashTypeData2:
		return nil

	default:
		return fmt.Errorf("unknown script hash type %q", string(h))
	}
}

// Script is a CKB script. A lock script identifies the owner of a cell, a
// type script identifies the token a UDT cell carries.
type Script struct {
	CodeHash Hash256        `json:"code_hash" toml:"code_hash"`
	HashType ScriptHashType `json:"hash_type" toml:"hash_type"`
	Args     hexutil.Bytes  `json:"args" toml:"args"`
}

// Equal reports whether both scripts are identical.
func (s Script) Equal(other Script) bool {
	return s.CodeHash == other.CodeHash &&
		s.HashType == other.HashType &&
		bytes.Equal(s.Args, other.Args)
}

// String returns a compact human readable form of the script.
func (s Script) String() string {
	return fmt.Sprintf("%v:%v:%v", s.CodeHash, s.HashType, s.Args)
}
