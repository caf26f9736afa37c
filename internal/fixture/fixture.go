// Package fixture provides human-editable (YAML) and binary (MessagePack)
// interchange formats for the instruction lists dex.Build consumes, and for
// crash-repro dumps of a CFG's current instruction stream.
//
// Item, Block, and Edge are pointer-linked and carry no tags of their own,
// so this package defines a flat, index-addressed wire representation and
// converts to and from it; the dex package itself stays free of any
// serialization dependency, matching the "core has no ambient stack"
// posture of the rest of the module.
package fixture

import (
	"fmt"
	"io"

	"github.com/dexcfg/dexcfg/internal/dex"
)

// Document is the on-disk (YAML) or on-wire (MessagePack) form of one
// instruction list.
type Document struct {
	RegistersSize int        `yaml:"registers_size" msgpack:"registers_size"`
	Items         []WireItem `yaml:"items" msgpack:"items"`
}

// WireItem is the flat, index-addressed stand-in for dex.Item: pointer
// fields (BranchSrc, Try, Catch, Pos.Parent) become indices into Items (or
// into the Catches/position-id numbering below), since pointers do not
// survive a round trip through YAML or MessagePack.
type WireItem struct {
	Kind string `yaml:"kind" msgpack:"kind"`

	// ItemOpcode
	Op      string `yaml:"op,omitempty" msgpack:"op,omitempty"`
	Dest    int32  `yaml:"dest,omitempty" msgpack:"dest,omitempty"`
	Src0    int32  `yaml:"src0,omitempty" msgpack:"src0,omitempty"`
	Src1    int32  `yaml:"src1,omitempty" msgpack:"src1,omitempty"`
	Literal int64  `yaml:"literal,omitempty" msgpack:"literal,omitempty"`
	Method  string `yaml:"method,omitempty" msgpack:"method,omitempty"`

	// ItemBranchTarget
	BranchSrcIndex *int   `yaml:"branch_src_index,omitempty" msgpack:"branch_src_index,omitempty"`
	CaseKey        *int32 `yaml:"case_key,omitempty" msgpack:"case_key,omitempty"`

	// ItemTryStart / ItemTryEnd
	TryID   int         `yaml:"try_id,omitempty" msgpack:"try_id,omitempty"`
	Catches []WireCatch `yaml:"catches,omitempty" msgpack:"catches,omitempty"`

	// ItemCatch
	CatchID int `yaml:"catch_id,omitempty" msgpack:"catch_id,omitempty"`

	// ItemPosition
	PosID       int    `yaml:"pos_id,omitempty" msgpack:"pos_id,omitempty"`
	ParentPosID int    `yaml:"parent_pos_id,omitempty" msgpack:"parent_pos_id,omitempty"`
	File        string `yaml:"file,omitempty" msgpack:"file,omitempty"`
	PosMethod   string `yaml:"pos_method,omitempty" msgpack:"pos_method,omitempty"`
	Line        int    `yaml:"line,omitempty" msgpack:"line,omitempty"`

	// ItemDebug
	Debug string `yaml:"debug,omitempty" msgpack:"debug,omitempty"`
}

// WireCatch is one entry of an ItemTryStart's catch chain, identified by a
// document-local id so an ItemCatch elsewhere in Items can reference it.
type WireCatch struct {
	ID    int    `yaml:"id" msgpack:"id"`
	Type  string `yaml:"type" msgpack:"type"`
	Index int    `yaml:"index" msgpack:"index"`
}

var kindNames = map[dex.ItemKind]string{
	dex.ItemOpcode:       "opcode",
	dex.ItemBranchTarget: "branch_target",
	dex.ItemTryStart:     "try_start",
	dex.ItemTryEnd:       "try_end",
	dex.ItemCatch:        "catch",
	dex.ItemPosition:     "position",
	dex.ItemDebug:        "debug",
}

var kindValues = func() map[string]dex.ItemKind {
	out := make(map[string]dex.ItemKind, len(kindNames))
	for k, v := range kindNames {
		out[v] = k
	}
	return out
}()

var opcodeValues = func() map[string]dex.Opcode {
	out := make(map[string]dex.Opcode)
	for op := dex.OpInvalid; op <= dex.OpBinOp; op++ {
		out[op.String()] = op
	}
	return out
}()

// ToDocument flattens list into a Document, assigning a stable index to
// every item (its position in Items) and a document-local id to every
// TryMarker, CatchEntry, and SourcePosition it encounters.
func ToDocument(list *dex.ItemList, registersSize int) *Document {
	items := list.Items()
	indexOf := make(map[*dex.Item]int, len(items))
	for i, it := range items {
		indexOf[it] = i
	}

	tryIDs := make(map[*dex.TryMarker]int)
	catchIDs := make(map[*dex.CatchEntry]int)
	posIDs := make(map[*dex.SourcePosition]int)
	nextTryID, nextCatchID, nextPosID := 1, 1, 1

	wire := make([]WireItem, len(items))
	for i, it := range items {
		w := WireItem{Kind: kindNames[it.Kind]}
		switch it.Kind {
		case dex.ItemOpcode:
			w.Op = it.Op.String()
			w.Dest, w.Src0, w.Src1 = it.Dest, it.Src0, it.Src1
			w.Literal = it.Literal
			w.Method = it.Method
		case dex.ItemBranchTarget:
			if it.BranchSrc != nil {
				if idx, ok := indexOf[it.BranchSrc]; ok {
					w.BranchSrcIndex = &idx
				}
			}
			if it.CaseKey != nil {
				k := *it.CaseKey
				w.CaseKey = &k
			}
		case dex.ItemTryStart:
			id, ok := tryIDs[it.Try]
			if !ok {
				id = nextTryID
				nextTryID++
				tryIDs[it.Try] = id
			}
			w.TryID = id
			for _, ce := range it.Try.Catches {
				cid, ok := catchIDs[ce]
				if !ok {
					cid = nextCatchID
					nextCatchID++
					catchIDs[ce] = cid
				}
				w.Catches = append(w.Catches, WireCatch{ID: cid, Type: ce.Type, Index: ce.Index})
			}
		case dex.ItemTryEnd:
			id, ok := tryIDs[it.Try]
			if !ok {
				id = nextTryID
				nextTryID++
				tryIDs[it.Try] = id
			}
			w.TryID = id
		case dex.ItemCatch:
			cid, ok := catchIDs[it.Catch]
			if !ok {
				cid = nextCatchID
				nextCatchID++
				catchIDs[it.Catch] = cid
			}
			w.CatchID = cid
		case dex.ItemPosition:
			pid, ok := posIDs[it.Pos]
			if !ok {
				pid = nextPosID
				nextPosID++
				posIDs[it.Pos] = pid
			}
			w.PosID = pid
			w.File, w.PosMethod, w.Line = it.Pos.File, it.Pos.Method, it.Pos.Line
			if it.Pos.Parent != nil {
				ppid, ok := posIDs[it.Pos.Parent]
				if !ok {
					ppid = nextPosID
					nextPosID++
					posIDs[it.Pos.Parent] = ppid
				}
				w.ParentPosID = ppid
			}
		case dex.ItemDebug:
			w.Debug = it.Debug
		}
		wire[i] = w
	}
	return &Document{RegistersSize: registersSize, Items: wire}
}

// FromDocument rebuilds an ItemList and its register-file size from doc,
// re-threading BranchSrc/Try/Catch/Pos.Parent pointers from the ids assigned
// by ToDocument.
func FromDocument(doc *Document) (*dex.ItemList, int, error) {
	items := make([]*dex.Item, len(doc.Items))
	for i, w := range doc.Items {
		items[i] = &dex.Item{}
		kind, ok := kindValues[w.Kind]
		if !ok {
			return nil, 0, fmt.Errorf("fixture: item %d: unknown kind %q", i, w.Kind)
		}
		items[i].Kind = kind
	}

	tries := make(map[int]*dex.TryMarker)
	catches := make(map[int]*dex.CatchEntry)
	positions := make(map[int]*dex.SourcePosition)

	for i, w := range doc.Items {
		it := items[i]
		switch it.Kind {
		case dex.ItemOpcode:
			op, ok := opcodeValues[w.Op]
			if !ok {
				return nil, 0, fmt.Errorf("fixture: item %d: unknown opcode %q", i, w.Op)
			}
			it.Op = op
			it.Dest, it.Src0, it.Src1 = w.Dest, w.Src0, w.Src1
			it.Literal = w.Literal
			it.Method = w.Method
		case dex.ItemBranchTarget:
			if w.BranchSrcIndex != nil {
				if *w.BranchSrcIndex < 0 || *w.BranchSrcIndex >= len(items) {
					return nil, 0, fmt.Errorf("fixture: item %d: branch_src_index out of range", i)
				}
				it.BranchSrc = items[*w.BranchSrcIndex]
			}
			if w.CaseKey != nil {
				k := *w.CaseKey
				it.CaseKey = &k
			}
		case dex.ItemTryStart:
			try := tries[w.TryID]
			if try == nil {
				try = &dex.TryMarker{ID: w.TryID}
				tries[w.TryID] = try
			}
			for _, wc := range w.Catches {
				ce := catches[wc.ID]
				if ce == nil {
					ce = &dex.CatchEntry{}
					catches[wc.ID] = ce
				}
				// An ItemCatch earlier in the document may already have created
				// ce as a placeholder; fill it in either way.
				ce.Type, ce.Index = wc.Type, wc.Index
				try.Catches = append(try.Catches, ce)
			}
			it.Try = try
		case dex.ItemTryEnd:
			try := tries[w.TryID]
			if try == nil {
				try = &dex.TryMarker{ID: w.TryID}
				tries[w.TryID] = try
			}
			it.Try = try
		case dex.ItemCatch:
			ce := catches[w.CatchID]
			if ce == nil {
				ce = &dex.CatchEntry{}
				catches[w.CatchID] = ce
			}
			it.Catch = ce
		case dex.ItemPosition:
			pos := positions[w.PosID]
			if pos == nil {
				pos = &dex.SourcePosition{}
				positions[w.PosID] = pos
			}
			pos.File, pos.Method, pos.Line = w.File, w.PosMethod, w.Line
			if w.ParentPosID != 0 {
				parent := positions[w.ParentPosID]
				if parent == nil {
					parent = &dex.SourcePosition{}
					positions[w.ParentPosID] = parent
				}
				pos.Parent = parent
			}
			it.Pos = pos
		case dex.ItemDebug:
			it.Debug = w.Debug
		}
	}

	return dex.NewItemList(items...), doc.RegistersSize, nil
}

// WriteYAML encodes list as human-editable YAML.
func WriteYAML(w io.Writer, list *dex.ItemList, registersSize int) error {
	return yamlEncode(w, ToDocument(list, registersSize))
}

// ReadYAML decodes a fixture previously written by WriteYAML.
func ReadYAML(r io.Reader) (*dex.ItemList, int, error) {
	var doc Document
	if err := yamlDecode(r, &doc); err != nil {
		return nil, 0, fmt.Errorf("fixture: decoding yaml: %w", err)
	}
	return FromDocument(&doc)
}
