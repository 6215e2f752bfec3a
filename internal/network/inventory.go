package network

import (
	"bytes"

	"spvnode/internal/encoding"
)

// DataType is an inventory item's payload kind. MsgWitnessBlock/Tx are
// the segwit-aware variants a getdata sender should upgrade plain
// MsgBlock/MsgTx requests to (§4.8: "the receiver upgrades to
// MSG_WITNESS_BLOCK before sending").
type DataType uint32

const (
	MsgError          DataType = 0
	MsgTx             DataType = 1
	MsgBlock          DataType = 2
	MsgFilteredBlock  DataType = 3
	MsgCmpctBlock     DataType = 4
	MsgWitnessTx      DataType = 0x40000001
	MsgWitnessBlock   DataType = 0x40000002
)

// InventoryItem identifies a tx or block by its 32-byte id.
type InventoryItem struct {
	Type DataType
	Hash [32]byte
}

func parseInventoryItems(r *bytes.Reader) ([]InventoryItem, error) {
	count, err := encoding.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	items := make([]InventoryItem, count)
	for i := uint64(0); i < count; i++ {
		typ, err := encoding.ReadUint32LE(r)
		if err != nil {
			return nil, err
		}
		hash, err := encoding.ReadFixed(r, 32)
		if err != nil {
			return nil, err
		}
		items[i].Type = DataType(typ)
		copy(items[i].Hash[:], hash)
	}
	return items, nil
}

func serializeInventoryItems(items []InventoryItem) ([]byte, error) {
	var buf bytes.Buffer
	count, err := encoding.EncodeVarInt(uint64(len(items)))
	if err != nil {
		return nil, err
	}
	buf.Write(count)
	for _, item := range items {
		buf.Write(encoding.WriteUint32LE(uint32(item.Type)))
		buf.Write(item.Hash[:])
	}
	return buf.Bytes(), nil
}

// GetDataMessage requests the bodies of the listed inventory items.
type GetDataMessage struct {
	Items []InventoryItem
}

func NewGetDataMessage(items []InventoryItem) GetDataMessage {
	return GetDataMessage{Items: items}
}

func ParseGetDataMessage(payload []byte) (GetDataMessage, error) {
	items, err := parseInventoryItems(bytes.NewReader(payload))
	if err != nil {
		return GetDataMessage{}, err
	}
	return GetDataMessage{Items: items}, nil
}

func (gd *GetDataMessage) Serialize() ([]byte, error) { return serializeInventoryItems(gd.Items) }
func (gd GetDataMessage) Command() string             { return "getdata" }

// InvMessage announces available txs/blocks; the wire shape is
// identical to GetDataMessage.
type InvMessage struct {
	Items []InventoryItem
}

func ParseInvMessage(payload []byte) (InvMessage, error) {
	items, err := parseInventoryItems(bytes.NewReader(payload))
	if err != nil {
		return InvMessage{}, err
	}
	return InvMessage{Items: items}, nil
}

func (im *InvMessage) Serialize() ([]byte, error) { return serializeInventoryItems(im.Items) }
func (im InvMessage) Command() string             { return "inv" }
